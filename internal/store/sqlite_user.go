package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clinic-booking-api/internal/model"
)

func scanSQLiteUser(row *sql.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash,
		&u.Role, &u.Specialization, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *SQLite) CreateUser(ctx context.Context, u *model.User) error {
	stampUser(u)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, phone, password_hash, role, specialization, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.Phone, u.PasswordHash, string(u.Role), u.Specialization,
		u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	if err != nil {
		if isSQLiteUnique(err) {
			return model.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLite) UserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanSQLiteUser(s.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE id = ?`, id))
	if err != nil && err != model.ErrNotFound {
		return nil, fmt.Errorf("query user by id: %w", err)
	}
	return u, err
}

func (s *SQLite) UserByEmailRole(ctx context.Context, email string, role model.Role) (*model.User, error) {
	u, err := scanSQLiteUser(s.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE email = ? AND role = ?`, email, string(role)))
	if err != nil && err != model.ErrNotFound {
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	return u, err
}

func (s *SQLite) CountUsersByRole(ctx context.Context, role model.Role) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = ?`, string(role)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
