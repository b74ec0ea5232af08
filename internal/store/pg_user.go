package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"clinic-booking-api/internal/model"
)

const userCols = `id, name, email, phone, password_hash, role, specialization, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash,
		&u.Role, &u.Specialization, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *PG) CreateUser(ctx context.Context, u *model.User) error {
	stampUser(u)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, phone, password_hash, role, specialization, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		u.ID, u.Name, u.Email, u.Phone, u.PasswordHash, u.Role, u.Specialization, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PG) UserByID(ctx context.Context, id string) (*model.User, error) {
	if !validID(id) {
		return nil, model.ErrNotFound
	}
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id))
	if err != nil && err != model.ErrNotFound {
		return nil, fmt.Errorf("query user by id: %w", err)
	}
	return u, err
}

// UserByEmailRole matches on email and role together, the way login does.
func (s *PG) UserByEmailRole(ctx context.Context, email string, role model.Role) (*model.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE email = $1 AND role = $2`, email, role))
	if err != nil && err != model.ErrNotFound {
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	return u, err
}

func (s *PG) CountUsersByRole(ctx context.Context, role model.Role) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
