package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clinic-booking-api/internal/model"
)

type sqlRow interface {
	Scan(dest ...any) error
}

func scanSQLiteAppointment(row sqlRow, withPatient bool) (*model.Appointment, error) {
	a := &model.Appointment{}
	var day string
	dest := []any{&a.ID, &a.PatientID, &a.Service, &day, &a.Status, &a.CreatedAt, &a.UpdatedAt}
	var p model.PatientContact
	if withPatient {
		dest = append(dest, &p.Name, &p.Email, &p.Phone)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	d, err := time.ParseInLocation(model.DayLayout, day, time.Local)
	if err != nil {
		return nil, fmt.Errorf("bad stored day %q: %w", day, err)
	}
	a.Date = d
	if withPatient {
		p.ID = a.PatientID
		a.Patient = &p
	}
	return a, nil
}

func collectSQLiteAppointments(rows *sql.Rows, withPatient bool) ([]model.Appointment, error) {
	defer rows.Close()
	out := []model.Appointment{}
	for rows.Next() {
		a, err := scanSQLiteAppointment(rows, withPatient)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *SQLite) FindAppointment(ctx context.Context, patientID string, day time.Time) (*model.Appointment, error) {
	a, err := scanSQLiteAppointment(s.db.QueryRowContext(ctx,
		`SELECT `+apptCols+` FROM appointments a
		 WHERE a.patient_id = ? AND a.day = ?`,
		patientID, model.FormatDay(day)), false)
	if err != nil && err != model.ErrNotFound {
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	return a, err
}

func (s *SQLite) CountAppointments(ctx context.Context, day time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM appointments WHERE day = ?`, model.FormatDay(day),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count appointments: %w", err)
	}
	return n, nil
}

// CreateAppointment relies on _txlock=immediate: BEGIN takes the write lock,
// so the recheck and the insert see no concurrent writer.
func (s *SQLite) CreateAppointment(ctx context.Context, a *model.Appointment, maxPerDay int) error {
	day := model.FormatDay(a.Date)
	created := a.CreatedAt.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var dup bool
	var n int
	err = tx.QueryRowContext(ctx,
		`SELECT
			EXISTS(SELECT 1 FROM appointments WHERE patient_id = ? AND day = ?),
			(SELECT COUNT(*) FROM appointments WHERE day = ?)`,
		a.PatientID, day, day,
	).Scan(&dup, &n)
	if err != nil {
		return fmt.Errorf("recheck day: %w", err)
	}
	if dup {
		return model.ErrDuplicateBooking
	}
	if n >= maxPerDay {
		return model.ErrCapacityExceeded
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO appointments (id, patient_id, service, day, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.PatientID, a.Service, day, string(a.Status), created, created,
	)
	if err != nil {
		if isSQLiteUnique(err) {
			return model.ErrDuplicateBooking
		}
		return fmt.Errorf("insert appointment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	a.UpdatedAt = a.CreatedAt
	return nil
}

func (s *SQLite) ListPatientAppointments(ctx context.Context, patientID string) ([]model.Appointment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+apptCols+` FROM appointments a
		 WHERE a.patient_id = ?
		 ORDER BY a.day, a.created_at, a.rowid`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	return collectSQLiteAppointments(rows, false)
}

func (s *SQLite) ListDayAppointments(ctx context.Context, day time.Time) ([]model.Appointment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+apptPatientCols+`
		 FROM appointments a
		 LEFT JOIN users u ON u.id = a.patient_id
		 WHERE a.day = ?
		 ORDER BY a.created_at, a.rowid`, model.FormatDay(day))
	if err != nil {
		return nil, fmt.Errorf("list day appointments: %w", err)
	}
	return collectSQLiteAppointments(rows, true)
}

func (s *SQLite) SetAppointmentStatus(ctx context.Context, id string, status model.Status, at time.Time) (*model.Appointment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), at.UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}

	a, err := scanSQLiteAppointment(tx.QueryRowContext(ctx,
		`SELECT `+apptPatientCols+`
		 FROM appointments a
		 LEFT JOIN users u ON u.id = a.patient_id
		 WHERE a.id = ?`, id), true)
	if err != nil {
		return nil, fmt.Errorf("reload appointment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}
