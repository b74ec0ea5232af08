package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"clinic-booking-api/internal/model"
)

const apptCols = `a.id, a.patient_id, a.service, a.day, a.status, a.created_at, a.updated_at`

const apptPatientCols = apptCols + `,
	COALESCE(u.name, ''), COALESCE(u.email, ''), COALESCE(u.phone, '')`

func scanAppointment(row pgx.Row, withPatient bool) (*model.Appointment, error) {
	a := &model.Appointment{}
	dest := []any{&a.ID, &a.PatientID, &a.Service, &a.Date, &a.Status, &a.CreatedAt, &a.UpdatedAt}
	var p model.PatientContact
	if withPatient {
		dest = append(dest, &p.Name, &p.Email, &p.Phone)
	}
	if err := row.Scan(dest...); err != nil {
		if isNoRows(err) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	a.Date = model.DayOf(a.Date)
	if withPatient {
		p.ID = a.PatientID
		a.Patient = &p
	}
	return a, nil
}

func collectAppointments(rows pgx.Rows, withPatient bool) ([]model.Appointment, error) {
	defer rows.Close()
	out := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows, withPatient)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *PG) FindAppointment(ctx context.Context, patientID string, day time.Time) (*model.Appointment, error) {
	if !validID(patientID) {
		return nil, model.ErrNotFound
	}
	a, err := scanAppointment(s.pool.QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments a
		 WHERE a.patient_id = $1 AND a.day = $2::date`,
		patientID, model.FormatDay(day)), false)
	if err != nil && err != model.ErrNotFound {
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	return a, err
}

// CountAppointments counts every appointment on day, whatever its status.
func (s *PG) CountAppointments(ctx context.Context, day time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM appointments WHERE day = $1::date`, model.FormatDay(day),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count appointments: %w", err)
	}
	return n, nil
}

func (s *PG) CreateAppointment(ctx context.Context, a *model.Appointment, maxPerDay int) error {
	day := model.FormatDay(a.Date)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// serialize bookings for the same day until commit
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "appointments:"+day); err != nil {
		return fmt.Errorf("lock day: %w", err)
	}

	var dup bool
	var n int
	err = tx.QueryRow(ctx,
		`SELECT
			EXISTS(SELECT 1 FROM appointments WHERE patient_id = $1 AND day = $2::date),
			(SELECT COUNT(*) FROM appointments WHERE day = $2::date)`,
		a.PatientID, day,
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

	_, err = tx.Exec(ctx,
		`INSERT INTO appointments (id, patient_id, service, day, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4::date,$5,$6,$6)`,
		a.ID, a.PatientID, a.Service, day, a.Status, a.CreatedAt,
	)
	if err != nil {
		// unique (patient_id, day) caught a race
		if isUniqueViolation(err) {
			return model.ErrDuplicateBooking
		}
		return fmt.Errorf("insert appointment: %w", err)
	}
	a.UpdatedAt = a.CreatedAt

	return tx.Commit(ctx)
}

func (s *PG) ListPatientAppointments(ctx context.Context, patientID string) ([]model.Appointment, error) {
	if !validID(patientID) {
		return []model.Appointment{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+apptCols+` FROM appointments a
		 WHERE a.patient_id = $1
		 ORDER BY a.day, a.created_at`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	return collectAppointments(rows, false)
}

func (s *PG) ListDayAppointments(ctx context.Context, day time.Time) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+apptPatientCols+`
		 FROM appointments a
		 LEFT JOIN users u ON u.id = a.patient_id
		 WHERE a.day = $1::date
		 ORDER BY a.created_at, a.id`, model.FormatDay(day))
	if err != nil {
		return nil, fmt.Errorf("list day appointments: %w", err)
	}
	return collectAppointments(rows, true)
}

func (s *PG) SetAppointmentStatus(ctx context.Context, id string, status model.Status, at time.Time) (*model.Appointment, error) {
	if !validID(id) {
		return nil, model.ErrNotFound
	}
	a, err := scanAppointment(s.pool.QueryRow(ctx,
		`WITH a AS (
			UPDATE appointments SET status = $1, updated_at = $3
			WHERE id = $2
			RETURNING *
		 )
		 SELECT `+apptPatientCols+`
		 FROM a LEFT JOIN users u ON u.id = a.patient_id`,
		status, id, at), true)
	if err != nil && err != model.ErrNotFound {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	return a, err
}
