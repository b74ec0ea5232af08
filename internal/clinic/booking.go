package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"clinic-booking-api/internal/model"
)

// Availability counts every appointment on the day, whatever its status.
func (s *Service) Availability(ctx context.Context, date string) (*model.Availability, error) {
	if strings.TrimSpace(date) == "" {
		return nil, model.Missing("Date is required")
	}
	day, err := model.ParseDay(date)
	if err != nil {
		return nil, err
	}
	n, err := s.store.CountAppointments(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}
	return &model.Availability{
		Date:        day,
		Available:   n < s.maxPerDay,
		BookedCount: n,
		MaxPerDay:   s.maxPerDay,
	}, nil
}

// Book creates a pending appointment for patientID. The duplicate and
// capacity checks here answer the common case; the store repeats both under
// the day's write lock so concurrent requests cannot overbook.
func (s *Service) Book(ctx context.Context, patientID, service, date string) (*model.Appointment, error) {
	service = strings.TrimSpace(service)
	if service == "" || strings.TrimSpace(date) == "" {
		return nil, model.Missing("Service and date are required")
	}
	day, err := model.ParseDay(date)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.FindAppointment(ctx, patientID, day)
	switch {
	case err == nil && existing != nil:
		return nil, model.ErrDuplicateBooking
	case err != nil && !errors.Is(err, model.ErrNotFound):
		return nil, fmt.Errorf("find appointment: %w", err)
	}

	n, err := s.store.CountAppointments(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}
	if n >= s.maxPerDay {
		return nil, model.ErrCapacityExceeded
	}

	a := &model.Appointment{
		ID:        uuid.New().String(),
		PatientID: patientID,
		Service:   service,
		Date:      day,
		Status:    model.StatusPending,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateAppointment(ctx, a, s.maxPerDay); err != nil {
		if errors.Is(err, model.ErrDuplicateBooking) || errors.Is(err, model.ErrCapacityExceeded) {
			s.log.Info().Str("patient_id", patientID).Str("day", model.FormatDay(day)).
				Err(err).Msg("booking lost race")
			return nil, err
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return a, nil
}

func (s *Service) ListMine(ctx context.Context, patientID string) ([]model.Appointment, error) {
	out, err := s.store.ListPatientAppointments(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	return out, nil
}

// ListForDay returns the day's appointments with patient contact details.
// An empty date means today in server time.
func (s *Service) ListForDay(ctx context.Context, date string) ([]model.Appointment, error) {
	day, err := s.DayOrToday(date)
	if err != nil {
		return nil, err
	}
	out, err := s.store.ListDayAppointments(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list day appointments: %w", err)
	}
	return out, nil
}

// SetStatus overwrites the status unconditionally; any valid status may
// follow any other.
func (s *Service) SetStatus(ctx context.Context, id string, status string) (*model.Appointment, error) {
	st := model.Status(strings.TrimSpace(status))
	if !st.Valid() {
		return nil, model.ErrInvalidStatus
	}
	a, err := s.store.SetAppointmentStatus(ctx, id, st, s.now())
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("set appointment status: %w", err)
	}
	return a, nil
}

// DayOrToday parses date, or gives today in server time when it is empty.
func (s *Service) DayOrToday(date string) (time.Time, error) {
	if strings.TrimSpace(date) == "" {
		return model.Today(s.now()), nil
	}
	return model.ParseDay(date)
}
