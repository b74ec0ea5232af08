package store

import (
	"context"
	"time"

	"clinic-booking-api/internal/model"
)

// Store is the persistence boundary shared by the Postgres and SQLite
// backends. Lookups that find nothing return model.ErrNotFound.
type Store interface {
	Users
	Appointments
	RefreshTokens

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close()
}

type Users interface {
	// CreateUser stores u.CreatedAt and u.UpdatedAt, stamping the current
	// time when they are zero. A taken email is model.ErrEmailTaken.
	CreateUser(ctx context.Context, u *model.User) error
	UserByID(ctx context.Context, id string) (*model.User, error)
	UserByEmailRole(ctx context.Context, email string, role model.Role) (*model.User, error)
	CountUsersByRole(ctx context.Context, role model.Role) (int, error)
}

type Appointments interface {
	FindAppointment(ctx context.Context, patientID string, day time.Time) (*model.Appointment, error)
	CountAppointments(ctx context.Context, day time.Time) (int, error)
	// CreateAppointment inserts a while holding the day's write lock. It
	// re-checks both booking rules under that lock and reports a lost race
	// as model.ErrDuplicateBooking or model.ErrCapacityExceeded.
	CreateAppointment(ctx context.Context, a *model.Appointment, maxPerDay int) error
	ListPatientAppointments(ctx context.Context, patientID string) ([]model.Appointment, error)
	ListDayAppointments(ctx context.Context, day time.Time) ([]model.Appointment, error)
	// SetAppointmentStatus overwrites the status and sets updated_at to at.
	SetAppointmentStatus(ctx context.Context, id string, status model.Status, at time.Time) (*model.Appointment, error)
}

type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	Revoked    bool
	ReplacedBy *string
	CreatedAt  time.Time
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (string, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}
