package store

import (
	"time"

	"github.com/google/uuid"

	"clinic-booking-api/internal/model"
)

// validID guards id lookups: a malformed id can never match a row, and
// Postgres would otherwise reject it as a uuid cast error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// stampUser fills zero timestamps with the current time.
func stampUser(u *model.User) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
}
