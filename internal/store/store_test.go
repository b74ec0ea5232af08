package store_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/store"
)

func newSQLite(t *testing.T) *store.SQLite {
	t.Helper()
	ctx := context.Background()
	st, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(st.Close)
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return st
}

func newPG(t *testing.T) *store.PG {
	t.Helper()
	_ = godotenv.Load("../../.env")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := store.NewPool(ctx, dbURL, 4, 0)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	st := store.NewPG(pool, zerolog.Nop())
	t.Cleanup(st.Close)
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return st
}

// freshDay picks a far-future day so runs against a shared database don't
// see each other's bookings.
func freshDay() time.Time {
	base := time.Date(2200, 1, 1, 0, 0, 0, 0, time.Local)
	return base.AddDate(0, 0, rand.Intn(300*365))
}

func mkUser(t *testing.T, st store.Store, role model.Role) *model.User {
	t.Helper()
	u := &model.User{
		ID:           uuid.New().String(),
		Name:         "Test " + string(role),
		Email:        fmt.Sprintf("%s-%s@test.com", role, uuid.New().String()[:8]),
		Phone:        "555-0100",
		PasswordHash: "hash",
		Role:         role,
	}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func mkAppt(patientID string, day time.Time, service string) *model.Appointment {
	return &model.Appointment{
		ID:        uuid.New().String(),
		PatientID: patientID,
		Service:   service,
		Date:      day,
		Status:    model.StatusPending,
		CreatedAt: time.Now(),
	}
}

func backends(t *testing.T, fn func(t *testing.T, st store.Store)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLite(t)) })
	t.Run("postgres", func(t *testing.T) { fn(t, newPG(t)) })
}

func TestMigrate_Idempotent(t *testing.T) {
	st := newSQLite(t)
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestUsers(t *testing.T) {
	backends(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		u := mkUser(t, st, model.RolePatient)
		if u.CreatedAt.IsZero() {
			t.Fatal("expected CreatedAt to be set")
		}

		got, err := st.UserByID(ctx, u.ID)
		if err != nil {
			t.Fatalf("UserByID: %v", err)
		}
		if got.Email != u.Email || got.Role != model.RolePatient || got.PasswordHash != "hash" {
			t.Fatalf("unexpected user: %+v", got)
		}

		if _, err := st.UserByEmailRole(ctx, u.Email, model.RolePatient); err != nil {
			t.Fatalf("UserByEmailRole: %v", err)
		}
		if _, err := st.UserByEmailRole(ctx, u.Email, model.RoleDoctor); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("wrong role: expected ErrNotFound, got %v", err)
		}
		if _, err := st.UserByID(ctx, "not-a-uuid"); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("bad id: expected ErrNotFound, got %v", err)
		}

		stamped := &model.User{
			ID:           uuid.New().String(),
			Name:         "Stamped",
			Email:        fmt.Sprintf("stamped-%s@test.com", uuid.New().String()[:8]),
			PasswordHash: "hash",
			Role:         model.RoleDoctor,
			CreatedAt:    time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC),
		}
		if err := st.CreateUser(ctx, stamped); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		back, err := st.UserByID(ctx, stamped.ID)
		if err != nil {
			t.Fatalf("UserByID: %v", err)
		}
		if !back.CreatedAt.Equal(stamped.CreatedAt) || !back.UpdatedAt.Equal(stamped.CreatedAt) {
			t.Fatalf("expected given timestamps kept, got %s / %s", back.CreatedAt, back.UpdatedAt)
		}

		dup := *u
		dup.ID = uuid.New().String()
		dup.Role = model.RoleDoctor
		if err := st.CreateUser(ctx, &dup); !errors.Is(err, model.ErrEmailTaken) {
			t.Fatalf("expected ErrEmailTaken, got %v", err)
		}
	})
}

func TestCountUsersByRole(t *testing.T) {
	st := newSQLite(t)
	mkUser(t, st, model.RolePatient)
	mkUser(t, st, model.RolePatient)
	mkUser(t, st, model.RoleDoctor)

	n, err := st.CountUsersByRole(context.Background(), model.RolePatient)
	if err != nil {
		t.Fatalf("CountUsersByRole: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 patients, got %d", n)
	}
}

func TestAppointments_CreateAndList(t *testing.T) {
	backends(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		p := mkUser(t, st, model.RolePatient)
		day := freshDay()

		a := mkAppt(p.ID, day, "Checkup")
		if err := st.CreateAppointment(ctx, a, 10); err != nil {
			t.Fatalf("CreateAppointment: %v", err)
		}

		found, err := st.FindAppointment(ctx, p.ID, day)
		if err != nil {
			t.Fatalf("FindAppointment: %v", err)
		}
		if found.ID != a.ID || !found.Date.Equal(day) {
			t.Fatalf("unexpected appointment: %+v", found)
		}
		if _, err := st.FindAppointment(ctx, p.ID, day.AddDate(0, 0, 1)); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("other day: expected ErrNotFound, got %v", err)
		}

		n, err := st.CountAppointments(ctx, day)
		if err != nil {
			t.Fatalf("CountAppointments: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected 1, got %d", n)
		}

		mine, err := st.ListPatientAppointments(ctx, p.ID)
		if err != nil {
			t.Fatalf("ListPatientAppointments: %v", err)
		}
		if len(mine) != 1 || mine[0].Service != "Checkup" || mine[0].Patient != nil {
			t.Fatalf("unexpected list: %+v", mine)
		}

		list, err := st.ListDayAppointments(ctx, day)
		if err != nil {
			t.Fatalf("ListDayAppointments: %v", err)
		}
		if len(list) != 1 || list[0].Patient == nil || list[0].Patient.Email != p.Email {
			t.Fatalf("expected patient contact on day list, got %+v", list)
		}
	})
}

func TestAppointments_EmptyListsAreNotNil(t *testing.T) {
	st := newSQLite(t)
	ctx := context.Background()

	list, err := st.ListDayAppointments(ctx, freshDay())
	if err != nil {
		t.Fatalf("ListDayAppointments: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", list)
	}
}

func TestAppointments_DuplicateAndCapacity(t *testing.T) {
	backends(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		day := freshDay()
		p1 := mkUser(t, st, model.RolePatient)
		p2 := mkUser(t, st, model.RolePatient)
		p3 := mkUser(t, st, model.RolePatient)

		if err := st.CreateAppointment(ctx, mkAppt(p1.ID, day, "A"), 2); err != nil {
			t.Fatalf("p1: %v", err)
		}
		if err := st.CreateAppointment(ctx, mkAppt(p1.ID, day, "B"), 2); !errors.Is(err, model.ErrDuplicateBooking) {
			t.Fatalf("expected ErrDuplicateBooking, got %v", err)
		}
		if err := st.CreateAppointment(ctx, mkAppt(p2.ID, day, "C"), 2); err != nil {
			t.Fatalf("p2: %v", err)
		}
		if err := st.CreateAppointment(ctx, mkAppt(p3.ID, day, "D"), 2); !errors.Is(err, model.ErrCapacityExceeded) {
			t.Fatalf("expected ErrCapacityExceeded, got %v", err)
		}
		// a different day is unaffected
		if err := st.CreateAppointment(ctx, mkAppt(p3.ID, day.AddDate(0, 0, 1), "D"), 2); err != nil {
			t.Fatalf("next day: %v", err)
		}
	})
}

func TestAppointments_ConcurrentBookingsRespectCapacity(t *testing.T) {
	backends(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		day := freshDay()
		const max, tries = 3, 8

		patients := make([]*model.User, tries)
		for i := range patients {
			patients[i] = mkUser(t, st, model.RolePatient)
		}

		var wg sync.WaitGroup
		errs := make([]error, tries)
		for i := 0; i < tries; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = st.CreateAppointment(ctx, mkAppt(patients[i].ID, day, "Walk-in"), max)
			}(i)
		}
		wg.Wait()

		ok := 0
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, model.ErrCapacityExceeded):
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if ok != max {
			t.Fatalf("expected %d bookings, got %d", max, ok)
		}
		n, _ := st.CountAppointments(ctx, day)
		if n != max {
			t.Fatalf("expected %d stored, got %d", max, n)
		}
	})
}

func TestSetAppointmentStatus(t *testing.T) {
	backends(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		p := mkUser(t, st, model.RolePatient)
		a := mkAppt(p.ID, freshDay(), "Dental")
		if err := st.CreateAppointment(ctx, a, 10); err != nil {
			t.Fatalf("CreateAppointment: %v", err)
		}

		at := time.Date(2031, 5, 6, 7, 8, 9, 0, time.UTC)
		for i, s := range []model.Status{model.StatusConfirmed, model.StatusCancelled, model.StatusPending} {
			stamp := at.Add(time.Duration(i) * time.Hour)
			got, err := st.SetAppointmentStatus(ctx, a.ID, s, stamp)
			if err != nil {
				t.Fatalf("SetAppointmentStatus(%s): %v", s, err)
			}
			if got.Status != s {
				t.Fatalf("expected %s, got %s", s, got.Status)
			}
			if !got.UpdatedAt.Equal(stamp) {
				t.Fatalf("expected updated_at %s, got %s", stamp, got.UpdatedAt)
			}
			if got.Patient == nil || got.Patient.Name != p.Name {
				t.Fatalf("expected patient contact, got %+v", got.Patient)
			}
		}

		if _, err := st.SetAppointmentStatus(ctx, uuid.New().String(), model.StatusConfirmed, at); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("missing id: expected ErrNotFound, got %v", err)
		}
		if _, err := st.SetAppointmentStatus(ctx, "abc", model.StatusConfirmed, at); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("bad id: expected ErrNotFound, got %v", err)
		}
	})
}

func TestRefreshTokens_Rotate(t *testing.T) {
	backends(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		u := mkUser(t, st, model.RolePatient)
		exp := time.Now().Add(time.Hour)

		hash1 := "h1-" + uuid.New().String()
		id1, err := st.CreateRefreshToken(ctx, u.ID, hash1, exp)
		if err != nil {
			t.Fatalf("CreateRefreshToken: %v", err)
		}

		rt, err := st.GetRefreshTokenByHash(ctx, hash1)
		if err != nil {
			t.Fatalf("GetRefreshTokenByHash: %v", err)
		}
		if rt.ID != id1 || rt.Revoked || rt.UserID != u.ID {
			t.Fatalf("unexpected token: %+v", rt)
		}

		id2 := uuid.New().String()
		hash2 := "h2-" + uuid.New().String()
		if err := st.RotateRefreshToken(ctx, id1, id2, u.ID, hash2, exp); err != nil {
			t.Fatalf("RotateRefreshToken: %v", err)
		}
		old, _ := st.GetRefreshTokenByHash(ctx, hash1)
		if !old.Revoked || old.ReplacedBy == nil || *old.ReplacedBy != id2 {
			t.Fatalf("old token not linked: %+v", old)
		}

		// rotating the same token twice loses
		err = st.RotateRefreshToken(ctx, id1, uuid.New().String(), u.ID, "h3-"+uuid.New().String(), exp)
		if !errors.Is(err, model.ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}

		if err := st.RevokeAllRefreshTokens(ctx, u.ID); err != nil {
			t.Fatalf("RevokeAllRefreshTokens: %v", err)
		}
		cur, _ := st.GetRefreshTokenByHash(ctx, hash2)
		if !cur.Revoked {
			t.Fatal("expected current token revoked")
		}

		if _, err := st.GetRefreshTokenByHash(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
