// Package clinic holds the booking rules, account flows and dashboard
// summaries. Both the REST and the gRPC boundary call into one Service.
package clinic

import (
	"time"

	"github.com/rs/zerolog"

	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/store"
)

// Store is the slice of persistence the service needs.
type Store interface {
	store.Users
	store.Appointments
	store.RefreshTokens
}

type Options struct {
	MaxPerDay  int
	RefreshTTL time.Duration
	// Services is the clinic's service catalogue shown on the patient dashboard.
	Services []string
	// Now defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	store      Store
	tokens     *auth.Tokens
	log        zerolog.Logger
	maxPerDay  int
	refreshTTL time.Duration
	services   []string
	now        func() time.Time
}

func New(st Store, tokens *auth.Tokens, log zerolog.Logger, opts Options) *Service {
	s := &Service{
		store:      st,
		tokens:     tokens,
		log:        log,
		maxPerDay:  opts.MaxPerDay,
		refreshTTL: opts.RefreshTTL,
		services:   opts.Services,
		now:        opts.Now,
	}
	if s.maxPerDay <= 0 {
		s.maxPerDay = DefaultMaxPerDay
	}
	if s.refreshTTL <= 0 {
		s.refreshTTL = 7 * 24 * time.Hour
	}
	if s.services == nil {
		s.services = []string{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

const DefaultMaxPerDay = 10

func (s *Service) MaxPerDay() int { return s.maxPerDay }

func (s *Service) Tokens() *auth.Tokens { return s.tokens }

func (s *Service) Now() time.Time { return s.now() }
