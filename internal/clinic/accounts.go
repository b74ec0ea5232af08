package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/model"
)

// Session is what a successful register, login or refresh hands back.
type Session struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	User         *model.User `json:"user,omitempty"`
}

type NewUser struct {
	Name           string
	Email          string
	Phone          string
	Password       string
	Role           model.Role
	Specialization string
}

// Register signs up a patient. Staff accounts come from CreateUser.
func (s *Service) Register(ctx context.Context, name, email, phone, password string) (*Session, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || password == "" {
		return nil, model.Missing("Please fill all required fields")
	}
	u, err := s.CreateUser(ctx, NewUser{
		Name:     name,
		Email:    email,
		Phone:    phone,
		Password: password,
		Role:     model.RolePatient,
	})
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, u)
}

// CreateUser provisions an account of any role.
func (s *Service) CreateUser(ctx context.Context, in NewUser) (*model.User, error) {
	if !in.Role.Valid() {
		return nil, model.Invalid("Unknown role")
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, model.Missing("Please fill all required fields")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	u := &model.User{
		ID:             uuid.New().String(),
		Name:           strings.TrimSpace(in.Name),
		Email:          normalizeEmail(in.Email),
		Phone:          strings.TrimSpace(in.Phone),
		PasswordHash:   hash,
		Role:           in.Role,
		Specialization: strings.TrimSpace(in.Specialization),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Login matches on email and role together: the same address cannot sign
// in under a role it was not created with.
func (s *Service) Login(ctx context.Context, email, password, role string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" || strings.TrimSpace(role) == "" {
		return nil, model.Missing("Email, password & role are required")
	}
	u, err := s.store.UserByEmailRole(ctx, normalizeEmail(email), model.Role(strings.TrimSpace(role)))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrUnknownUser
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, model.ErrBadPassword
	}
	return s.issue(ctx, u)
}

// Refresh trades a refresh token for a new pair. Presenting a token that was
// already rotated away revokes every token the user holds.
func (s *Service) Refresh(ctx context.Context, raw string) (*Session, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, model.Missing("Refresh token is required")
	}
	rt, err := s.store.GetRefreshTokenByHash(ctx, auth.HashRefreshToken(raw))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrInvalidToken
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}

	if rt.Revoked {
		s.log.Warn().Str("user_id", rt.UserID).Msg("revoked refresh token replayed, revoking all")
		if err := s.store.RevokeAllRefreshTokens(ctx, rt.UserID); err != nil {
			return nil, fmt.Errorf("revoke refresh tokens: %w", err)
		}
		return nil, model.ErrInvalidToken
	}
	if !s.now().Before(rt.ExpiresAt) {
		return nil, model.ErrInvalidToken
	}

	u, err := s.store.UserByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrInvalidToken
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	newRaw, newHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	err = s.store.RotateRefreshToken(ctx, rt.ID, uuid.New().String(), u.ID, newHash, s.now().Add(s.refreshTTL))
	if err != nil {
		if errors.Is(err, model.ErrInvalidToken) {
			return nil, err
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	access, err := s.tokens.Make(u.ID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: access, RefreshToken: newRaw}, nil
}

func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.store.RevokeAllRefreshTokens(ctx, userID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

// UserByID backs the auth guard.
func (s *Service) UserByID(ctx context.Context, id string) (*model.User, error) {
	return s.store.UserByID(ctx, id)
}

func (s *Service) issue(ctx context.Context, u *model.User) (*Session, error) {
	access, err := s.tokens.Make(u.ID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if _, err := s.store.CreateRefreshToken(ctx, u.ID, hash, s.now().Add(s.refreshTTL)); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &Session{Token: access, RefreshToken: raw, User: u}, nil
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
