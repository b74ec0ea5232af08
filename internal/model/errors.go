package model

import "errors"

var (
	ErrMissingParameter = errors.New("missing parameter")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicateBooking = errors.New("duplicate booking")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrNotFound         = errors.New("not found")

	ErrEmailTaken   = errors.New("email already registered")
	ErrUnknownUser  = errors.New("user not found for role")
	ErrBadPassword  = errors.New("incorrect password")
	ErrInvalidToken = errors.New("invalid token")
)

// Problem attaches a client-facing message to one of the sentinel kinds
// above. errors.Is matches it against its kind.
type Problem struct {
	Kind    error
	Message string
}

func (p *Problem) Error() string { return p.Message }
func (p *Problem) Unwrap() error { return p.Kind }

func Missing(msg string) error { return &Problem{Kind: ErrMissingParameter, Message: msg} }
func Invalid(msg string) error { return &Problem{Kind: ErrInvalidInput, Message: msg} }

var messages = map[error]string{
	ErrDuplicateBooking: "You already have an appointment on this date.",
	ErrCapacityExceeded: "No slots available on this date.",
	ErrInvalidStatus:    "Invalid status value provided.",
	ErrNotFound:         "Appointment not found.",
	ErrEmailTaken:       "Email is already registered",
	ErrUnknownUser:      "User not found for this role",
	ErrBadPassword:      "Incorrect password",
	ErrInvalidToken:     "Invalid refresh token",
}

// Message returns the client-facing text for a domain error, or false when
// err is not one.
func Message(err error) (string, bool) {
	var p *Problem
	if errors.As(err, &p) {
		return p.Message, true
	}
	for kind, msg := range messages {
		if errors.Is(err, kind) {
			return msg, true
		}
	}
	return "", false
}
