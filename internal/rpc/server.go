package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"clinic-booking-api/internal/clinic"
	"clinic-booking-api/internal/middleware"
	"clinic-booking-api/internal/model"
)

type Server struct {
	svc *clinic.Service
	log zerolog.Logger
}

var _ ClinicServer = (*Server)(nil)

func NewServer(svc *clinic.Service, log zerolog.Logger) *Server {
	return &Server{svc: svc, log: log}
}

func str(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

// toStruct round-trips v through its JSON form so RPC payloads match the
// REST bodies field for field.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func (s *Server) reply(op string, v any) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		return nil, s.fail(op, fmt.Errorf("encode response: %w", err))
	}
	return out, nil
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, model.ErrDuplicateBooking), errors.Is(err, model.ErrEmailTaken):
		return codes.AlreadyExists
	case errors.Is(err, model.ErrCapacityExceeded):
		return codes.ResourceExhausted
	case errors.Is(err, model.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, model.ErrUnknownUser), errors.Is(err, model.ErrBadPassword), errors.Is(err, model.ErrInvalidToken):
		return codes.Unauthenticated
	}
	return codes.InvalidArgument
}

func (s *Server) fail(op string, err error) error {
	if msg, ok := model.Message(err); ok {
		return status.Error(codeFor(err), msg)
	}
	s.log.Error().Err(err).Str("op", op).Msg("rpc failed")
	return status.Error(codes.Internal, "internal error")
}

func caller(ctx context.Context) (*model.User, error) {
	u, ok := middleware.UserFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no user")
	}
	return u, nil
}

func (s *Server) Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.svc.Register(ctx, str(in, "name"), str(in, "email"), str(in, "phone"), str(in, "password"))
	if err != nil {
		return nil, s.fail("register", err)
	}
	return s.reply("register", sess)
}

func (s *Server) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.svc.Login(ctx, str(in, "email"), str(in, "password"), str(in, "role"))
	if err != nil {
		return nil, s.fail("login", err)
	}
	return s.reply("login", sess)
}

func (s *Server) CheckAvailability(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	av, err := s.svc.Availability(ctx, str(in, "date"))
	if err != nil {
		return nil, s.fail("check availability", err)
	}
	return s.reply("check availability", av)
}

func (s *Server) BookAppointment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.svc.Book(ctx, u.ID, str(in, "service"), str(in, "date"))
	if err != nil {
		return nil, s.fail("book appointment", err)
	}
	return s.reply("book appointment", map[string]any{"appointment": a})
}

func (s *Server) ListMyAppointments(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.svc.ListMine(ctx, u.ID)
	if err != nil {
		return nil, s.fail("list my appointments", err)
	}
	return s.reply("list my appointments", map[string]any{"appointments": list})
}

func (s *Server) ListDayAppointments(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	list, err := s.svc.ListForDay(ctx, str(in, "date"))
	if err != nil {
		return nil, s.fail("list day appointments", err)
	}
	return s.reply("list day appointments", map[string]any{"appointments": list})
}

func (s *Server) SetAppointmentStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	a, err := s.svc.SetStatus(ctx, str(in, "id"), str(in, "status"))
	if err != nil {
		return nil, s.fail("set appointment status", err)
	}
	return s.reply("set appointment status", map[string]any{"appointment": a})
}
