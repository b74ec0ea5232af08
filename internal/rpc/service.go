// Package rpc exposes the clinic operations as the gRPC service
// clinic.v1.ClinicService. Requests and responses are google.protobuf.Struct
// values carrying the same JSON shapes as the REST API.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"clinic-booking-api/internal/model"
)

const ServiceName = "clinic.v1.ClinicService"

func method(name string) string { return "/" + ServiceName + "/" + name }

var (
	MethodRegister             = method("Register")
	MethodLogin                = method("Login")
	MethodCheckAvailability    = method("CheckAvailability")
	MethodBookAppointment      = method("BookAppointment")
	MethodListMyAppointments   = method("ListMyAppointments")
	MethodListDayAppointments  = method("ListDayAppointments")
	MethodSetAppointmentStatus = method("SetAppointmentStatus")
)

// MethodRoles feeds the auth interceptor. Register and Login are open.
var MethodRoles = map[string][]model.Role{
	MethodCheckAvailability:    {model.RolePatient},
	MethodBookAppointment:      {model.RolePatient},
	MethodListMyAppointments:   {model.RolePatient},
	MethodListDayAppointments:  {model.RoleDoctor, model.RoleAdmin},
	MethodSetAppointmentStatus: {model.RoleDoctor, model.RoleAdmin},
}

// RateLimited lists the methods behind the per-IP limiter.
var RateLimited = []string{MethodRegister, MethodLogin}

type ClinicServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckAvailability(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BookAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListMyAppointments(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListDayAppointments(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetAppointmentStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type call func(ClinicServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, fn call) grpc.MethodDesc {
	full := method(name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			h := func(ctx context.Context, req any) (any, error) {
				return fn(srv.(ClinicServer), ctx, req.(*structpb.Struct))
			}
			if ic == nil {
				return h(ctx, in)
			}
			return ic(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: full}, h)
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ClinicServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", ClinicServer.Register),
		unary("Login", ClinicServer.Login),
		unary("CheckAvailability", ClinicServer.CheckAvailability),
		unary("BookAppointment", ClinicServer.BookAppointment),
		unary("ListMyAppointments", ClinicServer.ListMyAppointments),
		unary("ListDayAppointments", ClinicServer.ListDayAppointments),
		unary("SetAppointmentStatus", ClinicServer.SetAppointmentStatus),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clinic/v1/clinic.proto",
}

func RegisterClinicServer(s grpc.ServiceRegistrar, srv ClinicServer) {
	s.RegisterService(&ServiceDesc, srv)
}
