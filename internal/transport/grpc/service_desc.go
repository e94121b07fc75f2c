package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "agenda.v1.BookingService"

// BookingServiceServer is the handler side of agenda.v1.BookingService. Every method takes and
// returns a google.protobuf.Struct.
type BookingServiceServer interface {
	CreateAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	TransitionAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RescheduleAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTransitions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetWeekView(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAvailableSlots(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateBlockedInterval(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteBlockedInterval(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListServices(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type rpcFunc func(BookingServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call rpcFunc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BookingServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(BookingServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var BookingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateAppointment", BookingServiceServer.CreateAppointment),
		unary("TransitionAppointment", BookingServiceServer.TransitionAppointment),
		unary("RescheduleAppointment", BookingServiceServer.RescheduleAppointment),
		unary("GetAppointment", BookingServiceServer.GetAppointment),
		unary("ListTransitions", BookingServiceServer.ListTransitions),
		unary("GetWeekView", BookingServiceServer.GetWeekView),
		unary("ListAvailableSlots", BookingServiceServer.ListAvailableSlots),
		unary("CreateBlockedInterval", BookingServiceServer.CreateBlockedInterval),
		unary("DeleteBlockedInterval", BookingServiceServer.DeleteBlockedInterval),
		unary("ListServices", BookingServiceServer.ListServices),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agenda/v1/booking.proto",
}

func RegisterBookingServiceServer(s grpc.ServiceRegistrar, srv BookingServiceServer) {
	s.RegisterService(&BookingServiceDesc, srv)
}
