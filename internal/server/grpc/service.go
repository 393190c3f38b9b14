package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/turing/internal/protocol"
)

const (
	FieldUsername = protocol.RegistrationFieldUsername
	FieldPassword = protocol.RegistrationFieldPassword
)

// RegistrationServer is the server API of the registration service.
//
// Subscribe takes a struct with string fields "username" and "password" and
// answers 0 for a new account or -1 if the name is taken.
type RegistrationServer interface {
	Subscribe(ctx context.Context, in *structpb.Struct) (*wrapperspb.Int32Value, error)
}

func RegisterRegistrationServer(s grpc.ServiceRegistrar, srv RegistrationServer) {
	s.RegisterService(&registrationServiceDesc, srv)
}

func subscribeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistrationServer).Subscribe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: protocol.RegistrationSubscribeMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RegistrationServer).Subscribe(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var registrationServiceDesc = grpc.ServiceDesc{
	ServiceName: "turing.registration.Registration",
	HandlerType: (*RegistrationServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Subscribe",
			Handler:    subscribeHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "registration.proto",
}
