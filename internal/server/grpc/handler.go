package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/turing/internal/common"
	"github.com/dmitrijs2005/turing/internal/protocol"
)

func (s *GRPCServer) Subscribe(ctx context.Context, req *structpb.Struct) (*wrapperspb.Int32Value, error) {
	userName, password := credentials(req)

	err := s.users.Register(userName, []byte(password))
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			s.logger.Info(ctx, "Registration refused, name taken", "username", userName)
			return wrapperspb.Int32(protocol.RegisterExists), nil
		}
		s.logger.Error(ctx, "Registration failed", "username", userName, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	s.logger.Info(ctx, "Registered", "username", userName)
	return wrapperspb.Int32(protocol.RegisterOK), nil
}

func credentials(req *structpb.Struct) (string, string) {
	f := req.GetFields()
	return f[FieldUsername].GetStringValue(), f[FieldPassword].GetStringValue()
}
