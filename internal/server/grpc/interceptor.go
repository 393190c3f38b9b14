package grpc

import (
	"context"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/turing/internal/protocol"
)

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "gRPC call", "method", info.FullMethod, "code", status.Code(err).String(), "duration", time.Since(start))
	return resp, err
}

// validationInterceptor refuses registrations whose credentials could not
// be used on the line protocol or as a storage namespace.
func (s *GRPCServer) validationInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if info.FullMethod == protocol.RegistrationSubscribeMethod {
		in, ok := req.(*structpb.Struct)
		if !ok {
			return nil, status.Error(codes.InvalidArgument, "unexpected request type")
		}
		userName, password := credentials(in)
		if !protocol.ValidName(userName) {
			return nil, status.Error(codes.InvalidArgument, "invalid username")
		}
		if password == "" || strings.ContainsFunc(password, isSpace) {
			return nil, status.Error(codes.InvalidArgument, "invalid password")
		}
	}

	return handler(ctx, req)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
