package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/turing/internal/protocol"
)

// RegistrationClient calls the registration service.
type RegistrationClient struct {
	conn *grpc.ClientConn
}

// NewRegistrationClient prepares a client for endpoint. No connection is
// made until the first call. Extra options are applied after the defaults.
func NewRegistrationClient(endpoint string, opts ...grpc.DialOption) (*RegistrationClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, err
	}
	return &RegistrationClient{conn: conn}, nil
}

// Register creates an account. ErrAlreadyRegistered is returned if the name
// is taken.
func (r *RegistrationClient) Register(ctx context.Context, user string, password []byte) error {
	req, err := structpb.NewStruct(map[string]any{
		protocol.RegistrationFieldUsername: user,
		protocol.RegistrationFieldPassword: string(password),
	})
	if err != nil {
		return err
	}

	out := new(wrapperspb.Int32Value)
	if err := r.conn.Invoke(ctx, protocol.RegistrationSubscribeMethod, req, out); err != nil {
		return mapError(err)
	}

	switch code := int(out.GetValue()); code {
	case protocol.RegisterOK:
		return nil
	case protocol.RegisterExists:
		return ErrAlreadyRegistered
	default:
		return &StatusError{Command: "register", Code: code}
	}
}

func (r *RegistrationClient) Close() error {
	return r.conn.Close()
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
