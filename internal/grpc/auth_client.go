package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const validateTokenMethod = "/auth.AuthService/ValidateToken"

// ErrInvalidToken is returned when auth-service rejects a token.
var ErrInvalidToken = errors.New("invalid token")

// AuthClient wraps the auth-service gRPC client.
type AuthClient struct {
	conn grpc.ClientConnInterface
}

// NewAuthClient constructs the wrapper.
func NewAuthClient(conn grpc.ClientConnInterface) *AuthClient {
	return &AuthClient{conn: conn}
}

// ValidateToken verifies the JWT and returns the authenticated user id.
func (a *AuthClient) ValidateToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	req, err := structpb.NewStruct(map[string]any{"token": token})
	if err != nil {
		return "", err
	}
	resp := &structpb.Struct{}
	if err := a.conn.Invoke(ctx, validateTokenMethod, req, resp); err != nil {
		return "", err
	}

	fields := resp.GetFields()
	userID := idValue(fields["user_id"])
	if !fields["valid"].GetBoolValue() || userID == "" || userID == "0" {
		return "", ErrInvalidToken
	}
	return userID, nil
}
