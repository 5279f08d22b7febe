package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"conversation-service/internal/models"
)

const bulkUsersMethod = "/user.UserInternal/BulkUsers"

// UserClient reads profiles from the user-service over gRPC. Messages travel
// as structpb.Struct so no generated stubs are needed.
type UserClient struct {
	conn grpc.ClientConnInterface
}

// NewUserClient constructs the wrapper.
func NewUserClient(conn grpc.ClientConnInterface) *UserClient {
	return &UserClient{conn: conn}
}

// BulkUsers fetches multiple users in one call. Unknown ids are simply absent
// from the result.
func (u *UserClient) BulkUsers(ctx context.Context, ids []string) ([]models.Profile, error) {
	if len(ids) == 0 {
		return []models.Profile{}, nil
	}
	values := make([]any, 0, len(ids))
	for _, id := range ids {
		values = append(values, id)
	}
	req, err := structpb.NewStruct(map[string]any{"ids": values})
	if err != nil {
		return nil, err
	}

	resp := &structpb.Struct{}
	if err := u.conn.Invoke(ctx, bulkUsersMethod, req, resp); err != nil {
		return nil, err
	}

	users := resp.GetFields()["users"].GetListValue().GetValues()
	profiles := make([]models.Profile, 0, len(users))
	for _, user := range users {
		fields := user.GetStructValue().GetFields()
		id := idValue(fields["id"])
		if id == "" {
			continue
		}
		profiles = append(profiles, models.Profile{
			ID:       id,
			Username: fields["username"].GetStringValue(),
			Avatar:   fields["avatar"].GetStringValue(),
			Email:    fields["email"].GetStringValue(),
		})
	}
	return profiles, nil
}

// ResolveProfiles returns a profile for every id, see ResolveProfiles.
func (u *UserClient) ResolveProfiles(ctx context.Context, ids []string) (map[string]models.Profile, error) {
	return ResolveProfiles(ctx, u, ids)
}

// idValue accepts both string and numeric ids; older user-service builds
// still send int64 ids.
func idValue(v *structpb.Value) string {
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue
	case *structpb.Value_NumberValue:
		return fmt.Sprintf("%.0f", kind.NumberValue)
	default:
		return ""
	}
}
