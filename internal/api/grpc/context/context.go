package context

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"

	"github.com/dtroode/agrogestion/internal/model"
)

// Metadata keys used to carry the authenticated identity in gRPC contexts.
const (
	userIDKey      string = "user_id"
	emailKey       string = "user_email"
	displayNameKey string = "user_display_name"
)

var _ model.ContextManager = (*Manager)(nil)

// Manager stores the authenticated identity in incoming gRPC metadata.
// The access token is never copied into the context.
type Manager struct{}

// NewManager creates a new gRPC context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetIdentityToContext returns ctx with identity in its incoming metadata.
// Existing metadata is preserved.
func (m *Manager) SetIdentityToContext(ctx context.Context, identity model.Identity) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		md = metadata.New(nil)
	} else {
		md = md.Copy()
	}
	md.Set(userIDKey, identity.ID.String())
	md.Set(emailKey, identity.Email)
	md.Set(displayNameKey, identity.DisplayName)

	return metadata.NewIncomingContext(ctx, md)
}

// GetIdentityFromContext returns the identity set by SetIdentityToContext.
func (m *Manager) GetIdentityFromContext(ctx context.Context) (model.Identity, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return model.Identity{}, false
	}

	userID, err := uuid.Parse(first(md, userIDKey))
	if err != nil {
		return model.Identity{}, false
	}

	return model.Identity{
		ID:          userID,
		Email:       first(md, emailKey),
		DisplayName: first(md, displayNameKey),
	}, true
}

func first(md metadata.MD, key string) string {
	if v := md.Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}
