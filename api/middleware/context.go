package middleware

import (
	"context"

	"github.com/berryevents69/Berry-Events-sub000/pkg/auth"
)

// IdentityFromContext returns the caller resolved by the Identity middleware.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	if ctx == nil {
		return auth.Identity{}, false
	}
	return auth.IdentityFromContext(ctx)
}

// UserIDFromContext returns the signed-in user's id, or "" for guests and
// anonymous callers.
func UserIDFromContext(ctx context.Context) string {
	identity, ok := IdentityFromContext(ctx)
	if !ok || identity.UserID == nil {
		return ""
	}
	return identity.UserID.String()
}

// WithIdentity seeds ctx with identity. Tests use it to skip token parsing.
func WithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return auth.WithIdentity(ctx, identity)
}
