package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type identityKey struct{}

// Identity is the caller behind a request: a signed-in user or a guest session,
// never both.
type Identity struct {
	UserID     *uuid.UUID
	GuestToken string
}

// UserIdentity returns the identity of a signed-in user.
func UserIdentity(id uuid.UUID) Identity {
	return Identity{UserID: &id}
}

// GuestIdentity returns the identity of a guest session.
func GuestIdentity(token string) Identity {
	return Identity{GuestToken: strings.TrimSpace(token)}
}

// Valid reports whether exactly one of user id or guest token is set.
func (i Identity) Valid() bool {
	hasUser := i.UserID != nil && *i.UserID != uuid.Nil
	hasGuest := strings.TrimSpace(i.GuestToken) != ""
	return hasUser != hasGuest
}

func (i Identity) IsGuest() bool {
	return i.UserID == nil && i.GuestToken != ""
}

// Owns reports whether a row keyed by userID/guestToken belongs to the identity.
func (i Identity) Owns(userID *uuid.UUID, guestToken *string) bool {
	if i.UserID != nil {
		return userID != nil && *userID == *i.UserID
	}
	return guestToken != nil && i.GuestToken != "" && *guestToken == i.GuestToken
}

// Subject is a stable string form used for audit columns and idempotency scopes.
// Guest tokens are truncated so the full secret never lands in logs.
func (i Identity) Subject() string {
	if i.UserID != nil {
		return i.UserID.String()
	}
	token := i.GuestToken
	if len(token) > 8 {
		token = token[:8]
	}
	return "guest:" + token
}

// WithIdentity stores the caller identity on the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller identity stored by the HTTP middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
