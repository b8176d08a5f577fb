package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIdentityValid(t *testing.T) {
	user := uuid.New()
	assert.True(t, UserIdentity(user).Valid())
	assert.True(t, GuestIdentity("guest-token").Valid())
	assert.False(t, Identity{}.Valid())
	assert.False(t, Identity{UserID: &user, GuestToken: "guest-token"}.Valid())
	assert.False(t, GuestIdentity("   ").Valid())
}

func TestIdentityOwns(t *testing.T) {
	user := uuid.New()
	other := uuid.New()
	token := "guest-token"
	otherToken := "other"

	assert.True(t, UserIdentity(user).Owns(&user, nil))
	assert.False(t, UserIdentity(user).Owns(&other, nil))
	assert.False(t, UserIdentity(user).Owns(nil, &token))
	assert.True(t, GuestIdentity(token).Owns(nil, &token))
	assert.False(t, GuestIdentity(token).Owns(nil, &otherToken))
	assert.False(t, GuestIdentity(token).Owns(&user, nil))
}

func TestIdentitySubjectTruncatesGuestToken(t *testing.T) {
	assert.Equal(t, "guest:abcdefgh", GuestIdentity("abcdefghijklmnop").Subject())
	user := uuid.New()
	assert.Equal(t, user.String(), UserIdentity(user).Subject())
}

func TestIdentityContextRoundTrip(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), GuestIdentity("tok"))
	got, ok := IdentityFromContext(ctx)
	assert.True(t, ok)
	assert.True(t, got.IsGuest())
}
