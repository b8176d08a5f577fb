package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berryevents69/Berry-Events-sub000/pkg/auth"
	"github.com/berryevents69/Berry-Events-sub000/pkg/config"
)

var testJWT = config.JWTConfig{Secret: "test-secret", Issuer: "berry-test", ExpirationMinutes: 15}

type captured struct {
	identity auth.Identity
	ok       bool
	calls    int
}

func (c *captured) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.calls++
		c.identity, c.ok = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func mintToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{UserID: userID})
	require.NoError(t, err)
	return token
}

func TestIdentityResolvesBearerToken(t *testing.T) {
	userID := uuid.New()
	var got captured

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, userID))
	req.Header.Set(GuestSessionHeader, "guest-ignored")
	resp := httptest.NewRecorder()
	Identity(testJWT, nil)(got.handler()).ServeHTTP(resp, req)

	require.Equal(t, http.StatusNoContent, resp.Code)
	require.True(t, got.ok)
	require.NotNil(t, got.identity.UserID)
	assert.Equal(t, userID, *got.identity.UserID)
	assert.False(t, got.identity.IsGuest())
}

func TestIdentityAcceptsQueryTokenForWebsockets(t *testing.T) {
	userID := uuid.New()
	var got captured

	req := httptest.NewRequest(http.MethodGet, "/ws/bookings/abc?access_token="+mintToken(t, userID), nil)
	Identity(testJWT, nil)(got.handler()).ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, got.ok)
	assert.Equal(t, userID.String(), got.identity.Subject())
}

func TestIdentityRejectsBadBearer(t *testing.T) {
	var got captured
	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp := httptest.NewRecorder()
	Identity(testJWT, nil)(got.handler()).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Zero(t, got.calls)
}

func TestIdentityGuestSession(t *testing.T) {
	var got captured
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(GuestSessionHeader, "  guest-session-1 ")
	Identity(testJWT, nil)(got.handler()).ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, got.ok)
	assert.True(t, got.identity.IsGuest())
	assert.Equal(t, "guest-session-1", got.identity.GuestToken)

	long := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	long.Header.Set(GuestSessionHeader, strings.Repeat("g", maxGuestTokenLen+1))
	resp := httptest.NewRecorder()
	Identity(testJWT, nil)(got.handler()).ServeHTTP(resp, long)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestIdentityAnonymousPassesThrough(t *testing.T) {
	var got captured
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	Identity(testJWT, nil)(got.handler()).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 1, got.calls)
	assert.False(t, got.ok)
}

func TestRequireUserAndIdentity(t *testing.T) {
	tests := []struct {
		name         string
		identity     *auth.Identity
		userStatus   int
		anyoneStatus int
	}{
		{name: "anonymous", userStatus: http.StatusUnauthorized, anyoneStatus: http.StatusUnauthorized},
		{name: "guest", identity: ptr(auth.GuestIdentity("g-1")), userStatus: http.StatusForbidden, anyoneStatus: http.StatusNoContent},
		{name: "user", identity: ptr(auth.UserIdentity(uuid.New())), userStatus: http.StatusNoContent, anyoneStatus: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			build := func() *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
				if tt.identity != nil {
					req = req.WithContext(WithIdentity(req.Context(), *tt.identity))
				}
				return req
			}
			var got captured

			resp := httptest.NewRecorder()
			RequireUser(nil)(got.handler()).ServeHTTP(resp, build())
			assert.Equal(t, tt.userStatus, resp.Code)

			resp = httptest.NewRecorder()
			RequireIdentity(nil)(got.handler()).ServeHTTP(resp, build())
			assert.Equal(t, tt.anyoneStatus, resp.Code)
		})
	}
}

func ptr[T any](v T) *T { return &v }
