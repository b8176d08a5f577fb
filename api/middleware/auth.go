package middleware

import (
	"net/http"
	"strings"

	"github.com/berryevents69/Berry-Events-sub000/api/responses"
	"github.com/berryevents69/Berry-Events-sub000/pkg/auth"
	"github.com/berryevents69/Berry-Events-sub000/pkg/config"
	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
)

const (
	GuestSessionHeader = "X-Guest-Session"
	// accessTokenQuery carries the bearer token for websocket upgrades, where
	// browsers cannot set headers.
	accessTokenQuery = "access_token"
	maxGuestTokenLen = 128
)

// Identity resolves the caller from a bearer token or a guest session header.
// A bearer token wins when both are present. Requests with neither pass through
// without an identity; a malformed bearer token is rejected.
func Identity(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if token := bearerToken(r); token != "" {
				claims, err := auth.ParseAccessToken(cfg, token)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
					return
				}
				ctx = auth.WithIdentity(ctx, auth.UserIdentity(claims.UserID))
				if logg != nil {
					ctx = logg.WithUserID(ctx, claims.UserID.String())
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if guest := strings.TrimSpace(r.Header.Get(GuestSessionHeader)); guest != "" {
				if len(guest) > maxGuestTokenLen {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid guest session"))
					return
				}
				identity := auth.GuestIdentity(guest)
				ctx = auth.WithIdentity(ctx, identity)
				if logg != nil {
					ctx = logg.WithGuestSession(ctx, identity.Subject())
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireIdentity rejects callers that are neither signed in nor carrying a
// guest session.
func RequireIdentity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity, ok := IdentityFromContext(r.Context()); !ok || !identity.Valid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser admits signed-in users only.
func RequireUser(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok || !identity.Valid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			if identity.IsGuest() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "sign in required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return strings.TrimSpace(r.URL.Query().Get(accessTokenQuery))
	}
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
