package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/berryevents69/Berry-Events-sub000/api/responses"
	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
	pkgredis "github.com/berryevents69/Berry-Events-sub000/pkg/redis"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"

	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	maxIdempotencyKeyLen   = 128
)

type routeMatcher func(string) bool

type idempotencyRule struct {
	method   string
	matcher  routeMatcher
	ttl      time.Duration
	required bool
}

var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, matcher: matchExact("/api/v1/checkout"), ttl: criticalIdempotencyTTL, required: true},
	{method: http.MethodPost, matcher: matchExact("/api/v1/wallet/deposit"), ttl: criticalIdempotencyTTL, required: true},
	{method: http.MethodPost, matcher: matchExact("/api/v1/wallet/withdraw"), ttl: criticalIdempotencyTTL, required: true},
	{method: http.MethodPost, matcher: matchExact("/api/v1/bookings"), ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, matcher: matchExact("/api/v1/cart/items"), ttl: defaultIdempotencyTTL},
}

type idempotencyRecord struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// inFlightTTL bounds how long a crashed request can keep its key claimed.
const inFlightTTL = 2 * time.Minute

// Idempotency replays the stored response when a mutating request is retried
// with the same Idempotency-Key and body. A reused key with a different body
// is rejected, as is a retry that arrives while the first attempt is still
// running. Server errors are not stored, so the key stays usable.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, ok := routeRule(r.Method, routePattern(r))
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			switch {
			case clientKey == "" && !rule.required:
				next.ServeHTTP(w, r)
				return
			case clientKey == "":
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			case len(clientKey) > maxIdempotencyKeyLen:
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request body unreadable"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(body)
			key := store.IdempotencyKey(buildScope(r), clientKey)

			if replayed, err := replay(ctx, store, w, key, requestHash); err != nil || replayed {
				if err != nil {
					responses.WriteError(ctx, logg, w, err)
				}
				return
			}

			claimKey := key + ":inflight"
			claimed, err := store.SetNX(ctx, claimKey, requestHash, inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				// The first attempt may have finished between the two lookups.
				if replayed, err := replay(ctx, store, w, key, requestHash); err != nil || replayed {
					if err != nil {
						responses.WriteError(ctx, logg, w, err)
					}
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this Idempotency-Key is still in progress").
					WithDetails(map[string]any{"inProgress": true}))
				return
			}
			defer func() {
				if err := store.Del(context.WithoutCancel(ctx), claimKey); err != nil {
					logError(ctx, logg, "release idempotency claim", err)
				}
			}()

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := defaultStatus(rec.status)
			if status >= http.StatusInternalServerError {
				return
			}
			record := idempotencyRecord{
				Status:      status,
				Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
				RequestHash: requestHash,
			}
			if ct := rec.Header().Get("Content-Type"); ct != "" {
				record.Headers = map[string]string{"Content-Type": ct}
			}
			payload, err := json.Marshal(record)
			if err != nil {
				logError(ctx, logg, "marshal idempotency record", err)
				return
			}
			if _, err := store.SetNX(context.WithoutCancel(ctx), key, string(payload), rule.ttl); err != nil {
				logError(ctx, logg, "persist idempotency record", err)
			}
		})
	}
}

// replay writes the stored response for key, if there is one.
func replay(ctx context.Context, store pkgredis.IdempotencyStore, w http.ResponseWriter, key, requestHash string) (bool, error) {
	stored, err := store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil) || (err == nil && stored == ""):
		return false, nil
	case err != nil:
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	if record.RequestHash != requestHash {
		return false, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body")
	}

	if ct := record.Headers["Content-Type"]; ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
	return true, nil
}

// buildScope keys records by caller. Guest tokens are hashed whole so two
// sessions sharing a prefix never see each other's responses.
func buildScope(r *http.Request) string {
	caller := "anonymous"
	if identity, ok := IdentityFromContext(r.Context()); ok && identity.Valid() {
		if identity.UserID != nil {
			caller = identity.UserID.String()
		} else {
			caller = "guest:" + hashBody([]byte(identity.GuestToken))
		}
	}
	return strings.Join([]string{caller, r.Method, r.URL.Path}, "|")
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func defaultStatus(value int) int {
	if value == 0 {
		return http.StatusOK
	}
	return value
}

// routePattern uses the request path; every rule names a static route, and
// group middleware runs before chi has resolved the full pattern.
func routePattern(r *http.Request) string {
	if r == nil || r.URL == nil {
		return ""
	}
	if len(r.URL.Path) > 1 {
		return strings.TrimSuffix(r.URL.Path, "/")
	}
	return r.URL.Path
}

func routeRule(method, pattern string) (idempotencyRule, bool) {
	if pattern == "" {
		return idempotencyRule{}, false
	}
	for _, rule := range idempotencyRules {
		if rule.method == method && rule.matcher(pattern) {
			return rule, true
		}
	}
	return idempotencyRule{}, false
}

func matchExact(path string) routeMatcher {
	return func(pattern string) bool {
		return pattern == path
	}
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
