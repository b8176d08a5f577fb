package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berryevents69/Berry-Events-sub000/pkg/auth"
	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func checkoutRequest(identity auth.Identity, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	return req.WithContext(WithIdentity(req.Context(), identity))
}

func TestRouteRuleSelection(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		ttl      time.Duration
		required bool
		ok       bool
	}{
		{"checkout", http.MethodPost, "/api/v1/checkout", criticalIdempotencyTTL, true, true},
		{"wallet deposit", http.MethodPost, "/api/v1/wallet/deposit", criticalIdempotencyTTL, true, true},
		{"booking", http.MethodPost, "/api/v1/bookings", defaultIdempotencyTTL, false, true},
		{"cart read", http.MethodGet, "/api/v1/cart", 0, false, false},
		{"location ping", http.MethodPost, "/api/v1/providers/me/location", 0, false, false},
	}
	for _, tt := range tests {
		rule, ok := routeRule(tt.method, tt.path)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && (rule.ttl != tt.ttl || rule.required != tt.required) {
			t.Fatalf("%s: unexpected rule %+v", tt.name, rule)
		}
	}
}

func TestIdempotencyRequiresHeaderOnCheckout(t *testing.T) {
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	})

	resp := httptest.NewRecorder()
	Idempotency(newFakeStore(), nil)(handler).ServeHTTP(resp, checkoutRequest(auth.GuestIdentity("g-1"), "", `{}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyOptionalHeaderPassesThrough(t *testing.T) {
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	Idempotency(newFakeStore(), nil)(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated || calls != 1 {
		t.Fatalf("expected pass-through, got %d after %d calls", resp.Code, calls)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"orderNumber":"BE-1"}}`))
	})
	user := auth.UserIdentity(uuid.New())
	body := `{"cartId":"c","paymentMethod":"wallet"}`

	first := httptest.NewRecorder()
	mw(handler).ServeHTTP(first, checkoutRequest(user, "abc", body))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected first response 201 got %d", first.Code)
	}

	replay := httptest.NewRecorder()
	mw(handler).ServeHTTP(replay, checkoutRequest(user, "abc", body))
	if replay.Code != http.StatusCreated {
		t.Fatalf("expected replay status 201 got %d", replay.Code)
	}
	if replay.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(replay.Body.String()) != `{"data":{"orderNumber":"BE-1"}}` {
		t.Fatalf("expected stored body got %s", replay.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}

	// Same key from another caller is a different scope.
	other := httptest.NewRecorder()
	mw(handler).ServeHTTP(other, checkoutRequest(auth.UserIdentity(uuid.New()), "abc", body))
	if calls != 2 {
		t.Fatalf("expected other caller to reach the handler")
	}
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	guest := auth.GuestIdentity("guest-abcdefgh-1")

	mw(handler).ServeHTTP(httptest.NewRecorder(), checkoutRequest(guest, "k1", `{}`))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, checkoutRequest(guest, "k1", `{}`))
	if resp.Code != http.StatusCreated || calls != 2 {
		t.Fatalf("expected retry to reach handler, got %d after %d calls", resp.Code, calls)
	}
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	guest := auth.GuestIdentity("guest-1")

	mw(handler).ServeHTTP(httptest.NewRecorder(), checkoutRequest(guest, "xyz", `{"paymentMethod":"card"}`))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, checkoutRequest(guest, "xyz", `{"paymentMethod":"bank"}`))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	user := auth.UserIdentity(uuid.New())
	body := `{"paymentMethod":"wallet"}`

	var inner *httptest.ResponseRecorder
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			// A retry lands while the first attempt is still inside the handler.
			inner = httptest.NewRecorder()
			mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { calls++ })).
				ServeHTTP(inner, checkoutRequest(user, "dup", body))
		}
		w.WriteHeader(http.StatusCreated)
	})

	first := httptest.NewRecorder()
	mw(handler).ServeHTTP(first, checkoutRequest(user, "dup", body))

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, 1, calls)
	require.NotNil(t, inner)
	assert.Equal(t, http.StatusConflict, inner.Code)
	assert.Contains(t, inner.Body.String(), "in progress")

	for key := range store.data {
		assert.False(t, strings.HasSuffix(key, ":inflight"), "claim %s left behind", key)
	}

	replayed := httptest.NewRecorder()
	mw(handler).ServeHTTP(replayed, checkoutRequest(user, "dup", body))
	assert.Equal(t, http.StatusCreated, replayed.Code)
	assert.Equal(t, "true", replayed.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 1, calls)
}
