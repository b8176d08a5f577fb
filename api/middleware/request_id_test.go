package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDAdoptsWellFormedHeader(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "edge-7f3a9c21")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "edge-7f3a9c21", seen)
	assert.Equal(t, "edge-7f3a9c21", w.Header().Get(requestIDHeader))
}

func TestRequestIDReplacesMalformedHeader(t *testing.T) {
	for _, bad := range []string{"", "short", "has spaces in it", "<script>alert(1)</script>"} {
		var seen string
		handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestIDFromContext(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(requestIDHeader, bad)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.NotEqual(t, bad, seen)
		assert.Len(t, seen, 36, bad)
	}
}
