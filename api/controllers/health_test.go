package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/berryevents69/Berry-Events-sub000/pkg/config"
	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	resp := serve(HealthLive(cfg), newRequest(http.MethodGet, "/health/live", "", nil, nil))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "test", resp.Header().Get("X-Berry-Env"))
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	ok := serve(HealthReady(cfg, nil, stubPinger{}, stubPinger{}), newRequest(http.MethodGet, "/health/ready", "", nil, nil))
	assert.Equal(t, http.StatusOK, ok.Code)

	down := serve(HealthReady(cfg, nil, stubPinger{}, stubPinger{err: errors.New("dial tcp: refused")}), newRequest(http.MethodGet, "/health/ready", "", nil, nil))
	assert.Equal(t, http.StatusServiceUnavailable, down.Code)
	assert.Equal(t, string(pkgerrors.CodeDependency), decodeError(t, down).Code)
}
