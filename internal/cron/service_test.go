package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
	"github.com/berryevents69/Berry-Events-sub000/pkg/metrics"
)

type fakeLock struct {
	held     bool
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "queue-expiry"}
	bad := &testJob{name: "assignment-sweep", err: errors.New("boom")}
	reg := prometheus.NewRegistry()
	lock := &fakeLock{}
	svc, err := NewService(ServiceParams{
		Name:     "matcher",
		Logger:   testLogger(),
		Registry: NewRegistry(bad, ok),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	require.NoError(t, err)

	require.NoError(t, svc.RunOnce(t.Context()))
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, bad.runs)
	assert.Equal(t, 1, lock.releases)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["berry_cron_job_runs_total"])
	assert.True(t, names["berry_cron_job_last_success_timestamp_seconds"])
}

func TestRunOnceSurvivesPanickingJob(t *testing.T) {
	after := &testJob{name: "queue-expiry"}
	lock := &fakeLock{}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(JobFunc{JobName: "explodes", Fn: func(context.Context) error { panic("nil map") }}, after),
		Lock:     lock,
	})
	require.NoError(t, err)

	require.NoError(t, svc.RunOnce(t.Context()))
	assert.Equal(t, 1, after.runs)
	assert.Equal(t, 1, lock.releases)
}

func TestRunOnceCountsSkippedCycles(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc, err := NewService(ServiceParams{
		Name:    "cron-worker",
		Logger:  testLogger(),
		Lock:    &fakeLock{held: true},
		Metrics: metrics.NewCronJobMetrics(reg),
	})
	require.NoError(t, err)
	require.NoError(t, svc.RunOnce(t.Context()))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var skipped float64
	for _, mf := range mfs {
		if mf.GetName() == "berry_cron_cycles_skipped_total" {
			skipped = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, skipped)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "cart-expiry"}
	lock := &fakeLock{held: true}
	svc, err := NewService(ServiceParams{Logger: testLogger(), Registry: NewRegistry(job), Lock: lock})
	require.NoError(t, err)

	require.NoError(t, svc.RunOnce(t.Context()))
	assert.Zero(t, job.runs)
	assert.Zero(t, lock.releases)
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "unpaid-order-expiry"}
	svc, err := NewService(ServiceParams{Logger: testLogger(), Registry: NewRegistry(job), Lock: &fakeLock{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	err = svc.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewServiceRequiresLock(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: testLogger()})
	assert.Error(t, err)
}
