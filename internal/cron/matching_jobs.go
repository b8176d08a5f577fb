package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/berryevents69/Berry-Events-sub000/internal/jobqueue"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
	"github.com/berryevents69/Berry-Events-sub000/pkg/metrics"
)

type sweeper interface {
	Sweep(ctx context.Context) (jobqueue.SweepResult, error)
}

type queueExpirer interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

// NewAssignmentSweepJob runs one matching pass per cycle.
func NewAssignmentSweepJob(logg *logger.Logger, processor sweeper) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if processor == nil {
		return nil, fmt.Errorf("processor required")
	}
	return &assignmentSweepJob{logg: logg, processor: processor}, nil
}

type assignmentSweepJob struct {
	logg      *logger.Logger
	processor sweeper
}

func (j *assignmentSweepJob) Name() string { return "assignment-sweep" }

func (j *assignmentSweepJob) Run(ctx context.Context) error {
	result, err := j.processor.Sweep(ctx)
	if result.Considered > 0 {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"considered": result.Considered,
			"assigned":   result.Assigned,
			"unmatched":  result.Unmatched,
			"failed":     result.Failed,
		})
		j.logg.Info(logCtx, "assignment sweep complete")
	}
	if err != nil {
		return fmt.Errorf("assignment sweep: %w", err)
	}
	return nil
}

// NewQueueExpiryJob closes queue entries whose matching window has lapsed.
func NewQueueExpiryJob(logg *logger.Logger, processor queueExpirer) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if processor == nil {
		return nil, fmt.Errorf("processor required")
	}
	return &queueExpiryJob{logg: logg, processor: processor}, nil
}

type queueExpiryJob struct {
	logg      *logger.Logger
	processor queueExpirer
}

func (j *queueExpiryJob) Name() string { return "queue-expiry" }

func (j *queueExpiryJob) Run(ctx context.Context) error {
	if _, err := j.processor.ExpireOverdue(ctx); err != nil {
		return fmt.Errorf("expire queue entries: %w", err)
	}
	return nil
}

// MatchingParams wire the matcher schedule.
type MatchingParams struct {
	Logger    *logger.Logger
	Processor interface {
		sweeper
		queueExpirer
	}
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// NewMatchingService runs expiry and then assignment on every tick.
func NewMatchingService(params MatchingParams) (*Service, error) {
	if params.Processor == nil {
		return nil, fmt.Errorf("processor required")
	}
	expiry, err := NewQueueExpiryJob(params.Logger, params.Processor)
	if err != nil {
		return nil, err
	}
	sweep, err := NewAssignmentSweepJob(params.Logger, params.Processor)
	if err != nil {
		return nil, err
	}
	return NewService(ServiceParams{
		Name:     "matcher",
		Logger:   params.Logger,
		Registry: NewRegistry(expiry, sweep),
		Lock:     params.Lock,
		Metrics:  params.Metrics,
		Interval: params.Interval,
	})
}
