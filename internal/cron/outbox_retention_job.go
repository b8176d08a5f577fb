package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
)

const (
	defaultOutboxRetentionDays = 30
	defaultOutboxMinAttempts   = 10
	outboxDeleteBatch          = 500
	outboxMaxBatchesPerRun     = 20
)

// OutboxRetentionJobParams configure pruning of settled outbox rows.
type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxRetentionRepo
	// Retention is in days.
	Retention int
	// MinAttempts marks an unpublished row as abandoned. It matches the
	// publisher's attempt ceiling.
	MinAttempts int
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount, limit int) (int64, error)
}

// NewOutboxRetentionJob deletes published and abandoned outbox rows older
// than the retention window, a bounded batch per transaction.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultOutboxRetentionDays
	}
	minAttempts := params.MinAttempts
	if minAttempts <= 0 {
		minAttempts = defaultOutboxMinAttempts
	}
	return &outboxRetentionJob{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		window:      time.Duration(retention) * 24 * time.Hour,
		minAttempts: minAttempts,
		batch:       outboxDeleteBatch,
		maxBatches:  outboxMaxBatchesPerRun,
		now:         time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	db          txRunner
	repo        outboxRetentionRepo
	window      time.Duration
	minAttempts int
	batch       int
	maxBatches  int
	now         func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run stops early on a short batch. Whatever the batch cap leaves behind is
// picked up on the next tick.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.window)
	var total int64
	batches := 0
	for batches < j.maxBatches {
		if err := ctx.Err(); err != nil {
			return err
		}
		var deleted int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			n, err := j.repo.DeletePublishedBefore(ctx, tx, cutoff, j.minAttempts, j.batch)
			deleted = n
			return err
		})
		if err != nil {
			return fmt.Errorf("outbox retention batch %d: %w", batches+1, err)
		}
		batches++
		total += deleted
		if deleted < int64(j.batch) {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"min_attempts": j.minAttempts,
		"batches":      batches,
		"rows_deleted": total,
	})
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}
