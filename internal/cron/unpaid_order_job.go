package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
)

const (
	defaultUnpaidOrderTTL   = 30 * time.Minute
	defaultUnpaidOrderBatch = 200
)

type unpaidOrderExpirer interface {
	ExpireUnpaid(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// UnpaidOrderJobParams configure the unpaid order sweep.
type UnpaidOrderJobParams struct {
	Logger *logger.Logger
	Orders unpaidOrderExpirer
	TTL    time.Duration
	Batch  int
}

// NewUnpaidOrderJob cancels orders stuck awaiting payment, e.g. when the
// process died between creating a wallet order and debiting the wallet.
func NewUnpaidOrderJob(params UnpaidOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultUnpaidOrderTTL
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultUnpaidOrderBatch
	}
	return &unpaidOrderJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    ttl,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type unpaidOrderJob struct {
	logg   *logger.Logger
	orders unpaidOrderExpirer
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *unpaidOrderJob) Name() string { return "unpaid-order-expiry" }

func (j *unpaidOrderJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	n, err := j.orders.ExpireUnpaid(ctx, cutoff, j.batch)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":          cutoff,
		"orders_canceled": n,
	})
	j.logg.Info(logCtx, "unpaid order sweep complete")
	if err != nil {
		return fmt.Errorf("expire unpaid orders: %w", err)
	}
	return nil
}
