package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
)

type cartExpirer interface {
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// NewCartExpiryJob marks active carts past their expiry as expired.
func NewCartExpiryJob(logg *logger.Logger, carts cartExpirer) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	return &cartExpiryJob{logg: logg, carts: carts, now: time.Now}, nil
}

type cartExpiryJob struct {
	logg  *logger.Logger
	carts cartExpirer
	now   func() time.Time
}

func (j *cartExpiryJob) Name() string { return "cart-expiry" }

func (j *cartExpiryJob) Run(ctx context.Context) error {
	n, err := j.carts.ExpireStale(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("expire carts: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "carts_expired", n), "cart expiry complete")
	return nil
}
