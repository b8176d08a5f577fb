package jobqueue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/berryevents69/Berry-Events-sub000/internal/geomatch"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/geo"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
	"github.com/berryevents69/Berry-Events-sub000/pkg/metrics"
	"github.com/berryevents69/Berry-Events-sub000/pkg/realtime"
)

const defaultBatchSize = 100

// SweepResult summarises one pass over the pending queue.
type SweepResult struct {
	Considered int `json:"considered"`
	Assigned   int `json:"assigned"`
	Unmatched  int `json:"unmatched"`
	Failed     int `json:"failed"`
}

// ProcessorParams configure the matching processor.
type ProcessorParams struct {
	Queue       WorkQueue
	Matcher     geomatch.GeoMatcher
	Broadcaster realtime.Broadcaster
	Metrics     *metrics.MatchingMetrics
	Logger      *logger.Logger
	BatchSize   int
	Now         func() time.Time
}

// Processor assigns pending queue entries to the best available provider.
type Processor struct {
	queue     WorkQueue
	matcher   geomatch.GeoMatcher
	broadcast realtime.Broadcaster
	metrics   *metrics.MatchingMetrics
	logg      *logger.Logger
	batchSize int
	now       func() time.Time
}

func NewProcessor(params ProcessorParams) (*Processor, error) {
	if params.Queue == nil {
		return nil, fmt.Errorf("work queue required")
	}
	if params.Matcher == nil {
		return nil, fmt.Errorf("geo matcher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	broadcaster := params.Broadcaster
	if broadcaster == nil {
		broadcaster = realtime.Nop{}
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Processor{
		queue:     params.Queue,
		matcher:   params.Matcher,
		broadcast: broadcaster,
		metrics:   params.Metrics,
		logg:      params.Logger,
		batchSize: batch,
		now:       now,
	}, nil
}

// Sweep runs one matching pass. Entries are visited in queue order; an entry
// that fails is logged and counted, and the pass moves on. The returned error
// combines the per-entry failures.
func (p *Processor) Sweep(ctx context.Context) (SweepResult, error) {
	started := time.Now()
	defer func() { p.metrics.ObserveSweep(time.Since(started)) }()

	var result SweepResult
	entries, err := p.queue.Pending(ctx, p.now().UTC(), p.batchSize)
	if err != nil {
		return result, fmt.Errorf("list pending entries: %w", err)
	}

	var errs error
	for _, entry := range entries {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		result.Considered++

		assigned, err := p.processEntry(ctx, entry)
		switch {
		case err != nil:
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("booking %s: %w", entry.BookingID, err))
			logCtx := p.logg.WithBookingID(ctx, entry.BookingID.String())
			p.logg.Error(logCtx, "assignment failed", err)
		case assigned:
			result.Assigned++
		default:
			result.Unmatched++
		}
	}

	p.metrics.AddOutcome(metrics.OutcomeAssigned, result.Assigned)
	p.metrics.AddOutcome(metrics.OutcomeUnmatched, result.Unmatched)
	p.metrics.AddOutcome(metrics.OutcomeFailed, result.Failed)
	return result, errs
}

func (p *Processor) processEntry(ctx context.Context, entry models.JobQueueEntry) (bool, error) {
	location := geo.Point{Latitude: entry.CustomerLatitude, Longitude: entry.CustomerLongitude}
	ranked, err := p.matcher.FindNearbyProviders(ctx, location, entry.ServiceType, entry.MaxRadiusKm)
	if err != nil {
		return false, err
	}

	for _, candidate := range ranked {
		at := p.now().UTC()
		outcome, err := p.queue.Commit(ctx, Assignment{Entry: entry, Provider: candidate, At: at})
		if err != nil {
			return false, err
		}
		switch outcome {
		case CommitAssigned:
			p.metrics.ObserveAssignmentDistance(candidate.DistanceKm)
			p.announce(ctx, entry, candidate, at)
			return true, nil
		case CommitEntryClosed:
			return false, nil
		}
	}
	return false, nil
}

func (p *Processor) announce(ctx context.Context, entry models.JobQueueEntry, provider geomatch.RankedProvider, at time.Time) {
	logCtx := p.logg.WithFields(ctx, map[string]any{
		"booking_id":  entry.BookingID.String(),
		"provider_id": provider.ProviderID.String(),
		"distance_km": provider.DistanceKm,
	})
	p.logg.Info(logCtx, "provider assigned")

	topic := realtime.BookingTopic(entry.BookingID.String())
	p.broadcast.Broadcast(ctx, topic, realtime.Event{
		Type:  realtime.EventProviderAssigned,
		Topic: topic,
		Data: map[string]any{
			"bookingId":   entry.BookingID,
			"providerId":  provider.ProviderID,
			"displayName": provider.DisplayName,
			"distanceKm":  provider.DistanceKm,
		},
		OccurredAt: at,
	})
}

// ExpireOverdue closes pending entries whose window has lapsed.
func (p *Processor) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := p.queue.ExpireOverdue(ctx, p.now().UTC())
	if err != nil {
		return 0, err
	}
	p.metrics.AddExpired(n)
	if n > 0 {
		p.logg.Info(p.logg.WithField(ctx, "expired", n), "queue entries expired")
	}
	return n, nil
}
