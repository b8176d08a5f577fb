package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/berryevents69/Berry-Events-sub000/pkg/config"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
	"github.com/berryevents69/Berry-Events-sub000/pkg/outbox/registry"
)

const (
	fallbackBatch       = 50
	fallbackPoll        = 500 * time.Millisecond
	fallbackMaxAttempts = 10
	fallbackAwait       = 15 * time.Second
	maxBackoff          = 10 * time.Second
	jitterWindow        = 250 * time.Millisecond
)

type txDB interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type topicSource interface {
	Ping(context.Context) error
	Publisher(topic string) *gcppubsub.Publisher
}

type outboxStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// RelayParams wire the outbox relay. PublisherFor defaults to the cached
// topic publishers of Topics.
type RelayParams struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           txDB
	Topics       topicSource
	Store        outboxStore
	Resolver     resolver
	PublisherFor func(topic string) publisher
}

// Relay moves committed outbox rows onto the booking, order and wallet topics.
type Relay struct {
	logg         *logger.Logger
	db           txDB
	topics       topicSource
	store        outboxStore
	resolver     resolver
	publisherFor func(topic string) publisher
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
	awaitTimeout time.Duration
}

func NewRelay(params RelayParams) (*Relay, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Topics == nil:
		return nil, errors.New("pubsub client is required")
	case params.Store == nil:
		return nil, errors.New("outbox store is required")
	case params.Resolver == nil:
		return nil, errors.New("event resolver is required")
	}

	r := &Relay{
		logg:         params.Logger,
		db:           params.DB,
		topics:       params.Topics,
		store:        params.Store,
		resolver:     params.Resolver,
		publisherFor: params.PublisherFor,
		batchSize:    positiveOr(params.Config.Outbox.BatchSize, fallbackBatch),
		maxAttempts:  positiveOr(params.Config.Outbox.MaxAttempts, fallbackMaxAttempts),
		pollInterval: fallbackPoll,
		awaitTimeout: fallbackAwait,
	}
	if ms := params.Config.Outbox.PollIntervalMS; ms > 0 {
		r.pollInterval = time.Duration(ms) * time.Millisecond
	}
	if params.Config.PubSub.PublishTimeout > 0 {
		r.awaitTimeout = params.Config.PubSub.PublishTimeout
	}
	if r.publisherFor == nil {
		r.publisherFor = func(topic string) publisher {
			p := params.Topics.Publisher(topic)
			if p == nil {
				return nil
			}
			return topicPublisher{p}
		}
	}
	return r, nil
}

// Run drains the outbox until ctx is cancelled. A full batch is followed
// straight away by the next one; an error doubles the pause up to maxBackoff.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := r.topics.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping failed: %w", err)
	}

	wait := backoff{base: r.pollInterval, max: maxBackoff}
	for {
		n, err := r.drain(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		pause := r.pollInterval
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox drain failed", err)
			pause = wait.fail()
		case n >= r.batchSize:
			wait.reset()
			continue
		default:
			wait.reset()
		}
		if err := sleepCtx(ctx, withJitter(pause)); err != nil {
			return err
		}
	}
}

type verdict int

const (
	verdictPublished verdict = iota
	verdictRetry
	verdictTerminal
)

// delivery tracks one row through publish and bookkeeping.
type delivery struct {
	event   models.OutboxEvent
	topic   string
	pending publishResult
	verdict verdict
	reason  string
	err     error
}

// drain locks one batch, publishes every row before waiting on any result,
// then records the outcomes in the same transaction. It returns the number of
// rows locked.
func (r *Relay) drain(ctx context.Context) (int, error) {
	locked := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := r.store.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}
		locked = len(events)
		if locked == 0 {
			return nil
		}

		batch := make([]delivery, len(events))
		for i, event := range events {
			batch[i] = r.send(ctx, event)
		}

		awaitCtx, cancel := context.WithTimeout(ctx, r.awaitTimeout)
		defer cancel()
		for i := range batch {
			r.await(awaitCtx, &batch[i])
		}

		for _, d := range batch {
			if err := r.record(ctx, tx, d); err != nil {
				return err
			}
		}
		return nil
	})
	return locked, err
}

func (r *Relay) send(ctx context.Context, event models.OutboxEvent) delivery {
	d := delivery{event: event}
	resolved, err := r.resolver.Resolve(event)
	if err != nil {
		return d.terminal("unresolvable", err)
	}
	d.topic = resolved.Descriptor.Topic

	pub := r.publisherFor(d.topic)
	if pub == nil {
		return d.terminal("no_publisher", fmt.Errorf("no publisher for topic %q", d.topic))
	}
	d.pending = pub.Publish(ctx, &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	})
	if d.pending == nil {
		return d.terminal("no_publisher", fmt.Errorf("publisher for %q returned no result", d.topic))
	}
	return d
}

func (r *Relay) await(ctx context.Context, d *delivery) {
	if d.pending == nil {
		return
	}
	_, err := d.pending.Get(ctx)
	switch {
	case err == nil:
		d.verdict = verdictPublished
	case permanentPublishError(err):
		*d = d.terminal("rejected", err)
	case d.event.AttemptCount+1 >= r.maxAttempts:
		*d = d.terminal("max_attempts", fmt.Errorf("max publish attempts reached: %w", err))
	default:
		d.verdict, d.err = verdictRetry, err
	}
}

func (r *Relay) record(ctx context.Context, tx *gorm.DB, d delivery) error {
	logCtx := r.logg.WithFields(ctx, map[string]any{
		"outbox_id":     d.event.ID.String(),
		"event_type":    d.event.EventType,
		"aggregate_id":  d.event.AggregateID.String(),
		"attempt_count": d.event.AttemptCount,
		"topic":         d.topic,
	})
	if d.err != nil {
		logCtx = r.logg.WithField(logCtx, "error", d.err.Error())
	}

	var err error
	switch d.verdict {
	case verdictPublished:
		err = r.store.MarkPublishedTx(tx, d.event.ID)
		r.logg.Info(logCtx, "outbox event published")
	case verdictRetry:
		err = r.store.MarkFailedTx(tx, d.event.ID, d.err)
		r.logg.Warn(logCtx, "outbox publish failed, will retry")
	case verdictTerminal:
		err = r.store.MarkTerminalTx(tx, d.event.ID, d.err, r.maxAttempts)
		r.logg.Warn(r.logg.WithField(logCtx, "terminal_reason", d.reason), "outbox event abandoned")
	}
	if err != nil {
		return fmt.Errorf("record outbox %s: %w", d.event.ID, err)
	}
	return nil
}

func (d delivery) terminal(reason string, err error) delivery {
	d.verdict, d.reason, d.err = verdictTerminal, reason, err
	d.pending = nil
	return d
}

// permanentPublishError reports errors Pub/Sub will keep returning for the
// same message, such as an oversized payload.
func permanentPublishError(err error) bool {
	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		return true
	}
	switch status.Code(err) {
	case codes.InvalidArgument, codes.FailedPrecondition:
		return true
	default:
		return false
	}
}

type backoff struct {
	base, max, current time.Duration
}

func (b *backoff) fail() time.Duration {
	if b.current < b.base {
		b.current = b.base
	} else {
		b.current *= 2
	}
	b.current = min(b.current, b.max)
	return b.current
}

func (b *backoff) reset() { b.current = 0 }

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

type topicPublisher struct {
	p *gcppubsub.Publisher
}

func (t topicPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return t.p.Publish(ctx, msg)
}
