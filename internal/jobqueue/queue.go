package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/berryevents69/Berry-Events-sub000/internal/geomatch"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
	"github.com/berryevents69/Berry-Events-sub000/pkg/outbox"
	"github.com/berryevents69/Berry-Events-sub000/pkg/outbox/payloads"
)

// CommitOutcome is the result of one assignment attempt.
type CommitOutcome int

const (
	// CommitAssigned means the entry, the booking and the outbox event were written.
	CommitAssigned CommitOutcome = iota
	// CommitProviderUnavailable means the provider went offline or already holds
	// an active booking; try the next candidate.
	CommitProviderUnavailable
	// CommitEntryClosed means the entry or booking was settled elsewhere; stop trying.
	CommitEntryClosed
)

func (o CommitOutcome) String() string {
	switch o {
	case CommitAssigned:
		return "assigned"
	case CommitProviderUnavailable:
		return "provider_unavailable"
	case CommitEntryClosed:
		return "entry_closed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Assignment pairs a queue entry with the provider chosen for it.
type Assignment struct {
	Entry    models.JobQueueEntry
	Provider geomatch.RankedProvider
	At       time.Time
}

// WorkQueue is the backend the processor drains. The database implementation
// polls job_queue; other backends only need to honour the same ordering and
// the at-most-once assignment guarantee.
type WorkQueue interface {
	Enqueue(ctx context.Context, entry *models.JobQueueEntry) error
	Pending(ctx context.Context, now time.Time, limit int) ([]models.JobQueueEntry, error)
	Commit(ctx context.Context, a Assignment) (CommitOutcome, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

var errBookingAlreadyAssigned = errors.New("booking already has a provider")

// DBQueue is the job_queue-backed WorkQueue.
type DBQueue struct {
	repo        Repository
	tx          txRunner
	outbox      outboxPublisher
	logg        *logger.Logger
	expireBatch int
}

// NewDBQueue builds the database work queue.
func NewDBQueue(repo Repository, tx txRunner, publisher outboxPublisher, logg *logger.Logger, expireBatch int) (*DBQueue, error) {
	if repo == nil {
		return nil, fmt.Errorf("queue repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &DBQueue{repo: repo, tx: tx, outbox: publisher, logg: logg, expireBatch: expireBatch}, nil
}

func (q *DBQueue) Enqueue(ctx context.Context, entry *models.JobQueueEntry) error {
	return q.repo.Enqueue(ctx, entry)
}

func (q *DBQueue) Pending(ctx context.Context, now time.Time, limit int) ([]models.JobQueueEntry, error) {
	return q.repo.ListPending(ctx, now, limit)
}

// Commit locks the provider's location row, re-checks that the provider is
// online and free, and applies the conditional queue and booking updates with
// the outbox event in a single transaction. A provider holds at most one
// confirmed or in-progress booking; the row lock makes that check and the
// assignment atomic across concurrent sweeps.
func (q *DBQueue) Commit(ctx context.Context, a Assignment) (CommitOutcome, error) {
	outcome := CommitAssigned
	err := q.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := q.repo.WithTx(tx)

		loc, err := repo.LockProviderLocation(ctx, a.Provider.ProviderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome = CommitProviderUnavailable
				return nil
			}
			return fmt.Errorf("lock provider location: %w", err)
		}
		if !loc.IsOnline {
			outcome = CommitProviderUnavailable
			return nil
		}
		busy, err := repo.HasActiveBooking(ctx, a.Provider.ProviderID)
		if err != nil {
			return fmt.Errorf("check provider bookings: %w", err)
		}
		if busy {
			outcome = CommitProviderUnavailable
			return nil
		}

		ok, err := repo.MarkAssigned(ctx, a.Entry.ID, a.Provider.ProviderID, a.At)
		if err != nil {
			return fmt.Errorf("mark entry assigned: %w", err)
		}
		if !ok {
			outcome = CommitEntryClosed
			return nil
		}

		ok, err = repo.AssignBooking(ctx, a.Entry.BookingID, a.Provider.ProviderID, a.At)
		if err != nil {
			return fmt.Errorf("assign booking: %w", err)
		}
		if !ok {
			// Roll the queue update back with the rest of the transaction.
			return errBookingAlreadyAssigned
		}

		return q.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProviderAssigned,
			AggregateType: enums.AggregateBooking,
			AggregateID:   a.Entry.BookingID,
			Actor:         outbox.SystemActor("matcher"),
			Data: payloads.ProviderAssignedEvent{
				BookingID:  a.Entry.BookingID,
				JobID:      a.Entry.ID,
				ProviderID: a.Provider.ProviderID,
				DistanceKm: a.Provider.DistanceKm,
				Score:      a.Provider.Score,
				AssignedAt: a.At,
			},
			OccurredAt: a.At,
		})
	})
	if errors.Is(err, errBookingAlreadyAssigned) {
		logCtx := q.logg.WithBookingID(ctx, a.Entry.BookingID.String())
		q.logg.Warn(logCtx, "queue entry pending for a booking that already has a provider")
		return CommitEntryClosed, nil
	}
	if err != nil {
		return CommitAssigned, err
	}
	return outcome, nil
}

// ExpireOverdue closes lapsed entries and records a job_expired event for each.
func (q *DBQueue) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	var expired int64
	err := q.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := q.repo.WithTx(tx).ExpireOverdue(ctx, now, q.expireBatch)
		if err != nil {
			return fmt.Errorf("expire overdue entries: %w", err)
		}
		for _, row := range rows {
			event := outbox.DomainEvent{
				EventType:     enums.EventJobExpired,
				AggregateType: enums.AggregateBooking,
				AggregateID:   row.BookingID,
				Actor:         outbox.SystemActor("matcher"),
				Data: payloads.JobExpiredEvent{
					BookingID: row.BookingID,
					JobID:     row.ID,
					ExpiredAt: now,
				},
				OccurredAt: now,
			}
			if err := q.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
				return err
			}
		}
		expired = int64(len(rows))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return expired, nil
}
