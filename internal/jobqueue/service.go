package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/berryevents69/Berry-Events-sub000/internal/geomatch"
	dbpkg "github.com/berryevents69/Berry-Events-sub000/pkg/db"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
	"github.com/berryevents69/Berry-Events-sub000/pkg/outbox"
	"github.com/berryevents69/Berry-Events-sub000/pkg/outbox/payloads"
)

const (
	DefaultPriority = 3
	MinPriority     = 1
	MaxPriority     = 5

	DefaultQueueTTL = 30 * time.Minute
)

// AssignOptions tune a queue entry. Zero values take the defaults.
type AssignOptions struct {
	Priority    int
	MaxRadiusKm float64
}

// Service enqueues bookings for matching and reports their queue state.
type Service interface {
	Assign(ctx context.Context, bookingID uuid.UUID, opts AssignOptions) (*models.JobQueueEntry, error)
	AssignTx(ctx context.Context, tx *gorm.DB, booking *models.Booking, opts AssignOptions) (*models.JobQueueEntry, error)
	Status(ctx context.Context, bookingID uuid.UUID) (*models.JobQueueEntry, error)
}

// ServiceParams configure the queue service.
type ServiceParams struct {
	Repo            Repository
	Tx              txRunner
	Outbox          outboxPublisher
	QueueTTL        time.Duration
	DefaultRadiusKm float64
	Now             func() time.Time
}

type service struct {
	repo          Repository
	tx            txRunner
	outbox        outboxPublisher
	ttl           time.Duration
	defaultRadius float64
	now           func() time.Time
}

// NewService builds the queue service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("queue repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	ttl := params.QueueTTL
	if ttl <= 0 {
		ttl = DefaultQueueTTL
	}
	radius := params.DefaultRadiusKm
	if radius <= 0 {
		radius = geomatch.DefaultRadiusKm
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:          params.Repo,
		tx:            params.Tx,
		outbox:        params.Outbox,
		ttl:           ttl,
		defaultRadius: radius,
		now:           now,
	}, nil
}

// Assign enqueues an existing booking. A second call for the same booking
// returns the entry created by the first.
func (s *service) Assign(ctx context.Context, bookingID uuid.UUID, opts AssignOptions) (*models.JobQueueEntry, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id is required")
	}

	var entry *models.JobQueueEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		booking, err := s.repo.WithTx(tx).FindBooking(ctx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load booking")
		}
		entry, err = s.AssignTx(ctx, tx, booking, opts)
		return err
	})
	if err != nil {
		// A concurrent Assign won the unique booking_id race.
		if dbpkg.IsUniqueViolation(err, "") {
			return s.Status(ctx, bookingID)
		}
		return nil, err
	}
	return entry, nil
}

// AssignTx enqueues the booking inside the caller's transaction.
func (s *service) AssignTx(ctx context.Context, tx *gorm.DB, booking *models.Booking, opts AssignOptions) (*models.JobQueueEntry, error) {
	if booking == nil || booking.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking is required")
	}
	repo := s.repo.WithTx(tx)

	existing, err := repo.FindByBookingID(ctx, booking.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load queue entry")
	}

	if booking.ProviderID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "booking already has a provider")
	}
	if booking.Status != enums.BookingStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only pending bookings can be queued").
			WithDetails(map[string]any{"status": booking.Status})
	}

	priority := opts.Priority
	if priority == 0 {
		priority = DefaultPriority
	}
	if priority < MinPriority || priority > MaxPriority {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "priority must be between 1 and 5")
	}
	radius := opts.MaxRadiusKm
	if radius <= 0 {
		radius = s.defaultRadius
	}

	now := s.now().UTC()
	entry := &models.JobQueueEntry{
		ID:                uuid.New(),
		BookingID:         booking.ID,
		ServiceType:       booking.ServiceType,
		CustomerLatitude:  booking.Latitude,
		CustomerLongitude: booking.Longitude,
		MaxRadiusKm:       radius,
		Priority:          priority,
		Status:            enums.JobStatusPending,
		CreatedAt:         now,
		ExpiresAt:         now.Add(s.ttl),
	}
	if err := repo.Enqueue(ctx, entry); err != nil {
		return nil, fmt.Errorf("enqueue booking: %w", err)
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventBookingQueued,
		AggregateType: enums.AggregateBooking,
		AggregateID:   booking.ID,
		Actor:         outbox.UserActor(booking.CustomerID),
		Data: payloads.BookingQueuedEvent{
			BookingID:   booking.ID,
			JobID:       entry.ID,
			ServiceType: entry.ServiceType,
			Priority:    entry.Priority,
			ExpiresAt:   entry.ExpiresAt,
		},
		OccurredAt: now,
	}
	if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) Status(ctx context.Context, bookingID uuid.UUID) (*models.JobQueueEntry, error) {
	entry, err := s.repo.FindByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking is not queued")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load queue entry")
	}
	return entry, nil
}
