package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/berryevents69/Berry-Events-sub000/internal/jobqueue"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
	"github.com/berryevents69/Berry-Events-sub000/pkg/geo"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type queueAssigner interface {
	AssignTx(ctx context.Context, tx *gorm.DB, booking *models.Booking, opts jobqueue.AssignOptions) (*models.JobQueueEntry, error)
	Status(ctx context.Context, bookingID uuid.UUID) (*models.JobQueueEntry, error)
}

// CreateBookingInput is the customer's booking request.
type CreateBookingInput struct {
	ServiceType  string
	Location     geo.Point
	ScheduledFor *time.Time
	Priority     int
	MaxRadiusKm  float64
}

// Service creates bookings and exposes their matching state.
type Service interface {
	Create(ctx context.Context, customerID uuid.UUID, input CreateBookingInput) (*models.Booking, *models.JobQueueEntry, error)
	Assignment(ctx context.Context, customerID, bookingID uuid.UUID) (*models.JobQueueEntry, error)
}

type service struct {
	repo  Repository
	tx    txRunner
	queue queueAssigner
}

// NewService wires booking creation to the matching queue.
func NewService(repo Repository, tx txRunner, queue queueAssigner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("booking repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if queue == nil {
		return nil, fmt.Errorf("queue assigner required")
	}
	return &service{repo: repo, tx: tx, queue: queue}, nil
}

// Create stores the booking and enqueues it for matching in one transaction.
func (s *service) Create(ctx context.Context, customerID uuid.UUID, input CreateBookingInput) (*models.Booking, *models.JobQueueEntry, error) {
	if customerID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	serviceType := strings.TrimSpace(input.ServiceType)
	if serviceType == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "service type is required")
	}
	if !input.Location.Valid() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid location")
	}

	booking := &models.Booking{
		ID:           uuid.New(),
		CustomerID:   customerID,
		ServiceType:  serviceType,
		Latitude:     input.Location.Latitude,
		Longitude:    input.Location.Longitude,
		Status:       enums.BookingStatusPending,
		ScheduledFor: input.ScheduledFor,
	}

	var entry *models.JobQueueEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, booking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create booking")
		}
		var err error
		entry, err = s.queue.AssignTx(ctx, tx, booking, jobqueue.AssignOptions{
			Priority:    input.Priority,
			MaxRadiusKm: input.MaxRadiusKm,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return booking, entry, nil
}

func (s *service) Assignment(ctx context.Context, customerID, bookingID uuid.UUID) (*models.JobQueueEntry, error) {
	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load booking")
	}
	if booking.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	return s.queue.Status(ctx, bookingID)
}
