package jobqueue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
)

var activeBookingStatuses = []enums.BookingStatus{enums.BookingStatusConfirmed, enums.BookingStatusInProgress}

// Repository is the job queue store.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Enqueue(ctx context.Context, entry *models.JobQueueEntry) error
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.JobQueueEntry, error)
	ListPending(ctx context.Context, now time.Time, limit int) ([]models.JobQueueEntry, error)
	MarkAssigned(ctx context.Context, id, providerID uuid.UUID, at time.Time) (bool, error)
	ExpireOverdue(ctx context.Context, now time.Time, limit int) ([]models.JobQueueEntry, error)
	FindBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	AssignBooking(ctx context.Context, bookingID, providerID uuid.UUID, at time.Time) (bool, error)
	LockProviderLocation(ctx context.Context, providerID uuid.UUID) (*models.ProviderLocation, error)
	HasActiveBooking(ctx context.Context, providerID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the queue store to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Enqueue(ctx context.Context, entry *models.JobQueueEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.JobQueueEntry, error) {
	var entry models.JobQueueEntry
	if err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListPending returns live pending entries, highest priority first and oldest
// first within a priority.
func (r *repository) ListPending(ctx context.Context, now time.Time, limit int) ([]models.JobQueueEntry, error) {
	var rows []models.JobQueueEntry
	q := r.db.WithContext(ctx).
		Where("status = ? AND expires_at > ?", enums.JobStatusPending, now).
		Order("priority DESC").
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkAssigned flips a pending, unexpired entry to assigned. It reports false
// when the entry was already closed.
func (r *repository) MarkAssigned(ctx context.Context, id, providerID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.JobQueueEntry{}).
		Where("id = ? AND status = ? AND expires_at > ?", id, enums.JobStatusPending, at).
		Updates(map[string]any{
			"status":               enums.JobStatusAssigned,
			"assigned_provider_id": providerID,
			"assigned_at":          at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ExpireOverdue moves pending entries whose expiry has passed to expired and
// returns the rows it transitioned.
func (r *repository) ExpireOverdue(ctx context.Context, now time.Time, limit int) ([]models.JobQueueEntry, error) {
	var rows []models.JobQueueEntry
	q := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? AND expires_at <= ?", enums.JobStatusPending, now).
		Order("expires_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rows, nil
	}

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	if err := r.db.WithContext(ctx).
		Model(&models.JobQueueEntry{}).
		Where("id IN ? AND status = ?", ids, enums.JobStatusPending).
		Update("status", enums.JobStatusExpired).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Status = enums.JobStatusExpired
	}
	return rows, nil
}

func (r *repository) FindBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Where("id = ?", bookingID).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// AssignBooking sets the provider exactly once; false means a provider was
// already set.
func (r *repository) AssignBooking(ctx context.Context, bookingID, providerID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND provider_id IS NULL", bookingID).
		Updates(map[string]any{
			"provider_id": providerID,
			"status":      enums.BookingStatusConfirmed,
			"updated_at":  at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// LockProviderLocation reads the provider's location row with SELECT ... FOR UPDATE.
func (r *repository) LockProviderLocation(ctx context.Context, providerID uuid.UUID) (*models.ProviderLocation, error) {
	var loc models.ProviderLocation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider_id = ?", providerID).
		First(&loc).Error
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// HasActiveBooking reports whether the provider holds a confirmed or
// in-progress booking.
func (r *repository) HasActiveBooking(ctx context.Context, providerID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("provider_id = ? AND status IN ?", providerID, activeBookingStatuses).
		Count(&n).Error
	return n > 0, err
}
