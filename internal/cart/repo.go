package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
)

// Repository exposes persistence operations for carts.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a cart without its items.
func (r *Repository) Create(ctx context.Context, cart *models.Cart) error {
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	if cart.Status == "" {
		cart.Status = enums.CartStatusActive
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(cart).Error
}

// FindActiveForOwner loads the newest unexpired active cart for a user or guest.
func (r *Repository) FindActiveForOwner(ctx context.Context, userID *uuid.UUID, guestToken *string, now time.Time) (*models.Cart, error) {
	q := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("status = ? AND expires_at > ?", enums.CartStatusActive, now)
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	} else {
		q = q.Where("guest_session_token = ?", *guestToken)
	}

	var cart models.Cart
	if err := q.Order("created_at DESC").First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindByID returns a cart with its items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// LockByID loads the cart row FOR UPDATE. Items are not loaded.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// UpdateStatus moves the cart between statuses and reports whether it was in from.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.CartStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// HasOpenOrder reports whether an order placed from the cart is awaiting
// payment or already confirmed.
func (r *Repository) HasOpenOrder(ctx context.Context, cartID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("cart_id = ? AND status IN ?", cartID, []enums.OrderStatus{enums.OrderStatusPendingPayment, enums.OrderStatusConfirmed}).
		Count(&n).Error
	return n > 0, err
}

// ExpireStale marks active carts past their expiry as expired.
func (r *Repository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("status = ? AND expires_at <= ?", enums.CartStatusActive, now).
		Updates(map[string]any{"status": enums.CartStatusExpired, "updated_at": now})
	return res.RowsAffected, res.Error
}
