package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	Create(ctx context.Context, cart *models.Cart) error
	FindActiveForOwner(ctx context.Context, userID *uuid.UUID, guestToken *string, now time.Time) (*models.Cart, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.CartStatus) (bool, error)
	HasOpenOrder(ctx context.Context, cartID uuid.UUID) (bool, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
	CartItemRepository
}

// CartItemRepository covers line item persistence.
type CartItemRepository interface {
	CountItems(ctx context.Context, cartID uuid.UUID) (int64, error)
	ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	AddItem(ctx context.Context, item *models.CartItem) error
	FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (int64, error)
	DeleteItems(ctx context.Context, cartID uuid.UUID) (int64, error)
}
