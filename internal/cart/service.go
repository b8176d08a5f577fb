package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/berryevents69/Berry-Events-sub000/pkg/auth"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
)

const (
	DefaultMaxItems = 3
	DefaultTTL      = 14 * 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gateCodeStore interface {
	StoreTx(ctx context.Context, tx *gorm.DB, referenceID uuid.UUID, plaintext, createdBy string) (*models.GateCode, error)
	RemoveTx(ctx context.Context, tx *gorm.DB, referenceID uuid.UUID) error
}

// Service exposes cart operations for users and guest sessions.
type Service interface {
	GetOrCreateActive(ctx context.Context, identity auth.Identity) (*models.Cart, error)
	Get(ctx context.Context, identity auth.Identity, cartID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, identity auth.Identity, input AddItemInput) (*models.CartItem, error)
	RemoveItem(ctx context.Context, identity auth.Identity, itemID uuid.UUID) error
	AttachGateCode(ctx context.Context, identity auth.Identity, itemID uuid.UUID, plaintext string) error
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// AddItemInput is a priced service line.
type AddItemInput struct {
	ServiceID      uuid.UUID
	ServiceType    string
	Category       string
	ServiceDetails map[string]any
	ScheduledFor   *time.Time
	BasePrice      decimal.Decimal
	AddOnsPrice    decimal.Decimal
	Tip            *decimal.Decimal
}

type ServiceParams struct {
	Repo      CartRepository
	Tx        txRunner
	GateCodes gateCodeStore
	MaxItems  int
	TTL       time.Duration
	Now       func() time.Time
}

type service struct {
	repo      CartRepository
	tx        txRunner
	gateCodes gateCodeStore
	maxItems  int
	ttl       time.Duration
	now       func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.GateCodes == nil {
		return nil, fmt.Errorf("gate code store required")
	}
	svc := &service{
		repo:      params.Repo,
		tx:        params.Tx,
		gateCodes: params.GateCodes,
		maxItems:  params.MaxItems,
		ttl:       params.TTL,
		now:       params.Now,
	}
	if svc.maxItems <= 0 {
		svc.maxItems = DefaultMaxItems
	}
	if svc.ttl <= 0 {
		svc.ttl = DefaultTTL
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

func (s *service) GetOrCreateActive(ctx context.Context, identity auth.Identity) (*models.Cart, error) {
	if !identity.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of user id or guest session is required")
	}
	var cart *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		cart, err = s.activeCart(ctx, s.repo.WithTx(tx), identity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) activeCart(ctx context.Context, repo CartRepository, identity auth.Identity) (*models.Cart, error) {
	now := s.now().UTC()
	var guest *string
	if identity.UserID == nil {
		token := identity.GuestToken
		guest = &token
	}

	cart, err := repo.FindActiveForOwner(ctx, identity.UserID, guest, now)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load active cart")
	}

	cart = &models.Cart{
		ID:                uuid.New(),
		UserID:            identity.UserID,
		GuestSessionToken: guest,
		Status:            enums.CartStatusActive,
		ExpiresAt:         now.Add(s.ttl),
		Items:             []models.CartItem{},
	}
	if err := repo.Create(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
	}
	return cart, nil
}

// Get returns a cart owned by identity. Carts owned by someone else are
// reported as missing.
func (s *service) Get(ctx context.Context, identity auth.Identity, cartID uuid.UUID) (*models.Cart, error) {
	if !identity.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of user id or guest session is required")
	}
	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if !identity.Owns(cart.UserID, cart.GuestSessionToken) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	return cart, nil
}

// AddItem appends a line to the caller's active cart. The cart row is locked
// while the item count is checked so concurrent adds cannot exceed the cap.
// RemoveItem and AttachGateCode take the same lock.
func (s *service) AddItem(ctx context.Context, identity auth.Identity, input AddItemInput) (*models.CartItem, error) {
	if !identity.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of user id or guest session is required")
	}
	item, err := s.buildItem(input)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.activeCart(ctx, repo, identity)
		if err != nil {
			return err
		}
		if err := lockForEdit(ctx, repo, cart.ID); err != nil {
			return err
		}
		count, err := repo.CountItems(ctx, cart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count cart items")
		}
		if count >= int64(s.maxItems) {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("cart cannot hold more than %d items", s.maxItems)).
				WithDetails(map[string]any{"maxItems": s.maxItems})
		}
		item.CartID = cart.ID
		if err := repo.AddItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) buildItem(input AddItemInput) (*models.CartItem, error) {
	serviceType := strings.TrimSpace(input.ServiceType)
	category := strings.ToLower(strings.TrimSpace(input.Category))
	switch {
	case input.ServiceID == uuid.Nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service id is required")
	case serviceType == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service type is required")
	case category == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	case !input.BasePrice.IsPositive():
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price must be positive")
	case input.AddOnsPrice.IsNegative():
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "add-ons price must not be negative")
	case input.Tip != nil && input.Tip.IsNegative():
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tip must not be negative")
	}

	base := input.BasePrice.Round(2)
	addOns := input.AddOnsPrice.Round(2)
	item := &models.CartItem{
		ID:             uuid.New(),
		ServiceID:      input.ServiceID,
		ServiceType:    serviceType,
		Category:       category,
		ServiceDetails: input.ServiceDetails,
		ScheduledFor:   input.ScheduledFor,
		BasePrice:      base,
		AddOnsPrice:    addOns,
		Subtotal:       base.Add(addOns),
	}
	if input.Tip != nil {
		tip := input.Tip.Round(2)
		item.Tip = &tip
	}
	return item, nil
}

// RemoveItem deletes a line and soft-deletes its gate code in one transaction.
func (s *service) RemoveItem(ctx context.Context, identity auth.Identity, itemID uuid.UUID) error {
	if !identity.Valid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "exactly one of user id or guest session is required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.activeCart(ctx, repo, identity)
		if err != nil {
			return err
		}
		if err := lockForEdit(ctx, repo, cart.ID); err != nil {
			return err
		}
		deleted, err := repo.DeleteItem(ctx, cart.ID, itemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
		}
		if deleted == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return s.gateCodes.RemoveTx(ctx, tx, itemID)
	})
}

func (s *service) AttachGateCode(ctx context.Context, identity auth.Identity, itemID uuid.UUID, plaintext string) error {
	if !identity.Valid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "exactly one of user id or guest session is required")
	}
	if strings.TrimSpace(plaintext) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "gate code is required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.activeCart(ctx, repo, identity)
		if err != nil {
			return err
		}
		if err := lockForEdit(ctx, repo, cart.ID); err != nil {
			return err
		}
		if _, err := repo.FindItem(ctx, cart.ID, itemID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
		}
		_, err = s.gateCodes.StoreTx(ctx, tx, itemID, plaintext, identity.Subject())
		return err
	})
}

// lockForEdit locks the cart row and refuses changes while an order placed
// from the cart is awaiting payment or confirmed.
func lockForEdit(ctx context.Context, repo CartRepository, cartID uuid.UUID) error {
	if _, err := repo.LockByID(ctx, cartID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock cart")
	}
	open, err := repo.HasOpenOrder(ctx, cartID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check cart orders")
	}
	if open {
		return pkgerrors.New(pkgerrors.CodeConflict, "cart is locked by an order awaiting payment").
			WithDetails(map[string]any{"cartId": cartID.String()})
	}
	return nil
}

func (s *service) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.ExpireStale(ctx, now.UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "expire carts")
	}
	return n, nil
}
