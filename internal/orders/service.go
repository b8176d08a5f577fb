package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/berryevents69/Berry-Events-sub000/internal/cart"
	"github.com/berryevents69/Berry-Events-sub000/internal/wallet"
	"github.com/berryevents69/Berry-Events-sub000/pkg/auth"
	dbpkg "github.com/berryevents69/Berry-Events-sub000/pkg/db"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
	"github.com/berryevents69/Berry-Events-sub000/pkg/outbox"
	"github.com/berryevents69/Berry-Events-sub000/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type gateCodes interface {
	RehomeTx(ctx context.Context, tx *gorm.DB, mapping map[uuid.UUID]uuid.UUID) (int, error)
	Reveal(ctx context.Context, referenceID uuid.UUID, accessor string) (string, error)
}

// CreateOrderOptions tunes CreateOrder.
type CreateOrderOptions struct {
	// ClearCart empties the source cart and marks it checked_out in the same
	// transaction as the order insert.
	ClearCart bool
}

// Settlement turns carts into orders and tracks their payment state.
type Settlement interface {
	CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem, opts CreateOrderOptions) (*models.Order, error)
	ConfirmWalletPayment(ctx context.Context, orderID uuid.UUID) (*models.Order, *models.WalletTransaction, error)
	ClearCart(ctx context.Context, cartID uuid.UUID) error
	UpdatePaymentState(ctx context.Context, orderID uuid.UUID, paymentStatus enums.PaymentStatus, status enums.OrderStatus, reference *string) (*models.Order, error)
	CancelUnpaid(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

// Service is the full order surface used by the API.
type Service interface {
	Settlement
	Get(ctx context.Context, identity auth.Identity, orderID uuid.UUID) (*models.Order, error)
	RevealGateCode(ctx context.Context, identity auth.Identity, itemID uuid.UUID) (string, error)
	ExpireUnpaid(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type ServiceParams struct {
	Repo      Repository
	Carts     cart.CartRepository
	GateCodes gateCodes
	Wallet    wallet.Ledger
	Tx        txRunner
	Outbox    outboxPublisher
	Now       func() time.Time
}

type service struct {
	repo      Repository
	carts     cart.CartRepository
	gateCodes gateCodes
	wallet    wallet.Ledger
	tx        txRunner
	outbox    outboxPublisher
	now       func() time.Time
}

// NewService wires the order settlement service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.GateCodes == nil {
		return nil, fmt.Errorf("gate code service required")
	}
	if params.Wallet == nil {
		return nil, fmt.Errorf("wallet ledger required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repo,
		carts:     params.Carts,
		gateCodes: params.GateCodes,
		wallet:    params.Wallet,
		tx:        params.Tx,
		outbox:    params.Outbox,
		now:       now,
	}, nil
}

// CreateOrder inserts the order and its items, moves gate codes from the source
// cart items onto the new order items and optionally clears the cart. Every
// step shares one transaction. The source cart must be active and must not
// already back an order that is awaiting payment or confirmed.
func (s *service) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem, opts CreateOrderOptions) (*models.Order, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	if !order.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if opts.ClearCart && order.CartID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required to clear the cart")
	}

	now := s.now().UTC()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.OrderNumber == "" {
		order.OrderNumber = NewOrderNumber(now)
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = enums.PaymentStatusPending
	}
	if order.Status == "" {
		order.Status = enums.OrderStatusPendingPayment
	}

	mapping := make(map[uuid.UUID]uuid.UUID, len(items))
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].OrderID = order.ID
		if items[i].SourceCartItemID != nil {
			mapping[*items[i].SourceCartItemID] = items[i].ID
		}
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if order.CartID != nil {
			if err := s.reserveCartTx(ctx, tx, *order.CartID); err != nil {
				return err
			}
		}
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number already used")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert order")
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert order items")
		}
		if _, err := s.gateCodes.RehomeTx(ctx, tx, mapping); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "re-home gate codes")
		}
		if opts.ClearCart {
			if err := s.clearCartTx(ctx, tx, *order.CartID); err != nil {
				return err
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorFor(order),
			OccurredAt:    now,
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				CartID:        order.CartID,
				ItemCount:     len(items),
				Total:         order.Total,
				PaymentMethod: order.PaymentMethod,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (s *service) reserveCartTx(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error {
	carts := s.carts.WithTx(tx)
	locked, err := carts.LockByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock cart")
	}
	if locked.Status != enums.CartStatusActive {
		return pkgerrors.New(pkgerrors.CodeConflict, "cart is no longer active")
	}
	open, err := carts.HasOpenOrder(ctx, cartID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check cart orders")
	}
	if open {
		return pkgerrors.New(pkgerrors.CodeConflict, "cart already has an order awaiting payment").
			WithDetails(map[string]any{"cartId": cartID.String()})
	}
	return nil
}

// ConfirmWalletPayment debits the customer's wallet for a pending wallet order,
// marks the order paid and confirmed, and checks out the source cart. The
// debit and both status changes commit together or not at all.
func (s *service) ConfirmWalletPayment(ctx context.Context, orderID uuid.UUID) (*models.Order, *models.WalletTransaction, error) {
	var (
		order *models.Order
		txn   *models.WalletTransaction
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := s.repo.WithTx(tx).LockByID(ctx, orderID)
		if err != nil {
			return notFound(err, "load order")
		}
		switch {
		case locked.PaymentMethod != enums.PaymentMethodWallet:
			return pkgerrors.New(pkgerrors.CodeValidation, "order is not paid from a wallet")
		case locked.UserID == nil:
			return pkgerrors.New(pkgerrors.CodeValidation, "wallet payment requires a signed-in customer")
		case locked.PaymentStatus != enums.PaymentStatusPending:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order payment is no longer pending").
				WithDetails(map[string]any{"paymentStatus": locked.PaymentStatus})
		}

		txn, err = s.wallet.ProcessPayment(ctx, *locked.UserID, locked.Total, wallet.Refs{
			OrderID:     &locked.ID,
			Description: "Order " + locked.OrderNumber,
		}, wallet.InTx(tx))
		if err != nil {
			return err
		}
		reference := txn.ID.String()
		order, err = s.transitionTx(ctx, tx, orderID, enums.PaymentStatusPaid, enums.OrderStatusConfirmed, &reference)
		if err != nil {
			return err
		}
		if locked.CartID != nil {
			return s.clearCartTx(ctx, tx, *locked.CartID)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, txn, nil
}

// ClearCart empties the cart and marks it checked_out in its own transaction.
func (s *service) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.clearCartTx(ctx, tx, cartID)
	})
}

func (s *service) clearCartTx(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error {
	carts := s.carts.WithTx(tx)
	if _, err := carts.DeleteItems(ctx, cartID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart items")
	}
	ok, err := carts.UpdateStatus(ctx, cartID, enums.CartStatusActive, enums.CartStatusCheckedOut)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check out cart")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "cart is no longer active")
	}
	return nil
}

func (s *service) UpdatePaymentState(ctx context.Context, orderID uuid.UUID, paymentStatus enums.PaymentStatus, status enums.OrderStatus, reference *string) (*models.Order, error) {
	if !paymentStatus.IsValid() || !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.transitionTx(ctx, tx, orderID, paymentStatus, status, reference)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// CancelUnpaid fails a pending order and hands its gate codes back to the cart
// items they came from, provided those items still exist. A pending order that
// already has a completed wallet payment is confirmed instead, and the call
// reports a state conflict.
func (s *service) CancelUnpaid(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var (
		order   *models.Order
		settled bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.LockByID(ctx, orderID)
		if err != nil {
			return notFound(err, "load order")
		}
		if locked.PaymentStatus != enums.PaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order payment is no longer pending").
				WithDetails(map[string]any{"paymentStatus": locked.PaymentStatus})
		}

		payment, err := repo.FindCompletedPayment(ctx, orderID)
		switch {
		case err == nil:
			settled = true
			order, err = s.settleFromLedgerTx(ctx, tx, locked, payment)
			return err
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order payment")
		}

		if locked.CartID != nil {
			items, err := repo.ListItems(ctx, orderID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order items")
			}
			carts := s.carts.WithTx(tx)
			back := make(map[uuid.UUID]uuid.UUID, len(items))
			for _, item := range items {
				if item.SourceCartItemID == nil {
					continue
				}
				if _, err := carts.FindItem(ctx, *locked.CartID, *item.SourceCartItemID); err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						continue
					}
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
				}
				back[item.ID] = *item.SourceCartItemID
			}
			if _, err := s.gateCodes.RehomeTx(ctx, tx, back); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "return gate codes to cart")
			}
		}

		order, err = s.transitionTx(ctx, tx, orderID, enums.PaymentStatusFailed, enums.OrderStatusCancelled, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	if settled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order was already paid").WithDetails(map[string]any{
			"orderId":          order.ID.String(),
			"paymentReference": order.PaymentReference,
		})
	}
	return order, nil
}

// settleFromLedgerTx confirms an order whose wallet debit committed without the
// matching status change, and checks out its cart.
func (s *service) settleFromLedgerTx(ctx context.Context, tx *gorm.DB, order *models.Order, payment *models.WalletTransaction) (*models.Order, error) {
	reference := payment.ID.String()
	confirmed, err := s.transitionTx(ctx, tx, order.ID, enums.PaymentStatusPaid, enums.OrderStatusConfirmed, &reference)
	if err != nil {
		return nil, err
	}
	if order.CartID == nil {
		return confirmed, nil
	}
	carts := s.carts.WithTx(tx)
	if _, err := carts.DeleteItems(ctx, *order.CartID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart items")
	}
	if _, err := carts.UpdateStatus(ctx, *order.CartID, enums.CartStatusActive, enums.CartStatusCheckedOut); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check out cart")
	}
	return confirmed, nil
}

func (s *service) transitionTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, paymentStatus enums.PaymentStatus, status enums.OrderStatus, reference *string) (*models.Order, error) {
	repo := s.repo.WithTx(tx)
	order, err := repo.LockByID(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "load order")
	}

	now := s.now().UTC()
	updates := map[string]any{
		"payment_status": paymentStatus,
		"status":         status,
		"updated_at":     now,
	}
	if reference != nil {
		updates["payment_reference"] = *reference
		order.PaymentReference = reference
	}
	if err := repo.UpdateOrder(ctx, orderID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	order.PaymentStatus = paymentStatus
	order.Status = status
	order.UpdatedAt = now

	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorFor(order),
		OccurredAt:    now,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:          order.ID,
			PaymentStatus:    paymentStatus,
			Status:           status,
			PaymentReference: order.PaymentReference,
		},
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Get returns an order owned by identity.
func (s *service) Get(ctx context.Context, identity auth.Identity, orderID uuid.UUID) (*models.Order, error) {
	if !identity.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "load order")
	}
	if !identity.Owns(order.UserID, order.GuestSessionToken) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// RevealGateCode decrypts the gate code for an order item owned by identity.
func (s *service) RevealGateCode(ctx context.Context, identity auth.Identity, itemID uuid.UUID) (string, error) {
	item, err := s.repo.FindItem(ctx, itemID)
	if err != nil {
		return "", notFound(err, "load order item")
	}
	if _, err := s.Get(ctx, identity, item.OrderID); err != nil {
		return "", err
	}
	return s.gateCodes.Reveal(ctx, item.ID, identity.Subject())
}

func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}

func actorFor(order *models.Order) *outbox.ActorRef {
	if order.UserID != nil {
		return outbox.UserActor(*order.UserID)
	}
	return outbox.GuestActor()
}

// ExpireUnpaid cancels orders left awaiting payment since before cutoff. An
// order that was settled between listing and locking is skipped, as is one
// that CancelUnpaid confirms from its wallet payment.
func (s *service) ExpireUnpaid(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	stale, err := s.repo.FindUnpaidBefore(ctx, cutoff.UTC(), limit)
	if err != nil {
		return 0, fmt.Errorf("list unpaid orders: %w", err)
	}
	cancelled := 0
	var errs error
	for _, order := range stale {
		if _, err := s.CancelUnpaid(ctx, order.ID); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		cancelled++
	}
	return cancelled, errs
}
