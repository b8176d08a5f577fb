package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/berryevents69/Berry-Events-sub000/internal/checkout/helpers"
	"github.com/berryevents69/Berry-Events-sub000/internal/orders"
	"github.com/berryevents69/Berry-Events-sub000/internal/wallet"
	"github.com/berryevents69/Berry-Events-sub000/pkg/auth"
	pkgcheckout "github.com/berryevents69/Berry-Events-sub000/pkg/checkout"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
	"github.com/berryevents69/Berry-Events-sub000/pkg/metrics"
	"github.com/berryevents69/Berry-Events-sub000/pkg/realtime"
)

const DefaultPlatformFeePercent = "15"

type cartReader interface {
	Get(ctx context.Context, identity auth.Identity, cartID uuid.UUID) (*models.Cart, error)
}

// Service executes checkout orchestration.
type Service interface {
	Checkout(ctx context.Context, identity auth.Identity, cartID uuid.UUID, input CheckoutInput) (*Result, error)
}

// CheckoutInput captures the caller's payment choice.
type CheckoutInput struct {
	PaymentMethod    string
	PaymentReference string
}

// Result is a settled checkout.
type Result struct {
	Order             *models.Order             `json:"order"`
	Pricing           helpers.Pricing           `json:"pricing"`
	WalletTransaction *models.WalletTransaction `json:"walletTransaction,omitempty"`
}

type ServiceParams struct {
	Carts         cartReader
	Settlement    orders.Settlement
	Wallet        wallet.Ledger
	Broadcaster   realtime.Broadcaster
	Metrics       *metrics.CheckoutMetrics
	Logger        *logger.Logger
	FeePercent    decimal.Decimal
	TipCategories []string
}

type service struct {
	carts         cartReader
	settlement    orders.Settlement
	wallet        wallet.Ledger
	broadcaster   realtime.Broadcaster
	metrics       *metrics.CheckoutMetrics
	logg          *logger.Logger
	feePercent    decimal.Decimal
	tipCategories []string
}

// NewService builds the checkout orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.Carts == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if params.Settlement == nil {
		return nil, fmt.Errorf("order settlement required")
	}
	if params.Wallet == nil {
		return nil, fmt.Errorf("wallet ledger required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.FeePercent.IsNegative() {
		return nil, fmt.Errorf("platform fee percent must not be negative")
	}
	broadcaster := params.Broadcaster
	if broadcaster == nil {
		broadcaster = realtime.Nop{}
	}
	return &service{
		carts:         params.Carts,
		settlement:    params.Settlement,
		wallet:        params.Wallet,
		broadcaster:   broadcaster,
		metrics:       params.Metrics,
		logg:          params.Logger,
		feePercent:    params.FeePercent,
		tipCategories: params.TipCategories,
	}, nil
}

// Checkout converts the cart into an order and settles payment.
//
// Wallet payments create the order first with the cart left intact and
// reserved, then debit the wallet, confirm the order and check out the cart in
// one transaction. A failed settlement cancels the order and releases the cart
// so the customer can retry. Card and bank payments are recorded as paid on the
// strength of the caller-supplied reference.
func (s *service) Checkout(ctx context.Context, identity auth.Identity, cartID uuid.UUID, input CheckoutInput) (*Result, error) {
	method, err := pkgcheckout.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		s.metrics.Inc(input.PaymentMethod, "rejected")
		return nil, err
	}

	result, err := s.checkout(ctx, identity, cartID, method, strings.TrimSpace(input.PaymentReference))
	if err != nil {
		s.metrics.Inc(string(method), resultLabel(err))
		return nil, err
	}
	s.metrics.Inc(string(method), "confirmed")
	return result, nil
}

func (s *service) checkout(ctx context.Context, identity auth.Identity, cartID uuid.UUID, method enums.PaymentMethod, reference string) (*Result, error) {
	cart, err := s.carts.Get(ctx, identity, cartID)
	if err != nil {
		return nil, err
	}
	if err := helpers.ValidateCheckoutCart(identity, cart, method); err != nil {
		return nil, err
	}

	pricing := helpers.ComputePricing(cart.Items, s.feePercent, s.tipCategories)
	items := helpers.BuildOrderItems(cart.Items, s.tipCategories)
	order := &models.Order{
		ID:            uuid.New(),
		UserID:        identity.UserID,
		CartID:        &cart.ID,
		Subtotal:      pricing.Subtotal,
		TipsTotal:     pricing.TipsTotal,
		PlatformFee:   pricing.PlatformFee,
		Total:         pricing.Total,
		PaymentMethod: method,
	}
	if identity.IsGuest() {
		token := identity.GuestToken
		order.GuestSessionToken = &token
	}

	logCtx := s.logg.WithOrderID(s.logg.WithFields(ctx, map[string]any{
		"cart_id":        cart.ID.String(),
		"payment_method": string(method),
		"total":          pricing.Total.StringFixed(2),
	}), order.ID.String())

	if method.SettlesExternally() {
		return s.settleExternal(logCtx, order, items, pricing, reference)
	}
	return s.settleWallet(logCtx, *identity.UserID, order, items, pricing)
}

func (s *service) settleExternal(ctx context.Context, order *models.Order, items []models.OrderItem, pricing helpers.Pricing, reference string) (*Result, error) {
	// Card and bank authorisation happens outside this service.
	order.PaymentStatus = enums.PaymentStatusPaid
	order.Status = enums.OrderStatusConfirmed
	if reference != "" {
		order.PaymentReference = &reference
	}
	created, err := s.settlement.CreateOrder(ctx, order, items, orders.CreateOrderOptions{ClearCart: true})
	if err != nil {
		return nil, err
	}
	s.logg.Info(ctx, "checkout confirmed")
	s.announce(ctx, created)
	return &Result{Order: created, Pricing: pricing}, nil
}

func (s *service) settleWallet(ctx context.Context, userID uuid.UUID, order *models.Order, items []models.OrderItem, pricing helpers.Pricing) (*Result, error) {
	balance, err := s.wallet.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(pricing.Total) {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient wallet balance").WithDetails(map[string]any{
			"balance":  balance.StringFixed(2),
			"required": pricing.Total.StringFixed(2),
			"canRetry": true,
		})
	}

	order.PaymentStatus = enums.PaymentStatusPending
	order.Status = enums.OrderStatusPendingPayment
	created, err := s.settlement.CreateOrder(ctx, order, items, orders.CreateOrderOptions{ClearCart: false})
	if err != nil {
		return nil, err
	}

	confirmed, txn, payErr := s.settlement.ConfirmWalletPayment(ctx, created.ID)
	if payErr != nil {
		return nil, s.compensate(ctx, created, payErr)
	}
	confirmed.Items = created.Items

	s.logg.Info(ctx, "checkout confirmed")
	s.announce(ctx, confirmed)
	return &Result{Order: confirmed, Pricing: pricing, WalletTransaction: txn}, nil
}

// compensate cancels the pending order after a failed settlement. Nothing from
// the settlement committed, so the cart is left as it was.
func (s *service) compensate(ctx context.Context, order *models.Order, payErr error) error {
	code := pkgerrors.CodeInternal
	if typed := pkgerrors.As(payErr); typed != nil {
		code = typed.Code()
	}
	details := map[string]any{
		"canRetry": true,
		"orderId":  order.ID.String(),
	}

	cancelled, err := s.settlement.CancelUnpaid(ctx, order.ID)
	if err != nil {
		s.logg.Error(ctx, "cancel unpaid order failed", err)
		return pkgerrors.Wrap(code, payErr, "wallet payment failed").WithDetails(details)
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", payErr.Error()), "wallet payment failed, order cancelled")
	s.announce(ctx, cancelled)
	return pkgerrors.Wrap(code, payErr, "wallet payment failed").WithDetails(details)
}

func (s *service) announce(ctx context.Context, order *models.Order) {
	s.broadcaster.Broadcast(ctx, realtime.OrderTopic(order.ID.String()), realtime.Event{
		Type: realtime.EventOrderStatusChanged,
		Data: map[string]any{
			"orderId":       order.ID,
			"orderNumber":   order.OrderNumber,
			"paymentStatus": order.PaymentStatus,
			"status":        order.Status,
		},
		OccurredAt: time.Now().UTC(),
	})
}

func resultLabel(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "error"
	}
	switch typed.Code() {
	case pkgerrors.CodeInsufficientFunds:
		return "insufficient_funds"
	case pkgerrors.CodeValidation, pkgerrors.CodeNotFound, pkgerrors.CodeConflict:
		return "rejected"
	default:
		return "error"
	}
}
