package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/berryevents69/Berry-Events-sub000/pkg/db"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
	"github.com/berryevents69/Berry-Events-sub000/pkg/outbox"
	"github.com/berryevents69/Berry-Events-sub000/pkg/outbox/payloads"
	"github.com/berryevents69/Berry-Events-sub000/pkg/pagination"
)

const DefaultCurrency = "ZAR"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Refs ties a ledger row to the thing it paid for.
type Refs struct {
	Description     string
	OrderID         *uuid.UUID
	BookingID       *uuid.UUID
	ServiceID       *uuid.UUID
	PaymentIntentID *string
}

// AutoReloadSettings replaces the wallet's auto-reload configuration.
type AutoReloadSettings struct {
	Enabled   bool
	Threshold *decimal.Decimal
	Amount    *decimal.Decimal
}

// TransactionPage is one page of ledger rows, newest first.
type TransactionPage struct {
	Items  []models.WalletTransaction `json:"items"`
	Cursor string                     `json:"cursor"`
}

// PaymentOption customises ProcessPayment.
type PaymentOption func(*paymentOptions)

type paymentOptions struct {
	tx *gorm.DB
}

// InTx runs the payment inside the caller's transaction instead of opening one.
func InTx(tx *gorm.DB) PaymentOption {
	return func(o *paymentOptions) { o.tx = tx }
}

// Ledger is the narrow surface the settlement orchestrator depends on.
type Ledger interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	ProcessPayment(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, refs Refs, opts ...PaymentOption) (*models.WalletTransaction, error)
}

// Service exposes wallet operations.
type Service interface {
	Ledger
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, refs Refs) (*models.WalletTransaction, error)
	Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, refs Refs) (*models.WalletTransaction, error)
	Refund(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, refs Refs) (*models.WalletTransaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionPage, error)
	UpdateAutoReload(ctx context.Context, userID uuid.UUID, settings AutoReloadSettings) (*models.Wallet, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	now    func() time.Time
}

// NewService wires the wallet ledger.
func NewService(repo Repository, tx txRunner, publisher outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: publisher, now: time.Now}, nil
}

func (s *service) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	var w *models.Wallet
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		w, err = s.ensure(ctx, s.repo.WithTx(tx), userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (s *service) ensure(ctx context.Context, repo Repository, userID uuid.UUID) (*models.Wallet, error) {
	w, err := repo.FindByUserID(ctx, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wallet")
	}
	if err := repo.CreateIfMissing(ctx, &models.Wallet{
		ID:       uuid.New(),
		UserID:   userID,
		Balance:  decimal.Zero,
		Currency: DefaultCurrency,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create wallet")
	}
	w, err = repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload wallet")
	}
	return w, nil
}

func (s *service) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	w, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}

func (s *service) Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, refs Refs) (*models.WalletTransaction, error) {
	return s.inTx(ctx, nil, userID, enums.WalletTxDeposit, amount, refs)
}

func (s *service) Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, refs Refs) (*models.WalletTransaction, error) {
	return s.inTx(ctx, nil, userID, enums.WalletTxWithdraw, amount, refs)
}

func (s *service) Refund(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, refs Refs) (*models.WalletTransaction, error) {
	return s.inTx(ctx, nil, userID, enums.WalletTxRefund, amount, refs)
}

// ProcessPayment debits the wallet for an order or booking.
func (s *service) ProcessPayment(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, refs Refs, opts ...PaymentOption) (*models.WalletTransaction, error) {
	var o paymentOptions
	for _, opt := range opts {
		opt(&o)
	}
	return s.inTx(ctx, o.tx, userID, enums.WalletTxPayment, amount, refs)
}

func (s *service) inTx(ctx context.Context, outer *gorm.DB, userID uuid.UUID, kind enums.WalletTransactionType, amount decimal.Decimal, refs Refs) (*models.WalletTransaction, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !amount.Equal(amount.Round(2)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must have at most two decimal places")
	}

	if outer != nil {
		return s.apply(ctx, outer, userID, kind, amount, refs)
	}
	var txn *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		txn, err = s.apply(ctx, tx, userID, kind, amount, refs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// apply locks the wallet row, moves the balance and appends the ledger row.
func (s *service) apply(ctx context.Context, tx *gorm.DB, userID uuid.UUID, kind enums.WalletTransactionType, amount decimal.Decimal, refs Refs) (*models.WalletTransaction, error) {
	repo := s.repo.WithTx(tx)
	if _, err := s.ensure(ctx, repo, userID); err != nil {
		return nil, err
	}
	w, err := repo.LockByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock wallet")
	}

	now := s.now().UTC()
	before := w.Balance
	var after decimal.Decimal
	if kind.IsCredit() {
		if err := repo.Credit(ctx, w.ID, amount, now); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "credit wallet")
		}
		after = before.Add(amount)
	} else {
		if before.LessThan(amount) {
			return nil, insufficientFunds(before, amount)
		}
		ok, err := repo.Debit(ctx, w.ID, amount, now)
		if err != nil {
			if dbpkg.IsCheckViolation(err) {
				return nil, insufficientFunds(before, amount)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "debit wallet")
		}
		if !ok {
			return nil, insufficientFunds(before, amount)
		}
		after = before.Sub(amount)
	}

	txn := &models.WalletTransaction{
		ID:              uuid.New(),
		WalletID:        w.ID,
		UserID:          userID,
		Type:            kind,
		Status:          enums.WalletTxStatusCompleted,
		Amount:          amount,
		BalanceBefore:   before,
		BalanceAfter:    after,
		OrderID:         refs.OrderID,
		BookingID:       refs.BookingID,
		ServiceID:       refs.ServiceID,
		PaymentIntentID: refs.PaymentIntentID,
		CreatedAt:       now,
	}
	if refs.Description != "" {
		desc := refs.Description
		txn.Description = &desc
	}
	if err := repo.InsertTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record wallet transaction")
	}

	if err := s.emit(ctx, tx, txn, now); err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, txn *models.WalletTransaction, at time.Time) error {
	var (
		eventType enums.OutboxEventType
		data      any
	)
	switch txn.Type {
	case enums.WalletTxPayment:
		eventType = enums.EventWalletPaymentCharged
		data = payloads.WalletPaymentChargedEvent{
			WalletID:      txn.WalletID,
			TransactionID: txn.ID,
			UserID:        txn.UserID,
			Amount:        txn.Amount,
			BalanceAfter:  txn.BalanceAfter,
			OrderID:       txn.OrderID,
			BookingID:     txn.BookingID,
		}
	case enums.WalletTxRefund:
		eventType = enums.EventWalletRefunded
		data = payloads.WalletRefundedEvent{
			WalletID:      txn.WalletID,
			TransactionID: txn.ID,
			UserID:        txn.UserID,
			Amount:        txn.Amount,
			BalanceAfter:  txn.BalanceAfter,
			OrderID:       txn.OrderID,
		}
	default:
		return nil
	}
	userID := txn.UserID
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateWallet,
		AggregateID:   txn.WalletID,
		Actor:         outbox.UserActor(userID),
		OccurredAt:    at,
		Data:          data,
	})
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionPage, error) {
	w, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	var cursor *pagination.Cursor
	if params.Cursor != "" {
		cursor, err = pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
	}
	rows, next, err := s.repo.ListTransactions(ctx, w.ID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list wallet transactions")
	}
	page := &TransactionPage{Items: rows}
	if page.Items == nil {
		page.Items = []models.WalletTransaction{}
	}
	if next != nil {
		page.Cursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

func (s *service) UpdateAutoReload(ctx context.Context, userID uuid.UUID, settings AutoReloadSettings) (*models.Wallet, error) {
	if settings.Enabled {
		if settings.Threshold == nil || settings.Amount == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "threshold and amount are required when auto-reload is enabled")
		}
		if settings.Threshold.IsNegative() || !settings.Amount.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "auto-reload amount must be positive and threshold non-negative")
		}
	}

	var w *models.Wallet
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.ensure(ctx, repo, userID); err != nil {
			return err
		}
		locked, err := repo.LockByUserID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock wallet")
		}
		updates := map[string]any{
			"auto_reload_enabled":   settings.Enabled,
			"auto_reload_threshold": nil,
			"auto_reload_amount":    nil,
			"updated_at":            s.now().UTC(),
		}
		if settings.Threshold != nil {
			updates["auto_reload_threshold"] = settings.Threshold.Round(2)
		}
		if settings.Amount != nil {
			updates["auto_reload_amount"] = settings.Amount.Round(2)
		}
		if err := repo.UpdateSettings(ctx, locked.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update auto-reload")
		}
		w, err = repo.FindByUserID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload wallet")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

func insufficientFunds(balance, required decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient wallet balance").WithDetails(map[string]any{
		"balance":  balance.StringFixed(2),
		"required": required.StringFixed(2),
	})
}
