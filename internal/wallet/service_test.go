package wallet

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/berryevents69/Berry-Events-sub000/pkg/db"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db/dbtest"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
	"github.com/berryevents69/Berry-Events-sub000/pkg/outbox"
	"github.com/berryevents69/Berry-Events-sub000/pkg/pagination"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(t *testing.T) (Service, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	pub := outbox.NewService(outbox.NewRepository(client.DB()), logger.New(logger.Options{Output: io.Discard}))
	svc, err := NewService(NewRepository(client.DB()), client, pub)
	require.NoError(t, err)
	return svc, client
}

func seedWallet(t *testing.T, client *db.Client, balance string) uuid.UUID {
	t.Helper()
	userID := uuid.New()
	require.NoError(t, client.DB().Create(&models.Wallet{
		ID:       uuid.New(),
		UserID:   userID,
		Balance:  dec(balance),
		Currency: DefaultCurrency,
	}).Error)
	return userID
}

func transactions(t *testing.T, client *db.Client, userID uuid.UUID) []models.WalletTransaction {
	t.Helper()
	var rows []models.WalletTransaction
	require.NoError(t, client.DB().Where("user_id = ?", userID).Find(&rows).Error)
	return rows
}

func TestProcessPaymentDebitsAndRecordsLedgerRow(t *testing.T) {
	svc, client := newTestService(t)
	userID := seedWallet(t, client, "500.00")
	orderID := uuid.New()

	txn, err := svc.ProcessPayment(t.Context(), userID, dec("120.50"), Refs{OrderID: &orderID, Description: "order payment"})
	require.NoError(t, err)
	assert.Equal(t, enums.WalletTxPayment, txn.Type)
	assert.Equal(t, enums.WalletTxStatusCompleted, txn.Status)

	balance, err := svc.GetBalance(t.Context(), userID)
	require.NoError(t, err)
	assert.Equal(t, "379.50", balance.StringFixed(2))

	rows := transactions(t, client, userID)
	require.Len(t, rows, 1)
	assert.Equal(t, "500.00", rows[0].BalanceBefore.StringFixed(2))
	assert.Equal(t, "379.50", rows[0].BalanceAfter.StringFixed(2))
	assert.Equal(t, "120.50", rows[0].Amount.StringFixed(2))
	require.NotNil(t, rows[0].OrderID)
	assert.Equal(t, orderID, *rows[0].OrderID)

	var events int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventWalletPaymentCharged).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestProcessPaymentInsufficientFunds(t *testing.T) {
	svc, client := newTestService(t)
	userID := seedWallet(t, client, "50.00")

	_, err := svc.ProcessPayment(t.Context(), userID, dec("120.50"), Refs{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))

	balance, err := svc.GetBalance(t.Context(), userID)
	require.NoError(t, err)
	assert.Equal(t, "50.00", balance.StringFixed(2))
	assert.Empty(t, transactions(t, client, userID))
}

// lostRaceRepo makes the conditional decrement match no row, as when a
// concurrent spend drains the wallet after the balance was read.
type lostRaceRepo struct {
	Repository
	debits *int
}

func (r lostRaceRepo) WithTx(tx *gorm.DB) Repository {
	return lostRaceRepo{Repository: r.Repository.WithTx(tx), debits: r.debits}
}

func (r lostRaceRepo) Debit(context.Context, uuid.UUID, decimal.Decimal, time.Time) (bool, error) {
	*r.debits++
	return false, nil
}

func TestProcessPaymentLosesConditionalDebit(t *testing.T) {
	client := dbtest.Open(t)
	pub := outbox.NewService(outbox.NewRepository(client.DB()), logger.New(logger.Options{Output: io.Discard}))
	debits := 0
	svc, err := NewService(lostRaceRepo{Repository: NewRepository(client.DB()), debits: &debits}, client, pub)
	require.NoError(t, err)
	userID := seedWallet(t, client, "500.00")

	_, err = svc.ProcessPayment(t.Context(), userID, dec("120.00"), Refs{Description: "order payment"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))
	assert.Equal(t, 1, debits, "the pre-read balance covered the amount, so the decrement was attempted")

	balance, err := svc.GetBalance(t.Context(), userID)
	require.NoError(t, err)
	assert.Equal(t, "500.00", balance.StringFixed(2))
	assert.Empty(t, transactions(t, client, userID))

	var events int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Count(&events).Error)
	assert.Zero(t, events)
}

func TestAmountValidation(t *testing.T) {
	svc, client := newTestService(t)
	userID := seedWallet(t, client, "10.00")

	for _, amount := range []string{"0", "-5", "1.005"} {
		_, err := svc.Deposit(t.Context(), userID, dec(amount), Refs{})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), amount)
	}
	_, err := svc.Deposit(t.Context(), uuid.Nil, dec("1"), Refs{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDepositCreatesWalletAndWithdrawReconciles(t *testing.T) {
	svc, client := newTestService(t)
	userID := uuid.New()

	dep, err := svc.Deposit(t.Context(), userID, dec("200"), Refs{})
	require.NoError(t, err)
	assert.True(t, dep.BalanceBefore.IsZero())
	assert.Equal(t, "200.00", dep.BalanceAfter.StringFixed(2))

	wd, err := svc.Withdraw(t.Context(), userID, dec("75.25"), Refs{})
	require.NoError(t, err)
	assert.True(t, wd.BalanceBefore.Equal(dep.BalanceAfter))
	assert.Equal(t, "124.75", wd.BalanceAfter.StringFixed(2))

	_, err = svc.Withdraw(t.Context(), userID, dec("500"), Refs{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))

	w, err := svc.GetOrCreate(t.Context(), userID)
	require.NoError(t, err)
	assert.Equal(t, "124.75", w.Balance.StringFixed(2))
	assert.Equal(t, DefaultCurrency, w.Currency)
	assert.Len(t, transactions(t, client, userID), 2)
}

func TestRefundCreditsAndEmits(t *testing.T) {
	svc, client := newTestService(t)
	userID := seedWallet(t, client, "10.00")
	orderID := uuid.New()

	txn, err := svc.Refund(t.Context(), userID, dec("40.00"), Refs{OrderID: &orderID})
	require.NoError(t, err)
	assert.Equal(t, enums.WalletTxRefund, txn.Type)
	assert.Equal(t, "50.00", txn.BalanceAfter.StringFixed(2))

	var events int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventWalletRefunded).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestProcessPaymentInCallerTransaction(t *testing.T) {
	svc, client := newTestService(t)
	userID := seedWallet(t, client, "100.00")

	boom := errors.New("downstream failed")
	err := client.WithTx(t.Context(), func(tx *gorm.DB) error {
		if _, err := svc.ProcessPayment(t.Context(), userID, dec("60"), Refs{}, InTx(tx)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	balance, err := svc.GetBalance(t.Context(), userID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", balance.StringFixed(2))
	assert.Empty(t, transactions(t, client, userID))
}

func TestListTransactionsPages(t *testing.T) {
	svc, _ := newTestService(t)
	userID := uuid.New()
	for _, amount := range []string{"10", "20", "30"} {
		_, err := svc.Deposit(t.Context(), userID, dec(amount), Refs{})
		require.NoError(t, err)
	}

	first, err := svc.ListTransactions(t.Context(), userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "30.00", first.Items[0].Amount.StringFixed(2))
	require.NotEmpty(t, first.Cursor)

	second, err := svc.ListTransactions(t.Context(), userID, pagination.Params{Limit: 2, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "10.00", second.Items[0].Amount.StringFixed(2))
	assert.Empty(t, second.Cursor)

	_, err = svc.ListTransactions(t.Context(), userID, pagination.Params{Cursor: "not-a-cursor"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateAutoReload(t *testing.T) {
	svc, _ := newTestService(t)
	userID := uuid.New()

	_, err := svc.UpdateAutoReload(t.Context(), userID, AutoReloadSettings{Enabled: true})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	threshold, amount := dec("50"), dec("200")
	w, err := svc.UpdateAutoReload(t.Context(), userID, AutoReloadSettings{Enabled: true, Threshold: &threshold, Amount: &amount})
	require.NoError(t, err)
	assert.True(t, w.AutoReloadEnabled)
	require.NotNil(t, w.AutoReloadAmount)
	assert.Equal(t, "200.00", w.AutoReloadAmount.StringFixed(2))

	w, err = svc.UpdateAutoReload(t.Context(), userID, AutoReloadSettings{})
	require.NoError(t, err)
	assert.False(t, w.AutoReloadEnabled)
	assert.Nil(t, w.AutoReloadAmount)
}
