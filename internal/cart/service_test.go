package cart

import (
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berryevents69/Berry-Events-sub000/internal/gatecodes"
	"github.com/berryevents69/Berry-Events-sub000/pkg/auth"
	"github.com/berryevents69/Berry-Events-sub000/pkg/crypto"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db/dbtest"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	client    *db.Client
	svc       Service
	gateCodes gatecodes.Service
	clock     time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	client := dbtest.Open(t)
	sealer, err := crypto.NewSealer("cart-test", gatecodes.KeyInfo)
	require.NoError(t, err)
	codes, err := gatecodes.NewService(gatecodes.NewRepository(client.DB()), client, sealer, logger.New(logger.Options{Output: io.Discard}))
	require.NoError(t, err)

	h := &harness{client: client, gateCodes: codes, clock: testNow}
	h.svc, err = NewService(ServiceParams{
		Repo:      NewRepository(client.DB()),
		Tx:        client,
		GateCodes: codes,
		Now:       func() time.Time { return h.clock },
	})
	require.NoError(t, err)
	return h
}

func itemInput(base, addOns string) AddItemInput {
	return AddItemInput{
		ServiceID:      uuid.New(),
		ServiceType:    "house_cleaning",
		Category:       "Cleaning",
		ServiceDetails: map[string]any{"bedrooms": 3},
		BasePrice:      decimal.RequireFromString(base),
		AddOnsPrice:    decimal.RequireFromString(addOns),
	}
}

func TestGetOrCreateActiveRequiresExactlyOneOwner(t *testing.T) {
	h := newHarness(t)
	user := uuid.New()

	_, err := h.svc.GetOrCreateActive(t.Context(), auth.Identity{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.svc.GetOrCreateActive(t.Context(), auth.Identity{UserID: &user, GuestToken: "guest"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetOrCreateActiveReusesCart(t *testing.T) {
	h := newHarness(t)
	user := auth.UserIdentity(uuid.New())

	first, err := h.svc.GetOrCreateActive(t.Context(), user)
	require.NoError(t, err)
	assert.Equal(t, enums.CartStatusActive, first.Status)
	assert.True(t, first.ExpiresAt.Equal(testNow.Add(DefaultTTL)))

	second, err := h.svc.GetOrCreateActive(t.Context(), user)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	guest, err := h.svc.GetOrCreateActive(t.Context(), auth.GuestIdentity("guest-abc"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, guest.ID)
	require.NotNil(t, guest.GuestSessionToken)
	assert.Nil(t, guest.UserID)
}

func TestAddItemComputesSubtotal(t *testing.T) {
	h := newHarness(t)
	guest := auth.GuestIdentity("guest-abc")

	item, err := h.svc.AddItem(t.Context(), guest, itemInput("350.00", "45.50"))
	require.NoError(t, err)
	assert.Equal(t, "395.50", item.Subtotal.StringFixed(2))
	assert.Equal(t, "cleaning", item.Category)

	cart, err := h.svc.GetOrCreateActive(t.Context(), guest)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "395.50", cart.Items[0].Subtotal.StringFixed(2))
}

func TestAddItemFourthItemRejected(t *testing.T) {
	h := newHarness(t)
	user := auth.UserIdentity(uuid.New())

	for i := 0; i < DefaultMaxItems; i++ {
		_, err := h.svc.AddItem(t.Context(), user, itemInput("100.00", "0"))
		require.NoError(t, err)
	}

	_, err := h.svc.AddItem(t.Context(), user, itemInput("100.00", "0"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	cart, err := h.svc.GetOrCreateActive(t.Context(), user)
	require.NoError(t, err)
	assert.Len(t, cart.Items, DefaultMaxItems)
}

func TestAddItemValidation(t *testing.T) {
	h := newHarness(t)
	user := auth.UserIdentity(uuid.New())

	bad := itemInput("0", "0")
	_, err := h.svc.AddItem(t.Context(), user, bad)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	bad = itemInput("10", "-1")
	_, err = h.svc.AddItem(t.Context(), user, bad)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	bad = itemInput("10", "0")
	bad.ServiceType = " "
	_, err = h.svc.AddItem(t.Context(), user, bad)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAttachGateCodeAndRemoveItem(t *testing.T) {
	h := newHarness(t)
	user := auth.UserIdentity(uuid.New())

	item, err := h.svc.AddItem(t.Context(), user, itemInput("100.00", "0"))
	require.NoError(t, err)

	err = h.svc.AttachGateCode(t.Context(), user, item.ID, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.NoError(t, h.svc.AttachGateCode(t.Context(), user, item.ID, "1234"))
	require.NoError(t, h.svc.AttachGateCode(t.Context(), user, item.ID, "4321"))

	code, err := h.gateCodes.Reveal(t.Context(), item.ID, user.Subject())
	require.NoError(t, err)
	assert.Equal(t, "4321", code)

	require.NoError(t, h.svc.RemoveItem(t.Context(), user, item.ID))
	has, err := h.gateCodes.HasActive(t.Context(), item.ID)
	require.NoError(t, err)
	assert.False(t, has)

	err = h.svc.RemoveItem(t.Context(), user, item.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCartLockedWhileOrderAwaitsPayment(t *testing.T) {
	h := newHarness(t)
	userID := uuid.New()
	user := auth.UserIdentity(userID)
	item, err := h.svc.AddItem(t.Context(), user, itemInput("100.00", "0"))
	require.NoError(t, err)

	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   "BE-20260301-0000CAFE",
		UserID:        &userID,
		CartID:        &item.CartID,
		Subtotal:      decimal.RequireFromString("100.00"),
		PlatformFee:   decimal.RequireFromString("15.00"),
		Total:         decimal.RequireFromString("115.00"),
		PaymentMethod: enums.PaymentMethodWallet,
		PaymentStatus: enums.PaymentStatusPending,
		Status:        enums.OrderStatusPendingPayment,
	}
	require.NoError(t, h.client.DB().Create(order).Error)

	_, err = h.svc.AddItem(t.Context(), user, itemInput("50.00", "0"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	err = h.svc.RemoveItem(t.Context(), user, item.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	err = h.svc.AttachGateCode(t.Context(), user, item.ID, "9999")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	var count int64
	require.NoError(t, h.client.DB().Model(&models.CartItem{}).Where("cart_id = ?", item.CartID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// A cancelled order releases the cart.
	require.NoError(t, h.client.DB().Model(&models.Order{}).Where("id = ?", order.ID).
		Updates(map[string]any{"status": enums.OrderStatusCancelled, "payment_status": enums.PaymentStatusFailed}).Error)
	require.NoError(t, h.svc.RemoveItem(t.Context(), user, item.ID))
}

func TestAttachGateCodeUnknownItem(t *testing.T) {
	h := newHarness(t)
	user := auth.UserIdentity(uuid.New())
	_, err := h.svc.GetOrCreateActive(t.Context(), user)
	require.NoError(t, err)

	err = h.svc.AttachGateCode(t.Context(), user, uuid.New(), "1234")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGetHidesOtherOwnersCarts(t *testing.T) {
	h := newHarness(t)
	owner := auth.UserIdentity(uuid.New())
	cart, err := h.svc.GetOrCreateActive(t.Context(), owner)
	require.NoError(t, err)

	got, err := h.svc.Get(t.Context(), owner, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, got.ID)

	_, err = h.svc.Get(t.Context(), auth.UserIdentity(uuid.New()), cart.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = h.svc.Get(t.Context(), owner, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestExpireStale(t *testing.T) {
	h := newHarness(t)
	user := auth.UserIdentity(uuid.New())
	stale, err := h.svc.GetOrCreateActive(t.Context(), user)
	require.NoError(t, err)

	n, err := h.svc.ExpireStale(t.Context(), testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = h.svc.ExpireStale(t.Context(), testNow.Add(DefaultTTL))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var reloaded models.Cart
	require.NoError(t, h.client.DB().First(&reloaded, "id = ?", stale.ID).Error)
	assert.Equal(t, enums.CartStatusExpired, reloaded.Status)

	h.clock = testNow.Add(DefaultTTL + time.Minute)
	fresh, err := h.svc.GetOrCreateActive(t.Context(), user)
	require.NoError(t, err)
	assert.NotEqual(t, stale.ID, fresh.ID)
}
