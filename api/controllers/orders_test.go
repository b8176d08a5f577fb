package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berryevents69/Berry-Events-sub000/pkg/auth"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
)

type stubOrderReader struct {
	order *models.Order
	code  string
	err   error
}

func (s *stubOrderReader) Get(ctx context.Context, identity auth.Identity, orderID uuid.UUID) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrderReader) RevealGateCode(ctx context.Context, identity auth.Identity, itemID uuid.UUID) (string, error) {
	return s.code, s.err
}

func TestOrderDetail(t *testing.T) {
	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   "BE-20261015-00000001",
		PaymentMethod: enums.PaymentMethodCard,
		PaymentStatus: enums.PaymentStatusPaid,
		Status:        enums.OrderStatusConfirmed,
		Items:         []models.OrderItem{{ID: uuid.New(), Category: "gardening"}},
	}
	resp := serve(OrderDetail(&stubOrderReader{order: order}, nil), newRequest(http.MethodGet, "/", "", identityPtr(auth.GuestIdentity("g")), map[string]string{"orderId": order.ID.String()}))
	require.Equal(t, http.StatusOK, resp.Code)

	var out orderResponse
	decodeData(t, resp, &out)
	assert.Equal(t, order.OrderNumber, out.OrderNumber)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "gardening", out.Items[0].Category)
}

func TestOrderItemGateCode(t *testing.T) {
	params := map[string]string{"itemId": uuid.NewString()}
	user := identityPtr(auth.UserIdentity(uuid.New()))

	resp := serve(OrderItemGateCode(&stubOrderReader{code: "4521"}, nil), newRequest(http.MethodGet, "/", "", user, params))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "no-store", resp.Header().Get("Cache-Control"))
	var out map[string]string
	decodeData(t, resp, &out)
	assert.Equal(t, "4521", out["code"])

	failed := serve(OrderItemGateCode(&stubOrderReader{err: pkgerrors.New(pkgerrors.CodeDataIntegrity, "gate code could not be decrypted")}, nil), newRequest(http.MethodGet, "/", "", user, params))
	assert.GreaterOrEqual(t, failed.Code, http.StatusInternalServerError)
	assert.NotContains(t, failed.Body.String(), "4521")
}
