package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/berryevents69/Berry-Events-sub000/api/responses"
	"github.com/berryevents69/Berry-Events-sub000/api/validators"
	"github.com/berryevents69/Berry-Events-sub000/pkg/auth"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
)

type orderReader interface {
	Get(ctx context.Context, identity auth.Identity, orderID uuid.UUID) (*models.Order, error)
	RevealGateCode(ctx context.Context, identity auth.Identity, itemID uuid.UUID) (string, error)
}

func OrderDetail(svc orderReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), identity, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderItemGateCode decrypts the gate code for an order item. Every read is
// audited by the gate code store.
func OrderItemGateCode(svc orderReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		code, err := svc.RevealGateCode(r.Context(), identity, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		responses.WriteSuccess(w, map[string]string{"code": code})
	}
}
