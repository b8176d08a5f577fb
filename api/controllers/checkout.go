package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/berryevents69/Berry-Events-sub000/api/responses"
	"github.com/berryevents69/Berry-Events-sub000/api/validators"
	checkoutsvc "github.com/berryevents69/Berry-Events-sub000/internal/checkout"
	"github.com/berryevents69/Berry-Events-sub000/internal/checkout/helpers"
	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
)

type checkoutRequest struct {
	CartID           uuid.UUID `json:"cartId" validate:"required"`
	PaymentMethod    string    `json:"paymentMethod" validate:"required"`
	PaymentReference string    `json:"paymentReference,omitempty" validate:"max=128"`
}

type checkoutResponse struct {
	Order             orderResponse              `json:"order"`
	Pricing           helpers.Pricing            `json:"pricing"`
	WalletTransaction *walletTransactionResponse `json:"walletTransaction,omitempty"`
}

// Checkout settles the caller's cart.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		identity, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), identity, payload.CartID, checkoutsvc.CheckoutInput{
			PaymentMethod:    payload.PaymentMethod,
			PaymentReference: payload.PaymentReference,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := checkoutResponse{
			Order:   newOrderResponse(result.Order),
			Pricing: result.Pricing,
		}
		if result.WalletTransaction != nil {
			txn := newWalletTransactionResponse(result.WalletTransaction)
			resp.WalletTransaction = &txn
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}
