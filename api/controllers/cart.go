package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/berryevents69/Berry-Events-sub000/api/responses"
	"github.com/berryevents69/Berry-Events-sub000/api/validators"
	"github.com/berryevents69/Berry-Events-sub000/internal/cart"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
)

type addCartItemRequest struct {
	ServiceID      uuid.UUID        `json:"serviceId" validate:"required"`
	ServiceType    string           `json:"serviceType" validate:"required,max=64"`
	Category       string           `json:"category" validate:"required,max=64"`
	ServiceDetails map[string]any   `json:"serviceDetails,omitempty"`
	ScheduledFor   *time.Time       `json:"scheduledFor,omitempty"`
	BasePrice      decimal.Decimal  `json:"basePrice" validate:"gt=0,money"`
	AddOnsPrice    decimal.Decimal  `json:"addOnsPrice" validate:"gte=0,money"`
	Tip            *decimal.Decimal `json:"tip,omitempty" validate:"omitempty,gte=0,money"`
}

type gateCodeRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

// CartFetch returns the caller's active cart, creating it on first use.
func CartFetch(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.GetOrCreateActive(r.Context(), identity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(record))
	}
}

func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.AddItem(r.Context(), identity, cart.AddItemInput{
			ServiceID:      payload.ServiceID,
			ServiceType:    validators.SanitizeString(payload.ServiceType, 64),
			Category:       validators.SanitizeString(payload.Category, 64),
			ServiceDetails: payload.ServiceDetails,
			ScheduledFor:   payload.ScheduledFor,
			BasePrice:      payload.BasePrice,
			AddOnsPrice:    payload.AddOnsPrice,
			Tip:            payload.Tip,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartItemResponse(*item))
	}
}

func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
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
		if err := svc.RemoveItem(r.Context(), identity, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// CartAttachGateCode stores the access code for a cart item. The code is
// never echoed back.
func CartAttachGateCode(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
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
		var payload gateCodeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.AttachGateCode(r.Context(), identity, itemID, payload.Code); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
