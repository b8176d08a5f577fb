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
	"github.com/berryevents69/Berry-Events-sub000/pkg/realtime"
)

type bookingOwnership interface {
	Assignment(ctx context.Context, customerID, bookingID uuid.UUID) (*models.JobQueueEntry, error)
}

type orderOwnership interface {
	Get(ctx context.Context, identity auth.Identity, orderID uuid.UUID) (*models.Order, error)
}

// serveFunc upgrades the connection and streams a topic.
type serveFunc func(ctx context.Context, b realtime.Broadcaster, logg *logger.Logger, w http.ResponseWriter, r *http.Request, topic string) error

// BookingEvents streams assignment events for a booking the caller owns.
func BookingEvents(hub realtime.Broadcaster, bookings bookingOwnership, logg *logger.Logger) http.HandlerFunc {
	return bookingEvents(hub, bookings, logg, realtime.Serve)
}

func bookingEvents(hub realtime.Broadcaster, bookings bookingOwnership, logg *logger.Logger, serve serveFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookingID, err := validators.ParseUUIDParam(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := bookings.Assignment(r.Context(), userID, bookingID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := serve(r.Context(), hub, logg, w, r, realtime.BookingTopic(bookingID.String())); err != nil && logg != nil {
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "websocket upgrade failed")
		}
	}
}

// OrderEvents streams payment status changes for an order the caller owns.
func OrderEvents(hub realtime.Broadcaster, orders orderOwnership, logg *logger.Logger) http.HandlerFunc {
	return orderEvents(hub, orders, logg, realtime.Serve)
}

func orderEvents(hub realtime.Broadcaster, orders orderOwnership, logg *logger.Logger, serve serveFunc) http.HandlerFunc {
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
		if _, err := orders.Get(r.Context(), identity, orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := serve(r.Context(), hub, logg, w, r, realtime.OrderTopic(orderID.String())); err != nil && logg != nil {
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "websocket upgrade failed")
		}
	}
}
