package controllers

import (
	"net/http"
	"time"

	"github.com/berryevents69/Berry-Events-sub000/api/responses"
	"github.com/berryevents69/Berry-Events-sub000/api/validators"
	"github.com/berryevents69/Berry-Events-sub000/internal/bookings"
	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
	"github.com/berryevents69/Berry-Events-sub000/pkg/geo"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
)

type createBookingRequest struct {
	ServiceType  string     `json:"serviceType" validate:"required,max=64"`
	Latitude     float64    `json:"latitude" validate:"latitude"`
	Longitude    float64    `json:"longitude" validate:"longitude"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
	Priority     int        `json:"priority,omitempty" validate:"omitempty,min=1,max=5"`
	MaxRadiusKm  float64    `json:"maxRadiusKm,omitempty" validate:"omitempty,gt=0,max=500"`
}

type createBookingResponse struct {
	Booking    bookingResponse    `json:"booking"`
	Assignment assignmentResponse `json:"assignment"`
}

// BookingCreate stores a booking and queues it for provider matching.
func BookingCreate(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}
		userID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createBookingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, entry, err := svc.Create(r.Context(), userID, bookings.CreateBookingInput{
			ServiceType:  validators.SanitizeString(payload.ServiceType, 64),
			Location:     geo.Point{Latitude: payload.Latitude, Longitude: payload.Longitude},
			ScheduledFor: payload.ScheduledFor,
			Priority:     payload.Priority,
			MaxRadiusKm:  payload.MaxRadiusKm,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, createBookingResponse{
			Booking:    newBookingResponse(booking),
			Assignment: newAssignmentResponse(entry),
		})
	}
}

// BookingAssignment reports the queue state of the caller's booking.
func BookingAssignment(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
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

		entry, err := svc.Assignment(r.Context(), userID, bookingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newAssignmentResponse(entry))
	}
}
