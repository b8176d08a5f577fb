package controllers

import (
	"net/http"

	"github.com/berryevents69/Berry-Events-sub000/api/responses"
	"github.com/berryevents69/Berry-Events-sub000/api/validators"
	"github.com/berryevents69/Berry-Events-sub000/internal/geomatch"
	"github.com/berryevents69/Berry-Events-sub000/pkg/geo"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
)

const (
	defaultNearbyLimit = 3
	maxNearbyLimit     = 50
	maxRadiusKm        = 500
)

type locationPingRequest struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	Online    *bool   `json:"online,omitempty"`
}

// ProviderLocationPing records the signed-in provider's current position.
// Omitting online keeps the provider available.
func ProviderLocationPing(svc geomatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload locationPingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		provider, err := svc.ProviderForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		online := payload.Online == nil || *payload.Online
		point := geo.Point{Latitude: payload.Latitude, Longitude: payload.Longitude}
		if err := svc.UpdateLocation(r.Context(), provider.ID, point, online); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ProvidersNearby returns the best ranked providers around a point.
func ProvidersNearby(matcher geomatch.GeoMatcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lat, err := validators.ParseQueryFloat(r, "lat", 0, -90, 90, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lng, err := validators.ParseQueryFloat(r, "lng", 0, -180, 180, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		radius, err := validators.ParseQueryFloat(r, "radiusKm", 0, 0, maxRadiusKm, false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultNearbyLimit, 1, maxNearbyLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ranked, err := matcher.FindNearbyProviders(r.Context(), geo.Point{Latitude: lat, Longitude: lng}, r.URL.Query().Get("serviceType"), radius)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(ranked) > limit {
			ranked = ranked[:limit]
		}
		responses.WriteSuccess(w, map[string]any{"providers": ranked})
	}
}
