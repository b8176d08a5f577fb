package geomatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
	"github.com/berryevents69/Berry-Events-sub000/pkg/geo"
)

const (
	// DefaultRadiusKm applies when callers pass a non-positive radius.
	DefaultRadiusKm = 20.0

	ratingWeight   = 0.7
	distanceWeight = 0.3
)

// RankedProvider is a candidate that passed the radius filter, with its score.
type RankedProvider struct {
	ProviderID  uuid.UUID       `json:"providerId"`
	UserID      uuid.UUID       `json:"userId"`
	DisplayName string          `json:"displayName"`
	Rating      decimal.Decimal `json:"rating"`
	DistanceKm  float64         `json:"distanceKm"`
	Score       float64         `json:"score"`
}

// GeoMatcher ranks providers for a location and service type.
type GeoMatcher interface {
	FindNearbyProviders(ctx context.Context, location geo.Point, serviceType string, radiusKm float64) ([]RankedProvider, error)
}

// Service ranks providers and records their location pings.
type Service interface {
	GeoMatcher
	UpdateLocation(ctx context.Context, providerID uuid.UUID, point geo.Point, online bool) error
	ProviderForUser(ctx context.Context, userID uuid.UUID) (*models.Provider, error)
}

type service struct {
	source        CandidateSource
	locations     LocationStore
	defaultRadius float64
	now           func() time.Time
}

// NewService wires the ranker. defaultRadiusKm <= 0 falls back to DefaultRadiusKm.
func NewService(source CandidateSource, locations LocationStore, defaultRadiusKm float64) (Service, error) {
	if source == nil {
		return nil, fmt.Errorf("candidate source required")
	}
	if locations == nil {
		return nil, fmt.Errorf("location store required")
	}
	if defaultRadiusKm <= 0 {
		defaultRadiusKm = DefaultRadiusKm
	}
	return &service{
		source:        source,
		locations:     locations,
		defaultRadius: defaultRadiusKm,
		now:           time.Now,
	}, nil
}

func (s *service) FindNearbyProviders(ctx context.Context, location geo.Point, serviceType string, radiusKm float64) ([]RankedProvider, error) {
	if !location.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid location")
	}
	serviceType = strings.TrimSpace(serviceType)
	if serviceType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service type is required")
	}
	if radiusKm <= 0 {
		radiusKm = s.defaultRadius
	}

	candidates, err := s.source.Candidates(ctx, serviceType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load provider candidates")
	}
	return Rank(location, candidates, radiusKm), nil
}

// Rank filters candidates to the radius (inclusive) and orders them by score
// descending, breaking ties by the lowest provider id.
func Rank(location geo.Point, candidates []Candidate, radiusKm float64) []RankedProvider {
	ranked := make([]RankedProvider, 0, len(candidates))
	for _, c := range candidates {
		if c.Location == nil {
			continue
		}
		distance := geo.DistanceKm(location, *c.Location)
		if distance > radiusKm {
			continue
		}
		ranked = append(ranked, RankedProvider{
			ProviderID:  c.ProviderID,
			UserID:      c.UserID,
			DisplayName: c.DisplayName,
			Rating:      c.Rating,
			DistanceKm:  distance,
			Score:       Score(c.Rating, distance),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ProviderID.String() < ranked[j].ProviderID.String()
	})
	return ranked
}

// Score weighs rating against distance: 0.7*rating - 0.3*km.
func Score(rating decimal.Decimal, distanceKm float64) float64 {
	return ratingWeight*rating.InexactFloat64() - distanceWeight*distanceKm
}

func (s *service) UpdateLocation(ctx context.Context, providerID uuid.UUID, point geo.Point, online bool) error {
	if providerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "provider id is required")
	}
	if !point.Valid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid location")
	}
	err := s.locations.UpsertLocation(ctx, models.ProviderLocation{
		ProviderID: providerID,
		Latitude:   point.Latitude,
		Longitude:  point.Longitude,
		IsOnline:   online,
		LastSeen:   s.now().UTC(),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update provider location")
	}
	return nil
}

func (s *service) ProviderForUser(ctx context.Context, userID uuid.UUID) (*models.Provider, error) {
	provider, err := s.locations.FindProviderByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller is not a provider")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load provider")
	}
	return provider, nil
}
