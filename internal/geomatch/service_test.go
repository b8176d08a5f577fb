package geomatch

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
	"github.com/berryevents69/Berry-Events-sub000/pkg/geo"
)

type stubSource struct {
	candidates  []Candidate
	serviceType string
	err         error
}

func (s *stubSource) Candidates(_ context.Context, serviceType string) ([]Candidate, error) {
	s.serviceType = serviceType
	return s.candidates, s.err
}

type stubLocations struct {
	saved []models.ProviderLocation
}

func (s *stubLocations) UpsertLocation(_ context.Context, loc models.ProviderLocation) error {
	s.saved = append(s.saved, loc)
	return nil
}

func (s *stubLocations) FindProviderByUserID(context.Context, uuid.UUID) (*models.Provider, error) {
	return nil, nil
}

var sandton = geo.Point{Latitude: -26.1076, Longitude: 28.0567}

func candidateAt(id string, rating string, p geo.Point) Candidate {
	return Candidate{
		ProviderID: uuid.MustParse(id),
		Rating:     decimal.RequireFromString(rating),
		Location:   &p,
	}
}

func newTestService(t *testing.T, source CandidateSource) Service {
	t.Helper()
	svc, err := NewService(source, &stubLocations{}, 0)
	require.NoError(t, err)
	return svc
}

func TestFindNearbyProvidersRadiusBoundary(t *testing.T) {
	far := geo.Point{Latitude: -26.2041, Longitude: 28.0473}
	d := geo.DistanceKm(sandton, far)
	source := &stubSource{candidates: []Candidate{
		candidateAt("00000000-0000-0000-0000-000000000001", "4.50", far),
	}}
	svc := newTestService(t, source)

	got, err := svc.FindNearbyProviders(context.Background(), sandton, "cleaning", d)
	require.NoError(t, err)
	require.Len(t, got, 1, "distance equal to radius is kept")
	assert.InDelta(t, d, got[0].DistanceKm, 1e-9)

	got, err = svc.FindNearbyProviders(context.Background(), sandton, "cleaning", d-0.001)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestFindNearbyProvidersOrdersByScore(t *testing.T) {
	near := geo.Point{Latitude: -26.1080, Longitude: 28.0570}
	mid := geo.Point{Latitude: -26.1500, Longitude: 28.0600}
	source := &stubSource{candidates: []Candidate{
		candidateAt("00000000-0000-0000-0000-00000000000a", "3.00", near),
		candidateAt("00000000-0000-0000-0000-00000000000b", "5.00", mid),
		candidateAt("00000000-0000-0000-0000-00000000000c", "5.00", near),
		{ProviderID: uuid.New(), Rating: decimal.NewFromInt(5)},
	}}
	svc := newTestService(t, source)

	got, err := svc.FindNearbyProviders(context.Background(), sandton, " cleaning ", 0)
	require.NoError(t, err)
	require.Len(t, got, 3, "candidate without a location is dropped")
	assert.Equal(t, "cleaning", source.serviceType)

	assert.Equal(t, uuid.MustParse("00000000-0000-0000-0000-00000000000c"), got[0].ProviderID)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
	assert.InDelta(t, Score(got[0].Rating, got[0].DistanceKm), got[0].Score, 1e-12)
}

func TestFindNearbyProvidersTieBreaksOnLowestID(t *testing.T) {
	spot := geo.Point{Latitude: -26.1100, Longitude: 28.0600}
	low := "11111111-1111-1111-1111-111111111111"
	high := "99999999-9999-9999-9999-999999999999"

	for _, order := range [][]string{{low, high}, {high, low}} {
		source := &stubSource{candidates: []Candidate{
			candidateAt(order[0], "4.00", spot),
			candidateAt(order[1], "4.00", spot),
		}}
		svc := newTestService(t, source)

		got, err := svc.FindNearbyProviders(context.Background(), sandton, "pool", 20)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, low, got[0].ProviderID.String())
		assert.Equal(t, high, got[1].ProviderID.String())
	}
}

func TestFindNearbyProvidersDefaultsRadius(t *testing.T) {
	// ~22km north of Sandton, outside the 20km default.
	outside := geo.Point{Latitude: -25.9100, Longitude: 28.0567}
	inside := geo.Point{Latitude: -26.0000, Longitude: 28.0567}
	source := &stubSource{candidates: []Candidate{
		candidateAt("00000000-0000-0000-0000-000000000001", "5.00", outside),
		candidateAt("00000000-0000-0000-0000-000000000002", "1.00", inside),
	}}
	svc := newTestService(t, source)

	got, err := svc.FindNearbyProviders(context.Background(), sandton, "gardening", -1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "00000000-0000-0000-0000-000000000002", got[0].ProviderID.String())
}

func TestFindNearbyProvidersValidation(t *testing.T) {
	svc := newTestService(t, &stubSource{})

	_, err := svc.FindNearbyProviders(context.Background(), geo.Point{Latitude: 91}, "cleaning", 5)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.FindNearbyProviders(context.Background(), sandton, "  ", 5)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateLocationStampsLastSeen(t *testing.T) {
	locations := &stubLocations{}
	svc, err := NewService(&stubSource{}, locations, 20)
	require.NoError(t, err)

	providerID := uuid.New()
	require.NoError(t, svc.UpdateLocation(context.Background(), providerID, sandton, true))
	require.Len(t, locations.saved, 1)
	assert.Equal(t, providerID, locations.saved[0].ProviderID)
	assert.True(t, locations.saved[0].IsOnline)
	assert.False(t, locations.saved[0].LastSeen.IsZero())

	err = svc.UpdateLocation(context.Background(), providerID, geo.Point{Longitude: 200}, true)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
