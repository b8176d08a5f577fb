package geomatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/geo"
)

// Candidate is a provider eligible for a service type, with its last known position.
type Candidate struct {
	ProviderID  uuid.UUID
	UserID      uuid.UUID
	DisplayName string
	Rating      decimal.Decimal
	Location    *geo.Point
}

// CandidateSource yields verified, online providers offering a service type.
type CandidateSource interface {
	Candidates(ctx context.Context, serviceType string) ([]Candidate, error)
}

// LocationStore persists provider location pings.
type LocationStore interface {
	UpsertLocation(ctx context.Context, loc models.ProviderLocation) error
	FindProviderByUserID(ctx context.Context, userID uuid.UUID) (*models.Provider, error)
}

type Repository struct {
	db *gorm.DB
}

// NewRepository returns the gorm-backed candidate source and location store.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type candidateRow struct {
	ProviderID  uuid.UUID
	UserID      uuid.UUID
	DisplayName string
	Rating      decimal.Decimal
	Latitude    *float64
	Longitude   *float64
}

func (r *Repository) Candidates(ctx context.Context, serviceType string) ([]Candidate, error) {
	var rows []candidateRow
	err := r.db.WithContext(ctx).
		Table("providers AS p").
		Select("p.id AS provider_id, p.user_id, p.display_name, p.rating, pl.latitude, pl.longitude").
		Joins("JOIN provider_services ps ON ps.provider_id = p.id AND ps.service_type = ?", serviceType).
		Joins("JOIN provider_locations pl ON pl.provider_id = p.id").
		Where("p.verified = ? AND pl.is_online = ?", true, true).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		c := Candidate{
			ProviderID:  row.ProviderID,
			UserID:      row.UserID,
			DisplayName: row.DisplayName,
			Rating:      row.Rating,
		}
		if row.Latitude != nil && row.Longitude != nil {
			c.Location = &geo.Point{Latitude: *row.Latitude, Longitude: *row.Longitude}
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *Repository) UpsertLocation(ctx context.Context, loc models.ProviderLocation) error {
	if loc.LastSeen.IsZero() {
		loc.LastSeen = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"latitude", "longitude", "is_online", "last_seen"}),
		}).
		Create(&loc).Error
}

func (r *Repository) FindProviderByUserID(ctx context.Context, userID uuid.UUID) (*models.Provider, error) {
	var provider models.Provider
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&provider).Error; err != nil {
		return nil, err
	}
	return &provider, nil
}
