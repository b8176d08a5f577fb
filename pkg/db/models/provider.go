package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Provider is a service professional that can be matched to bookings.
type Provider struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	DisplayName string          `gorm:"column:display_name;not null"`
	Rating      decimal.Decimal `gorm:"column:rating;type:numeric(3,2);not null;default:0"`
	Verified    bool            `gorm:"column:verified;not null;default:false"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// ProviderService records one service type a provider offers.
type ProviderService struct {
	ProviderID  uuid.UUID `gorm:"column:provider_id;type:uuid;primaryKey"`
	ServiceType string    `gorm:"column:service_type;primaryKey"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// ProviderLocation holds the latest location ping of a provider. One row per provider.
type ProviderLocation struct {
	ProviderID uuid.UUID `gorm:"column:provider_id;type:uuid;primaryKey"`
	Latitude   float64   `gorm:"column:latitude;not null"`
	Longitude  float64   `gorm:"column:longitude;not null"`
	IsOnline   bool      `gorm:"column:is_online;not null;default:false"`
	LastSeen   time.Time `gorm:"column:last_seen;not null"`
}
