package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
)

// Booking is a customer's request for a service at a location.
// ProviderID is set exactly once, by the assignment transaction.
type Booking struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID   uuid.UUID           `gorm:"column:customer_id;type:uuid;not null"`
	ServiceType  string              `gorm:"column:service_type;not null"`
	Latitude     float64             `gorm:"column:latitude;not null"`
	Longitude    float64             `gorm:"column:longitude;not null"`
	ProviderID   *uuid.UUID          `gorm:"column:provider_id;type:uuid"`
	Status       enums.BookingStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	ScheduledFor *time.Time          `gorm:"column:scheduled_for"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
