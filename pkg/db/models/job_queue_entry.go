package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
)

// JobQueueEntry is a booking waiting for a provider. Rows are never deleted.
type JobQueueEntry struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	BookingID          uuid.UUID       `gorm:"column:booking_id;type:uuid;not null;uniqueIndex"`
	ServiceType        string          `gorm:"column:service_type;not null"`
	CustomerLatitude   float64         `gorm:"column:customer_latitude;not null"`
	CustomerLongitude  float64         `gorm:"column:customer_longitude;not null"`
	MaxRadiusKm        float64         `gorm:"column:max_radius_km;not null;default:20"`
	Priority           int             `gorm:"column:priority;not null;default:3"`
	Status             enums.JobStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	AssignedProviderID *uuid.UUID      `gorm:"column:assigned_provider_id;type:uuid"`
	AssignedAt         *time.Time      `gorm:"column:assigned_at"`
	CreatedAt          time.Time       `gorm:"column:created_at;not null"`
	ExpiresAt          time.Time       `gorm:"column:expires_at;not null"`
}

func (JobQueueEntry) TableName() string { return "job_queue" }
