package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
)

// Cart belongs to exactly one of a user or a guest session.
type Cart struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	UserID            *uuid.UUID       `gorm:"column:user_id;type:uuid"`
	GuestSessionToken *string          `gorm:"column:guest_session_token"`
	Status            enums.CartStatus `gorm:"column:status;type:text;not null;default:'active'"`
	ExpiresAt         time.Time        `gorm:"column:expires_at;not null"`
	Items             []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// CartItem is a priced service line inside a cart.
type CartItem struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	CartID         uuid.UUID        `gorm:"column:cart_id;type:uuid;not null"`
	ServiceID      uuid.UUID        `gorm:"column:service_id;type:uuid;not null"`
	ServiceType    string           `gorm:"column:service_type;not null"`
	Category       string           `gorm:"column:category;not null"`
	ServiceDetails map[string]any   `gorm:"column:service_details;type:jsonb;serializer:json"`
	ScheduledFor   *time.Time       `gorm:"column:scheduled_for"`
	BasePrice      decimal.Decimal  `gorm:"column:base_price;type:numeric(12,2);not null"`
	AddOnsPrice    decimal.Decimal  `gorm:"column:add_ons_price;type:numeric(12,2);not null;default:0"`
	Subtotal       decimal.Decimal  `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tip            *decimal.Decimal `gorm:"column:tip;type:numeric(12,2)"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
