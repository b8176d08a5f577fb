package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
)

// Order is the settled form of a cart.
type Order struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string              `gorm:"column:order_number;not null;uniqueIndex"`
	UserID            *uuid.UUID          `gorm:"column:user_id;type:uuid"`
	GuestSessionToken *string             `gorm:"column:guest_session_token"`
	CartID            *uuid.UUID          `gorm:"column:cart_id;type:uuid"`
	Subtotal          decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	TipsTotal         decimal.Decimal     `gorm:"column:tips_total;type:numeric(12,2);not null;default:0"`
	PlatformFee       decimal.Decimal     `gorm:"column:platform_fee;type:numeric(12,2);not null"`
	Total             decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	PaymentMethod     enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus     enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	Status            enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending_payment'"`
	PaymentReference  *string             `gorm:"column:payment_reference"`
	Items             []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is a snapshot of a cart item taken at checkout.
type OrderItem struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID        `gorm:"column:order_id;type:uuid;not null"`
	SourceCartItemID *uuid.UUID       `gorm:"column:source_cart_item_id;type:uuid"`
	ServiceID        uuid.UUID        `gorm:"column:service_id;type:uuid;not null"`
	ServiceType      string           `gorm:"column:service_type;not null"`
	Category         string           `gorm:"column:category;not null"`
	ServiceDetails   map[string]any   `gorm:"column:service_details;type:jsonb;serializer:json"`
	ScheduledFor     *time.Time       `gorm:"column:scheduled_for"`
	BasePrice        decimal.Decimal  `gorm:"column:base_price;type:numeric(12,2);not null"`
	AddOnsPrice      decimal.Decimal  `gorm:"column:add_ons_price;type:numeric(12,2);not null;default:0"`
	Subtotal         decimal.Decimal  `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tip              *decimal.Decimal `gorm:"column:tip;type:numeric(12,2)"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
}
