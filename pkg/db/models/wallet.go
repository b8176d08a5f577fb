package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
)

// Wallet holds a user's stored balance. The database rejects negative balances.
type Wallet struct {
	ID                  uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	UserID              uuid.UUID        `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Balance             decimal.Decimal  `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	Currency            string           `gorm:"column:currency;not null;default:'ZAR'"`
	AutoReloadEnabled   bool             `gorm:"column:auto_reload_enabled;not null;default:false"`
	AutoReloadThreshold *decimal.Decimal `gorm:"column:auto_reload_threshold;type:numeric(12,2)"`
	AutoReloadAmount    *decimal.Decimal `gorm:"column:auto_reload_amount;type:numeric(12,2)"`
	CreatedAt           time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// WalletTransaction is an append-only ledger row.
type WalletTransaction struct {
	ID              uuid.UUID                     `gorm:"column:id;type:uuid;primaryKey"`
	WalletID        uuid.UUID                     `gorm:"column:wallet_id;type:uuid;not null"`
	UserID          uuid.UUID                     `gorm:"column:user_id;type:uuid;not null"`
	Type            enums.WalletTransactionType   `gorm:"column:type;type:text;not null"`
	Status          enums.WalletTransactionStatus `gorm:"column:status;type:text;not null"`
	Amount          decimal.Decimal               `gorm:"column:amount;type:numeric(12,2);not null"`
	BalanceBefore   decimal.Decimal               `gorm:"column:balance_before;type:numeric(12,2);not null"`
	BalanceAfter    decimal.Decimal               `gorm:"column:balance_after;type:numeric(12,2);not null"`
	Description     *string                       `gorm:"column:description"`
	BookingID       *uuid.UUID                    `gorm:"column:booking_id;type:uuid"`
	OrderID         *uuid.UUID                    `gorm:"column:order_id;type:uuid"`
	ServiceID       *uuid.UUID                    `gorm:"column:service_id;type:uuid"`
	PaymentIntentID *string                       `gorm:"column:payment_intent_id"`
	CreatedAt       time.Time                     `gorm:"column:created_at;autoCreateTime"`
}
