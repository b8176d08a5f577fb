package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
)

// BookingQueuedEvent is emitted when a booking enters the matching queue.
type BookingQueuedEvent struct {
	BookingID   uuid.UUID `json:"booking_id"`
	JobID       uuid.UUID `json:"job_id"`
	ServiceType string    `json:"service_type"`
	Priority    int       `json:"priority"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ProviderAssignedEvent is emitted once a provider wins a booking.
type ProviderAssignedEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	JobID      uuid.UUID `json:"job_id"`
	ProviderID uuid.UUID `json:"provider_id"`
	DistanceKm float64   `json:"distance_km"`
	Score      float64   `json:"score"`
	AssignedAt time.Time `json:"assigned_at"`
}

// JobExpiredEvent reports that no provider was found before the queue entry lapsed.
type JobExpiredEvent struct {
	BookingID uuid.UUID `json:"booking_id"`
	JobID     uuid.UUID `json:"job_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

// OrderCreatedEvent signals a cart was converted into an order.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	CartID        *uuid.UUID          `json:"cart_id,omitempty"`
	ItemCount     int                 `json:"item_count"`
	Total         decimal.Decimal     `json:"total"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
}

// OrderStatusChangedEvent carries both the payment and fulfilment status.
type OrderStatusChangedEvent struct {
	OrderID          uuid.UUID           `json:"order_id"`
	PaymentStatus    enums.PaymentStatus `json:"payment_status"`
	Status           enums.OrderStatus   `json:"status"`
	PaymentReference *string             `json:"payment_reference,omitempty"`
}

// WalletPaymentChargedEvent is emitted after a wallet debit for an order or booking.
type WalletPaymentChargedEvent struct {
	WalletID      uuid.UUID       `json:"wallet_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	OrderID       *uuid.UUID      `json:"order_id,omitempty"`
	BookingID     *uuid.UUID      `json:"booking_id,omitempty"`
}

// WalletRefundedEvent is emitted after a refund credit.
type WalletRefundedEvent struct {
	WalletID      uuid.UUID       `json:"wallet_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	OrderID       *uuid.UUID      `json:"order_id,omitempty"`
}
