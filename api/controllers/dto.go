package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
)

type bookingResponse struct {
	ID           uuid.UUID  `json:"id"`
	ServiceType  string     `json:"serviceType"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	ProviderID   *uuid.UUID `json:"providerId,omitempty"`
	Status       string     `json:"status"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type assignmentResponse struct {
	BookingID          uuid.UUID  `json:"bookingId"`
	Status             string     `json:"status"`
	Priority           int        `json:"priority"`
	MaxRadiusKm        float64    `json:"maxRadiusKm"`
	AssignedProviderID *uuid.UUID `json:"assignedProviderId,omitempty"`
	AssignedAt         *time.Time `json:"assignedAt,omitempty"`
	ExpiresAt          time.Time  `json:"expiresAt"`
}

type cartItemResponse struct {
	ID             uuid.UUID        `json:"id"`
	ServiceID      uuid.UUID        `json:"serviceId"`
	ServiceType    string           `json:"serviceType"`
	Category       string           `json:"category"`
	ServiceDetails map[string]any   `json:"serviceDetails,omitempty"`
	ScheduledFor   *time.Time       `json:"scheduledFor,omitempty"`
	BasePrice      decimal.Decimal  `json:"basePrice"`
	AddOnsPrice    decimal.Decimal  `json:"addOnsPrice"`
	Subtotal       decimal.Decimal  `json:"subtotal"`
	Tip            *decimal.Decimal `json:"tip,omitempty"`
}

type cartResponse struct {
	ID        uuid.UUID          `json:"id"`
	Status    string             `json:"status"`
	ExpiresAt time.Time          `json:"expiresAt"`
	Items     []cartItemResponse `json:"items"`
}

type orderItemResponse struct {
	ID           uuid.UUID        `json:"id"`
	ServiceID    uuid.UUID        `json:"serviceId"`
	ServiceType  string           `json:"serviceType"`
	Category     string           `json:"category"`
	ScheduledFor *time.Time       `json:"scheduledFor,omitempty"`
	Subtotal     decimal.Decimal  `json:"subtotal"`
	Tip          *decimal.Decimal `json:"tip,omitempty"`
}

type orderResponse struct {
	ID               uuid.UUID           `json:"id"`
	OrderNumber      string              `json:"orderNumber"`
	Subtotal         decimal.Decimal     `json:"subtotal"`
	TipsTotal        decimal.Decimal     `json:"tipsTotal"`
	PlatformFee      decimal.Decimal     `json:"platformFee"`
	Total            decimal.Decimal     `json:"total"`
	PaymentMethod    string              `json:"paymentMethod"`
	PaymentStatus    string              `json:"paymentStatus"`
	Status           string              `json:"status"`
	PaymentReference *string             `json:"paymentReference,omitempty"`
	Items            []orderItemResponse `json:"items"`
	CreatedAt        time.Time           `json:"createdAt"`
}

type walletResponse struct {
	Balance             decimal.Decimal  `json:"balance"`
	Currency            string           `json:"currency"`
	AutoReloadEnabled   bool             `json:"autoReloadEnabled"`
	AutoReloadThreshold *decimal.Decimal `json:"autoReloadThreshold,omitempty"`
	AutoReloadAmount    *decimal.Decimal `json:"autoReloadAmount,omitempty"`
}

type walletTransactionResponse struct {
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balanceBefore"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	Description   *string         `json:"description,omitempty"`
	OrderID       *uuid.UUID      `json:"orderId,omitempty"`
	BookingID     *uuid.UUID      `json:"bookingId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func newBookingResponse(b *models.Booking) bookingResponse {
	return bookingResponse{
		ID:           b.ID,
		ServiceType:  b.ServiceType,
		Latitude:     b.Latitude,
		Longitude:    b.Longitude,
		ProviderID:   b.ProviderID,
		Status:       string(b.Status),
		ScheduledFor: b.ScheduledFor,
		CreatedAt:    b.CreatedAt,
	}
}

func newAssignmentResponse(e *models.JobQueueEntry) assignmentResponse {
	return assignmentResponse{
		BookingID:          e.BookingID,
		Status:             string(e.Status),
		Priority:           e.Priority,
		MaxRadiusKm:        e.MaxRadiusKm,
		AssignedProviderID: e.AssignedProviderID,
		AssignedAt:         e.AssignedAt,
		ExpiresAt:          e.ExpiresAt,
	}
}

func newCartItemResponse(item models.CartItem) cartItemResponse {
	return cartItemResponse{
		ID:             item.ID,
		ServiceID:      item.ServiceID,
		ServiceType:    item.ServiceType,
		Category:       item.Category,
		ServiceDetails: item.ServiceDetails,
		ScheduledFor:   item.ScheduledFor,
		BasePrice:      item.BasePrice,
		AddOnsPrice:    item.AddOnsPrice,
		Subtotal:       item.Subtotal,
		Tip:            item.Tip,
	}
}

func newCartResponse(c *models.Cart) cartResponse {
	items := make([]cartItemResponse, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, newCartItemResponse(item))
	}
	return cartResponse{
		ID:        c.ID,
		Status:    string(c.Status),
		ExpiresAt: c.ExpiresAt,
		Items:     items,
	}
}

func newOrderResponse(o *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{
			ID:           item.ID,
			ServiceID:    item.ServiceID,
			ServiceType:  item.ServiceType,
			Category:     item.Category,
			ScheduledFor: item.ScheduledFor,
			Subtotal:     item.Subtotal,
			Tip:          item.Tip,
		})
	}
	return orderResponse{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		Subtotal:         o.Subtotal,
		TipsTotal:        o.TipsTotal,
		PlatformFee:      o.PlatformFee,
		Total:            o.Total,
		PaymentMethod:    string(o.PaymentMethod),
		PaymentStatus:    string(o.PaymentStatus),
		Status:           string(o.Status),
		PaymentReference: o.PaymentReference,
		Items:            items,
		CreatedAt:        o.CreatedAt,
	}
}

func newWalletResponse(w *models.Wallet) walletResponse {
	return walletResponse{
		Balance:             w.Balance,
		Currency:            w.Currency,
		AutoReloadEnabled:   w.AutoReloadEnabled,
		AutoReloadThreshold: w.AutoReloadThreshold,
		AutoReloadAmount:    w.AutoReloadAmount,
	}
}

func newWalletTransactionResponse(t *models.WalletTransaction) walletTransactionResponse {
	return walletTransactionResponse{
		ID:            t.ID,
		Type:          string(t.Type),
		Status:        string(t.Status),
		Amount:        t.Amount,
		BalanceBefore: t.BalanceBefore,
		BalanceAfter:  t.BalanceAfter,
		Description:   t.Description,
		OrderID:       t.OrderID,
		BookingID:     t.BookingID,
		CreatedAt:     t.CreatedAt,
	}
}
