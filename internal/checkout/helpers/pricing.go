package helpers

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
)

var hundred = decimal.NewFromInt(100)

// Pricing is the money breakdown of a checkout.
type Pricing struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	TipsTotal   decimal.Decimal `json:"tipsTotal"`
	PlatformFee decimal.Decimal `json:"platformFee"`
	Total       decimal.Decimal `json:"total"`
}

// PlatformFee is percent of subtotal rounded half-up to cents.
func PlatformFee(subtotal, percent decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(percent).Div(hundred).Round(2)
}

// ComputePricing sums item subtotals, adds tips only for tip-eligible
// categories and applies the platform fee to the subtotal.
func ComputePricing(items []models.CartItem, feePercent decimal.Decimal, tipCategories []string) Pricing {
	eligible := make(map[string]struct{}, len(tipCategories))
	for _, c := range tipCategories {
		eligible[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}

	subtotal := decimal.Zero
	tips := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Subtotal)
		if item.Tip == nil {
			continue
		}
		if _, ok := eligible[strings.ToLower(item.Category)]; ok {
			tips = tips.Add(*item.Tip)
		}
	}

	subtotal = subtotal.Round(2)
	tips = tips.Round(2)
	fee := PlatformFee(subtotal, feePercent)
	return Pricing{
		Subtotal:    subtotal,
		TipsTotal:   tips,
		PlatformFee: fee,
		Total:       subtotal.Add(tips).Add(fee),
	}
}

// BuildOrderItems snapshots cart items into order items linked back through
// SourceCartItemID.
func BuildOrderItems(items []models.CartItem, tipCategories []string) []models.OrderItem {
	eligible := make(map[string]struct{}, len(tipCategories))
	for _, c := range tipCategories {
		eligible[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}

	out := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		src := item.ID
		oi := models.OrderItem{
			SourceCartItemID: &src,
			ServiceID:        item.ServiceID,
			ServiceType:      item.ServiceType,
			Category:         item.Category,
			ServiceDetails:   item.ServiceDetails,
			ScheduledFor:     item.ScheduledFor,
			BasePrice:        item.BasePrice,
			AddOnsPrice:      item.AddOnsPrice,
			Subtotal:         item.Subtotal,
		}
		if _, ok := eligible[strings.ToLower(item.Category)]; ok && item.Tip != nil {
			tip := *item.Tip
			oi.Tip = &tip
		}
		out = append(out, oi)
	}
	return out
}
