// Package checkout holds checkout rules shared by the API layer and the
// settlement orchestrator.
package checkout

import (
	"strings"

	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
)

// ParsePaymentMethod normalizes and validates a requested payment method.
func ParsePaymentMethod(raw string) (enums.PaymentMethod, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	}
	method, err := enums.ParsePaymentMethod(value)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported payment method").WithDetails(map[string]any{
			"allowed": []enums.PaymentMethod{enums.PaymentMethodWallet, enums.PaymentMethodCard, enums.PaymentMethodBank},
		})
	}
	return method, nil
}

// ValidateCartState rejects carts that are closed or empty.
func ValidateCartState(status enums.CartStatus, itemCount int) error {
	if status != enums.CartStatusActive {
		return pkgerrors.New(pkgerrors.CodeConflict, "cart is not active").WithDetails(map[string]any{
			"status": status,
		})
	}
	if itemCount == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	return nil
}
