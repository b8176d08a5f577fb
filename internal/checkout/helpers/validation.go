package helpers

import (
	"github.com/berryevents69/Berry-Events-sub000/pkg/auth"
	"github.com/berryevents69/Berry-Events-sub000/pkg/checkout"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
)

// ValidateCheckoutCart ensures the cart can be settled with the chosen method.
func ValidateCheckoutCart(identity auth.Identity, cart *models.Cart, method enums.PaymentMethod) error {
	if cart == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	if err := checkout.ValidateCartState(cart.Status, len(cart.Items)); err != nil {
		return err
	}
	if method == enums.PaymentMethodWallet && identity.UserID == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "wallet payment requires a signed-in user")
	}
	return nil
}
