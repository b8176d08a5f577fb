package enums

// PaymentMethod enumerates how a customer settles an order.
type PaymentMethod string

const (
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodBank   PaymentMethod = "bank"
)

var paymentMethods = []PaymentMethod{PaymentMethodWallet, PaymentMethodCard, PaymentMethodBank}

func (p PaymentMethod) String() string { return string(p) }

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool { return known(paymentMethods, p) }

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parse("payment method", paymentMethods, value)
}

// SettlesExternally reports whether funds are captured outside the wallet.
func (p PaymentMethod) SettlesExternally() bool {
	return p == PaymentMethodCard || p == PaymentMethodBank
}
