package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
)

const unknownLabel = "unknown"

// CheckoutMetrics counts checkout outcomes per payment method.
type CheckoutMetrics struct {
	outcomes *prometheus.CounterVec
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_total",
		Help:      "Checkout attempts by payment method and result.",
	}, []string{"method", "result"})
	reg.MustRegister(outcomes)
	return &CheckoutMetrics{outcomes: outcomes}
}

// Inc counts one checkout. method may be raw client input, so anything that
// is not a known payment method is folded into "unknown".
func (c *CheckoutMetrics) Inc(method, result string) {
	if c == nil || c.outcomes == nil {
		return
	}
	c.outcomes.WithLabelValues(normalizeLabel(method), result).Inc()
}

func normalizeLabel(method string) string {
	m := enums.PaymentMethod(strings.ToLower(strings.TrimSpace(method)))
	if !m.IsValid() {
		return unknownLabel
	}
	return m.String()
}
