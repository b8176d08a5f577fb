package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLabelBoundsPaymentMethods(t *testing.T) {
	cases := map[string]string{
		"wallet":           "wallet",
		" Card ":           "card",
		"BANK":             "bank",
		"":                 unknownLabel,
		"cash":             unknownLabel,
		"wallet'; drop --": unknownLabel,
		"card\x00injected": unknownLabel,
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeLabel(in), "input %q", in)
	}
}

func TestCheckoutMetricsFoldsUnknownMethods(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)
	m.Inc("wallet", "confirmed")
	m.Inc("bitcoin", "rejected")
	m.Inc("dogecoin", "rejected")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	confirmed, err := counterValue(mfs, "berry_checkout_total", map[string]string{"method": "wallet", "result": "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, confirmed)

	unknown, err := counterValue(mfs, "berry_checkout_total", map[string]string{"method": unknownLabel, "result": "rejected"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, unknown)

	mf := findMetricFamily(mfs, "berry_checkout_total")
	require.NotNil(t, mf)
	assert.Len(t, mf.GetMetric(), 2)
}

func TestNilCheckoutMetricsAreNoops(t *testing.T) {
	var m *CheckoutMetrics
	m.Inc("wallet", "confirmed")
	NewCheckoutMetrics(nil).Inc("card", "rejected")
}
