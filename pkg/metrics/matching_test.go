package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMatchingMetricsExportsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMatchingMetrics(reg)
	m.ObserveSweep(120 * time.Millisecond)
	m.AddOutcome(OutcomeAssigned, 2)
	m.AddOutcome(OutcomeUnmatched, 1)
	m.AddOutcome(OutcomeFailed, 0)
	m.ObserveAssignmentDistance(3.4)
	m.AddExpired(4)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "berry_matching_entries_total", "outcome", OutcomeAssigned); err != nil || got != 2 {
		t.Fatalf("expected assigned=2, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "berry_matching_entries_total", "outcome", OutcomeUnmatched); err != nil || got != 1 {
		t.Fatalf("expected unmatched=1, got %f (%v)", got, err)
	}
	if _, err := fetchCounterValue(mfs, "berry_matching_entries_total", "outcome", OutcomeFailed); err == nil {
		t.Fatalf("zero additions should not create a failed series")
	}
	expired := findMetricFamily(mfs, "berry_matching_entries_expired_total")
	if expired == nil || expired.GetMetric()[0].GetCounter().GetValue() != 4 {
		t.Fatalf("expected expired=4")
	}
}

func TestCheckoutMetricsCountsByMethod(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)
	m.Inc("wallet", "paid")
	m.Inc("wallet", "paid")
	m.Inc("", "failed")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	mf := findMetricFamily(mfs, "berry_checkout_total")
	if mf == nil {
		t.Fatal("checkout metric missing")
	}
	var total float64
	for _, metric := range mf.GetMetric() {
		total += metric.GetCounter().GetValue()
		if hasLabels(metric.GetLabel(), map[string]string{"method": "unknown"}) && metric.GetCounter().GetValue() != 1 {
			t.Fatalf("expected unknown method counted once")
		}
	}
	if total != 3 {
		t.Fatalf("expected 3 checkouts, got %f", total)
	}
}
