package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MatchingMetrics tracks the job queue processor.
type MatchingMetrics struct {
	sweepDuration prometheus.Histogram
	outcomes      *prometheus.CounterVec
	distance      prometheus.Histogram
	expired       prometheus.Counter
}

const (
	OutcomeAssigned  = "assigned"
	OutcomeUnmatched = "unmatched"
	OutcomeFailed    = "failed"
)

func NewMatchingMetrics(reg prometheus.Registerer) *MatchingMetrics {
	if reg == nil {
		return &MatchingMetrics{}
	}
	m := &MatchingMetrics{
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "matching_sweep_duration_seconds",
			Help:      "Duration of a job queue sweep.",
			Buckets:   prometheus.DefBuckets,
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matching_entries_total",
			Help:      "Queue entries processed per sweep, by outcome.",
		}, []string{"outcome"}),
		distance: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "matching_assignment_distance_km",
			Help:      "Distance between customer and assigned provider.",
			Buckets:   []float64{1, 2, 5, 10, 15, 20, 30, 50},
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matching_entries_expired_total",
			Help:      "Queue entries that expired without a provider.",
		}),
	}
	reg.MustRegister(m.sweepDuration, m.outcomes, m.distance, m.expired)
	return m
}

func (m *MatchingMetrics) ObserveSweep(d time.Duration) {
	if m == nil || m.sweepDuration == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
}

func (m *MatchingMetrics) AddOutcome(outcome string, n int) {
	if m == nil || m.outcomes == nil || n <= 0 {
		return
	}
	m.outcomes.WithLabelValues(outcome).Add(float64(n))
}

func (m *MatchingMetrics) ObserveAssignmentDistance(km float64) {
	if m == nil || m.distance == nil {
		return
	}
	m.distance.Observe(km)
}

func (m *MatchingMetrics) AddExpired(n int64) {
	if m == nil || m.expired == nil || n <= 0 {
		return
	}
	m.expired.Add(float64(n))
}
