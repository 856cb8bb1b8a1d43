package scheduling

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeVerified = "verified"
	OutcomeShort    = "short"
	OutcomeFallback = "fallback"
)

// Metrics reports heuristic activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	searches    *prometheus.CounterVec
	storeErrors *prometheus.CounterVec
	estimates   prometheus.Histogram
	predictions prometheus.Histogram
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// DefaultMetrics returns collectors registered once with the global registry.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics panics on registration errors other than a collector
// already being registered, which it reuses.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotwise",
			Subsystem: "scheduling",
			Name:      "slot_searches_total",
			Help:      "Alternative slot searches by outcome.",
		}, []string{"outcome"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotwise",
			Subsystem: "scheduling",
			Name:      "store_errors_total",
			Help:      "Appointment store failures recovered by a heuristic default.",
		}, []string{"operation"}),
		estimates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "slotwise",
			Subsystem: "scheduling",
			Name:      "duration_estimate_minutes",
			Help:      "Recommended meeting durations.",
			Buckets:   []float64{15, 30, 45, 60, 90, 120, 180, 240},
		}),
		predictions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "slotwise",
			Subsystem: "scheduling",
			Name:      "no_show_probability",
			Help:      "Computed no-show probabilities.",
			Buckets:   prometheus.LinearBuckets(0, 0.05, 11),
		}),
	}

	m.searches = register(reg, m.searches)
	m.storeErrors = register(reg, m.storeErrors)
	m.estimates = register(reg, m.estimates)
	m.predictions = register(reg, m.predictions)
	return m
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return already.ExistingCollector.(T)
		}
		panic(err)
	}
	return c
}

func (m *Metrics) incSearch(outcome string) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) incStoreError(op string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) observeEstimate(minutes int) {
	if m == nil {
		return
	}
	m.estimates.Observe(float64(minutes))
}

func (m *Metrics) observePrediction(p float64) {
	if m == nil {
		return
	}
	m.predictions.Observe(p)
}
