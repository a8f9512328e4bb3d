package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for sanctions and PEP screening.
type Metrics struct {
	// Screening outcomes by type and status
	Screenings *prometheus.CounterVec

	// End-to-end screening latency by type, cache hits excluded
	ScreeningLatency *prometheus.HistogramVec

	// Cache lookups by type and outcome
	CacheLookups *prometheus.CounterVec

	// Redis round-trip latency by operation
	CacheLatency *prometheus.HistogramVec

	// Reviewer dispositions by decision
	Reviews *prometheus.CounterVec
}

// New creates a new Metrics instance with all screening metrics registered.
func New() *Metrics {
	return &Metrics{
		Screenings: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amlcore_screenings_total",
			Help: "Total screenings by type and resulting status",
		}, []string{"type", "status"}),

		ScreeningLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "amlcore_screening_duration_seconds",
			Help:    "Duration of live screenings against the watchlists",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"type"}),

		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amlcore_screening_cache_lookups_total",
			Help: "Screening cache lookups by type and outcome",
		}, []string{"type", "outcome"}), // outcome: "hit", "miss", "error", "skipped"

		CacheLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "amlcore_screening_cache_duration_seconds",
			Help:    "Duration of screening cache operations",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}, []string{"operation"}),

		Reviews: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amlcore_screening_reviews_total",
			Help: "Reviewer dispositions on screening matches",
		}, []string{"decision"}),
	}
}

// IncScreening records a screening outcome.
func (m *Metrics) IncScreening(typ, status string) {
	if m != nil {
		m.Screenings.WithLabelValues(typ, status).Inc()
	}
}

// ObserveScreeningLatency records the duration of a live screening.
func (m *Metrics) ObserveScreeningLatency(typ string, d time.Duration) {
	if m != nil {
		m.ScreeningLatency.WithLabelValues(typ).Observe(d.Seconds())
	}
}

// IncCacheLookup records a cache lookup outcome.
func (m *Metrics) IncCacheLookup(typ, outcome string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(typ, outcome).Inc()
	}
}

// ObserveCacheLatency records the duration of a cache round-trip.
func (m *Metrics) ObserveCacheLatency(operation string, d time.Duration) {
	if m != nil {
		m.CacheLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// IncReview records a reviewer decision.
func (m *Metrics) IncReview(decision string) {
	if m != nil {
		m.Reviews.WithLabelValues(decision).Inc()
	}
}
