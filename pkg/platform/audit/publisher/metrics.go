package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for ledger publishing.
type Metrics struct {
	Emitted         prometheus.Counter
	Dropped         prometheus.Counter
	PersistFailures prometheus.Counter
	BreakerState    prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with ledger metrics registered.
func NewMetrics() *Metrics {
	return &Metrics{
		Emitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amlcore_ledger_emitted_total",
			Help: "Total number of ledger events accepted for persistence",
		}),
		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amlcore_ledger_dropped_total",
			Help: "Total number of ledger events dropped (buffer full or circuit open)",
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amlcore_ledger_persist_failures_total",
			Help: "Total number of ledger event persistence failures",
		}),
		BreakerState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "amlcore_ledger_circuit_breaker_state",
			Help: "Current ledger circuit breaker state (0=closed, 1=open)",
		}),
	}
}

func (m *Metrics) IncEmitted() {
	if m != nil {
		m.Emitted.Inc()
	}
}

func (m *Metrics) IncDropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

func (m *Metrics) IncPersistFailures() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerState.Set(1)
		return
	}
	m.BreakerState.Set(0)
}
