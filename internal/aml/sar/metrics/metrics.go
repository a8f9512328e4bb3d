package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the SAR workflow.
type Metrics struct {
	// SARs opened by trigger and priority
	Created *prometheus.CounterVec

	// Workflow transitions by source and target status
	Transitions *prometheus.CounterVec

	// Filings by deadline outcome: "met" or "missed"
	Filings *prometheus.CounterVec

	// Regulator gateway failures
	FilingFailures prometheus.Counter
}

// New creates a new Metrics instance with all SAR metrics registered.
func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amlcore_sars_created_total",
			Help: "Suspicious activity reports opened",
		}, []string{"trigger", "priority"}),

		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amlcore_sar_transitions_total",
			Help: "SAR workflow transitions",
		}, []string{"from", "to"}),

		Filings: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amlcore_sar_filings_total",
			Help: "SAR filings by statutory deadline outcome",
		}, []string{"deadline"}),

		FilingFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amlcore_sar_filing_failures_total",
			Help: "Filing attempts rejected or not delivered by the regulator gateway",
		}),
	}
}

func (m *Metrics) IncCreated(trigger, priority string) {
	if m != nil {
		m.Created.WithLabelValues(trigger, priority).Inc()
	}
}

func (m *Metrics) IncTransition(from, to string) {
	if m != nil {
		m.Transitions.WithLabelValues(from, to).Inc()
	}
}

// IncFiling records a completed filing.
func (m *Metrics) IncFiling(deadlineMet bool) {
	if m == nil {
		return
	}
	outcome := "missed"
	if deadlineMet {
		outcome = "met"
	}
	m.Filings.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncFilingFailure() {
	if m != nil {
		m.FilingFailures.Inc()
	}
}
