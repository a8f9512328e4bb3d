package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for risk assessment.
type Metrics struct {
	// Completed assessments by resulting level and operation
	Assessments *prometheus.CounterVec

	// Level transitions by previous and new level
	LevelChanges *prometheus.CounterVec

	// Optimistic save conflicts by outcome: "retried" or "exhausted"
	Conflicts *prometheus.CounterVec

	// Composite score distribution
	Scores prometheus.Histogram
}

// New creates a new Metrics instance with all risk metrics registered.
func New() *Metrics {
	return &Metrics{
		Assessments: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amlcore_risk_assessments_total",
			Help: "Risk profile computations by resulting level",
		}, []string{"level", "operation"}),

		LevelChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amlcore_risk_level_changes_total",
			Help: "Risk level transitions",
		}, []string{"from", "to"}),

		Conflicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amlcore_risk_profile_conflicts_total",
			Help: "Optimistic concurrency conflicts on risk profile saves",
		}, []string{"outcome"}),

		Scores: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "amlcore_risk_score",
			Help:    "Composite risk scores",
			Buckets: []float64{10, 20, 31, 40, 50, 61, 70, 81, 90, 100},
		}),
	}
}

// ObserveAssessment records a completed computation.
func (m *Metrics) ObserveAssessment(level, operation string, score float64) {
	if m == nil {
		return
	}
	m.Assessments.WithLabelValues(level, operation).Inc()
	m.Scores.Observe(score)
}

// IncLevelChange records a level transition.
func (m *Metrics) IncLevelChange(from, to string) {
	if m != nil {
		m.LevelChanges.WithLabelValues(from, to).Inc()
	}
}

// IncConflict records an optimistic conflict.
func (m *Metrics) IncConflict(outcome string) {
	if m != nil {
		m.Conflicts.WithLabelValues(outcome).Inc()
	}
}
