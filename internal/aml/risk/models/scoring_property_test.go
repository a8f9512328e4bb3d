package models

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestScoringProperties verifies that the composite is the weighted sum of
// the five factors and that levels never decrease as the score grows.
func TestScoringProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	raw := gen.Float64Range(0, 100)

	properties.Property("composite equals the weighted sum", prop.ForAll(
		func(geo, tx, pep, sanctions, anomaly float64) bool {
			factors := []RiskFactor{
				NewFactor(FactorGeography, geo, ""),
				NewFactor(FactorTransactionVolume, tx, ""),
				NewFactor(FactorPEPStatus, pep, ""),
				NewFactor(FactorSanctionsProximity, sanctions, ""),
				NewFactor(FactorBehavioralAnomaly, anomaly, ""),
			}
			expected := 0.20*geo + 0.15*tx + 0.25*pep + 0.20*sanctions + 0.20*anomaly
			got := CompositeScore(factors)
			return math.Abs(got-expected) <= 1e-9 && got >= 0 && got <= 100
		},
		raw, raw, raw, raw, raw,
	))

	properties.Property("level is monotonic in score", prop.ForAll(
		func(a, b float64) bool {
			lo, hi := min(a, b), max(a, b)
			return LevelForScore(lo).Rank() <= LevelForScore(hi).Rank()
		},
		raw, raw,
	))

	properties.TestingRun(t)
}
