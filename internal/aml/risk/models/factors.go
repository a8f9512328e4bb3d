package models

import (
	"strings"

	"github.com/shopspring/decimal"

	screening "amlcore/internal/aml/screening/models"
)

// FactorID names one of the fixed risk dimensions.
type FactorID string

const (
	FactorGeography          FactorID = "geography"
	FactorTransactionVolume  FactorID = "transaction_volume"
	FactorPEPStatus          FactorID = "pep_status"
	FactorSanctionsProximity FactorID = "sanctions_proximity"
	FactorBehavioralAnomaly  FactorID = "behavioral_anomaly"
)

// FactorOrder is the order factors appear on a profile.
var FactorOrder = []FactorID{
	FactorGeography,
	FactorTransactionVolume,
	FactorPEPStatus,
	FactorSanctionsProximity,
	FactorBehavioralAnomaly,
}

type factorSpec struct {
	weight   decimal.Decimal
	name     string
	category string
	source   string
}

// The weights sum to exactly 1.
var factorSpecs = map[FactorID]factorSpec{
	FactorGeography:          {decimal.RequireFromString("0.20"), "Geographic Risk", "Location", "Zone Registry"},
	FactorTransactionVolume:  {decimal.RequireFromString("0.15"), "Transaction Volume Risk", "Activity", "Transaction Ledger"},
	FactorPEPStatus:          {decimal.RequireFromString("0.25"), "PEP Status Risk", "PEP", "PEP Screening"},
	FactorSanctionsProximity: {decimal.RequireFromString("0.20"), "Sanctions Proximity Risk", "Sanctions", "Sanctions Screening"},
	FactorBehavioralAnomaly:  {decimal.RequireFromString("0.20"), "Behavioral Anomaly Risk", "Behavior", "Behavioral Analysis"},
}

// ParseFactorID returns the factor for s, or false when s names no factor.
func ParseFactorID(s string) (FactorID, bool) {
	f := FactorID(strings.TrimSpace(s))
	_, ok := factorSpecs[f]
	return f, ok
}

// Weight returns the fixed weight of a factor, zero for unknown IDs.
func Weight(f FactorID) decimal.Decimal {
	return factorSpecs[f].weight
}

// TotalWeight sums the weights of the fixed factor set.
func TotalWeight() decimal.Decimal {
	total := decimal.Zero
	for _, f := range FactorOrder {
		total = total.Add(Weight(f))
	}
	return total
}

// RiskFactor is one scored dimension of a profile. Factors are rebuilt on
// reassessment rather than edited.
type RiskFactor struct {
	ID            FactorID `json:"id"`
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	Weight        float64  `json:"weight"`
	RawScore      float64  `json:"raw_score"`
	WeightedScore float64  `json:"weighted_score"`
	Source        string   `json:"source"`
	Rationale     string   `json:"rationale"`
}

// NewFactor builds a factor from the fixed table. WeightedScore is the exact
// decimal product of weight and raw score.
func NewFactor(f FactorID, raw float64, rationale string) RiskFactor {
	spec := factorSpecs[f]
	return RiskFactor{
		ID:            f,
		Name:          spec.name,
		Category:      spec.category,
		Weight:        spec.weight.InexactFloat64(),
		RawScore:      raw,
		WeightedScore: spec.weight.Mul(decimal.NewFromFloat(raw)).InexactFloat64(),
		Source:        spec.source,
		Rationale:     rationale,
	}
}

// weighted recomputes the factor's contribution from the fixed table.
func (f RiskFactor) weighted() decimal.Decimal {
	return Weight(f.ID).Mul(decimal.NewFromFloat(f.RawScore))
}

var (
	volumeHigh     = decimal.NewFromInt(100_000)
	volumeModerate = decimal.NewFromInt(50_000)
)

const countModerate = 100

// GeographyFactor scores 80 for a high-risk zone, 60 for a high-risk country
// connection, otherwise 20. Zones compare case-insensitively.
func GeographyFactor(zone string, highRiskZones []string, highRiskConnection bool) RiskFactor {
	normalized := strings.ToLower(strings.TrimSpace(zone))
	for _, z := range highRiskZones {
		if normalized != "" && strings.ToLower(strings.TrimSpace(z)) == normalized {
			return NewFactor(FactorGeography, 80, "Zone '"+zone+"' is classified as high-risk")
		}
	}
	if highRiskConnection {
		return NewFactor(FactorGeography, 60, "Has connections to high-risk countries")
	}
	return NewFactor(FactorGeography, 20, "Standard zone with no high-risk connections")
}

// TransactionFactor scores 30-day activity.
func TransactionFactor(volume30d decimal.Decimal, count30d int) RiskFactor {
	switch {
	case volume30d.GreaterThan(volumeHigh):
		return NewFactor(FactorTransactionVolume, 80, "High transaction volume")
	case volume30d.GreaterThan(volumeModerate) || count30d > countModerate:
		return NewFactor(FactorTransactionVolume, 50, "Moderate transaction activity")
	default:
		return NewFactor(FactorTransactionVolume, 20, "Normal transaction activity")
	}
}

// PEPFactor scores 100 for a confirmed or near-certain PEP match, 70 for any
// other open match and 0 otherwise.
func PEPFactor(result *screening.ScreeningResult) RiskFactor {
	switch {
	case result == nil || result.Status == screening.StatusError:
		return NewFactor(FactorPEPStatus, 0, "No PEP screening available")
	case result.Status == screening.StatusFalsePositive || !result.HasMatches():
		return NewFactor(FactorPEPStatus, 0, "No PEP matches found")
	case result.Status == screening.StatusConfirmedMatch || result.HighestScore() >= screening.ManualReviewScore:
		return NewFactor(FactorPEPStatus, 100, "Confirmed PEP match")
	default:
		return NewFactor(FactorPEPStatus, 70, "Potential PEP match requiring review")
	}
}

// SanctionsFactor scores 100 for a confirmed match, 80 for any open match
// and 0 otherwise.
func SanctionsFactor(result *screening.ScreeningResult) RiskFactor {
	switch {
	case result == nil || result.Status == screening.StatusError:
		return NewFactor(FactorSanctionsProximity, 0, "No sanctions screening available")
	case result.Status == screening.StatusConfirmedMatch:
		return NewFactor(FactorSanctionsProximity, 100, "Confirmed sanctions match")
	case result.Status == screening.StatusFalsePositive || !result.HasMatches():
		return NewFactor(FactorSanctionsProximity, 0, "No sanctions matches found")
	default:
		return NewFactor(FactorSanctionsProximity, 80, "Potential sanctions match requiring review")
	}
}

// BehavioralFactor passes the external anomaly score through unchanged.
func BehavioralFactor(anomalyScore float64) RiskFactor {
	rationale := "Normal behavioral patterns"
	switch {
	case anomalyScore > 70:
		rationale = "High behavioral anomaly detected"
	case anomalyScore > 40:
		rationale = "Moderate behavioral patterns of concern"
	}
	return NewFactor(FactorBehavioralAnomaly, anomalyScore, rationale)
}

// CompositeScore is the exact weighted sum of factors. It is never rounded
// before a level is derived from it.
func CompositeScore(factors []RiskFactor) float64 {
	total := decimal.Zero
	for _, f := range factors {
		total = total.Add(f.weighted())
	}
	return total.InexactFloat64()
}
