package models

import (
	"strings"

	"github.com/shopspring/decimal"

	screening "amlcore/internal/aml/screening/models"
	id "amlcore/pkg/domain"
)

// AssessmentRequest carries the signals a risk assessment combines.
type AssessmentRequest struct {
	IdentityID                   id.IdentityID              `json:"identity_id"`
	Zone                         string                     `json:"zone" validate:"max=64"`
	HasHighRiskCountryConnection bool                       `json:"has_high_risk_country_connection"`
	TransactionVolume30d         decimal.Decimal            `json:"transaction_volume_30d"`
	TransactionCount30d          int                        `json:"transaction_count_30d" validate:"gte=0"`
	Sanctions                    *screening.ScreeningResult `json:"sanctions,omitempty"`
	PEP                          *screening.ScreeningResult `json:"pep,omitempty"`
	AnomalyScore                 float64                    `json:"anomaly_score" validate:"gte=0,lte=100"`
}

// Normalize trims the zone in place.
func (r *AssessmentRequest) Normalize() {
	r.Zone = strings.TrimSpace(r.Zone)
}

// Factors scores the request against the fixed factor set.
func (r AssessmentRequest) Factors(highRiskZones []string) []RiskFactor {
	return []RiskFactor{
		GeographyFactor(r.Zone, highRiskZones, r.HasHighRiskCountryConnection),
		TransactionFactor(r.TransactionVolume30d, r.TransactionCount30d),
		PEPFactor(r.PEP),
		SanctionsFactor(r.Sanctions),
		BehavioralFactor(r.AnomalyScore),
	}
}
