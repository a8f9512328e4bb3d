package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	id "amlcore/pkg/domain"
)

// RiskLevel is the step function of the composite score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// DueDiligence is the depth of verification a level requires.
type DueDiligence string

const (
	DueDiligenceStandard      DueDiligence = "Standard"
	DueDiligenceEnhanced      DueDiligence = "Enhanced"
	DueDiligenceComprehensive DueDiligence = "Comprehensive"
)

// AuthLevel is the authentication strength recommended for a level.
type AuthLevel string

const (
	AuthStandard     AuthLevel = "Standard"
	AuthEnhanced     AuthLevel = "Enhanced"
	AuthStepUp       AuthLevel = "StepUp"
	AuthManualReview AuthLevel = "ManualReview"
)

// Monitoring is the review cadence for a level.
type Monitoring string

const (
	MonitoringContinuous Monitoring = "Continuous"
	MonitoringMonthly    Monitoring = "Monthly"
	MonitoringQuarterly  Monitoring = "Quarterly"
	MonitoringAnnual     Monitoring = "Annual"
)

var (
	criticalFrom = decimal.NewFromInt(81)
	highFrom     = decimal.NewFromInt(61)
	mediumFrom   = decimal.NewFromInt(31)
)

// LevelForScore maps a composite score to its level. Cutoffs are inclusive.
func LevelForScore(score float64) RiskLevel {
	s := decimal.NewFromFloat(score)
	switch {
	case s.GreaterThanOrEqual(criticalFrom):
		return RiskCritical
	case s.GreaterThanOrEqual(highFrom):
		return RiskHigh
	case s.GreaterThanOrEqual(mediumFrom):
		return RiskMedium
	default:
		return RiskLow
	}
}

// Rank orders levels from Low (0) to Critical (3).
func (l RiskLevel) Rank() int {
	switch l {
	case RiskCritical:
		return 3
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// IsHighRisk reports whether the level is High or Critical.
func (l RiskLevel) IsHighRisk() bool {
	return l == RiskHigh || l == RiskCritical
}

// Policy is the handling a risk level calls for.
type Policy struct {
	DueDiligence DueDiligence
	AuthLevel    AuthLevel
	Monitoring   Monitoring
}

// PolicyFor derives the handling policy for a level.
func PolicyFor(level RiskLevel) Policy {
	switch level {
	case RiskCritical:
		return Policy{DueDiligenceComprehensive, AuthManualReview, MonitoringContinuous}
	case RiskHigh:
		return Policy{DueDiligenceEnhanced, AuthStepUp, MonitoringMonthly}
	case RiskMedium:
		return Policy{DueDiligenceStandard, AuthEnhanced, MonitoringQuarterly}
	default:
		return Policy{DueDiligenceStandard, AuthStandard, MonitoringAnnual}
	}
}

// NextReview returns when a profile monitored at m is next due.
func NextReview(m Monitoring, from time.Time) time.Time {
	switch m {
	case MonitoringContinuous:
		return from.AddDate(0, 0, 1)
	case MonitoringMonthly:
		return from.AddDate(0, 1, 0)
	case MonitoringQuarterly:
		return from.AddDate(0, 3, 0)
	default:
		return from.AddDate(1, 0, 0)
	}
}

// ScoreHistoryEntry records one computation of the profile.
type ScoreHistoryEntry struct {
	At     time.Time `json:"at"`
	Score  float64   `json:"score"`
	Level  RiskLevel `json:"level"`
	Reason string    `json:"reason"`
}

// ReviewNote is an analyst annotation on a profile.
type ReviewNote struct {
	At     time.Time  `json:"at"`
	Author id.ActorID `json:"author"`
	Text   string     `json:"text"`
}

const (
	ReasonInitial      = "Initial assessment"
	ReasonReassessment = "Reassessment"
	ReasonRecalculated = "Recalculated"
)

// RiskProfile is the aggregate risk state of one identity. History and Notes
// are append-only.
type RiskProfile struct {
	IdentityID          id.IdentityID       `json:"identity_id"`
	Factors             []RiskFactor        `json:"factors"`
	Score               float64             `json:"score"`
	Level               RiskLevel           `json:"level"`
	DueDiligence        DueDiligence        `json:"due_diligence"`
	AuthLevel           AuthLevel           `json:"auth_level"`
	Monitoring          Monitoring          `json:"monitoring"`
	NextReviewAt        time.Time           `json:"next_review_at"`
	IsPEP               bool                `json:"is_pep"`
	HasSanctionsMatches bool                `json:"has_sanctions_matches"`
	History             []ScoreHistoryEntry `json:"history"`
	Notes               []ReviewNote        `json:"notes"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
	Version             int                 `json:"version"`
}

// NewProfile starts an empty profile. Call Recompute after setting factors.
func NewProfile(identityID id.IdentityID, now time.Time) *RiskProfile {
	return &RiskProfile{
		IdentityID: identityID,
		Level:      RiskLow,
		History:    []ScoreHistoryEntry{},
		Notes:      []ReviewNote{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Factor returns the factor with the given ID.
func (p *RiskProfile) Factor(f FactorID) (RiskFactor, bool) {
	for _, factor := range p.Factors {
		if factor.ID == f {
			return factor, true
		}
	}
	return RiskFactor{}, false
}

// ReplaceFactor swaps in factor, keeping FactorOrder. A factor missing from
// the profile is added.
func (p *RiskProfile) ReplaceFactor(factor RiskFactor) {
	for i := range p.Factors {
		if p.Factors[i].ID == factor.ID {
			p.Factors[i] = factor
			return
		}
	}
	p.Factors = append(p.Factors, factor)
	slices.SortStableFunc(p.Factors, func(a, b RiskFactor) int {
		return slices.Index(FactorOrder, a.ID) - slices.Index(FactorOrder, b.ID)
	})
}

// Recompute derives score, level, policy and flags from the current factors
// and appends one history entry. It returns the level held before.
func (p *RiskProfile) Recompute(now time.Time, reason string) RiskLevel {
	previous := p.Level
	p.Score = CompositeScore(p.Factors)
	p.Level = LevelForScore(p.Score)

	policy := PolicyFor(p.Level)
	p.DueDiligence = policy.DueDiligence
	p.AuthLevel = policy.AuthLevel
	p.Monitoring = policy.Monitoring
	p.NextReviewAt = NextReview(policy.Monitoring, now)

	pep, _ := p.Factor(FactorPEPStatus)
	sanctions, _ := p.Factor(FactorSanctionsProximity)
	p.IsPEP = pep.RawScore > 0
	p.HasSanctionsMatches = sanctions.RawScore > 50

	p.UpdatedAt = now
	p.History = append(p.History, ScoreHistoryEntry{At: now, Score: p.Score, Level: p.Level, Reason: reason})
	return previous
}

// AddNote appends an analyst note.
func (p *RiskProfile) AddNote(author id.ActorID, text string, now time.Time) {
	p.Notes = append(p.Notes, ReviewNote{At: now, Author: author, Text: text})
	p.UpdatedAt = now
}

// IsReviewDue reports whether the next review date has passed.
func (p *RiskProfile) IsReviewDue(now time.Time) bool {
	return !p.NextReviewAt.After(now)
}

// Clone returns a deep copy.
func (p *RiskProfile) Clone() *RiskProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.Factors = slices.Clone(p.Factors)
	c.History = slices.Clone(p.History)
	c.Notes = slices.Clone(p.Notes)
	return &c
}
