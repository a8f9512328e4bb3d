package models

import (
	"slices"
	"time"

	"github.com/google/uuid"

	id "amlcore/pkg/domain"
)

// ScreeningType names the watchlist family a result was produced against.
type ScreeningType string

const (
	ScreeningTypeSanctions ScreeningType = "Sanctions"
	ScreeningTypePEP       ScreeningType = "PEP"
)

// ScreeningStatus is the outcome of a screening attempt.
type ScreeningStatus string

const (
	StatusClear          ScreeningStatus = "Clear"
	StatusPotentialMatch ScreeningStatus = "PotentialMatch"
	StatusConfirmedMatch ScreeningStatus = "ConfirmedMatch"
	StatusFalsePositive  ScreeningStatus = "FalsePositive"
	StatusError          ScreeningStatus = "Error"
)

// MatchStatus is the reviewer disposition of a single match.
type MatchStatus string

const (
	MatchPending       MatchStatus = "Pending"
	MatchConfirmed     MatchStatus = "ConfirmedMatch"
	MatchFalsePositive MatchStatus = "FalsePositive"
)

const (
	// ManualReviewScore and above always requires an analyst.
	ManualReviewScore = 95.0
	// ReviewScore and above requires an analyst when no match reaches ManualReviewScore.
	ReviewScore = 90.0
	// LikelyFalsePositiveBelow flags matches whose raw similarity is under this value.
	LikelyFalsePositiveBelow = 0.90
)

// MatchCriteria is one piece of evidence behind a match.
type MatchCriteria struct {
	Field        string  `json:"field"`
	InputValue   string  `json:"input_value"`
	MatchedValue string  `json:"matched_value"`
	Score        float64 `json:"score"`
	Algorithm    string  `json:"algorithm"`
}

// ScreeningMatch is one watchlist entry that matched. It is owned by its
// ScreeningResult.
type ScreeningMatch struct {
	ID                  id.MatchID        `json:"id"`
	SourceList          string            `json:"source_list"`
	SourceID            string            `json:"source_id"`
	MatchedName         string            `json:"matched_name"`
	Aliases             []string          `json:"aliases,omitempty"`
	Score               float64           `json:"score"`
	Category            string            `json:"category"`
	Criteria            []MatchCriteria   `json:"criteria"`
	LikelyFalsePositive bool              `json:"likely_false_positive"`
	Details             map[string]string `json:"details,omitempty"`
	Status              MatchStatus       `json:"status"`
}

// ScreeningResult is one screening attempt against one list family for one identity.
type ScreeningResult struct {
	ID                   id.ScreeningID   `json:"id"`
	IdentityID           id.IdentityID    `json:"identity_id"`
	Type                 ScreeningType    `json:"type"`
	Status               ScreeningStatus  `json:"status"`
	Matches              []ScreeningMatch `json:"matches"`
	SourcesChecked       []string         `json:"sources_checked"`
	ProcessingDuration   time.Duration    `json:"processing_duration"`
	ScreenedAt           time.Time        `json:"screened_at"`
	CacheExpiresAt       time.Time        `json:"cache_expires_at"`
	RequiresManualReview bool             `json:"requires_manual_review"`
	ReviewedBy           id.ActorID       `json:"reviewed_by"`
	ReviewedAt           *time.Time       `json:"reviewed_at,omitempty"`
	ReviewNotes          string           `json:"review_notes,omitempty"`
	ErrorMessage         string           `json:"error_message,omitempty"`
}

// NewResult starts an empty result for a screening run.
func NewResult(identityID id.IdentityID, typ ScreeningType, now time.Time, ttl time.Duration) *ScreeningResult {
	return &ScreeningResult{
		ID:             id.ScreeningID(uuid.New()),
		IdentityID:     identityID,
		Type:           typ,
		Status:         StatusClear,
		Matches:        []ScreeningMatch{},
		ScreenedAt:     now,
		CacheExpiresAt: now.Add(ttl),
	}
}

// HasMatches reports whether any entry matched.
func (r *ScreeningResult) HasMatches() bool {
	return len(r.Matches) > 0
}

// HighestScore returns the best match score, or 0 without matches.
func (r *ScreeningResult) HighestScore() float64 {
	highest := 0.0
	for _, m := range r.Matches {
		highest = max(highest, m.Score)
	}
	return highest
}

// HasOpenMatches reports whether any match has not been dismissed as a
// false positive.
func (r *ScreeningResult) HasOpenMatches() bool {
	for _, m := range r.Matches {
		if m.Status != MatchFalsePositive {
			return true
		}
	}
	return false
}

// HasConfirmedMatch reports whether a reviewer confirmed any match.
func (r *ScreeningResult) HasConfirmedMatch() bool {
	for _, m := range r.Matches {
		if m.Status == MatchConfirmed {
			return true
		}
	}
	return false
}

// DeriveStatus sets Status and RequiresManualReview from the match set of a
// freshly screened result.
func (r *ScreeningResult) DeriveStatus() {
	if !r.HasMatches() {
		r.Status = StatusClear
		r.RequiresManualReview = false
		return
	}
	r.Status = StatusPotentialMatch
	r.RequiresManualReview = r.HighestScore() >= ReviewScore
}

// MarkError records a screening failure.
func (r *ScreeningResult) MarkError(message string) {
	r.Status = StatusError
	r.Matches = []ScreeningMatch{}
	r.RequiresManualReview = false
	r.ErrorMessage = message
}

// IsCacheValid reports whether the cached copy may still be served at now.
func (r *ScreeningResult) IsCacheValid(now time.Time) bool {
	return r.Status != StatusError && now.Before(r.CacheExpiresAt)
}

// Clone returns a deep copy so cached and stored results never alias.
func (r *ScreeningResult) Clone() *ScreeningResult {
	if r == nil {
		return nil
	}
	c := *r
	c.SourcesChecked = slices.Clone(r.SourcesChecked)
	if r.ReviewedAt != nil {
		at := *r.ReviewedAt
		c.ReviewedAt = &at
	}
	c.Matches = make([]ScreeningMatch, len(r.Matches))
	for i, m := range r.Matches {
		m.Aliases = slices.Clone(m.Aliases)
		m.Criteria = slices.Clone(m.Criteria)
		if m.Details != nil {
			details := make(map[string]string, len(m.Details))
			for k, v := range m.Details {
				details[k] = v
			}
			m.Details = details
		}
		c.Matches[i] = m
	}
	return &c
}
