package models

import (
	"time"

	id "amlcore/pkg/domain"
	dErrors "amlcore/pkg/domain-errors"
)

// CanReview checks that the result is in a reviewable state.
func (r *ScreeningResult) CanReview() error {
	if r.Status == StatusError {
		return dErrors.New(dErrors.CodeInvalidState, "cannot review a failed screening")
	}
	if !r.HasMatches() {
		return dErrors.New(dErrors.CodeInvalidState, "screening has no matches to review")
	}
	return nil
}

// ApplyMatchReview sets one match's disposition, records the reviewer and
// recomputes the result status:
//   - any confirmed match makes the result ConfirmedMatch
//   - all matches dismissed makes the result FalsePositive
//   - otherwise the result stays PotentialMatch and review is still required
//     when a pending match scores at or above ReviewScore
func (r *ScreeningResult) ApplyMatchReview(matchID id.MatchID, status MatchStatus, reviewer id.ActorID, notes string, now time.Time) error {
	if err := r.CanReview(); err != nil {
		return err
	}
	if status != MatchConfirmed && status != MatchFalsePositive {
		return dErrors.New(dErrors.CodeInvariantViolation, "review must confirm or dismiss a match")
	}
	idx := -1
	for i := range r.Matches {
		if r.Matches[i].ID == matchID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return dErrors.New(dErrors.CodeNotFound, "match not found")
	}

	r.Matches[idx].Status = status
	r.ReviewedBy = reviewer
	r.ReviewedAt = &now
	r.ReviewNotes = notes
	r.recomputeAfterReview()
	return nil
}

func (r *ScreeningResult) recomputeAfterReview() {
	if r.HasConfirmedMatch() {
		r.Status = StatusConfirmedMatch
		r.RequiresManualReview = false
		return
	}
	if !r.HasOpenMatches() {
		r.Status = StatusFalsePositive
		r.RequiresManualReview = false
		return
	}
	r.Status = StatusPotentialMatch
	highestPending := 0.0
	for _, m := range r.Matches {
		if m.Status == MatchPending {
			highestPending = max(highestPending, m.Score)
		}
	}
	r.RequiresManualReview = highestPending >= ReviewScore
}
