package models

import (
	"slices"
	"time"

	"github.com/google/uuid"

	id "amlcore/pkg/domain"
	dErrors "amlcore/pkg/domain-errors"
)

// Status is a SAR workflow state.
type Status string

const (
	StatusDraft            Status = "Draft"
	StatusPendingReview    Status = "PendingReview"
	StatusUnderReview      Status = "UnderReview"
	StatusApprovalRequired Status = "ApprovalRequired"
	StatusApproved         Status = "Approved"
	StatusFiled            Status = "Filed"
	StatusClosed           Status = "Closed"
)

// transitions lists the legal targets of each status. Closed has none.
var transitions = map[Status][]Status{
	StatusDraft:            {StatusPendingReview, StatusApprovalRequired, StatusClosed},
	StatusPendingReview:    {StatusUnderReview, StatusApprovalRequired, StatusClosed},
	StatusUnderReview:      {StatusApprovalRequired, StatusClosed},
	StatusApprovalRequired: {StatusApprovalRequired, StatusApproved, StatusUnderReview, StatusClosed},
	StatusApproved:         {StatusApprovalRequired, StatusFiled, StatusClosed},
	StatusFiled:            {StatusClosed},
}

func (s Status) IsTerminal() bool {
	return s == StatusFiled || s == StatusClosed
}

// IsPending reports whether the report still awaits a filing decision.
// Approved reports are ready to file and not pending.
func (s Status) IsPending() bool {
	switch s {
	case StatusDraft, StatusPendingReview, StatusUnderReview, StatusApprovalRequired:
		return true
	}
	return false
}

func (s Status) CanTransitionTo(to Status) bool {
	return slices.Contains(transitions[s], to)
}

// CanTransition checks a workflow move. Filing has its own check.
// Use with ApplyTransition in Execute callbacks.
func (r *SuspiciousActivityReport) CanTransition(to Status) error {
	if to == StatusFiled {
		return r.CanFile()
	}
	if !r.Status.CanTransitionTo(to) {
		return dErrors.New(dErrors.CodeInvalidState,
			"cannot move SAR from "+string(r.Status)+" to "+string(to))
	}
	return nil
}

// ApplyTransition moves the report to status to and records the step.
// Call CanTransition first.
func (r *SuspiciousActivityReport) ApplyTransition(to Status, actor id.ActorID, comments string, now time.Time) {
	from := r.Status
	r.Status = to
	r.record(from, to, actor, comments, now)
}

// CanFile checks that the report is Approved.
func (r *SuspiciousActivityReport) CanFile() error {
	if r.Status != StatusApproved {
		return dErrors.New(dErrors.CodeFilingNotAllowed, "SAR must be approved before filing")
	}
	return nil
}

// ApplyFiling stamps the filing metadata and moves the report to Filed.
// The deadline is met when the filing time is not after the due date.
func (r *SuspiciousActivityReport) ApplyFiling(confirmation, filedWith string, actor id.ActorID, now time.Time) {
	filedAt := now
	r.FiledAt = &filedAt
	r.ConfirmationNumber = confirmation
	r.FiledWith = filedWith
	r.DeadlineMet = !filedAt.After(r.DueDate)
	r.ApplyTransition(StatusFiled, actor, "Filed with "+filedWith+". Confirmation: "+confirmation, now)
}

// ApplyAssignment assigns the report without changing its status. It is
// legal in every status.
func (r *SuspiciousActivityReport) ApplyAssignment(assignee, actor id.ActorID, now time.Time) {
	at := now
	r.AssignedTo = &assignee
	r.AssignedAt = &at
	r.record(r.Status, r.Status, actor, "Assigned to "+assignee.String(), now)
}

// CanAppend checks that evidence and transactions may still be added.
func (r *SuspiciousActivityReport) CanAppend() error {
	if r.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeInvalidState, "SAR is "+string(r.Status)+" and can no longer be amended")
	}
	return nil
}

// ApplyEvidence appends an evidence item, assigning its ID.
func (r *SuspiciousActivityReport) ApplyEvidence(e Evidence, actor id.ActorID, now time.Time) {
	e.ID = uuid.New()
	e.AddedBy = actor
	e.AddedAt = now
	r.Evidence = append(r.Evidence, e)
	r.UpdatedAt = now
}

// ApplyRelatedTransaction appends a related transaction.
func (r *SuspiciousActivityReport) ApplyRelatedTransaction(t RelatedTransaction, now time.Time) {
	r.RelatedTransactions = append(r.RelatedTransactions, t)
	r.UpdatedAt = now
}
