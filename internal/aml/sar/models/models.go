package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	id "amlcore/pkg/domain"
)

// DefaultDeadlineDays is the statutory filing window from creation.
const DefaultDeadlineDays = 30

// Trigger records what caused a SAR to be opened.
type Trigger string

const (
	TriggerSanctionsMatch     Trigger = "SanctionsMatch"
	TriggerPEPMatch           Trigger = "PEPMatch"
	TriggerHighRiskScore      Trigger = "HighRiskScore"
	TriggerUnusualTransaction Trigger = "UnusualTransaction"
	TriggerStructuring        Trigger = "StructuringPattern"
	TriggerManualReferral     Trigger = "ManualReferral"
)

// ActivityType classifies the suspected activity.
type ActivityType string

const (
	ActivityMoneyLaundering    ActivityType = "MoneyLaundering"
	ActivityTerroristFinancing ActivityType = "TerroristFinancing"
	ActivityFraud              ActivityType = "Fraud"
	ActivitySanctionsEvasion   ActivityType = "SanctionsEvasion"
	ActivityStructuring        ActivityType = "Structuring"
	ActivityOther              ActivityType = "Other"
)

type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Evidence is a supporting item attached to a SAR.
type Evidence struct {
	ID          uuid.UUID  `json:"id"`
	Kind        string     `json:"kind" validate:"required,max=64"`
	Description string     `json:"description" validate:"required,max=2000"`
	Reference   string     `json:"reference" validate:"max=256"`
	AddedBy     id.ActorID `json:"added_by"`
	AddedAt     time.Time  `json:"added_at"`
}

// RelatedTransaction is a transaction the report refers to.
type RelatedTransaction struct {
	TransactionID string          `json:"transaction_id" validate:"required,max=128"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency" validate:"required,len=3"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Counterparty  string          `json:"counterparty" validate:"max=200"`
	Description   string          `json:"description" validate:"max=500"`
}

// WorkflowStep is one entry of the append-only workflow history. Assignment
// and creation are recorded with From equal to To.
type WorkflowStep struct {
	From        Status     `json:"from"`
	To          Status     `json:"to"`
	At          time.Time  `json:"at"`
	PerformedBy id.ActorID `json:"performed_by"`
	Comments    string     `json:"comments"`
}

// SuspiciousActivityReport is a regulated case file. It is never deleted.
type SuspiciousActivityReport struct {
	ID                  id.SARID             `json:"id"`
	ReferenceNumber     string               `json:"reference_number"`
	SubjectID           id.IdentityID        `json:"subject_id"`
	SubjectName         string               `json:"subject_name"`
	Trigger             Trigger              `json:"trigger"`
	Type                ActivityType         `json:"type"`
	Priority            Priority             `json:"priority"`
	Status              Status               `json:"status"`
	Narrative           string               `json:"narrative"`
	ActivityDetectedAt  time.Time            `json:"activity_detected_at"`
	CreatedAt           time.Time            `json:"created_at"`
	CreatedBy           id.ActorID           `json:"created_by"`
	AssignedTo          *id.ActorID          `json:"assigned_to,omitempty"`
	AssignedAt          *time.Time           `json:"assigned_at,omitempty"`
	Evidence            []Evidence           `json:"evidence"`
	RelatedTransactions []RelatedTransaction `json:"related_transactions"`
	DueDate             time.Time            `json:"due_date"`
	FiledAt             *time.Time           `json:"filed_at,omitempty"`
	ConfirmationNumber  string               `json:"confirmation_number,omitempty"`
	FiledWith           string               `json:"filed_with,omitempty"`
	DeadlineMet         bool                 `json:"deadline_met"`
	History             []WorkflowStep       `json:"history"`
	UpdatedAt           time.Time            `json:"updated_at"`
	Version             int                  `json:"version"`
}

// NewSAR opens a Draft report due deadlineDays after now.
func NewSAR(req CreateRequest, reference string, now time.Time, deadlineDays int) *SuspiciousActivityReport {
	if deadlineDays <= 0 {
		deadlineDays = DefaultDeadlineDays
	}
	sar := &SuspiciousActivityReport{
		ID:                  id.SARID(uuid.New()),
		ReferenceNumber:     reference,
		SubjectID:           req.SubjectID,
		SubjectName:         req.SubjectName,
		Trigger:             req.Trigger,
		Type:                req.Type,
		Priority:            req.Priority,
		Status:              StatusDraft,
		Narrative:           req.Narrative,
		ActivityDetectedAt:  req.ActivityDetectedAt,
		CreatedAt:           now,
		CreatedBy:           req.CreatedBy,
		Evidence:            []Evidence{},
		RelatedTransactions: slices.Clone(req.RelatedTransactions),
		DueDate:             now.AddDate(0, 0, deadlineDays),
		History:             []WorkflowStep{},
		UpdatedAt:           now,
	}
	if sar.RelatedTransactions == nil {
		sar.RelatedTransactions = []RelatedTransaction{}
	}
	for _, e := range req.Evidence {
		sar.ApplyEvidence(e, req.CreatedBy, now)
	}
	sar.record(StatusDraft, StatusDraft, req.CreatedBy, "SAR created", now)
	return sar
}

// FormatReference renders a reference number from the creation date and a
// store sequence value.
func FormatReference(now time.Time, seq int64) string {
	return fmt.Sprintf("SAR-%s-%05d", now.UTC().Format("20060102"), seq)
}

// IsFiled reports whether the report has been filed with a regulator.
func (r *SuspiciousActivityReport) IsFiled() bool {
	return r.FiledAt != nil
}

// IsOpen reports whether the report is in a non-terminal status.
func (r *SuspiciousActivityReport) IsOpen() bool {
	return !r.Status.IsTerminal()
}

func (r *SuspiciousActivityReport) record(from, to Status, actor id.ActorID, comments string, now time.Time) {
	r.History = append(r.History, WorkflowStep{
		From:        from,
		To:          to,
		At:          now,
		PerformedBy: actor,
		Comments:    comments,
	})
	r.UpdatedAt = now
}

// Clone returns a deep copy.
func (r *SuspiciousActivityReport) Clone() *SuspiciousActivityReport {
	if r == nil {
		return nil
	}
	c := *r
	if r.AssignedTo != nil {
		a := *r.AssignedTo
		c.AssignedTo = &a
	}
	if r.AssignedAt != nil {
		at := *r.AssignedAt
		c.AssignedAt = &at
	}
	if r.FiledAt != nil {
		f := *r.FiledAt
		c.FiledAt = &f
	}
	c.Evidence = slices.Clone(r.Evidence)
	c.RelatedTransactions = slices.Clone(r.RelatedTransactions)
	c.History = slices.Clone(r.History)
	return &c
}
