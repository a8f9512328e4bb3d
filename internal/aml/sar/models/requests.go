package models

import (
	"strings"
	"time"

	id "amlcore/pkg/domain"
)

// CreateRequest opens a SAR.
type CreateRequest struct {
	SubjectID           id.IdentityID        `json:"subject_id"`
	SubjectName         string               `json:"subject_name" validate:"required,max=200"`
	Trigger             Trigger              `json:"trigger" validate:"required,oneof=SanctionsMatch PEPMatch HighRiskScore UnusualTransaction StructuringPattern ManualReferral"`
	Type                ActivityType         `json:"type" validate:"required,oneof=MoneyLaundering TerroristFinancing Fraud SanctionsEvasion Structuring Other"`
	Priority            Priority             `json:"priority" validate:"required,oneof=Low Medium High Critical"`
	Narrative           string               `json:"narrative" validate:"required,max=20000"`
	ActivityDetectedAt  time.Time            `json:"activity_detected_at" validate:"required"`
	CreatedBy           id.ActorID           `json:"created_by"`
	Evidence            []Evidence           `json:"evidence" validate:"max=100,dive"`
	RelatedTransactions []RelatedTransaction `json:"related_transactions" validate:"max=500,dive"`
}

// Normalize trims free-text fields in place.
func (r *CreateRequest) Normalize() {
	r.SubjectName = strings.TrimSpace(r.SubjectName)
	r.Narrative = strings.TrimSpace(r.Narrative)
}
