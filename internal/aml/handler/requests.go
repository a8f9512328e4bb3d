package handler

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"amlcore/internal/aml/orchestrator"
	sar "amlcore/internal/aml/sar/models"
	screening "amlcore/internal/aml/screening/models"
	id "amlcore/pkg/domain"
	dErrors "amlcore/pkg/domain-errors"
)

// maxNotesLen bounds free-text review fields before they reach the ledger.
const maxNotesLen = 2000

// ScreenRequest is the body for POST /aml/screenings/{sanctions,pep}.
type ScreenRequest struct {
	screening.ScreeningRequest
}

func (r *ScreenRequest) Validate() error {
	if r.IdentityID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "identity_id is required")
	}
	return nil
}

// ReviewRequest is the body for match confirmation and false-positive calls.
type ReviewRequest struct {
	Notes string `json:"notes"`
}

func (r *ReviewRequest) Validate() error {
	r.Notes = strings.TrimSpace(r.Notes)
	if len(r.Notes) > maxNotesLen {
		return dErrors.New(dErrors.CodeValidation, "notes must be at most 2000 characters")
	}
	return nil
}

// ScreenIdentityRequest is the body for POST /aml/identities/{id}/screen.
type ScreenIdentityRequest struct {
	orchestrator.Signals
}

func (r *ScreenIdentityRequest) Validate() error {
	if r.TransactionCount30d < 0 {
		return dErrors.New(dErrors.CodeValidation, "transaction_count_30d must not be negative")
	}
	return nil
}

// AssessRequest is the body for POST /aml/risk. Screening results are
// referenced by ID and loaded before scoring.
type AssessRequest struct {
	IdentityID                   string          `json:"identity_id"`
	Zone                         string          `json:"zone"`
	HasHighRiskCountryConnection bool            `json:"has_high_risk_country_connection"`
	TransactionVolume30d         decimal.Decimal `json:"transaction_volume_30d"`
	TransactionCount30d          int             `json:"transaction_count_30d"`
	AnomalyScore                 float64         `json:"anomaly_score"`
	SanctionsResultID            string          `json:"sanctions_result_id"`
	PEPResultID                  string          `json:"pep_result_id"`

	parsedIdentityID id.IdentityID
	parsedSanctions  id.ScreeningID
	parsedPEP        id.ScreeningID
}

func (r *AssessRequest) Validate() error {
	identityID, err := id.ParseIdentityID(r.IdentityID)
	if err != nil {
		return err
	}
	r.parsedIdentityID = identityID
	if strings.TrimSpace(r.SanctionsResultID) != "" {
		if r.parsedSanctions, err = id.ParseScreeningID(r.SanctionsResultID); err != nil {
			return err
		}
	}
	if strings.TrimSpace(r.PEPResultID) != "" {
		if r.parsedPEP, err = id.ParseScreeningID(r.PEPResultID); err != nil {
			return err
		}
	}
	return nil
}

// FactorRequest is the body for PUT /aml/risk/{identityID}/factors/{factorID}.
type FactorRequest struct {
	RawScore  *float64 `json:"raw_score"`
	Rationale string   `json:"rationale"`
}

func (r *FactorRequest) Validate() error {
	if r.RawScore == nil {
		return dErrors.New(dErrors.CodeValidation, "raw_score is required")
	}
	r.Rationale = strings.TrimSpace(r.Rationale)
	return nil
}

// NoteRequest is the body for POST /aml/risk/{identityID}/notes.
type NoteRequest struct {
	Text string `json:"text"`
}

func (r *NoteRequest) Validate() error {
	r.Text = strings.TrimSpace(r.Text)
	if r.Text == "" {
		return dErrors.New(dErrors.CodeValidation, "text is required")
	}
	if len(r.Text) > maxNotesLen {
		return dErrors.New(dErrors.CodeValidation, "text must be at most 2000 characters")
	}
	return nil
}

// CreateSARRequest is the body for POST /aml/sars.
type CreateSARRequest struct {
	sar.CreateRequest
}

func (r *CreateSARRequest) Validate() error {
	if r.SubjectID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "subject_id is required")
	}
	return nil
}

// SARActionRequest is the body for POST /aml/sars/{id}/{action}. Which
// fields apply depends on the action.
type SARActionRequest struct {
	Comment    string `json:"comment"`
	Reason     string `json:"reason"`
	AssigneeID string `json:"assignee_id"`
}

func (r *SARActionRequest) Validate() error {
	r.Comment = strings.TrimSpace(r.Comment)
	r.Reason = strings.TrimSpace(r.Reason)
	if len(r.Comment) > maxNotesLen || len(r.Reason) > maxNotesLen {
		return dErrors.New(dErrors.CodeValidation, "comment and reason must be at most 2000 characters")
	}
	return nil
}

// EvidenceRequest is the body for POST /aml/sars/{id}/evidence.
type EvidenceRequest struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Reference   string `json:"reference"`
}

func (r *EvidenceRequest) Validate() error {
	r.Kind = strings.TrimSpace(r.Kind)
	r.Description = strings.TrimSpace(r.Description)
	r.Reference = strings.TrimSpace(r.Reference)
	return nil
}

func (r *EvidenceRequest) toModel() sar.Evidence {
	return sar.Evidence{Kind: r.Kind, Description: r.Description, Reference: r.Reference}
}

// TransactionRequest is the body for POST /aml/sars/{id}/transactions.
type TransactionRequest struct {
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Counterparty  string          `json:"counterparty"`
	Description   string          `json:"description"`
}

func (r *TransactionRequest) Validate() error {
	r.TransactionID = strings.TrimSpace(r.TransactionID)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	return nil
}

func (r *TransactionRequest) toModel() sar.RelatedTransaction {
	return sar.RelatedTransaction{
		TransactionID: r.TransactionID,
		Amount:        r.Amount,
		Currency:      r.Currency,
		OccurredAt:    r.OccurredAt,
		Counterparty:  r.Counterparty,
		Description:   r.Description,
	}
}
