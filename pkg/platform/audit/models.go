package audit

import (
	"context"
	"time"
)

// EventCategory classifies ledger events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance: SAR
	// lifecycle steps and reviewer decisions on screening matches.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// Subject is the aggregate the entry belongs to (a SAR ID or identity ID).
	Subject   string
	Action    string
	Reference string // SAR reference number or screening result ID
	ActorID   string
	Reason    string
	RequestID string
}

// AuditEvent names a ledger action.
type AuditEvent string

const (
	EventSARCreated      AuditEvent = "sar_created"
	EventSARTransitioned AuditEvent = "sar_transitioned"
	EventSARAssigned     AuditEvent = "sar_assigned"
	EventSAREvidence     AuditEvent = "sar_evidence_added"
	EventSARTransaction  AuditEvent = "sar_transaction_added"
	EventSARFiled        AuditEvent = "sar_filed"

	EventMatchConfirmed     AuditEvent = "screening_match_confirmed"
	EventMatchFalsePositive AuditEvent = "screening_match_false_positive"

	EventRiskNoteAdded AuditEvent = "risk_note_added"
	EventReportViewed  AuditEvent = "sar_report_generated"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventSARCreated:         CategoryCompliance,
	EventSARTransitioned:    CategoryCompliance,
	EventSARAssigned:        CategoryCompliance,
	EventSAREvidence:        CategoryCompliance,
	EventSARTransaction:     CategoryCompliance,
	EventSARFiled:           CategoryCompliance,
	EventMatchConfirmed:     CategoryCompliance,
	EventMatchFalsePositive: CategoryCompliance,
	EventRiskNoteAdded:      CategoryCompliance,
	EventReportViewed:       CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists ledger events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}
