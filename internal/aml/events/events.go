// Package events defines the integration events the AML core publishes and
// the Publisher port adapters implement.
package events

import (
	"context"
	"time"

	id "amlcore/pkg/domain"
)

// Type names an integration event on the bus.
type Type string

const (
	TypeRiskLevelChanged Type = "aml.risk_level_changed"
	TypeSARCreated       Type = "aml.sar_created"
	TypeSARFiled         Type = "aml.sar_filed"
)

// Event is a JSON-serializable integration event. Key partitions the event
// stream so events for one aggregate stay ordered.
type Event interface {
	EventType() Type
	Key() string
}

// Publisher delivers events. Publish returns once the event is accepted.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// RiskLevelChanged is published whenever a risk profile moves between levels.
type RiskLevelChanged struct {
	IdentityID    id.IdentityID `json:"identityId"`
	PreviousLevel string        `json:"previousLevel"`
	NewLevel      string        `json:"newLevel"`
	Score         float64       `json:"score"`
	Timestamp     time.Time     `json:"timestamp"`
}

func (RiskLevelChanged) EventType() Type { return TypeRiskLevelChanged }
func (e RiskLevelChanged) Key() string   { return e.IdentityID.String() }

// SARCreated is published when a new SAR is opened.
type SARCreated struct {
	SARID           id.SARID      `json:"sarId"`
	ReferenceNumber string        `json:"referenceNumber"`
	SubjectID       id.IdentityID `json:"subjectId"`
	Trigger         string        `json:"trigger"`
	Priority        string        `json:"priority"`
	Timestamp       time.Time     `json:"timestamp"`
}

func (SARCreated) EventType() Type { return TypeSARCreated }
func (e SARCreated) Key() string   { return e.SARID.String() }

// SARFiled is published when a SAR has been filed with the regulator.
type SARFiled struct {
	SARID              id.SARID  `json:"sarId"`
	ReferenceNumber    string    `json:"referenceNumber"`
	ConfirmationNumber string    `json:"confirmationNumber"`
	FiledWith          string    `json:"filedWith"`
	Timestamp          time.Time `json:"timestamp"`
	DeadlineMet        bool      `json:"deadlineMet"`
}

func (SARFiled) EventType() Type { return TypeSARFiled }
func (e SARFiled) Key() string   { return e.SARID.String() }

// Discard is a Publisher that drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
