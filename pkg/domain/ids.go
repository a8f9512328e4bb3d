// Package domain holds typed identifiers shared across bounded contexts.
//
// Each ID wraps a uuid.UUID so that an IdentityID can never be passed where a
// SARID is expected. Parsing happens once at the trust boundary (HTTP handler,
// queue consumer); everything downstream works with the typed value.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "amlcore/pkg/domain-errors"
)

// IdentityID identifies a screened subject on the identity platform.
type IdentityID uuid.UUID

// ScreeningID identifies one screening result.
type ScreeningID uuid.UUID

// MatchID identifies one watchlist match inside a screening result.
type MatchID uuid.UUID

// SARID identifies a suspicious activity report.
type SARID uuid.UUID

// ActorID identifies an analyst, reviewer or system actor performing an action.
type ActorID uuid.UUID

func (id IdentityID) String() string  { return uuid.UUID(id).String() }
func (id ScreeningID) String() string { return uuid.UUID(id).String() }
func (id MatchID) String() string     { return uuid.UUID(id).String() }
func (id SARID) String() string       { return uuid.UUID(id).String() }
func (id ActorID) String() string     { return uuid.UUID(id).String() }

func (id IdentityID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id ScreeningID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id MatchID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id SARID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id ActorID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

func (id IdentityID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id ScreeningID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id MatchID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id SARID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id ActorID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }

func (id *IdentityID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ScreeningID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *MatchID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *SARID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ActorID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }

// ParseIdentityID parses and validates an identity ID.
func ParseIdentityID(s string) (IdentityID, error) {
	u, err := parseUUID(s, "identity ID")
	return IdentityID(u), err
}

// ParseScreeningID parses and validates a screening result ID.
func ParseScreeningID(s string) (ScreeningID, error) {
	u, err := parseUUID(s, "screening ID")
	return ScreeningID(u), err
}

// ParseMatchID parses and validates a match ID.
func ParseMatchID(s string) (MatchID, error) {
	u, err := parseUUID(s, "match ID")
	return MatchID(u), err
}

// ParseSARID parses and validates a SAR ID.
func ParseSARID(s string) (SARID, error) {
	u, err := parseUUID(s, "SAR ID")
	return SARID(u), err
}

// ParseActorID parses and validates an actor ID.
func ParseActorID(s string) (ActorID, error) {
	u, err := parseUUID(s, "actor ID")
	return ActorID(u), err
}

// parseUUID rejects empty, malformed and nil UUIDs with CodeInvalidInput.
func parseUUID(s, label string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
