// Package ports declares what the screening pipeline needs from the identity
// platform and from the screening and risk engines.
package ports

import (
	"context"
	"time"

	risk "amlcore/internal/aml/risk/models"
	screening "amlcore/internal/aml/screening/models"
	id "amlcore/pkg/domain"
)

// Identity is the subset of an identity record screening needs.
type Identity struct {
	ID            id.IdentityID
	FirstName     string
	MiddleName    string
	LastName      string
	DateOfBirth   *time.Time
	Nationalities []string
	Aliases       []string
	Zone          string
}

// IdentityLookup fetches identities from the identity platform. Unknown
// identities return sentinel.ErrNotFound.
type IdentityLookup interface {
	GetIdentity(ctx context.Context, identityID id.IdentityID) (*Identity, error)
}

// Screener runs watchlist screening.
type Screener interface {
	ScreenForSanctions(ctx context.Context, req screening.ScreeningRequest) (*screening.ScreeningResult, error)
	ScreenForPEP(ctx context.Context, req screening.ScreeningRequest) (*screening.ScreeningResult, error)
}

// RiskAssessor scores an identity from screening results and signals.
type RiskAssessor interface {
	CalculateRiskProfile(ctx context.Context, req risk.AssessmentRequest) (*risk.RiskProfile, error)
}
