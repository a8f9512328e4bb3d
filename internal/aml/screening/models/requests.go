package models

import (
	"strings"
	"time"

	"amlcore/internal/aml/matching"
	id "amlcore/pkg/domain"
	pkgstrings "amlcore/pkg/platform/strings"
)

// ScreeningRequest carries the identity attributes to screen.
type ScreeningRequest struct {
	IdentityID    id.IdentityID `json:"identity_id"`
	FirstName     string        `json:"first_name" validate:"required,max=100"`
	MiddleName    string        `json:"middle_name" validate:"max=100"`
	LastName      string        `json:"last_name" validate:"required,max=100"`
	DateOfBirth   *time.Time    `json:"date_of_birth"`
	Nationalities []string      `json:"nationalities" validate:"dive,max=3"`
	Aliases       []string      `json:"aliases" validate:"max=20,dive,max=200"`
	UseCache      bool          `json:"use_cache"`
	// SourceLists restricts sanctions screening to these lists. Empty means all.
	SourceLists []string `json:"source_lists" validate:"dive,max=32"`
	// IncludeRelatives keeps family members and close associates in PEP screening.
	IncludeRelatives bool `json:"include_relatives"`
}

// Normalize trims the name fields in place.
func (r *ScreeningRequest) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.MiddleName = strings.TrimSpace(r.MiddleName)
	r.LastName = strings.TrimSpace(r.LastName)
}

// CandidateNames returns the names to compare against watchlist entries:
// "first last", "first middle last" when a middle name is present, and every
// alias. Spellings that normalize to the same form appear once.
func (r ScreeningRequest) CandidateNames() []string {
	names := []string{r.FirstName + " " + r.LastName}
	if r.MiddleName != "" {
		names = append(names, r.FirstName+" "+r.MiddleName+" "+r.LastName)
	}
	names = append(names, r.Aliases...)
	return pkgstrings.DedupeBy(names, matching.Normalize)
}

// IncludesList reports whether listID passes the request's source-list filter.
func (r ScreeningRequest) IncludesList(listID string) bool {
	if len(r.SourceLists) == 0 {
		return true
	}
	for _, l := range r.SourceLists {
		if strings.EqualFold(strings.TrimSpace(l), listID) {
			return true
		}
	}
	return false
}
