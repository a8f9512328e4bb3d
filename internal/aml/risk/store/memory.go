// Package store persists risk profiles with optimistic versioning.
package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"amlcore/internal/aml/risk/models"
	id "amlcore/pkg/domain"
	"amlcore/pkg/platform/sentinel"
)

// InMemory is a versioned profile store for tests and single-node runs.
type InMemory struct {
	mu       sync.RWMutex
	profiles map[id.IdentityID]*models.RiskProfile
}

func NewInMemory() *InMemory {
	return &InMemory{profiles: make(map[id.IdentityID]*models.RiskProfile)}
}

func (s *InMemory) Find(_ context.Context, identityID id.IdentityID) (*models.RiskProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[identityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p.Clone(), nil
}

// Save writes profile if the stored version equals expectedVersion. An
// expectedVersion of 0 creates the profile and conflicts when one exists.
func (s *InMemory) Save(_ context.Context, profile *models.RiskProfile, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, exists := s.profiles[profile.IdentityID]
	switch {
	case expectedVersion == 0 && exists:
		return sentinel.ErrConflict
	case expectedVersion > 0 && !exists:
		return sentinel.ErrNotFound
	case exists && current.Version != expectedVersion:
		return sentinel.ErrConflict
	}
	s.profiles[profile.IdentityID] = profile.Clone()
	return nil
}

// DueForReview returns profiles whose next review is at or before now,
// highest score first.
func (s *InMemory) DueForReview(_ context.Context, now time.Time) ([]*models.RiskProfile, error) {
	return s.collect(func(p *models.RiskProfile) bool { return p.IsReviewDue(now) }, 0), nil
}

// HighRisk returns up to limit High and Critical profiles, highest score first.
func (s *InMemory) HighRisk(_ context.Context, limit int) ([]*models.RiskProfile, error) {
	return s.collect(func(p *models.RiskProfile) bool { return p.Level.IsHighRisk() }, limit), nil
}

func (s *InMemory) collect(keep func(*models.RiskProfile) bool, limit int) []*models.RiskProfile {
	s.mu.RLock()
	out := make([]*models.RiskProfile, 0)
	for _, p := range s.profiles {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *models.RiskProfile) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.IdentityID.String(), b.IdentityID.String())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
