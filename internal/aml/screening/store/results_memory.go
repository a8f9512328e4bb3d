package store

import (
	"context"
	"sync"

	"amlcore/internal/aml/screening/models"
	id "amlcore/pkg/domain"
	"amlcore/pkg/platform/sentinel"
)

// InMemoryResultStore keeps every screening result for later review.
type InMemoryResultStore struct {
	mu      sync.RWMutex
	results map[id.ScreeningID]*models.ScreeningResult
	latest  map[latestKey]id.ScreeningID
}

type latestKey struct {
	identity id.IdentityID
	typ      models.ScreeningType
}

func NewInMemoryResultStore() *InMemoryResultStore {
	return &InMemoryResultStore{
		results: make(map[id.ScreeningID]*models.ScreeningResult),
		latest:  make(map[latestKey]id.ScreeningID),
	}
}

// Save inserts or replaces a result. The newest ScreenedAt per identity and
// type becomes the latest result.
func (s *InMemoryResultStore) Save(_ context.Context, result *models.ScreeningResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.ID] = result.Clone()

	k := latestKey{identity: result.IdentityID, typ: result.Type}
	if current, ok := s.latest[k]; ok {
		if existing := s.results[current]; existing != nil && existing.ScreenedAt.After(result.ScreenedAt) {
			return nil
		}
	}
	s.latest[k] = result.ID
	return nil
}

func (s *InMemoryResultStore) FindByID(_ context.Context, resultID id.ScreeningID) (*models.ScreeningResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[resultID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *InMemoryResultStore) LatestForIdentity(_ context.Context, identityID id.IdentityID, typ models.ScreeningType) (*models.ScreeningResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resultID, ok := s.latest[latestKey{identity: identityID, typ: typ}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.results[resultID].Clone(), nil
}
