// Package directory provides an in-process identity directory for local
// runs and tests.
package directory

import (
	"context"
	"slices"
	"sync"

	"amlcore/internal/aml/orchestrator/ports"
	id "amlcore/pkg/domain"
	"amlcore/pkg/platform/sentinel"
)

// Memory is a map-backed ports.IdentityLookup.
type Memory struct {
	mu         sync.RWMutex
	identities map[id.IdentityID]ports.Identity
}

func NewMemory(identities ...ports.Identity) *Memory {
	m := &Memory{identities: make(map[id.IdentityID]ports.Identity)}
	for _, identity := range identities {
		m.Put(identity)
	}
	return m
}

// Put adds or replaces an identity.
func (m *Memory) Put(identity ports.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[identity.ID] = copyIdentity(identity)
}

func (m *Memory) GetIdentity(_ context.Context, identityID id.IdentityID) (*ports.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	identity, ok := m.identities[identityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := copyIdentity(identity)
	return &c, nil
}

func copyIdentity(identity ports.Identity) ports.Identity {
	if identity.DateOfBirth != nil {
		dob := *identity.DateOfBirth
		identity.DateOfBirth = &dob
	}
	identity.Nationalities = slices.Clone(identity.Nationalities)
	identity.Aliases = slices.Clone(identity.Aliases)
	return identity
}
