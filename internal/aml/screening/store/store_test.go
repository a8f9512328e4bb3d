package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"amlcore/internal/aml/screening/models"
	id "amlcore/pkg/domain"
	"amlcore/pkg/platform/sentinel"
)

// =============================================================================
// Screening Store Test Suite
// =============================================================================
// Justification for unit tests: cache expiry and latest-result selection are
// timing rules that the service tests only observe indirectly.

type ScreeningStoreSuite struct {
	suite.Suite
	ctx   context.Context
	now   time.Time
	cache *InMemoryCache
}

func TestScreeningStoreSuite(t *testing.T) {
	suite.Run(t, new(ScreeningStoreSuite))
}

func (s *ScreeningStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	s.cache = NewInMemoryCache().WithClock(func() time.Time { return s.now })
}

func (s *ScreeningStoreSuite) newResult(identity id.IdentityID, screenedAt time.Time) *models.ScreeningResult {
	return models.NewResult(identity, models.ScreeningTypeSanctions, screenedAt, 24*time.Hour)
}

func (s *ScreeningStoreSuite) TestInMemoryCache() {
	s.Run("miss returns ErrNotFound", func() {
		_, err := s.cache.Get(s.ctx, "sanctions:missing")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("hit returns a copy", func() {
		r := s.newResult(id.IdentityID(uuid.New()), s.now)
		r.SourcesChecked = []string{models.ListOFACSDN}
		s.Require().NoError(s.cache.Set(s.ctx, "k1", r, time.Hour))

		got, err := s.cache.Get(s.ctx, "k1")
		s.Require().NoError(err)
		s.Equal(r.ID, got.ID)

		got.SourcesChecked[0] = "mutated"
		again, err := s.cache.Get(s.ctx, "k1")
		s.Require().NoError(err)
		s.Equal(models.ListOFACSDN, again.SourcesChecked[0])
	})

	s.Run("entry expires after ttl", func() {
		r := s.newResult(id.IdentityID(uuid.New()), s.now)
		s.Require().NoError(s.cache.Set(s.ctx, "k2", r, time.Minute))

		s.now = s.now.Add(time.Minute)
		_, err := s.cache.Get(s.ctx, "k2")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("delete removes keys", func() {
		r := s.newResult(id.IdentityID(uuid.New()), s.now)
		s.Require().NoError(s.cache.Set(s.ctx, "k3", r, time.Hour))
		s.Require().NoError(s.cache.Delete(s.ctx, "k3", "never-set"))
		_, err := s.cache.Get(s.ctx, "k3")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ScreeningStoreSuite) TestInMemoryResultStore() {
	store := NewInMemoryResultStore()
	identity := id.IdentityID(uuid.New())

	older := s.newResult(identity, s.now.Add(-time.Hour))
	newer := s.newResult(identity, s.now)
	s.Require().NoError(store.Save(s.ctx, newer))
	s.Require().NoError(store.Save(s.ctx, older))

	s.Run("latest is the most recently screened", func() {
		got, err := store.LatestForIdentity(s.ctx, identity, models.ScreeningTypeSanctions)
		s.Require().NoError(err)
		s.Equal(newer.ID, got.ID)
	})

	s.Run("latest is per type", func() {
		_, err := store.LatestForIdentity(s.ctx, identity, models.ScreeningTypePEP)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("find by id returns either result", func() {
		got, err := store.FindByID(s.ctx, older.ID)
		s.Require().NoError(err)
		s.Equal(older.ScreenedAt, got.ScreenedAt)
	})

	s.Run("resave replaces stored copy", func() {
		newer.ReviewNotes = "checked"
		s.Require().NoError(store.Save(s.ctx, newer))
		got, err := store.FindByID(s.ctx, newer.ID)
		s.Require().NoError(err)
		s.Equal("checked", got.ReviewNotes)
	})
}

func TestWatchlistStore_Seed(t *testing.T) {
	ctx := context.Background()
	w := NewWatchlistStore()

	assert.Equal(t, []string{models.ListOFACSDN, models.ListUNSC, models.ListEUCons}, w.Lists())

	entries, err := w.SanctionsEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "John Test Sanctioned", entries[0].PrimaryName)
	assert.Equal(t, []string{"j", "john", "johnny", "sanctioned", "test"}, entries[0].SearchTokens)
	require.NotNil(t, entries[0].DateOfBirth)
	assert.Equal(t, "1970-05-15", entries[0].DateOfBirth.Format(time.DateOnly))

	peps, err := w.PEPRecords(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, peps)
}

func TestWatchlistStore_LoadYAML(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces data set", func(t *testing.T) {
		w := NewWatchlistStore()
		err := w.LoadWatchlistYAML([]byte(`
sanctions:
  - list: EU_CONS
    source_id: EU-1
    name: Jean-Luc Placeholder
    entity_type: individual
    date_of_birth: "1980-01-02"
    programs: [EU-TEST]
peps:
  - id: P1
    name: Ana Official
    category: Self
    tier: 1
    relations:
      - id: P2
        type: Spouse
  - id: P2
    name: Ben Official
    category: FamilyMember
    active: false
`))
		require.NoError(t, err)

		entries, err := w.SanctionsEntries(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, models.ListEUCons, entries[0].ListID)
		assert.Equal(t, models.EntityIndividual, entries[0].EntityType)
		assert.Equal(t, []string{"jean", "luc", "placeholder"}, entries[0].SearchTokens)

		peps, err := w.PEPRecords(ctx)
		require.NoError(t, err)
		require.Len(t, peps, 2)
		assert.True(t, peps[0].Active)
		assert.False(t, peps[1].Active)
		assert.Equal(t, []models.Relation{{RecordID: "P2", Type: models.RelationSpouse}}, peps[0].Relations)

		assert.Len(t, w.Lists(), 3)
	})

	t.Run("rejects bad date and keeps previous data", func(t *testing.T) {
		w := NewWatchlistStore()
		err := w.LoadWatchlistYAML([]byte(`
sanctions:
  - list: OFAC_SDN
    name: Someone
    date_of_birth: 15/05/1970
`))
		require.Error(t, err)
		entries, _ := w.SanctionsEntries(ctx)
		assert.Len(t, entries, 2)
	})

	t.Run("rejects unknown pep category", func(t *testing.T) {
		w := NewWatchlistStore()
		err := w.LoadWatchlistYAML([]byte(`
peps:
  - id: P9
    name: Someone
    category: Cousin
`))
		require.Error(t, err)
	})
}
