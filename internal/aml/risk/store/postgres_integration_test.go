//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"amlcore/internal/aml/risk/models"
	id "amlcore/pkg/domain"
	"amlcore/pkg/platform/sentinel"
	"amlcore/pkg/testutil/containers"
)

// =============================================================================
// Risk Profile Postgres Integration Suite
// =============================================================================
// Justification for integration tests: the optimistic version check lives
// in the UPDATE's WHERE clause and the review queries sort in SQL, so only a
// real database proves them.

type PostgresProfileSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresStore
	ctx   context.Context
	now   time.Time
}

func TestPostgresProfileSuite(t *testing.T) {
	suite.Run(t, new(PostgresProfileSuite))
}

func (s *PostgresProfileSuite) SetupSuite() {
	s.pg = containers.GetManager().Postgres(s.T())
	s.store = NewPostgres(s.pg.DB)
	s.ctx = context.Background()
	s.now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
}

func (s *PostgresProfileSuite) SetupTest() {
	s.pg.Truncate(s.T())
}

func (s *PostgresProfileSuite) newProfile(score float64, nextReview time.Time) *models.RiskProfile {
	p := models.NewProfile(id.IdentityID(uuid.New()), s.now)
	p.Score = score
	p.Level = models.LevelForScore(score)
	p.NextReviewAt = nextReview
	p.Version = 1
	return p
}

func (s *PostgresProfileSuite) TestVersionedSave() {
	p := s.newProfile(40, s.now)
	s.Require().NoError(s.store.Save(s.ctx, p, 0))
	s.ErrorIs(s.store.Save(s.ctx, p, 0), sentinel.ErrConflict)

	next := p.Clone()
	next.Version = 2
	next.Score = 75
	next.Level = models.LevelForScore(75)
	s.Require().NoError(s.store.Save(s.ctx, next, 1))

	stale := p.Clone()
	stale.Version = 2
	s.ErrorIs(s.store.Save(s.ctx, stale, 1), sentinel.ErrConflict)

	found, err := s.store.Find(s.ctx, p.IdentityID)
	s.Require().NoError(err)
	s.Equal(2, found.Version)
	s.Equal(75.0, found.Score)
	s.Equal(models.RiskHigh, found.Level)

	_, err = s.store.Find(s.ctx, id.IdentityID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresProfileSuite) TestQueries() {
	low := s.newProfile(20, s.now.Add(-time.Hour))
	high := s.newProfile(70, s.now)
	critical := s.newProfile(85, s.now.Add(time.Hour))
	for _, p := range []*models.RiskProfile{low, high, critical} {
		s.Require().NoError(s.store.Save(s.ctx, p, 0))
	}

	due, err := s.store.DueForReview(s.ctx, s.now)
	s.Require().NoError(err)
	s.Require().Len(due, 2)
	s.Equal(high.IdentityID, due[0].IdentityID)
	s.Equal(low.IdentityID, due[1].IdentityID)

	risky, err := s.store.HighRisk(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(risky, 2)
	s.Equal(critical.IdentityID, risky[0].IdentityID)
	s.Equal(high.IdentityID, risky[1].IdentityID)
}
