package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"amlcore/internal/aml/events"
	eventsmemory "amlcore/internal/aml/events/memory"
	"amlcore/internal/aml/risk/models"
	"amlcore/internal/aml/risk/store"
	screening "amlcore/internal/aml/screening/models"
	id "amlcore/pkg/domain"
	dErrors "amlcore/pkg/domain-errors"
	"amlcore/pkg/platform/audit"
	"amlcore/pkg/platform/audit/publisher"
	auditmemory "amlcore/pkg/platform/audit/store/memory"
	"amlcore/pkg/platform/sentinel"
	"amlcore/pkg/requestcontext"
)

// =============================================================================
// Risk Service Test Suite
// =============================================================================
// Justification for unit tests: level transitions drive the
// RiskLevelChanged stream, and the versioned save with a single retry is
// only observable with a store that can be made to conflict on demand.

type RiskServiceSuite struct {
	suite.Suite
	profiles *conflictingStore
	events   *eventsmemory.Recorder
	ledger   *auditmemory.InMemoryStore
	service  *Service
	now      time.Time
	ctx      context.Context
}

func TestRiskServiceSuite(t *testing.T) {
	suite.Run(t, new(RiskServiceSuite))
}

// conflictingStore reports a conflict on the next n saves.
type conflictingStore struct {
	*store.InMemory
	conflicts atomic.Int32
	saves     atomic.Int32
}

func (c *conflictingStore) Save(ctx context.Context, p *models.RiskProfile, expectedVersion int) error {
	c.saves.Add(1)
	if c.conflicts.Load() > 0 {
		c.conflicts.Add(-1)
		return sentinel.ErrConflict
	}
	return c.InMemory.Save(ctx, p, expectedVersion)
}

func (s *RiskServiceSuite) SetupTest() {
	s.profiles = &conflictingStore{InMemory: store.NewInMemory()}
	s.events = eventsmemory.NewRecorder()
	s.ledger = auditmemory.NewInMemoryStore()
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	var err error
	s.service, err = New(s.profiles,
		WithPublisher(s.events),
		WithAuditPublisher(publisher.NewPublisher(s.ledger)),
	)
	s.Require().NoError(err)
}

func (s *RiskServiceSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func confirmedSanctions() *screening.ScreeningResult {
	return &screening.ScreeningResult{
		Status:  screening.StatusConfirmedMatch,
		Matches: []screening.ScreeningMatch{{Score: 100, Status: screening.MatchConfirmed}},
	}
}

// mediumRequest scores 16 + 12 + 0 + 20 + 2 = 50.
func mediumRequest(identityID id.IdentityID) models.AssessmentRequest {
	return models.AssessmentRequest{
		IdentityID:           identityID,
		Zone:                 "external",
		TransactionVolume30d: decimal.NewFromInt(150_000),
		Sanctions:            confirmedSanctions(),
		AnomalyScore:         10,
	}
}

// lowRequest scores 4 + 3 + 0 + 0 + 2 = 9.
func lowRequest(identityID id.IdentityID) models.AssessmentRequest {
	return models.AssessmentRequest{
		IdentityID:   identityID,
		Zone:         "domestic",
		AnomalyScore: 10,
	}
}

func (s *RiskServiceSuite) levelChanges() []events.RiskLevelChanged {
	var out []events.RiskLevelChanged
	for _, e := range s.events.OfType(events.TypeRiskLevelChanged) {
		out = append(out, e.(events.RiskLevelChanged))
	}
	return out
}

// =============================================================================
// Constructor Tests (Invariant Enforcement)
// =============================================================================

func (s *RiskServiceSuite) TestNew() {
	_, err := New(nil)
	s.EqualError(err, "profile store is required")
}

// =============================================================================
// Assessment Tests
// =============================================================================

func (s *RiskServiceSuite) TestCalculateRiskProfile() {
	s.Run("initial medium assessment publishes from Low", func() {
		identityID := id.IdentityID(uuid.New())
		p, err := s.service.CalculateRiskProfile(s.ctx, mediumRequest(identityID))
		s.Require().NoError(err)

		s.Equal(50.0, p.Score)
		s.Equal(models.RiskMedium, p.Level)
		s.Equal(models.DueDiligenceStandard, p.DueDiligence)
		s.Equal(models.AuthEnhanced, p.AuthLevel)
		s.Equal(s.now.AddDate(0, 3, 0), p.NextReviewAt)
		s.True(p.HasSanctionsMatches)
		s.False(p.IsPEP)
		s.Equal(1, p.Version)
		s.Require().Len(p.History, 1)
		s.Equal(models.ReasonInitial, p.History[0].Reason)

		changes := s.levelChanges()
		s.Require().Len(changes, 1)
		s.Equal(events.RiskLevelChanged{
			IdentityID:    identityID,
			PreviousLevel: "Low",
			NewLevel:      "Medium",
			Score:         50,
			Timestamp:     s.now,
		}, changes[0])
	})

	s.Run("initial low assessment publishes nothing", func() {
		s.events.Reset()
		p, err := s.service.CalculateRiskProfile(s.ctx, lowRequest(id.IdentityID(uuid.New())))
		s.Require().NoError(err)
		s.Equal(9.0, p.Score)
		s.Equal(models.RiskLow, p.Level)
		s.Empty(s.events.Events())
	})

	s.Run("reassessment keeps history and notes and bumps the version", func() {
		s.events.Reset()
		identityID := id.IdentityID(uuid.New())
		_, err := s.service.CalculateRiskProfile(s.ctx, lowRequest(identityID))
		s.Require().NoError(err)
		_, err = s.service.AddReviewNote(s.ctx, identityID, id.ActorID(uuid.New()), "customer called in")
		s.Require().NoError(err)

		later := s.now.Add(48 * time.Hour)
		p, err := s.service.CalculateRiskProfile(s.at(later), mediumRequest(identityID))
		s.Require().NoError(err)

		s.Equal(3, p.Version)
		s.Require().Len(p.History, 2)
		s.Equal(models.ReasonInitial, p.History[0].Reason)
		s.Equal(models.ReasonReassessment, p.History[1].Reason)
		s.Equal(later, p.History[1].At)
		s.Require().Len(p.Notes, 1)
		s.Equal(s.now, p.CreatedAt)
		s.Equal(later, p.UpdatedAt)

		changes := s.levelChanges()
		s.Require().Len(changes, 1)
		s.Equal("Low", changes[0].PreviousLevel)
		s.Equal("Medium", changes[0].NewLevel)
	})

	s.Run("reassessment at the same level publishes nothing", func() {
		identityID := id.IdentityID(uuid.New())
		_, err := s.service.CalculateRiskProfile(s.ctx, mediumRequest(identityID))
		s.Require().NoError(err)
		s.events.Reset()

		req := mediumRequest(identityID)
		req.AnomalyScore = 40
		p, err := s.service.CalculateRiskProfile(s.ctx, req)
		s.Require().NoError(err)
		s.Equal(56.0, p.Score)
		s.Empty(s.events.Events())
	})

	s.Run("false-positive screening contributes nothing", func() {
		req := mediumRequest(id.IdentityID(uuid.New()))
		req.Sanctions = &screening.ScreeningResult{
			Status:  screening.StatusFalsePositive,
			Matches: []screening.ScreeningMatch{{Score: 92, Status: screening.MatchFalsePositive}},
		}
		p, err := s.service.CalculateRiskProfile(s.ctx, req)
		s.Require().NoError(err)
		s.Equal(30.0, p.Score)
		s.Equal(models.RiskLow, p.Level)
		s.False(p.HasSanctionsMatches)
	})

	s.Run("high-risk zones compare case-insensitively", func() {
		req := lowRequest(id.IdentityID(uuid.New()))
		req.Zone = "  UNVERIFIED "
		p, err := s.service.CalculateRiskProfile(s.ctx, req)
		s.Require().NoError(err)
		f, ok := p.Factor(models.FactorGeography)
		s.Require().True(ok)
		s.Equal(80.0, f.RawScore)
	})
}

func (s *RiskServiceSuite) TestCalculateRiskProfile_Validation() {
	tests := []struct {
		name   string
		mutate func(*models.AssessmentRequest)
	}{
		{"missing identity", func(r *models.AssessmentRequest) { r.IdentityID = id.IdentityID{} }},
		{"anomaly above 100", func(r *models.AssessmentRequest) { r.AnomalyScore = 100.5 }},
		{"negative anomaly", func(r *models.AssessmentRequest) { r.AnomalyScore = -1 }},
		{"negative count", func(r *models.AssessmentRequest) { r.TransactionCount30d = -3 }},
		{"negative volume", func(r *models.AssessmentRequest) { r.TransactionVolume30d = decimal.NewFromInt(-1) }},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			req := mediumRequest(id.IdentityID(uuid.New()))
			tt.mutate(&req)
			_, err := s.service.CalculateRiskProfile(s.ctx, req)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
		})
	}
	s.Zero(s.profiles.saves.Load())
}

// =============================================================================
// Recalculation and Factor Update Tests
// =============================================================================

func (s *RiskServiceSuite) TestRecalculateRiskScore() {
	s.Run("unknown identity is not found", func() {
		_, err := s.service.RecalculateRiskScore(s.ctx, id.IdentityID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("recomputes from stored factors", func() {
		identityID := id.IdentityID(uuid.New())
		_, err := s.service.CalculateRiskProfile(s.ctx, mediumRequest(identityID))
		s.Require().NoError(err)
		s.events.Reset()

		p, err := s.service.RecalculateRiskScore(s.ctx, identityID)
		s.Require().NoError(err)
		s.Equal(50.0, p.Score)
		s.Equal(2, p.Version)
		s.Require().Len(p.History, 2)
		s.Equal(models.ReasonRecalculated, p.History[1].Reason)
		s.Empty(s.events.Events())
	})
}

func (s *RiskServiceSuite) TestUpdateRiskFactor() {
	identityID := id.IdentityID(uuid.New())
	_, err := s.service.CalculateRiskProfile(s.ctx, mediumRequest(identityID))
	s.Require().NoError(err)
	s.events.Reset()

	s.Run("unknown factor", func() {
		_, err := s.service.UpdateRiskFactor(s.ctx, identityID, "credit_score", 10, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("raw score out of range", func() {
		_, err := s.service.UpdateRiskFactor(s.ctx, identityID, "pep_status", 101, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = s.service.UpdateRiskFactor(s.ctx, identityID, "pep_status", -0.1, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown identity", func() {
		_, err := s.service.UpdateRiskFactor(s.ctx, id.IdentityID(uuid.New()), "pep_status", 50, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("replaces the factor and moves the level", func() {
		p, err := s.service.UpdateRiskFactor(s.ctx, identityID, "pep_status", 100, "confirmed by analyst")
		s.Require().NoError(err)

		s.Equal(75.0, p.Score)
		s.Equal(models.RiskHigh, p.Level)
		s.True(p.IsPEP)
		f, ok := p.Factor(models.FactorPEPStatus)
		s.Require().True(ok)
		s.Equal(0.25, f.Weight)
		s.Equal(25.0, f.WeightedScore)
		s.Equal("confirmed by analyst", f.Rationale)
		s.Equal("Updated factor: pep_status", p.History[len(p.History)-1].Reason)
		s.Len(p.Factors, 5)

		changes := s.levelChanges()
		s.Require().Len(changes, 1)
		s.Equal("Medium", changes[0].PreviousLevel)
		s.Equal("High", changes[0].NewLevel)
		s.Equal(75.0, changes[0].Score)
	})
}

// =============================================================================
// Notes and Queries
// =============================================================================

func (s *RiskServiceSuite) TestAddReviewNote() {
	identityID := id.IdentityID(uuid.New())
	author := id.ActorID(uuid.New())
	before, err := s.service.CalculateRiskProfile(s.ctx, mediumRequest(identityID))
	s.Require().NoError(err)

	s.Run("validates author and text", func() {
		_, err := s.service.AddReviewNote(s.ctx, identityID, id.ActorID{}, "text")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = s.service.AddReviewNote(s.ctx, identityID, author, "   ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown identity", func() {
		_, err := s.service.AddReviewNote(s.ctx, id.IdentityID(uuid.New()), author, "text")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("appends without rescoring", func() {
		p, err := s.service.AddReviewNote(s.ctx, identityID, author, " source of funds verified ")
		s.Require().NoError(err)
		s.Require().Len(p.Notes, 1)
		s.Equal(models.ReviewNote{At: s.now, Author: author, Text: "source of funds verified"}, p.Notes[0])
		s.Equal(before.History, p.History)
		s.Equal(before.Score, p.Score)

		entries, err := s.ledger.ListBySubject(s.ctx, identityID.String())
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(string(audit.EventRiskNoteAdded), entries[0].Action)
		s.Equal(author.String(), entries[0].ActorID)
	})
}

func (s *RiskServiceSuite) TestReviewQueries() {
	medium := id.IdentityID(uuid.New())
	critical := id.IdentityID(uuid.New())
	low := id.IdentityID(uuid.New())

	_, err := s.service.CalculateRiskProfile(s.ctx, mediumRequest(medium))
	s.Require().NoError(err)
	_, err = s.service.CalculateRiskProfile(s.ctx, lowRequest(low))
	s.Require().NoError(err)
	_, err = s.service.CalculateRiskProfile(s.ctx, models.AssessmentRequest{
		IdentityID:           critical,
		Zone:                 "external",
		TransactionVolume30d: decimal.NewFromInt(500_000),
		Sanctions:            confirmedSanctions(),
		PEP:                  confirmedSanctions(),
		AnomalyScore:         90,
	})
	s.Require().NoError(err)

	s.Run("critical profile is due the next day", func() {
		due, err := s.service.IdentitiesRequiringReview(s.at(s.now.AddDate(0, 0, 1)))
		s.Require().NoError(err)
		s.Require().Len(due, 1)
		s.Equal(critical, due[0].IdentityID)
	})

	s.Run("after a quarter the medium profile is due too", func() {
		due, err := s.service.IdentitiesRequiringReview(s.at(s.now.AddDate(0, 3, 0)))
		s.Require().NoError(err)
		s.Require().Len(due, 2)
		s.Equal(critical, due[0].IdentityID)
		s.Equal(medium, due[1].IdentityID)
	})

	s.Run("high risk excludes medium and low", func() {
		hr, err := s.service.HighRiskIdentities(s.ctx, 0)
		s.Require().NoError(err)
		s.Require().Len(hr, 1)
		s.Equal(critical, hr[0].IdentityID)
		s.Equal(models.RiskCritical, hr[0].Level)
	})

	s.Run("get returns the stored profile", func() {
		p, err := s.service.GetRiskProfile(s.ctx, low)
		s.Require().NoError(err)
		s.Equal(models.RiskLow, p.Level)

		_, err = s.service.GetRiskProfile(s.ctx, id.IdentityID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// =============================================================================
// Failure and Concurrency Tests
// =============================================================================

func (s *RiskServiceSuite) TestPublishFailureIsReturnedAfterSave() {
	s.events.FailWith(errors.New("broker down"))
	identityID := id.IdentityID(uuid.New())

	_, err := s.service.CalculateRiskProfile(s.ctx, mediumRequest(identityID))
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable), "got %v", err)

	stored, err := s.service.GetRiskProfile(s.ctx, identityID)
	s.Require().NoError(err)
	s.Equal(models.RiskMedium, stored.Level)
}

func (s *RiskServiceSuite) TestConflictRetry() {
	s.Run("one conflict is retried", func() {
		s.profiles.conflicts.Store(1)
		s.profiles.saves.Store(0)
		p, err := s.service.CalculateRiskProfile(s.ctx, mediumRequest(id.IdentityID(uuid.New())))
		s.Require().NoError(err)
		s.Equal(1, p.Version)
		s.Equal(int32(2), s.profiles.saves.Load())
	})

	s.Run("a second conflict is reported", func() {
		s.profiles.conflicts.Store(2)
		s.profiles.saves.Store(0)
		identityID := id.IdentityID(uuid.New())
		_, err := s.service.CalculateRiskProfile(s.ctx, mediumRequest(identityID))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict), "got %v", err)
		s.Equal(int32(2), s.profiles.saves.Load())

		_, err = s.service.GetRiskProfile(s.ctx, identityID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *RiskServiceSuite) TestConcurrentAssessmentsSerialize() {
	identityID := id.IdentityID(uuid.New())
	const workers = 10

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.CalculateRiskProfile(s.ctx, mediumRequest(identityID))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	p, err := s.service.GetRiskProfile(s.ctx, identityID)
	s.Require().NoError(err)
	s.Equal(workers, p.Version)
	s.Len(p.History, workers)
	s.Len(s.levelChanges(), 1)
}
