package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"amlcore/internal/aml/risk/models"
	id "amlcore/pkg/domain"
	dErrors "amlcore/pkg/domain-errors"
	"amlcore/pkg/platform/audit"
	"amlcore/pkg/requestcontext"
)

// CalculateRiskProfile scores the request and creates or reassesses the
// identity's profile. History and notes survive a reassessment.
func (s *Service) CalculateRiskProfile(ctx context.Context, req models.AssessmentRequest) (profile *models.RiskProfile, err error) {
	ctx, span := tracer.Start(ctx, "risk.calculate", trace.WithAttributes(
		attribute.String("identity_id", req.IdentityID.String()),
	))
	defer func() { endSpan(span, err) }()

	req.Normalize()
	if req.IdentityID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "identity_id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if req.TransactionVolume30d.IsNegative() {
		return nil, dErrors.New(dErrors.CodeValidation, "transaction_volume_30d must not be negative")
	}

	now := requestcontext.Now(ctx)
	factors := req.Factors(s.highRiskZones)
	profile, previous, err := s.update(ctx, req.IdentityID, func(current *models.RiskProfile) (*models.RiskProfile, error) {
		p, reason := current, models.ReasonReassessment
		if p == nil {
			p, reason = models.NewProfile(req.IdentityID, now), models.ReasonInitial
		}
		p.Factors = factors
		p.Recompute(now, reason)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("risk.level", string(profile.Level)))
	if err := s.afterCompute(ctx, profile, previous, "calculate"); err != nil {
		return profile, err
	}
	return profile, nil
}

// RecalculateRiskScore recomputes the profile from its stored factors.
func (s *Service) RecalculateRiskScore(ctx context.Context, identityID id.IdentityID) (profile *models.RiskProfile, err error) {
	ctx, span := tracer.Start(ctx, "risk.recalculate", trace.WithAttributes(
		attribute.String("identity_id", identityID.String()),
	))
	defer func() { endSpan(span, err) }()

	now := requestcontext.Now(ctx)
	profile, previous, err := s.update(ctx, identityID, func(current *models.RiskProfile) (*models.RiskProfile, error) {
		if current == nil {
			return nil, dErrors.New(dErrors.CodeNotFound, "risk profile not found")
		}
		current.Recompute(now, models.ReasonRecalculated)
		return current, nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.afterCompute(ctx, profile, previous, "recalculate"); err != nil {
		return profile, err
	}
	return profile, nil
}

// UpdateRiskFactor replaces one factor, taking its weight from the fixed
// table, and recomputes the profile.
func (s *Service) UpdateRiskFactor(ctx context.Context, identityID id.IdentityID, factorID string, rawScore float64, rationale string) (profile *models.RiskProfile, err error) {
	ctx, span := tracer.Start(ctx, "risk.update_factor", trace.WithAttributes(
		attribute.String("identity_id", identityID.String()),
		attribute.String("risk.factor", factorID),
	))
	defer func() { endSpan(span, err) }()

	factor, ok := models.ParseFactorID(factorID)
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown risk factor: "+factorID)
	}
	if rawScore < 0 || rawScore > 100 {
		return nil, dErrors.New(dErrors.CodeValidation, "raw score must be between 0 and 100")
	}

	now := requestcontext.Now(ctx)
	profile, previous, err := s.update(ctx, identityID, func(current *models.RiskProfile) (*models.RiskProfile, error) {
		if current == nil {
			return nil, dErrors.New(dErrors.CodeNotFound, "risk profile not found")
		}
		current.ReplaceFactor(models.NewFactor(factor, rawScore, strings.TrimSpace(rationale)))
		current.Recompute(now, "Updated factor: "+string(factor))
		return current, nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.afterCompute(ctx, profile, previous, "update_factor"); err != nil {
		return profile, err
	}
	return profile, nil
}

// GetRiskProfile returns the identity's current profile.
func (s *Service) GetRiskProfile(ctx context.Context, identityID id.IdentityID) (*models.RiskProfile, error) {
	profile, err := s.profiles.Find(ctx, identityID)
	if err != nil {
		return nil, wrapProfileErr(err)
	}
	return profile, nil
}

// AddReviewNote appends an analyst note without touching the score.
func (s *Service) AddReviewNote(ctx context.Context, identityID id.IdentityID, author id.ActorID, text string) (*models.RiskProfile, error) {
	text = strings.TrimSpace(text)
	if author.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "author is required")
	}
	if text == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "note text is required")
	}

	now := requestcontext.Now(ctx)
	profile, _, err := s.update(ctx, identityID, func(current *models.RiskProfile) (*models.RiskProfile, error) {
		if current == nil {
			return nil, dErrors.New(dErrors.CodeNotFound, "risk profile not found")
		}
		current.AddNote(author, text, now)
		return current, nil
	})
	if err != nil {
		return nil, err
	}

	if s.auditor != nil {
		err := s.auditor.Emit(ctx, audit.Event{
			Subject:   identityID.String(),
			Action:    string(audit.EventRiskNoteAdded),
			ActorID:   author.String(),
			Reason:    text,
			RequestID: requestcontext.RequestID(ctx),
		})
		if err != nil {
			s.logger.WarnContext(ctx, "failed to record review note in ledger",
				"identity_id", identityID,
				"error", err,
			)
		}
	}
	return profile, nil
}

// IdentitiesRequiringReview returns profiles whose review date has passed,
// highest score first.
func (s *Service) IdentitiesRequiringReview(ctx context.Context) ([]*models.RiskProfile, error) {
	profiles, err := s.profiles.DueForReview(ctx, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list profiles due for review")
	}
	return profiles, nil
}

// HighRiskIdentities returns High and Critical profiles, highest score first.
// A non-positive limit uses DefaultHighRiskLimit.
func (s *Service) HighRiskIdentities(ctx context.Context, limit int) ([]*models.RiskProfile, error) {
	if limit <= 0 {
		limit = DefaultHighRiskLimit
	}
	profiles, err := s.profiles.HighRisk(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list high-risk profiles")
	}
	return profiles, nil
}
