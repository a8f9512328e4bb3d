package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"amlcore/internal/aml/screening/models"
	id "amlcore/pkg/domain"
	dErrors "amlcore/pkg/domain-errors"
	"amlcore/pkg/platform/audit"
	"amlcore/pkg/platform/sentinel"
	"amlcore/pkg/requestcontext"
)

// ConfirmMatch records that a match is a true hit. The result becomes
// ConfirmedMatch and no longer awaits review.
func (s *Service) ConfirmMatch(ctx context.Context, resultID id.ScreeningID, matchID id.MatchID, reviewer id.ActorID, notes string) (*models.ScreeningResult, error) {
	return s.review(ctx, resultID, matchID, models.MatchConfirmed, reviewer, notes)
}

// MarkFalsePositive dismisses a match. When every match on the result is
// dismissed the result becomes FalsePositive.
func (s *Service) MarkFalsePositive(ctx context.Context, resultID id.ScreeningID, matchID id.MatchID, reviewer id.ActorID, notes string) (*models.ScreeningResult, error) {
	return s.review(ctx, resultID, matchID, models.MatchFalsePositive, reviewer, notes)
}

func (s *Service) review(ctx context.Context, resultID id.ScreeningID, matchID id.MatchID, status models.MatchStatus, reviewer id.ActorID, notes string) (result *models.ScreeningResult, err error) {
	ctx, span := tracer.Start(ctx, "screening.review", trace.WithAttributes(
		attribute.String("screening_id", resultID.String()),
		attribute.String("match_id", matchID.String()),
		attribute.String("decision", string(status)),
	))
	defer func() { endSpan(span, err) }()

	if reviewer.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "reviewer is required")
	}

	// Reviews hold the screen path's identity key while saving and
	// invalidating. Identity and type are immutable, so reading them unlocked
	// is safe.
	existing, err := s.results.FindByID(ctx, resultID)
	if err != nil {
		return nil, wrapResultErr(err)
	}
	lockKey := "screening:" + resultID.String()
	cacheable := !existing.IdentityID.IsNil()
	if cacheable {
		lockKey = CacheKey(existing.Type, existing.IdentityID)
	}

	now := requestcontext.Now(ctx)
	err = s.locker.WithLock(ctx, lockKey, func(ctx context.Context) error {
		current, err := s.results.FindByID(ctx, resultID)
		if err != nil {
			return wrapResultErr(err)
		}
		if err := current.ApplyMatchReview(matchID, status, reviewer, notes, now); err != nil {
			return err
		}
		if err := s.results.Save(ctx, current); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save screening review")
		}
		if s.cache != nil && cacheable {
			if err := s.cache.Delete(ctx, lockKey); err != nil {
				s.logger.WarnContext(ctx, "failed to invalidate screening cache after review",
					"identity_id", current.IdentityID,
					"error", err,
				)
			}
		}
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncReview(string(status))
	s.emitReview(ctx, result, matchID, status, reviewer, notes)
	s.logger.InfoContext(ctx, "screening match reviewed",
		"screening_id", resultID,
		"match_id", matchID,
		"decision", status,
		"result_status", result.Status,
	)
	return result, nil
}

func (s *Service) emitReview(ctx context.Context, result *models.ScreeningResult, matchID id.MatchID, status models.MatchStatus, reviewer id.ActorID, notes string) {
	if s.auditor == nil {
		return
	}
	action := audit.EventMatchConfirmed
	if status == models.MatchFalsePositive {
		action = audit.EventMatchFalsePositive
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Subject:   result.IdentityID.String(),
		Action:    string(action),
		Reference: result.ID.String() + "/" + matchID.String(),
		ActorID:   reviewer.String(),
		Reason:    notes,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to record screening review in ledger",
			"screening_id", result.ID,
			"error", err,
		)
	}
}

// GetResult returns a stored screening result.
func (s *Service) GetResult(ctx context.Context, resultID id.ScreeningID) (*models.ScreeningResult, error) {
	result, err := s.results.FindByID(ctx, resultID)
	if err != nil {
		return nil, wrapResultErr(err)
	}
	return result, nil
}

// LatestResult returns the cached result for the identity, falling back to
// the most recent stored one.
func (s *Service) LatestResult(ctx context.Context, identityID id.IdentityID, typ models.ScreeningType) (*models.ScreeningResult, error) {
	if identityID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "identity_id is required")
	}
	if cached := s.cachedResult(ctx, typ, CacheKey(typ, identityID), requestcontext.Now(ctx)); cached != nil {
		return cached, nil
	}
	result, err := s.results.LatestForIdentity(ctx, identityID, typ)
	if err != nil {
		return nil, wrapResultErr(err)
	}
	return result, nil
}

// InvalidateCache drops both cached screenings for the identity.
func (s *Service) InvalidateCache(ctx context.Context, identityID id.IdentityID) error {
	if s.cache == nil {
		return nil
	}
	err := s.cache.Delete(ctx,
		CacheKey(models.ScreeningTypeSanctions, identityID),
		CacheKey(models.ScreeningTypePEP, identityID),
	)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to invalidate screening cache")
	}
	return nil
}

func wrapResultErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "screening result not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load screening result")
}
