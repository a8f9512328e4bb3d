// Package service computes and maintains identity risk profiles.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"amlcore/internal/aml/events"
	"amlcore/internal/aml/risk/metrics"
	"amlcore/internal/aml/risk/models"
	id "amlcore/pkg/domain"
	dErrors "amlcore/pkg/domain-errors"
	"amlcore/pkg/platform/audit"
	"amlcore/pkg/platform/sentinel"
	"amlcore/pkg/platform/tx"
	"amlcore/pkg/platform/validation"
	"amlcore/pkg/requestcontext"
)

// DefaultHighRiskLimit caps HighRiskIdentities when the caller passes no limit.
const DefaultHighRiskLimit = 100

// DefaultHighRiskZones are the zones scored as high-risk geography.
var DefaultHighRiskZones = []string{"external", "unverified"}

var tracer = otel.Tracer("amlcore/risk")

// ProfileStore persists profiles with optimistic versioning. Save with
// expectedVersion 0 creates; otherwise the stored version must equal
// expectedVersion or sentinel.ErrConflict is returned.
type ProfileStore interface {
	Find(ctx context.Context, identityID id.IdentityID) (*models.RiskProfile, error)
	Save(ctx context.Context, profile *models.RiskProfile, expectedVersion int) error
	DueForReview(ctx context.Context, now time.Time) ([]*models.RiskProfile, error)
	HighRisk(ctx context.Context, limit int) ([]*models.RiskProfile, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the risk assessment engine.
type Service struct {
	profiles      ProfileStore
	publisher     events.Publisher
	auditor       AuditPublisher
	locker        *tx.ShardedLocker
	validator     *validation.Validator
	logger        *slog.Logger
	metrics       *metrics.Metrics
	highRiskZones []string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPublisher sets where RiskLevelChanged events go.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// WithLocker shares a locker with other services working on the same keys.
func WithLocker(l *tx.ShardedLocker) Option {
	return func(s *Service) {
		s.locker = l
	}
}

// WithHighRiskZones replaces the default high-risk zone set. An empty list
// keeps the defaults.
func WithHighRiskZones(zones []string) Option {
	return func(s *Service) {
		if len(zones) > 0 {
			s.highRiskZones = zones
		}
	}
}

// New constructs a Service.
func New(profiles ProfileStore, opts ...Option) (*Service, error) {
	if profiles == nil {
		return nil, errors.New("profile store is required")
	}
	s := &Service{
		profiles:      profiles,
		validator:     validation.New(),
		highRiskZones: DefaultHighRiskZones,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.publisher == nil {
		s.publisher = events.Discard{}
	}
	if s.locker == nil {
		s.locker = tx.NewShardedLocker(0)
	}
	return s, nil
}

// update runs mutate against the current profile (nil when none exists)
// under the identity's lock and saves the result at the next version. A
// conflicting concurrent write is retried once. It returns the saved profile
// and the level held before, Low for a new profile.
func (s *Service) update(ctx context.Context, identityID id.IdentityID, mutate func(current *models.RiskProfile) (*models.RiskProfile, error)) (*models.RiskProfile, models.RiskLevel, error) {
	var (
		saved    *models.RiskProfile
		previous models.RiskLevel
	)
	err := s.locker.WithLock(ctx, "risk:"+identityID.String(), func(ctx context.Context) error {
		for attempt := 0; ; attempt++ {
			current, err := s.profiles.Find(ctx, identityID)
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				current = nil
			case err != nil:
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load risk profile")
			}

			expected, before := 0, models.RiskLow
			if current != nil {
				expected, before = current.Version, current.Level
			}
			next, err := mutate(current)
			if err != nil {
				return err
			}
			next.Version = expected + 1

			err = s.profiles.Save(ctx, next, expected)
			if err == nil {
				saved, previous = next, before
				return nil
			}
			if !errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save risk profile")
			}
			if attempt > 0 {
				s.metrics.IncConflict("exhausted")
				return dErrors.Wrap(err, dErrors.CodeConflict, "risk profile was modified concurrently")
			}
			s.metrics.IncConflict("retried")
			s.logger.WarnContext(ctx, "risk profile save conflicted, retrying",
				"identity_id", identityID,
				"expected_version", expected,
			)
		}
	})
	if err != nil {
		return nil, "", err
	}
	return saved, previous, nil
}

// afterCompute records the computation and publishes a level change.
func (s *Service) afterCompute(ctx context.Context, profile *models.RiskProfile, previous models.RiskLevel, operation string) error {
	s.metrics.ObserveAssessment(string(profile.Level), operation, profile.Score)
	s.logger.InfoContext(ctx, "risk profile computed",
		"identity_id", profile.IdentityID,
		"operation", operation,
		"score", profile.Score,
		"level", profile.Level,
		"version", profile.Version,
	)
	if profile.Level == previous {
		return nil
	}

	s.metrics.IncLevelChange(string(previous), string(profile.Level))
	err := s.publisher.Publish(ctx, events.RiskLevelChanged{
		IdentityID:    profile.IdentityID,
		PreviousLevel: string(previous),
		NewLevel:      string(profile.Level),
		Score:         profile.Score,
		Timestamp:     requestcontext.Now(ctx),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish risk level change",
			"identity_id", profile.IdentityID,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to publish risk level change")
	}
	return nil
}

func wrapProfileErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "risk profile not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load risk profile")
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
