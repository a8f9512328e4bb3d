// Package orchestrator runs the identity screening pipeline: fetch the
// identity, screen it against sanctions and PEP lists concurrently, then
// assess its risk from both results.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"amlcore/internal/aml/orchestrator/ports"
	risk "amlcore/internal/aml/risk/models"
	screening "amlcore/internal/aml/screening/models"
	id "amlcore/pkg/domain"
	dErrors "amlcore/pkg/domain-errors"
	"amlcore/pkg/platform/sentinel"
)

// DefaultScreeningTimeout bounds both screening calls together.
const DefaultScreeningTimeout = 10 * time.Second

var tracer = otel.Tracer("amlcore/orchestrator")

// Signals are the non-watchlist inputs to the risk assessment.
type Signals struct {
	HasHighRiskCountryConnection bool            `json:"has_high_risk_country_connection"`
	TransactionVolume30d         decimal.Decimal `json:"transaction_volume_30d"`
	TransactionCount30d          int             `json:"transaction_count_30d"`
	AnomalyScore                 float64         `json:"anomaly_score"`
	UseCache                     bool            `json:"use_cache"`
}

// Outcome is everything one pipeline run produced.
type Outcome struct {
	Sanctions *screening.ScreeningResult `json:"sanctions"`
	PEP       *screening.ScreeningResult `json:"pep"`
	Profile   *risk.RiskProfile          `json:"profile"`
}

type Service struct {
	identities ports.IdentityLookup
	screener   ports.Screener
	assessor   ports.RiskAssessor
	logger     *slog.Logger
	timeout    time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithScreeningTimeout overrides DefaultScreeningTimeout.
func WithScreeningTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func New(identities ports.IdentityLookup, screener ports.Screener, assessor ports.RiskAssessor, opts ...Option) (*Service, error) {
	if identities == nil || screener == nil || assessor == nil {
		return nil, errors.New("identity lookup, screener and risk assessor are required")
	}
	s := &Service{
		identities: identities,
		screener:   screener,
		assessor:   assessor,
		timeout:    DefaultScreeningTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// ScreenIdentity runs the full pipeline for one identity. Screening
// failures land in the results' Error status; only lookup, validation and
// persistence failures are returned. When the profile was saved but its
// event could not be published, the outcome is returned with the error.
func (s *Service) ScreenIdentity(ctx context.Context, identityID id.IdentityID, signals Signals) (outcome *Outcome, err error) {
	ctx, span := tracer.Start(ctx, "orchestrator.screen_identity", trace.WithAttributes(
		attribute.String("identity_id", identityID.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if identityID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "identity_id is required")
	}
	identity, err := s.identities.GetIdentity(ctx, identityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "identity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "identity lookup failed")
	}

	outcome = &Outcome{}
	if err := s.screen(ctx, identity, signals.UseCache, outcome); err != nil {
		return nil, err
	}

	profile, err := s.assessor.CalculateRiskProfile(ctx, risk.AssessmentRequest{
		IdentityID:                   identity.ID,
		Zone:                         identity.Zone,
		HasHighRiskCountryConnection: signals.HasHighRiskCountryConnection,
		TransactionVolume30d:         signals.TransactionVolume30d,
		TransactionCount30d:          signals.TransactionCount30d,
		Sanctions:                    outcome.Sanctions,
		PEP:                          outcome.PEP,
		AnomalyScore:                 signals.AnomalyScore,
	})
	if profile == nil {
		return nil, err
	}
	outcome.Profile = profile

	s.logger.InfoContext(ctx, "identity screened",
		"identity_id", identityID,
		"sanctions_status", outcome.Sanctions.Status,
		"pep_status", outcome.PEP.Status,
		"risk_level", profile.Level,
		"risk_score", profile.Score,
	)
	return outcome, err
}

// screen runs both screenings concurrently. The first returned error cancels
// the other call and no partial outcome is kept.
func (s *Service) screen(ctx context.Context, identity *ports.Identity, useCache bool, outcome *Outcome) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := screening.ScreeningRequest{
		IdentityID:       identity.ID,
		FirstName:        identity.FirstName,
		MiddleName:       identity.MiddleName,
		LastName:         identity.LastName,
		DateOfBirth:      identity.DateOfBirth,
		Nationalities:    identity.Nationalities,
		Aliases:          identity.Aliases,
		UseCache:         useCache,
		IncludeRelatives: true,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result, err := s.screener.ScreenForSanctions(gctx, req)
		if err != nil {
			return err
		}
		outcome.Sanctions = result
		return nil
	})
	g.Go(func() error {
		result, err := s.screener.ScreenForPEP(gctx, req)
		if err != nil {
			return err
		}
		outcome.PEP = result
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "identity screening failed",
			"identity_id", identity.ID,
			"error", err,
		)
		return err
	}
	return nil
}
