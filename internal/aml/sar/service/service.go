// Package service runs the SAR workflow: creation, review, approval,
// filing and closure, with the case file kept append-only.
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
	"amlcore/internal/aml/sar/metrics"
	"amlcore/internal/aml/sar/models"
	"amlcore/internal/aml/sar/regulator"
	id "amlcore/pkg/domain"
	dErrors "amlcore/pkg/domain-errors"
	"amlcore/pkg/platform/audit"
	"amlcore/pkg/platform/sentinel"
	"amlcore/pkg/platform/validation"
	"amlcore/pkg/requestcontext"
)

// DefaultApproachingDays is the look-ahead used by ApproachingDeadline when
// the caller passes none.
const DefaultApproachingDays = 3

var tracer = otel.Tracer("amlcore/sar")

// Store persists SARs. Execute must hold a per-report lock across validate
// and mutate and write nothing when validate fails.
type Store interface {
	NextSequence(ctx context.Context) (int64, error)
	Create(ctx context.Context, sar *models.SuspiciousActivityReport) error
	FindByID(ctx context.Context, sarID id.SARID) (*models.SuspiciousActivityReport, error)
	FindByReference(ctx context.Context, reference string) (*models.SuspiciousActivityReport, error)
	Execute(ctx context.Context, sarID id.SARID, validate func(*models.SuspiciousActivityReport) error, mutate func(*models.SuspiciousActivityReport)) (*models.SuspiciousActivityReport, error)
	ListPending(ctx context.Context) ([]*models.SuspiciousActivityReport, error)
	ListDueBefore(ctx context.Context, cutoff time.Time) ([]*models.SuspiciousActivityReport, error)
	ListBySubject(ctx context.Context, subjectID id.IdentityID) ([]*models.SuspiciousActivityReport, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the SAR workflow engine.
type Service struct {
	store        Store
	gateway      regulator.FilingGateway
	publisher    events.Publisher
	auditor      AuditPublisher
	validator    *validation.Validator
	logger       *slog.Logger
	metrics      *metrics.Metrics
	deadlineDays int
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

// WithPublisher sets where SARCreated and SARFiled events go.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithAuditPublisher enables the best-effort compliance ledger.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// WithGateway replaces the simulated regulator.
func WithGateway(g regulator.FilingGateway) Option {
	return func(s *Service) {
		s.gateway = g
	}
}

// WithDeadlineDays overrides the statutory filing window.
func WithDeadlineDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.deadlineDays = days
		}
	}
}

// New constructs a Service.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("SAR store is required")
	}
	s := &Service{
		store:        store,
		validator:    validation.New(),
		deadlineDays: models.DefaultDeadlineDays,
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
	if s.gateway == nil {
		s.gateway = regulator.NewSimulated()
	}
	return s, nil
}

// ledger records a compliance entry. Failures are logged and never returned.
func (s *Service) ledger(ctx context.Context, sar *models.SuspiciousActivityReport, action audit.AuditEvent, actor id.ActorID, reason string) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Subject:   sar.ID.String(),
		Action:    string(action),
		Reference: sar.ReferenceNumber,
		ActorID:   actor.String(),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to record SAR ledger entry",
			"sar_id", sar.ID,
			"action", action,
			"error", err,
		)
	}
}

// wrapSARErr keeps coded errors from validate callbacks and translates store
// facts.
func wrapSARErr(err error) error {
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "SAR not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist SAR")
}

func requireActor(actor id.ActorID, field string) error {
	if actor.IsNil() {
		return dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
