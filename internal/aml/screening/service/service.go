// Package service screens identities against sanctions lists and PEP records
// and handles analyst review of the resulting matches.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"amlcore/internal/aml/screening/metrics"
	"amlcore/internal/aml/screening/models"
	id "amlcore/pkg/domain"
	"amlcore/pkg/platform/audit"
	"amlcore/pkg/platform/circuit"
	"amlcore/pkg/platform/tx"
	"amlcore/pkg/platform/validation"
)

const (
	// DefaultMatchThreshold is the minimum similarity that produces a match.
	DefaultMatchThreshold = 0.85
	// DefaultCacheTTL is how long a screening result may be served from cache.
	DefaultCacheTTL = 24 * time.Hour
	// dobBoost is added to the name score when dates of birth agree.
	dobBoost = 0.10
)

var tracer = otel.Tracer("amlcore/screening")

// Cache stores recent screening results per identity. Get returns
// sentinel.ErrNotFound on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (*models.ScreeningResult, error)
	Set(ctx context.Context, key string, result *models.ScreeningResult, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ResultStore keeps every screening result for later review.
type ResultStore interface {
	Save(ctx context.Context, result *models.ScreeningResult) error
	FindByID(ctx context.Context, resultID id.ScreeningID) (*models.ScreeningResult, error)
	LatestForIdentity(ctx context.Context, identityID id.IdentityID, typ models.ScreeningType) (*models.ScreeningResult, error)
}

// Watchlist supplies the reference data screened against.
type Watchlist interface {
	SanctionsEntries(ctx context.Context) ([]models.SanctionsEntry, error)
	PEPRecords(ctx context.Context) ([]models.PEPRecord, error)
	Lists() []string
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service runs sanctions and PEP screening.
type Service struct {
	results   ResultStore
	watchlist Watchlist
	cache     Cache
	breaker   *circuit.Breaker
	locker    *tx.ShardedLocker
	validator *validation.Validator
	auditor   AuditPublisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	threshold float64
	cacheTTL  time.Duration
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

// WithCache enables result caching.
func WithCache(c Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func WithMatchThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold > 0 && threshold <= 1 {
			s.threshold = threshold
		}
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

// WithBreaker replaces the cache circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		s.breaker = b
	}
}

// New constructs a Service.
func New(results ResultStore, watchlist Watchlist, opts ...Option) (*Service, error) {
	if results == nil {
		return nil, errors.New("result store is required")
	}
	if watchlist == nil {
		return nil, errors.New("watchlist is required")
	}
	s := &Service{
		results:   results,
		watchlist: watchlist,
		validator: validation.New(),
		threshold: DefaultMatchThreshold,
		cacheTTL:  DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.locker == nil {
		s.locker = tx.NewShardedLocker(0)
	}
	if s.breaker == nil {
		s.breaker = circuit.New("screening-cache")
	}
	return s, nil
}

// Lists returns the configured sanctions list IDs.
func (s *Service) Lists() []string {
	return s.watchlist.Lists()
}

// CacheKey returns the cache key for an identity's screening of the given type.
func CacheKey(typ models.ScreeningType, identityID id.IdentityID) string {
	if typ == models.ScreeningTypePEP {
		return "pep:" + identityID.String()
	}
	return "sanctions:" + identityID.String()
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
