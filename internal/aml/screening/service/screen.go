package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"amlcore/internal/aml/matching"
	"amlcore/internal/aml/screening/models"
	id "amlcore/pkg/domain"
	dErrors "amlcore/pkg/domain-errors"
	"amlcore/pkg/platform/sentinel"
	"amlcore/pkg/requestcontext"
)

// ScreenForSanctions screens the request against every sanctions list that
// passes its source-list filter.
func (s *Service) ScreenForSanctions(ctx context.Context, req models.ScreeningRequest) (*models.ScreeningResult, error) {
	return s.screen(ctx, req, models.ScreeningTypeSanctions)
}

// ScreenForPEP screens the request against the PEP record set.
func (s *Service) ScreenForPEP(ctx context.Context, req models.ScreeningRequest) (*models.ScreeningResult, error) {
	return s.screen(ctx, req, models.ScreeningTypePEP)
}

// screen returns a validation error for a malformed request and a timeout
// error when ctx is cancelled mid-run. Reference data failures produce an
// Error result and a nil error.
func (s *Service) screen(ctx context.Context, req models.ScreeningRequest, typ models.ScreeningType) (result *models.ScreeningResult, err error) {
	ctx, span := tracer.Start(ctx, "screening.screen", trace.WithAttributes(
		attribute.String("screening.type", string(typ)),
		attribute.String("identity_id", req.IdentityID.String()),
	))
	defer func() { endSpan(span, err) }()

	req.Normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	cacheable := !req.IdentityID.IsNil()
	key := CacheKey(typ, req.IdentityID)

	run := func(ctx context.Context) error {
		if req.UseCache && cacheable {
			if cached := s.cachedResult(ctx, typ, key, now); cached != nil {
				span.SetAttributes(attribute.Bool("screening.cache_hit", true))
				result = cached
				return nil
			}
		}

		start := time.Now()
		fresh, err := s.liveScreen(ctx, req, typ, now)
		if err != nil {
			return err
		}
		fresh.ProcessingDuration = time.Since(start)

		if err := s.results.Save(ctx, fresh); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save screening result")
		}
		if cacheable && fresh.Status != models.StatusError {
			s.storeInCache(ctx, typ, key, fresh)
		}

		s.metrics.IncScreening(string(typ), string(fresh.Status))
		s.metrics.ObserveScreeningLatency(string(typ), fresh.ProcessingDuration)
		s.logger.InfoContext(ctx, "screening completed",
			"identity_id", req.IdentityID,
			"type", typ,
			"status", fresh.Status,
			"matches", len(fresh.Matches),
		)
		result = fresh
		return nil
	}

	if cacheable {
		err = s.locker.WithLock(ctx, key, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) liveScreen(ctx context.Context, req models.ScreeningRequest, typ models.ScreeningType, now time.Time) (*models.ScreeningResult, error) {
	result := models.NewResult(req.IdentityID, typ, now, s.cacheTTL)
	candidates := req.CandidateNames()

	var (
		matches []models.ScreeningMatch
		err     error
	)
	if typ == models.ScreeningTypePEP {
		result.SourcesChecked = []string{models.ListPEP}
		matches, err = s.matchPEPs(ctx, req, candidates)
	} else {
		for _, l := range s.watchlist.Lists() {
			if req.IncludesList(l) {
				result.SourcesChecked = append(result.SourcesChecked, l)
			}
		}
		matches, err = s.matchSanctions(ctx, req, candidates)
	}
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeTimeout) {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "screening failed",
			"identity_id", req.IdentityID,
			"type", typ,
			"error", err,
		)
		result.MarkError(err.Error())
		return result, nil
	}

	slices.SortStableFunc(matches, func(a, b models.ScreeningMatch) int {
		return cmp.Compare(b.Score, a.Score)
	})
	result.Matches = matches
	result.DeriveStatus()
	return result, nil
}

func (s *Service) matchSanctions(ctx context.Context, req models.ScreeningRequest, candidates []string) ([]models.ScreeningMatch, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	entries, err := s.watchlist.SanctionsEntries(ctx)
	if err != nil {
		if cerr := checkCancelled(ctx); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("failed to load sanctions entries: %w", err)
	}

	matches := []models.ScreeningMatch{}
	for _, e := range entries {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		if !req.IncludesList(e.ListID) {
			continue
		}
		best := scoreNames(candidates, e.Names(), req.DateOfBirth, e.DateOfBirth)
		if best.score < s.threshold {
			continue
		}
		m := newMatch(e.ListID, e.SourceID, e.PrimaryName, e.Aliases, string(e.EntityType), best)
		m.Details["sourceId"] = e.SourceID
		m.Details["programs"] = strings.Join(e.Programs, ", ")
		m.Details["entityType"] = string(e.EntityType)
		matches = append(matches, m)
	}
	return matches, nil
}

func (s *Service) matchPEPs(ctx context.Context, req models.ScreeningRequest, candidates []string) ([]models.ScreeningMatch, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	records, err := s.watchlist.PEPRecords(ctx)
	if err != nil {
		if cerr := checkCancelled(ctx); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("failed to load PEP records: %w", err)
	}

	byID := make(map[string]models.PEPRecord, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	matches := []models.ScreeningMatch{}
	for _, r := range records {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		if !r.Active {
			continue
		}
		if r.IsRelative() && !req.IncludeRelatives {
			continue
		}
		best := scoreNames(candidates, r.Names(), req.DateOfBirth, r.DateOfBirth)
		if best.score < s.threshold {
			continue
		}
		m := newMatch(models.ListPEP, r.ID, r.FullName, r.Aliases, string(r.Category), best)
		m.Details["sourceId"] = r.ID
		m.Details["tier"] = strconv.Itoa(r.Tier)
		m.Details["category"] = string(r.Category)
		if r.RiskLevel != "" {
			m.Details["riskLevel"] = r.RiskLevel
		}
		if positions := r.PositionTitles(); positions != "" {
			m.Details["positions"] = positions
		}
		if r.IsRelative() {
			if related := relatedNames(r, byID); related != "" {
				m.Details["relatedTo"] = related
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// relatedNames resolves the record's direct relations. Relations of the
// related records are not followed.
func relatedNames(r models.PEPRecord, byID map[string]models.PEPRecord) string {
	names := make([]string, 0, len(r.Relations))
	for _, rel := range r.Relations {
		target, ok := byID[rel.RecordID]
		if !ok {
			continue
		}
		names = append(names, target.FullName+" ("+string(rel.Type)+")")
	}
	return strings.Join(names, "; ")
}

type scoredName struct {
	score    float64
	input    string
	matched  string
	criteria []models.MatchCriteria
}

// scoreNames finds the best similarity across candidates × names. Each
// improvement is kept as a criterion so the match shows how it was reached.
func scoreNames(candidates, names []string, inputDOB, entryDOB *time.Time) scoredName {
	var best scoredName
	for _, c := range candidates {
		for _, n := range names {
			sim := matching.Similarity(c, n)
			if sim <= best.score {
				continue
			}
			best.score = sim
			best.input = c
			best.matched = n
			best.criteria = append(best.criteria, models.MatchCriteria{
				Field:        "Name",
				InputValue:   c,
				MatchedValue: n,
				Score:        percent(sim),
				Algorithm:    matching.AlgorithmJaroWinkler,
			})
		}
	}

	if sameDate(inputDOB, entryDOB) {
		best.score = min(1.0, best.score+dobBoost)
		best.criteria = append(best.criteria, models.MatchCriteria{
			Field:        "DateOfBirth",
			InputValue:   inputDOB.Format(time.DateOnly),
			MatchedValue: entryDOB.Format(time.DateOnly),
			Score:        100,
			Algorithm:    matching.AlgorithmExactMatch,
		})
	}
	return best
}

func newMatch(list, sourceID, name string, aliases []string, category string, best scoredName) models.ScreeningMatch {
	criteria := best.criteria
	if matching.IsMultiToken(best.input) && matching.IsMultiToken(best.matched) {
		criteria = append(criteria, models.MatchCriteria{
			Field:        "NameTokens",
			InputValue:   best.input,
			MatchedValue: best.matched,
			Score:        percent(matching.TokenOverlap(best.input, best.matched)),
			Algorithm:    matching.AlgorithmTokenOverlap,
		})
	}
	return models.ScreeningMatch{
		ID:                  id.MatchID(uuid.New()),
		SourceList:          list,
		SourceID:            sourceID,
		MatchedName:         name,
		Aliases:             slices.Clone(aliases),
		Score:               percent(best.score),
		Category:            category,
		Criteria:            criteria,
		LikelyFalsePositive: best.score < models.LikelyFalsePositiveBelow,
		Details:             map[string]string{"bestMatch": best.matched},
		Status:              models.MatchPending,
	}
}

// percent scales a 0..1 similarity to 0..100 rounded to two places.
func percent(sim float64) float64 {
	return decimal.NewFromFloat(sim).Shift(2).Round(2).InexactFloat64()
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return false
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "screening cancelled")
	}
	return nil
}

// cachedResult returns a servable cached result or nil. Cache failures are
// logged and count against the breaker; they never fail the screening.
func (s *Service) cachedResult(ctx context.Context, typ models.ScreeningType, key string, now time.Time) *models.ScreeningResult {
	if s.cache == nil {
		return nil
	}
	if !s.breaker.Allow() {
		s.metrics.IncCacheLookup(string(typ), "skipped")
		return nil
	}
	cached, err := s.cache.Get(ctx, key)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		s.recordCacheSuccess()
		s.metrics.IncCacheLookup(string(typ), "miss")
		return nil
	case err != nil:
		s.recordCacheFailure(ctx, "get", err)
		s.metrics.IncCacheLookup(string(typ), "error")
		return nil
	}
	s.recordCacheSuccess()
	if !cached.IsCacheValid(now) {
		s.metrics.IncCacheLookup(string(typ), "miss")
		return nil
	}
	s.metrics.IncCacheLookup(string(typ), "hit")
	return cached
}

func (s *Service) storeInCache(ctx context.Context, typ models.ScreeningType, key string, result *models.ScreeningResult) {
	if s.cache == nil || !s.breaker.Allow() {
		return
	}
	if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
		s.recordCacheFailure(ctx, "set", err)
		return
	}
	s.recordCacheSuccess()
}

func (s *Service) recordCacheFailure(ctx context.Context, op string, err error) {
	s.logger.WarnContext(ctx, "screening cache unavailable, falling back to live screening",
		"operation", op,
		"error", err,
	)
	if _, change := s.breaker.RecordFailure(); change.Opened {
		s.logger.WarnContext(ctx, "screening cache circuit opened", "breaker", s.breaker.Name())
	}
}

func (s *Service) recordCacheSuccess() {
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.Info("screening cache circuit closed", "breaker", s.breaker.Name())
	}
}
