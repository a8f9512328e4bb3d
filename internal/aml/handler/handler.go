// Package handler exposes the compliance engines over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"amlcore/internal/aml/orchestrator"
	risk "amlcore/internal/aml/risk/models"
	sar "amlcore/internal/aml/sar/models"
	screening "amlcore/internal/aml/screening/models"
	id "amlcore/pkg/domain"
	dErrors "amlcore/pkg/domain-errors"
	"amlcore/pkg/platform/httputil"
	"amlcore/pkg/requestcontext"
)

// ScreeningService defines the screening operations the handler calls.
type ScreeningService interface {
	ScreenForSanctions(ctx context.Context, req screening.ScreeningRequest) (*screening.ScreeningResult, error)
	ScreenForPEP(ctx context.Context, req screening.ScreeningRequest) (*screening.ScreeningResult, error)
	GetResult(ctx context.Context, resultID id.ScreeningID) (*screening.ScreeningResult, error)
	ConfirmMatch(ctx context.Context, resultID id.ScreeningID, matchID id.MatchID, reviewer id.ActorID, notes string) (*screening.ScreeningResult, error)
	MarkFalsePositive(ctx context.Context, resultID id.ScreeningID, matchID id.MatchID, reviewer id.ActorID, notes string) (*screening.ScreeningResult, error)
}

// RiskService defines the risk operations the handler calls.
type RiskService interface {
	CalculateRiskProfile(ctx context.Context, req risk.AssessmentRequest) (*risk.RiskProfile, error)
	RecalculateRiskScore(ctx context.Context, identityID id.IdentityID) (*risk.RiskProfile, error)
	UpdateRiskFactor(ctx context.Context, identityID id.IdentityID, factorID string, rawScore float64, rationale string) (*risk.RiskProfile, error)
	GetRiskProfile(ctx context.Context, identityID id.IdentityID) (*risk.RiskProfile, error)
	AddReviewNote(ctx context.Context, identityID id.IdentityID, author id.ActorID, text string) (*risk.RiskProfile, error)
	IdentitiesRequiringReview(ctx context.Context) ([]*risk.RiskProfile, error)
	HighRiskIdentities(ctx context.Context, limit int) ([]*risk.RiskProfile, error)
}

// SARService defines the SAR workflow operations the handler calls.
type SARService interface {
	CreateSAR(ctx context.Context, req sar.CreateRequest) (*sar.SuspiciousActivityReport, error)
	GetSAR(ctx context.Context, sarID id.SARID) (*sar.SuspiciousActivityReport, error)
	SubmitForReview(ctx context.Context, sarID id.SARID, actor id.ActorID) (*sar.SuspiciousActivityReport, error)
	BeginReview(ctx context.Context, sarID id.SARID, actor id.ActorID) (*sar.SuspiciousActivityReport, error)
	SubmitForApproval(ctx context.Context, sarID id.SARID, actor id.ActorID, comment string) (*sar.SuspiciousActivityReport, error)
	ApproveSAR(ctx context.Context, sarID id.SARID, approver id.ActorID, comment string) (*sar.SuspiciousActivityReport, error)
	RejectSAR(ctx context.Context, sarID id.SARID, approver id.ActorID, reason string) (*sar.SuspiciousActivityReport, error)
	FileSAR(ctx context.Context, sarID id.SARID, actor id.ActorID) (*sar.SuspiciousActivityReport, error)
	CloseSAR(ctx context.Context, sarID id.SARID, actor id.ActorID, reason string) (*sar.SuspiciousActivityReport, error)
	AssignSAR(ctx context.Context, sarID id.SARID, assignee, actor id.ActorID) (*sar.SuspiciousActivityReport, error)
	AddEvidence(ctx context.Context, sarID id.SARID, evidence sar.Evidence, actor id.ActorID) (*sar.SuspiciousActivityReport, error)
	AddRelatedTransaction(ctx context.Context, sarID id.SARID, txn sar.RelatedTransaction, actor id.ActorID) (*sar.SuspiciousActivityReport, error)
	PendingSARs(ctx context.Context) ([]*sar.SuspiciousActivityReport, error)
	ApproachingDeadline(ctx context.Context, days int) ([]*sar.SuspiciousActivityReport, error)
	GenerateReport(ctx context.Context, sarID id.SARID) ([]byte, error)
}

// Pipeline runs the full identity screening flow.
type Pipeline interface {
	ScreenIdentity(ctx context.Context, identityID id.IdentityID, signals orchestrator.Signals) (*orchestrator.Outcome, error)
}

// Handler wires the AML endpoints to the engines.
type Handler struct {
	screening ScreeningService
	risk      RiskService
	sars      SARService
	pipeline  Pipeline
	logger    *slog.Logger
	throttle  func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithScreeningThrottle wraps the endpoints that run live screenings.
func WithScreeningThrottle(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.throttle = mw
	}
}

// New constructs a handler with its dependencies.
func New(screening ScreeningService, risk RiskService, sars SARService, pipeline Pipeline, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		screening: screening,
		risk:      risk,
		sars:      sars,
		pipeline:  pipeline,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the AML endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/aml", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if h.throttle != nil {
				r.Use(h.throttle)
			}
			r.Post("/screenings/sanctions", h.HandleScreenSanctions)
			r.Post("/screenings/pep", h.HandleScreenPEP)
			r.Post("/identities/{id}/screen", h.HandleScreenIdentity)
		})
		r.Get("/screenings/{id}", h.HandleGetScreening)
		r.Post("/screenings/{id}/matches/{matchID}/confirm", h.HandleConfirmMatch)
		r.Post("/screenings/{id}/matches/{matchID}/false-positive", h.HandleMarkFalsePositive)

		r.Post("/risk", h.HandleAssessRisk)
		r.Get("/risk/review-due", h.HandleReviewDue)
		r.Get("/risk/high-risk", h.HandleHighRisk)
		r.Get("/risk/{identityID}", h.HandleGetRiskProfile)
		r.Post("/risk/{identityID}/recalculate", h.HandleRecalculate)
		r.Put("/risk/{identityID}/factors/{factorID}", h.HandleUpdateFactor)
		r.Post("/risk/{identityID}/notes", h.HandleAddNote)

		r.Post("/sars", h.HandleCreateSAR)
		r.Get("/sars/pending", h.HandlePendingSARs)
		r.Get("/sars/deadlines", h.HandleApproachingDeadline)
		r.Get("/sars/{id}", h.HandleGetSAR)
		r.Get("/sars/{id}/report", h.HandleSARReport)
		r.Post("/sars/{id}/evidence", h.HandleAddEvidence)
		r.Post("/sars/{id}/transactions", h.HandleAddTransaction)
		r.Post("/sars/{id}/{action}", h.HandleSARAction)
	})
}

// fail logs server-side failures with their cause and writes the mapped
// response. Client errors are logged at Warn.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"path", r.URL.Path,
		"error", err,
	}
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, key+" must be a non-negative integer")
	}
	return n, nil
}
