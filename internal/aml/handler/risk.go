package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	risk "amlcore/internal/aml/risk/models"
	id "amlcore/pkg/domain"
	"amlcore/pkg/platform/httputil"
	"amlcore/pkg/requestcontext"
)

// HandleAssessRisk handles POST /aml/risk.
func (h *Handler) HandleAssessRisk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[AssessRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	assessment := risk.AssessmentRequest{
		IdentityID:                   req.parsedIdentityID,
		Zone:                         req.Zone,
		HasHighRiskCountryConnection: req.HasHighRiskCountryConnection,
		TransactionVolume30d:         req.TransactionVolume30d,
		TransactionCount30d:          req.TransactionCount30d,
		AnomalyScore:                 req.AnomalyScore,
	}
	if !req.parsedSanctions.IsNil() {
		result, err := h.screening.GetResult(ctx, req.parsedSanctions)
		if err != nil {
			h.fail(w, r, "failed to load sanctions result", err)
			return
		}
		assessment.Sanctions = result
	}
	if !req.parsedPEP.IsNil() {
		result, err := h.screening.GetResult(ctx, req.parsedPEP)
		if err != nil {
			h.fail(w, r, "failed to load PEP result", err)
			return
		}
		assessment.PEP = result
	}

	profile, err := h.risk.CalculateRiskProfile(ctx, assessment)
	h.writeProfile(w, r, profile, err)
}

// HandleGetRiskProfile handles GET /aml/risk/{identityID}.
func (h *Handler) HandleGetRiskProfile(w http.ResponseWriter, r *http.Request) {
	identityID, err := id.ParseIdentityID(chi.URLParam(r, "identityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	profile, err := h.risk.GetRiskProfile(r.Context(), identityID)
	h.writeProfile(w, r, profile, err)
}

// HandleRecalculate handles POST /aml/risk/{identityID}/recalculate.
func (h *Handler) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	identityID, err := id.ParseIdentityID(chi.URLParam(r, "identityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	profile, err := h.risk.RecalculateRiskScore(r.Context(), identityID)
	h.writeProfile(w, r, profile, err)
}

// HandleUpdateFactor handles PUT /aml/risk/{identityID}/factors/{factorID}.
func (h *Handler) HandleUpdateFactor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID, err := id.ParseIdentityID(chi.URLParam(r, "identityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[FactorRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	profile, err := h.risk.UpdateRiskFactor(ctx, identityID, chi.URLParam(r, "factorID"), *req.RawScore, req.Rationale)
	h.writeProfile(w, r, profile, err)
}

// HandleAddNote handles POST /aml/risk/{identityID}/notes.
func (h *Handler) HandleAddNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID, err := id.ParseIdentityID(chi.URLParam(r, "identityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[NoteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	profile, err := h.risk.AddReviewNote(ctx, identityID, requestcontext.ActorID(ctx), req.Text)
	h.writeProfile(w, r, profile, err)
}

// HandleReviewDue handles GET /aml/risk/review-due.
func (h *Handler) HandleReviewDue(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.risk.IdentitiesRequiringReview(r.Context())
	if err != nil {
		h.fail(w, r, "failed to list profiles due for review", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profiles)
}

// HandleHighRisk handles GET /aml/risk/high-risk?limit=N.
func (h *Handler) HandleHighRisk(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	profiles, err := h.risk.HighRiskIdentities(r.Context(), limit)
	if err != nil {
		h.fail(w, r, "failed to list high risk profiles", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profiles)
}

// writeProfile writes a profile response. A profile returned alongside an
// error was persisted; only its event delivery failed.
func (h *Handler) writeProfile(w http.ResponseWriter, r *http.Request, profile *risk.RiskProfile, err error) {
	if err != nil && profile == nil {
		h.fail(w, r, "risk operation failed", err)
		return
	}
	if err != nil {
		h.logger.WarnContext(r.Context(), "risk profile saved with degraded event delivery",
			"request_id", requestcontext.RequestID(r.Context()),
			"identity_id", profile.IdentityID,
			"error", err,
		)
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}
