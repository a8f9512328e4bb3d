package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	screening "amlcore/internal/aml/screening/models"
	id "amlcore/pkg/domain"
	"amlcore/pkg/platform/httputil"
	"amlcore/pkg/requestcontext"
)

// HandleScreenSanctions handles POST /aml/screenings/sanctions.
func (h *Handler) HandleScreenSanctions(w http.ResponseWriter, r *http.Request) {
	h.handleScreen(w, r, h.screening.ScreenForSanctions)
}

// HandleScreenPEP handles POST /aml/screenings/pep.
func (h *Handler) HandleScreenPEP(w http.ResponseWriter, r *http.Request) {
	h.handleScreen(w, r, h.screening.ScreenForPEP)
}

func (h *Handler) handleScreen(w http.ResponseWriter, r *http.Request, screen func(context.Context, screening.ScreeningRequest) (*screening.ScreeningResult, error)) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ScreenRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := screen(ctx, req.ScreeningRequest)
	if err != nil {
		h.fail(w, r, "screening failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleGetScreening handles GET /aml/screenings/{id}.
func (h *Handler) HandleGetScreening(w http.ResponseWriter, r *http.Request) {
	resultID, err := id.ParseScreeningID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.screening.GetResult(r.Context(), resultID)
	if err != nil {
		h.fail(w, r, "failed to load screening result", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleConfirmMatch handles POST /aml/screenings/{id}/matches/{matchID}/confirm.
func (h *Handler) HandleConfirmMatch(w http.ResponseWriter, r *http.Request) {
	h.handleReview(w, r, h.screening.ConfirmMatch)
}

// HandleMarkFalsePositive handles POST /aml/screenings/{id}/matches/{matchID}/false-positive.
func (h *Handler) HandleMarkFalsePositive(w http.ResponseWriter, r *http.Request) {
	h.handleReview(w, r, h.screening.MarkFalsePositive)
}

type reviewFunc func(ctx context.Context, resultID id.ScreeningID, matchID id.MatchID, reviewer id.ActorID, notes string) (*screening.ScreeningResult, error)

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request, review reviewFunc) {
	ctx := r.Context()
	resultID, err := id.ParseScreeningID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	matchID, err := id.ParseMatchID(chi.URLParam(r, "matchID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReviewRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	result, err := review(ctx, resultID, matchID, requestcontext.ActorID(ctx), req.Notes)
	if err != nil {
		h.fail(w, r, "match review failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleScreenIdentity handles POST /aml/identities/{id}/screen.
func (h *Handler) HandleScreenIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID, err := id.ParseIdentityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ScreenIdentityRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	outcome, err := h.pipeline.ScreenIdentity(ctx, identityID, req.Signals)
	if err != nil && outcome == nil {
		h.fail(w, r, "identity screening failed", err)
		return
	}
	if err != nil {
		h.logger.WarnContext(ctx, "identity screened with degraded event delivery",
			"request_id", requestcontext.RequestID(ctx),
			"identity_id", identityID,
			"error", err,
		)
	}
	httputil.WriteJSON(w, http.StatusOK, outcome)
}
