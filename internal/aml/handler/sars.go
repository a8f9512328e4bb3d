package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	sar "amlcore/internal/aml/sar/models"
	id "amlcore/pkg/domain"
	dErrors "amlcore/pkg/domain-errors"
	"amlcore/pkg/platform/httputil"
	"amlcore/pkg/requestcontext"
)

// SAR workflow actions accepted by POST /aml/sars/{id}/{action}.
const (
	ActionSubmit            = "submit"
	ActionReview            = "review"
	ActionSubmitForApproval = "submit-for-approval"
	ActionApprove           = "approve"
	ActionReject            = "reject"
	ActionFile              = "file"
	ActionClose             = "close"
	ActionAssign            = "assign"
)

// HandleCreateSAR handles POST /aml/sars.
func (h *Handler) HandleCreateSAR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateSARRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	created, err := h.sars.CreateSAR(ctx, req.CreateRequest)
	if err != nil && created == nil {
		h.fail(w, r, "failed to create SAR", err)
		return
	}
	if err != nil {
		h.logger.WarnContext(ctx, "SAR created with degraded event delivery",
			"request_id", requestcontext.RequestID(ctx),
			"sar_id", created.ID,
			"error", err,
		)
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

// HandleGetSAR handles GET /aml/sars/{id}.
func (h *Handler) HandleGetSAR(w http.ResponseWriter, r *http.Request) {
	sarID, err := id.ParseSARID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	report, err := h.sars.GetSAR(r.Context(), sarID)
	h.writeSAR(w, r, report, err)
}

// HandleSARAction handles POST /aml/sars/{id}/{action}.
func (h *Handler) HandleSARAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sarID, err := id.ParseSARID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SARActionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	actor := requestcontext.ActorID(ctx)

	var report *sar.SuspiciousActivityReport
	switch action := chi.URLParam(r, "action"); action {
	case ActionSubmit:
		report, err = h.sars.SubmitForReview(ctx, sarID, actor)
	case ActionReview:
		report, err = h.sars.BeginReview(ctx, sarID, actor)
	case ActionSubmitForApproval:
		report, err = h.sars.SubmitForApproval(ctx, sarID, actor, req.Comment)
	case ActionApprove:
		report, err = h.sars.ApproveSAR(ctx, sarID, actor, req.Comment)
	case ActionReject:
		report, err = h.sars.RejectSAR(ctx, sarID, actor, req.Reason)
	case ActionFile:
		report, err = h.sars.FileSAR(ctx, sarID, actor)
	case ActionClose:
		report, err = h.sars.CloseSAR(ctx, sarID, actor, req.Reason)
	case ActionAssign:
		assignee, parseErr := id.ParseActorID(req.AssigneeID)
		if parseErr != nil {
			httputil.WriteError(w, parseErr)
			return
		}
		report, err = h.sars.AssignSAR(ctx, sarID, assignee, actor)
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown SAR action: "+action))
		return
	}
	h.writeSAR(w, r, report, err)
}

// HandleAddEvidence handles POST /aml/sars/{id}/evidence.
func (h *Handler) HandleAddEvidence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sarID, err := id.ParseSARID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[EvidenceRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	report, err := h.sars.AddEvidence(ctx, sarID, req.toModel(), requestcontext.ActorID(ctx))
	h.writeSAR(w, r, report, err)
}

// HandleAddTransaction handles POST /aml/sars/{id}/transactions.
func (h *Handler) HandleAddTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sarID, err := id.ParseSARID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransactionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	report, err := h.sars.AddRelatedTransaction(ctx, sarID, req.toModel(), requestcontext.ActorID(ctx))
	h.writeSAR(w, r, report, err)
}

// HandleSARReport handles GET /aml/sars/{id}/report.
func (h *Handler) HandleSARReport(w http.ResponseWriter, r *http.Request) {
	sarID, err := id.ParseSARID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.sars.GenerateReport(r.Context(), sarID)
	if err != nil {
		h.fail(w, r, "failed to generate SAR report", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// HandlePendingSARs handles GET /aml/sars/pending.
func (h *Handler) HandlePendingSARs(w http.ResponseWriter, r *http.Request) {
	reports, err := h.sars.PendingSARs(r.Context())
	if err != nil {
		h.fail(w, r, "failed to list pending SARs", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reports)
}

// HandleApproachingDeadline handles GET /aml/sars/deadlines?days=N.
func (h *Handler) HandleApproachingDeadline(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reports, err := h.sars.ApproachingDeadline(r.Context(), days)
	if err != nil {
		h.fail(w, r, "failed to list SARs approaching deadline", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reports)
}

// writeSAR writes a SAR response. A report returned alongside an error was
// persisted; only its event delivery failed.
func (h *Handler) writeSAR(w http.ResponseWriter, r *http.Request, report *sar.SuspiciousActivityReport, err error) {
	if err != nil && report == nil {
		h.fail(w, r, "SAR operation failed", err)
		return
	}
	if err != nil {
		h.logger.WarnContext(r.Context(), "SAR updated with degraded event delivery",
			"request_id", requestcontext.RequestID(r.Context()),
			"sar_id", report.ID,
			"error", err,
		)
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}
