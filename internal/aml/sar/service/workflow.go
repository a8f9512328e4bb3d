package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"amlcore/internal/aml/events"
	"amlcore/internal/aml/sar/models"
	"amlcore/internal/aml/sar/regulator"
	id "amlcore/pkg/domain"
	dErrors "amlcore/pkg/domain-errors"
	"amlcore/pkg/platform/audit"
	"amlcore/pkg/requestcontext"
)

// CreateSAR opens a Draft report with the next reference number and a due
// date deadlineDays out. A publish failure is returned with the stored SAR.
func (s *Service) CreateSAR(ctx context.Context, req models.CreateRequest) (sar *models.SuspiciousActivityReport, err error) {
	ctx, span := tracer.Start(ctx, "sar.create", trace.WithAttributes(
		attribute.String("identity_id", req.SubjectID.String()),
		attribute.String("sar.trigger", string(req.Trigger)),
	))
	defer func() { endSpan(span, err) }()

	req.Normalize()
	if req.CreatedBy.IsNil() {
		req.CreatedBy = requestcontext.ActorID(ctx)
	}
	if req.SubjectID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "subject_id is required")
	}
	if err := requireActor(req.CreatedBy, "created_by"); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	for _, t := range req.RelatedTransactions {
		if err := validateAmount(t); err != nil {
			return nil, err
		}
	}

	now := requestcontext.Now(ctx)
	seq, err := s.store.NextSequence(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate SAR reference")
	}
	sar = models.NewSAR(req, models.FormatReference(now, seq), now, s.deadlineDays)
	sar.Version = 1
	if err := s.store.Create(ctx, sar); err != nil {
		return nil, wrapSARErr(err)
	}
	span.SetAttributes(attribute.String("sar.reference", sar.ReferenceNumber))

	s.metrics.IncCreated(string(sar.Trigger), string(sar.Priority))
	s.ledger(ctx, sar, audit.EventSARCreated, sar.CreatedBy, string(sar.Trigger))
	s.logger.InfoContext(ctx, "SAR created",
		"sar_id", sar.ID,
		"reference", sar.ReferenceNumber,
		"identity_id", sar.SubjectID,
		"trigger", sar.Trigger,
		"due_date", sar.DueDate,
	)

	err = s.publisher.Publish(ctx, events.SARCreated{
		SARID:           sar.ID,
		ReferenceNumber: sar.ReferenceNumber,
		SubjectID:       sar.SubjectID,
		Trigger:         string(sar.Trigger),
		Priority:        string(sar.Priority),
		Timestamp:       sar.CreatedAt,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish SAR created", "sar_id", sar.ID, "error", err)
		return sar, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to publish SAR created event")
	}
	return sar, nil
}

// SubmitForReview moves a Draft report to PendingReview.
func (s *Service) SubmitForReview(ctx context.Context, sarID id.SARID, actor id.ActorID) (*models.SuspiciousActivityReport, error) {
	return s.transition(ctx, sarID, actor, models.StatusPendingReview, "Submitted for review")
}

// BeginReview moves a PendingReview report to UnderReview.
func (s *Service) BeginReview(ctx context.Context, sarID id.SARID, actor id.ActorID) (*models.SuspiciousActivityReport, error) {
	return s.transition(ctx, sarID, actor, models.StatusUnderReview, "Review started")
}

// SubmitForApproval sends any non-terminal report to a supervisor, including
// one already Approved that needs another look. The comment is required.
func (s *Service) SubmitForApproval(ctx context.Context, sarID id.SARID, actor id.ActorID, comment string) (*models.SuspiciousActivityReport, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "comment is required")
	}
	return s.transition(ctx, sarID, actor, models.StatusApprovalRequired, comment)
}

// ApproveSAR approves a report awaiting approval.
func (s *Service) ApproveSAR(ctx context.Context, sarID id.SARID, approver id.ActorID, comment string) (*models.SuspiciousActivityReport, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		comment = "Approved for filing"
	}
	return s.transition(ctx, sarID, approver, models.StatusApproved, comment)
}

// RejectSAR returns a report awaiting approval to UnderReview.
func (s *Service) RejectSAR(ctx context.Context, sarID id.SARID, approver id.ActorID, reason string) (*models.SuspiciousActivityReport, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return s.transition(ctx, sarID, approver, models.StatusUnderReview, "Rejected: "+reason)
}

// CloseSAR closes a filed or still open report.
func (s *Service) CloseSAR(ctx context.Context, sarID id.SARID, actor id.ActorID, reason string) (*models.SuspiciousActivityReport, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return s.transition(ctx, sarID, actor, models.StatusClosed, reason)
}

func (s *Service) transition(ctx context.Context, sarID id.SARID, actor id.ActorID, to models.Status, comment string) (sar *models.SuspiciousActivityReport, err error) {
	ctx, span := tracer.Start(ctx, "sar.transition", trace.WithAttributes(
		attribute.String("sar_id", sarID.String()),
		attribute.String("sar.to", string(to)),
	))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor, "actor"); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var from models.Status
	sar, err = s.store.Execute(ctx, sarID,
		func(r *models.SuspiciousActivityReport) error {
			from = r.Status
			return r.CanTransition(to)
		},
		func(r *models.SuspiciousActivityReport) {
			r.ApplyTransition(to, actor, comment, now)
		},
	)
	if err != nil {
		return nil, wrapSARErr(err)
	}

	s.metrics.IncTransition(string(from), string(to))
	s.ledger(ctx, sar, audit.EventSARTransitioned, actor, string(from)+" -> "+string(to)+": "+comment)
	s.logger.InfoContext(ctx, "SAR status updated",
		"sar_id", sar.ID,
		"reference", sar.ReferenceNumber,
		"from", from,
		"to", to,
	)
	return sar, nil
}

// FileSAR submits an Approved report to the regulator and moves it to Filed.
// Any other status fails with CodeFilingNotAllowed and leaves the report
// untouched. The gateway is called under the report's lock so a report is
// filed at most once.
func (s *Service) FileSAR(ctx context.Context, sarID id.SARID, actor id.ActorID) (sar *models.SuspiciousActivityReport, err error) {
	ctx, span := tracer.Start(ctx, "sar.file", trace.WithAttributes(
		attribute.String("sar_id", sarID.String()),
	))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor, "actor"); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var receipt regulator.Receipt
	sar, err = s.store.Execute(ctx, sarID,
		func(r *models.SuspiciousActivityReport) error {
			if err := r.CanFile(); err != nil {
				return err
			}
			rc, err := s.gateway.File(ctx, r)
			if err != nil {
				s.metrics.IncFilingFailure()
				return dErrors.Wrap(err, dErrors.CodeUnavailable, "regulator filing failed")
			}
			receipt = rc
			return nil
		},
		func(r *models.SuspiciousActivityReport) {
			r.ApplyFiling(receipt.ConfirmationNumber, receipt.FiledWith, actor, now)
		},
	)
	if err != nil {
		return nil, wrapSARErr(err)
	}
	span.SetAttributes(attribute.Bool("sar.deadline_met", sar.DeadlineMet))

	s.metrics.IncTransition(string(models.StatusApproved), string(models.StatusFiled))
	s.metrics.IncFiling(sar.DeadlineMet)
	s.ledger(ctx, sar, audit.EventSARFiled, actor, sar.ConfirmationNumber)
	s.logger.InfoContext(ctx, "SAR filed",
		"sar_id", sar.ID,
		"reference", sar.ReferenceNumber,
		"confirmation", sar.ConfirmationNumber,
		"deadline_met", sar.DeadlineMet,
	)

	err = s.publisher.Publish(ctx, events.SARFiled{
		SARID:              sar.ID,
		ReferenceNumber:    sar.ReferenceNumber,
		ConfirmationNumber: sar.ConfirmationNumber,
		FiledWith:          sar.FiledWith,
		Timestamp:          now,
		DeadlineMet:        sar.DeadlineMet,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish SAR filed", "sar_id", sar.ID, "error", err)
		return sar, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to publish SAR filed event")
	}
	return sar, nil
}

// AssignSAR assigns the report. It is allowed in every status and never
// changes it.
func (s *Service) AssignSAR(ctx context.Context, sarID id.SARID, assignee, actor id.ActorID) (*models.SuspiciousActivityReport, error) {
	if err := requireActor(assignee, "assignee"); err != nil {
		return nil, err
	}
	if err := requireActor(actor, "actor"); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	sar, err := s.store.Execute(ctx, sarID,
		func(*models.SuspiciousActivityReport) error { return nil },
		func(r *models.SuspiciousActivityReport) { r.ApplyAssignment(assignee, actor, now) },
	)
	if err != nil {
		return nil, wrapSARErr(err)
	}
	s.ledger(ctx, sar, audit.EventSARAssigned, actor, assignee.String())
	return sar, nil
}

// AddEvidence appends an evidence item to an open report.
func (s *Service) AddEvidence(ctx context.Context, sarID id.SARID, evidence models.Evidence, actor id.ActorID) (*models.SuspiciousActivityReport, error) {
	if err := requireActor(actor, "actor"); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(evidence); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	sar, err := s.store.Execute(ctx, sarID,
		func(r *models.SuspiciousActivityReport) error { return r.CanAppend() },
		func(r *models.SuspiciousActivityReport) { r.ApplyEvidence(evidence, actor, now) },
	)
	if err != nil {
		return nil, wrapSARErr(err)
	}
	s.ledger(ctx, sar, audit.EventSAREvidence, actor, evidence.Kind)
	return sar, nil
}

// AddRelatedTransaction appends a transaction to an open report.
func (s *Service) AddRelatedTransaction(ctx context.Context, sarID id.SARID, txn models.RelatedTransaction, actor id.ActorID) (*models.SuspiciousActivityReport, error) {
	if err := requireActor(actor, "actor"); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(txn); err != nil {
		return nil, err
	}
	if err := validateAmount(txn); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	sar, err := s.store.Execute(ctx, sarID,
		func(r *models.SuspiciousActivityReport) error { return r.CanAppend() },
		func(r *models.SuspiciousActivityReport) { r.ApplyRelatedTransaction(txn, now) },
	)
	if err != nil {
		return nil, wrapSARErr(err)
	}
	s.ledger(ctx, sar, audit.EventSARTransaction, actor, txn.TransactionID)
	return sar, nil
}

func validateAmount(t models.RelatedTransaction) error {
	if !t.Amount.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	return nil
}
