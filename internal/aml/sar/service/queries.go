package service

import (
	"context"
	"strings"

	"amlcore/internal/aml/sar/models"
	"amlcore/internal/aml/sar/report"
	id "amlcore/pkg/domain"
	dErrors "amlcore/pkg/domain-errors"
	"amlcore/pkg/platform/audit"
	"amlcore/pkg/requestcontext"
)

func (s *Service) GetSAR(ctx context.Context, sarID id.SARID) (*models.SuspiciousActivityReport, error) {
	sar, err := s.store.FindByID(ctx, sarID)
	if err != nil {
		return nil, wrapSARErr(err)
	}
	return sar, nil
}

func (s *Service) GetByReference(ctx context.Context, reference string) (*models.SuspiciousActivityReport, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reference is required")
	}
	sar, err := s.store.FindByReference(ctx, reference)
	if err != nil {
		return nil, wrapSARErr(err)
	}
	return sar, nil
}

// PendingSARs returns reports still awaiting a filing decision, earliest due
// first.
func (s *Service) PendingSARs(ctx context.Context) ([]*models.SuspiciousActivityReport, error) {
	sars, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending SARs")
	}
	return sars, nil
}

// ApproachingDeadline returns unfiled, unclosed reports due within days,
// overdue ones included, earliest due first. A non-positive days uses
// DefaultApproachingDays.
func (s *Service) ApproachingDeadline(ctx context.Context, days int) ([]*models.SuspiciousActivityReport, error) {
	if days <= 0 {
		days = DefaultApproachingDays
	}
	cutoff := requestcontext.Now(ctx).AddDate(0, 0, days)
	sars, err := s.store.ListDueBefore(ctx, cutoff)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list SARs approaching deadline")
	}
	return sars, nil
}

// SARsForIdentity returns the subject's reports, newest first.
func (s *Service) SARsForIdentity(ctx context.Context, subjectID id.IdentityID) ([]*models.SuspiciousActivityReport, error) {
	sars, err := s.store.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list SARs for identity")
	}
	return sars, nil
}

// GenerateReport renders the report document.
func (s *Service) GenerateReport(ctx context.Context, sarID id.SARID) ([]byte, error) {
	sar, err := s.GetSAR(ctx, sarID)
	if err != nil {
		return nil, err
	}
	doc, err := report.Render(sar)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render SAR report")
	}
	s.ledger(ctx, sar, audit.EventReportViewed, requestcontext.ActorID(ctx), "")
	return doc, nil
}
