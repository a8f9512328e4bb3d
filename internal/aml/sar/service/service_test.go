package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"amlcore/internal/aml/events"
	eventsmemory "amlcore/internal/aml/events/memory"
	"amlcore/internal/aml/sar/models"
	"amlcore/internal/aml/sar/regulator"
	"amlcore/internal/aml/sar/store"
	id "amlcore/pkg/domain"
	dErrors "amlcore/pkg/domain-errors"
	"amlcore/pkg/platform/audit"
	"amlcore/pkg/platform/audit/publisher"
	auditmemory "amlcore/pkg/platform/audit/store/memory"
	"amlcore/pkg/requestcontext"
)

// =============================================================================
// SAR Service Test Suite
// =============================================================================
// Justification for unit tests: the workflow state machine, the filing
// deadline computation and the regulator call ordering are business rules
// whose failure modes (double filing, silent status change) are only
// reachable by driving the service with a controllable clock and gateway.

type SARServiceSuite struct {
	suite.Suite
	store   *store.InMemory
	gateway *regulator.Simulated
	events  *eventsmemory.Recorder
	ledger  *auditmemory.InMemoryStore
	service *Service
	t0      time.Time
	analyst id.ActorID
	lead    id.ActorID
}

func TestSARServiceSuite(t *testing.T) {
	suite.Run(t, new(SARServiceSuite))
}

func (s *SARServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.gateway = regulator.NewSimulated()
	s.events = eventsmemory.NewRecorder()
	s.ledger = auditmemory.NewInMemoryStore()
	s.t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	s.analyst = id.ActorID(uuid.New())
	s.lead = id.ActorID(uuid.New())

	var err error
	s.service, err = New(s.store,
		WithPublisher(s.events),
		WithAuditPublisher(publisher.NewPublisher(s.ledger)),
		WithGateway(s.gateway),
	)
	s.Require().NoError(err)
}

func (s *SARServiceSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *SARServiceSuite) request(subject id.IdentityID) models.CreateRequest {
	return models.CreateRequest{
		SubjectID:          subject,
		SubjectName:        "Ivan Petrov",
		Trigger:            models.TriggerSanctionsMatch,
		Type:               models.ActivitySanctionsEvasion,
		Priority:           models.PriorityHigh,
		Narrative:          "Confirmed match against the consolidated sanctions list.",
		ActivityDetectedAt: s.t0.Add(-time.Hour),
		CreatedBy:          s.analyst,
	}
}

func (s *SARServiceSuite) create() *models.SuspiciousActivityReport {
	sar, err := s.service.CreateSAR(s.at(s.t0), s.request(id.IdentityID(uuid.New())))
	s.Require().NoError(err)
	return sar
}

// approved drives a fresh report through review to Approved at t0.
func (s *SARServiceSuite) approved() *models.SuspiciousActivityReport {
	sar := s.create()
	ctx := s.at(s.t0)
	_, err := s.service.SubmitForReview(ctx, sar.ID, s.analyst)
	s.Require().NoError(err)
	_, err = s.service.BeginReview(ctx, sar.ID, s.analyst)
	s.Require().NoError(err)
	_, err = s.service.SubmitForApproval(ctx, sar.ID, s.analyst, "Evidence complete")
	s.Require().NoError(err)
	sar, err = s.service.ApproveSAR(ctx, sar.ID, s.lead, "")
	s.Require().NoError(err)
	return sar
}

// =============================================================================
// Creation
// =============================================================================

func (s *SARServiceSuite) TestCreateSAR() {
	s.Run("opens a draft with reference and due date", func() {
		sar := s.create()

		s.Equal("SAR-20260302-01000", sar.ReferenceNumber)
		s.Equal(models.StatusDraft, sar.Status)
		s.Equal(s.t0.AddDate(0, 0, 30), sar.DueDate)
		s.Require().Len(sar.History, 1)
		s.Equal("SAR created", sar.History[0].Comments)
		s.Equal(1, sar.Version)
	})

	s.Run("publishes SARCreated", func() {
		s.events.Reset()
		sar := s.create()

		created := s.events.OfType(events.TypeSARCreated)
		s.Require().Len(created, 1)
		e := created[0].(events.SARCreated)
		s.Equal(sar.ID, e.SARID)
		s.Equal(sar.ReferenceNumber, e.ReferenceNumber)
		s.Equal("SanctionsMatch", e.Trigger)
	})

	s.Run("references are unique and increasing", func() {
		a := s.create()
		b := s.create()
		s.NotEqual(a.ReferenceNumber, b.ReferenceNumber)
		s.Less(a.ReferenceNumber, b.ReferenceNumber)
	})

	s.Run("created_by falls back to the request actor", func() {
		req := s.request(id.IdentityID(uuid.New()))
		req.CreatedBy = id.ActorID{}
		ctx := requestcontext.WithActorID(s.at(s.t0), s.lead)

		sar, err := s.service.CreateSAR(ctx, req)
		s.Require().NoError(err)
		s.Equal(s.lead, sar.CreatedBy)
	})

	s.Run("writes a compliance ledger entry", func() {
		sar := s.create()
		entries, err := s.ledger.ListBySubject(context.Background(), sar.ID.String())
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(string(audit.EventSARCreated), entries[0].Action)
		s.Equal(sar.ReferenceNumber, entries[0].Reference)
	})
}

func (s *SARServiceSuite) TestCreateSAR_Validation() {
	cases := []struct {
		name   string
		mutate func(*models.CreateRequest)
	}{
		{"missing subject", func(r *models.CreateRequest) { r.SubjectID = id.IdentityID{} }},
		{"missing creator", func(r *models.CreateRequest) { r.CreatedBy = id.ActorID{} }},
		{"blank narrative", func(r *models.CreateRequest) { r.Narrative = "   " }},
		{"unknown trigger", func(r *models.CreateRequest) { r.Trigger = "Hunch" }},
		{"unknown priority", func(r *models.CreateRequest) { r.Priority = "Urgent" }},
		{"non-positive amount", func(r *models.CreateRequest) {
			r.RelatedTransactions = []models.RelatedTransaction{{
				TransactionID: "tx-1",
				Amount:        decimal.Zero,
				Currency:      "EUR",
			}}
		}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			req := s.request(id.IdentityID(uuid.New()))
			tc.mutate(&req)

			_, err := s.service.CreateSAR(s.at(s.t0), req)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
		})
	}
}

func (s *SARServiceSuite) TestCreateSAR_PublishFailure() {
	s.events.FailWith(errors.New("broker down"))

	sar, err := s.service.CreateSAR(s.at(s.t0), s.request(id.IdentityID(uuid.New())))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Require().NotNil(sar)

	stored, getErr := s.service.GetSAR(context.Background(), sar.ID)
	s.Require().NoError(getErr)
	s.Equal(sar.ReferenceNumber, stored.ReferenceNumber)
}

// =============================================================================
// Workflow
// =============================================================================

func (s *SARServiceSuite) TestWorkflow_HappyPath() {
	sar := s.approved()

	s.Equal(models.StatusApproved, sar.Status)
	s.Require().Len(sar.History, 5)
	s.Equal("Approved for filing", sar.History[4].Comments)
	s.Equal(s.lead, sar.History[4].PerformedBy)

	entries, err := s.ledger.ListBySubject(context.Background(), sar.ID.String())
	s.Require().NoError(err)
	s.Len(entries, 5)
}

func (s *SARServiceSuite) TestWorkflow_IllegalTransitions() {
	s.Run("begin review from draft", func() {
		sar := s.create()
		_, err := s.service.BeginReview(s.at(s.t0), sar.ID, s.analyst)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

		stored, _ := s.service.GetSAR(context.Background(), sar.ID)
		s.Equal(models.StatusDraft, stored.Status)
		s.Len(stored.History, 1)
	})

	s.Run("approve without approval request", func() {
		sar := s.create()
		_, err := s.service.ApproveSAR(s.at(s.t0), sar.ID, s.lead, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("anything after close", func() {
		sar := s.create()
		_, err := s.service.CloseSAR(s.at(s.t0), sar.ID, s.lead, "Duplicate referral")
		s.Require().NoError(err)

		_, err = s.service.SubmitForReview(s.at(s.t0), sar.ID, s.analyst)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		_, err = s.service.CloseSAR(s.at(s.t0), sar.ID, s.lead, "again")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *SARServiceSuite) TestWorkflow_RejectReturnsToReview() {
	sar := s.create()
	ctx := s.at(s.t0)
	_, err := s.service.SubmitForApproval(ctx, sar.ID, s.analyst, "Straight to approval")
	s.Require().NoError(err)

	_, err = s.service.RejectSAR(ctx, sar.ID, s.lead, "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	sar, err = s.service.RejectSAR(ctx, sar.ID, s.lead, "Narrative lacks counterparties")
	s.Require().NoError(err)
	s.Equal(models.StatusUnderReview, sar.Status)
	s.Contains(sar.History[len(sar.History)-1].Comments, "Narrative lacks counterparties")
}

func (s *SARServiceSuite) TestWorkflow_ResubmitApprovedForApproval() {
	sar := s.approved()

	sar, err := s.service.SubmitForApproval(s.at(s.t0), sar.ID, s.analyst, "needs another look")
	s.Require().NoError(err)
	s.Equal(models.StatusApprovalRequired, sar.Status)
	last := sar.History[len(sar.History)-1]
	s.Equal(models.StatusApproved, last.From)
	s.Equal(models.StatusApprovalRequired, last.To)

	_, err = s.service.FileSAR(s.at(s.t0), sar.ID, s.lead)
	s.True(dErrors.HasCode(err, dErrors.CodeFilingNotAllowed))
}

func (s *SARServiceSuite) TestWorkflow_RequiredComments() {
	sar := s.create()
	_, err := s.service.SubmitForApproval(s.at(s.t0), sar.ID, s.analyst, " ")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	_, err = s.service.CloseSAR(s.at(s.t0), sar.ID, s.lead, "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	_, err = s.service.SubmitForReview(s.at(s.t0), sar.ID, id.ActorID{})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *SARServiceSuite) TestWorkflow_UnknownSAR() {
	_, err := s.service.SubmitForReview(s.at(s.t0), id.SARID(uuid.New()), s.analyst)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	_, err = s.service.GetSAR(context.Background(), id.SARID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// =============================================================================
// Filing
// =============================================================================

func (s *SARServiceSuite) TestFileSAR_DeadlineMet() {
	sar := s.approved()

	filed, err := s.service.FileSAR(s.at(s.t0.AddDate(0, 0, 10)), sar.ID, s.lead)
	s.Require().NoError(err)

	s.Equal(models.StatusFiled, filed.Status)
	s.True(filed.DeadlineMet)
	s.Equal("SCOB-20260312-10000", filed.ConfirmationNumber)
	s.Equal(regulator.DefaultAuthority, filed.FiledWith)
	s.Require().NotNil(filed.FiledAt)
	s.Equal(sar.ReferenceNumber, filed.ReferenceNumber)

	published := s.events.OfType(events.TypeSARFiled)
	s.Require().Len(published, 1)
	e := published[0].(events.SARFiled)
	s.True(e.DeadlineMet)
	s.Equal(filed.ConfirmationNumber, e.ConfirmationNumber)
}

func (s *SARServiceSuite) TestFileSAR_DeadlineMissed() {
	sar := s.approved()

	filed, err := s.service.FileSAR(s.at(s.t0.AddDate(0, 0, 35)), sar.ID, s.lead)
	s.Require().NoError(err)

	s.False(filed.DeadlineMet)
	s.Equal(sar.ReferenceNumber, filed.ReferenceNumber)
	s.False(s.events.OfType(events.TypeSARFiled)[0].(events.SARFiled).DeadlineMet)
}

func (s *SARServiceSuite) TestFileSAR_RequiresApproval() {
	sar := s.create()

	_, err := s.service.FileSAR(s.at(s.t0), sar.ID, s.lead)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeFilingNotAllowed))

	stored, _ := s.service.GetSAR(context.Background(), sar.ID)
	s.Equal(models.StatusDraft, stored.Status)
	s.Len(stored.History, 1)
	s.Empty(s.gateway.Filed())
	s.Empty(s.events.OfType(events.TypeSARFiled))
}

func (s *SARServiceSuite) TestFileSAR_OnlyOnce() {
	sar := s.approved()
	_, err := s.service.FileSAR(s.at(s.t0), sar.ID, s.lead)
	s.Require().NoError(err)

	_, err = s.service.FileSAR(s.at(s.t0), sar.ID, s.lead)
	s.True(dErrors.HasCode(err, dErrors.CodeFilingNotAllowed))
	s.Len(s.gateway.Filed(), 1)
}

func (s *SARServiceSuite) TestFileSAR_GatewayFailure() {
	sar := s.approved()
	s.gateway.FailWith(errors.New("regulator offline"))

	_, err := s.service.FileSAR(s.at(s.t0), sar.ID, s.lead)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	stored, _ := s.service.GetSAR(context.Background(), sar.ID)
	s.Equal(models.StatusApproved, stored.Status)
	s.Nil(stored.FiledAt)

	s.gateway.FailWith(nil)
	filed, err := s.service.FileSAR(s.at(s.t0), sar.ID, s.lead)
	s.Require().NoError(err)
	s.Equal(models.StatusFiled, filed.Status)
}

func (s *SARServiceSuite) TestCloseAfterFiling() {
	sar := s.approved()
	_, err := s.service.FileSAR(s.at(s.t0), sar.ID, s.lead)
	s.Require().NoError(err)

	closed, err := s.service.CloseSAR(s.at(s.t0.Add(time.Hour)), sar.ID, s.lead, "Regulator acknowledged")
	s.Require().NoError(err)
	s.Equal(models.StatusClosed, closed.Status)
	s.NotEmpty(closed.ConfirmationNumber)
}

// =============================================================================
// Case file
// =============================================================================

func (s *SARServiceSuite) TestAssignSAR() {
	sar := s.create()
	_, err := s.service.CloseSAR(s.at(s.t0), sar.ID, s.lead, "No further action")
	s.Require().NoError(err)

	assigned, err := s.service.AssignSAR(s.at(s.t0), sar.ID, s.analyst, s.lead)
	s.Require().NoError(err)
	s.Equal(models.StatusClosed, assigned.Status)
	s.Require().NotNil(assigned.AssignedTo)
	s.Equal(s.analyst, *assigned.AssignedTo)
}

func (s *SARServiceSuite) TestAddEvidence() {
	sar := s.create()

	updated, err := s.service.AddEvidence(s.at(s.t0), sar.ID, models.Evidence{
		Kind:        "screening",
		Description: "Screening result with confirmed match",
	}, s.analyst)
	s.Require().NoError(err)
	s.Require().Len(updated.Evidence, 1)
	s.NotEqual(uuid.Nil, updated.Evidence[0].ID)
	s.Equal(s.analyst, updated.Evidence[0].AddedBy)

	_, err = s.service.AddEvidence(s.at(s.t0), sar.ID, models.Evidence{Kind: "note"}, s.analyst)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.service.CloseSAR(s.at(s.t0), sar.ID, s.lead, "Closed")
	s.Require().NoError(err)
	_, err = s.service.AddEvidence(s.at(s.t0), sar.ID, models.Evidence{
		Kind:        "note",
		Description: "late",
	}, s.analyst)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *SARServiceSuite) TestAddRelatedTransaction() {
	sar := s.create()
	txn := models.RelatedTransaction{
		TransactionID: "tx-9",
		Amount:        decimal.RequireFromString("9500.00"),
		Currency:      "EUR",
		OccurredAt:    s.t0.Add(-48 * time.Hour),
	}

	updated, err := s.service.AddRelatedTransaction(s.at(s.t0), sar.ID, txn, s.analyst)
	s.Require().NoError(err)
	s.Require().Len(updated.RelatedTransactions, 1)

	txn.Amount = decimal.NewFromInt(-5)
	_, err = s.service.AddRelatedTransaction(s.at(s.t0), sar.ID, txn, s.analyst)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

// =============================================================================
// Queries
// =============================================================================

func (s *SARServiceSuite) TestPendingAndApproaching() {
	ctx := context.Background()
	early := s.create()
	late, err := s.service.CreateSAR(s.at(s.t0.AddDate(0, 0, 5)), s.request(id.IdentityID(uuid.New())))
	s.Require().NoError(err)
	approved := s.approved()

	pending, err := s.service.PendingSARs(ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(early.ID, pending[0].ID)
	s.Equal(late.ID, pending[1].ID)

	// due dates: early and approved at t0+30d, late at t0+35d
	soon, err := s.service.ApproachingDeadline(s.at(s.t0.AddDate(0, 0, 28)), 0)
	s.Require().NoError(err)
	s.Len(soon, 2)
	for _, sar := range soon {
		s.NotEqual(late.ID, sar.ID)
	}
	s.Contains([]id.SARID{soon[0].ID, soon[1].ID}, approved.ID)

	wider, err := s.service.ApproachingDeadline(s.at(s.t0.AddDate(0, 0, 28)), 7)
	s.Require().NoError(err)
	s.Len(wider, 3)
	s.Equal(late.ID, wider[2].ID)
}

func (s *SARServiceSuite) TestSARsForIdentity() {
	subject := id.IdentityID(uuid.New())
	first, err := s.service.CreateSAR(s.at(s.t0), s.request(subject))
	s.Require().NoError(err)
	second, err := s.service.CreateSAR(s.at(s.t0.Add(time.Hour)), s.request(subject))
	s.Require().NoError(err)
	s.create()

	sars, err := s.service.SARsForIdentity(context.Background(), subject)
	s.Require().NoError(err)
	s.Require().Len(sars, 2)
	s.Equal(second.ID, sars[0].ID)
	s.Equal(first.ID, sars[1].ID)
}

func (s *SARServiceSuite) TestGetByReference() {
	sar := s.create()

	found, err := s.service.GetByReference(context.Background(), sar.ReferenceNumber)
	s.Require().NoError(err)
	s.Equal(sar.ID, found.ID)

	_, err = s.service.GetByReference(context.Background(), "SAR-19990101-00001")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *SARServiceSuite) TestGenerateReport() {
	sar := s.approved()
	_, err := s.service.FileSAR(s.at(s.t0.AddDate(0, 0, 3)), sar.ID, s.lead)
	s.Require().NoError(err)

	first, err := s.service.GenerateReport(context.Background(), sar.ID)
	s.Require().NoError(err)
	second, err := s.service.GenerateReport(context.Background(), sar.ID)
	s.Require().NoError(err)

	s.Equal(first, second)
	s.True(strings.Contains(string(first), sar.ReferenceNumber))
	s.Contains(string(first), "FILING INFORMATION")
}
