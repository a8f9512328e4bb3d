// Package store persists SARs. Updates go through Execute so a report's
// validate-then-mutate step runs under a per-report lock.
package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"amlcore/internal/aml/sar/models"
	id "amlcore/pkg/domain"
	"amlcore/pkg/platform/sentinel"
	"amlcore/pkg/platform/tx"
)

// FirstSequence is the first reference sequence value a store hands out.
const FirstSequence = 1000

// InMemory keeps SARs in process. Execute serializes per report with a
// sharded locker so different reports never wait on a global lock.
type InMemory struct {
	mu          sync.RWMutex
	sars        map[id.SARID]*models.SuspiciousActivityReport
	byReference map[string]id.SARID
	locker      *tx.ShardedLocker
	seq         atomic.Int64
}

func NewInMemory() *InMemory {
	s := &InMemory{
		sars:        make(map[id.SARID]*models.SuspiciousActivityReport),
		byReference: make(map[string]id.SARID),
		locker:      tx.NewShardedLocker(0),
	}
	s.seq.Store(FirstSequence - 1)
	return s
}

// NextSequence returns the next reference sequence value, starting at
// FirstSequence.
func (s *InMemory) NextSequence(_ context.Context) (int64, error) {
	return s.seq.Add(1), nil
}

// Create stores a new report. A duplicate ID or reference is a conflict.
func (s *InMemory) Create(_ context.Context, sar *models.SuspiciousActivityReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sars[sar.ID]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.byReference[sar.ReferenceNumber]; ok {
		return sentinel.ErrConflict
	}
	s.sars[sar.ID] = sar.Clone()
	s.byReference[sar.ReferenceNumber] = sar.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, sarID id.SARID) (*models.SuspiciousActivityReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sar, ok := s.sars[sarID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return sar.Clone(), nil
}

func (s *InMemory) FindByReference(ctx context.Context, reference string) (*models.SuspiciousActivityReport, error) {
	s.mu.RLock()
	sarID, ok := s.byReference[reference]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.FindByID(ctx, sarID)
}

// Execute loads the report, runs validate and then mutate on a copy, and
// stores the copy at the next version. When validate fails nothing is written.
func (s *InMemory) Execute(ctx context.Context, sarID id.SARID, validate func(*models.SuspiciousActivityReport) error, mutate func(*models.SuspiciousActivityReport)) (*models.SuspiciousActivityReport, error) {
	var result *models.SuspiciousActivityReport
	err := s.locker.WithLock(ctx, sarID.String(), func(ctx context.Context) error {
		current, err := s.FindByID(ctx, sarID)
		if err != nil {
			return err
		}
		if err := validate(current); err != nil {
			return err
		}
		mutate(current)
		current.Version++

		s.mu.Lock()
		s.sars[sarID] = current.Clone()
		s.mu.Unlock()
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListPending returns Draft, PendingReview, UnderReview and ApprovalRequired
// reports, earliest due first.
func (s *InMemory) ListPending(_ context.Context) ([]*models.SuspiciousActivityReport, error) {
	return s.collect(func(r *models.SuspiciousActivityReport) bool { return r.Status.IsPending() }, byDueDate), nil
}

// ListDueBefore returns reports that are neither Filed nor Closed and are due
// at or before cutoff, earliest due first.
func (s *InMemory) ListDueBefore(_ context.Context, cutoff time.Time) ([]*models.SuspiciousActivityReport, error) {
	return s.collect(func(r *models.SuspiciousActivityReport) bool {
		return r.IsOpen() && !r.DueDate.After(cutoff)
	}, byDueDate), nil
}

// ListBySubject returns the subject's reports, newest first.
func (s *InMemory) ListBySubject(_ context.Context, subjectID id.IdentityID) ([]*models.SuspiciousActivityReport, error) {
	return s.collect(func(r *models.SuspiciousActivityReport) bool { return r.SubjectID == subjectID }, newestFirst), nil
}

func (s *InMemory) collect(keep func(*models.SuspiciousActivityReport) bool, order func(a, b *models.SuspiciousActivityReport) int) []*models.SuspiciousActivityReport {
	s.mu.RLock()
	out := make([]*models.SuspiciousActivityReport, 0)
	for _, r := range s.sars {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, order)
	return out
}

func byDueDate(a, b *models.SuspiciousActivityReport) int {
	if c := a.DueDate.Compare(b.DueDate); c != 0 {
		return c
	}
	return cmp.Compare(a.ReferenceNumber, b.ReferenceNumber)
}

func newestFirst(a, b *models.SuspiciousActivityReport) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ReferenceNumber, a.ReferenceNumber)
}
