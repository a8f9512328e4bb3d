package store

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amlcore/internal/aml/sar/models"
	id "amlcore/pkg/domain"
	dErrors "amlcore/pkg/domain-errors"
	"amlcore/pkg/platform/sentinel"
)

func testSAR(t *testing.T) *models.SuspiciousActivityReport {
	t.Helper()
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	sar := models.NewSAR(models.CreateRequest{
		SubjectID:   id.IdentityID(uuid.New()),
		SubjectName: "Subject",
		Trigger:     models.TriggerHighRiskScore,
		Type:        models.ActivityFraud,
		Priority:    models.PriorityHigh,
		Narrative:   "n",
		CreatedBy:   id.ActorID(uuid.New()),
	}, "SAR-20260110-01000", now, 30)
	sar.Version = 1
	return sar
}

func TestPostgresStore_NextSequence(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT nextval('sar_reference_seq')")).
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(int64(1042)))

	seq, err := NewPostgres(db).NextSequence(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1042), seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgres(db)
	sar := testSAR(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sars")).
		WithArgs(sar.ID.String(), sar.ReferenceNumber, sar.SubjectID.String(), "Draft", sar.DueDate, sar.CreatedAt, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, store.Create(context.Background(), sar))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sars")).
		WillReturnError(&pq.Error{Code: "23505"})
	assert.ErrorIs(t, store.Create(context.Background(), sar), sentinel.ErrConflict)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Execute(t *testing.T) {
	sar := testSAR(t)
	doc, err := json.Marshal(sar)
	require.NoError(t, err)
	actor := id.ActorID(uuid.New())
	lockQuery := regexp.QuoteMeta("SELECT version, document FROM sars WHERE id = $1 FOR UPDATE")

	t.Run("locks, mutates and commits", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).
			WithArgs(sar.ID.String()).
			WillReturnRows(sqlmock.NewRows([]string{"version", "document"}).AddRow(1, doc))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE sars SET status = $2")).
			WithArgs(sar.ID.String(), "PendingReview", sar.DueDate, 2, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		updated, err := NewPostgres(db).Execute(context.Background(), sar.ID,
			func(r *models.SuspiciousActivityReport) error { return r.CanTransition(models.StatusPendingReview) },
			func(r *models.SuspiciousActivityReport) {
				r.ApplyTransition(models.StatusPendingReview, actor, "", sar.CreatedAt)
			},
		)
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Version)
		assert.Len(t, updated.History, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("validation failure rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).
			WillReturnRows(sqlmock.NewRows([]string{"version", "document"}).AddRow(1, doc))
		mock.ExpectRollback()

		_, err = NewPostgres(db).Execute(context.Background(), sar.ID,
			func(r *models.SuspiciousActivityReport) error { return r.CanFile() },
			func(*models.SuspiciousActivityReport) { t.Fatal("mutate must not run") },
		)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeFilingNotAllowed))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row is not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WillReturnRows(sqlmock.NewRows([]string{"version", "document"}))
		mock.ExpectRollback()

		_, err = NewPostgres(db).Execute(context.Background(), sar.ID,
			func(*models.SuspiciousActivityReport) error { return nil },
			func(*models.SuspiciousActivityReport) {},
		)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update failure is wrapped", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		boom := errors.New("disk full")
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).
			WillReturnRows(sqlmock.NewRows([]string{"version", "document"}).AddRow(1, doc))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE sars")).WillReturnError(boom)
		mock.ExpectRollback()

		_, err = NewPostgres(db).Execute(context.Background(), sar.ID,
			func(*models.SuspiciousActivityReport) error { return nil },
			func(*models.SuspiciousActivityReport) {},
		)
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_ListDueBefore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	sar := testSAR(t)
	doc, err := json.Marshal(sar)
	require.NoError(t, err)
	cutoff := sar.DueDate

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status NOT IN ('Filed', 'Closed') AND due_date <= $1")).
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"version", "document"}).AddRow(3, doc))

	out, err := NewPostgres(db).ListDueBefore(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 3, out[0].Version)
	assert.Equal(t, sar.ReferenceNumber, out[0].ReferenceNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}
