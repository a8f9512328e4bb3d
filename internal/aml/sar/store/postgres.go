package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"amlcore/internal/aml/sar/models"
	id "amlcore/pkg/domain"
	"amlcore/pkg/platform/sentinel"
	txcontext "amlcore/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore keeps each SAR as a JSONB document. Execute locks the row
// with SELECT ... FOR UPDATE for the duration of validate and mutate.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres creates a PostgreSQL SAR store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// NextSequence draws from sar_reference_seq, which starts at FirstSequence.
func (s *PostgresStore) NextSequence(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.execer(ctx).QueryRowContext(ctx, `SELECT nextval('sar_reference_seq')`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next SAR sequence: %w", err)
	}
	return seq, nil
}

func (s *PostgresStore) Create(ctx context.Context, sar *models.SuspiciousActivityReport) error {
	doc, err := json.Marshal(sar)
	if err != nil {
		return fmt.Errorf("encode SAR: %w", err)
	}
	query := `
		INSERT INTO sars (id, reference_number, subject_id, status, due_date, created_at, version, document)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		sar.ID.String(),
		sar.ReferenceNumber,
		sar.SubjectID.String(),
		string(sar.Status),
		sar.DueDate,
		sar.CreatedAt,
		sar.Version,
		doc,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert SAR: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, sarID id.SARID) (*models.SuspiciousActivityReport, error) {
	return s.findOne(ctx, s.execer(ctx), `SELECT version, document FROM sars WHERE id = $1`, sarID.String())
}

func (s *PostgresStore) FindByReference(ctx context.Context, reference string) (*models.SuspiciousActivityReport, error) {
	return s.findOne(ctx, s.execer(ctx), `SELECT version, document FROM sars WHERE reference_number = $1`, reference)
}

func (s *PostgresStore) findOne(ctx context.Context, q dbExecutor, query string, arg any) (*models.SuspiciousActivityReport, error) {
	var (
		version int
		doc     []byte
	)
	err := q.QueryRowContext(ctx, query, arg).Scan(&version, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find SAR: %w", err)
	}
	return decodeSAR(version, doc)
}

// Execute runs validate and mutate inside a transaction holding the row lock.
// It joins a transaction already carried by ctx.
func (s *PostgresStore) Execute(ctx context.Context, sarID id.SARID, validate func(*models.SuspiciousActivityReport) error, mutate func(*models.SuspiciousActivityReport)) (*models.SuspiciousActivityReport, error) {
	var current *models.SuspiciousActivityReport
	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		q := s.execer(ctx)
		found, err := s.findOne(ctx, q, `SELECT version, document FROM sars WHERE id = $1 FOR UPDATE`, sarID.String())
		if err != nil {
			return err
		}
		if err := validate(found); err != nil {
			return err
		}
		mutate(found)
		found.Version++

		doc, err := json.Marshal(found)
		if err != nil {
			return fmt.Errorf("encode SAR: %w", err)
		}
		query := `
			UPDATE sars SET status = $2, due_date = $3, version = $4, document = $5
			WHERE id = $1
		`
		if _, err := q.ExecContext(ctx, query,
			sarID.String(),
			string(found.Status),
			found.DueDate,
			found.Version,
			doc,
		); err != nil {
			return fmt.Errorf("update SAR: %w", err)
		}
		current = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return current, nil
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]*models.SuspiciousActivityReport, error) {
	query := `
		SELECT version, document FROM sars
		WHERE status IN ('Draft', 'PendingReview', 'UnderReview', 'ApprovalRequired')
		ORDER BY due_date ASC, reference_number ASC
	`
	return s.list(ctx, query)
}

func (s *PostgresStore) ListDueBefore(ctx context.Context, cutoff time.Time) ([]*models.SuspiciousActivityReport, error) {
	query := `
		SELECT version, document FROM sars
		WHERE status NOT IN ('Filed', 'Closed') AND due_date <= $1
		ORDER BY due_date ASC, reference_number ASC
	`
	return s.list(ctx, query, cutoff)
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID id.IdentityID) ([]*models.SuspiciousActivityReport, error) {
	query := `
		SELECT version, document FROM sars
		WHERE subject_id = $1
		ORDER BY created_at DESC, reference_number DESC
	`
	return s.list(ctx, query, subjectID.String())
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.SuspiciousActivityReport, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query SARs: %w", err)
	}
	defer rows.Close()

	out := make([]*models.SuspiciousActivityReport, 0)
	for rows.Next() {
		var (
			version int
			doc     []byte
		)
		if err := rows.Scan(&version, &doc); err != nil {
			return nil, fmt.Errorf("scan SAR: %w", err)
		}
		sar, err := decodeSAR(version, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, sar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate SARs: %w", err)
	}
	return out, nil
}

func decodeSAR(version int, doc []byte) (*models.SuspiciousActivityReport, error) {
	var sar models.SuspiciousActivityReport
	if err := json.Unmarshal(doc, &sar); err != nil {
		return nil, fmt.Errorf("decode SAR: %w", err)
	}
	sar.Version = version
	return &sar, nil
}
