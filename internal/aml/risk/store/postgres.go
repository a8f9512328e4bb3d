package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"amlcore/internal/aml/risk/models"
	id "amlcore/pkg/domain"
	"amlcore/pkg/platform/sentinel"
	txcontext "amlcore/pkg/platform/tx"
)

// PostgresStore keeps each profile as a JSONB document next to the columns
// the review queries filter and sort on.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres creates a PostgreSQL risk profile store.
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

func (s *PostgresStore) Find(ctx context.Context, identityID id.IdentityID) (*models.RiskProfile, error) {
	query := `SELECT version, document FROM risk_profiles WHERE identity_id = $1`
	var (
		version int
		doc     []byte
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, identityID.String()).Scan(&version, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find risk profile: %w", err)
	}
	return decodeProfile(version, doc)
}

// Save inserts when expectedVersion is 0 and otherwise updates only the row
// still at expectedVersion. Zero affected rows is a conflict.
func (s *PostgresStore) Save(ctx context.Context, profile *models.RiskProfile, expectedVersion int) error {
	doc, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode risk profile: %w", err)
	}

	var res sql.Result
	if expectedVersion == 0 {
		query := `
			INSERT INTO risk_profiles (identity_id, version, risk_level, risk_score, next_review_at, document, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (identity_id) DO NOTHING
		`
		res, err = s.execer(ctx).ExecContext(ctx, query,
			profile.IdentityID.String(),
			profile.Version,
			string(profile.Level),
			profile.Score,
			profile.NextReviewAt,
			doc,
			profile.UpdatedAt,
		)
	} else {
		query := `
			UPDATE risk_profiles
			SET version = $2, risk_level = $3, risk_score = $4, next_review_at = $5, document = $6, updated_at = $7
			WHERE identity_id = $1 AND version = $8
		`
		res, err = s.execer(ctx).ExecContext(ctx, query,
			profile.IdentityID.String(),
			profile.Version,
			string(profile.Level),
			profile.Score,
			profile.NextReviewAt,
			doc,
			profile.UpdatedAt,
			expectedVersion,
		)
	}
	if err != nil {
		return fmt.Errorf("save risk profile: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save risk profile: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) DueForReview(ctx context.Context, now time.Time) ([]*models.RiskProfile, error) {
	query := `
		SELECT version, document FROM risk_profiles
		WHERE next_review_at <= $1
		ORDER BY risk_score DESC, identity_id
	`
	return s.list(ctx, query, now)
}

func (s *PostgresStore) HighRisk(ctx context.Context, limit int) ([]*models.RiskProfile, error) {
	query := `
		SELECT version, document FROM risk_profiles
		WHERE risk_level IN ('High', 'Critical')
		ORDER BY risk_score DESC, identity_id
		LIMIT $1
	`
	return s.list(ctx, query, limit)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.RiskProfile, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query risk profiles: %w", err)
	}
	defer rows.Close()

	out := make([]*models.RiskProfile, 0)
	for rows.Next() {
		var (
			version int
			doc     []byte
		)
		if err := rows.Scan(&version, &doc); err != nil {
			return nil, fmt.Errorf("scan risk profile: %w", err)
		}
		p, err := decodeProfile(version, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate risk profiles: %w", err)
	}
	return out, nil
}

func decodeProfile(version int, doc []byte) (*models.RiskProfile, error) {
	var p models.RiskProfile
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("decode risk profile: %w", err)
	}
	p.Version = version
	return &p, nil
}
