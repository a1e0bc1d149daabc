package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/laggard/backend/internal/contracts"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Repository handles audit trail persistence
// ⭐ SSOT: 감사 로그 저장/조회는 여기서만
type Repository struct{}

// NewRepository creates a new audit repository
func NewRepository() *Repository {
	return &Repository{}
}

// InsertEntries writes a trail inside the caller's transaction
func (r *Repository) InsertEntries(ctx context.Context, q Querier, asOf time.Time, entries []contracts.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	query := `
		INSERT INTO screening.audit_entries (
			as_of, seq, code, stage, score_type, rationale, evidence, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	batch := &pgx.Batch{}
	for _, e := range entries {
		evidenceJSON, err := json.Marshal(e.Evidence)
		if err != nil {
			return fmt.Errorf("failed to marshal evidence (seq %d): %w", e.Seq, err)
		}
		batch.Queue(query, asOf, e.Seq, e.Code, string(e.Stage), string(e.ScoreType),
			e.Rationale, evidenceJSON, e.Timestamp)
	}

	br := q.SendBatch(ctx, batch)
	for range entries {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to insert audit entry: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close audit batch: %w", err)
	}

	return nil
}

// ListEntries loads the trail of a run in sequence order.
// code == "" returns every security.
func (r *Repository) ListEntries(ctx context.Context, q Querier, asOf time.Time, code string) ([]contracts.AuditEntry, error) {
	query := `
		SELECT seq, code, stage, score_type, rationale, evidence, recorded_at
		FROM screening.audit_entries
		WHERE as_of = $1 AND ($2 = '' OR code = $2)
		ORDER BY seq
	`

	rows, err := q.Query(ctx, query, asOf, code)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]contracts.AuditEntry, 0)
	for rows.Next() {
		var (
			e            contracts.AuditEntry
			stage        string
			scoreType    string
			evidenceJSON []byte
			recordedAt   time.Time
		)
		if err := rows.Scan(&e.Seq, &e.Code, &stage, &scoreType, &e.Rationale, &evidenceJSON, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		if err := json.Unmarshal(evidenceJSON, &e.Evidence); err != nil {
			return nil, fmt.Errorf("failed to unmarshal evidence: %w", err)
		}
		e.AsOf = asOf
		e.Stage = contracts.Stage(stage)
		e.ScoreType = contracts.ScoreType(scoreType)
		e.Timestamp = recordedAt.In(asOf.Location())
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
