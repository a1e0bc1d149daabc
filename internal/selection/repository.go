package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/laggard/backend/internal/audit"
	"github.com/wonny/laggard/backend/internal/contracts"
)

// Repository persists run results in PostgreSQL
// ⭐ SSOT: 실행 결과 저장/조회는 여기서만
type Repository struct {
	pool  *pgxpool.Pool
	audit *audit.Repository
}

// NewRepository creates a new selection repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool:  pool,
		audit: audit.NewRepository(),
	}
}

var _ contracts.RunStore = (*Repository)(nil)

// SaveRun replaces the run of result.AsOf (records and audit trail) in one transaction
func (r *Repository) SaveRun(ctx context.Context, result *contracts.RunResult) error {
	summaryJSON, err := json.Marshal(result.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// 재실행은 같은 날짜를 통째로 교체 (records/audit는 CASCADE)
	if _, err := tx.Exec(ctx, `DELETE FROM screening.runs WHERE as_of = $1`, result.AsOf); err != nil {
		return fmt.Errorf("failed to delete existing run: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO screening.runs (as_of, as_of_at, timezone, strategy_id, config_hash, summary)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, result.AsOf, result.AsOf, result.AsOf.Location().String(), result.StrategyID, result.ConfigHash, summaryJSON)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err := r.insertRecords(ctx, tx, result); err != nil {
		return err
	}

	if err := r.audit.InsertEntries(ctx, tx, result.AsOf, result.Audit); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *Repository) insertRecords(ctx context.Context, tx pgx.Tx, result *contracts.RunResult) error {
	if len(result.Records) == 0 {
		return nil
	}

	query := `
		INSERT INTO screening.composite_records (as_of, position, code, rank, disposition, record)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	batch := &pgx.Batch{}
	for i, rec := range result.Records {
		recordJSON, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record %s: %w", rec.Code, err)
		}
		batch.Queue(query, result.AsOf, i, rec.Code, rec.Rank, string(rec.Disposition), recordJSON)
	}

	br := tx.SendBatch(ctx, batch)
	for range result.Records {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to insert composite record: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close record batch: %w", err)
	}

	return nil
}

// GetRun loads a stored run; ErrRunNotFound when the date has none
func (r *Repository) GetRun(ctx context.Context, asOf time.Time) (*contracts.RunResult, error) {
	var (
		result      contracts.RunResult
		asOfAt      time.Time
		timezone    string
		summaryJSON []byte
	)

	err := r.pool.QueryRow(ctx, `
		SELECT as_of_at, timezone, strategy_id, config_hash, summary
		FROM screening.runs
		WHERE as_of = $1
	`, asOf).Scan(&asOfAt, &timezone, &result.StrategyID, &result.ConfigHash, &summaryJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if loc, err := time.LoadLocation(timezone); err == nil {
		asOfAt = asOfAt.In(loc)
	}
	result.AsOf = asOfAt

	if err := json.Unmarshal(summaryJSON, &result.Summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}

	result.Records, err = r.listRecords(ctx, asOf)
	if err != nil {
		return nil, err
	}

	result.Audit, err = r.audit.ListEntries(ctx, r.pool, result.AsOf, "")
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *Repository) listRecords(ctx context.Context, asOf time.Time) ([]contracts.CompositeRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT record
		FROM screening.composite_records
		WHERE as_of = $1
		ORDER BY position
	`, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query composite records: %w", err)
	}
	defer rows.Close()

	records := make([]contracts.CompositeRecord, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan composite record: %w", err)
		}

		var rec contracts.CompositeRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal composite record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// ListAudit loads the audit trail of one security without the full run
func (r *Repository) ListAudit(ctx context.Context, asOf time.Time, code string) ([]contracts.AuditEntry, error) {
	return r.audit.ListEntries(ctx, r.pool, asOf, code)
}

// LatestAsOf returns the newest stored run date
func (r *Repository) LatestAsOf(ctx context.Context) (time.Time, error) {
	var (
		asOfAt   time.Time
		timezone string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT as_of_at, timezone
		FROM screening.runs
		ORDER BY as_of DESC
		LIMIT 1
	`).Scan(&asOfAt, &timezone)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, contracts.ErrRunNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get latest run: %w", err)
	}

	if loc, err := time.LoadLocation(timezone); err == nil {
		asOfAt = asOfAt.In(loc)
	}
	return asOfAt, nil
}
