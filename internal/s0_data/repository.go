package s0_data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/laggard/backend/internal/contracts"
)

// ErrNoSnapshot is returned when nothing has been stored yet
var ErrNoSnapshot = errors.New("no security snapshot stored")

// Repository handles snapshot persistence for S0
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// SaveSnapshot replaces the ingested records of one as-of date.
// Duplicate codes keep the first row, as the universe builder does.
func (r *Repository) SaveSnapshot(ctx context.Context, asOf time.Time, records []contracts.SecurityRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM screening.security_snapshots WHERE as_of = $1`, asOf); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO screening.security_snapshots (as_of, code, market, record)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (as_of, code) DO NOTHING
	`
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", rec.Code, err)
		}
		batch.Queue(query, asOf, rec.Code, rec.Market, data)
	}

	br := tx.SendBatch(ctx, batch)
	for range records {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert snapshot: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// LoadSnapshot returns the stored records of one as-of date, sorted by code
func (r *Repository) LoadSnapshot(ctx context.Context, asOf time.Time) ([]contracts.SecurityRecord, error) {
	query := `
		SELECT record
		FROM screening.security_snapshots
		WHERE as_of = $1
		ORDER BY code
	`

	rows, err := r.db.Query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	records := make([]contracts.SecurityRecord, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}

		var rec contracts.SecurityRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// LatestSnapshotDate returns the newest stored as-of date
func (r *Repository) LatestSnapshotDate(ctx context.Context) (time.Time, error) {
	var asOf *time.Time
	err := r.db.QueryRow(ctx, `SELECT MAX(as_of) FROM screening.security_snapshots`).Scan(&asOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("query latest snapshot: %w", err)
	}
	if asOf == nil {
		return time.Time{}, ErrNoSnapshot
	}
	return *asOf, nil
}
