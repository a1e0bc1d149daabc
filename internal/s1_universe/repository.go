package s1_universe

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

// ErrNoUniverse is returned when no universe was stored for the requested date
var ErrNoUniverse = errors.New("universe snapshot not found")

// Repository stores one screening universe per as-of date.
// A rerun overwrites the date's eligible codes and S1 exclusion reasons.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a universe snapshot repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const universeColumns = `as_of, eligible_codes, total_count, excluded`

// SaveUniverse upserts the universe of universe.Date
func (r *Repository) SaveUniverse(ctx context.Context, universe *contracts.Universe) error {
	reasons, err := json.Marshal(universe.Excluded)
	if err != nil {
		return fmt.Errorf("marshal exclusion reasons: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO screening.universe_snapshots (`+universeColumns+`, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (as_of) DO UPDATE SET
			eligible_codes = EXCLUDED.eligible_codes,
			total_count    = EXCLUDED.total_count,
			excluded       = EXCLUDED.excluded,
			created_at     = NOW()
	`, universe.Date, universe.Stocks, universe.TotalCount, reasons)
	if err != nil {
		return fmt.Errorf("save universe %s: %w", universe.Date.Format("2006-01-02"), err)
	}
	return nil
}

// GetUniverse loads the universe screened on asOf
func (r *Repository) GetUniverse(ctx context.Context, asOf time.Time) (*contracts.Universe, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+universeColumns+`
		FROM screening.universe_snapshots
		WHERE as_of = $1
	`, asOf)
	return scanUniverse(row)
}

func scanUniverse(row pgx.Row) (*contracts.Universe, error) {
	universe := &contracts.Universe{Excluded: make(map[string]string)}

	var reasons []byte
	err := row.Scan(&universe.Date, &universe.Stocks, &universe.TotalCount, &reasons)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoUniverse
	}
	if err != nil {
		return nil, fmt.Errorf("scan universe: %w", err)
	}

	if len(reasons) > 0 {
		if err := json.Unmarshal(reasons, &universe.Excluded); err != nil {
			return nil, fmt.Errorf("unmarshal exclusion reasons: %w", err)
		}
	}
	return universe, nil
}
