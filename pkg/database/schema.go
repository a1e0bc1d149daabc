package database

import (
	"context"
	"fmt"
)

// schemaStatements creates the screening schema.
// Records and audit entries are stored per as-of date; a rerun replaces the date.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS screening`,
	`CREATE TABLE IF NOT EXISTS screening.runs (
		as_of        DATE PRIMARY KEY,
		as_of_at     TIMESTAMPTZ NOT NULL,
		timezone     TEXT NOT NULL,
		strategy_id  TEXT NOT NULL,
		config_hash  TEXT NOT NULL,
		summary      JSONB NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS screening.composite_records (
		as_of        DATE NOT NULL REFERENCES screening.runs(as_of) ON DELETE CASCADE,
		position     INT NOT NULL,
		code         TEXT NOT NULL,
		rank         INT NOT NULL,
		disposition  TEXT NOT NULL,
		record       JSONB NOT NULL,
		PRIMARY KEY (as_of, position)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_composite_records_code
		ON screening.composite_records (as_of, code)`,
	`CREATE INDEX IF NOT EXISTS idx_composite_records_disposition
		ON screening.composite_records (as_of, disposition)`,
	`CREATE TABLE IF NOT EXISTS screening.audit_entries (
		as_of        DATE NOT NULL REFERENCES screening.runs(as_of) ON DELETE CASCADE,
		seq          INT NOT NULL,
		code         TEXT NOT NULL,
		stage        TEXT NOT NULL,
		score_type   TEXT NOT NULL,
		rationale    TEXT NOT NULL,
		evidence     JSONB NOT NULL,
		recorded_at  TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (as_of, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_entries_code
		ON screening.audit_entries (as_of, code)`,
	`CREATE TABLE IF NOT EXISTS screening.security_snapshots (
		as_of        DATE NOT NULL,
		code         TEXT NOT NULL,
		market       TEXT NOT NULL,
		record       JSONB NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (as_of, code)
	)`,
	`CREATE TABLE IF NOT EXISTS screening.universe_snapshots (
		as_of           DATE PRIMARY KEY,
		eligible_codes  TEXT[] NOT NULL,
		total_count     INT NOT NULL,
		excluded        JSONB NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates tables used by the screening repositories (idempotent)
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
