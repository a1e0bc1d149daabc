package database

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/laggard/backend/pkg/config"
)

func integrationConfig(t *testing.T) *config.Config {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	return &config.Config{
		Database: config.DatabaseConfig{
			URL:             url,
			MaxConns:        4,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
	}
}

func TestNewDisabled(t *testing.T) {
	_, err := New(context.Background(), &config.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestNewWithInvalidURL(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			URL:      "invalid://url",
			MaxConns: 4,
		},
	}

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestSchemaStatements(t *testing.T) {
	require.NotEmpty(t, schemaStatements)
	for _, stmt := range schemaStatements {
		assert.True(t, strings.Contains(stmt, "IF NOT EXISTS"), "statement must be idempotent: %s", stmt)
	}
}

func TestMigrateAndHealthCheck(t *testing.T) {
	cfg := integrationConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := New(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx), "second migrate must be a no-op")

	status, err := db.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Greater(t, status.Stats.MaxConns, int32(0))
}
