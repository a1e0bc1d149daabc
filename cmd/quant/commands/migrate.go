package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// migrateCmd creates the screening schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "DB 스키마 생성",
	Long: `screening 스키마와 테이블을 생성합니다 (idempotent).

Example:
  DATABASE_URL=postgres://... go run ./cmd/quant migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if a.db == nil {
		return fmt.Errorf("DATABASE_URL is required for migrate")
	}

	if err := a.db.Migrate(cmd.Context()); err != nil {
		return err
	}

	health, err := a.db.HealthCheck(cmd.Context())
	if err != nil {
		return fmt.Errorf("database health check: %w", err)
	}

	PrintSuccess("Schema is up to date")
	PrintKeyValue("Ping", health.ResponseTime.String(), 12)
	PrintKeyValue("Connections", fmt.Sprintf("%d/%d", health.Stats.TotalConns, health.Stats.MaxConns), 12)
	return nil
}
