package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/laggard/backend/internal/contracts"
	"github.com/wonny/laggard/backend/internal/s1_universe"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "저장된 실행 결과 조회",
	Long: `저장소에서 실행 결과 요약을 조회합니다.
DATABASE_URL이 없으면 메모리 저장소라 항상 비어 있습니다.

Example:
  go run ./cmd/quant status
  go run ./cmd/quant status --date 2026-10-16`,
	RunE: runStatus,
}

var statusDate string

func init() {
	rootCmd.AddCommand(statusCmd)

	// Flags
	statusCmd.Flags().StringVar(&statusDate, "date", "", "as-of 날짜 (기본: 최신)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	loc, err := a.location()
	if err != nil {
		return err
	}
	store := a.runStore()

	var asOf time.Time
	if statusDate != "" {
		asOf, err = time.ParseInLocation("2006-01-02", statusDate, loc)
		if err != nil {
			return fmt.Errorf("invalid --date (expected YYYY-MM-DD): %w", err)
		}
	} else {
		asOf, err = store.LatestAsOf(ctx)
		if errors.Is(err, contracts.ErrRunNotFound) {
			PrintInfo("No screening runs stored yet")
			return nil
		}
		if err != nil {
			return err
		}
	}

	run, err := store.GetRun(ctx, asOf)
	if errors.Is(err, contracts.ErrRunNotFound) {
		PrintInfo("No screening run for " + asOf.Format("2006-01-02"))
		return nil
	}
	if err != nil {
		return err
	}

	PrintHeader("Laggard Screening Status", map[string]string{
		"As-of":    run.AsOf.Format("2006-01-02"),
		"Strategy": run.StrategyID,
		"Config":   run.ConfigHash,
	}, []string{"As-of", "Strategy", "Config"})
	PrintSummary(run.Summary)
	if a.db != nil {
		universe, err := s1_universe.NewRepository(a.db.Pool).GetUniverse(ctx, run.AsOf)
		if err == nil {
			PrintKeyValue("Universe", fmt.Sprintf("%d of %d (%s)", universe.Count(), universe.TotalCount, universe.Date.Format("2006-01-02")), 14)
		}
	}
	fmt.Println()
	PrintCandidates(run.Records)
	return nil
}
