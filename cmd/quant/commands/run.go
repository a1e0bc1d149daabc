package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/laggard/backend/internal/brain"
	"github.com/wonny/laggard/backend/internal/report"
	"github.com/wonny/laggard/backend/internal/s0_data"
	"github.com/wonny/laggard/backend/internal/s1_universe"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "스크리닝 파이프라인 실행",
	Long: `최신 스크리닝 CSV로 파이프라인을 한 번 실행합니다.

S0 → S1 → S2 → S3 → S4

각 단계:
- S0: CSV/스냅샷/공시/정성 시트 로드, 신선도 평가
- S1: Universe 필터 (시장, 유동성, 시가총액)
- S2: 정량/정성 채점
- S3: 제외 규칙 (fail-open)
- S4: 순위, Top-N 후보, Top-K 심층 검토

Flags:
  --date       as-of 날짜 (기본: CSV 파일명 또는 수정 시각)
  --top-n      후보 수 override
  --top-k      심층 검토 수 override
  --dry-run    설정만 검증하고 지표/축 개수 출력

Example:
  go run ./cmd/quant run
  go run ./cmd/quant run --date 2026-10-16 --qualitative data/qualitative/20261016.yaml
  go run ./cmd/quant run --csv exports/sbi_20261016.csv --top-n 30 --json
  go run ./cmd/quant run --from-store --date 2026-10-16`,
	RunE: runScreening,
}

var (
	runDate              string
	runCSV               string
	runDataDir           string
	runSnapshots         []string
	runQualitative       string
	runDisclosureDir     string
	runDisclosureBaseURL string
	runOutDir            string
	runTopN              int
	runTopK              int
	runDryRun            bool
	runNoStore           bool
	runJSON              bool
	runGitSHA            string
	runFromStore         bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	// Flags
	runCmd.Flags().StringVar(&runDate, "date", "", "as-of 날짜 (YYYY-MM-DD)")
	runCmd.Flags().StringVar(&runCSV, "csv", "", "스크리닝 CSV 경로 (기본: DATA_DIR에서 최신)")
	runCmd.Flags().StringVar(&runDataDir, "data-dir", "", "CSV 디렉터리 (기본: DATA_DIR)")
	runCmd.Flags().StringSliceVar(&runSnapshots, "snapshot", nil, "CSV 위에 병합할 JSON 스냅샷 (반복 가능)")
	runCmd.Flags().StringVar(&runQualitative, "qualitative", "", "정성 평가 시트 (기본: QUALITATIVE_PATH)")
	runCmd.Flags().StringVar(&runDisclosureDir, "disclosure-dir", "", "저장된 적시공시 목록 페이지 디렉터리")
	runCmd.Flags().StringVar(&runDisclosureBaseURL, "disclosure-base-url", "", "공시 링크 기준 URL")
	runCmd.Flags().StringVar(&runOutDir, "out", "", "리포트 출력 디렉터리 (기본: REPORT_DIR)")
	runCmd.Flags().IntVar(&runTopN, "top-n", 0, "ranking.top_n override")
	runCmd.Flags().IntVar(&runTopK, "top-k", 0, "ranking.top_k override")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "설정 검증만 수행")
	runCmd.Flags().BoolVar(&runNoStore, "no-store", false, "결과 저장 생략")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "RunResult JSON을 stdout으로 출력")
	runCmd.Flags().BoolVar(&runFromStore, "from-store", false, "CSV 대신 DB에 저장된 스냅샷으로 재실행")
	runCmd.Flags().StringVar(&runGitSHA, "git-sha", "", "결정 스냅샷에 기록할 커밋 (기본: GIT_SHA)")
}

func runScreening(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := withScreeningTimeout(ctx)
	defer cancel()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	strategy, raw, err := a.loadStrategy(runTopN, runTopK)
	if err != nil {
		return err
	}

	if runDryRun {
		printDryRun(a.cfg.Screening.StrategyPath, strategy.Quantitative.Metrics, strategy.Qualitative.Axes, len(strategy.ExclusionRules))
		return nil
	}

	loc, err := strategy.Meta.Location()
	if err != nil {
		return err
	}

	var asOf time.Time
	if runDate != "" {
		asOf, err = time.ParseInLocation("2006-01-02", runDate, loc)
		if err != nil {
			return fmt.Errorf("invalid --date (expected YYYY-MM-DD): %w", err)
		}
	}

	var in *s0_data.Inputs
	if runFromStore {
		in, err = loadStoredInputs(ctx, a, asOf)
	} else {
		in, err = s0_data.LoadInputs(runInputPaths(a), asOf, loc)
	}
	if err != nil {
		return err
	}

	deps := brain.Dependencies{Metrics: a.metrics}
	if !runNoStore {
		deps.Store = a.runStore()
		if a.db != nil {
			deps.SnapshotRepo = s0_data.NewRepository(a.db.Pool)
			deps.UniverseRepo = s1_universe.NewRepository(a.db.Pool)
		}
	}

	gitSHA := runGitSHA
	if gitSHA == "" {
		gitSHA = a.cfg.GitSHA
	}

	orch := brain.NewOrchestrator(strategy, raw, deps, a.log)
	out, err := orch.Run(ctx, brain.RunConfig{
		GitSHA:         gitSHA,
		DataSnapshotID: filepath.Base(in.CSVPath),
		DryRun:         runNoStore,
	}, brain.Input{
		AsOf:        in.AsOf,
		Records:     in.Records,
		Qualitative: in.Qualitative,
	})
	if err != nil {
		return err
	}

	if runJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out.Result)
	}

	outDir := runOutDir
	if outDir == "" {
		outDir = a.cfg.Screening.ReportDir
	}
	path, err := report.NewWriter(outDir, a.log).Write(out.Result)
	if err != nil {
		return err
	}

	PrintHeader("Laggard Screening", map[string]string{
		"Run ID":   out.RunID,
		"As-of":    out.Result.AsOf.Format("2006-01-02"),
		"Strategy": out.Result.StrategyID,
		"Config":   out.Result.ConfigHash[:12],
		"CSV":      in.CSVPath,
	}, []string{"Run ID", "As-of", "Strategy", "Config", "CSV"})
	PrintSummary(out.Result.Summary)
	PrintKeyValue("Data quality", fmt.Sprintf("%.2f", out.Quality.QualityScore), 14)
	for _, sf := range out.Quality.Shortfalls {
		PrintWarning(sf)
	}
	fmt.Println()
	PrintCandidates(out.Result.Records)
	fmt.Println()
	for _, w := range out.Warnings {
		PrintWarning(w.Message)
	}
	PrintSuccess(fmt.Sprintf("Report written to %s (%.2fs)", path, out.Duration.Seconds()))
	return nil
}

func runInputPaths(a *app) s0_data.InputPaths {
	paths := s0_data.InputPaths{
		DataDir:           a.cfg.Screening.DataDir,
		CSVPath:           runCSV,
		SnapshotPaths:     runSnapshots,
		QualitativePath:   a.cfg.Screening.QualitativePath,
		DisclosureDir:     a.cfg.Screening.DisclosureDir,
		DisclosureBaseURL: runDisclosureBaseURL,
	}
	if runDataDir != "" {
		paths.DataDir = runDataDir
	}
	if runQualitative != "" {
		paths.QualitativePath = runQualitative
	}
	if runDisclosureDir != "" {
		paths.DisclosureDir = runDisclosureDir
	}
	return paths
}

// loadStoredInputs replays a persisted security snapshot.
// Without --date the newest stored as-of date is used.
func loadStoredInputs(ctx context.Context, a *app, asOf time.Time) (*s0_data.Inputs, error) {
	if a.db == nil {
		return nil, fmt.Errorf("--from-store requires DATABASE_URL")
	}
	repo := s0_data.NewRepository(a.db.Pool)

	var err error
	if asOf.IsZero() {
		asOf, err = repo.LatestSnapshotDate(ctx)
		if err != nil {
			return nil, err
		}
	}

	records, err := repo.LoadSnapshot(ctx, asOf)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no stored snapshot for %s", asOf.Format("2006-01-02"))
	}

	in := &s0_data.Inputs{
		AsOf:    asOf,
		CSVPath: "store:" + asOf.Format("2006-01-02"),
		Records: records,
	}
	if path := runInputPaths(a).QualitativePath; path != "" {
		in.Qualitative, err = s0_data.LoadQualitativeFile(path)
		if err != nil {
			return nil, err
		}
	}
	return in, nil
}

// screeningTimeout bounds a scheduled or manual run
const screeningTimeout = 10 * time.Minute

func withScreeningTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, screeningTimeout)
}
