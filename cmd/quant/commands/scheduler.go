package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/laggard/backend/internal/api"
	"github.com/wonny/laggard/backend/internal/api/handlers"
	"github.com/wonny/laggard/backend/internal/brain"
	"github.com/wonny/laggard/backend/internal/contracts"
	"github.com/wonny/laggard/backend/internal/report"
	"github.com/wonny/laggard/backend/internal/s0_data"
	"github.com/wonny/laggard/backend/internal/s1_universe"
	"github.com/wonny/laggard/backend/internal/scheduler"
	"github.com/wonny/laggard/backend/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `정기 스크리닝 스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작 (--serve 로 API 서버 동시 실행)
  list    - 등록된 작업과 다음 실행 시각
  run     - 특정 작업 즉시 실행 (완료까지 대기)

Example:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler start --serve
  go run ./cmd/quant scheduler run laggard_screening`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- laggard_screening: SCREENING_SCHEDULE (기본 평일 18:30, 전략 timezone)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerServe        bool
	schedulerSkipExisting bool
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerStartCmd.Flags().BoolVar(&schedulerServe, "serve", false, "API 서버 동시 실행")
	schedulerStartCmd.Flags().BoolVar(&schedulerSkipExisting, "skip-existing", true, "이미 저장된 as-of 날짜는 건너뜀")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, store, err := initScheduler(a, schedulerSkipExisting)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()
	defer sched.Stop()

	PrintSuccess("Scheduler started successfully")
	printJobs(sched)

	if schedulerServe {
		loc, err := a.location()
		if err != nil {
			return err
		}
		opts := api.RouterOptions{
			RateLimitRPS:   a.cfg.RateLimitRPS,
			RateLimitBurst: a.cfg.RateLimitBurst,
		}
		if a.cfg.MetricsEnabled {
			opts.Metrics = a.metrics
		}
		router := api.NewRouter(handlers.NewScreeningHandler(store, loc, a.log), opts, a.log)
		fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
		fmt.Println("\nPress Ctrl+C to stop")
		return api.New(a.cfg, a.log, router).Run(ctx, 30*time.Second)
	}

	fmt.Println("\nPress Ctrl+C to stop")
	<-ctx.Done()
	fmt.Println("\nShutting down scheduler...")
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, _, err := initScheduler(a, false)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()
	defer sched.Stop()
	printJobs(sched)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := withScreeningTimeout(ctx)
	defer cancel()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, _, err := initScheduler(a, false)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Printf("Running job: %s\n", jobName)
	result, err := sched.RunNow(ctx, jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("job %s failed after %d attempts: %s", jobName, result.Attempts, result.Error)
	}

	PrintSuccess(fmt.Sprintf("Job %s completed in %.2fs", jobName, result.Duration.Seconds()))
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	fmt.Println("\nRegistered jobs:")
	stats := sched.GetJobStats()
	for _, jobName := range sched.GetAllJobs() {
		st := stats[jobName]
		next := "-"
		if st.NextRun != nil {
			next = st.NextRun.Format("2006-01-02 15:04:05 MST")
		}
		fmt.Printf("  - %s [%s] next: %s\n", jobName, st.Schedule, next)
	}
}

// initScheduler wires the screening job with the configured store
func initScheduler(a *app, skipExisting bool) (*scheduler.Scheduler, contracts.RunStore, error) {
	strategy, raw, err := a.loadStrategy(0, 0)
	if err != nil {
		return nil, nil, err
	}
	loc, err := strategy.Meta.Location()
	if err != nil {
		return nil, nil, err
	}

	store := a.runStore()
	deps := brain.Dependencies{Store: store, Metrics: a.metrics}
	if a.db != nil {
		deps.SnapshotRepo = s0_data.NewRepository(a.db.Pool)
		deps.UniverseRepo = s1_universe.NewRepository(a.db.Pool)
	}
	orch := brain.NewOrchestrator(strategy, raw, deps, a.log)

	job := jobs.NewScreeningJob(orch, jobs.ScreeningJobConfig{
		Paths: s0_data.InputPaths{
			DataDir:         a.cfg.Screening.DataDir,
			QualitativePath: a.cfg.Screening.QualitativePath,
			DisclosureDir:   a.cfg.Screening.DisclosureDir,
		},
		Schedule:     a.cfg.Screening.Schedule,
		GitSHA:       a.cfg.GitSHA,
		SkipExisting: skipExisting,
	}, report.NewWriter(a.cfg.Screening.ReportDir, a.log), store, a.log)

	sched := scheduler.New(a.log, scheduler.WithLocation(loc), scheduler.WithRetry(2, 5*time.Minute))
	if err := sched.AddJob(job); err != nil {
		return nil, nil, err
	}

	return sched, store, nil
}
