package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/wonny/laggard/backend/internal/brain"
	"github.com/wonny/laggard/backend/internal/contracts"
	"github.com/wonny/laggard/backend/internal/report"
	"github.com/wonny/laggard/backend/internal/s0_data"
	"github.com/wonny/laggard/backend/pkg/logger"
)

// ScreeningJob runs the laggard screen on the newest broker CSV
// ⭐ SSOT: 정기 스크리닝 스케줄은 이 Job에서만
type ScreeningJob struct {
	orchestrator *brain.Orchestrator
	paths        s0_data.InputPaths
	writer       *report.Writer // nil = 리포트 생략
	store        contracts.RunStore
	schedule     string
	gitSHA       string
	logger       *logger.Logger
}

// ScreeningJobConfig configures a ScreeningJob
type ScreeningJobConfig struct {
	Paths    s0_data.InputPaths
	Schedule string
	GitSHA   string

	// SkipExisting leaves an as-of date alone once a run is stored
	SkipExisting bool
}

// NewScreeningJob creates a new screening job.
// store is only consulted when SkipExisting is set.
func NewScreeningJob(orch *brain.Orchestrator, cfg ScreeningJobConfig, writer *report.Writer, store contracts.RunStore, log *logger.Logger) *ScreeningJob {
	j := &ScreeningJob{
		orchestrator: orch,
		paths:        cfg.Paths,
		writer:       writer,
		schedule:     cfg.Schedule,
		gitSHA:       cfg.GitSHA,
		logger:       log.WithField("module", "screening_job"),
	}
	if cfg.SkipExisting {
		j.store = store
	}
	return j
}

// Name returns the job name
func (j *ScreeningJob) Name() string {
	return "laggard_screening"
}

// Schedule returns the cron schedule (with seconds)
func (j *ScreeningJob) Schedule() string {
	return j.schedule
}

// Run loads the inputs, runs the pipeline and writes the report
func (j *ScreeningJob) Run(ctx context.Context) error {
	loc, err := j.orchestrator.Config().Meta.Location()
	if err != nil {
		return fmt.Errorf("strategy timezone: %w", err)
	}

	in, err := s0_data.LoadInputs(j.paths, time.Time{}, loc)
	if err != nil {
		return fmt.Errorf("load inputs: %w", err)
	}

	log := j.logger.WithFields(map[string]interface{}{
		"as_of": in.AsOf.Format("2006-01-02"),
		"csv":   in.CSVPath,
	})

	if j.store != nil {
		_, err := j.store.GetRun(ctx, in.AsOf)
		if err == nil {
			log.Info("Run already stored, skipping")
			return nil
		}
		if !errors.Is(err, contracts.ErrRunNotFound) {
			return fmt.Errorf("check stored run: %w", err)
		}
	}

	out, err := j.orchestrator.Run(ctx, brain.RunConfig{
		GitSHA:         j.gitSHA,
		DataSnapshotID: filepath.Base(in.CSVPath),
	}, brain.Input{
		AsOf:        in.AsOf,
		Records:     in.Records,
		Qualitative: in.Qualitative,
	})
	if err != nil {
		return fmt.Errorf("screening run: %w", err)
	}

	fields := map[string]interface{}{
		"run_id":      out.RunID,
		"records":     len(in.Records),
		"disclosures": in.Disclosures,
		"recommend":   out.Result.Summary.Recommend,
	}
	if j.writer != nil {
		path, err := j.writer.Write(out.Result)
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fields["report"] = path
	}

	log.WithFields(fields).Info("Scheduled screening completed")
	return nil
}
