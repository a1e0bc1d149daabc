package brain

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/laggard/backend/internal/audit"
	"github.com/wonny/laggard/backend/internal/contracts"
	"github.com/wonny/laggard/backend/internal/s0_data"
	"github.com/wonny/laggard/backend/internal/s0_data/quality"
	"github.com/wonny/laggard/backend/internal/s1_universe"
	"github.com/wonny/laggard/backend/internal/selection"
	"github.com/wonny/laggard/backend/internal/strategyconfig"
	"github.com/wonny/laggard/backend/pkg/logger"
	"github.com/wonny/laggard/backend/pkg/metrics"
)

// Orchestrator coordinates one screening run: S0 → S1 → S2 → S3 → S4
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	config     *strategyconfig.Config
	configYAML []byte

	// Optional persistence (nil = 저장 안 함)
	snapshotRepo *s0_data.Repository
	universeRepo *s1_universe.Repository
	store        contracts.RunStore

	metrics *metrics.Registry
	logger  *logger.Logger
}

// Dependencies are the optional collaborators of an Orchestrator
type Dependencies struct {
	SnapshotRepo *s0_data.Repository
	UniverseRepo *s1_universe.Repository
	Store        contracts.RunStore
	Metrics      *metrics.Registry
}

// RunConfig holds run metadata kept outside the deterministic result
type RunConfig struct {
	RunID          string
	GitSHA         string
	DataSnapshotID string
	DryRun         bool // If true, nothing is persisted
}

// Input is the materialized data of one run
type Input struct {
	AsOf        time.Time
	Records     []contracts.SecurityRecord
	Qualitative map[string][]contracts.QualitativeAxisScore
}

// RunOutput wraps the deterministic result with run metadata
type RunOutput struct {
	RunID           string
	Result          *contracts.RunResult
	Universe        *contracts.Universe
	Snapshot        *strategyconfig.DecisionSnapshot
	Quality         *quality.Snapshot
	Warnings        []strategyconfig.Warning
	CompletedStages []string
	Duration        time.Duration
}

// NewOrchestrator creates a new orchestrator.
// configYAML is the raw strategy file for the decision snapshot (may be nil).
func NewOrchestrator(cfg *strategyconfig.Config, configYAML []byte, deps Dependencies, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		config:       cfg,
		configYAML:   configYAML,
		snapshotRepo: deps.SnapshotRepo,
		universeRepo: deps.UniverseRepo,
		store:        deps.Store,
		metrics:      deps.Metrics,
		logger:       log.WithField("module", "brain"),
	}
}

// Config returns the strategy config the orchestrator runs with
func (o *Orchestrator) Config() *strategyconfig.Config {
	return o.config
}

// Run validates the config, then executes the pipeline for input.AsOf.
// A ConfigurationError aborts before any scoring; nothing else is fatal
// except persistence failures.
func (o *Orchestrator) Run(ctx context.Context, rc RunConfig, input Input) (*RunOutput, error) {
	startTime := time.Now()

	if rc.RunID == "" {
		rc.RunID = GenerateRunID(input.AsOf)
	}
	out := &RunOutput{
		RunID:           rc.RunID,
		CompletedStages: make([]string, 0, 6),
	}
	log := o.logger.WithField("run_id", rc.RunID)

	// 품질 미달은 경고만 (fail-open)
	out.Quality = o.checkQuality(input)
	if !out.Quality.IsValid() {
		log.WithFields(map[string]interface{}{
			"quality_score": out.Quality.QualityScore,
			"records":       out.Quality.TotalRecords,
			"shortfalls":    out.Quality.Shortfalls,
		}).Warn("Data quality below threshold, continuing with screening")
	}

	result, universe, err := o.Execute(input)
	if err != nil {
		o.metrics.RecordRun("failure")
		return out, err
	}
	out.Result = result
	out.Universe = universe
	out.Warnings = strategyconfig.Warn(o.config)
	out.CompletedStages = append(out.CompletedStages, "S0:Ingestion", "S1:Universe", "S2:Scoring", "S3:Exclusion", "S4:Ranking")

	for _, w := range out.Warnings {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	out.Snapshot, err = strategyconfig.NewDecisionSnapshot(o.config, o.configYAML, rc.GitSHA, rc.DataSnapshotID, result.AsOf)
	if err != nil {
		o.metrics.RecordRun("failure")
		return out, fmt.Errorf("decision snapshot: %w", err)
	}

	if ctx.Err() != nil {
		o.metrics.RecordRun("failure")
		return out, ctx.Err()
	}

	if !rc.DryRun {
		if err := o.persist(ctx, input, result, universe); err != nil {
			o.metrics.RecordRun("failure")
			return out, err
		}
	} else {
		log.Info("Skipping persistence (dry run mode)")
	}

	out.Duration = time.Since(startTime)
	o.metrics.RecordRun("success")
	o.metrics.SetRunInfo(universe.Count(), result.AsOf)

	log.WithFields(map[string]interface{}{
		"as_of":       result.AsOf.Format("2006-01-02"),
		"config_hash": result.ConfigHash,
		"git_sha":     rc.GitSHA,
		"duration":    out.Duration.Seconds(),
		"recommend":   result.Summary.Recommend,
		"watch":       result.Summary.Watch,
		"skip":        result.Summary.Skip,
	}).Info("Pipeline run completed successfully")

	return out, nil
}

// Execute is the deterministic part of Run: identical inputs give an
// identical RunResult. It performs no I/O.
func (o *Orchestrator) Execute(input Input) (*contracts.RunResult, *contracts.Universe, error) {
	// 설정 오류는 채점 전에 중단
	if err := strategyconfig.Validate(o.config); err != nil {
		return nil, nil, err
	}

	hash, err := strategyconfig.Hash(o.config)
	if err != nil {
		return nil, nil, fmt.Errorf("config hash: %w", err)
	}

	loc, err := o.config.Meta.Location()
	if err != nil {
		return nil, nil, strategyconfig.ConfigurationError{Field: "meta.timezone", Message: err.Error()}
	}
	asOf := AsOfDate(input.AsOf, loc)

	records := make([]contracts.SecurityRecord, len(input.Records))
	copy(records, input.Records)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Code < records[j].Code
	})

	trail := audit.NewTrail(asOf)

	// S1 유니버스
	start := time.Now()
	universe, eligible, rejected := s1_universe.NewBuilder(o.config.Universe, o.logger).Build(asOf, records)
	outside := make([]contracts.CompositeRecord, 0, len(rejected))
	for _, rj := range rejected {
		trail.Append(rj.Record.Code, contracts.StageUniverse, contracts.ScoreUniverseFilter,
			"outside universe: "+rj.Reason)
		outside = append(outside, selection.OutsideUniverse(rj.Record, rj.Reason))
	}
	o.metrics.ObserveStage(string(contracts.StageUniverse), time.Since(start))

	p := newPipeline(o.config, loc, o.metrics, o.logger)
	ranked := p.execute(asOf, eligible, input.Qualitative, trail)

	// 유니버스 밖 종목도 Skip으로 결과에 포함 (누락 없음)
	ranked = append(ranked, outside...)
	for range outside {
		o.metrics.RecordDisposition(string(contracts.Skip))
	}

	result := &contracts.RunResult{
		AsOf:       asOf,
		StrategyID: o.config.Meta.StrategyID,
		ConfigHash: hash,
		Records:    ranked,
		Audit:      trail.Entries(),
		Summary:    selection.Summarize(ranked),
	}

	return result, universe, nil
}

func (o *Orchestrator) checkQuality(input Input) *quality.Snapshot {
	ids := make([]string, 0, len(o.config.Quantitative.Metrics))
	for _, m := range o.config.Quantitative.Metrics {
		ids = append(ids, m.ID)
	}
	return quality.NewQualityGate(ids, quality.DefaultConfig()).Check(input.AsOf, input.Records)
}

func (o *Orchestrator) persist(ctx context.Context, input Input, result *contracts.RunResult, universe *contracts.Universe) error {
	if o.snapshotRepo != nil {
		if err := o.snapshotRepo.SaveSnapshot(ctx, result.AsOf, input.Records); err != nil {
			return fmt.Errorf("save security snapshot: %w", err)
		}
	}

	if o.universeRepo != nil {
		if err := o.universeRepo.SaveUniverse(ctx, universe); err != nil {
			return fmt.Errorf("save universe: %w", err)
		}
	}

	if o.store != nil {
		if err := o.store.SaveRun(ctx, result); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
	}

	return nil
}

// AsOfDate truncates t to midnight of its calendar date in loc
func AsOfDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
}

// GenerateRunID generates a unique run ID
func GenerateRunID(asOf time.Time) string {
	return fmt.Sprintf("run_%s_%s", asOf.Format("20060102"), uuid.NewString()[:8])
}
