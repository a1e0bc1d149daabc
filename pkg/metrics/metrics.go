package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for screening runs.
// Methods are nil-safe so callers can run without metrics.
type Registry struct {
	registry *prometheus.Registry

	StageDuration     *prometheus.HistogramVec
	Runs              *prometheus.CounterVec
	Dispositions      *prometheus.CounterVec
	Exclusions        *prometheus.CounterVec
	RuleGaps          *prometheus.CounterVec
	QualitativeErrors *prometheus.CounterVec
	StaleSources      *prometheus.CounterVec
	UniverseSize      prometheus.Gauge
	LastRunAsOf       prometheus.Gauge
}

// NewRegistry creates a registry with its own prometheus.Registry
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "laggard_stage_duration_seconds",
				Help:    "Duration of each pipeline stage in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"stage"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laggard_runs_total",
				Help: "Screening runs by result",
			},
			[]string{"result"},
		),
		Dispositions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laggard_dispositions_total",
				Help: "Final dispositions assigned",
			},
			[]string{"disposition"},
		),
		Exclusions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laggard_exclusions_total",
				Help: "Securities excluded, by first matching rule",
			},
			[]string{"rule"},
		),
		RuleGaps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laggard_rule_gaps_total",
				Help: "Exclusion rules that failed open on missing input",
			},
			[]string{"rule"},
		),
		QualitativeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laggard_qualitative_errors_total",
				Help: "Qualitative scoring failures by error kind",
			},
			[]string{"kind"},
		),
		StaleSources: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laggard_non_fresh_sources_total",
				Help: "Non-fresh freshness verdicts before ranking",
			},
			[]string{"category", "state"},
		),
		UniverseSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "laggard_universe_size",
				Help: "Securities in the last run",
			},
		),
		LastRunAsOf: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "laggard_last_run_as_of_timestamp_seconds",
				Help: "As-of date of the last completed run (unix seconds)",
			},
		),
	}

	r.registry.MustRegister(
		r.StageDuration,
		r.Runs,
		r.Dispositions,
		r.Exclusions,
		r.RuleGaps,
		r.QualitativeErrors,
		r.StaleSources,
		r.UniverseSize,
		r.LastRunAsOf,
	)

	return r
}

// Handler exposes the registry for scraping
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveStage records how long a stage took
func (r *Registry) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRun counts a finished run ("success" or "failure")
func (r *Registry) RecordRun(result string) {
	if r == nil {
		return
	}
	r.Runs.WithLabelValues(result).Inc()
}

// RecordDisposition counts one final disposition
func (r *Registry) RecordDisposition(disposition string) {
	if r == nil {
		return
	}
	r.Dispositions.WithLabelValues(disposition).Inc()
}

// RecordExclusion counts one exclusion by the rule that matched first
func (r *Registry) RecordExclusion(rule string) {
	if r == nil {
		return
	}
	r.Exclusions.WithLabelValues(rule).Inc()
}

// RecordRuleGap counts a fail-open rule evaluation
func (r *Registry) RecordRuleGap(rule string) {
	if r == nil {
		return
	}
	r.RuleGaps.WithLabelValues(rule).Inc()
}

// RecordQualitativeError counts a qualitative scoring failure
func (r *Registry) RecordQualitativeError(kind string) {
	if r == nil {
		return
	}
	r.QualitativeErrors.WithLabelValues(kind).Inc()
}

// RecordNonFresh counts a stale or unknown source verdict
func (r *Registry) RecordNonFresh(category, state string) {
	if r == nil {
		return
	}
	r.StaleSources.WithLabelValues(category, state).Inc()
}

// SetRunInfo updates the universe size and as-of gauges
func (r *Registry) SetRunInfo(universe int, asOf time.Time) {
	if r == nil {
		return
	}
	r.UniverseSize.Set(float64(universe))
	r.LastRunAsOf.Set(float64(asOf.Unix()))
}
