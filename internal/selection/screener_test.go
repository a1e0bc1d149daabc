package selection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/laggard/backend/internal/contracts"
	"github.com/wonny/laggard/backend/internal/strategyconfig"
	"github.com/wonny/laggard/backend/pkg/logger"
)

func ptr(v float64) *float64 { return &v }

func baseRecord(code string) contracts.SecurityRecord {
	return contracts.SecurityRecord{
		Code:   code,
		Name:   "Test " + code,
		Market: "TSE_PRIME",
		AsOf:   time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
		Metrics: map[string]contracts.RawMetric{
			contracts.MetricEquity:         {Value: contracts.Present(5e10), Source: contracts.SourceFundamentals},
			contracts.MetricAvgTurnover20D: {Value: contracts.Present(3e8), Source: contracts.SourcePrice},
			contracts.MetricEquityRatio:    {Value: contracts.Present(45), Source: contracts.SourceFundamentals},
		},
		Flags: map[string]bool{
			contracts.FlagGoingConcern:         false,
			contracts.FlagNegativeEquity:       false,
			contracts.FlagUnexplainedDowngrade: false,
		},
		OperatingCashFlows: []contracts.MetricValue{
			contracts.Present(1e9), contracts.Present(8e8), contracts.Present(7e8),
		},
	}
}

func report(states map[contracts.SourceCategory]contracts.FreshnessState) contracts.FreshnessReport {
	r := contracts.FreshnessReport{}
	for _, cat := range contracts.AllSourceCategories() {
		state, ok := states[cat]
		if !ok {
			state = contracts.Fresh
		}
		age := 1
		v := contracts.FreshnessVerdict{Category: cat, State: state, ThresholdDays: 14, AgeDays: &age}
		if state == contracts.Unknown {
			v.AgeDays = nil
		}
		if state == contracts.Stale {
			stale := 30
			v.AgeDays = &stale
		}
		r.Verdicts = append(r.Verdicts, v)
	}
	return r
}

func TestScreener_DefaultRulesPassCleanRecord(t *testing.T) {
	s := NewScreener(strategyconfig.Default().ExclusionRules, logger.Nop())
	rec := baseRecord("7203")

	verdict, outcomes := s.Evaluate(&rec, report(nil))

	assert.False(t, verdict.Excluded)
	assert.Nil(t, verdict.MatchedRule)
	assert.Equal(t, -1, verdict.RuleIndex)
	assert.Equal(t, len(strategyconfig.Default().ExclusionRules), verdict.Evaluated)
	assert.Empty(t, verdict.Gaps)
	require.Len(t, outcomes, verdict.Evaluated)
	for i, o := range outcomes {
		assert.Equal(t, i, o.Index)
		assert.Equal(t, contracts.RuleNotMatched, o.Result, o.RuleID)
	}
}

func TestScreener_DefaultRulesKeepStaleDisclosure(t *testing.T) {
	s := NewScreener(strategyconfig.Default().ExclusionRules, logger.Nop())
	rec := baseRecord("7267")

	verdict, _ := s.Evaluate(&rec, report(map[contracts.SourceCategory]contracts.FreshnessState{
		contracts.SourceDisclosure: contracts.Stale,
	}))

	assert.False(t, verdict.Excluded, "stale disclosure caps the disposition, it does not exclude")
}

func TestScreener_NegativeEquityFlag(t *testing.T) {
	s := NewScreener(strategyconfig.Default().ExclusionRules, logger.Nop())
	rec := baseRecord("9999")
	rec.Flags[contracts.FlagNegativeEquity] = true

	verdict, _ := s.Evaluate(&rec, report(nil))

	require.True(t, verdict.Excluded)
	assert.Equal(t, "negative_equity", verdict.Reason())
}

func TestScreener_ShortCircuitsAtFirstMatch(t *testing.T) {
	rules := []strategyconfig.ExclusionRule{
		{ID: "going_concern", Kind: strategyconfig.RuleGoingConcern},
		{ID: "negative_equity", Kind: strategyconfig.RuleNegativeEquity},
		{ID: "low_liquidity", Kind: strategyconfig.RuleLowLiquidity, Floor: ptr(1e8)},
	}
	s := NewScreener(rules, logger.Nop())

	rec := baseRecord("1111")
	rec.Flags[contracts.FlagGoingConcern] = true
	rec.Flags[contracts.FlagNegativeEquity] = true

	verdict, outcomes := s.Evaluate(&rec, report(nil))

	assert.True(t, verdict.Excluded)
	assert.Equal(t, "going_concern", verdict.Reason())
	assert.Equal(t, 0, verdict.RuleIndex)
	assert.Equal(t, 1, verdict.Evaluated)
	assert.Len(t, outcomes, 1)
}

func TestScreener_RuleOrderChangesReasonNotExclusion(t *testing.T) {
	forward := []strategyconfig.ExclusionRule{
		{ID: "going_concern", Kind: strategyconfig.RuleGoingConcern},
		{ID: "negative_equity", Kind: strategyconfig.RuleNegativeEquity},
	}
	reversed := []strategyconfig.ExclusionRule{forward[1], forward[0]}

	rec := baseRecord("2222")
	rec.Flags[contracts.FlagGoingConcern] = true
	rec.Flags[contracts.FlagNegativeEquity] = true

	v1, _ := NewScreener(forward, logger.Nop()).Evaluate(&rec, report(nil))
	v2, _ := NewScreener(reversed, logger.Nop()).Evaluate(&rec, report(nil))

	assert.True(t, v1.Excluded)
	assert.True(t, v2.Excluded)
	assert.Equal(t, "going_concern", v1.Reason())
	assert.Equal(t, "negative_equity", v2.Reason())
}

func TestScreener_GapsFailOpen(t *testing.T) {
	s := NewScreener(strategyconfig.Default().ExclusionRules, logger.Nop())
	rec := contracts.SecurityRecord{Code: "3333", Metrics: map[string]contracts.RawMetric{}}

	verdict, outcomes := s.Evaluate(&rec, report(map[contracts.SourceCategory]contracts.FreshnessState{
		contracts.SourceDisclosure: contracts.Unknown,
	}))

	assert.False(t, verdict.Excluded)
	assert.Equal(t, len(outcomes), verdict.Evaluated)
	assert.Len(t, verdict.Gaps, verdict.Evaluated)
	for _, o := range outcomes {
		assert.Equal(t, contracts.RuleGap, o.Result, o.RuleID)
	}
}

func TestRules(t *testing.T) {
	tests := []struct {
		name   string
		rule   strategyconfig.ExclusionRule
		mutate func(*contracts.SecurityRecord)
		fresh  contracts.FreshnessReport
		want   contracts.RuleResult
	}{
		{
			name:   "negative equity from metric",
			rule:   strategyconfig.ExclusionRule{ID: "ne", Kind: strategyconfig.RuleNegativeEquity},
			mutate: func(r *contracts.SecurityRecord) { r.Metrics[contracts.MetricEquity] = contracts.RawMetric{Value: contracts.Present(-1)} },
			want:   contracts.RuleMatched,
		},
		{
			name: "negative equity flag unknown and metric missing",
			rule: strategyconfig.ExclusionRule{ID: "ne", Kind: strategyconfig.RuleNegativeEquity},
			mutate: func(r *contracts.SecurityRecord) {
				delete(r.Flags, contracts.FlagNegativeEquity)
				delete(r.Metrics, contracts.MetricEquity)
			},
			want: contracts.RuleGap,
		},
		{
			name: "operating cf negative for all periods",
			rule: strategyconfig.ExclusionRule{ID: "ocf", Kind: strategyconfig.RuleNegativeOperatingCF, Periods: 2},
			mutate: func(r *contracts.SecurityRecord) {
				r.OperatingCashFlows = []contracts.MetricValue{contracts.Present(-5), contracts.Present(-3), contracts.Present(10)}
			},
			want: contracts.RuleMatched,
		},
		{
			name: "operating cf with one positive period",
			rule: strategyconfig.ExclusionRule{ID: "ocf", Kind: strategyconfig.RuleNegativeOperatingCF, Periods: 3},
			mutate: func(r *contracts.SecurityRecord) {
				r.OperatingCashFlows = []contracts.MetricValue{contracts.Present(-5), contracts.Present(2), contracts.Missing()}
			},
			want: contracts.RuleNotMatched,
		},
		{
			name: "operating cf too few periods",
			rule: strategyconfig.ExclusionRule{ID: "ocf", Kind: strategyconfig.RuleNegativeOperatingCF, Periods: 3},
			mutate: func(r *contracts.SecurityRecord) {
				r.OperatingCashFlows = []contracts.MetricValue{contracts.Present(-5), contracts.Present(-2)}
			},
			want: contracts.RuleGap,
		},
		{
			name: "low liquidity below floor",
			rule: strategyconfig.ExclusionRule{ID: "liq", Kind: strategyconfig.RuleLowLiquidity, Floor: ptr(5e8)},
			want: contracts.RuleMatched,
		},
		{
			name: "low liquidity invalid turnover",
			rule: strategyconfig.ExclusionRule{ID: "liq", Kind: strategyconfig.RuleLowLiquidity, Floor: ptr(1e8)},
			mutate: func(r *contracts.SecurityRecord) {
				r.Metrics[contracts.MetricAvgTurnover20D] = contracts.RawMetric{Value: contracts.Invalid()}
			},
			want: contracts.RuleGap,
		},
		{
			name:   "earnings downgrade",
			rule:   strategyconfig.ExclusionRule{ID: "dg", Kind: strategyconfig.RuleEarningsDowngrade},
			mutate: func(r *contracts.SecurityRecord) { r.Flags[contracts.FlagUnexplainedDowngrade] = true },
			want:   contracts.RuleMatched,
		},
		{
			name: "metric below",
			rule: strategyconfig.ExclusionRule{ID: "er", Kind: strategyconfig.RuleMetricBelow, Metric: contracts.MetricEquityRatio, Min: ptr(50)},
			want: contracts.RuleMatched,
		},
		{
			name: "metric above at the limit",
			rule: strategyconfig.ExclusionRule{ID: "er", Kind: strategyconfig.RuleMetricAbove, Metric: contracts.MetricEquityRatio, Max: ptr(45)},
			want: contracts.RuleNotMatched,
		},
		{
			name:  "stale disclosure",
			rule:  strategyconfig.ExclusionRule{ID: "sd", Kind: strategyconfig.RuleStaleDisclosure},
			fresh: report(map[contracts.SourceCategory]contracts.FreshnessState{contracts.SourceDisclosure: contracts.Stale}),
			want:  contracts.RuleMatched,
		},
		{
			name: "stale disclosure without report",
			rule: strategyconfig.ExclusionRule{ID: "sd", Kind: strategyconfig.RuleStaleDisclosure},
			want: contracts.RuleGap,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := baseRecord("4444")
			if tt.mutate != nil {
				tt.mutate(&rec)
			}
			got, detail := compileRule(tt.rule)(ruleInput{record: &rec, freshness: tt.fresh})
			assert.Equal(t, tt.want, got, detail)
			assert.NotEmpty(t, detail)
		})
	}
}

func TestScreener_Screen(t *testing.T) {
	s := NewScreener(strategyconfig.Default().ExclusionRules, logger.Nop())

	ok := baseRecord("1301")
	bad := baseRecord("1332")
	bad.Flags[contracts.FlagGoingConcern] = true

	result := s.Screen([]contracts.SecurityRecord{ok, bad}, map[string]contracts.FreshnessReport{
		"1301": report(nil),
		"1332": report(nil),
	})

	assert.False(t, result.Verdicts["1301"].Excluded)
	assert.True(t, result.Verdicts["1332"].Excluded)
	assert.Len(t, result.Outcomes["1332"], 1)
}
