package brain

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/laggard/backend/internal/contracts"
	"github.com/wonny/laggard/backend/internal/selection"
	"github.com/wonny/laggard/backend/internal/strategyconfig"
	"github.com/wonny/laggard/backend/pkg/logger"
	"github.com/wonny/laggard/backend/pkg/metrics"
)

var tokyo = mustLocation("Asia/Tokyo")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func asOfDate() time.Time {
	return time.Date(2026, 10, 16, 0, 0, 0, 0, tokyo)
}

func daysAgo(n int) time.Time {
	return asOfDate().AddDate(0, 0, -n)
}

func testConfig() *strategyconfig.Config {
	cfg := strategyconfig.Default()
	cfg.Meta.StrategyID = "tse_prime_laggard_test"
	cfg.Quantitative.Metrics = []strategyconfig.MetricSpec{
		{ID: contracts.MetricPBR, Direction: contracts.LowerBetter, Weight: 1},
	}
	return cfg
}

func security(code, market string, pbr float64) contracts.SecurityRecord {
	return contracts.SecurityRecord{
		Code:   code,
		Name:   "Company " + code,
		Market: market,
		AsOf:   asOfDate(),
		Metrics: map[string]contracts.RawMetric{
			contracts.MetricPBR:            {Value: contracts.Present(pbr), Source: contracts.SourcePrice},
			contracts.MetricAvgTurnover20D: {Value: contracts.Present(5e8), Source: contracts.SourcePrice},
			contracts.MetricMarketCapJPY:   {Value: contracts.Present(8e10), Source: contracts.SourcePrice},
			contracts.MetricEquity:         {Value: contracts.Present(3e10), Source: contracts.SourceFundamentals},
		},
		Flags: map[string]bool{
			contracts.FlagGoingConcern:         false,
			contracts.FlagNegativeEquity:       false,
			contracts.FlagUnexplainedDowngrade: false,
		},
		OperatingCashFlows: []contracts.MetricValue{
			contracts.Present(1e9), contracts.Present(1e9), contracts.Present(1e9),
		},
		SourceUpdatedAt: map[contracts.SourceCategory]time.Time{
			contracts.SourcePrice:        asOfDate(),
			contracts.SourceFundamentals: daysAgo(30),
		},
		Disclosures: []contracts.Evidence{{
			Source:      "timely_disclosure",
			Reference:   "https://example.com/" + code + ".pdf",
			RetrievedAt: daysAgo(10),
			Category:    contracts.SourceDisclosure,
		}},
	}
}

func axes(code string, category contracts.SourceCategory, scores ...int) []contracts.QualitativeAxisScore {
	out := make([]contracts.QualitativeAxisScore, 0, len(scores))
	for i, axis := range contracts.QualitativeAxes() {
		out = append(out, contracts.QualitativeAxisScore{
			Axis:  axis,
			Score: scores[i],
			Evidence: contracts.Evidence{
				Source:      "analyst_note",
				Reference:   "https://example.com/notes/" + code + "/" + axis,
				RetrievedAt: daysAgo(2),
				Category:    category,
			},
		})
	}
	return out
}

// scenario:
//
//	1001 quant 70 + qual 64 → Recommend
//	1002 cheapest but going concern → Skip
//	1003 complete scores, news unknown → Watch
//	1004 outside TSE Prime → Skip without scores
//	1005 no qualitative sheet → quantitative-only Watch
func scenario() Input {
	excluded := security("1002", "東証P", 0.4)
	excluded.Flags[contracts.FlagGoingConcern] = true

	return Input{
		AsOf: asOfDate(),
		Records: []contracts.SecurityRecord{
			security("1005", "東証P", 1.0),
			security("1003", "東証P", 2.4),
			excluded,
			security("1004", "東証S", 0.9),
			security("1001", "東証P", 1.0),
		},
		Qualitative: map[string][]contracts.QualitativeAxisScore{
			"1001": axes("1001", contracts.SourceNews, 4, 3, 3, 4, 2),
			"1003": axes("1003", contracts.SourceFundamentals, 1, 1, 1, 1, 1),
			"1002": axes("1002", contracts.SourceNews, 5, 5, 5, 5, 5),
		},
	}
}

func TestExecute_Scenario(t *testing.T) {
	o := NewOrchestrator(testConfig(), nil, Dependencies{}, logger.Nop())

	result, universe, err := o.Execute(scenario())
	require.NoError(t, err)

	assert.Equal(t, []string{"1001", "1002", "1003", "1005"}, universe.Stocks)
	assert.Contains(t, universe.Excluded, "1004")

	codes := make([]string, 0, len(result.Records))
	for _, r := range result.Records {
		codes = append(codes, r.Code)
	}
	assert.Equal(t, []string{"1001", "1003", "1005", "1002", "1004"}, codes)

	r1, _ := result.Find("1001")
	q, ok := r1.Quantitative.Value.Value()
	require.True(t, ok)
	assert.InDelta(t, 70, q, 1e-9)
	assert.Equal(t, 64, r1.Qualitative.Value)
	p, ok := r1.Provisional.Value()
	require.True(t, ok)
	assert.InDelta(t, 134, p, 1e-9)
	assert.True(t, r1.Freshness.AllFresh())
	assert.Equal(t, contracts.Recommend, r1.Disposition)

	r2, _ := result.Find("1002")
	assert.True(t, r2.Exclusion.Excluded)
	assert.Equal(t, "going_concern", r2.Exclusion.Reason())
	assert.Equal(t, contracts.Skip, r2.Disposition)

	r3, _ := result.Find("1003")
	assert.Equal(t, contracts.StatusComplete, r3.Status)
	assert.True(t, r3.DeepReview)
	assert.Equal(t, contracts.Watch, r3.Disposition)
	assert.Contains(t, r3.Reasons, "news data unknown")

	r4, _ := result.Find("1004")
	assert.True(t, r4.Exclusion.OutsideUniverse())
	assert.False(t, r4.IsRanked())
	assert.Equal(t, contracts.Skip, r4.Disposition)
	assert.Equal(t, []string{"outside universe: market"}, r4.Reasons)

	r5, _ := result.Find("1005")
	assert.Equal(t, contracts.StatusQuantitativeOnly, r5.Status)
	assert.Equal(t, "incomplete_axes", r5.QualitativeError)
	assert.Equal(t, contracts.Watch, r5.Disposition)

	assert.Equal(t, contracts.RunSummary{
		Total:                  5,
		Excluded:               1,
		OutsideUniverse:        1,
		Ranked:                 3,
		Candidates:             3,
		DeepReview:             2,
		Recommend:              1,
		Watch:                  2,
		Skip:                   2,
		QualitativeUnavailable: 1,
	}, result.Summary)
	assert.Equal(t, "tse_prime_laggard_test", result.StrategyID)
	assert.Len(t, result.ConfigHash, 64)
}

func TestExecute_Invariants(t *testing.T) {
	o := NewOrchestrator(testConfig(), nil, Dependencies{}, logger.Nop())
	result, _, err := o.Execute(scenario())
	require.NoError(t, err)

	for _, r := range result.Records {
		assert.NotEmpty(t, r.Disposition, r.Code)
		if r.Exclusion.Excluded {
			assert.Equal(t, contracts.Skip, r.Disposition, r.Code)
		}
		if r.Disposition == contracts.Recommend {
			assert.True(t, r.DeepReview, r.Code)
			assert.True(t, r.Freshness.AllFresh(), r.Code)
			assert.Equal(t, contracts.StatusComplete, r.Status, r.Code)
		}
	}
}

func TestExecute_StaleDisclosureCapsAtWatch(t *testing.T) {
	in := scenario()
	for i := range in.Records {
		if in.Records[i].Code == "1001" {
			in.Records[i].Disclosures[0].RetrievedAt = daysAgo(100)
		}
	}

	o := NewOrchestrator(testConfig(), nil, Dependencies{}, logger.Nop())
	result, _, err := o.Execute(in)
	require.NoError(t, err)

	r1, ok := result.Find("1001")
	require.True(t, ok)
	assert.False(t, r1.Exclusion.Excluded, "freshness is advisory under the default rules")
	assert.Equal(t, 1, r1.Rank)
	assert.True(t, r1.DeepReview)
	assert.Equal(t, contracts.Watch, r1.Disposition)
	assert.Contains(t, r1.Reasons, "disclosure data stale")
	assert.Zero(t, result.Summary.Recommend)
}

func TestExecute_EveryInputGetsDisposition(t *testing.T) {
	in := scenario()
	dup := security("1003", "東証P", 0.5)
	in.Records = append(in.Records, dup)
	for i := range in.Records {
		if in.Records[i].Code == "1005" {
			delete(in.Records[i].Metrics, contracts.MetricAvgTurnover20D)
		}
	}

	o := NewOrchestrator(testConfig(), nil, Dependencies{}, logger.Nop())
	result, universe, err := o.Execute(in)
	require.NoError(t, err)

	require.Len(t, result.Records, len(in.Records))
	assert.Equal(t, len(in.Records), result.Summary.Total)
	for _, r := range result.Records {
		assert.NotEmpty(t, r.Disposition, r.Code)
	}

	// 거래대금 결측은 S1을 통과하고 low_liquidity gap으로 기록
	assert.True(t, universe.Contains("1005"))
	r5, ok := result.Find("1005")
	require.True(t, ok)
	assert.False(t, r5.Exclusion.Excluded)
	assert.Contains(t, r5.Exclusion.Gaps, "low_liquidity")
	assert.Equal(t, contracts.Watch, r5.Disposition)

	// 중복 행은 첫 행만 채점, 나머지는 Skip
	dups := 0
	for _, r := range result.Records {
		if r.Code != "1003" {
			continue
		}
		if r.Exclusion.OutsideUniverse() {
			dups++
			assert.Equal(t, contracts.Skip, r.Disposition)
			assert.Equal(t, []string{"outside universe: duplicate_code"}, r.Reasons)
		} else {
			assert.Equal(t, contracts.StatusComplete, r.Status)
		}
	}
	assert.Equal(t, 1, dups)
	assert.Equal(t, 2, result.Summary.OutsideUniverse)
}

func TestExecute_AuditTrail(t *testing.T) {
	o := NewOrchestrator(testConfig(), nil, Dependencies{}, logger.Nop())
	result, _, err := o.Execute(scenario())
	require.NoError(t, err)

	for i, e := range result.Audit {
		assert.Equal(t, i+1, e.Seq)
		assert.True(t, e.AsOf.Equal(asOfDate()))
	}

	outside := result.AuditFor("1004")
	require.Len(t, outside, 1)
	assert.Equal(t, contracts.StageUniverse, outside[0].Stage)
	assert.True(t, strings.HasPrefix(outside[0].Rationale, "outside universe: market"))

	// 제외된 종목도 전체 근거가 남아야 함
	types := make(map[contracts.ScoreType]int)
	for _, e := range result.AuditFor("1002") {
		types[e.ScoreType]++
	}
	assert.Equal(t, 1, types[contracts.ScoreFreshnessIngest])
	assert.Equal(t, 1, types[contracts.ScoreNormalization])
	assert.Equal(t, 1, types[contracts.ScoreQuantitative])
	assert.Equal(t, 1, types[contracts.ScoreQualitative])
	assert.Equal(t, 1, types[contracts.ScoreFreshnessPreRank])
	assert.Equal(t, 1, types[contracts.ScoreExclusionRule], "short-circuit at the first rule")
	assert.Equal(t, 1, types[contracts.ScoreDisposition])

	rules := 0
	for _, e := range result.AuditFor("1001") {
		if e.ScoreType == contracts.ScoreExclusionRule {
			rules++
		}
		if e.ScoreType == contracts.ScoreQualitative {
			assert.Len(t, e.Evidence, 5)
		}
	}
	assert.Equal(t, len(testConfig().ExclusionRules), rules)
}

func TestExecute_Idempotent(t *testing.T) {
	o := NewOrchestrator(testConfig(), nil, Dependencies{}, logger.Nop())

	first, _, err := o.Execute(scenario())
	require.NoError(t, err)
	second, _, err := o.Execute(scenario())
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestExecute_ConfigurationErrorIsFatal(t *testing.T) {
	cfg := testConfig()
	cfg.Ranking.TopK = 0

	o := NewOrchestrator(cfg, nil, Dependencies{}, logger.Nop())
	result, universe, err := o.Execute(scenario())

	require.Error(t, err)
	var cfgErr strategyconfig.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "ranking.top_k", cfgErr.Field)
	assert.Nil(t, result)
	assert.Nil(t, universe)
}

func TestRun_PersistsAndRecordsMetrics(t *testing.T) {
	store := selection.NewMemoryStore()
	reg := metrics.NewRegistry()
	o := NewOrchestrator(testConfig(), []byte("meta: {}\n"), Dependencies{Store: store, Metrics: reg}, logger.Nop())

	out, err := o.Run(context.Background(), RunConfig{GitSHA: "abc1234"}, scenario())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out.RunID, "run_20261016_"))
	assert.Equal(t, out.Result.ConfigHash, out.Snapshot.ConfigHash)
	assert.Equal(t, "abc1234", out.Snapshot.GitCommit)
	require.NotNil(t, out.Quality)
	assert.Equal(t, len(scenario().Records), out.Quality.TotalRecords)
	assert.Len(t, out.CompletedStages, 5)

	saved, err := store.GetRun(context.Background(), asOfDate())
	require.NoError(t, err)
	assert.Equal(t, out.Result.Summary, saved.Summary)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Dispositions.WithLabelValues("Recommend")))
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.Dispositions.WithLabelValues("Skip")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Exclusions.WithLabelValues("going_concern")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.QualitativeErrors.WithLabelValues("incomplete_axes")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Runs.WithLabelValues("success")))
	assert.Equal(t, 4.0, testutil.ToFloat64(reg.UniverseSize))
}

func TestRun_DryRunSkipsPersistence(t *testing.T) {
	store := selection.NewMemoryStore()
	o := NewOrchestrator(testConfig(), nil, Dependencies{Store: store}, logger.Nop())

	_, err := o.Run(context.Background(), RunConfig{RunID: "run_test", DryRun: true}, scenario())
	require.NoError(t, err)

	_, err = store.LatestAsOf(context.Background())
	assert.ErrorIs(t, err, contracts.ErrRunNotFound)
}

func TestAsOfDate(t *testing.T) {
	utc := time.Date(2026, 10, 16, 23, 30, 0, 0, time.UTC)
	got := AsOfDate(utc, tokyo)
	assert.Equal(t, 17, got.Day(), "23:30 UTC is already the 17th in Tokyo")
	assert.Equal(t, 0, got.Hour())
}
