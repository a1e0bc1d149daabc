package strategyconfig

import (
	"time"
	_ "time/tzdata" // 컨테이너에 zoneinfo가 없어도 Asia/Tokyo 로드

	"github.com/wonny/laggard/backend/internal/contracts"
)

// Config는 후보 선정 전략의 전체 설정
type Config struct {
	Meta           Meta            `yaml:"meta" json:"meta"`
	Universe       Universe        `yaml:"universe" json:"universe"`
	Quantitative   Quantitative    `yaml:"quantitative" json:"quantitative"`
	Qualitative    Qualitative     `yaml:"qualitative" json:"qualitative"`
	ExclusionRules []ExclusionRule `yaml:"exclusion_rules" json:"exclusion_rules"`
	Freshness      Freshness       `yaml:"freshness" json:"freshness"`
	Ranking        Ranking         `yaml:"ranking" json:"ranking"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
	Timezone   string `yaml:"timezone" json:"timezone"` // as-of 날짜 해석 기준
}

// Location resolves Meta.Timezone, UTC when unset
func (m Meta) Location() (*time.Location, error) {
	if m.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(m.Timezone)
}

// Universe S1: 대상 종목 필터
type Universe struct {
	Market               string   `yaml:"market" json:"market"`
	MarketMarkers        []string `yaml:"market_markers" json:"market_markers"` // 시장명에 포함되면 통과
	MinAvgTurnover20DJPY float64  `yaml:"min_avg_turnover_20d_jpy" json:"min_avg_turnover_20d_jpy"`
	MinMarketCapJPY      float64  `yaml:"min_market_cap_jpy" json:"min_market_cap_jpy"`
}

// Normalization methods
const (
	NormalizationMinMax = "min_max"
	NormalizationRank   = "rank"
)

// Quantitative S2: 정량 지표 테이블
type Quantitative struct {
	Normalization     string       `yaml:"normalization" json:"normalization"`
	MaxMissingMetrics int          `yaml:"max_missing_metrics" json:"max_missing_metrics"`
	Metrics           []MetricSpec `yaml:"metrics" json:"metrics"`
}

// MetricSpec describes one scored metric
type MetricSpec struct {
	ID        string              `yaml:"id" json:"id"`
	Direction contracts.Direction `yaml:"direction" json:"direction"`
	Weight    float64             `yaml:"weight" json:"weight"`
	Min       *float64            `yaml:"min,omitempty" json:"min,omitempty"` // clamp 하한 (선택)
	Max       *float64            `yaml:"max,omitempty" json:"max,omitempty"` // clamp 상한 (선택)
	Track     contracts.Track     `yaml:"track,omitempty" json:"track,omitempty"`
}

// priceNowMetrics 가격 기반 트랙 기본값
var priceNowMetrics = map[string]bool{
	contracts.MetricPER:           true,
	contracts.MetricPBR:           true,
	contracts.MetricDividendYield: true,
}

// TrackOrDefault returns the configured track or the default for the metric
func (m MetricSpec) TrackOrDefault() contracts.Track {
	if m.Track != "" {
		return m.Track
	}
	if priceNowMetrics[m.ID] {
		return contracts.TrackPriceNow
	}
	return contracts.TrackFundamentals
}

// Qualitative S2: 정성 축 설정
type Qualitative struct {
	Axes []string `yaml:"axes" json:"axes"`

	// EvidenceCategory: 카테고리 없는 근거의 기본 분류
	EvidenceCategory contracts.SourceCategory `yaml:"evidence_category" json:"evidence_category"`
}

// Exclusion rule kinds
const (
	RuleGoingConcern        = "going_concern"
	RuleNegativeEquity      = "negative_equity"
	RuleNegativeOperatingCF = "negative_operating_cf"
	RuleLowLiquidity        = "low_liquidity"
	RuleEarningsDowngrade   = "earnings_downgrade"
	RuleStaleDisclosure     = "stale_disclosure"
	RuleMetricBelow         = "metric_below"
	RuleMetricAbove         = "metric_above"
)

// ExclusionRule S3: 순서가 있는 제외 규칙
type ExclusionRule struct {
	ID      string   `yaml:"id" json:"id"`
	Kind    string   `yaml:"kind" json:"kind"`
	Periods int      `yaml:"periods,omitempty" json:"periods,omitempty"` // negative_operating_cf
	Floor   *float64 `yaml:"floor,omitempty" json:"floor,omitempty"`     // low_liquidity
	Metric  string   `yaml:"metric,omitempty" json:"metric,omitempty"`   // metric_below / metric_above
	Min     *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max     *float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

// Freshness lookback windows in calendar days
type Freshness struct {
	PriceDays        int `yaml:"price_days" json:"price_days"`
	FundamentalsDays int `yaml:"fundamentals_days" json:"fundamentals_days"`
	DisclosureDays   int `yaml:"disclosure_days" json:"disclosure_days"`
	NewsDays         int `yaml:"news_days" json:"news_days"`
}

// Threshold returns the lookback for a category
func (f Freshness) Threshold(cat contracts.SourceCategory) int {
	switch cat {
	case contracts.SourcePrice:
		return f.PriceDays
	case contracts.SourceFundamentals:
		return f.FundamentalsDays
	case contracts.SourceDisclosure:
		return f.DisclosureDays
	case contracts.SourceNews:
		return f.NewsDays
	default:
		return 0
	}
}

// Composite methods
const (
	CompositeSum     = "sum"
	CompositeAverage = "average"
)

// Ranking S4: 순위/선정
type Ranking struct {
	CompositeMethod string `yaml:"composite_method" json:"composite_method"`
	TopN            int    `yaml:"top_n" json:"top_n"`
	TopK            int    `yaml:"top_k" json:"top_k"`
}

// Default returns the built-in strategy; YAML files are decoded on top of it
func Default() *Config {
	floor := 100_000_000.0

	return &Config{
		Meta: Meta{
			Version:  "1",
			Timezone: "Asia/Tokyo",
		},
		Universe: Universe{
			Market:               "TSE_PRIME",
			MarketMarkers:        []string{"東証P", "東P", "プライム", "Prime"},
			MinAvgTurnover20DJPY: 100_000_000,
			MinMarketCapJPY:      20_000_000_000,
		},
		Quantitative: Quantitative{
			Normalization:     NormalizationMinMax,
			MaxMissingMetrics: 2,
			Metrics: []MetricSpec{
				{ID: contracts.MetricPBR, Direction: contracts.LowerBetter, Weight: 1},
				{ID: contracts.MetricPER, Direction: contracts.LowerBetter, Weight: 1},
				{ID: contracts.MetricDividendYield, Direction: contracts.HigherBetter, Weight: 1},
				{ID: contracts.MetricROE, Direction: contracts.HigherBetter, Weight: 1},
				{ID: contracts.MetricEquityRatio, Direction: contracts.HigherBetter, Weight: 1},
				{ID: contracts.MetricNetDERatio, Direction: contracts.LowerBetter, Weight: 1},
				{ID: contracts.MetricRevenueCAGR3Y, Direction: contracts.HigherBetter, Weight: 1},
				{ID: contracts.MetricOpIncomeCAGR3Y, Direction: contracts.HigherBetter, Weight: 1},
			},
		},
		Qualitative: Qualitative{
			Axes:             contracts.QualitativeAxes(),
			EvidenceCategory: contracts.SourceNews,
		},
		ExclusionRules: []ExclusionRule{
			{ID: "going_concern", Kind: RuleGoingConcern},
			{ID: "negative_equity", Kind: RuleNegativeEquity},
			{ID: "negative_operating_cf_3p", Kind: RuleNegativeOperatingCF, Periods: 3},
			{ID: "low_liquidity", Kind: RuleLowLiquidity, Floor: &floor},
			{ID: "earnings_downgrade", Kind: RuleEarningsDowngrade},
		},
		Freshness: Freshness{
			PriceDays:        5,
			FundamentalsDays: 120,
			DisclosureDays:   90,
			NewsDays:         14,
		},
		Ranking: Ranking{
			CompositeMethod: CompositeSum,
			TopN:            20,
			TopK:            3,
		},
	}
}

// DecisionSnapshot 의사결정 스냅샷 (재현성용)
type DecisionSnapshot struct {
	ConfigHash     string    `json:"config_hash"`
	ConfigYAML     string    `json:"config_yaml"`
	StrategyID     string    `json:"strategy_id"`
	GitCommit      string    `json:"git_commit"`
	DataSnapshotID string    `json:"data_snapshot_id"`
	AsOf           time.Time `json:"as_of"`
}
