package strategyconfig

import (
	"fmt"
	"sort"

	"github.com/wonny/laggard/backend/internal/contracts"
)

// ConfigurationError 검증 실패 (실행 중단)
type ConfigurationError struct {
	Field   string
	Message string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 ConfigurationError 반환 (점수 계산 전에 중단)
func Validate(cfg *Config) error {
	if cfg == nil {
		return ConfigurationError{"config", "required"}
	}

	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ConfigurationError{"meta.strategy_id", "required"}
	}
	if _, err := cfg.Meta.Location(); err != nil {
		return ConfigurationError{"meta.timezone", err.Error()}
	}

	// === Universe ===
	if cfg.Universe.MinAvgTurnover20DJPY < 0 {
		return ConfigurationError{"universe.min_avg_turnover_20d_jpy", "must be >= 0"}
	}
	if cfg.Universe.MinMarketCapJPY < 0 {
		return ConfigurationError{"universe.min_market_cap_jpy", "must be >= 0"}
	}

	// === Quantitative ===
	if err := validateMetrics(cfg.Quantitative); err != nil {
		return err
	}

	// === Qualitative ===
	if err := validateAxes(cfg.Qualitative.Axes); err != nil {
		return err
	}
	if cfg.Qualitative.EvidenceCategory != "" && !cfg.Qualitative.EvidenceCategory.IsValid() {
		return ConfigurationError{"qualitative.evidence_category", fmt.Sprintf("unknown category %q", cfg.Qualitative.EvidenceCategory)}
	}

	// === Exclusion ===
	seen := make(map[string]bool, len(cfg.ExclusionRules))
	for i, rule := range cfg.ExclusionRules {
		field := fmt.Sprintf("exclusion_rules[%d]", i)
		if rule.ID == "" {
			return ConfigurationError{field + ".id", "required"}
		}
		if seen[rule.ID] {
			return ConfigurationError{field + ".id", fmt.Sprintf("duplicate rule id %q", rule.ID)}
		}
		seen[rule.ID] = true

		if err := validateRule(field, rule); err != nil {
			return err
		}
	}

	// === Freshness ===
	f := cfg.Freshness
	for _, c := range []struct {
		name string
		days int
	}{
		{"freshness.price_days", f.PriceDays},
		{"freshness.fundamentals_days", f.FundamentalsDays},
		{"freshness.disclosure_days", f.DisclosureDays},
		{"freshness.news_days", f.NewsDays},
	} {
		if c.days < 0 {
			return ConfigurationError{c.name, "must be >= 0"}
		}
	}

	// === Ranking ===
	r := cfg.Ranking
	if r.CompositeMethod != CompositeSum && r.CompositeMethod != CompositeAverage {
		return ConfigurationError{"ranking.composite_method", "must be sum or average"}
	}
	if r.TopN <= 0 {
		return ConfigurationError{"ranking.top_n", "must be > 0"}
	}
	if r.TopK <= 0 {
		return ConfigurationError{"ranking.top_k", "must be > 0"}
	}
	if r.TopK > r.TopN {
		return ConfigurationError{"ranking", fmt.Sprintf("top_k=%d must be <= top_n=%d", r.TopK, r.TopN)}
	}

	return nil
}

func validateMetrics(q Quantitative) error {
	if q.Normalization != NormalizationMinMax && q.Normalization != NormalizationRank {
		return ConfigurationError{"quantitative.normalization", "must be min_max or rank"}
	}
	if q.MaxMissingMetrics < 0 {
		return ConfigurationError{"quantitative.max_missing_metrics", "must be >= 0"}
	}
	if len(q.Metrics) == 0 {
		return ConfigurationError{"quantitative.metrics", "must not be empty"}
	}

	seen := make(map[string]bool, len(q.Metrics))
	positive := false
	for i, m := range q.Metrics {
		field := fmt.Sprintf("quantitative.metrics[%d]", i)

		if !contracts.IsKnownMetric(m.ID) {
			return ConfigurationError{field + ".id", fmt.Sprintf("unknown metric %q", m.ID)}
		}
		if seen[m.ID] {
			return ConfigurationError{field + ".id", fmt.Sprintf("duplicate metric %q", m.ID)}
		}
		seen[m.ID] = true

		if m.Direction != contracts.HigherBetter && m.Direction != contracts.LowerBetter {
			return ConfigurationError{field + ".direction", "must be higher_better or lower_better"}
		}
		if m.Weight < 0 {
			return ConfigurationError{field + ".weight", "must be >= 0"}
		}
		if m.Weight > 0 {
			positive = true
		}
		if m.Min != nil && m.Max != nil && *m.Min > *m.Max {
			return ConfigurationError{field, "min must be <= max"}
		}
		if m.Track != "" && m.Track != contracts.TrackPriceNow && m.Track != contracts.TrackFundamentals {
			return ConfigurationError{field + ".track", "must be price_now or fundamentals_base"}
		}
	}

	if !positive {
		return ConfigurationError{"quantitative.metrics", "at least one weight must be > 0"}
	}

	return nil
}

// validateAxes: 고정된 5개 축과 정확히 일치해야 함
func validateAxes(axes []string) error {
	want := contracts.QualitativeAxes()
	if len(axes) != len(want) {
		return ConfigurationError{"qualitative.axes", fmt.Sprintf("must list exactly %d axes, got %d", len(want), len(axes))}
	}

	got := append([]string(nil), axes...)
	sort.Strings(got)
	sort.Strings(want)
	for i := range want {
		if got[i] != want[i] {
			return ConfigurationError{"qualitative.axes", fmt.Sprintf("unexpected axis set %v", axes)}
		}
	}
	return nil
}

func validateRule(field string, rule ExclusionRule) error {
	switch rule.Kind {
	case RuleGoingConcern, RuleNegativeEquity, RuleEarningsDowngrade, RuleStaleDisclosure:
		return nil
	case RuleNegativeOperatingCF:
		if rule.Periods <= 0 {
			return ConfigurationError{field + ".periods", "must be > 0"}
		}
	case RuleLowLiquidity:
		if rule.Floor == nil {
			return ConfigurationError{field + ".floor", "required"}
		}
		if *rule.Floor < 0 {
			return ConfigurationError{field + ".floor", "must be >= 0"}
		}
	case RuleMetricBelow:
		if !contracts.IsKnownMetric(rule.Metric) {
			return ConfigurationError{field + ".metric", fmt.Sprintf("unknown metric %q", rule.Metric)}
		}
		if rule.Min == nil {
			return ConfigurationError{field + ".min", "required"}
		}
	case RuleMetricAbove:
		if !contracts.IsKnownMetric(rule.Metric) {
			return ConfigurationError{field + ".metric", fmt.Sprintf("unknown metric %q", rule.Metric)}
		}
		if rule.Max == nil {
			return ConfigurationError{field + ".max", "required"}
		}
	case "":
		return ConfigurationError{field + ".kind", "required"}
	default:
		return ConfigurationError{field + ".kind", fmt.Sprintf("unknown rule kind %q", rule.Kind)}
	}
	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 유동성 하한이 낮으면 체결 불가 종목이 상위에 올 수 있음
	if cfg.Universe.MinAvgTurnover20DJPY < 50_000_000 {
		warnings = append(warnings, Warning{
			Code:    "LOW_TURNOVER_FLOOR",
			Message: "min_avg_turnover_20d_jpy < 5천만엔: 유동성 부족 종목 포함 가능",
		})
	}

	// 결측 허용치가 지표 수 이상이면 LowConfidence가 의미 없음
	if cfg.Quantitative.MaxMissingMetrics >= len(cfg.Quantitative.Metrics) {
		warnings = append(warnings, Warning{
			Code:    "LOOSE_MISSING_LIMIT",
			Message: "max_missing_metrics >= 지표 수: 저신뢰 플래그가 발생하지 않음",
		})
	}

	// 가중치 0 지표는 점수에 기여하지 않음
	for _, m := range cfg.Quantitative.Metrics {
		if m.Weight == 0 {
			warnings = append(warnings, Warning{
				Code:    "ZERO_WEIGHT",
				Message: fmt.Sprintf("metric %s has weight 0", m.ID),
			})
		}
	}

	// 제외 규칙이 없으면 모든 종목이 순위에 참여
	if len(cfg.ExclusionRules) == 0 {
		warnings = append(warnings, Warning{
			Code:    "NO_EXCLUSION_RULES",
			Message: "exclusion_rules is empty",
		})
	}

	// 공시 신선도 규칙은 disclosure_days 기준
	for _, rule := range cfg.ExclusionRules {
		if rule.Kind == RuleStaleDisclosure && cfg.Freshness.DisclosureDays == 0 {
			warnings = append(warnings, Warning{
				Code:    "STRICT_DISCLOSURE",
				Message: "stale_disclosure with disclosure_days=0: 당일 공시가 아니면 모두 제외",
			})
		}
	}

	return warnings
}
