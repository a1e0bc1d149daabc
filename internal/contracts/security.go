package contracts

import (
	"sort"
	"time"
)

// SourceCategory groups inputs by where they come from
type SourceCategory string

const (
	SourcePrice        SourceCategory = "price"
	SourceFundamentals SourceCategory = "fundamentals"
	SourceDisclosure   SourceCategory = "disclosure"
	SourceNews         SourceCategory = "news"
)

// AllSourceCategories returns categories in report order
func AllSourceCategories() []SourceCategory {
	return []SourceCategory{SourcePrice, SourceFundamentals, SourceDisclosure, SourceNews}
}

// IsValid checks the category name
func (c SourceCategory) IsValid() bool {
	switch c {
	case SourcePrice, SourceFundamentals, SourceDisclosure, SourceNews:
		return true
	}
	return false
}

// Metric identifiers produced by ingestion
const (
	MetricLatestClose     = "latest_close"
	MetricPER             = "per"
	MetricPBR             = "pbr"
	MetricDividendYield   = "dividend_yield"
	MetricROE             = "roe"
	MetricEquityRatio     = "equity_ratio"
	MetricNetDERatio      = "net_de_ratio"
	MetricRevenueCAGR3Y   = "revenue_cagr_3y"
	MetricOpIncomeCAGR3Y  = "op_income_cagr_3y"
	MetricMarketCapJPY    = "market_cap_jpy"
	MetricAvgTurnover20D  = "avg_turnover_20d"
	MetricEquity          = "equity"
	MetricOperatingCFLast = "operating_cf"
)

// MetricCatalog maps every known metric to its source category
// ⭐ SSOT: 설정 검증과 수집기가 공유하는 지표 목록
var MetricCatalog = map[string]SourceCategory{
	MetricLatestClose:     SourcePrice,
	MetricPER:             SourcePrice,
	MetricPBR:             SourcePrice,
	MetricDividendYield:   SourcePrice,
	MetricMarketCapJPY:    SourcePrice,
	MetricAvgTurnover20D:  SourcePrice,
	MetricROE:             SourceFundamentals,
	MetricEquityRatio:     SourceFundamentals,
	MetricNetDERatio:      SourceFundamentals,
	MetricRevenueCAGR3Y:   SourceFundamentals,
	MetricOpIncomeCAGR3Y:  SourceFundamentals,
	MetricEquity:          SourceFundamentals,
	MetricOperatingCFLast: SourceFundamentals,
}

// IsKnownMetric checks a metric id against the catalog
func IsKnownMetric(id string) bool {
	_, ok := MetricCatalog[id]
	return ok
}

// KnownMetrics returns catalog ids sorted
func KnownMetrics() []string {
	ids := make([]string, 0, len(MetricCatalog))
	for id := range MetricCatalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Flag names carried on SecurityRecord.Flags
const (
	FlagGoingConcern         = "going_concern"
	FlagNegativeEquity       = "negative_equity"
	FlagUnexplainedDowngrade = "unexplained_earnings_downgrade"
)

// RawMetric is one ingested value with its provenance
type RawMetric struct {
	Value     MetricValue    `json:"value"`
	Source    SourceCategory `json:"source"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
}

// SecurityRecord is the ingested, provider-agnostic view of one security
// ⭐ SSOT: 수집기 → 파이프라인 입력 (생성 후 변경 금지)
type SecurityRecord struct {
	Code   string    `json:"code"`
	Name   string    `json:"name"`
	Market string    `json:"market"`
	AsOf   time.Time `json:"as_of"`

	Metrics map[string]RawMetric `json:"metrics"`

	// Flags: 키 없음 = 알 수 없음
	Flags map[string]bool `json:"flags,omitempty"`

	// OperatingCashFlows trailing periods, newest first
	OperatingCashFlows []MetricValue `json:"operating_cash_flows,omitempty"`

	SourceUpdatedAt map[SourceCategory]time.Time `json:"source_updated_at,omitempty"`
	Disclosures     []Evidence                   `json:"disclosures,omitempty"`
}

// Metric returns the raw value, Missing when absent
func (r *SecurityRecord) Metric(id string) MetricValue {
	m, ok := r.Metrics[id]
	if !ok {
		return Missing()
	}
	return m.Value
}

// Flag returns the flag and whether it is known
func (r *SecurityRecord) Flag(name string) (value bool, known bool) {
	value, known = r.Flags[name]
	return value, known
}

// LatestUpdate returns the newest timestamp seen for a category.
// Sources: SourceUpdatedAt, per-metric UpdatedAt and disclosure evidence.
func (r *SecurityRecord) LatestUpdate(cat SourceCategory) (time.Time, bool) {
	var latest time.Time
	found := false

	consider := func(t time.Time) {
		if t.IsZero() {
			return
		}
		if !found || t.After(latest) {
			latest = t
			found = true
		}
	}

	if t, ok := r.SourceUpdatedAt[cat]; ok {
		consider(t)
	}
	for _, m := range r.Metrics {
		if m.Source == cat && m.UpdatedAt != nil {
			consider(*m.UpdatedAt)
		}
	}
	for _, ev := range r.Disclosures {
		if ev.CategoryOrDefault(SourceDisclosure) == cat {
			consider(ev.RetrievedAt)
		}
	}

	return latest, found
}
