package contracts

import "time"

// Direction tells the normalizer which end of a metric is better
type Direction string

const (
	HigherBetter Direction = "higher_better"
	LowerBetter  Direction = "lower_better"
)

// Track splits quantitative metrics into price-driven and fundamentals-driven groups
type Track string

const (
	TrackPriceNow     Track = "price_now"
	TrackFundamentals Track = "fundamentals_base"
)

// NormalizedMetric is one metric on the 0-100 scale of the current universe
type NormalizedMetric struct {
	Name      string      `json:"name"`
	Raw       MetricValue `json:"raw"`
	Value     MetricValue `json:"value"`
	Direction Direction   `json:"direction"`
	Track     Track       `json:"track"`
	Clamped   bool        `json:"clamped,omitempty"`
}

// MetricContribution is one line of the quantitative breakdown
type MetricContribution struct {
	Metric       string      `json:"metric"`
	Weight       float64     `json:"weight"`
	Normalized   MetricValue `json:"normalized"`
	Contribution MetricValue `json:"contribution"` // weight × normalized, missing when not used
}

// QuantitativeScore is Σ(wᵢ·vᵢ)/Σwᵢ over present metrics
// ⭐ SSOT: S2 정량 점수 (0~100)
type QuantitativeScore struct {
	Code          string                `json:"code"`
	Value         MetricValue           `json:"value"`
	Contributions []MetricContribution  `json:"contributions"`
	MissingCount  int                   `json:"missing_count"`
	InvalidCount  int                   `json:"invalid_count"`
	LowConfidence bool                  `json:"low_confidence"`
	Unavailable   bool                  `json:"unavailable"`
	Tracks        map[Track]MetricValue `json:"tracks"`
}

// Evidence is an audit reference behind a score or disclosure
type Evidence struct {
	Source      string         `json:"source"`
	Reference   string         `json:"reference" validate:"required"`
	RetrievedAt time.Time      `json:"retrieved_at" validate:"required"`
	Summary     string         `json:"summary,omitempty"`
	Category    SourceCategory `json:"category,omitempty"`
}

// CategoryOrDefault returns Category, or def when unset
func (e Evidence) CategoryOrDefault(def SourceCategory) SourceCategory {
	if e.Category == "" {
		return def
	}
	return e.Category
}

// Qualitative axes (fixed set of five)
const (
	AxisTemporaryLag         = "temporary_lag_factor"
	AxisGrowthDriver         = "growth_driver_confidence"
	AxisManagementCapital    = "management_and_capital_policy"
	AxisCompetitiveAdvantage = "competitive_advantage"
	AxisRiskResilience       = "risk_resilience"
)

// QualitativeAxes returns the five axes in report order
func QualitativeAxes() []string {
	return []string{
		AxisTemporaryLag,
		AxisGrowthDriver,
		AxisManagementCapital,
		AxisCompetitiveAdvantage,
		AxisRiskResilience,
	}
}

// IsQualitativeAxis checks an axis name
func IsQualitativeAxis(name string) bool {
	for _, axis := range QualitativeAxes() {
		if axis == name {
			return true
		}
	}
	return false
}

// AxisLabel returns the short column label used in reports
func AxisLabel(axis string) string {
	switch axis {
	case AxisTemporaryLag:
		return "Q-Temp"
	case AxisGrowthDriver:
		return "Q-Growth"
	case AxisManagementCapital:
		return "Q-Mgmt"
	case AxisCompetitiveAdvantage:
		return "Q-Edge"
	case AxisRiskResilience:
		return "Q-Risk"
	default:
		return axis
	}
}

// Axis score bounds and the multiplier that maps 5 axes × 5 points to 100
const (
	AxisScoreMin          = 0
	AxisScoreMax          = 5
	QualitativeMultiplier = 4
)

// QualitativeAxisScore is one externally supplied axis judgement
type QualitativeAxisScore struct {
	Axis     string   `json:"axis"`
	Score    int      `json:"score"`
	Evidence Evidence `json:"evidence"`
}

// QualitativeScore is Σaxis × 4 (0~100)
// ⭐ SSOT: S2 정성 점수
type QualitativeScore struct {
	Code  string                 `json:"code"`
	Value int                    `json:"value"`
	Axes  []QualitativeAxisScore `json:"axes"` // QualitativeAxes() 순서
}

// AxisScore returns the score for one axis
func (q *QualitativeScore) AxisScore(axis string) (int, bool) {
	for _, a := range q.Axes {
		if a.Axis == axis {
			return a.Score, true
		}
	}
	return 0, false
}
