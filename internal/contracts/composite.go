package contracts

import "slices"

// ScoringStatus tells which component scores exist
type ScoringStatus string

const (
	StatusComplete         ScoringStatus = "complete"
	StatusQuantitativeOnly ScoringStatus = "quantitative_only"
	StatusQuantUnavailable ScoringStatus = "quant_unavailable"
)

// Disposition is the final classification of a security
type Disposition string

const (
	Recommend Disposition = "Recommend"
	Watch     Disposition = "Watch"
	Skip      Disposition = "Skip"
)

// CompositeRecord is the joined, ranked output for one security
// ⭐ SSOT: S4 → 리포트/저장 전달 (모든 입력 종목이 하나씩 가짐)
type CompositeRecord struct {
	Code string `json:"code"`
	Name string `json:"name"`

	Quantitative     QuantitativeScore `json:"quantitative"`
	Qualitative      *QualitativeScore `json:"qualitative"`
	QualitativeError string            `json:"qualitative_error,omitempty"`

	// Provisional: 두 점수가 모두 있을 때만 존재
	Provisional MetricValue   `json:"provisional"`
	Status      ScoringStatus `json:"status"`

	Exclusion ExclusionVerdict `json:"exclusion"`
	Freshness FreshnessReport  `json:"freshness"`

	Rank       int  `json:"rank"` // 1-based, 0 = 순위 없음
	Candidate  bool `json:"candidate"`
	DeepReview bool `json:"deep_review"`

	Disposition Disposition `json:"disposition"`
	Reasons     []string    `json:"reasons"`
}

// IsRanked reports whether the record took part in the sort
func (c *CompositeRecord) IsRanked() bool {
	return c.Rank > 0
}

// QualitativeValue returns the qualitative score when available
func (c *CompositeRecord) QualitativeValue() MetricValue {
	if c.Qualitative == nil {
		return Missing()
	}
	return Present(float64(c.Qualitative.Value))
}

// Clone returns a deep copy; stores hand out clones so callers cannot
// change a saved run
func (c CompositeRecord) Clone() CompositeRecord {
	out := c
	out.Quantitative.Contributions = slices.Clone(c.Quantitative.Contributions)
	if c.Quantitative.Tracks != nil {
		out.Quantitative.Tracks = make(map[Track]MetricValue, len(c.Quantitative.Tracks))
		for k, v := range c.Quantitative.Tracks {
			out.Quantitative.Tracks[k] = v
		}
	}
	if c.Qualitative != nil {
		q := *c.Qualitative
		q.Axes = slices.Clone(c.Qualitative.Axes)
		out.Qualitative = &q
	}
	if c.Exclusion.MatchedRule != nil {
		rule := *c.Exclusion.MatchedRule
		out.Exclusion.MatchedRule = &rule
	}
	out.Exclusion.Gaps = slices.Clone(c.Exclusion.Gaps)
	out.Freshness.Verdicts = slices.Clone(c.Freshness.Verdicts)
	for i, v := range out.Freshness.Verdicts {
		if v.AgeDays != nil {
			age := *v.AgeDays
			v.AgeDays = &age
		}
		out.Freshness.Verdicts[i] = v
	}
	out.Reasons = slices.Clone(c.Reasons)
	return out
}
