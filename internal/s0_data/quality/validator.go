package quality

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/laggard/backend/internal/contracts"
)

// QualityGate measures how complete an ingested snapshot is
type QualityGate struct {
	metrics []string
	config  Config
}

// Config holds quality gate thresholds (0 disables a check)
type Config struct {
	MinPriceCoverage        float64 `yaml:"min_price_coverage"`
	MinFundamentalsCoverage float64 `yaml:"min_fundamentals_coverage"`
	MinDisclosureCoverage   float64 `yaml:"min_disclosure_coverage"`
	MaxInvalidRatio         float64 `yaml:"max_invalid_ratio"`
}

// DefaultConfig returns thresholds suited to broker screening exports
func DefaultConfig() Config {
	return Config{
		MinPriceCoverage:        0.95,
		MinFundamentalsCoverage: 0.80,
		MaxInvalidRatio:         0.05,
	}
}

// Snapshot is the coverage of one as-of date
type Snapshot struct {
	AsOf         time.Time          `json:"as_of"`
	TotalRecords int                `json:"total_records"`
	Coverage     map[string]float64 `json:"coverage"` // category → present ratio
	MetricCover  map[string]float64 `json:"metric_coverage"`
	InvalidRatio float64            `json:"invalid_ratio"`
	QualityScore float64            `json:"quality_score"`
	Shortfalls   []string           `json:"shortfalls,omitempty"`
}

// IsValid reports whether every threshold was met
func (s *Snapshot) IsValid() bool {
	return len(s.Shortfalls) == 0
}

// NewQualityGate creates a gate over the given metric ids
func NewQualityGate(metrics []string, config Config) *QualityGate {
	return &QualityGate{
		metrics: metrics,
		config:  config,
	}
}

// Check computes per-metric and per-category coverage
// ⭐ SSOT: S0 → S1 품질 검증
func (g *QualityGate) Check(asOf time.Time, records []contracts.SecurityRecord) *Snapshot {
	snapshot := &Snapshot{
		AsOf:         asOf,
		TotalRecords: len(records),
		Coverage:     make(map[string]float64),
		MetricCover:  make(map[string]float64, len(g.metrics)),
	}
	if len(records) == 0 {
		snapshot.Shortfalls = []string{"no records ingested"}
		return snapshot
	}

	// 1. 지표별 커버리지
	catPresent := make(map[contracts.SourceCategory]int)
	catCells := make(map[contracts.SourceCategory]int)
	invalid, cells := 0, 0
	for _, id := range g.metrics {
		cat := contracts.MetricCatalog[id]
		present := 0
		for i := range records {
			v := records[i].Metric(id)
			switch {
			case v.IsPresent():
				present++
			case v.IsInvalid():
				invalid++
			}
		}
		cells += len(records)
		catPresent[cat] += present
		catCells[cat] += len(records)
		snapshot.MetricCover[id] = float64(present) / float64(len(records))
	}

	// 2. 카테고리별 커버리지
	for cat, n := range catCells {
		snapshot.Coverage[string(cat)] = float64(catPresent[cat]) / float64(n)
	}

	withDisclosure := 0
	for i := range records {
		if len(records[i].Disclosures) > 0 {
			withDisclosure++
		}
	}
	snapshot.Coverage[string(contracts.SourceDisclosure)] = float64(withDisclosure) / float64(len(records))

	if cells > 0 {
		snapshot.InvalidRatio = float64(invalid) / float64(cells)
	}

	// 3. 품질 점수 및 기준 미달
	snapshot.QualityScore = g.calculateScore(snapshot.Coverage)
	snapshot.Shortfalls = g.shortfalls(snapshot)

	return snapshot
}

// calculateScore calculates overall quality score using weighted average
func (g *QualityGate) calculateScore(coverage map[string]float64) float64 {
	// 가중치 (합계 = 1.0), 공시는 점수에 반영하지 않음
	weights := map[string]float64{
		string(contracts.SourcePrice):        0.5,
		string(contracts.SourceFundamentals): 0.5,
	}

	score, total := 0.0, 0.0
	for key, weight := range weights {
		if cov, exists := coverage[key]; exists {
			score += cov * weight
			total += weight
		}
	}
	if total == 0 {
		return 0
	}
	return score / total
}

func (g *QualityGate) shortfalls(s *Snapshot) []string {
	checks := map[string]float64{
		string(contracts.SourcePrice):        g.config.MinPriceCoverage,
		string(contracts.SourceFundamentals): g.config.MinFundamentalsCoverage,
		string(contracts.SourceDisclosure):   g.config.MinDisclosureCoverage,
	}

	out := make([]string, 0)
	for cat, floor := range checks {
		cov, ok := s.Coverage[cat]
		if floor <= 0 || !ok {
			continue
		}
		if cov < floor {
			out = append(out, fmt.Sprintf("%s coverage %.2f below %.2f", cat, cov, floor))
		}
	}
	if g.config.MaxInvalidRatio > 0 && s.InvalidRatio > g.config.MaxInvalidRatio {
		out = append(out, fmt.Sprintf("invalid ratio %.2f above %.2f", s.InvalidRatio, g.config.MaxInvalidRatio))
	}
	sort.Strings(out)
	return out
}
