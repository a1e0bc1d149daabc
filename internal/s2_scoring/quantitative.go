package s2_scoring

import (
	"github.com/wonny/laggard/backend/internal/contracts"
	"github.com/wonny/laggard/backend/internal/strategyconfig"
)

// QuantitativeScorer computes Σ(wᵢ·vᵢ) / Σwᵢ over present metrics
type QuantitativeScorer struct {
	weights    map[string]float64
	maxMissing int
}

// NewQuantitativeScorer creates a scorer from the validated quantitative config
func NewQuantitativeScorer(cfg strategyconfig.Quantitative) *QuantitativeScorer {
	weights := make(map[string]float64, len(cfg.Metrics))
	for _, m := range cfg.Metrics {
		weights[m.ID] = m.Weight
	}
	return &QuantitativeScorer{weights: weights, maxMissing: cfg.MaxMissingMetrics}
}

// Score builds the quantitative score for one security.
// Invalid metrics are excluded like missing ones and counted separately.
// No present metric (or zero present weight) → Unavailable.
func (s *QuantitativeScorer) Score(code string, metrics []contracts.NormalizedMetric) contracts.QuantitativeScore {
	score := contracts.QuantitativeScore{
		Code:          code,
		Contributions: make([]contracts.MetricContribution, 0, len(metrics)),
		Tracks:        make(map[contracts.Track]contracts.MetricValue, 2),
	}

	type acc struct{ num, den float64 }
	total := acc{}
	tracks := map[contracts.Track]*acc{
		contracts.TrackPriceNow:     {},
		contracts.TrackFundamentals: {},
	}

	for _, nm := range metrics {
		w := s.weights[nm.Name]
		c := contracts.MetricContribution{
			Metric:     nm.Name,
			Weight:     w,
			Normalized: nm.Value,
		}

		v, ok := nm.Value.Value()
		switch {
		case ok:
			c.Contribution = contracts.Present(w * v)
			total.num += w * v
			total.den += w
			if t, exists := tracks[nm.Track]; exists {
				t.num += w * v
				t.den += w
			}
		case nm.Value.IsInvalid():
			score.InvalidCount++
		default:
			score.MissingCount++
		}

		score.Contributions = append(score.Contributions, c)
	}

	for track, a := range tracks {
		score.Tracks[track] = ratio(a.num, a.den)
	}

	score.Value = ratio(total.num, total.den)
	score.Unavailable = !score.Value.IsPresent()
	score.LowConfidence = score.MissingCount+score.InvalidCount > s.maxMissing

	return score
}

func ratio(num, den float64) contracts.MetricValue {
	if den <= 0 {
		return contracts.Missing()
	}
	return contracts.Present(num / den)
}
