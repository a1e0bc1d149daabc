package s2_scoring

import (
	"sort"

	"github.com/wonny/laggard/backend/internal/contracts"
	"github.com/wonny/laggard/backend/internal/strategyconfig"
)

// Normalized holds every security's metrics on the 0-100 scale, keyed by code.
// Each slice follows the configured metric order.
type Normalized map[string][]contracts.NormalizedMetric

// Normalizer scales raw metrics across the current universe
// ⭐ SSOT: 정규화는 전체 유니버스가 모인 뒤 한 번만 수행 (유일한 동기화 지점)
type Normalizer struct {
	specs  []strategyconfig.MetricSpec
	method string
}

// NewNormalizer creates a Normalizer from the quantitative config
func NewNormalizer(cfg strategyconfig.Quantitative) *Normalizer {
	method := cfg.Normalization
	if method == "" {
		method = strategyconfig.NormalizationMinMax
	}
	return &Normalizer{specs: cfg.Metrics, method: method}
}

// Normalize produces one NormalizedMetric per configured metric per record.
// Missing raw values stay missing and invalid ones stay invalid; only present
// values take part in the scale.
func (n *Normalizer) Normalize(records []contracts.SecurityRecord) Normalized {
	out := make(Normalized, len(records))
	for _, rec := range records {
		out[rec.Code] = make([]contracts.NormalizedMetric, 0, len(n.specs))
	}

	for _, spec := range n.specs {
		clamped := make([]float64, len(records))
		wasClamped := make([]bool, len(records))
		present := make([]float64, 0, len(records))

		for i := range records {
			raw := records[i].Metric(spec.ID)
			v, ok := raw.Value()
			if !ok {
				continue
			}
			clamped[i], wasClamped[i] = clamp(v, spec.Min, spec.Max)
			present = append(present, clamped[i])
		}

		scale := n.scaler(spec.Direction, present)

		for i := range records {
			raw := records[i].Metric(spec.ID)
			nm := contracts.NormalizedMetric{
				Name:      spec.ID,
				Raw:       raw,
				Direction: spec.Direction,
				Track:     spec.TrackOrDefault(),
			}

			switch raw.State() {
			case contracts.ValuePresent:
				nm.Value = contracts.Present(scale(clamped[i]))
				nm.Clamped = wasClamped[i]
			case contracts.ValueInvalid:
				nm.Value = contracts.Invalid()
			default:
				nm.Value = contracts.Missing()
			}

			code := records[i].Code
			out[code] = append(out[code], nm)
		}
	}

	return out
}

// scaler returns the 0-100 mapping for one metric's present values
func (n *Normalizer) scaler(dir contracts.Direction, values []float64) func(float64) float64 {
	if n.method == strategyconfig.NormalizationRank {
		return rankScaler(dir, values)
	}
	return minMaxScaler(dir, values)
}

// minMaxScaler: worst → 0, best → 100; all identical → 100
func minMaxScaler(dir contracts.Direction, values []float64) func(float64) float64 {
	if len(values) == 0 {
		return func(float64) float64 { return 100 }
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	span := hi - lo
	if span == 0 {
		return func(float64) float64 { return 100 }
	}

	return func(v float64) float64 {
		if dir == contracts.LowerBetter {
			return (hi - v) / span * 100
		}
		return (v - lo) / span * 100
	}
}

// rankScaler: percentile of position, best → 100, worst → 0.
// Tied values share the best position of the tie.
func rankScaler(dir contracts.Direction, values []float64) func(float64) float64 {
	sorted := append([]float64(nil), values...)
	if dir == contracts.LowerBetter {
		sort.Float64s(sorted)
	} else {
		sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	}

	n := len(sorted)
	return func(v float64) float64 {
		if n <= 1 {
			return 100
		}
		pos := sort.Search(n, func(i int) bool {
			if dir == contracts.LowerBetter {
				return sorted[i] >= v
			}
			return sorted[i] <= v
		})
		return (1 - float64(pos)/float64(n-1)) * 100
	}
}

func clamp(v float64, lo, hi *float64) (float64, bool) {
	if lo != nil && v < *lo {
		return *lo, true
	}
	if hi != nil && v > *hi {
		return *hi, true
	}
	return v, false
}
