package selection

import (
	"fmt"
	"sort"

	"github.com/wonny/laggard/backend/internal/contracts"
	"github.com/wonny/laggard/backend/internal/strategyconfig"
	"github.com/wonny/laggard/backend/pkg/logger"
)

// Ranker implements S4: provisional score, ordering, top-N/top-K and disposition
// ⭐ SSOT: 최종 판정 (Recommend / Watch / Skip)
type Ranker struct {
	config strategyconfig.Ranking
	logger *logger.Logger
}

// NewRanker creates a ranker
func NewRanker(cfg strategyconfig.Ranking, log *logger.Logger) *Ranker {
	return &Ranker{
		config: cfg,
		logger: log.WithField("module", "ranker"),
	}
}

// Provisional blends the two component scores.
// sum: 0..200, average: 0..100
func (r *Ranker) Provisional(quant float64, qual int) float64 {
	if r.config.CompositeMethod == strategyconfig.CompositeAverage {
		return (quant + float64(qual)) / 2
	}
	return quant + float64(qual)
}

// Rank fills status, provisional, rank, candidate, deep review and disposition.
// Input records are not modified; the returned slice holds ranked records
// in rank order followed by unranked records ordered by code.
func (r *Ranker) Rank(records []contracts.CompositeRecord) []contracts.CompositeRecord {
	out := make([]contracts.CompositeRecord, len(records))
	copy(out, records)

	for i := range out {
		r.prepare(&out[i])
	}

	ranked := make([]*contracts.CompositeRecord, 0, len(out))
	unranked := make([]*contracts.CompositeRecord, 0)
	for i := range out {
		rec := &out[i]
		if rec.Exclusion.Excluded || rec.Status == contracts.StatusQuantUnavailable {
			unranked = append(unranked, rec)
			continue
		}
		ranked = append(ranked, rec)
	}

	// 완전 점수 종목 먼저 (잠정 점수 → 정량 → 코드), 그 뒤 정량 전용 (정량 → 코드)
	sort.SliceStable(ranked, func(i, j int) bool {
		return less(ranked[i], ranked[j])
	})
	sort.SliceStable(unranked, func(i, j int) bool {
		return unranked[i].Code < unranked[j].Code
	})

	deep := 0
	for i, rec := range ranked {
		rec.Rank = i + 1
		rec.Candidate = rec.Rank <= r.config.TopN
		if rec.Candidate && rec.Status == contracts.StatusComplete && deep < r.config.TopK {
			rec.DeepReview = true
			deep++
		}
	}

	result := make([]contracts.CompositeRecord, 0, len(out))
	for _, rec := range ranked {
		r.decide(rec)
		result = append(result, *rec)
	}
	for _, rec := range unranked {
		r.decide(rec)
		result = append(result, *rec)
	}

	r.logSummary(result)
	return result
}

// prepare resets derived fields so Rank is idempotent on its own output
func (r *Ranker) prepare(rec *contracts.CompositeRecord) {
	rec.Rank = 0
	rec.Candidate = false
	rec.DeepReview = false
	rec.Reasons = nil

	switch {
	case rec.Quantitative.Unavailable || !rec.Quantitative.Value.IsPresent():
		rec.Status = contracts.StatusQuantUnavailable
		rec.Provisional = contracts.Missing()
	case rec.Qualitative == nil:
		rec.Status = contracts.StatusQuantitativeOnly
		rec.Provisional = contracts.Missing()
	default:
		rec.Status = contracts.StatusComplete
		quant, _ := rec.Quantitative.Value.Value()
		rec.Provisional = contracts.Present(r.Provisional(quant, rec.Qualitative.Value))
	}
}

func less(a, b *contracts.CompositeRecord) bool {
	aComplete := a.Status == contracts.StatusComplete
	bComplete := b.Status == contracts.StatusComplete
	if aComplete != bComplete {
		return aComplete
	}

	if aComplete {
		pa, _ := a.Provisional.Value()
		pb, _ := b.Provisional.Value()
		if pa != pb {
			return pa > pb
		}
	}

	qa, _ := a.Quantitative.Value.Value()
	qb, _ := b.Quantitative.Value.Value()
	if qa != qb {
		return qa > qb
	}
	return a.Code < b.Code
}

// decide assigns the disposition and its reasons
func (r *Ranker) decide(rec *contracts.CompositeRecord) {
	reasons := make([]string, 0, 4)

	switch {
	case rec.Exclusion.Excluded:
		rec.Disposition = contracts.Skip
		reasons = append(reasons, fmt.Sprintf("excluded by rule %s", rec.Exclusion.Reason()))
	case rec.Status == contracts.StatusQuantUnavailable:
		rec.Disposition = contracts.Skip
		reasons = append(reasons, "quantitative score unavailable")
	case !rec.Candidate:
		rec.Disposition = contracts.Skip
		reasons = append(reasons, fmt.Sprintf("rank %d outside top %d", rec.Rank, r.config.TopN))
	default:
		if rec.DeepReview {
			reasons = append(reasons, fmt.Sprintf("rank %d within top %d", rec.Rank, r.config.TopK))
		} else {
			reasons = append(reasons, fmt.Sprintf("rank %d within top %d candidates", rec.Rank, r.config.TopN))
		}
		if rec.Status == contracts.StatusQuantitativeOnly {
			reasons = append(reasons, qualitativeReason(rec))
		}
		for _, v := range rec.Freshness.NonFresh() {
			reasons = append(reasons, fmt.Sprintf("%s data %s", v.Category, v.State))
		}

		// 신선도 하향은 순위로 뒤집을 수 없음
		if rec.DeepReview && rec.Status == contracts.StatusComplete && rec.Freshness.AllFresh() {
			rec.Disposition = contracts.Recommend
		} else {
			rec.Disposition = contracts.Watch
		}
	}

	if rec.Quantitative.LowConfidence {
		reasons = append(reasons, fmt.Sprintf("low confidence: %d metrics missing, %d invalid",
			rec.Quantitative.MissingCount, rec.Quantitative.InvalidCount))
	}

	rec.Reasons = reasons
}

func qualitativeReason(rec *contracts.CompositeRecord) string {
	if rec.QualitativeError != "" {
		return "qualitative score unavailable: " + rec.QualitativeError
	}
	return "qualitative score unavailable"
}

func (r *Ranker) logSummary(records []contracts.CompositeRecord) {
	s := Summarize(records)
	r.logger.WithFields(map[string]interface{}{
		"ranked":      s.Ranked,
		"candidates":  s.Candidates,
		"deep_review": s.DeepReview,
		"recommend":   s.Recommend,
		"watch":       s.Watch,
		"skip":        s.Skip,
		"method":      r.config.CompositeMethod,
	}).Info("Ranking completed")
}

// OutsideUniverse builds the Skip record of a security rejected by S1.
// It carries no scores and is never ranked.
func OutsideUniverse(rec contracts.SecurityRecord, reason string) contracts.CompositeRecord {
	rule := contracts.UniverseRuleID
	return contracts.CompositeRecord{
		Code: rec.Code,
		Name: rec.Name,
		Quantitative: contracts.QuantitativeScore{
			Code:        rec.Code,
			Value:       contracts.Missing(),
			Unavailable: true,
		},
		Provisional: contracts.Missing(),
		Status:      contracts.StatusQuantUnavailable,
		Exclusion: contracts.ExclusionVerdict{
			Code:        rec.Code,
			Excluded:    true,
			MatchedRule: &rule,
			RuleIndex:   -1,
		},
		Disposition: contracts.Skip,
		Reasons:     []string{"outside universe: " + reason},
	}
}

// Summarize counts outcomes over ranked records
func Summarize(records []contracts.CompositeRecord) contracts.RunSummary {
	s := contracts.RunSummary{Total: len(records)}
	for _, rec := range records {
		if rec.Exclusion.OutsideUniverse() {
			s.OutsideUniverse++
			s.Skip++
			continue
		}
		if rec.Exclusion.Excluded {
			s.Excluded++
		}
		if rec.IsRanked() {
			s.Ranked++
		}
		if rec.Candidate {
			s.Candidates++
		}
		if rec.DeepReview {
			s.DeepReview++
		}
		switch rec.Disposition {
		case contracts.Recommend:
			s.Recommend++
		case contracts.Watch:
			s.Watch++
		case contracts.Skip:
			s.Skip++
		}
		if rec.Status == contracts.StatusQuantUnavailable {
			s.QuantUnavailable++
		}
		if rec.Qualitative == nil {
			s.QualitativeUnavailable++
		}
		if rec.Quantitative.LowConfidence {
			s.LowConfidence++
		}
	}
	return s
}
