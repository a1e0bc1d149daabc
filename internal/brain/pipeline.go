package brain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wonny/laggard/backend/internal/audit"
	"github.com/wonny/laggard/backend/internal/contracts"
	"github.com/wonny/laggard/backend/internal/s0_data/freshness"
	"github.com/wonny/laggard/backend/internal/s2_scoring"
	"github.com/wonny/laggard/backend/internal/selection"
	"github.com/wonny/laggard/backend/internal/strategyconfig"
	"github.com/wonny/laggard/backend/pkg/logger"
	"github.com/wonny/laggard/backend/pkg/metrics"
)

// pipeline is the pure S2-S4 core for one validated config.
// It does no I/O; every security in the input leaves with a disposition.
type pipeline struct {
	freshness  *freshness.Policy
	normalizer *s2_scoring.Normalizer
	quant      *s2_scoring.QuantitativeScorer
	qual       *s2_scoring.QualitativeScorer
	screener   *selection.Screener
	ranker     *selection.Ranker
	metrics    *metrics.Registry
	logger     *logger.Logger
}

func newPipeline(cfg *strategyconfig.Config, loc *time.Location, reg *metrics.Registry, log *logger.Logger) *pipeline {
	return &pipeline{
		freshness:  freshness.NewPolicy(cfg.Freshness, loc, cfg.Qualitative.EvidenceCategory),
		normalizer: s2_scoring.NewNormalizer(cfg.Quantitative),
		quant:      s2_scoring.NewQuantitativeScorer(cfg.Quantitative),
		qual:       s2_scoring.NewQualitativeScorer(),
		screener:   selection.NewScreener(cfg.ExclusionRules, log),
		ranker:     selection.NewRanker(cfg.Ranking, log),
		metrics:    reg,
		logger:     log,
	}
}

// execute scores, screens and ranks records (sorted by code) into the trail
func (p *pipeline) execute(asOf time.Time, records []contracts.SecurityRecord, qualitative map[string][]contracts.QualitativeAxisScore, trail *audit.Trail) []contracts.CompositeRecord {
	composites := make([]contracts.CompositeRecord, len(records))

	// S0 신선도 1차 판정 (수집 직후)
	start := time.Now()
	for i := range records {
		rec := &records[i]
		report := p.freshness.Evaluate(rec, asOf)
		trail.Append(rec.Code, contracts.StageIngestion, contracts.ScoreFreshnessIngest,
			freshnessRationale(report), rec.Disclosures...)

		composites[i] = contracts.CompositeRecord{
			Code:      rec.Code,
			Name:      rec.Name,
			Freshness: report,
		}
	}
	p.metrics.ObserveStage(string(contracts.StageIngestion), time.Since(start))

	// S2 정규화는 전 종목이 모인 뒤 한 번 (동기화 지점)
	start = time.Now()
	normalized := p.normalizer.Normalize(records)
	for i := range records {
		code := records[i].Code
		nms := normalized[code]
		trail.Append(code, contracts.StageScoring, contracts.ScoreNormalization, normalizationRationale(nms))

		score := p.quant.Score(code, nms)
		composites[i].Quantitative = score
		trail.Append(code, contracts.StageScoring, contracts.ScoreQuantitative, quantitativeRationale(score))

		qs, err := p.qual.Score(code, qualitative[code])
		if err != nil {
			kind := s2_scoring.ErrorKind(err)
			composites[i].QualitativeError = kind
			p.metrics.RecordQualitativeError(kind)
			p.logger.WithFields(map[string]interface{}{
				"code": code,
				"kind": kind,
			}).WithError(err).Debug("Qualitative score unavailable")
			trail.Append(code, contracts.StageScoring, contracts.ScoreQualitative,
				fmt.Sprintf("unavailable (%s): %s", kind, err.Error()), evidenceOf(qualitative[code])...)
			continue
		}
		composites[i].Qualitative = qs
		trail.Append(code, contracts.StageScoring, contracts.ScoreQualitative,
			qualitativeRationale(qs), evidenceOf(qs.Axes)...)
	}
	p.metrics.ObserveStage(string(contracts.StageScoring), time.Since(start))

	// S4 신선도 2차 판정 (정성 근거 반영) → S3 제외 규칙이 공시 판정을 사용
	start = time.Now()
	for i := range records {
		rec := &records[i]
		var evidence []contracts.Evidence
		if qs := composites[i].Qualitative; qs != nil {
			evidence = evidenceOf(qs.Axes)
		} else {
			evidence = evidenceOf(qualitative[rec.Code])
		}
		report := p.freshness.EvaluateWithEvidence(rec, asOf, evidence)
		composites[i].Freshness = report
		trail.Append(rec.Code, contracts.StageRanking, contracts.ScoreFreshnessPreRank, freshnessRationale(report))

		for _, v := range report.NonFresh() {
			p.metrics.RecordNonFresh(string(v.Category), string(v.State))
		}

		verdict, outcomes := p.screener.Evaluate(rec, report)
		composites[i].Exclusion = verdict
		for _, o := range outcomes {
			trail.Appendf(rec.Code, contracts.StageExclusion, contracts.ScoreExclusionRule,
				"rule %d %s: %s (%s)", o.Index, o.RuleID, o.Result, o.Detail)
			if o.Result == contracts.RuleGap {
				p.metrics.RecordRuleGap(o.RuleID)
			}
		}
		if verdict.Excluded {
			p.metrics.RecordExclusion(verdict.Reason())
		}
	}
	p.metrics.ObserveStage(string(contracts.StageExclusion), time.Since(start))

	// S4 순위 및 최종 분류
	start = time.Now()
	ranked := p.ranker.Rank(composites)
	for _, rec := range ranked {
		rationale := string(rec.Disposition)
		if rec.IsRanked() {
			rationale = fmt.Sprintf("%s rank=%d", rationale, rec.Rank)
		}
		if len(rec.Reasons) > 0 {
			rationale += ": " + strings.Join(rec.Reasons, "; ")
		}
		trail.Append(rec.Code, contracts.StageRanking, contracts.ScoreDisposition, rationale)
		p.metrics.RecordDisposition(string(rec.Disposition))
	}
	p.metrics.ObserveStage(string(contracts.StageRanking), time.Since(start))

	return ranked
}

func evidenceOf(axes []contracts.QualitativeAxisScore) []contracts.Evidence {
	out := make([]contracts.Evidence, 0, len(axes))
	for _, a := range axes {
		out = append(out, a.Evidence)
	}
	return out
}

func freshnessRationale(r contracts.FreshnessReport) string {
	parts := make([]string, 0, len(r.Verdicts))
	for _, v := range r.Verdicts {
		if v.AgeDays == nil {
			parts = append(parts, fmt.Sprintf("%s=%s", v.Category, v.State))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s(%d/%dd)", v.Category, v.State, *v.AgeDays, v.ThresholdDays))
	}
	return strings.Join(parts, " ")
}

func normalizationRationale(nms []contracts.NormalizedMetric) string {
	parts := make([]string, 0, len(nms))
	for _, m := range nms {
		s := fmt.Sprintf("%s raw=%s norm=%s", m.Name, m.Raw, m.Value)
		if m.Clamped {
			s += " clamped"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "; ")
}

func quantitativeRationale(s contracts.QuantitativeScore) string {
	tracks := make([]string, 0, len(s.Tracks))
	for track, v := range s.Tracks {
		tracks = append(tracks, fmt.Sprintf("%s=%s", track, v))
	}
	sort.Strings(tracks)

	return fmt.Sprintf("value=%s missing=%d invalid=%d low_confidence=%t %s",
		s.Value, s.MissingCount, s.InvalidCount, s.LowConfidence, strings.Join(tracks, " "))
}

func qualitativeRationale(q *contracts.QualitativeScore) string {
	parts := make([]string, 0, len(q.Axes))
	for _, a := range q.Axes {
		parts = append(parts, fmt.Sprintf("%s=%d", contracts.AxisLabel(a.Axis), a.Score))
	}
	return fmt.Sprintf("value=%d %s", q.Value, strings.Join(parts, " "))
}
