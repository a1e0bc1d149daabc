package freshness

import (
	"time"

	"github.com/wonny/laggard/backend/internal/contracts"
	"github.com/wonny/laggard/backend/internal/strategyconfig"
)

// Policy classifies source ages against per-category lookback windows.
// Verdicts are advisory: they cap a disposition at Watch but never remove a record.
type Policy struct {
	windows strategyconfig.Freshness
	loc     *time.Location

	// evidenceCategory: 카테고리 없는 정성 근거의 분류 (기본 news)
	evidenceCategory contracts.SourceCategory
}

// NewPolicy creates a Policy; dates are compared as calendar days in loc
func NewPolicy(windows strategyconfig.Freshness, loc *time.Location, evidenceCategory contracts.SourceCategory) *Policy {
	if loc == nil {
		loc = time.UTC
	}
	if evidenceCategory == "" {
		evidenceCategory = contracts.SourceNews
	}
	return &Policy{windows: windows, loc: loc, evidenceCategory: evidenceCategory}
}

// AgeDays returns whole calendar days from ts to asOf in loc.
// Timestamps after asOf count as age 0.
func AgeDays(ts, asOf time.Time, loc *time.Location) int {
	a := ts.In(loc)
	b := asOf.In(loc)
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)

	days := int(db.Sub(da).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Verdict classifies one category; ts nil means no timestamp (unknown)
func (p *Policy) Verdict(cat contracts.SourceCategory, ts *time.Time, asOf time.Time) contracts.FreshnessVerdict {
	v := contracts.FreshnessVerdict{
		Category:      cat,
		ThresholdDays: p.windows.Threshold(cat),
		State:         contracts.Unknown,
	}
	if ts == nil || ts.IsZero() {
		return v
	}

	age := AgeDays(*ts, asOf, p.loc)
	v.AgeDays = &age
	if age > v.ThresholdDays {
		v.State = contracts.Stale
	} else {
		v.State = contracts.Fresh
	}
	return v
}

// Evaluate is the post-ingestion pass over the record's own timestamps
func (p *Policy) Evaluate(rec *contracts.SecurityRecord, asOf time.Time) contracts.FreshnessReport {
	return p.EvaluateWithEvidence(rec, asOf, nil)
}

// EvaluateWithEvidence is the pre-rank pass: qualitative evidence retrieval
// times are folded in per category, latest timestamp wins
func (p *Policy) EvaluateWithEvidence(rec *contracts.SecurityRecord, asOf time.Time, evidence []contracts.Evidence) contracts.FreshnessReport {
	latest := make(map[contracts.SourceCategory]time.Time, 4)
	for _, cat := range contracts.AllSourceCategories() {
		if t, ok := rec.LatestUpdate(cat); ok {
			latest[cat] = t
		}
	}
	for _, ev := range evidence {
		if ev.RetrievedAt.IsZero() {
			continue
		}
		cat := ev.CategoryOrDefault(p.evidenceCategory)
		if cur, ok := latest[cat]; !ok || ev.RetrievedAt.After(cur) {
			latest[cat] = ev.RetrievedAt
		}
	}

	report := contracts.FreshnessReport{
		Verdicts: make([]contracts.FreshnessVerdict, 0, 4),
	}
	for _, cat := range contracts.AllSourceCategories() {
		var ts *time.Time
		if t, ok := latest[cat]; ok {
			ts = &t
		}
		report.Verdicts = append(report.Verdicts, p.Verdict(cat, ts, asOf))
	}
	return report
}
