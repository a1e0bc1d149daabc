package contracts

import "time"

// ScoreType tells what an audit entry records
type ScoreType string

const (
	ScoreFreshnessIngest  ScoreType = "freshness_ingest"
	ScoreUniverseFilter   ScoreType = "universe_filter"
	ScoreNormalization    ScoreType = "normalization"
	ScoreQuantitative     ScoreType = "quantitative"
	ScoreQualitative      ScoreType = "qualitative"
	ScoreExclusionRule    ScoreType = "exclusion_rule"
	ScoreFreshnessPreRank ScoreType = "freshness_prerank"
	ScoreDisposition      ScoreType = "disposition"
)

// AuditEntry is one immutable line of the run's audit trail
// ⭐ SSOT: 감사 로그 (append-only)
type AuditEntry struct {
	Seq       int        `json:"seq"` // 1부터 단조 증가
	AsOf      time.Time  `json:"as_of"`
	Code      string     `json:"code"`
	Stage     Stage      `json:"stage"`
	ScoreType ScoreType  `json:"score_type"`
	Evidence  []Evidence `json:"evidence"`
	Timestamp time.Time  `json:"timestamp"`
	Rationale string     `json:"rationale"`
}
