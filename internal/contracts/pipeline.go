package contracts

import "time"

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 감사 로그, DB row에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S0 → S1 → S2 → S3 → S4 → S5
//   Ingestion  Universe  Scoring  Exclusion  Ranking  Report

// Stage represents a pipeline stage
type Stage string

const (
	// StageIngestion S0: 스냅샷 수집 및 신선도 1차 판정
	// 위치: internal/s0_data/
	StageIngestion Stage = "S0_INGESTION"

	// StageUniverse S1: 시장/유동성/시총 필터
	// 위치: internal/s1_universe/
	StageUniverse Stage = "S1_UNIVERSE"

	// StageScoring S2: 정규화, 정량/정성 점수
	// 위치: internal/s2_scoring/
	StageScoring Stage = "S2_SCORING"

	// StageExclusion S3: 순서가 있는 제외 규칙
	// 위치: internal/selection/screener.go
	StageExclusion Stage = "S3_EXCLUSION"

	// StageRanking S4: 신선도 2차 판정, 순위, Top-N/Top-K, 최종 분류
	// 위치: internal/selection/ranker.go
	StageRanking Stage = "S4_RANKING"

	// StageReport S5: 리포트 출력
	// 위치: internal/report/
	StageReport Stage = "S5_REPORT"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S0", "S1")
func (s Stage) ShortName() string {
	switch s {
	case StageIngestion:
		return "S0"
	case StageUniverse:
		return "S1"
	case StageScoring:
		return "S2"
	case StageExclusion:
		return "S3"
	case StageRanking:
		return "S4"
	case StageReport:
		return "S5"
	default:
		return "UNKNOWN"
	}
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{
		StageIngestion,
		StageUniverse,
		StageScoring,
		StageExclusion,
		StageRanking,
		StageReport,
	}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}

// RunSummary counts outcomes of a run
type RunSummary struct {
	Total                  int `json:"total"`
	Excluded               int `json:"excluded"`
	OutsideUniverse        int `json:"outside_universe"`
	Ranked                 int `json:"ranked"`
	Candidates             int `json:"candidates"`
	DeepReview             int `json:"deep_review"`
	Recommend              int `json:"recommend"`
	Watch                  int `json:"watch"`
	Skip                   int `json:"skip"`
	QuantUnavailable       int `json:"quant_unavailable"`
	QualitativeUnavailable int `json:"qualitative_unavailable"`
	LowConfidence          int `json:"low_confidence"`
}

// RunResult is the deterministic output of one run.
// Run metadata (run id, wall-clock duration) is kept outside so reruns stay identical.
type RunResult struct {
	AsOf       time.Time         `json:"as_of"`
	StrategyID string            `json:"strategy_id"`
	ConfigHash string            `json:"config_hash"`
	Records    []CompositeRecord `json:"records"`
	Audit      []AuditEntry      `json:"audit"`
	Summary    RunSummary        `json:"summary"`
}

// Find returns the record for a code
func (r *RunResult) Find(code string) (*CompositeRecord, bool) {
	for i := range r.Records {
		if r.Records[i].Code == code {
			return &r.Records[i], true
		}
	}
	return nil, false
}

// DeepReviewRecords returns the top-K records in rank order
func (r *RunResult) DeepReviewRecords() []CompositeRecord {
	out := make([]CompositeRecord, 0)
	for _, rec := range r.Records {
		if rec.DeepReview {
			out = append(out, rec)
		}
	}
	return out
}

// AuditFor returns the audit entries of one security in sequence order
func (r *RunResult) AuditFor(code string) []AuditEntry {
	out := make([]AuditEntry, 0)
	for _, e := range r.Audit {
		if e.Code == code {
			out = append(out, e)
		}
	}
	return out
}
