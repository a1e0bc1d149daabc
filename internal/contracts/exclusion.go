package contracts

// RuleResult is the outcome of evaluating one exclusion rule
type RuleResult string

const (
	RuleMatched    RuleResult = "matched"
	RuleNotMatched RuleResult = "not_matched"
	// RuleGap 필요한 입력이 없어 평가 불가 → 미해당 처리 (fail-open)
	RuleGap RuleResult = "gap"
)

// UniverseRuleID marks verdicts made by the S1 universe filter instead of an S3 rule
const UniverseRuleID = "universe"

// RuleOutcome records one evaluated rule for the audit trail
type RuleOutcome struct {
	RuleID string     `json:"rule_id"`
	Index  int        `json:"index"`
	Result RuleResult `json:"result"`
	Detail string     `json:"detail"`
}

// ExclusionVerdict is the short-circuit result of the ordered rule list
// ⭐ SSOT: S3 제외 판정
type ExclusionVerdict struct {
	Code        string   `json:"code"`
	Excluded    bool     `json:"excluded"`
	MatchedRule *string  `json:"matched_rule"` // 첫 번째 해당 규칙 (없으면 null)
	RuleIndex   int      `json:"rule_index"`   // 0-based, 없으면 -1
	Evaluated   int      `json:"evaluated"`
	Gaps        []string `json:"gaps,omitempty"`
}

// Reason returns the matched rule id or "" when not excluded
func (v ExclusionVerdict) Reason() string {
	if v.MatchedRule == nil {
		return ""
	}
	return *v.MatchedRule
}

// OutsideUniverse reports whether S1 rejected the security
func (v ExclusionVerdict) OutsideUniverse() bool {
	return v.Excluded && v.Reason() == UniverseRuleID
}
