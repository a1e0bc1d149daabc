package selection

import (
	"github.com/wonny/laggard/backend/internal/contracts"
	"github.com/wonny/laggard/backend/internal/strategyconfig"
	"github.com/wonny/laggard/backend/pkg/logger"
)

// Screener implements S3: ordered exclusion rules
// ⭐ SSOT: S3 제외 규칙 평가는 여기서만
type Screener struct {
	rules    []strategyconfig.ExclusionRule
	compiled []ruleFunc
	logger   *logger.Logger
}

// NewScreener creates a screener; rules must already be validated
func NewScreener(rules []strategyconfig.ExclusionRule, log *logger.Logger) *Screener {
	compiled := make([]ruleFunc, len(rules))
	for i, rule := range rules {
		compiled[i] = compileRule(rule)
	}
	return &Screener{
		rules:    rules,
		compiled: compiled,
		logger:   log.WithField("module", "screener"),
	}
}

// Evaluate runs the rules in order and stops at the first match.
// Gaps fail open: they are recorded and evaluation continues.
// The outcomes list every evaluated rule for the audit trail.
func (s *Screener) Evaluate(rec *contracts.SecurityRecord, freshness contracts.FreshnessReport) (contracts.ExclusionVerdict, []contracts.RuleOutcome) {
	verdict := contracts.ExclusionVerdict{
		Code:      rec.Code,
		RuleIndex: -1,
	}
	outcomes := make([]contracts.RuleOutcome, 0, len(s.rules))
	in := ruleInput{record: rec, freshness: freshness}

	for i, rule := range s.rules {
		result, detail := s.compiled[i](in)
		verdict.Evaluated++
		outcomes = append(outcomes, contracts.RuleOutcome{
			RuleID: rule.ID,
			Index:  i,
			Result: result,
			Detail: detail,
		})

		switch result {
		case contracts.RuleGap:
			verdict.Gaps = append(verdict.Gaps, rule.ID)
			s.logger.WithFields(map[string]interface{}{
				"code":   rec.Code,
				"rule":   rule.ID,
				"detail": detail,
			}).Debug("Exclusion rule gap")
		case contracts.RuleMatched:
			id := rule.ID
			verdict.Excluded = true
			verdict.MatchedRule = &id
			verdict.RuleIndex = i
			return verdict, outcomes
		}
	}

	return verdict, outcomes
}

// ScreenResult is the batch outcome keyed by code
type ScreenResult struct {
	Verdicts map[string]contracts.ExclusionVerdict
	Outcomes map[string][]contracts.RuleOutcome
}

// Screen evaluates every record and logs a per-rule summary
func (s *Screener) Screen(records []contracts.SecurityRecord, freshness map[string]contracts.FreshnessReport) ScreenResult {
	result := ScreenResult{
		Verdicts: make(map[string]contracts.ExclusionVerdict, len(records)),
		Outcomes: make(map[string][]contracts.RuleOutcome, len(records)),
	}
	filtered := make(map[string]int) // rule id -> count
	gaps := make(map[string]int)

	for i := range records {
		rec := &records[i]
		verdict, outcomes := s.Evaluate(rec, freshness[rec.Code])
		result.Verdicts[rec.Code] = verdict
		result.Outcomes[rec.Code] = outcomes

		if verdict.Excluded {
			filtered[verdict.Reason()]++
		}
		for _, g := range verdict.Gaps {
			gaps[g]++
		}
	}

	excluded := 0
	for _, n := range filtered {
		excluded += n
	}

	s.logger.WithFields(map[string]interface{}{
		"total_input":  len(records),
		"excluded":     excluded,
		"filters":      filtered,
		"rule_gaps":    gaps,
		"rules_loaded": len(s.rules),
	}).Info("Screening completed")

	return result
}
