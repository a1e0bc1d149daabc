package selection

import (
	"fmt"

	"github.com/wonny/laggard/backend/internal/contracts"
	"github.com/wonny/laggard/backend/internal/strategyconfig"
)

// ruleInput is everything a rule may look at
type ruleInput struct {
	record    *contracts.SecurityRecord
	freshness contracts.FreshnessReport
}

// ruleFunc evaluates one rule; detail goes to the audit trail
type ruleFunc func(in ruleInput) (contracts.RuleResult, string)

// compileRule turns a validated config rule into a predicate.
// Every missing input is a gap (not matched), never an error.
func compileRule(rule strategyconfig.ExclusionRule) ruleFunc {
	switch rule.Kind {
	case strategyconfig.RuleGoingConcern:
		return flagRule(contracts.FlagGoingConcern)
	case strategyconfig.RuleEarningsDowngrade:
		return flagRule(contracts.FlagUnexplainedDowngrade)
	case strategyconfig.RuleNegativeEquity:
		return negativeEquityRule
	case strategyconfig.RuleNegativeOperatingCF:
		return negativeCashFlowRule(rule.Periods)
	case strategyconfig.RuleLowLiquidity:
		return thresholdRule(contracts.MetricAvgTurnover20D, *rule.Floor, true)
	case strategyconfig.RuleMetricBelow:
		return thresholdRule(rule.Metric, *rule.Min, true)
	case strategyconfig.RuleMetricAbove:
		return thresholdRule(rule.Metric, *rule.Max, false)
	case strategyconfig.RuleStaleDisclosure:
		return staleDisclosureRule
	default:
		// Validate rejects unknown kinds; keep evaluation total anyway
		return func(ruleInput) (contracts.RuleResult, string) {
			return contracts.RuleGap, fmt.Sprintf("unsupported rule kind %q", rule.Kind)
		}
	}
}

func flagRule(flag string) ruleFunc {
	return func(in ruleInput) (contracts.RuleResult, string) {
		value, known := in.record.Flag(flag)
		if !known {
			return contracts.RuleGap, fmt.Sprintf("flag %s unknown", flag)
		}
		if value {
			return contracts.RuleMatched, fmt.Sprintf("flag %s set", flag)
		}
		return contracts.RuleNotMatched, fmt.Sprintf("flag %s clear", flag)
	}
}

// negativeEquityRule: 플래그 또는 자본 지표 중 하나라도 음수면 해당
func negativeEquityRule(in ruleInput) (contracts.RuleResult, string) {
	flag, flagKnown := in.record.Flag(contracts.FlagNegativeEquity)
	if flagKnown && flag {
		return contracts.RuleMatched, "flag negative_equity set"
	}

	equity, ok := in.record.Metric(contracts.MetricEquity).Value()
	if ok {
		if equity < 0 {
			return contracts.RuleMatched, fmt.Sprintf("equity %.0f < 0", equity)
		}
		return contracts.RuleNotMatched, fmt.Sprintf("equity %.0f >= 0", equity)
	}

	if flagKnown {
		return contracts.RuleNotMatched, "flag negative_equity clear"
	}
	return contracts.RuleGap, "equity and negative_equity flag unknown"
}

func negativeCashFlowRule(periods int) ruleFunc {
	return func(in ruleInput) (contracts.RuleResult, string) {
		flows := in.record.OperatingCashFlows
		if len(flows) > periods {
			flows = flows[:periods]
		}

		present := 0
		for i, cf := range flows {
			v, ok := cf.Value()
			if !ok {
				continue
			}
			if v >= 0 {
				return contracts.RuleNotMatched, fmt.Sprintf("operating cf period %d = %.0f >= 0", i+1, v)
			}
			present++
		}

		if present < periods {
			return contracts.RuleGap, fmt.Sprintf("%d of %d operating cf periods available", present, periods)
		}
		return contracts.RuleMatched, fmt.Sprintf("operating cf negative for %d periods", periods)
	}
}

// thresholdRule: below=true → v < limit, below=false → v > limit
func thresholdRule(metric string, limit float64, below bool) ruleFunc {
	return func(in ruleInput) (contracts.RuleResult, string) {
		raw := in.record.Metric(metric)
		v, ok := raw.Value()
		if !ok {
			return contracts.RuleGap, fmt.Sprintf("%s %s", metric, raw.State())
		}

		if below {
			if v < limit {
				return contracts.RuleMatched, fmt.Sprintf("%s %.2f < %.2f", metric, v, limit)
			}
			return contracts.RuleNotMatched, fmt.Sprintf("%s %.2f >= %.2f", metric, v, limit)
		}
		if v > limit {
			return contracts.RuleMatched, fmt.Sprintf("%s %.2f > %.2f", metric, v, limit)
		}
		return contracts.RuleNotMatched, fmt.Sprintf("%s %.2f <= %.2f", metric, v, limit)
	}
}

func staleDisclosureRule(in ruleInput) (contracts.RuleResult, string) {
	v, ok := in.freshness.Get(contracts.SourceDisclosure)
	if !ok || v.State == contracts.Unknown {
		return contracts.RuleGap, "disclosure freshness unknown"
	}
	if v.State == contracts.Stale {
		return contracts.RuleMatched, fmt.Sprintf("disclosure age %d > %d days", *v.AgeDays, v.ThresholdDays)
	}
	return contracts.RuleNotMatched, "disclosure fresh"
}
