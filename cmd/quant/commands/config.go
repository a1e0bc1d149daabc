package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/laggard/backend/internal/strategyconfig"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "전략 설정 관리",
}

var (
	configValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "전략 YAML 검증",
		Long: `전략 YAML을 로드하고 검증합니다.
오류가 있으면 필드 이름과 함께 실패합니다.

Example:
  go run ./cmd/quant config validate
  go run ./cmd/quant config validate --strategy config/strategy/tse_prime_laggard.yaml`,
		RunE: runConfigValidate,
	}
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	strategy, _, err := a.loadStrategy(0, 0)
	if err != nil {
		return err
	}

	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return fmt.Errorf("config hash: %w", err)
	}

	printDryRun(a.cfg.Screening.StrategyPath, strategy.Quantitative.Metrics, strategy.Qualitative.Axes, len(strategy.ExclusionRules))
	PrintKeyValue("Config hash", hash, 14)
	PrintKeyValue("Strategy ID", strategy.Meta.StrategyID, 14)
	PrintKeyValue("Top N / K", fmt.Sprintf("%d / %d", strategy.Ranking.TopN, strategy.Ranking.TopK), 14)

	for _, w := range strategyconfig.Warn(strategy) {
		PrintWarning(fmt.Sprintf("%s: %s", w.Code, w.Message))
	}
	return nil
}

func printDryRun(path string, metrics []strategyconfig.MetricSpec, axes []string, rules int) {
	PrintSuccess("Strategy config is valid: " + path)
	PrintKeyValue("Metrics", fmt.Sprint(len(metrics)), 14)
	PrintKeyValue("Axes", fmt.Sprint(len(axes)), 14)
	PrintKeyValue("Rules", fmt.Sprint(rules), 14)
}
