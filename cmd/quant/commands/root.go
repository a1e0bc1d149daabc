package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile   string
	strategyPath string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "TSE Prime laggard screener",
	Long: `Laggard Screener CLI

TSE Prime 종목 중 펀더멘털 대비 주가가 뒤처진 종목을 찾는 스크리너.
S0 수집 → S1 유니버스 → S2 채점 → S3 제외 → S4 순위 파이프라인.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant run
  go run ./cmd/quant run --date 2026-10-16 --top-n 30 --top-k 5
  go run ./cmd/quant config validate
  go run ./cmd/quant api
  go run ./cmd/quant scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file (default: .env)")
	rootCmd.PersistentFlags().StringVar(&strategyPath, "strategy", "", "strategy YAML (default: STRATEGY_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
