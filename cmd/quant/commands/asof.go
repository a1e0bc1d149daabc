package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/laggard/backend/internal/s0_data"
)

// asofCmd resolves the as-of date without running anything
var asofCmd = &cobra.Command{
	Use:   "asof",
	Short: "as-of 날짜 확인",
	Long: `DATA_DIR에서 최신 CSV를 찾아 as-of 날짜를 출력합니다.
파일명의 날짜(YYYYMMDD, YYYY-MM-DD)가 우선, 없으면 수정 시각.

Example:
  go run ./cmd/quant asof
  go run ./cmd/quant asof --data-dir exports/`,
	RunE: runAsOf,
}

var asofDataDir string

func init() {
	rootCmd.AddCommand(asofCmd)
	asofCmd.Flags().StringVar(&asofDataDir, "data-dir", "", "CSV 디렉터리 (기본: DATA_DIR)")
}

func runAsOf(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	loc, err := a.location()
	if err != nil {
		return err
	}

	dir := a.cfg.Screening.DataDir
	if asofDataDir != "" {
		dir = asofDataDir
	}

	asOf, path, err := s0_data.ResolveAsOf(dir, loc)
	if err != nil {
		return err
	}

	fmt.Printf("%s\t%s\n", asOf.Format("2006-01-02"), path)
	return nil
}
