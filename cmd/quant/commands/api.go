package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/laggard/backend/internal/api"
	"github.com/wonny/laggard/backend/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `저장된 스크리닝 결과를 조회하는 REST API 서버를 시작합니다.

Endpoints:
  GET  /health                           - Health check
  GET  /metrics                          - Prometheus metrics
  GET  /api/screening/latest             - 최신 실행 결과
  GET  /api/screening/{date}             - 날짜별 결과 (?disposition=recommend)
  GET  /api/screening/{date}/audit       - 감사 로그 (?code=7203)
  GET  /api/screening/{date}/report      - Markdown 리포트

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	loc, err := a.location()
	if err != nil {
		return err
	}

	a.log.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
		"env":  a.cfg.Env,
	}).Info("Initializing API server")

	screeningHandler := handlers.NewScreeningHandler(a.runStore(), loc, a.log)

	opts := api.RouterOptions{
		RateLimitRPS:   a.cfg.RateLimitRPS,
		RateLimitBurst: a.cfg.RateLimitBurst,
	}
	if a.cfg.MetricsEnabled {
		opts.Metrics = a.metrics
	}
	router := api.NewRouter(screeningHandler, opts, a.log)
	server := api.New(a.cfg, a.log, router)

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx, 30*time.Second); err != nil {
		return fmt.Errorf("api server: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
