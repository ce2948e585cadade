package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/ship2profile/internal/api"
	"github.com/wonny/ship2profile/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `읽기 전용 REST API 서버를 시작합니다.

Endpoints:
  GET  /health                        - Health check (웨어하우스 포함)
  GET  /metrics                       - Prometheus metrics
  GET  /api/datasets                  - 계산된 데이터셋 목록
  GET  /api/datasets/{name}?limit=    - 데이터셋 앞부분 조회
  GET  /api/runs/{product}/latest     - 최근 실행 요약
  GET  /api/runs/{product}/history    - 실행 이력

Example:
  go run ./cmd/ship2profile api
  go run ./cmd/ship2profile api --port 8090 --no-warehouse`,
	RunE: runAPIServer,
}

var (
	apiPort        string
	apiNoWarehouse bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본 $PORT)")
	apiCmd.Flags().BoolVar(&apiNoWarehouse, "no-warehouse", false, "웨어하우스 health check 생략")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Ship2Profile API Server ===")

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, appOptions{warehouse: !apiNoWarehouse})
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	var health handlers.HealthChecker
	if a.db != nil {
		health = a.db
	}

	router := api.NewRouter(api.Handlers{
		Health:   handlers.NewHealthHandler(health),
		Datasets: handlers.NewDatasetHandler(a.store, a.log),
		Runs:     handlers.NewRunHandler(a.registry, a.log),
	}, a.log)
	server := api.New(api.Options{
		Addr:    ":" + a.cfg.Port,
		Product: a.cfg.Run.Product,
		DataDir: a.store.DataDir(),
	}, a.log, router)

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("❌ api server: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
