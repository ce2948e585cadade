package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags, override the matching environment variables
	product string
	refDate string
	runName string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ship2profile",
	Short: "Ship2Profile - 소포 가격 산정 ETL",
	Long: `Ship2Profile Unified CLI

웨어하우스 추출부터 가격표 유효기간, 중량 분포 추정까지
제품(paket, warenpost)별 월간 배치를 실행합니다.

Usage:
  go run ./cmd/ship2profile [command]

Examples:
  go run ./cmd/ship2profile run --product paket --date 2024-07-01
  go run ./cmd/ship2profile stage pricelist
  go run ./cmd/ship2profile rahmenvertrag apply
  go run ./cmd/ship2profile datasets list
  go run ./cmd/ship2profile api
  go run ./cmd/ship2profile test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&product, "product", "", "product line (paket|warenpost), default $PRODUCT")
	rootCmd.PersistentFlags().StringVar(&refDate, "date", "", "reference date YYYY-MM-DD, default $REFERENCE_DATE")
	rootCmd.PersistentFlags().StringVar(&runName, "run-name", "", "run folder and table prefix, default $RUN_NAME")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
