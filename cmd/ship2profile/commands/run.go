package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/ship2profile/internal/brain"
	"github.com/wonny/ship2profile/internal/metrics"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "전체 파이프라인 실행",
	Long: `기준월에 대해 전체 파이프라인을 순서대로 실행합니다.

단계:
  extract        - 웨어하우스 추출 + 품질 검증
  mapping        - abrnr → kalknr 매핑
  volume         - kunden_seit 정합 + 12개월 물량 집계
  rahmenvertrag  - 프레임 계약 ekpnr 재매핑 (--rahmenvertrag)
  pricelist      - 가격표 유효기간 결정
  weight         - 중량 분포 추정
  publish        - 분석 저장소 적재 (실패해도 배치는 성공)

Example:
  go run ./cmd/ship2profile run --product paket --date 2024-07-01
  go run ./cmd/ship2profile run --skip-extract --no-publish`,
	RunE: runPipeline,
}

var (
	runRemap       bool
	runSkipExtract bool
	runNoPublish   bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runRemap, "rahmenvertrag", false, "프레임 계약 리드 계정으로 ekpnr 재매핑")
	runCmd.Flags().BoolVar(&runSkipExtract, "skip-extract", false, "이전 추출 데이터셋 재사용")
	runCmd.Flags().BoolVar(&runNoPublish, "no-publish", false, "분석 저장소 적재 생략")
}

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, appOptions{
		warehouse: !runSkipExtract,
		analytic:  !runNoPublish,
		stage:     "calc",
	})
	if err != nil {
		return err
	}
	defer a.Close()

	rc := a.runConfig()
	rc.Rahmenvertrag = runRemap
	rc.SkipExtract = runSkipExtract
	rc.Publish = !runNoPublish

	printRunHeader(rc)

	result, err := a.orchestrator().Run(ctx, rc)

	if a.cfg.MetricsEnabled {
		if pushErr := metrics.Push(a.cfg.MetricsPushURL, "ship2profile", rc.Product); pushErr != nil {
			a.log.WithError(pushErr).Warn("metrics push failed")
		}
	}

	if err != nil {
		fmt.Printf("\n❌ Run %s failed after %v\n", rc.RunID, result.Duration.Round(time.Millisecond))
		fmt.Printf("   Completed: %v\n", result.CompletedStages)
		return err
	}

	printRunResult(result)
	return nil
}

func printRunHeader(rc brain.RunConfig) {
	PrintDoubleSeparator()
	fmt.Printf("  Ship2Profile run %s\n", rc.RunID)
	PrintSeparator()
	fmt.Printf("  Product   : %s\n", rc.Product)
	fmt.Printf("  Reference : %s\n", rc.Date.Format("2006-01-02"))
	fmt.Printf("  Run name  : %s\n", rc.RunName)
	PrintSeparator()
}

func printRunResult(result *brain.RunResult) {
	fmt.Println()
	if result.Extract != nil {
		for name, rows := range result.Extract.Rows {
			fmt.Printf("  %-28s %d rows\n", name, rows)
		}
	}
	if result.Volume != nil {
		fmt.Printf("  volume: %d abrnr, %d tenure conflicts, window %s..%s\n",
			result.Volume.Rows, result.Volume.ConflictAbrnr, result.Volume.WindowFrom, result.Volume.WindowTo)
	}
	if result.PriceList != nil {
		fmt.Printf("  pricelist: %d kalknr, %d excluded, %d unmapped abrnr\n",
			len(result.PriceList.Rows), result.PriceList.ExcludedRows, result.PriceList.UnmappedAbrnr)
	}
	if result.Weight != nil {
		fmt.Printf("  weight: %d accounts, %d buckets\n", result.Weight.Accounts, len(result.Weight.Buckets))
	}
	if len(result.PublishFailures) > 0 {
		PrintWarning(fmt.Sprintf("publish failed for %v", result.PublishFailures))
	}
	fmt.Printf("\n✅ Run %s completed in %.2fs (%d stages)\n",
		result.RunID, result.Duration.Seconds(), len(result.CompletedStages))
}
