package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/export"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "결과 데이터셋 내보내기",
}

var exportXlsxCmd = &cobra.Command{
	Use:   "xlsx [dataset...]",
	Short: "Excel 파일로 내보내기",
	Long: `데이터셋을 시트 하나씩 Excel 통합 문서로 내보냅니다.
인자가 없으면 결과 데이터셋(가격표, 중량 분포, 물량, 고객 시작월 충돌)을 내보냅니다.

Example:
  go run ./cmd/ship2profile export xlsx
  go run ./cmd/ship2profile export xlsx df_mapping --out mapping.xlsx`,
	RunE: runExportXlsx,
}

var exportOut string

// defaultExports are the result datasets handed to the pricing team
var defaultExports = []string{
	contracts.DatasetPriceListUnique,
	contracts.DatasetWeightDistribution,
	contracts.DatasetVolume12M,
	contracts.DatasetTenureConflicts,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportXlsxCmd)

	exportXlsxCmd.Flags().StringVar(&exportOut, "out", "", "출력 경로 (기본: <data dir>/../<product>_<run>.xlsx)")
}

func runExportXlsx(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	names := args
	if len(names) == 0 {
		names = defaultExports
	}

	out := exportOut
	if out == "" {
		out = filepath.Join(filepath.Dir(a.store.DataDir()),
			fmt.Sprintf("%s_%s.xlsx", a.cfg.Run.Product, a.cfg.Run.Name))
	}

	if err := export.New(a.store, a.log).Export(cmd.Context(), out, names); err != nil {
		return fmt.Errorf("❌ export: %w", err)
	}
	fmt.Printf("✅ Exported %d datasets to %s\n", len(names), out)
	return nil
}
