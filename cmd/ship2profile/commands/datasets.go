package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// datasetsCmd represents the datasets command
var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "데이터셋 조회",
}

var datasetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "계산된 데이터셋 목록",
	Long: `현재 run/product 데이터 폴더의 parquet 데이터셋을 나열합니다.

Example:
  go run ./cmd/ship2profile datasets list --product warenpost`,
	RunE: listDatasets,
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
	datasetsCmd.AddCommand(datasetsListCmd)
}

func listDatasets(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	infos, err := a.store.List()
	if err != nil {
		return err
	}

	fmt.Printf("Datasets in %s\n", a.store.DataDir())
	PrintSeparator()
	if len(infos) == 0 {
		fmt.Println("  (none)")
		return nil
	}
	for _, info := range infos {
		fmt.Printf("  %-36s %10s  %s\n", info.Name, humanSize(info.Size), info.Modified.Format("2006-01-02 15:04"))
	}
	return nil
}
