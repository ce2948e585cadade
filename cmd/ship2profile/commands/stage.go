package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/ship2profile/internal/brain"
)

// stageCmd represents the stage command
var stageCmd = &cobra.Command{
	Use:   "stage [name]",
	Short: "단일 단계 실행",
	Long: `저장된 데이터셋으로 한 단계만 실행합니다.

Stages: ` + strings.Join(brain.Stages, ", ") + `

Example:
  go run ./cmd/ship2profile stage extract --date 2024-07-01
  go run ./cmd/ship2profile stage pricelist --product warenpost
  go run ./cmd/ship2profile stage pricelist --rahmenvertrag`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: brain.Stages,
	RunE:      runStage,
}

var stageRemap bool

func init() {
	rootCmd.AddCommand(stageCmd)

	stageCmd.Flags().BoolVar(&stageRemap, "rahmenvertrag", false, "가격표 ekpnr를 프레임 계약 리드 계정으로 (rahmenvertrag apply 이후)")
}

func runStage(cmd *cobra.Command, args []string) error {
	name := args[0]
	if !brain.IsStage(name) {
		return fmt.Errorf("unknown stage %q (want one of %s)", name, strings.Join(brain.Stages, ", "))
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, appOptions{
		warehouse: name == brain.StageExtract,
		analytic:  name == brain.StagePublish,
		stage:     name,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	rc := a.runConfig()
	rc.Rahmenvertrag = stageRemap
	result, err := a.orchestrator().RunStage(ctx, name, rc)
	if err != nil {
		return fmt.Errorf("❌ stage %s: %w", name, err)
	}

	if len(result.PublishFailures) > 0 {
		PrintWarning(fmt.Sprintf("publish failed for %v", result.PublishFailures))
	}
	fmt.Printf("✅ Stage %s completed (%s, %s)\n", name, rc.Product, rc.Date.Format("2006-01"))
	return nil
}
