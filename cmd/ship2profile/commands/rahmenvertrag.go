package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/ship2profile/internal/s1_mapping"
)

// rahmenvertragCmd represents the rahmenvertrag command
var rahmenvertragCmd = &cobra.Command{
	Use:   "rahmenvertrag",
	Short: "프레임 계약 ekpnr 재매핑",
	Long: `프레임 계약(Rahmenvertrag) 리드 계정으로 ekpnr을 재매핑하거나 되돌립니다.

Subcommands:
  apply  - <name>_old 백업 후 재매핑
  reset  - <name>_old에서 복원 (<name>_rv 보관)

Example:
  go run ./cmd/ship2profile rahmenvertrag apply --product paket
  go run ./cmd/ship2profile rahmenvertrag reset`,
}

var (
	rahmenvertragApplyCmd = &cobra.Command{
		Use:   "apply",
		Short: "재매핑 적용",
		RunE:  func(cmd *cobra.Command, args []string) error { return runRahmenvertrag(true) },
	}

	rahmenvertragResetCmd = &cobra.Command{
		Use:   "reset",
		Short: "재매핑 되돌리기",
		RunE:  func(cmd *cobra.Command, args []string) error { return runRahmenvertrag(false) },
	}
)

func init() {
	rootCmd.AddCommand(rahmenvertragCmd)
	rahmenvertragCmd.AddCommand(rahmenvertragApplyCmd)
	rahmenvertragCmd.AddCommand(rahmenvertragResetCmd)
}

func runRahmenvertrag(apply bool) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, appOptions{stage: "rahmenvertrag"})
	if err != nil {
		return err
	}
	defer a.Close()

	r := s1_mapping.NewRemapper(a.store, a.log)
	if apply {
		err = r.Apply(ctx, s1_mapping.RemapDatasets)
	} else {
		err = r.Reset(ctx, s1_mapping.RemapDatasets)
	}
	if err != nil {
		return fmt.Errorf("❌ rahmenvertrag: %w", err)
	}

	action := "applied"
	if !apply {
		action = "reset"
	}
	fmt.Printf("✅ Rahmenvertrag remap %s for %d datasets\n", action, len(s1_mapping.RemapDatasets))
	return nil
}
