package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/ship2profile/internal/scheduler"
	"github.com/wonny/ship2profile/internal/scheduler/jobs"
	"github.com/wonny/ship2profile/pkg/config"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `월간 배치 스케줄러를 시작하거나 작업을 즉시 실행합니다.

Subcommands:
  start   - 스케줄러 시작 (제품별 monthly_run_<product>)
  list    - 등록된 작업과 다음 실행 시각
  run     - 특정 작업 즉시 실행 (완료까지 대기)

Example:
  go run ./cmd/ship2profile scheduler start
  go run ./cmd/ship2profile scheduler run monthly_run_paket`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `SCHEDULE(초 포함 cron) 기준으로 모든 제품의 월간 배치를 등록합니다.
기준월은 실행 시점의 당월 1일입니다.

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerRahmenvertrag bool
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerCmd.PersistentFlags().BoolVar(&schedulerRahmenvertrag, "rahmenvertrag", false, "프레임 계약 재매핑 포함")
}

// initScheduler registers one monthly job per product. Each product gets its own store.
func initScheduler(ctx context.Context) (*scheduler.Scheduler, func(), error) {
	base, err := newApp(ctx, appOptions{warehouse: true, analytic: true, stage: "scheduler"})
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(base.log, scheduler.Options{
		MaxRetries: base.cfg.JobMaxRetries,
		RetryDelay: 5 * time.Minute,
	})

	for _, p := range config.Products {
		a := base.forProduct(p)
		job := jobs.NewMonthlyRunJob(a.orchestrator(), jobs.MonthlyRunConfig{
			Product:       p,
			RunName:       a.cfg.Run.Name,
			Schedule:      a.cfg.Schedule,
			Rahmenvertrag: schedulerRahmenvertrag,
			Publish:       true,
			PushURL:       pushURL(a),
		}, a.log)
		if err := sched.AddJob(job); err != nil {
			base.Close()
			return nil, nil, err
		}
	}

	return sched, base.Close, nil
}

func pushURL(a *app) string {
	if !a.cfg.MetricsEnabled {
		return ""
	}
	return a.cfg.MetricsPushURL
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Ship2Profile Scheduler ===")

	ctx, cancel := signalContext()
	defer cancel()

	sched, closeApp, err := initScheduler(ctx)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer closeApp()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	printJobs(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, closeApp, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer closeApp()

	// 다음 실행 시각은 cron이 시작된 뒤에만 계산됨
	sched.Start()
	defer sched.Stop()
	printJobs(sched)
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	fmt.Println("\nRegistered jobs:")
	for _, name := range sched.GetAllJobs() {
		next, err := sched.NextRun(name)
		if err != nil || next.IsZero() {
			fmt.Printf("  - %s\n", name)
			continue
		}
		fmt.Printf("  - %s (next: %s)\n", name, next.Format("2006-01-02 15:04:05"))
	}
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]
	fmt.Printf("Running job: %s\n", jobName)

	ctx, cancel := signalContext()
	defer cancel()

	sched, closeApp, err := initScheduler(ctx)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer closeApp()

	result, err := sched.RunJob(ctx, jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	fmt.Printf("📊 %s\n", jobName)
	fmt.Printf("   Attempts: %d\n", result.Attempts)
	fmt.Printf("   Duration: %v\n", result.Duration.Round(time.Millisecond))
	if !result.Success {
		return fmt.Errorf("❌ job %s failed: %s", jobName, result.Error)
	}
	fmt.Println("✅ Job completed")
	return nil
}
