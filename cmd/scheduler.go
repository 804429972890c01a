package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yqhp/benchgrid/api/rest"
	"yqhp/benchgrid/internal/emitter"
	"yqhp/benchgrid/internal/metrics"
	"yqhp/benchgrid/internal/scheduler"
	"yqhp/benchgrid/pkg/logging"
	"yqhp/benchgrid/pkg/types"
)

// stopTimeout bounds the graceful-shutdown drain of every service.
const stopTimeout = 10 * time.Second

var (
	schedulerListenAddr string
	schedulerAPIAddr    string
	schedulerLoggerAddr string
	schedulerPopOrder   string
	schedulerTaskCounts string
	schedulerSeed       int64
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Start the task scheduler",
	Long: `Start the scheduler: it seeds the benchmark task pool, accepts node
connections and serves one request/response exchange per connection
(REGISTER, TASK REQUEST, TASK FINISH). Every assignment is emitted to the
event logger on a best-effort basis.

Once a task is assigned it runs to completion or is abandoned: a node that
disconnects before its finish report leaves the task in flight forever.`,
	Example: `  # defaults: listen :5000, API :8080, 3 array + 2 fileIO + 3 matmul + 5 primes
  benchgrid scheduler

  # custom pool, FIFO hand-out order, reproducible shuffle
  benchgrid scheduler --tasks matmul=2,primes=1 --pop-order fifo --seed 42

  # point assignment events at a remote event logger
  benchgrid scheduler --logger 10.0.0.7:5001`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)

	schedulerCmd.Flags().StringVar(&schedulerListenAddr, "listen", ":5000", "TCP address for node connections")
	schedulerCmd.Flags().StringVar(&schedulerAPIAddr, "api", ":8080", "HTTP address for the read-only status API")
	schedulerCmd.Flags().StringVar(&schedulerLoggerAddr, "logger", "", "event logger address for assignment events")
	schedulerCmd.Flags().StringVar(&schedulerPopOrder, "pop-order", "lifo", "queue hand-out order (lifo or fifo)")
	schedulerCmd.Flags().StringVar(&schedulerTaskCounts, "tasks", "", "task pool as type=count pairs, comma separated")
	schedulerCmd.Flags().Int64Var(&schedulerSeed, "seed", 0, "shuffle seed for the task pool (0 uses the clock)")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	overrides := make(map[string]string)
	if cmd.Flags().Changed("listen") {
		overrides["scheduler.listen_addr"] = schedulerListenAddr
	}
	if cmd.Flags().Changed("api") {
		overrides["scheduler.api_addr"] = schedulerAPIAddr
	}
	if cmd.Flags().Changed("logger") {
		overrides["scheduler.logger_addr"] = schedulerLoggerAddr
	}
	if cmd.Flags().Changed("pop-order") {
		overrides["scheduler.pop_order"] = schedulerPopOrder
	}
	if cmd.Flags().Changed("tasks") {
		overrides["scheduler.task_counts"] = schedulerTaskCounts
	}
	if cmd.Flags().Changed("seed") {
		overrides["scheduler.shuffle_seed"] = fmt.Sprintf("%d", schedulerSeed)
	}

	cfg, err := loadConfig(overrides)
	if err != nil {
		return err
	}
	setupLogging(cfg)
	defer logging.Sync()

	specs, err := scheduler.BuildTaskSet(cfg.Scheduler.SeedCounts(), cfg.Scheduler.ShuffleSeed)
	if err != nil {
		return fmt.Errorf("seed task pool: %w", err)
	}

	board := scheduler.NewBoard(types.PopOrder(cfg.Scheduler.PopOrder))
	board.Seed(specs)

	mets := metrics.NewScheduler()
	mets.QueueDepth.Set(float64(len(specs)))

	srv := scheduler.NewServer(&cfg.Scheduler, board, emitter.New(cfg.Scheduler.LoggerAddr), mets)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	var api *rest.Server
	if cfg.Scheduler.APIAddr != "" {
		apiCfg := rest.DefaultConfig()
		apiCfg.Address = cfg.Scheduler.APIAddr
		api = rest.NewSchedulerAPI(apiCfg, srv, mets)
		go func() {
			if err := api.Start(); err != nil {
				logging.Error("scheduler API stopped", zap.Error(err))
			}
		}()
	}

	printBanner()
	if !quiet {
		fmt.Printf("  Scheduler listening on %s\n", srv.Addr())
		if cfg.Scheduler.APIAddr != "" {
			fmt.Printf("  Status API on %s\n", cfg.Scheduler.APIAddr)
		}
		fmt.Printf("  Task pool: %d tasks, %s hand-out\n", len(specs), cfg.Scheduler.PopOrder)
		fmt.Println("\nPress Ctrl+C to stop.")
	}

	waitForSignal()

	if api != nil {
		if err := api.ShutdownWithTimeout(stopTimeout); err != nil {
			logging.Warn("scheduler API shutdown", zap.Error(err))
		}
	}
	if err := srv.Stop(stopTimeout); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}

	status := board.Status()
	if !quiet {
		fmt.Printf("\nScheduler stopped: %d/%d tasks finished, %d still in flight.\n",
			status.Finished, status.Seeded, len(status.InFlight))
	}
	return nil
}

// waitForSignal blocks until SIGINT or SIGTERM arrives.
func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	fmt.Println()
}
