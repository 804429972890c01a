package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"yqhp/benchgrid/internal/catalog"
	"yqhp/benchgrid/internal/emitter"
	"yqhp/benchgrid/internal/worker"
	"yqhp/benchgrid/pkg/logging"
)

var (
	workerSchedulerAddr string
	workerLoggerAddr    string
	workerHostname      string
	workerIOFile        string
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start a worker node",
	Long: `Start a worker node: it registers with the scheduler, then requests,
executes and reports benchmark tasks until the scheduler answers REST.

Every exchange opens a fresh connection. Any network error aborts the run
without retrying; a running task is never interrupted. TASK_REQUESTED and
TASK_FINISHED events go to the event logger on a best-effort basis.`,
	Example: `  # request work from a local scheduler
  benchgrid worker

  # remote scheduler and event logger, explicit node identity
  benchgrid worker --scheduler 10.0.0.5:5000 --logger 10.0.0.7:5001 --hostname node-3

  # place the fileIO scratch file on the disk under test
  benchgrid worker --io-file /mnt/bench/scratch.dat`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().StringVar(&workerSchedulerAddr, "scheduler", "127.0.0.1:5000", "scheduler address")
	workerCmd.Flags().StringVar(&workerLoggerAddr, "logger", "", "event logger address for lifecycle events")
	workerCmd.Flags().StringVar(&workerHostname, "hostname", "", "node identity (defaults to the OS hostname)")
	workerCmd.Flags().StringVar(&workerIOFile, "io-file", "", "scratch file for the fileIO task")
}

func runWorker(cmd *cobra.Command, args []string) error {
	overrides := make(map[string]string)
	if cmd.Flags().Changed("scheduler") {
		overrides["worker.scheduler_addr"] = workerSchedulerAddr
	}
	if cmd.Flags().Changed("logger") {
		overrides["worker.logger_addr"] = workerLoggerAddr
	}
	if cmd.Flags().Changed("hostname") {
		overrides["worker.hostname"] = workerHostname
	}
	if cmd.Flags().Changed("io-file") {
		overrides["worker.io_file"] = workerIOFile
	}

	cfg, err := loadConfig(overrides)
	if err != nil {
		return err
	}
	setupLogging(cfg)
	defer logging.Sync()

	w := worker.New(
		&cfg.Worker,
		catalog.Default(cfg.Worker.IOFile),
		emitter.New(cfg.Worker.LoggerAddr),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nStopping after the current task...")
		cancel()
	}()

	printBanner()
	if !quiet {
		fmt.Printf("  Worker %s requesting tasks from %s\n\n", w.Hostname(), cfg.Worker.SchedulerAddr)
	}

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("worker run: %w", err)
	}

	if !quiet {
		fmt.Printf("Worker done: %d tasks completed.\n", w.Completed())
	}
	return nil
}
