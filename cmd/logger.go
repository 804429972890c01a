package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yqhp/benchgrid/api/rest"
	"yqhp/benchgrid/internal/eventlog"
	"yqhp/benchgrid/internal/metrics"
	"yqhp/benchgrid/pkg/logging"
)

var (
	loggerListenAddr string
	loggerAPIAddr    string
	loggerExportDir  string
)

var loggerCmd = &cobra.Command{
	Use:   "logger",
	Short: "Start the event logger",
	Long: `Start the event logger: it ingests one lifecycle event per connection
from schedulers and workers and reconstructs per-instance task timelines
(assignment to completion, with duration) without ever being given an
instance identifier.

On shutdown it prints an aggregate summary and exports the full event log
and instance table to a timestamped JSON file.`,
	Example: `  # defaults: ingest on :5001, API on :8081, export under ./logs
  benchgrid logger

  # custom export location
  benchgrid logger --export-dir /var/lib/benchgrid/runs`,
	RunE: runLogger,
}

func init() {
	rootCmd.AddCommand(loggerCmd)

	loggerCmd.Flags().StringVar(&loggerListenAddr, "listen", ":5001", "TCP address for event ingestion")
	loggerCmd.Flags().StringVar(&loggerAPIAddr, "api", ":8081", "HTTP address for the read-only stats API")
	loggerCmd.Flags().StringVar(&loggerExportDir, "export-dir", "logs", "directory for snapshot export files")
}

func runLogger(cmd *cobra.Command, args []string) error {
	overrides := make(map[string]string)
	if cmd.Flags().Changed("listen") {
		overrides["logger.listen_addr"] = loggerListenAddr
	}
	if cmd.Flags().Changed("api") {
		overrides["logger.api_addr"] = loggerAPIAddr
	}
	if cmd.Flags().Changed("export-dir") {
		overrides["logger.export_dir"] = loggerExportDir
	}

	cfg, err := loadConfig(overrides)
	if err != nil {
		return err
	}
	setupLogging(cfg)
	defer logging.Sync()

	store := eventlog.NewStore()
	mets := metrics.NewLogger()

	svc := eventlog.NewService(&cfg.Logger, store, mets)
	if err := svc.Start(); err != nil {
		return fmt.Errorf("start event logger: %w", err)
	}

	var api *rest.Server
	if cfg.Logger.APIAddr != "" {
		apiCfg := rest.DefaultConfig()
		apiCfg.Address = cfg.Logger.APIAddr
		api = rest.NewLoggerAPI(apiCfg, svc, cfg.Logger.ExportDir, mets)
		go func() {
			if err := api.Start(); err != nil {
				logging.Error("logger API stopped", zap.Error(err))
			}
		}()
	}

	printBanner()
	if !quiet {
		fmt.Printf("  Event logger listening on %s\n", svc.Addr())
		if cfg.Logger.APIAddr != "" {
			fmt.Printf("  Stats API on %s\n", cfg.Logger.APIAddr)
		}
		fmt.Println("\nPress Ctrl+C to stop.")
	}

	waitForSignal()

	if api != nil {
		if err := api.ShutdownWithTimeout(stopTimeout); err != nil {
			logging.Warn("logger API shutdown", zap.Error(err))
		}
	}
	if err := svc.Stop(stopTimeout); err != nil {
		return fmt.Errorf("stop event logger: %w", err)
	}

	eventlog.LogSummary(store)

	path, err := eventlog.ExportToDir(store, cfg.Logger.ExportDir)
	if err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}
	if !quiet {
		fmt.Printf("\nSnapshot written to %s\n", path)
	}
	return nil
}
