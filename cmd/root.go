// Package cmd implements the benchgrid CLI: one binary with scheduler,
// worker, logger and version subcommands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"yqhp/benchgrid/internal/config"
	"yqhp/benchgrid/pkg/logging"
)

const (
	// Version is the current release.
	Version = "0.1.0"
	// Banner is printed at service startup and by the version command.
	Banner = `
   _                     _               _     _
  | |__  ___ _ __   ___| |__   __ _ _ _(_) __| |
  | '_ \/ _ \ '_ \ / __| '_ \ / _' | '__| |/ _' |
  | |_) |  __/ | | | (__| | | | (_| | |  | | (_| |
  |_.__/\___|_| |_|\___|_| |_|\__, |_|  |_|\__,_|  %s
                              |___/
`
)

var (
	cfgFile string
	debug   bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "benchgrid",
	Short: "Distributed benchmark-task dispatch",
	Long: `benchgrid dispatches a fixed pool of compute-bound benchmark tasks
(matrix multiply, prime sieve, array sort, random file I/O) across worker
nodes and records the lifecycle of every task instance for later analysis.

It ships three services: a scheduler that hands out tasks one request at a
time, a worker that executes them, and an event logger that reconstructs
per-instance timelines from best-effort lifecycle events.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress the startup banner")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate(fmt.Sprintf(Banner, Version) + "\n")
}

// GetRootCmd returns the root command for tests.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// loadConfig loads the layered configuration: defaults, then the --config
// file, then BG_ environment variables, then the changed flags in overrides
// (dot-notation config paths). The result is validated before use.
func loadConfig(overrides map[string]string) (*config.Config, error) {
	loader := config.NewLoader().WithCmdArgs(overrides)
	if cfgFile != "" {
		loader = loader.WithConfigPath(cfgFile)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging initializes the process logger from the config, with the
// --debug flag forcing debug level.
func setupLogging(cfg *config.Config) {
	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	logging.Init(&logging.Config{
		Level:      level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	})
}

// printBanner shows the startup banner unless --quiet is set.
func printBanner() {
	if !quiet {
		fmt.Printf(Banner, Version)
		fmt.Println()
	}
}
