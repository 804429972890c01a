package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":5000", cfg.Scheduler.ListenAddr)
	assert.Equal(t, ":8080", cfg.Scheduler.APIAddr)
	assert.Equal(t, "lifo", cfg.Scheduler.PopOrder)
	assert.Equal(t, 10*time.Second, cfg.Scheduler.ReadTimeout)
	assert.Equal(t, ":5001", cfg.Logger.ListenAddr)
	assert.Equal(t, "logs", cfg.Logger.ExportDir)
	assert.Equal(t, "127.0.0.1:5000", cfg.Worker.SchedulerAddr)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestSeedCountsFallback(t *testing.T) {
	cfg := DefaultConfig()
	require.Empty(t, cfg.Scheduler.TaskCounts)

	counts := cfg.Scheduler.SeedCounts()
	assert.Equal(t, 3, counts["array"])
	assert.Equal(t, 2, counts["fileIO"])
	assert.Equal(t, 3, counts["matmul"])
	assert.Equal(t, 5, counts["primes"])
}

func TestSeedCountsConfigured(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scheduler.TaskCounts = map[string]int{"matmul": 1}

	counts := cfg.Scheduler.SeedCounts()
	assert.Equal(t, map[string]int{"matmul": 1}, counts)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
scheduler:
  listen_addr: ":6000"
  pop_order: fifo
  task_counts:
    matmul: 2
    primes: 1
logger:
  export_dir: /tmp/bench-logs
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.Scheduler.ListenAddr)
	assert.Equal(t, "fifo", cfg.Scheduler.PopOrder)
	assert.Equal(t, map[string]int{"matmul": 2, "primes": 1}, cfg.Scheduler.TaskCounts)
	assert.Equal(t, "/tmp/bench-logs", cfg.Logger.ExportDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, ":8080", cfg.Scheduler.APIAddr)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.Scheduler.ListenAddr)
}

func TestLoadBadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheduler: ["), 0o644))

	_, err := NewLoader().WithConfigPath(path).Load()
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BG_SCHEDULER_LISTEN_ADDR", ":7000")
	t.Setenv("BG_SCHEDULER_POP_ORDER", "fifo")
	t.Setenv("BG_SCHEDULER_READ_TIMEOUT", "30s")
	t.Setenv("BG_LOGGER_MAX_CONNS", "42")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Scheduler.ListenAddr)
	assert.Equal(t, "fifo", cfg.Scheduler.PopOrder)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.ReadTimeout)
	assert.Equal(t, 42, cfg.Logger.MaxConns)
}

func TestEnvOverrideBadValue(t *testing.T) {
	t.Setenv("BG_SCHEDULER_MAX_CONNS", "many")

	_, err := NewLoader().Load()
	assert.Error(t, err)
}

func TestCmdOverrides(t *testing.T) {
	cfg, err := NewLoader().WithCmdArgs(map[string]string{
		"scheduler.pop_order":   "fifo",
		"worker.scheduler_addr": "10.0.0.9:5000",
		"logging.level":         "warn",
	}).Load()
	require.NoError(t, err)

	assert.Equal(t, "fifo", cfg.Scheduler.PopOrder)
	assert.Equal(t, "10.0.0.9:5000", cfg.Worker.SchedulerAddr)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestCmdOverrideUnknownPath(t *testing.T) {
	_, err := NewLoader().WithCmdArgs(map[string]string{"scheduler.bogus": "1"}).Load()
	assert.Error(t, err)
}

func TestPrecedenceFlagsOverEnvOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheduler:\n  pop_order: fifo\n"), 0o644))

	t.Setenv("BG_SCHEDULER_POP_ORDER", "lifo")

	// env beats file
	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "lifo", cfg.Scheduler.PopOrder)

	// flags beat env
	cfg, err = NewLoader().WithConfigPath(path).WithCmdArgs(map[string]string{"scheduler.pop_order": "fifo"}).Load()
	require.NoError(t, err)
	assert.Equal(t, "fifo", cfg.Scheduler.PopOrder)
}

func TestTaskCountsEnvStyleCmdArg(t *testing.T) {
	cfg, err := NewLoader().WithCmdArgs(map[string]string{
		"scheduler.task_counts": "matmul=2,primes=3",
	}).Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"matmul": 2, "primes": 3}, cfg.Scheduler.TaskCounts)
}

func TestClone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scheduler.TaskCounts = map[string]int{"matmul": 1}

	clone := cfg.Clone()
	clone.Scheduler.TaskCounts["matmul"] = 99
	clone.Scheduler.ListenAddr = ":9"

	assert.Equal(t, 1, cfg.Scheduler.TaskCounts["matmul"])
	assert.Equal(t, ":5000", cfg.Scheduler.ListenAddr)
}
