package eventlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/duke-git/lancet/v2/maputil"
	"go.uber.org/zap"

	"yqhp/benchgrid/pkg/jsonx"
	"yqhp/benchgrid/pkg/logging"
	"yqhp/benchgrid/pkg/types"
)

// exportTimestampLayout names export files logger_data_YYYYMMDD_HHMMSS.json.
const exportTimestampLayout = "20060102_150405"

// Snapshot assembles the full export document: the raw event log, the
// instance table and the export timestamp.
func (s *Store) Snapshot() types.Snapshot {
	events, instances, _ := s.copyState()
	now := time.Now()

	return types.Snapshot{
		Events:         events,
		Tasks:          instances,
		ExportTime:     types.UnixSeconds(now),
		ExportDatetime: now.Format(time.RFC3339),
	}
}

// ExportToDir writes a timestamped snapshot file under dir, creating the
// directory if needed, and returns the file's path.
func ExportToDir(s *Store, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir %s: %w", dir, err)
	}

	name := fmt.Sprintf("logger_data_%s.json", time.Now().Format(exportTimestampLayout))
	path := filepath.Join(dir, name)
	if err := WriteSnapshot(s, path); err != nil {
		return "", err
	}
	return path, nil
}

// WriteSnapshot serializes the full snapshot to path as indented JSON.
func WriteSnapshot(s *Store, path string) error {
	data, err := jsonx.MarshalPretty(s.Snapshot())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}

	logging.Info("snapshot exported", zap.String("path", path))
	return nil
}

// LogSummary prints the shutdown summary through the structured logger:
// event counts by kind, duration statistics over completed instances, and
// per-node and per-type completion.
func LogSummary(s *Store) {
	stats := s.Stats()

	logging.Info("logger summary",
		zap.Int("total_events", stats.TotalEvents),
		zap.Int("total_tasks", stats.TotalTasks),
		zap.Int("orphaned_finishes", stats.OrphanedFinishes))

	kinds := maputil.Keys(stats.EventCounts)
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, kind := range kinds {
		logging.Info("event count",
			zap.String("kind", string(kind)),
			zap.Int("count", stats.EventCounts[kind]))
	}

	if stats.Durations.Count > 0 {
		logging.Info("completed task durations",
			zap.Int("completed", stats.Durations.Count),
			zap.Float64("avg_s", stats.Durations.Mean),
			zap.Float64("min_s", stats.Durations.Min),
			zap.Float64("max_s", stats.Durations.Max),
			zap.Float64("p50_s", stats.Durations.P50),
			zap.Float64("p90_s", stats.Durations.P90),
			zap.Float64("p99_s", stats.Durations.P99))
	}

	nodes := maputil.Keys(stats.ByNode)
	sort.Strings(nodes)
	for _, node := range nodes {
		st := stats.ByNode[node]
		logging.Info("tasks per node",
			zap.String("node", node),
			zap.Int("total", st.Total),
			zap.Int("completed", st.Completed),
			zap.Int("pending", st.Pending),
			zap.Float64("avg_duration_s", st.AvgDuration))
	}

	taskNames := maputil.Keys(stats.ByType)
	sort.Strings(taskNames)
	for _, name := range taskNames {
		st := stats.ByType[name]
		logging.Info("tasks per type",
			zap.String("task", name),
			zap.Int("total", st.Total),
			zap.Int("completed", st.Completed),
			zap.Int("pending", st.Pending),
			zap.Float64("avg_duration_s", st.AvgDuration))
	}
}
