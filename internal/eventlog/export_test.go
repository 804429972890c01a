package eventlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/benchgrid/pkg/jsonx"
	"yqhp/benchgrid/pkg/types"
)

func TestSnapshotCarriesEventsAndTasks(t *testing.T) {
	s := NewStore()
	s.Ingest(assigned("w1", "matmul", 100.0))
	s.Ingest(finished("w1", "matmul", 102.5))
	s.Ingest(requested("w2", 103.0))

	snap := s.Snapshot()
	assert.Len(t, snap.Events, 3)
	require.Contains(t, snap.Tasks, "matmul_1")
	require.NotNil(t, snap.Tasks["matmul_1"].Duration)
	assert.Equal(t, 2.5, *snap.Tasks["matmul_1"].Duration)
	assert.Greater(t, snap.ExportTime, 0.0)
	assert.NotEmpty(t, snap.ExportDatetime)
}

func TestExportToDirWritesTimestampedFile(t *testing.T) {
	s := NewStore()
	s.Ingest(assigned("w1", "primes", 10.0))

	dir := filepath.Join(t.TempDir(), "logs")
	path, err := ExportToDir(s, dir)
	require.NoError(t, err)
	assert.Regexp(t, `logger_data_\d{8}_\d{6}\.json$`, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	snap, err := jsonx.FromJSONBytes[types.Snapshot](data)
	require.NoError(t, err)
	assert.Len(t, snap.Events, 1)
	require.Contains(t, snap.Tasks, "primes_1")
	assert.Equal(t, "w1", snap.Tasks["primes_1"].Node)
}

func TestWriteSnapshotRoundTrips(t *testing.T) {
	s := NewStore()
	s.Ingest(assigned("w1", "array", 1.0))
	s.Ingest(finished("w1", "array", 4.0))

	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, WriteSnapshot(s, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	snap, err := jsonx.FromJSONBytes[types.Snapshot](data)
	require.NoError(t, err)
	require.Contains(t, snap.Tasks, "array_1")
	require.NotNil(t, snap.Tasks["array_1"].FinishedTime)
	assert.Equal(t, 4.0, *snap.Tasks["array_1"].FinishedTime)
	require.Len(t, snap.Tasks["array_1"].Events, 2)
	assert.Equal(t, types.EventTaskFinished, snap.Tasks["array_1"].Events[1].Kind)
}
