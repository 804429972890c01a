package eventlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/benchgrid/pkg/types"
)

func TestStatsEmptyStore(t *testing.T) {
	s := NewStore()
	stats := s.Stats()

	assert.Equal(t, 0, stats.TotalEvents)
	assert.Equal(t, 0, stats.TotalTasks)
	assert.Equal(t, 0, stats.OrphanedFinishes)
	assert.Empty(t, stats.ByType)
	assert.Empty(t, stats.ByNode)
	assert.Equal(t, 0, stats.Durations.Count)
}

func TestStatsAggregation(t *testing.T) {
	s := NewStore()

	// w1 completes matmul in 2s and primes in 4s; w2's array stays open.
	s.Ingest(requested("w1", 0.5))
	s.Ingest(assigned("w1", "matmul", 1.0))
	s.Ingest(finished("w1", "matmul", 3.0))
	s.Ingest(assigned("w1", "primes", 4.0))
	s.Ingest(finished("w1", "primes", 8.0))
	s.Ingest(assigned("w2", "array", 5.0))
	s.Ingest(finished("w2", "primes", 9.0)) // orphan: no open primes on w2

	stats := s.Stats()

	assert.Equal(t, 7, stats.TotalEvents)
	assert.Equal(t, 3, stats.TotalTasks)
	assert.Equal(t, 1, stats.OrphanedFinishes)
	assert.Equal(t, 1, stats.EventCounts[types.EventTaskRequested])
	assert.Equal(t, 3, stats.EventCounts[types.EventTaskAssigned])
	assert.Equal(t, 3, stats.EventCounts[types.EventTaskFinished])

	matmul := stats.ByType["matmul"]
	assert.Equal(t, 1, matmul.Total)
	assert.Equal(t, 1, matmul.Completed)
	assert.Equal(t, 0, matmul.Pending)
	assert.InDelta(t, 2.0, matmul.AvgDuration, 1e-9)

	array := stats.ByType["array"]
	assert.Equal(t, 1, array.Total)
	assert.Equal(t, 0, array.Completed)
	assert.Equal(t, 1, array.Pending)
	assert.Zero(t, array.AvgDuration)

	w1 := stats.ByNode["w1"]
	assert.Equal(t, 2, w1.Total)
	assert.Equal(t, 2, w1.Completed)
	assert.InDelta(t, 3.0, w1.AvgDuration, 1e-9, "mean of 2s and 4s")

	w2 := stats.ByNode["w2"]
	assert.Equal(t, 1, w2.Total)
	assert.Equal(t, 1, w2.Pending)
}

func TestStatsDurations(t *testing.T) {
	s := NewStore()
	for i, span := range []float64{1.0, 2.0, 3.0, 4.0} {
		at := float64(i * 100)
		s.Ingest(assigned("w1", "matmul", at))
		s.Ingest(finished("w1", "matmul", at+span))
	}

	d := s.Stats().Durations
	assert.Equal(t, 4, d.Count)
	assert.InDelta(t, 2.5, d.Mean, 1e-9)
	assert.InDelta(t, 1.0, d.Min, 1e-9)
	assert.InDelta(t, 4.0, d.Max, 1e-9)

	// HDR percentiles are quantized to ~0.1%; generous deltas absorb that.
	assert.InDelta(t, 2.0, d.P50, 0.01)
	assert.InDelta(t, 4.0, d.P90, 0.01)
	assert.InDelta(t, 4.0, d.P99, 0.01)
}

func TestStatsDurationsClampedToHistogramRange(t *testing.T) {
	s := NewStore()
	s.Ingest(assigned("w1", "matmul", 0))
	s.Ingest(finished("w1", "matmul", 0)) // zero-length run, below the 1µs floor

	d := s.Stats().Durations
	require.Equal(t, 1, d.Count)
	assert.Zero(t, d.Mean, "mean stays exact")
	assert.GreaterOrEqual(t, d.P50, 0.0)
}

func TestStatsOnlyCompletedInstancesContributeDurations(t *testing.T) {
	s := NewStore()
	s.Ingest(assigned("w1", "matmul", 1.0))
	s.Ingest(finished("w1", "matmul", 2.0))
	s.Ingest(assigned("w1", "matmul", 3.0)) // still open

	d := s.Stats().Durations
	assert.Equal(t, 1, d.Count)
	assert.InDelta(t, 1.0, d.Mean, 1e-9)
}
