package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/benchgrid/internal/config"
	"yqhp/benchgrid/pkg/types"
)

func countByType(specs []types.TaskSpec) map[types.TaskType]int {
	counts := make(map[types.TaskType]int)
	for _, s := range specs {
		counts[s.Type]++
	}
	return counts
}

func TestBuildTaskSetExpandsCounts(t *testing.T) {
	specs, err := BuildTaskSet(map[string]int{"matmul": 3, "primes": 2}, 1)
	require.NoError(t, err)
	require.Len(t, specs, 5)

	counts := countByType(specs)
	assert.Equal(t, 3, counts[types.TaskMatMul])
	assert.Equal(t, 2, counts[types.TaskPrimes])

	for _, s := range specs {
		assert.Equal(t, types.DefaultParameters(s.Type), s.Parameters)
	}
}

func TestBuildTaskSetDefaultPool(t *testing.T) {
	specs, err := BuildTaskSet(config.DefaultTaskCounts(), 42)
	require.NoError(t, err)
	require.Len(t, specs, 13)

	counts := countByType(specs)
	assert.Equal(t, 3, counts[types.TaskArray])
	assert.Equal(t, 2, counts[types.TaskFileIO])
	assert.Equal(t, 3, counts[types.TaskMatMul])
	assert.Equal(t, 5, counts[types.TaskPrimes])
}

func TestBuildTaskSetShuffleIsSeeded(t *testing.T) {
	counts := map[string]int{"matmul": 4, "primes": 4, "array": 4}

	first, err := BuildTaskSet(counts, 7)
	require.NoError(t, err)
	second, err := BuildTaskSet(counts, 7)
	require.NoError(t, err)

	assert.Equal(t, first, second, "the same seed yields the same order")
}

func TestBuildTaskSetRejectsUnknownType(t *testing.T) {
	_, err := BuildTaskSet(map[string]int{"matmul": 1, "quantum": 2}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantum")
}

func TestBuildTaskSetRejectsNegativeCount(t *testing.T) {
	_, err := BuildTaskSet(map[string]int{"primes": -1}, 1)
	require.Error(t, err)
}

func TestBuildTaskSetEmptyCounts(t *testing.T) {
	specs, err := BuildTaskSet(map[string]int{}, 1)
	require.NoError(t, err)
	assert.Empty(t, specs)
}
