package scheduler

import (
	"fmt"
	"math/rand"
	"time"

	"yqhp/benchgrid/pkg/types"
)

// BuildTaskSet expands per-type counts into a shuffled slice of TaskSpecs
// carrying the stock parameters for each type. shuffleSeed makes the order
// reproducible; zero seeds from the clock. Counts for unknown task types are
// an error.
func BuildTaskSet(counts map[string]int, shuffleSeed int64) ([]types.TaskSpec, error) {
	var specs []types.TaskSpec
	for _, taskType := range types.AllTaskTypes() {
		for i := 0; i < counts[string(taskType)]; i++ {
			specs = append(specs, types.NewTaskSpec(taskType))
		}
	}

	for name, count := range counts {
		if !types.TaskType(name).Valid() {
			return nil, fmt.Errorf("unknown task type %q in task counts", name)
		}
		if count < 0 {
			return nil, fmt.Errorf("negative count %d for task type %q", count, name)
		}
	}

	if shuffleSeed == 0 {
		shuffleSeed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(shuffleSeed))
	rng.Shuffle(len(specs), func(i, j int) {
		specs[i], specs[j] = specs[j], specs[i]
	})

	return specs, nil
}
