// Property-based tests for the board's assignment invariants: a seeded set
// of N tasks yields exactly N assignments no matter how many nodes race for
// them, every assignment is unique, and the leftover request count all sees
// an empty queue.
package scheduler

import (
	"fmt"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"yqhp/benchgrid/pkg/types"
)

func randomTaskSet(taskCount int) []types.TaskSpec {
	all := types.AllTaskTypes()
	specs := make([]types.TaskSpec, taskCount)
	for i := range specs {
		specs[i] = types.NewTaskSpec(all[i%len(all)])
	}
	return specs
}

// TestQueueExhaustionProperty: for any N tasks and M >= N requesting nodes,
// exactly N requests succeed and every further request sees an empty queue.
func TestQueueExhaustionProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("exactly N assignments, the rest REST", prop.ForAll(
		func(taskCount, extraNodes int) bool {
			b := NewBoard(types.PopLIFO)
			b.Seed(randomTaskSet(taskCount))

			nodeCount := taskCount + extraNodes
			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				assigned int
				rested   int
			)
			for i := 0; i < nodeCount; i++ {
				wg.Add(1)
				go func(node string) {
					defer wg.Done()
					_, ok, err := b.Assign(node)
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						return
					}
					if ok {
						assigned++
					} else {
						rested++
					}
				}(fmt.Sprintf("node-%d", i))
			}
			wg.Wait()

			return assigned == taskCount && rested == extraNodes && b.Waiting() == 0
		},
		gen.IntRange(0, 32),
		gen.IntRange(0, 16),
	))

	properties.TestingRun(t)
}

// TestNoDoubleAssignmentProperty: under concurrent requests the multiset of
// assigned tasks equals the seeded multiset.
func TestNoDoubleAssignmentProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("assigned multiset equals seeded multiset", prop.ForAll(
		func(taskCount int) bool {
			seeded := randomTaskSet(taskCount)
			b := NewBoard(types.PopFIFO)
			b.Seed(seeded)

			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				assigned = make(map[types.TaskType]int)
			)
			for i := 0; i < taskCount; i++ {
				wg.Add(1)
				go func(node string) {
					defer wg.Done()
					spec, ok, err := b.Assign(node)
					if err != nil || !ok {
						return
					}
					mu.Lock()
					assigned[spec.Type]++
					mu.Unlock()
				}(fmt.Sprintf("node-%d", i))
			}
			wg.Wait()

			want := make(map[types.TaskType]int)
			for _, spec := range seeded {
				want[spec.Type]++
			}
			if len(assigned) != len(want) {
				return false
			}
			for taskType, count := range want {
				if assigned[taskType] != count {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 48),
	))

	properties.TestingRun(t)
}

// TestFinishDrainProperty: assign-then-finish over any node count leaves the
// board complete with an empty in-flight map.
func TestFinishDrainProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("every assignment can be finished exactly once", prop.ForAll(
		func(taskCount int) bool {
			b := NewBoard(types.PopLIFO)
			b.Seed(randomTaskSet(taskCount))

			var wg sync.WaitGroup
			for i := 0; i < taskCount; i++ {
				wg.Add(1)
				go func(node string) {
					defer wg.Done()
					if _, ok, err := b.Assign(node); err != nil || !ok {
						return
					}
					if _, matched, _ := b.Finish(node); !matched {
						return
					}
					// A second finish from the same node must not match.
					if _, matched, _ := b.Finish(node); matched {
						panic("double finish matched")
					}
				}(fmt.Sprintf("node-%d", i))
			}
			wg.Wait()

			status := b.Status()
			return status.Finished == taskCount &&
				len(status.InFlight) == 0 &&
				(taskCount == 0 || status.Complete)
		},
		gen.IntRange(0, 32),
	))

	properties.TestingRun(t)
}
