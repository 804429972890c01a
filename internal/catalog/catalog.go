// Package catalog maps task-type names to executable benchmark bodies. The
// catalog is a pure lookup table; all state lives in the individual runners.
package catalog

import (
	"errors"
	"fmt"
	"time"

	"yqhp/benchgrid/pkg/types"
)

// ErrUnknownTask reports a task type the catalog has no runner for. For a
// worker this is a fatal protocol error.
var ErrUnknownTask = errors.New("unknown task type")

// ExecutionError wraps a failure inside a task body. It terminates the
// worker's run loop and is never reported back to the scheduler.
type ExecutionError struct {
	Task types.TaskType
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("task %s failed: %v", e.Task, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Runner executes one task body with its parameter bag.
type Runner func(params map[string]float64) error

// Catalog maps task-type names to runners.
type Catalog struct {
	runners map[types.TaskType]Runner
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{runners: make(map[types.TaskType]Runner)}
}

// Default returns a catalog with the four stock benchmark bodies. ioFile is
// the scratch file used by the fileIO task; empty means a per-host default
// under the temp directory.
func Default(ioFile string) *Catalog {
	c := New()
	c.Register(types.TaskMatMul, runMatMul)
	c.Register(types.TaskPrimes, runPrimes)
	c.Register(types.TaskArray, runArraySort)
	c.Register(types.TaskFileIO, newFileIORunner(ioFile))
	return c
}

// Register binds a runner to a task type, replacing any previous binding.
func (c *Catalog) Register(t types.TaskType, r Runner) {
	c.runners[t] = r
}

// Has reports whether the catalog can execute the given task type.
func (c *Catalog) Has(t types.TaskType) bool {
	_, ok := c.runners[t]
	return ok
}

// Types lists the registered task types in catalog order.
func (c *Catalog) Types() []types.TaskType {
	out := make([]types.TaskType, 0, len(c.runners))
	for _, t := range types.AllTaskTypes() {
		if c.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

// Execute dispatches a task to its runner and measures its wall-clock
// duration. An unknown task type yields ErrUnknownTask; a runner failure is
// wrapped in an ExecutionError.
func (c *Catalog) Execute(taskType types.TaskType, params map[string]float64) (time.Duration, error) {
	runner, ok := c.runners[taskType]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTask, taskType)
	}

	start := time.Now()
	if err := runner(params); err != nil {
		return time.Since(start), &ExecutionError{Task: taskType, Err: err}
	}
	return time.Since(start), nil
}

// intParam extracts an integer parameter, falling back to the task type's
// stock value and then to def when the bag has no usable entry.
func intParam(params map[string]float64, key string, t types.TaskType, def int) int {
	if v, ok := params[key]; ok && v > 0 {
		return int(v)
	}
	if v, ok := types.DefaultParameters(t)[key]; ok {
		return int(v)
	}
	return def
}
