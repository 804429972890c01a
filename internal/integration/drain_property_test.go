// Property-based test for pool drainage over the real wire: whatever the
// pool composition and pop order, a worker loop ends on REST with every
// seeded task executed exactly once.
package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"yqhp/benchgrid/internal/catalog"
	"yqhp/benchgrid/internal/config"
	"yqhp/benchgrid/internal/scheduler"
	"yqhp/benchgrid/internal/worker"
	"yqhp/benchgrid/pkg/types"
)

// countingCatalog tallies executions per task type.
type countingCatalog struct {
	mu   sync.Mutex
	runs map[types.TaskType]int
}

func newCountingCatalog() (*catalog.Catalog, *countingCatalog) {
	counter := &countingCatalog{runs: make(map[types.TaskType]int)}
	cat := catalog.New()
	for _, tt := range types.AllTaskTypes() {
		taskType := tt
		cat.Register(taskType, func(map[string]float64) error {
			counter.mu.Lock()
			counter.runs[taskType]++
			counter.mu.Unlock()
			return nil
		})
	}
	return cat, counter
}

func (c *countingCatalog) snapshot() map[types.TaskType]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[types.TaskType]int, len(c.runs))
	for tt, n := range c.runs {
		out[tt] = n
	}
	return out
}

func TestWorkerDrainsAnyPoolProperty(t *testing.T) {
	if testing.Short() {
		t.Skip("spins up a TCP scheduler per case")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("every seeded task runs exactly once, then REST", prop.ForAll(
		func(counts map[string]int, lifo bool) bool {
			pop := types.PopFIFO
			if lifo {
				pop = types.PopLIFO
			}

			specs, err := scheduler.BuildTaskSet(counts, 1)
			if err != nil {
				return false
			}

			cfg := &config.SchedulerConfig{
				ListenAddr:  "127.0.0.1:0",
				Hostname:    "prop-sched",
				PopOrder:    string(pop),
				ReadTimeout: 2 * time.Second,
				MaxConns:    32,
			}
			board := scheduler.NewBoard(pop)
			board.Seed(specs)

			srv := scheduler.NewServer(cfg, board, nil, nil)
			if err := srv.Start(); err != nil {
				return false
			}
			defer srv.Stop(2 * time.Second)

			cat, counter := newCountingCatalog()
			w := worker.New(&config.WorkerConfig{
				SchedulerAddr: srv.Addr().String(),
				Hostname:      "prop-worker",
				DialTimeout:   2 * time.Second,
			}, cat, nil)

			if err := w.Run(context.Background()); err != nil {
				return false
			}

			if w.Completed() != len(specs) || !(len(specs) == 0 || board.Status().Complete) {
				return false
			}

			runs := counter.snapshot()
			for _, tt := range types.AllTaskTypes() {
				if runs[tt] != counts[string(tt)] {
					return false
				}
			}
			return true
		},
		genTaskCounts(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// genTaskCounts generates per-type pool counts, zero included.
func genTaskCounts() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 4), gen.IntRange(0, 4), gen.IntRange(0, 4), gen.IntRange(0, 4),
	).Map(func(values []interface{}) map[string]int {
		counts := make(map[string]int, len(values))
		for i, tt := range types.AllTaskTypes() {
			counts[string(tt)] = values[i].(int)
		}
		return counts
	})
}
