// Package eventlog implements the event logger service: a TCP ingress that
// accepts one lifecycle event per connection, a store that reconstructs
// per-instance task timelines from those events without ever being given an
// instance identifier, aggregate statistics over the reconstruction, and a
// JSON snapshot export.
package eventlog

import (
	"fmt"
	"sync"

	"yqhp/benchgrid/pkg/types"
)

// Store owns the event log and the instance table. One mutex covers both, so
// an event append and its instance-table mutation are a single atomic unit.
// Events are never mutated or deleted for the lifetime of the process.
type Store struct {
	mu sync.Mutex

	events    []types.LifecycleEvent
	order     []string // instance ids in insertion order
	instances map[string]*types.TaskInstance
	counters  map[string]int // per-type instance counters, never reused
	orphans   int
}

// IngestResult reports what one event did to the store.
type IngestResult struct {
	// InstanceID is set when the event opened or completed an instance.
	InstanceID string
	// Opened reports a TASK_ASSIGNED that created a new instance.
	Opened bool
	// Completed reports a TASK_FINISHED that was correlated to an open
	// instance; Duration carries the computed assignment-to-finish span.
	Completed bool
	Duration  float64
	// Orphaned reports a TASK_FINISHED with no matching open instance. The
	// event stays in the raw log but is correlated to nothing.
	Orphaned bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		instances: make(map[string]*types.TaskInstance),
		counters:  make(map[string]int),
	}
}

// Ingest appends ev to the event log and updates the instance table.
//
// TASK_ASSIGNED for type T allocates a fresh instance id T_<n> (monotonic
// per type) and opens an instance. TASK_FINISHED for type T from node N is
// correlated by scanning existing instances in reverse insertion order for
// the first with the same type and node and no finish yet; this
// most-recent-unfinished match is only correct while a node runs at most one
// task of a given type at a time. Events with no task name are logged but
// never correlated.
func (s *Store) Ingest(ev types.LifecycleEvent) IngestResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, ev)

	if ev.TaskName == "" {
		return IngestResult{}
	}

	switch ev.Kind {
	case types.EventTaskAssigned:
		s.counters[ev.TaskName]++
		id := fmt.Sprintf("%s_%d", ev.TaskName, s.counters[ev.TaskName])

		s.instances[id] = &types.TaskInstance{
			InstanceID:   id,
			TaskName:     ev.TaskName,
			Node:         ev.Node,
			AssignedTime: ev.Time,
			Events:       []types.LifecycleEvent{ev},
		}
		s.order = append(s.order, id)
		return IngestResult{InstanceID: id, Opened: true}

	case types.EventTaskFinished:
		for i := len(s.order) - 1; i >= 0; i-- {
			inst := s.instances[s.order[i]]
			if inst.TaskName != ev.TaskName || inst.Node != ev.Node || inst.FinishedTime != nil {
				continue
			}

			finished := ev.Time
			duration := finished - inst.AssignedTime
			inst.FinishedTime = &finished
			inst.Duration = &duration
			inst.Events = append(inst.Events, ev)
			return IngestResult{InstanceID: inst.InstanceID, Completed: true, Duration: duration}
		}

		s.orphans++
		return IngestResult{Orphaned: true}
	}

	// TASK_REQUESTED carries no instance semantics; the raw log entry is all.
	return IngestResult{}
}

// EventCount returns the number of ingested events.
func (s *Store) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// InstanceCount returns the number of opened instances.
func (s *Store) InstanceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.instances)
}

// OpenCount returns the number of instances still awaiting a finish event.
func (s *Store) OpenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	open := 0
	for _, inst := range s.instances {
		if inst.FinishedTime == nil {
			open++
		}
	}
	return open
}

// OrphanCount returns the number of finish events correlated to no instance.
func (s *Store) OrphanCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orphans
}

// Instance returns a copy of one instance by id.
func (s *Store) Instance(id string) (types.TaskInstance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[id]
	if !ok {
		return types.TaskInstance{}, false
	}
	return *copyInstance(inst), true
}

// Instances returns a copy of the instance table keyed by instance id.
func (s *Store) Instances() map[string]*types.TaskInstance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyInstancesLocked()
}

// Events returns a copy of the raw event log in ingest order.
func (s *Store) Events() []types.LifecycleEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyEventsLocked()
}

// copyState takes a consistent copy of the log and the instance table under
// the lock, the copy-then-compute base for stats and snapshots: aggregation
// never blocks ingestion for longer than the copy itself.
func (s *Store) copyState() ([]types.LifecycleEvent, map[string]*types.TaskInstance, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyEventsLocked(), s.copyInstancesLocked(), s.orphans
}

func (s *Store) copyEventsLocked() []types.LifecycleEvent {
	events := make([]types.LifecycleEvent, len(s.events))
	copy(events, s.events)
	return events
}

func (s *Store) copyInstancesLocked() map[string]*types.TaskInstance {
	instances := make(map[string]*types.TaskInstance, len(s.instances))
	for id, inst := range s.instances {
		instances[id] = copyInstance(inst)
	}
	return instances
}

func copyInstance(inst *types.TaskInstance) *types.TaskInstance {
	out := *inst
	if inst.FinishedTime != nil {
		ft := *inst.FinishedTime
		out.FinishedTime = &ft
	}
	if inst.Duration != nil {
		d := *inst.Duration
		out.Duration = &d
	}
	out.Events = make([]types.LifecycleEvent, len(inst.Events))
	copy(out.Events, inst.Events)
	return &out
}
