package types

import "time"

// UnixSeconds renders t as float seconds since the Unix epoch, the time
// representation carried by lifecycle events and snapshots.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// EventKind names a point in a task's lifecycle.
type EventKind string

const (
	// EventTaskRequested is emitted by a worker before it executes an
	// assigned task.
	EventTaskRequested EventKind = "TASK_REQUESTED"
	// EventTaskAssigned is emitted by the scheduler when it hands a task
	// to a node.
	EventTaskAssigned EventKind = "TASK_ASSIGNED"
	// EventTaskFinished is emitted by a worker after a task completes.
	EventTaskFinished EventKind = "TASK_FINISHED"
)

// Valid reports whether k is a recognized lifecycle event kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventTaskRequested, EventTaskAssigned, EventTaskFinished:
		return true
	}
	return false
}

// LifecycleEvent is a single observation reported by a scheduler or worker.
// Events are immutable once recorded and are never deleted for the lifetime
// of the logger process.
type LifecycleEvent struct {
	Node     string    `json:"node"`
	Kind     EventKind `json:"event"`
	Time     float64   `json:"time"`
	TaskName string    `json:"task_name,omitempty"`
}

// TaskInstance is one reconstructed execution of a task type, tracked from
// assignment to completion. Instance ids are generated per task type with a
// monotonically increasing counter and are never reused.
type TaskInstance struct {
	InstanceID   string           `json:"instance_id"`
	TaskName     string           `json:"task_name"`
	Node         string           `json:"node"`
	AssignedTime float64          `json:"assigned_time"`
	FinishedTime *float64         `json:"finished_time,omitempty"`
	Duration     *float64         `json:"duration,omitempty"`
	Events       []LifecycleEvent `json:"events"`
}

// Completed reports whether a finish event has been correlated and a
// duration computed.
func (ti *TaskInstance) Completed() bool {
	return ti != nil && ti.Duration != nil
}

// Snapshot is the full exported state of the event logger.
type Snapshot struct {
	Events         []LifecycleEvent         `json:"events"`
	Tasks          map[string]*TaskInstance `json:"tasks"`
	ExportTime     float64                  `json:"export_time"`
	ExportDatetime string                   `json:"export_datetime"`
}
