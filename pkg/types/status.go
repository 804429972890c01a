package types

// SchedulerStatus is the scheduler's progress snapshot served by the status
// API. Complete becomes true once every seeded task has a finish report; the
// scheduler keeps serving after that.
type SchedulerStatus struct {
	Waiting  int                 `json:"waiting"`
	InFlight map[string]TaskSpec `json:"in_flight"`
	Finished int                 `json:"finished"`
	Seeded   int                 `json:"seeded"`
	Complete bool                `json:"complete"`
	Nodes    []NodeIdentity      `json:"nodes"`
}

// DurationStats summarizes durations of completed instances only.
type DurationStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	P50   float64 `json:"p50"`
	P90   float64 `json:"p90"`
	P99   float64 `json:"p99"`
}

// TaskTypeStats aggregates the instances of one task type.
type TaskTypeStats struct {
	TaskName    string  `json:"task_name"`
	Total       int     `json:"total_instances"`
	Completed   int     `json:"completed_instances"`
	Pending     int     `json:"pending_instances"`
	AvgDuration float64 `json:"average_duration"`
}

// NodeStats aggregates the instances executed by one node.
type NodeStats struct {
	Node        string  `json:"node"`
	Total       int     `json:"total_tasks"`
	Completed   int     `json:"completed_tasks"`
	Pending     int     `json:"pending_tasks"`
	AvgDuration float64 `json:"average_duration"`
}

// LoggerStats is the on-demand aggregation over the event log and the
// instance table. It is computed from a consistent copy of both.
type LoggerStats struct {
	TotalEvents      int                      `json:"total_events"`
	TotalTasks       int                      `json:"total_tasks"`
	EventCounts      map[EventKind]int        `json:"event_counts"`
	OrphanedFinishes int                      `json:"orphaned_finishes"`
	ByType           map[string]TaskTypeStats `json:"by_type"`
	ByNode           map[string]NodeStats     `json:"by_node"`
	Durations        DurationStats            `json:"durations"`
}
