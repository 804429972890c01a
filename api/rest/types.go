package rest

import "yqhp/benchgrid/pkg/types"

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	RunID     string `json:"run_id"`
	Timestamp string `json:"timestamp"`
}

// SchedulerStatusResponse is the body of GET /api/v1/status on the scheduler
// API: the board snapshot stamped with the serving process's identity.
type SchedulerStatusResponse struct {
	RunID    string `json:"run_id"`
	Hostname string `json:"hostname"`
	types.SchedulerStatus
}

// NodesResponse is the body of GET /api/v1/nodes.
type NodesResponse struct {
	Count int                  `json:"count"`
	Nodes []types.NodeIdentity `json:"nodes"`
}

// TasksResponse is the body of GET /api/v1/tasks on the logger API: every
// reconstructed task instance keyed by instance id.
type TasksResponse struct {
	Count int                            `json:"count"`
	Tasks map[string]*types.TaskInstance `json:"tasks"`
}

// ExportResponse is the body of POST /api/v1/export.
type ExportResponse struct {
	Path string `json:"path"`
}
