package rest

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"yqhp/benchgrid/internal/metrics"
	"yqhp/benchgrid/internal/scheduler"
)

// schedulerAPI serves read-only views of the dispatch board.
type schedulerAPI struct {
	sched *scheduler.Server
}

// NewSchedulerAPI builds the scheduler's HTTP server: health, dispatch
// status, the node registry and Prometheus metrics. mets may be nil, which
// leaves /metrics unregistered.
func NewSchedulerAPI(config *Config, sched *scheduler.Server, mets *metrics.Scheduler) *Server {
	server := newServer("benchgrid scheduler API", config)
	api := &schedulerAPI{sched: sched}

	server.app.Get("/health", api.health)

	v1 := server.app.Group("/api/v1")
	v1.Get("/status", api.status)
	v1.Get("/nodes", api.nodes)

	if mets != nil {
		server.mountMetrics(mets.Registry())
	}
	return server
}

// health handles GET /health
func (a *schedulerAPI) health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Service:   "scheduler",
		RunID:     a.sched.RunID(),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// status handles GET /api/v1/status
func (a *schedulerAPI) status(c *fiber.Ctx) error {
	return c.JSON(SchedulerStatusResponse{
		RunID:           a.sched.RunID(),
		Hostname:        a.sched.Hostname(),
		SchedulerStatus: a.sched.Board().Status(),
	})
}

// nodes handles GET /api/v1/nodes
func (a *schedulerAPI) nodes(c *fiber.Ctx) error {
	nodes := a.sched.Board().Nodes()
	return c.JSON(NodesResponse{
		Count: len(nodes),
		Nodes: nodes,
	})
}
