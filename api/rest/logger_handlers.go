package rest

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"yqhp/benchgrid/internal/eventlog"
	"yqhp/benchgrid/internal/metrics"
)

// loggerAPI serves read-only views of the event log, plus on-demand export.
type loggerAPI struct {
	svc       *eventlog.Service
	exportDir string
}

// NewLoggerAPI builds the event logger's HTTP server: health, aggregated
// statistics, the reconstructed instance table, the full snapshot and an
// export trigger. mets may be nil, which leaves /metrics unregistered.
func NewLoggerAPI(config *Config, svc *eventlog.Service, exportDir string, mets *metrics.Logger) *Server {
	server := newServer("benchgrid logger API", config)
	api := &loggerAPI{svc: svc, exportDir: exportDir}

	server.app.Get("/health", api.health)

	v1 := server.app.Group("/api/v1")
	v1.Get("/stats", api.stats)
	v1.Get("/tasks", api.tasks)
	v1.Get("/snapshot", api.snapshot)
	v1.Post("/export", api.export)

	if mets != nil {
		server.mountMetrics(mets.Registry())
	}
	return server
}

// health handles GET /health
func (a *loggerAPI) health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Service:   "logger",
		RunID:     a.svc.RunID(),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// stats handles GET /api/v1/stats
func (a *loggerAPI) stats(c *fiber.Ctx) error {
	return c.JSON(a.svc.Store().Stats())
}

// tasks handles GET /api/v1/tasks
func (a *loggerAPI) tasks(c *fiber.Ctx) error {
	tasks := a.svc.Store().Instances()
	return c.JSON(TasksResponse{
		Count: len(tasks),
		Tasks: tasks,
	})
}

// snapshot handles GET /api/v1/snapshot
func (a *loggerAPI) snapshot(c *fiber.Ctx) error {
	return c.JSON(a.svc.Store().Snapshot())
}

// export handles POST /api/v1/export
func (a *loggerAPI) export(c *fiber.Ctx) error {
	path, err := eventlog.ExportToDir(a.svc.Store(), a.exportDir)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "export_failed",
			Message: "Failed to write snapshot: " + err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(ExportResponse{Path: path})
}
