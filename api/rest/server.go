// Package rest provides the read-only HTTP APIs of the benchmark grid: one
// server exposing scheduler progress and one exposing the event logger's
// reconstructed task instances. Both are served by Fiber with sonic as the
// JSON codec; neither mutates dispatch or correlation state, except the
// logger's export endpoint which writes a snapshot file.
package rest

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"yqhp/benchgrid/pkg/jsonx"
)

// Config holds the configuration shared by both API servers.
type Config struct {
	// Address is the address to listen on (e.g., ":8080").
	Address string `yaml:"address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DefaultConfig returns a default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:      ":8080",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server wraps a Fiber app with the middleware both APIs share. Routes are
// installed by NewSchedulerAPI and NewLoggerAPI.
type Server struct {
	app    *fiber.App
	config *Config
}

func newServer(appName string, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		ErrorHandler: errorHandler,
		AppName:      appName,
		JSONEncoder:  jsonx.Marshal,
		JSONDecoder:  jsonx.Unmarshal,
	})

	server := &Server{app: app, config: config}
	server.setupMiddleware()
	return server
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	// Recovery middleware - recovers from panics
	s.app.Use(fiberrecover.New(fiberrecover.Config{
		EnableStackTrace: true,
	}))

	// Logger middleware - logs HTTP requests
	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
}

// mountMetrics exposes a Prometheus registry under /metrics. A nil registry
// leaves the route unregistered.
func (s *Server) mountMetrics(reg *prometheus.Registry) {
	if reg == nil {
		return
	}
	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	s.app.Get("/metrics", adaptor.HTTPHandler(handler))
}

// Start starts the API server and blocks until it is shut down.
func (s *Server) Start() error {
	return s.app.Listen(s.config.Address)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// ShutdownWithTimeout gracefully shuts down the server with a timeout.
func (s *Server) ShutdownWithTimeout(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// errorHandler handles errors returned by handlers.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   fmt.Sprintf("error_%d", code),
		Message: message,
	})
}
