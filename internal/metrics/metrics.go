// Package metrics defines the Prometheus collectors exported by the
// scheduler and the event logger. Each service owns a private registry so
// both can run in one process (or one test binary) without collisions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// durationBuckets spans the few-millisecond sort runs up to multi-minute
// matmul runs.
var durationBuckets = prometheus.ExponentialBuckets(0.005, 2, 16)

// Scheduler holds the scheduler service collectors.
type Scheduler struct {
	registry *prometheus.Registry

	Assignments    *prometheus.CounterVec // by task type
	RestResponses  prometheus.Counter
	Finishes       prometheus.Counter
	ProtocolErrors prometheus.Counter
	OrphanFinishes prometheus.Counter
	Registrations  prometheus.Counter

	QueueDepth      prometheus.Gauge
	InFlight        prometheus.Gauge
	RegisteredNodes prometheus.Gauge

	ReportedDuration *prometheus.HistogramVec // by task type, seconds
}

// NewScheduler builds the scheduler collector set on a fresh registry.
func NewScheduler() *Scheduler {
	m := &Scheduler{
		registry: prometheus.NewRegistry(),
		Assignments: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "benchgrid_scheduler_assignments_total", Help: "Tasks handed out, by task type"},
			[]string{"task"},
		),
		RestResponses: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "benchgrid_scheduler_rest_responses_total", Help: "REST poison pills sent on an empty queue"},
		),
		Finishes: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "benchgrid_scheduler_finishes_total", Help: "Finish reports matched to an in-flight assignment"},
		),
		ProtocolErrors: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "benchgrid_scheduler_protocol_errors_total", Help: "Malformed or unexpected messages"},
		),
		OrphanFinishes: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "benchgrid_scheduler_orphan_finishes_total", Help: "Finish reports with no in-flight assignment"},
		),
		Registrations: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "benchgrid_scheduler_registrations_total", Help: "Registration requests, including re-registrations"},
		),
		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "benchgrid_scheduler_queue_depth", Help: "Tasks waiting for assignment"},
		),
		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "benchgrid_scheduler_in_flight", Help: "Assignments awaiting a finish report"},
		),
		RegisteredNodes: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "benchgrid_scheduler_registered_nodes", Help: "Distinct nodes in the registry"},
		),
		ReportedDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "benchgrid_scheduler_reported_duration_seconds",
				Help:    "Wall-clock task durations carried by finish reports",
				Buckets: durationBuckets,
			},
			[]string{"task"},
		),
	}

	m.registry.MustRegister(
		m.Assignments, m.RestResponses, m.Finishes, m.ProtocolErrors,
		m.OrphanFinishes, m.Registrations, m.QueueDepth, m.InFlight,
		m.RegisteredNodes, m.ReportedDuration,
	)
	return m
}

// Registry returns the registry backing /metrics.
func (m *Scheduler) Registry() *prometheus.Registry { return m.registry }

// Logger holds the event logger service collectors.
type Logger struct {
	registry *prometheus.Registry

	Events         *prometheus.CounterVec // by event kind
	InvalidEvents  prometheus.Counter
	Instances      *prometheus.CounterVec // by task type
	OrphanFinishes prometheus.Counter

	OpenInstances prometheus.Gauge

	TaskDuration *prometheus.HistogramVec // by task type, seconds
}

// NewLogger builds the event logger collector set on a fresh registry.
func NewLogger() *Logger {
	m := &Logger{
		registry: prometheus.NewRegistry(),
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "benchgrid_logger_events_total", Help: "Lifecycle events ingested, by kind"},
			[]string{"kind"},
		),
		InvalidEvents: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "benchgrid_logger_invalid_events_total", Help: "Messages rejected for missing node or kind"},
		),
		Instances: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "benchgrid_logger_instances_total", Help: "Task instances opened, by task type"},
			[]string{"task"},
		),
		OrphanFinishes: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "benchgrid_logger_orphan_finishes_total", Help: "Finish events correlated to no open instance"},
		),
		OpenInstances: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "benchgrid_logger_open_instances", Help: "Instances assigned but not yet finished"},
		),
		TaskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "benchgrid_logger_task_duration_seconds",
				Help:    "Assignment-to-finish durations of completed instances",
				Buckets: durationBuckets,
			},
			[]string{"task"},
		),
	}

	m.registry.MustRegister(
		m.Events, m.InvalidEvents, m.Instances, m.OrphanFinishes,
		m.OpenInstances, m.TaskDuration,
	)
	return m
}

// Registry returns the registry backing /metrics.
func (m *Logger) Registry() *prometheus.Registry { return m.registry }
