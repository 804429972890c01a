// Package worker implements the node worker: it registers with the
// scheduler, then requests, executes and reports benchmark tasks until the
// scheduler sends the REST signal. Every exchange with the scheduler opens a
// fresh connection; the worker keeps no session state beyond its identity.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"go.uber.org/zap"

	"yqhp/benchgrid/internal/catalog"
	"yqhp/benchgrid/internal/config"
	"yqhp/benchgrid/internal/emitter"
	"yqhp/benchgrid/internal/protocol"
	"yqhp/benchgrid/pkg/logging"
	"yqhp/benchgrid/pkg/types"
)

// ErrRegistrationRejected reports a scheduler that answered the registration
// request with anything but a confirmation. The worker aborts startup.
var ErrRegistrationRejected = errors.New("scheduler rejected registration")

// Worker drives the request/execute/report loop against one scheduler.
type Worker struct {
	cfg      *config.WorkerConfig
	catalog  *catalog.Catalog
	emitter  *emitter.Emitter
	hostname string

	completed int
}

// New wires a worker. em may be nil (no event logger configured).
func New(cfg *config.WorkerConfig, cat *catalog.Catalog, em *emitter.Emitter) *Worker {
	hostname := cfg.Hostname
	if hostname == "" {
		if h, err := os.Hostname(); err == nil {
			hostname = h
		} else {
			hostname = "worker"
		}
	}
	return &Worker{cfg: cfg, catalog: cat, emitter: em, hostname: hostname}
}

// Hostname is the identity this worker registers under.
func (w *Worker) Hostname() string { return w.hostname }

// Completed returns the number of tasks this worker has finished.
func (w *Worker) Completed() int { return w.completed }

// Run registers with the scheduler and then loops requesting and executing
// tasks until REST arrives, the context is cancelled between tasks, or an
// error aborts the run. A running task is never interrupted; cancellation
// takes effect at the next request. Any network error, unknown task type or
// task body failure ends the run with that error; there is no retry.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.Register(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			logging.Info("worker stopping between tasks", zap.String("node", w.hostname))
			return ctx.Err()
		default:
		}

		spec, rest, err := w.requestTask()
		if err != nil {
			return err
		}
		if rest {
			logging.Info("REST received, no more work",
				zap.String("node", w.hostname),
				zap.Int("completed", w.completed))
			return nil
		}

		duration, err := w.execute(spec)
		if err != nil {
			return err
		}

		if err := w.sendFinish(duration); err != nil {
			return err
		}
		w.completed++

		w.emitter.EmitNow(w.hostname, types.EventTaskFinished, spec.Type.String())
	}
}

// Register announces this worker's hostname and requires a confirmation.
func (w *Worker) Register() error {
	resp, err := w.roundTrip(protocol.FormatRegister(w.hostname))
	if err != nil {
		return fmt.Errorf("register with scheduler at %s: %w", w.cfg.SchedulerAddr, err)
	}

	schedulerHost, ok, err := protocol.ParseRegisterConfirm(resp)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrRegistrationRejected, resp)
	}

	logging.Info("registered with scheduler",
		zap.String("node", w.hostname),
		zap.String("scheduler", schedulerHost),
		zap.String("addr", w.cfg.SchedulerAddr))
	return nil
}

// requestTask asks for one task. rest reports the poison pill.
func (w *Worker) requestTask() (spec types.TaskSpec, rest bool, err error) {
	resp, err := w.roundTrip(protocol.FormatTaskRequest())
	if err != nil {
		return types.TaskSpec{}, false, fmt.Errorf("request task: %w", err)
	}
	return protocol.ParseAssign(resp)
}

// execute runs one assigned task through the catalog, measuring wall-clock
// time. The TASK_REQUESTED event goes out before execution starts.
func (w *Worker) execute(spec types.TaskSpec) (time.Duration, error) {
	if !w.catalog.Has(spec.Type) {
		return 0, fmt.Errorf("scheduler assigned %w: %q", catalog.ErrUnknownTask, spec.Type)
	}

	w.emitter.EmitNow(w.hostname, types.EventTaskRequested, "")

	logging.Info("executing task",
		zap.String("node", w.hostname),
		zap.String("task", spec.Type.String()),
		zap.Any("parameters", spec.Parameters))

	duration, err := w.catalog.Execute(spec.Type, spec.Parameters)
	if err != nil {
		return duration, err
	}

	logging.Info("task done",
		zap.String("node", w.hostname),
		zap.String("task", spec.Type.String()),
		zap.Duration("duration", duration))
	return duration, nil
}

// sendFinish reports a completed task's duration. The scheduler sends no
// response; closing the connection acknowledges.
func (w *Worker) sendFinish(duration time.Duration) error {
	conn, err := net.DialTimeout("tcp", w.cfg.SchedulerAddr, w.cfg.DialTimeout)
	if err != nil {
		return fmt.Errorf("report finish: %w", err)
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(w.cfg.DialTimeout))
	if _, err := conn.Write([]byte(protocol.FormatTaskFinish(duration.Seconds()))); err != nil {
		return fmt.Errorf("report finish: %w", err)
	}
	return nil
}

// roundTrip opens a fresh connection, sends one request and reads the full
// response. The scheduler closes its side after replying, so reading to EOF
// delimits the message.
func (w *Worker) roundTrip(request string) (string, error) {
	conn, err := net.DialTimeout("tcp", w.cfg.SchedulerAddr, w.cfg.DialTimeout)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	deadline := time.Now().Add(w.cfg.DialTimeout)
	_ = conn.SetDeadline(deadline)

	if _, err := conn.Write([]byte(request)); err != nil {
		return "", err
	}

	resp, err := io.ReadAll(conn)
	if err != nil {
		return "", err
	}
	if len(resp) == 0 {
		return "", errors.New("empty response from scheduler")
	}
	return string(resp), nil
}
