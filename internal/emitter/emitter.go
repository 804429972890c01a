// Package emitter delivers lifecycle events to the event logger on a
// best-effort basis. Delivery failures are logged and swallowed; they never
// affect the caller's primary operation.
package emitter

import (
	"net"
	"time"

	"go.uber.org/zap"

	"yqhp/benchgrid/internal/protocol"
	"yqhp/benchgrid/pkg/logging"
	"yqhp/benchgrid/pkg/types"
)

// DefaultTimeout bounds the dial and the write of one event message.
const DefaultTimeout = time.Second

// Emitter sends one event per connection to a logger address. A nil Emitter
// is valid and drops every event, so callers never need to branch on whether
// a logger is configured.
type Emitter struct {
	addr    string
	timeout time.Duration
}

// New returns an Emitter targeting addr, or nil when addr is empty.
func New(addr string) *Emitter {
	if addr == "" {
		return nil
	}
	return &Emitter{addr: addr, timeout: DefaultTimeout}
}

// WithTimeout overrides the dial/write timeout. Non-positive values keep the
// default.
func (e *Emitter) WithTimeout(d time.Duration) *Emitter {
	if e != nil && d > 0 {
		e.timeout = d
	}
	return e
}

// Emit formats ev as a logger wire message and sends it over a fresh
// connection. The outcome is ignored apart from a debug log line.
func (e *Emitter) Emit(ev types.LifecycleEvent) {
	if e == nil {
		return
	}

	conn, err := net.DialTimeout("tcp", e.addr, e.timeout)
	if err != nil {
		logging.Debug("event dropped: logger unreachable",
			zap.String("logger_addr", e.addr),
			zap.String("kind", string(ev.Kind)),
			zap.Error(err))
		return
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(e.timeout))
	if _, err := conn.Write([]byte(protocol.FormatEvent(ev))); err != nil {
		logging.Debug("event dropped: write failed",
			zap.String("logger_addr", e.addr),
			zap.String("kind", string(ev.Kind)),
			zap.Error(err))
	}
}

// EmitNow emits an event of the given kind stamped with the current time.
// taskName may be empty for TASK_REQUESTED.
func (e *Emitter) EmitNow(node string, kind types.EventKind, taskName string) {
	e.Emit(types.LifecycleEvent{
		Node:     node,
		Kind:     kind,
		Time:     types.UnixSeconds(time.Now()),
		TaskName: taskName,
	})
}
