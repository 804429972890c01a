package scheduler

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	"yqhp/benchgrid/internal/config"
	"yqhp/benchgrid/internal/emitter"
	"yqhp/benchgrid/internal/metrics"
	"yqhp/benchgrid/internal/protocol"
	"yqhp/benchgrid/pkg/logging"
	"yqhp/benchgrid/pkg/types"
)

// readBufferSize bounds one request message. Commands are a few dozen bytes.
const readBufferSize = 1024

// Server accepts node connections and serves one request/response exchange
// per connection: REGISTER, TASK REQUEST or TASK FINISH. All state mutation
// goes through the Board; per-connection errors never take down the accept
// loop.
type Server struct {
	cfg     *config.SchedulerConfig
	board   *Board
	emitter *emitter.Emitter
	metrics *metrics.Scheduler

	runID    string
	hostname string

	ln       net.Listener
	started  atomic.Bool
	stopOnce sync.Once
	stopped  chan struct{}
	handlers sync.WaitGroup
}

// NewServer wires a server around the given board. em may be nil (no event
// logger configured); mets may be nil in tests that do not scrape metrics.
func NewServer(cfg *config.SchedulerConfig, board *Board, em *emitter.Emitter, mets *metrics.Scheduler) *Server {
	hostname := cfg.Hostname
	if hostname == "" {
		if h, err := os.Hostname(); err == nil {
			hostname = h
		} else {
			hostname = "scheduler"
		}
	}
	return &Server{
		cfg:      cfg,
		board:    board,
		emitter:  em,
		metrics:  mets,
		runID:    uuid.New().String(),
		hostname: hostname,
		stopped:  make(chan struct{}),
	}
}

// RunID identifies this scheduler process; it is stamped on logs and the
// status API.
func (s *Server) RunID() string { return s.runID }

// Board returns the state the server mutates; the status API reads it.
func (s *Server) Board() *Board { return s.board }

// Hostname is the name sent back in registration confirmations.
func (s *Server) Hostname() string { return s.hostname }

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Start binds the listener and launches the accept loop. The concurrent
// connection count is capped so a flood of nodes cannot exhaust handler
// goroutines.
func (s *Server) Start() error {
	if s.started.Load() {
		return errors.New("scheduler server already started")
	}

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddr, err)
	}
	s.ln = netutil.LimitListener(ln, s.cfg.MaxConns)
	s.started.Store(true)

	logging.Info("scheduler listening",
		zap.String("addr", s.ln.Addr().String()),
		zap.String("run_id", s.runID),
		zap.String("hostname", s.hostname),
		zap.String("pop_order", s.cfg.PopOrder),
		zap.Int("seeded_tasks", s.board.Status().Seeded))

	go s.acceptLoop()
	return nil
}

// Stop closes the listener, waits up to timeout for in-flight handlers to
// drain and then returns. It is safe to call more than once.
func (s *Server) Stop(timeout time.Duration) error {
	var err error
	s.stopOnce.Do(func() {
		s.started.Store(false)
		if s.ln != nil {
			err = s.ln.Close()
		}

		done := make(chan struct{})
		go func() {
			s.handlers.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(timeout):
			logging.Warn("scheduler stop timed out waiting for handlers")
		}
		close(s.stopped)
	})
	return err
}

// Stopped is closed once Stop has drained the handlers.
func (s *Server) Stopped() <-chan struct{} { return s.stopped }

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if !s.started.Load() {
				return
			}
			logging.Warn("scheduler accept failed", zap.Error(err))
			continue
		}

		s.handlers.Add(1)
		go func() {
			defer s.handlers.Done()
			s.handleConn(conn)
		}()
	}
}

// handleConn reads one command, applies it to the board and writes the
// response. Malformed or unexpected messages are logged and the connection
// dropped; the service keeps running.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	remoteHost := remoteHostOf(conn)

	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	buf := make([]byte, readBufferSize)
	n, err := conn.Read(buf)
	if err != nil {
		logging.Warn("scheduler read failed",
			zap.String("remote", remoteHost),
			zap.Error(err))
		s.countProtocolError()
		return
	}

	cmd, err := protocol.ParseCommand(string(buf[:n]))
	if err != nil {
		logging.Warn("scheduler dropped malformed message",
			zap.String("remote", remoteHost),
			zap.Error(err))
		s.countProtocolError()
		return
	}

	switch cmd.Kind {
	case protocol.CmdRegister:
		s.handleRegister(conn, cmd.Hostname, remoteHost)
	case protocol.CmdTaskRequest:
		s.handleTaskRequest(conn, remoteHost)
	case protocol.CmdTaskFinish:
		s.handleTaskFinish(cmd.Duration, remoteHost)
	}
}

func (s *Server) handleRegister(conn net.Conn, hostname, remoteHost string) {
	isNew := s.board.Register(hostname, remoteHost)
	if isNew {
		logging.Info("node registered",
			zap.String("node", hostname),
			zap.String("remote", remoteHost))
	} else {
		logging.Info("node re-registered", zap.String("node", hostname))
	}

	if s.metrics != nil {
		s.metrics.Registrations.Inc()
		s.metrics.RegisteredNodes.Set(float64(s.board.NodeCount()))
	}

	s.reply(conn, protocol.FormatRegisterConfirm(s.hostname), remoteHost)
}

func (s *Server) handleTaskRequest(conn net.Conn, remoteHost string) {
	node := s.board.ResolveNode(remoteHost)

	spec, ok, err := s.board.Assign(node)
	if err != nil {
		// ErrNodeBusy: drop the connection without a response.
		logging.Warn("task request rejected",
			zap.String("node", node),
			zap.Error(err))
		s.countProtocolError()
		return
	}

	if !ok {
		logging.Info("queue empty, sent REST", zap.String("node", node))
		if s.metrics != nil {
			s.metrics.RestResponses.Inc()
		}
		s.reply(conn, protocol.FormatRest(), remoteHost)
		return
	}

	line, err := protocol.FormatAssign(spec)
	if err != nil {
		// Parameters that cannot be encoded should be impossible for a
		// seeded spec; put the task back in flight-limbo is worse than
		// dropping the exchange, so log loudly and drop.
		logging.Error("assignment encode failed",
			zap.String("node", node),
			zap.String("task", spec.Type.String()),
			zap.Error(err))
		s.countProtocolError()
		return
	}

	logging.Info("task assigned",
		zap.String("node", node),
		zap.String("task", spec.Type.String()),
		zap.Int("remaining", s.board.Waiting()))

	if s.metrics != nil {
		s.metrics.Assignments.WithLabelValues(spec.Type.String()).Inc()
		s.metrics.QueueDepth.Set(float64(s.board.Waiting()))
		s.metrics.InFlight.Set(float64(s.board.InFlightCount()))
	}

	s.reply(conn, line, remoteHost)

	// Best-effort, after the response is on the wire: delivery failure must
	// never block or fail the assignment.
	s.emitter.Emit(types.LifecycleEvent{
		Node:     node,
		Kind:     types.EventTaskAssigned,
		Time:     types.UnixSeconds(time.Now()),
		TaskName: spec.Type.String(),
	})
}

func (s *Server) handleTaskFinish(duration float64, remoteHost string) {
	node := s.board.ResolveNode(remoteHost)

	spec, matched, complete := s.board.Finish(node)
	if !matched {
		logging.Warn("finish report with no in-flight assignment",
			zap.String("node", node),
			zap.Float64("duration_s", duration))
		if s.metrics != nil {
			s.metrics.OrphanFinishes.Inc()
		}
		return
	}

	status := s.board.Status()
	logging.Info("task finished",
		zap.String("node", node),
		zap.String("task", spec.Type.String()),
		zap.Float64("duration_s", duration),
		zap.Int("finished", status.Finished),
		zap.Int("seeded", status.Seeded))

	if s.metrics != nil {
		s.metrics.Finishes.Inc()
		s.metrics.InFlight.Set(float64(len(status.InFlight)))
		s.metrics.ReportedDuration.WithLabelValues(spec.Type.String()).Observe(duration)
	}

	if complete {
		logging.Info("all tasks completed", zap.Int("total", status.Seeded))
	}
}

// reply writes a response line; a failed write only loses this exchange.
func (s *Server) reply(conn net.Conn, line, remoteHost string) {
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.ReadTimeout))
	if _, err := conn.Write([]byte(line)); err != nil {
		logging.Warn("scheduler write failed",
			zap.String("remote", remoteHost),
			zap.Error(err))
	}
}

func (s *Server) countProtocolError() {
	if s.metrics != nil {
		s.metrics.ProtocolErrors.Inc()
	}
}

// remoteHostOf strips the ephemeral port: node identity is per host, since
// every exchange arrives on a fresh connection.
func remoteHostOf(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
