package eventlog

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	"yqhp/benchgrid/internal/config"
	"yqhp/benchgrid/internal/metrics"
	"yqhp/benchgrid/internal/protocol"
	"yqhp/benchgrid/pkg/logging"
	"yqhp/benchgrid/pkg/types"
)

// readBufferSize bounds one event message.
const readBufferSize = 4096

// Service accepts one connection per event, parses the key/value message and
// feeds the store. Malformed messages are logged and discarded; nothing a
// sender does can take down the accept loop.
type Service struct {
	cfg     *config.LoggerConfig
	store   *Store
	metrics *metrics.Logger

	runID string

	ln       net.Listener
	started  atomic.Bool
	stopOnce sync.Once
	stopped  chan struct{}
	handlers sync.WaitGroup
}

// NewService wires a service around the given store. mets may be nil in
// tests that do not scrape metrics.
func NewService(cfg *config.LoggerConfig, store *Store, mets *metrics.Logger) *Service {
	return &Service{
		cfg:     cfg,
		store:   store,
		metrics: mets,
		runID:   uuid.New().String(),
		stopped: make(chan struct{}),
	}
}

// RunID identifies this logger process; it is stamped on logs and snapshots.
func (s *Service) RunID() string { return s.runID }

// Store returns the backing store, shared with the HTTP API.
func (s *Service) Store() *Store { return s.store }

// Addr returns the bound listen address, or nil before Start.
func (s *Service) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Start binds the listener and launches the accept loop.
func (s *Service) Start() error {
	if s.started.Load() {
		return errors.New("logger service already started")
	}

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddr, err)
	}
	s.ln = netutil.LimitListener(ln, s.cfg.MaxConns)
	s.started.Store(true)

	logging.Info("event logger listening",
		zap.String("addr", s.ln.Addr().String()),
		zap.String("run_id", s.runID),
		zap.String("export_dir", s.cfg.ExportDir))

	go s.acceptLoop()
	return nil
}

// Stop closes the listener and waits up to timeout for in-flight handlers to
// drain. It is safe to call more than once. Exporting the final snapshot is
// the caller's move, after Stop returns.
func (s *Service) Stop(timeout time.Duration) error {
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
			logging.Warn("logger stop timed out waiting for handlers")
		}
		close(s.stopped)
	})
	return err
}

// Stopped is closed once Stop has drained the handlers.
func (s *Service) Stopped() <-chan struct{} { return s.stopped }

func (s *Service) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if !s.started.Load() {
				return
			}
			logging.Warn("logger accept failed", zap.Error(err))
			continue
		}

		s.handlers.Add(1)
		go func() {
			defer s.handlers.Done()
			s.handleConn(conn)
		}()
	}
}

// handleConn reads a single event message and ingests it. The connection
// carries no response; closing it is the acknowledgment.
func (s *Service) handleConn(conn net.Conn) {
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	buf := make([]byte, readBufferSize)
	n, err := conn.Read(buf)
	if err != nil {
		logging.Warn("logger read failed",
			zap.String("remote", conn.RemoteAddr().String()),
			zap.Error(err))
		s.countInvalid()
		return
	}

	ev, err := protocol.ParseEvent(string(buf[:n]), types.UnixSeconds(time.Now()))
	if err != nil {
		logging.Warn("logger discarded invalid event",
			zap.String("remote", conn.RemoteAddr().String()),
			zap.Error(err))
		s.countInvalid()
		return
	}

	s.ingest(ev)
}

// ingest records one event and logs what it did to the instance table.
func (s *Service) ingest(ev types.LifecycleEvent) {
	res := s.store.Ingest(ev)

	if s.metrics != nil {
		s.metrics.Events.WithLabelValues(string(ev.Kind)).Inc()
	}

	switch {
	case res.Opened:
		logging.Info("instance opened",
			zap.String("instance", res.InstanceID),
			zap.String("node", ev.Node),
			zap.String("task", ev.TaskName))
		if s.metrics != nil {
			s.metrics.Instances.WithLabelValues(ev.TaskName).Inc()
			s.metrics.OpenInstances.Set(float64(s.store.OpenCount()))
		}

	case res.Completed:
		logging.Info("instance completed",
			zap.String("instance", res.InstanceID),
			zap.String("node", ev.Node),
			zap.String("task", ev.TaskName),
			zap.Float64("duration_s", res.Duration))
		if s.metrics != nil {
			s.metrics.TaskDuration.WithLabelValues(ev.TaskName).Observe(res.Duration)
			s.metrics.OpenInstances.Set(float64(s.store.OpenCount()))
		}

	case res.Orphaned:
		logging.Warn("finish event matched no open instance",
			zap.String("node", ev.Node),
			zap.String("task", ev.TaskName))
		if s.metrics != nil {
			s.metrics.OrphanFinishes.Inc()
		}

	default:
		logging.Debug("event logged",
			zap.String("node", ev.Node),
			zap.String("kind", string(ev.Kind)))
	}
}

func (s *Service) countInvalid() {
	if s.metrics != nil {
		s.metrics.InvalidEvents.Inc()
	}
}
