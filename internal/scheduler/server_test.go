package scheduler

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/benchgrid/internal/config"
	"yqhp/benchgrid/internal/metrics"
	"yqhp/benchgrid/internal/protocol"
	"yqhp/benchgrid/pkg/types"
)

func startTestServer(t *testing.T, specs ...types.TaskSpec) (*Server, *Board) {
	t.Helper()

	cfg := &config.SchedulerConfig{
		ListenAddr:  "127.0.0.1:0",
		Hostname:    "sched-test",
		PopOrder:    "fifo",
		ReadTimeout: 2 * time.Second,
		MaxConns:    32,
	}
	board := NewBoard(types.PopFIFO)
	board.Seed(specs)

	srv := NewServer(cfg, board, nil, metrics.NewScheduler())
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop(2 * time.Second) })
	return srv, board
}

// exchange performs one request/response round trip. The server closes the
// connection after replying, so reading to EOF delimits the response; a
// dropped exchange reads back empty.
func exchange(t *testing.T, addr, request string) string {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(3 * time.Second))
	_, err = conn.Write([]byte(request))
	require.NoError(t, err)

	resp, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(resp)
}

func sendOnly(t *testing.T, addr, request string) {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
	_, err = conn.Write([]byte(request))
	require.NoError(t, err)
}

// waitForBoard polls cond; finish handling replies nothing, so the client
// cannot synchronize on a response.
func waitForBoard(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("board never reached the expected state")
}

func TestServerRegisterConfirms(t *testing.T) {
	srv, board := startTestServer(t)

	resp := exchange(t, srv.Addr().String(), protocol.FormatRegister("w1"))
	host, ok, err := protocol.ParseRegisterConfirm(resp)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sched-test", host)
	assert.Equal(t, 1, board.NodeCount())

	// Idempotent: a second REGISTER still confirms and adds nothing.
	resp = exchange(t, srv.Addr().String(), protocol.FormatRegister("w1"))
	_, ok, err = protocol.ParseRegisterConfirm(resp)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, board.NodeCount())
}

func TestServerAssignsUntilExhausted(t *testing.T) {
	srv, board := startTestServer(t,
		types.NewTaskSpec(types.TaskMatMul),
		types.NewTaskSpec(types.TaskPrimes),
	)
	addr := srv.Addr().String()

	// All exchanges come from 127.0.0.1, i.e. one node: finish each task
	// before requesting the next.
	spec, rest, err := protocol.ParseAssign(exchange(t, addr, protocol.FormatTaskRequest()))
	require.NoError(t, err)
	require.False(t, rest)
	assert.Equal(t, types.TaskMatMul, spec.Type, "FIFO pops the head")
	assert.Equal(t, types.DefaultParameters(types.TaskMatMul), spec.Parameters)

	sendOnly(t, addr, protocol.FormatTaskFinish(1.5))
	waitForBoard(t, func() bool { return board.FinishedCount() == 1 })

	spec, rest, err = protocol.ParseAssign(exchange(t, addr, protocol.FormatTaskRequest()))
	require.NoError(t, err)
	require.False(t, rest)
	assert.Equal(t, types.TaskPrimes, spec.Type)

	sendOnly(t, addr, protocol.FormatTaskFinish(2.0))
	waitForBoard(t, func() bool { return board.FinishedCount() == 2 })

	_, rest, err = protocol.ParseAssign(exchange(t, addr, protocol.FormatTaskRequest()))
	require.NoError(t, err)
	assert.True(t, rest, "an exhausted queue answers REST")
	assert.True(t, board.Status().Complete)
}

func TestServerSecondRequestBeforeFinishIsDropped(t *testing.T) {
	srv, board := startTestServer(t,
		types.NewTaskSpec(types.TaskMatMul),
		types.NewTaskSpec(types.TaskPrimes),
	)
	addr := srv.Addr().String()

	_, rest, err := protocol.ParseAssign(exchange(t, addr, protocol.FormatTaskRequest()))
	require.NoError(t, err)
	require.False(t, rest)

	// The same host asking again without a finish violates the one-in-flight
	// invariant; the connection closes with no response.
	resp := exchange(t, addr, protocol.FormatTaskRequest())
	assert.Empty(t, resp)
	assert.Equal(t, 1, board.Waiting(), "the violating request must not consume a task")

	sendOnly(t, addr, protocol.FormatTaskFinish(0.5))
	waitForBoard(t, func() bool { return board.FinishedCount() == 1 })

	_, rest, err = protocol.ParseAssign(exchange(t, addr, protocol.FormatTaskRequest()))
	require.NoError(t, err)
	assert.False(t, rest)
}

func TestServerUnmatchedFinishIsIgnored(t *testing.T) {
	srv, board := startTestServer(t, types.NewTaskSpec(types.TaskMatMul))
	addr := srv.Addr().String()

	sendOnly(t, addr, protocol.FormatTaskFinish(3.0))

	// The anomaly is logged and dropped; the server keeps assigning.
	spec, rest, err := protocol.ParseAssign(exchange(t, addr, protocol.FormatTaskRequest()))
	require.NoError(t, err)
	require.False(t, rest)
	assert.Equal(t, types.TaskMatMul, spec.Type)
	assert.Equal(t, 0, board.FinishedCount())
}

func TestServerSurvivesMalformedMessages(t *testing.T) {
	srv, board := startTestServer(t, types.NewTaskSpec(types.TaskArray))
	addr := srv.Addr().String()

	assert.Empty(t, exchange(t, addr, "COMPLETE|GARBAGE"))
	assert.Empty(t, exchange(t, addr, "TASK|FINISH|not-a-float"))
	assert.Empty(t, exchange(t, addr, "REGISTER|REQUEST|"))

	spec, rest, err := protocol.ParseAssign(exchange(t, addr, protocol.FormatTaskRequest()))
	require.NoError(t, err)
	require.False(t, rest)
	assert.Equal(t, types.TaskArray, spec.Type)
	assert.Equal(t, 1, board.InFlightCount())
}

func TestServerResolvesRegisteredHostname(t *testing.T) {
	srv, board := startTestServer(t, types.NewTaskSpec(types.TaskPrimes))
	addr := srv.Addr().String()

	exchange(t, addr, protocol.FormatRegister("node-7"))

	_, rest, err := protocol.ParseAssign(exchange(t, addr, protocol.FormatTaskRequest()))
	require.NoError(t, err)
	require.False(t, rest)

	status := board.Status()
	_, ok := status.InFlight["node-7"]
	assert.True(t, ok, "in-flight work is tracked under the registered hostname")
}

func TestServerStopClosesListener(t *testing.T) {
	srv, _ := startTestServer(t)
	addr := srv.Addr().String()

	require.NoError(t, srv.Stop(time.Second))
	require.NoError(t, srv.Stop(time.Second), "Stop is idempotent")

	_, err := net.Dial("tcp", addr)
	assert.Error(t, err)
}
