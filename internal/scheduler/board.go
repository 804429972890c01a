// Package scheduler implements the control-plane service that hands out
// benchmark tasks to worker nodes: a waiting queue, a per-node in-flight
// map, a node registry and a finished list behind one lock, plus the TCP
// server that drives them one request/response exchange per connection.
package scheduler

import (
	"errors"
	"sort"
	"sync"
	"time"

	"yqhp/benchgrid/pkg/types"
)

// ErrNodeBusy reports a task request from a node that already holds an
// in-flight assignment. The request is a protocol violation; the connection
// is dropped without a response.
var ErrNodeBusy = errors.New("node already has an in-flight assignment")

// Board owns all mutable scheduler state. A single mutex covers the waiting
// queue, the in-flight map, the node registry and the finished list, so a
// queue pop and its in-flight record are one atomic unit and no lock
// ordering exists to get wrong.
type Board struct {
	mu sync.Mutex

	popOrder types.PopOrder
	waiting  []types.TaskSpec
	inFlight map[string]types.TaskSpec
	finished []types.TaskSpec
	seeded   int

	nodes      map[string]types.NodeIdentity
	addrToNode map[string]string
}

// NewBoard returns an empty board popping in the given order. An invalid
// order falls back to LIFO, the historical default.
func NewBoard(popOrder types.PopOrder) *Board {
	if !popOrder.Valid() {
		popOrder = types.PopLIFO
	}
	return &Board{
		popOrder:   popOrder,
		inFlight:   make(map[string]types.TaskSpec),
		nodes:      make(map[string]types.NodeIdentity),
		addrToNode: make(map[string]string),
	}
}

// Seed installs the task set. The waiting queue and the seeded total are
// replaced; assignments and finish reports already recorded are kept.
func (b *Board) Seed(specs []types.TaskSpec) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.waiting = make([]types.TaskSpec, len(specs))
	copy(b.waiting, specs)
	b.seeded = len(specs)
}

// Register records a node under its hostname and remembers which remote
// host it registered from, so later task requests from that host resolve to
// the hostname. Re-registration is idempotent; isNew reports whether the
// hostname was previously unknown.
func (b *Board) Register(hostname, remoteHost string) (isNew bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if remoteHost != "" {
		b.addrToNode[remoteHost] = hostname
	}
	if _, ok := b.nodes[hostname]; ok {
		return false
	}
	b.nodes[hostname] = types.NodeIdentity{ID: hostname, RegisteredAt: time.Now()}
	return true
}

// ResolveNode maps a connection's remote host to the hostname it registered
// under. Unregistered hosts are identified by their address, matching the
// registry's "hostname or connection-address" contract.
func (b *Board) ResolveNode(remoteHost string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if hostname, ok := b.addrToNode[remoteHost]; ok {
		return hostname
	}
	return remoteHost
}

// Assign pops one task and records it in flight for node, as a single
// atomic step. ok is false when the queue is empty (the caller replies
// REST). A node that already holds an assignment gets ErrNodeBusy: one
// in-flight task per node id is the invariant, so a second request before
// the finish report is a protocol violation.
func (b *Board) Assign(node string) (spec types.TaskSpec, ok bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, busy := b.inFlight[node]; busy {
		return types.TaskSpec{}, false, ErrNodeBusy
	}
	if len(b.waiting) == 0 {
		return types.TaskSpec{}, false, nil
	}

	if b.popOrder == types.PopFIFO {
		spec = b.waiting[0]
		b.waiting = b.waiting[1:]
	} else {
		spec = b.waiting[len(b.waiting)-1]
		b.waiting = b.waiting[:len(b.waiting)-1]
	}

	b.inFlight[node] = spec
	return spec, true, nil
}

// Finish removes node's in-flight assignment and appends it to the
// finished list. matched is false for a finish report with no assignment on
// record; such reports are logged and otherwise ignored. complete reports
// whether this finish was the last of the seeded set.
func (b *Board) Finish(node string) (spec types.TaskSpec, matched, complete bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	spec, matched = b.inFlight[node]
	if !matched {
		return types.TaskSpec{}, false, false
	}

	delete(b.inFlight, node)
	b.finished = append(b.finished, spec)
	return spec, true, len(b.finished) == b.seeded
}

// Status returns a consistent snapshot of the board for the status API.
func (b *Board) Status() types.SchedulerStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	inFlight := make(map[string]types.TaskSpec, len(b.inFlight))
	for node, spec := range b.inFlight {
		inFlight[node] = spec
	}

	nodes := make([]types.NodeIdentity, 0, len(b.nodes))
	for _, n := range b.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	return types.SchedulerStatus{
		Waiting:  len(b.waiting),
		InFlight: inFlight,
		Finished: len(b.finished),
		Seeded:   b.seeded,
		Complete: b.seeded > 0 && len(b.finished) == b.seeded,
		Nodes:    nodes,
	}
}

// Nodes returns the registered nodes sorted by id.
func (b *Board) Nodes() []types.NodeIdentity {
	return b.Status().Nodes
}

// Waiting returns the number of tasks still queued.
func (b *Board) Waiting() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.waiting)
}

// InFlightCount returns the number of assignments awaiting a finish report.
func (b *Board) InFlightCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.inFlight)
}

// NodeCount returns the number of distinct registered nodes.
func (b *Board) NodeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.nodes)
}

// FinishedCount returns the number of matched finish reports.
func (b *Board) FinishedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.finished)
}
