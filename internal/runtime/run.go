package runtime

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/aretw0/lattice/pkg/domain"
)

// run is the state of one trigger invocation. Concurrent invocations never share a run.
type run struct {
	id     string
	graph  *domain.Graph
	script *ScriptContext
	quotas Quotas

	ctx    context.Context
	cancel context.CancelCauseFunc
	stop   func() bool

	// one sink per node, created up front and never modified afterwards
	sinks map[string]*sink
	count atomic.Int64
	// failed is set when any node reported an error
	failed atomic.Bool

	mu      sync.Mutex
	claimed map[string]bool

	// background evaluations of data-only nodes
	pending sync.WaitGroup
}

func newRun(parent context.Context, g *domain.Graph, script *ScriptContext) *run {
	ctx, cancel := context.WithCancelCause(parent)
	r := &run{
		id:      uuid.NewString(),
		graph:   g,
		script:  script,
		quotas:  script.Quotas(),
		ctx:     ctx,
		cancel:  cancel,
		sinks:   make(map[string]*sink, g.Len()),
		claimed: make(map[string]bool),
	}
	for _, id := range g.NodeIDs() {
		r.sinks[id] = newSink()
	}
	r.stop = context.AfterFunc(script.ctx, func() {
		cancel(context.Canceled)
	})
	return r
}

// claim marks a node as scheduled. It returns false when the node was already scheduled in this run,
// so every node executes at most once per run.
func (r *run) claim(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimed[id] {
		return false
	}
	r.claimed[id] = true
	return true
}

func (r *run) abort(cause error) {
	r.cancel(cause)
}

// err reports why the run stopped early, or nil.
func (r *run) err() error {
	if r.ctx.Err() == nil {
		return nil
	}
	return context.Cause(r.ctx)
}

func (r *run) close() {
	r.stop()
	r.cancel(nil)
}
