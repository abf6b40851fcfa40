package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/registry"
)

// Catalog is what the engine needs from a node registry.
type Catalog interface {
	MetadataSource
	DefaultsSource
	Create(nodeType string) (ports.Node, error)
}

// Engine executes graphs. It holds no per-script or per-run state and is safe for concurrent use.
type Engine struct {
	catalog Catalog
	logger  *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine over a node catalog.
func NewEngine(catalog Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs every trigger of the graph concurrently with empty inputs and reports
// OnScriptCompleted. The run succeeds when no node failed and no run was aborted.
func (e *Engine) Execute(ctx context.Context, g *domain.Graph, script *ScriptContext) error {
	listener := script.Listener()
	if _, err := g.TopologicalSort(); err != nil {
		listener.OnLog("error", err.Error())
		listener.OnScriptCompleted(false)
		return err
	}

	entries := e.Triggers(g)
	errs := make([]error, len(entries))
	failed := make([]bool, len(entries))

	var wg sync.WaitGroup
	for i, id := range entries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			failed[i], errs[i] = e.execute(ctx, g, id, script, nil)
		}()
	}
	wg.Wait()

	err := errors.Join(errs...)
	success := err == nil
	for _, f := range failed {
		if f {
			success = false
		}
	}
	listener.OnScriptCompleted(success)
	return err
}

// Triggers returns the ids of the nodes whose type is flagged as a trigger, sorted.
func (e *Engine) Triggers(g *domain.Graph) []string {
	var out []string
	for _, n := range g.Nodes() {
		if meta, ok := e.catalog.Metadata(n.Type); ok && meta.Trigger {
			out = append(out, n.ID)
		}
	}
	return out
}

// ExecuteFromTrigger starts a fresh run at entryID. inputs seed the execution context of the entry node.
//
// It returns nil when the run ends normally, even if nodes failed; failures reach the listener only.
// It returns ErrExecutionLimitExceeded when the execution quota aborted the run, and context.Canceled
// when the script or ctx was cancelled.
func (e *Engine) ExecuteFromTrigger(ctx context.Context, g *domain.Graph, entryID string, script *ScriptContext, inputs map[string]domain.Value) error {
	_, err := e.execute(ctx, g, entryID, script, inputs)
	return err
}

func (e *Engine) execute(ctx context.Context, g *domain.Graph, entryID string, script *ScriptContext, inputs map[string]domain.Value) (bool, error) {
	listener := script.Listener()
	node, ok := g.Node(entryID)
	if !ok {
		err := &NodeError{Node: entryID, Err: ErrUnknownNode}
		listener.OnNodeError(entryID, err.Error())
		return true, err
	}
	if _, ok := e.catalog.Metadata(node.Type); !ok {
		err := &NodeError{Node: entryID, Err: fmt.Errorf("%w: %s", ErrUnknownNodeType, node.Type)}
		listener.OnNodeError(entryID, err.Error())
		return true, err
	}
	if script.Cancelled() {
		return false, context.Canceled
	}

	if err := script.acquire(ctx); err != nil {
		return false, err
	}
	defer script.release()

	r := newRun(ctx, g, script)
	defer r.close()

	log := e.logger.With("script", script.ID(), "run_id", r.id, "trigger", entryID)
	log.Debug("run started")
	start := time.Now()

	r.claim(entryID)
	e.executeNode(r, entryID, inputs, nil)
	r.pending.Wait()

	err := r.err()
	log.Debug("run finished", "elapsed", time.Since(start), "executed", r.count.Load(), "failed", r.failed.Load(), "err", err)
	return r.failed.Load(), err
}

// executeNode runs one node and everything downstream of its EXEC outputs.
// It returns once the node and its synchronous branches are done.
// slots is the limit of the fan-out that scheduled the node, or nil.
func (e *Engine) executeNode(r *run, id string, execCtx map[string]domain.Value, slots *semaphore.Weighted) {
	if r.ctx.Err() != nil {
		return
	}
	listener := r.script.Listener()
	node, ok := r.graph.Node(id)
	if !ok {
		return
	}

	if n := r.count.Add(1); n > int64(r.quotas.MaxExecutionCount) {
		err := fmt.Errorf("%w: %d nodes started, limit is %d", ErrExecutionLimitExceeded, n, r.quotas.MaxExecutionCount)
		r.failed.Store(true)
		listener.OnNodeError(id, err.Error())
		e.logger.Error("run aborted", "script", r.script.ID(), "run_id", r.id, "node", id, "err", err)
		r.abort(ErrExecutionLimitExceeded)
		return
	}

	meta, ok := e.catalog.Metadata(node.Type)
	if !ok {
		e.fail(r, node, meta, execCtx, fmt.Errorf("%w: %s", ErrUnknownNodeType, node.Type))
		return
	}

	bypass := node.IsFolded() || node.Muted
	var inputs map[string]domain.Value
	if !bypass {
		var err error
		if inputs, err = e.resolveInputs(r, node, meta, execCtx); err != nil {
			e.fail(r, node, meta, execCtx, err)
			return
		}
		if r.ctx.Err() != nil {
			return
		}
	}

	listener.OnNodeStarted(id)
	start := time.Now()

	var (
		outputs map[string]domain.Value
		handles []string
		err     error
	)
	switch {
	case node.IsFolded():
		outputs = node.Folded
		handles = activeHandles(meta, outputs)
	case node.Muted:
		outputs = mergeContext(nil, meta, execCtx)
		handles = []string{registry.PortOut}
	default:
		outputs, err = e.invoke(r, node, meta, inputs, execCtx, slots)
		handles = activeHandles(meta, outputs)
	}
	if err != nil {
		e.fail(r, node, meta, execCtx, err)
		return
	}

	e.publish(r, id, outputs)
	listener.OnNodeCompleted(id, outputs, time.Since(start))

	if len(handles) == 0 {
		return
	}
	next := mergeContext(execCtx, meta, outputs)
	var targets []string
	for _, h := range handles {
		targets = append(targets, r.graph.NextExecutionNodes(id, h)...)
	}
	e.fanOut(r, targets, next)
}

// activeHandles selects the EXEC outputs to follow: those present as keys in outputs,
// otherwise the standard out port when the node has one.
func activeHandles(meta registry.NodeMetadata, outputs map[string]domain.Value) []string {
	var active []string
	for _, p := range meta.ExecOutputs() {
		if _, ok := outputs[p.ID]; ok {
			active = append(active, p.ID)
		}
	}
	if len(active) > 0 {
		return active
	}
	if p, ok := meta.Output(registry.PortOut); ok && p.IsExec() {
		return []string{registry.PortOut}
	}
	return nil
}

// fanOut executes targets concurrently and waits for all of them. Targets already scheduled in this run
// are skipped.
//
// At most MaxParallelBranches targets run their node body at the same time. Waiting on data edges and
// running further downstream hold no slot, so a join never starves a sibling branch it waits for.
func (e *Engine) fanOut(r *run, targets []string, execCtx map[string]domain.Value) {
	slots := semaphore.NewWeighted(int64(r.quotas.MaxParallelBranches))
	var g errgroup.Group
	for _, target := range targets {
		if r.ctx.Err() != nil {
			break
		}
		if !r.claim(target) {
			e.logger.Debug("node already scheduled", "script", r.script.ID(), "run_id", r.id, "node", target)
			continue
		}
		g.Go(func() error {
			e.executeNode(r, target, execCtx, slots)
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Engine) publish(r *run, id string, outputs map[string]domain.Value) {
	if err := r.sinks[id].publish(outputs); err != nil {
		e.logger.Warn("duplicate publish ignored", "script", r.script.ID(), "run_id", r.id, "node", id, "err", err)
	}
}

// fail reports a node failure, releases its waiters with an empty result and routes exec_error when present.
func (e *Engine) fail(r *run, node domain.Node, meta registry.NodeMetadata, execCtx map[string]domain.Value, err error) {
	r.failed.Store(true)
	r.script.Listener().OnNodeError(node.ID, err.Error())
	e.logger.Warn("node failed", "script", r.script.ID(), "run_id", r.id, "node", node.ID, "err", err)
	e.publish(r, node.ID, nil)

	if _, ok := meta.Output(registry.PortExecError); !ok {
		return
	}
	outputs := map[string]domain.Value{
		registry.PortExecError: domain.Bool(true),
		"success":              domain.Bool(false),
		"errorMessage":         domain.Str(err.Error()),
	}
	e.fanOut(r, r.graph.NextExecutionNodes(node.ID, registry.PortExecError), mergeContext(execCtx, meta, outputs))
}

// resolveInputs layers metadata defaults, graph defaults, the execution context and data edge values.
func (e *Engine) resolveInputs(r *run, node domain.Node, meta registry.NodeMetadata, execCtx map[string]domain.Value) (map[string]domain.Value, error) {
	inputs, err := BaseInputs(e.catalog, node)
	if err != nil {
		return nil, err
	}
	for k, v := range execCtx {
		inputs[k] = v
	}

	edges := r.graph.IncomingDataEdges(node.ID)
	if len(edges) == 0 {
		return inputs, nil
	}
	values := make([]domain.Value, len(edges))
	var wg sync.WaitGroup
	for i, edge := range edges {
		wg.Add(1)
		go func() {
			defer wg.Done()
			values[i] = e.resolveEdge(r, edge)
		}()
	}
	wg.Wait()

	ApplyEdgeValues(inputs, meta, edges, values)
	return inputs, nil
}

// resolveEdge waits for the source of a data edge and returns the converted value, or nil.
// A data-only source is scheduled the first time any edge asks for it.
func (e *Engine) resolveEdge(r *run, edge domain.Edge) domain.Value {
	if e.isDataOnly(r.graph, edge.Source) && r.claim(edge.Source) {
		r.pending.Add(1)
		go func() {
			defer r.pending.Done()
			e.executeNode(r, edge.Source, nil, nil)
		}()
	}

	outputs, err := r.sinks[edge.Source].wait(r.ctx, r.quotas.DataEdgeTimeout)
	if err != nil {
		if errors.Is(err, errEdgeTimeout) {
			msg := fmt.Sprintf("data edge %s timed out after %s", edge.ID(), r.quotas.DataEdgeTimeout)
			r.script.Listener().OnLog("warn", msg)
			e.logger.Warn("data edge timed out", "script", r.script.ID(), "run_id", r.id, "edge", edge.ID())
		}
		return nil
	}
	v, ok := outputs[edge.SourceHandle]
	if !ok {
		return nil
	}
	return ConvertEdgeValue(e.catalog, r.graph, edge, v)
}

// isDataOnly reports whether a node is evaluated on demand: no incoming EXECUTION edge and not a trigger.
func (e *Engine) isDataOnly(g *domain.Graph, id string) bool {
	if g.HasIncomingExecution(id) {
		return false
	}
	n, ok := g.Node(id)
	if !ok {
		return false
	}
	meta, ok := e.catalog.Metadata(n.Type)
	return !ok || !meta.Trigger
}

// invoke calls the node implementation inside a fan-out slot, bounded by NodeTimeout.
// A node abandoned on timeout keeps running in the background; the run waits for it before finishing.
func (e *Engine) invoke(r *run, node domain.Node, meta registry.NodeMetadata, inputs, execCtx map[string]domain.Value, slots *semaphore.Weighted) (map[string]domain.Value, error) {
	impl, err := e.catalog.Create(node.Type)
	if err != nil {
		return nil, err
	}
	slot := &branchSlot{sem: slots}
	if err := slot.acquire(r.ctx); err != nil {
		return nil, context.Cause(r.ctx)
	}
	defer slot.close()
	rt := &nodeRuntime{engine: e, run: r, node: node, meta: meta, execCtx: execCtx, slot: slot}

	timeout := r.quotas.NodeTimeout
	if timeout <= 0 {
		return safeExecute(r.ctx, impl, rt, inputs)
	}

	ctx, cancel := context.WithTimeout(r.ctx, timeout)
	defer cancel()

	type result struct {
		outputs map[string]domain.Value
		err     error
	}
	done := make(chan result, 1)
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		out, err := safeExecute(ctx, impl, rt, inputs)
		done <- result{out, err}
	}()

	select {
	case res := <-done:
		return res.outputs, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrNodeTimeout, timeout)
		}
		return nil, context.Cause(ctx)
	}
}

func safeExecute(ctx context.Context, impl ports.Node, rt ports.Runtime, inputs map[string]domain.Value) (outputs map[string]domain.Value, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrNodePanic, rec)
		}
	}()
	return impl.Execute(ctx, rt, inputs)
}
