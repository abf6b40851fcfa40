package runtime

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/registry"
)

// nodeRuntime is the ports.Runtime handed to one node execution.
type nodeRuntime struct {
	engine  *Engine
	run     *run
	node    domain.Node
	meta    registry.NodeMetadata
	execCtx map[string]domain.Value
	slot    *branchSlot
}

var _ ports.Runtime = (*nodeRuntime)(nil)

func (rt *nodeRuntime) ScriptID() string         { return rt.run.script.ID() }
func (rt *nodeRuntime) NodeID() string           { return rt.node.ID }
func (rt *nodeRuntime) RunID() string            { return rt.run.id }
func (rt *nodeRuntime) State() ports.ScriptState { return rt.run.script.State() }

func (rt *nodeRuntime) Log(level, message string) {
	rt.run.script.Listener().OnLog(level, message)
}

// ExecuteDownstream runs the branch behind handle to completion. outputs join the execution context.
// The node gives up its fan-out slot while the branch runs.
func (rt *nodeRuntime) ExecuteDownstream(ctx context.Context, handle string, outputs map[string]domain.Value) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := rt.run.err(); err != nil {
		return err
	}
	next := mergeContext(rt.execCtx, rt.meta, outputs)
	rt.slot.release()
	rt.engine.fanOut(rt.run, rt.run.graph.NextExecutionNodes(rt.node.ID, handle), next)
	if err := rt.slot.acquire(ctx); err != nil {
		return err
	}
	return rt.run.err()
}
