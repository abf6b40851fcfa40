package ports

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
)

// Node is the behaviour of one node type. Implementations hold no per-run state:
// the same instance may execute concurrently for different runs and node ids.
type Node interface {
	// Execute computes the node outputs from its resolved inputs.
	// Keys of EXEC output ports present in the result select which handles fire.
	Execute(ctx context.Context, rt Runtime, inputs map[string]domain.Value) (map[string]domain.Value, error)
}

// NodeFunc adapts a plain function to the Node interface.
type NodeFunc func(ctx context.Context, rt Runtime, inputs map[string]domain.Value) (map[string]domain.Value, error)

// Execute calls f.
func (f NodeFunc) Execute(ctx context.Context, rt Runtime, inputs map[string]domain.Value) (map[string]domain.Value, error) {
	return f(ctx, rt, inputs)
}

// Runtime exposes the capabilities of the run a node executes in.
type Runtime interface {
	ScriptID() string
	NodeID() string
	RunID() string

	// State returns the script-scoped state store.
	State() ScriptState

	// Log forwards a message to the script's event listener.
	Log(level, message string)

	// ExecuteDownstream fires the EXEC handle itself and blocks until that branch finishes.
	// outputs are merged into the execution context seen by downstream nodes.
	ExecuteDownstream(ctx context.Context, handle string, outputs map[string]domain.Value) error
}
