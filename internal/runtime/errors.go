package runtime

import (
	"errors"
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/registry"
)

var (
	// ErrExecutionLimitExceeded aborts a run that started more nodes than MaxExecutionCount.
	ErrExecutionLimitExceeded = errors.New("execution limit exceeded")

	// ErrSinkAlreadyPublished is returned when a node publishes its outputs twice in one run.
	ErrSinkAlreadyPublished = errors.New("node outputs already published")

	// ErrNodeTimeout fails a node that ran longer than NodeTimeout.
	ErrNodeTimeout = errors.New("node execution timed out")

	// ErrNodePanic fails a node whose implementation panicked.
	ErrNodePanic = errors.New("node panicked")

	// Re-exported so callers of the engine need a single import.
	ErrUnknownNode     = domain.ErrUnknownNode
	ErrUnknownNodeType = registry.ErrUnknownNodeType

	errEdgeTimeout = errors.New("data edge timed out")
)

// NodeError ties a failure to the node that produced it.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }
