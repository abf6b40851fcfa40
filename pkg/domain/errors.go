package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSerializable is returned when a Bot handle would have to be encoded.
	ErrNotSerializable = errors.New("value is not serializable")

	// ErrCycle is returned by TopologicalSort when execution edges form a cycle.
	ErrCycle = errors.New("execution edges contain a cycle")

	// ErrUnknownNode is returned when an id does not name a node of the graph.
	ErrUnknownNode = errors.New("unknown node")

	ErrDuplicateNode = errors.New("duplicate node id")
	ErrDanglingEdge  = errors.New("edge references a missing node")
	ErrSelfLoop      = errors.New("edge connects a node to itself")
	ErrDuplicateEdge = errors.New("duplicate edge")
	ErrEmptyField    = errors.New("required field is empty")

	// ErrStateNotFound is returned by state stores for a missing key.
	ErrStateNotFound = errors.New("state key not found")

	// ErrStateQuotaExceeded is returned when a script would hold more state entries than allowed.
	ErrStateQuotaExceeded = errors.New("state entry quota exceeded")

	// ErrStateUnavailable is returned when a node touches state outside a running script.
	ErrStateUnavailable = errors.New("script state is not available")

	// ErrScriptNotFound is returned by loaders and the engine for an unknown script id.
	ErrScriptNotFound = errors.New("script not found")
)

// GraphError reports a structural problem with a graph.
type GraphError struct {
	Op   string // operation that failed, e.g. "build" or "sort"
	Node string // offending node, if any
	Edge string // offending edge id, if any
	Err  error
}

func (e *GraphError) Error() string {
	switch {
	case e.Edge != "":
		return fmt.Sprintf("graph %s: edge %s: %v", e.Op, e.Edge, e.Err)
	case e.Node != "":
		return fmt.Sprintf("graph %s: node %s: %v", e.Op, e.Node, e.Err)
	default:
		return fmt.Sprintf("graph %s: %v", e.Op, e.Err)
	}
}

func (e *GraphError) Unwrap() error { return e.Err }
