package domain

import (
	"fmt"
	"strings"
)

// EdgeKind distinguishes control flow from value flow.
type EdgeKind string

const (
	// EdgeExecution orders node executions.
	EdgeExecution EdgeKind = "execution"
	// EdgeData carries a value from an output port to an input port.
	EdgeData EdgeKind = "data"
)

// ParseEdgeKind accepts the canonical names case-insensitively, plus "exec".
func ParseEdgeKind(s string) (EdgeKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "execution", "exec":
		return EdgeExecution, nil
	case "data":
		return EdgeData, nil
	default:
		return "", fmt.Errorf("unknown edge kind %q", s)
	}
}

// Node is one instance of a node type inside a graph.
type Node struct {
	ID   string
	Type string
	// Defaults holds per-instance input values keyed by input port id.
	Defaults map[string]any
	// Muted nodes are bypassed at runtime.
	Muted bool
	// Folded holds outputs precomputed by constant folding. Nil when the node was not folded.
	Folded map[string]Value
}

// IsFolded reports whether the node carries precomputed outputs.
func (n Node) IsFolded() bool { return n.Folded != nil }

// Edge connects an output handle of one node to an input handle of another.
type Edge struct {
	Source       string
	SourceHandle string
	Target       string
	TargetHandle string
	Kind         EdgeKind
}

// ID returns the composite edge id "source:handle->target:handle".
func (e Edge) ID() string {
	return e.Source + ":" + e.SourceHandle + "->" + e.Target + ":" + e.TargetHandle
}

func (e Edge) key() string {
	return e.ID() + ":" + string(e.Kind)
}

// ExecEdge is shorthand for an execution edge.
func ExecEdge(source, sourceHandle, target, targetHandle string) Edge {
	return Edge{Source: source, SourceHandle: sourceHandle, Target: target, TargetHandle: targetHandle, Kind: EdgeExecution}
}

// DataEdge is shorthand for a data edge.
func DataEdge(source, sourceHandle, target, targetHandle string) Edge {
	return Edge{Source: source, SourceHandle: sourceHandle, Target: target, TargetHandle: targetHandle, Kind: EdgeData}
}
