package dsl

import "github.com/aretw0/lattice/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Set assigns a per-node default for an input port.
func (n *NodeBuilder) Set(port string, value any) *NodeBuilder {
	if n.node.Defaults == nil {
		n.node.Defaults = make(map[string]any)
	}
	n.node.Defaults[port] = value
	return n
}

// Mute marks the node as bypassed.
func (n *NodeBuilder) Mute() *NodeBuilder {
	n.node.Muted = true
	return n
}

// Then connects the "out" handle to the "in" handle of each target.
func (n *NodeBuilder) Then(targets ...string) *NodeBuilder {
	for _, t := range targets {
		n.builder.Exec(n.node.ID, execOut, t, execIn)
	}
	return n
}

// On connects a named exec handle (e.g. "true", "exec_error") to the "in" handle of target.
func (n *NodeBuilder) On(handle, target string) *NodeBuilder {
	n.builder.Exec(n.node.ID, handle, target, execIn)
	return n
}

// From wires an input port of this node to an output port of another node.
func (n *NodeBuilder) From(port, source, sourcePort string) *NodeBuilder {
	n.builder.Data(source, sourcePort, n.node.ID, port)
	return n
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}
