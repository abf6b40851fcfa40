package domain

import (
	"fmt"
	"sort"
)

// Graph is an immutable node graph. Indices are computed once in NewGraph;
// edits go through methods that return a new Graph.
type Graph struct {
	id    string
	name  string
	nodes map[string]Node
	order []string // node ids, sorted
	edges []Edge

	outgoing     map[string][]Edge // "node:handle" -> edges, any kind
	incomingData map[string][]Edge // node -> data edges targeting it
	outgoingData map[string][]Edge // node -> data edges leaving it
	incomingExec map[string]int    // node -> number of incoming execution edges
}

// NewGraph validates the structure and builds the indices.
// It rejects empty ids or types, duplicate node ids, edges to missing nodes, self loops and duplicate edges.
// Cycles are not rejected here; TopologicalSort reports them.
func NewGraph(id, name string, nodes []Node, edges []Edge) (*Graph, error) {
	g := &Graph{
		id:           id,
		name:         name,
		nodes:        make(map[string]Node, len(nodes)),
		order:        make([]string, 0, len(nodes)),
		edges:        make([]Edge, len(edges)),
		outgoing:     make(map[string][]Edge),
		incomingData: make(map[string][]Edge),
		outgoingData: make(map[string][]Edge),
		incomingExec: make(map[string]int),
	}
	copy(g.edges, edges)

	for _, n := range nodes {
		if n.ID == "" {
			return nil, &GraphError{Op: "build", Err: fmt.Errorf("node id: %w", ErrEmptyField)}
		}
		if n.Type == "" {
			return nil, &GraphError{Op: "build", Node: n.ID, Err: fmt.Errorf("node type: %w", ErrEmptyField)}
		}
		if _, dup := g.nodes[n.ID]; dup {
			return nil, &GraphError{Op: "build", Node: n.ID, Err: ErrDuplicateNode}
		}
		g.nodes[n.ID] = n
		g.order = append(g.order, n.ID)
	}
	sort.Strings(g.order)

	seen := make(map[string]struct{}, len(edges))
	for _, e := range g.edges {
		if _, ok := g.nodes[e.Source]; !ok {
			return nil, &GraphError{Op: "build", Edge: e.ID(), Err: fmt.Errorf("source %q: %w", e.Source, ErrDanglingEdge)}
		}
		if _, ok := g.nodes[e.Target]; !ok {
			return nil, &GraphError{Op: "build", Edge: e.ID(), Err: fmt.Errorf("target %q: %w", e.Target, ErrDanglingEdge)}
		}
		if e.Source == e.Target {
			return nil, &GraphError{Op: "build", Edge: e.ID(), Err: ErrSelfLoop}
		}
		if e.Kind != EdgeExecution && e.Kind != EdgeData {
			return nil, &GraphError{Op: "build", Edge: e.ID(), Err: fmt.Errorf("unknown edge kind %q", e.Kind)}
		}
		if _, dup := seen[e.key()]; dup {
			return nil, &GraphError{Op: "build", Edge: e.ID(), Err: ErrDuplicateEdge}
		}
		seen[e.key()] = struct{}{}

		handleKey := e.Source + ":" + e.SourceHandle
		g.outgoing[handleKey] = append(g.outgoing[handleKey], e)
		switch e.Kind {
		case EdgeData:
			g.incomingData[e.Target] = append(g.incomingData[e.Target], e)
			g.outgoingData[e.Source] = append(g.outgoingData[e.Source], e)
		case EdgeExecution:
			g.incomingExec[e.Target]++
		}
	}

	return g, nil
}

// ID returns the script id.
func (g *Graph) ID() string { return g.id }

// Name returns the script display name.
func (g *Graph) Name() string { return g.name }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.order) }

// Node looks up a node by id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes sorted by id.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.order))
	for i, id := range g.order {
		out[i] = g.nodes[id]
	}
	return out
}

// NodeIDs returns all node ids, sorted.
func (g *Graph) NodeIDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// DataEdges returns the data edges in insertion order.
func (g *Graph) DataEdges() []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Kind == EdgeData {
			out = append(out, e)
		}
	}
	return out
}

// FindTriggerNodes returns the ids of nodes without incoming execution edges, sorted.
func (g *Graph) FindTriggerNodes() []string {
	var out []string
	for _, id := range g.order {
		if g.incomingExec[id] == 0 {
			out = append(out, id)
		}
	}
	return out
}

// HasIncomingExecution reports whether any execution edge targets the node.
func (g *Graph) HasIncomingExecution(id string) bool {
	return g.incomingExec[id] > 0
}

// NextExecutionNodes returns the targets of execution edges leaving the given handle, in edge order.
func (g *Graph) NextExecutionNodes(id, handle string) []string {
	var out []string
	for _, e := range g.outgoing[id+":"+handle] {
		if e.Kind == EdgeExecution {
			out = append(out, e.Target)
		}
	}
	return out
}

// IncomingDataEdges returns the data edges targeting the node, in edge order.
func (g *Graph) IncomingDataEdges(id string) []Edge {
	return append([]Edge(nil), g.incomingData[id]...)
}

// OutgoingDataEdges returns the data edges leaving the node, in edge order.
func (g *Graph) OutgoingDataEdges(id string) []Edge {
	return append([]Edge(nil), g.outgoingData[id]...)
}

// WithFolded returns a copy of the graph where the given nodes carry precomputed outputs.
// Nodes not present in folded keep their current state.
func (g *Graph) WithFolded(folded map[string]map[string]Value) *Graph {
	nodes := g.Nodes()
	for i, n := range nodes {
		if out, ok := folded[n.ID]; ok {
			cp := make(map[string]Value, len(out))
			for k, v := range out {
				cp[k] = v
			}
			nodes[i].Folded = cp
		}
	}
	// Structure is unchanged, so rebuilding cannot fail.
	next, err := NewGraph(g.id, g.name, nodes, g.edges)
	if err != nil {
		panic(fmt.Sprintf("domain: rebuilding folded graph: %v", err))
	}
	return next
}

// WithoutEdges returns a copy of the graph without the edges whose ids are listed.
func (g *Graph) WithoutEdges(ids []string) *Graph {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		if _, ok := drop[e.ID()]; ok {
			continue
		}
		kept = append(kept, e)
	}
	next, err := NewGraph(g.id, g.name, g.Nodes(), kept)
	if err != nil {
		panic(fmt.Sprintf("domain: rebuilding pruned graph: %v", err))
	}
	return next
}
