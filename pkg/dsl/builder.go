package dsl

import (
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
)

// Standard exec handles used by the shorthand methods.
const (
	execOut = "out"
	execIn  = "in"
)

// Builder manages the graph construction.
type Builder struct {
	id    string
	name  string
	order []string
	nodes map[string]*NodeBuilder
	edges []domain.Edge
}

// New creates a new graph builder for a script.
func New(id, name string) *Builder {
	return &Builder{
		id:    id,
		name:  name,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node of the given type.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id, nodeType string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node:    domain.Node{ID: id, Type: nodeType},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Exec adds an EXECUTION edge.
func (b *Builder) Exec(source, sourceHandle, target, targetHandle string) *Builder {
	b.edges = append(b.edges, domain.ExecEdge(source, sourceHandle, target, targetHandle))
	return b
}

// Data adds a DATA edge.
func (b *Builder) Data(source, sourceHandle, target, targetHandle string) *Builder {
	b.edges = append(b.edges, domain.DataEdge(source, sourceHandle, target, targetHandle))
	return b
}

// Build compiles the builder into an immutable graph.
// Structural errors (dangling edges, self loops, duplicates) surface here.
func (b *Builder) Build() (*domain.Graph, error) {
	nodes := make([]domain.Node, 0, len(b.order))
	for _, id := range b.order {
		nodes = append(nodes, b.nodes[id].Build())
	}

	g, err := domain.NewGraph(b.id, b.name, nodes, b.edges)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph %s: %w", b.id, err)
	}
	return g, nil
}

// MustBuild is Build for fixtures. It panics on error.
func (b *Builder) MustBuild() *domain.Graph {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}
