package validator

import (
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/schema"
)

// DiagnosticKind classifies a propagation warning.
type DiagnosticKind string

const GenericMismatch DiagnosticKind = "GENERIC_MISMATCH"

// Diagnostic is a non-fatal finding of type propagation.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
	EdgeID  string         `json:"edge_id"`
	Source  string         `json:"source"`
	Target  string         `json:"target"`
}

// Propagate infers type variable bindings per node by pushing concrete output descriptors
// forward along DATA edges until nothing changes.
// The walk is bounded to 3 visits per edge, so inconsistent graphs still terminate.
func Propagate(g *domain.Graph, catalog Catalog) (map[string]schema.Bindings, []Diagnostic) {
	bindings := make(map[string]schema.Bindings, g.Len())
	for _, n := range g.Nodes() {
		if _, ok := catalog.Metadata(n.Type); ok {
			bindings[n.ID] = schema.Bindings{}
		}
	}

	edges := g.DataEdges()
	limit := 3 * len(edges)
	if limit < 1 {
		limit = 1
	}

	queue := append([]domain.Edge(nil), edges...)
	queued := make(map[string]bool, len(edges))
	for _, e := range edges {
		queued[e.ID()] = true
	}

	var diags []Diagnostic
	reported := make(map[string]bool)

	for visits := 0; len(queue) > 0 && visits < limit; visits++ {
		e := queue[0]
		queue = queue[1:]
		queued[e.ID()] = false

		srcNode, _ := g.Node(e.Source)
		tgtNode, _ := g.Node(e.Target)
		srcMeta, ok := catalog.Metadata(srcNode.Type)
		if !ok {
			continue
		}
		tgtMeta, ok := catalog.Metadata(tgtNode.Type)
		if !ok {
			continue
		}
		src, ok := srcMeta.Output(e.SourceHandle)
		if !ok {
			continue
		}
		tgt, ok := tgtMeta.Input(e.TargetHandle)
		if !ok {
			continue
		}

		generic := src.Desc().HasTypeVariables() || tgt.Desc().HasTypeVariables()
		sd := src.Desc().Resolve(bindings[e.Source])
		if !generic || sd.HasTypeVariables() {
			// Nothing concrete flows yet, or there is nothing to infer.
			continue
		}

		current := bindings[e.Target]
		trial := current.Clone()
		if !schema.Unify(sd, tgt.Desc(), trial) {
			if !reported[e.ID()] {
				reported[e.ID()] = true
				td := tgt.Desc().Resolve(current)
				diags = append(diags, Diagnostic{
					Kind:    GenericMismatch,
					Message: fmt.Sprintf("edge %s: %s does not unify with %s", e.ID(), sd, td),
					EdgeID:  e.ID(),
					Source:  sd.String(),
					Target:  td.String(),
				})
			}
			continue
		}

		if changed(current, trial) {
			bindings[e.Target] = trial
			for _, next := range g.OutgoingDataEdges(e.Target) {
				if !queued[next.ID()] {
					queued[next.ID()] = true
					queue = append(queue, next)
				}
			}
		}
	}

	return bindings, diags
}

func changed(before, after schema.Bindings) bool {
	if len(before) != len(after) {
		return true
	}
	for k, v := range after {
		if prev, ok := before[k]; !ok || !schema.Equal(prev, v) {
			return true
		}
	}
	return false
}

// ResolvedInput returns the descriptor of an input port after propagation.
func ResolvedInput(catalog Catalog, g *domain.Graph, bindings map[string]schema.Bindings, nodeID, port string) (schema.Descriptor, bool) {
	n, ok := g.Node(nodeID)
	if !ok {
		return nil, false
	}
	meta, ok := catalog.Metadata(n.Type)
	if !ok {
		return nil, false
	}
	p, ok := meta.Input(port)
	if !ok {
		return nil, false
	}
	return p.Desc().Resolve(bindings[nodeID]), true
}

// ResolvedOutput returns the descriptor of an output port after propagation.
func ResolvedOutput(catalog Catalog, g *domain.Graph, bindings map[string]schema.Bindings, nodeID, port string) (schema.Descriptor, bool) {
	n, ok := g.Node(nodeID)
	if !ok {
		return nil, false
	}
	meta, ok := catalog.Metadata(n.Type)
	if !ok {
		return nil, false
	}
	p, ok := meta.Output(port)
	if !ok {
		return nil, false
	}
	return p.Desc().Resolve(bindings[nodeID]), true
}
