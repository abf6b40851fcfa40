package validator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/aretw0/lattice/pkg/schema"
)

// Kind classifies a validation error.
type Kind string

const (
	InvalidNodeType     Kind = "INVALID_NODE_TYPE"
	MultipleConnections Kind = "MULTIPLE_CONNECTIONS"
	TypeIncompatible    Kind = "TYPE_INCOMPATIBLE"
	RequiredUnconnected Kind = "REQUIRED_UNCONNECTED"
	CycleDetected       Kind = "CYCLE_DETECTED"
)

// Catalog is the part of the registry the validator reads.
type Catalog interface {
	Metadata(nodeType string) (registry.NodeMetadata, bool)
}

// ValidationError is one problem found in a graph.
type ValidationError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	EdgeID  string `json:"edge_id,omitempty"`
	NodeID  string `json:"node_id,omitempty"`
	PortID  string `json:"port_id,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Result is the outcome of Validate.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors"`
	// EdgesToRemove lists redundant edges a caller may drop with PruneEdges.
	EdgesToRemove []string `json:"edges_to_remove,omitempty"`
	// Warnings come from type propagation and never affect Valid.
	Warnings []Diagnostic `json:"warnings,omitempty"`
}

// Err joins the validation errors, or returns nil for a valid graph.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Validate runs the static checks over a graph, in order: node types, connection arity,
// edge types, required inputs and execution cycles. Type propagation warnings are attached.
func Validate(g *domain.Graph, catalog Catalog) Result {
	v := &validation{graph: g, catalog: catalog, removed: make(map[string]bool)}

	v.checkNodeTypes()
	v.checkMultipleConnections()
	v.checkEdgeTypes()
	v.checkRequiredInputs()
	v.checkCycles()

	_, warnings := Propagate(g, catalog)
	return Result{
		Valid:         len(v.errors) == 0,
		Errors:        v.errors,
		EdgesToRemove: v.toRemove,
		Warnings:      warnings,
	}
}

// PruneEdges returns a copy of the graph without the given edges.
func PruneEdges(g *domain.Graph, edgeIDs []string) *domain.Graph {
	if len(edgeIDs) == 0 {
		return g
	}
	return g.WithoutEdges(edgeIDs)
}

type validation struct {
	graph    *domain.Graph
	catalog  Catalog
	errors   []ValidationError
	toRemove []string
	removed  map[string]bool
}

func (v *validation) add(e ValidationError) {
	v.errors = append(v.errors, e)
}

func (v *validation) meta(nodeID string) (registry.NodeMetadata, bool) {
	n, ok := v.graph.Node(nodeID)
	if !ok {
		return registry.NodeMetadata{}, false
	}
	return v.catalog.Metadata(n.Type)
}

func (v *validation) checkNodeTypes() {
	for _, n := range v.graph.Nodes() {
		if _, ok := v.catalog.Metadata(n.Type); !ok {
			v.add(ValidationError{
				Kind:    InvalidNodeType,
				Message: fmt.Sprintf("node %s has unknown type %q", n.ID, n.Type),
				NodeID:  n.ID,
			})
		}
	}
}

func (v *validation) checkMultipleConnections() {
	groups := make(map[string][]domain.Edge)
	var keys []string
	for _, e := range v.graph.DataEdges() {
		meta, ok := v.meta(e.Target)
		if !ok {
			continue
		}
		if p, ok := meta.Input(e.TargetHandle); ok && p.MultiInput {
			continue
		}
		key := e.Target + ":" + e.TargetHandle
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], e)
	}
	sort.Strings(keys)

	for _, key := range keys {
		edges := groups[key]
		if len(edges) < 2 {
			continue
		}
		sort.Slice(edges, func(i, j int) bool { return edges[i].ID() < edges[j].ID() })
		for _, e := range edges[:len(edges)-1] {
			v.toRemove = append(v.toRemove, e.ID())
			v.removed[e.ID()] = true
		}
		first := edges[0]
		v.add(ValidationError{
			Kind:    MultipleConnections,
			Message: fmt.Sprintf("input %s of node %s has %d connections but accepts one", first.TargetHandle, first.Target, len(edges)),
			EdgeID:  first.ID(),
			NodeID:  first.Target,
			PortID:  first.TargetHandle,
		})
	}
}

func (v *validation) checkEdgeTypes() {
	for _, e := range v.graph.DataEdges() {
		if v.removed[e.ID()] {
			continue
		}
		srcMeta, ok := v.meta(e.Source)
		if !ok {
			continue
		}
		tgtMeta, ok := v.meta(e.Target)
		if !ok {
			continue
		}

		src, ok := srcMeta.Output(e.SourceHandle)
		if !ok {
			v.unknownPort(e, e.Source, e.SourceHandle, "output")
			continue
		}
		tgt, ok := tgtMeta.Input(e.TargetHandle)
		if !ok {
			v.unknownPort(e, e.Target, e.TargetHandle, "input")
			continue
		}

		sd, td := src.Desc(), tgt.Desc()
		if sd.HasTypeVariables() || td.HasTypeVariables() {
			continue
		}
		compatible := schema.CanAccept(td.BaseType(), sd.BaseType())
		_, sParam := sd.(schema.Parameterized)
		_, tParam := td.(schema.Parameterized)
		if compatible && sParam && tParam {
			compatible = schema.Unify(sd, td, schema.Bindings{})
		}
		if !compatible {
			v.add(ValidationError{
				Kind:    TypeIncompatible,
				Message: fmt.Sprintf("cannot connect %s (%s) to %s (%s)", e.SourceHandle, sd, e.TargetHandle, td),
				EdgeID:  e.ID(),
				NodeID:  e.Target,
				PortID:  e.TargetHandle,
			})
		}
	}
}

func (v *validation) unknownPort(e domain.Edge, nodeID, port, direction string) {
	v.add(ValidationError{
		Kind:    TypeIncompatible,
		Message: fmt.Sprintf("unknown port: node %s has no %s %q", nodeID, direction, port),
		EdgeID:  e.ID(),
		NodeID:  nodeID,
		PortID:  port,
	})
}

func (v *validation) checkRequiredInputs() {
	for _, n := range v.graph.Nodes() {
		meta, ok := v.catalog.Metadata(n.Type)
		if !ok {
			continue
		}
		connected := make(map[string]bool)
		for _, e := range v.graph.IncomingDataEdges(n.ID) {
			connected[e.TargetHandle] = true
		}
		for _, p := range meta.Inputs {
			if !p.Required || p.IsExec() || connected[p.ID] || p.Default != nil {
				continue
			}
			if _, ok := n.Defaults[p.ID]; ok {
				continue
			}
			v.add(ValidationError{
				Kind:    RequiredUnconnected,
				Message: fmt.Sprintf("required input %s of node %s is not connected", p.ID, n.ID),
				NodeID:  n.ID,
				PortID:  p.ID,
			})
		}
	}
}

func (v *validation) checkCycles() {
	if _, err := v.graph.TopologicalSort(); err != nil {
		v.add(ValidationError{
			Kind:    CycleDetected,
			Message: err.Error(),
		})
	}
}
