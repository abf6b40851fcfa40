package runtime

import (
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/aretw0/lattice/pkg/schema"
)

// MetadataSource looks up node type metadata.
type MetadataSource interface {
	Metadata(nodeType string) (registry.NodeMetadata, bool)
}

// DefaultsSource supplies the parsed port defaults of a node type.
type DefaultsSource interface {
	DefaultInputs(nodeType string) map[string]domain.Value
}

// BaseInputs returns the inputs a node starts from: the port defaults of its type,
// overridden by the defaults stored on the node in the graph.
func BaseInputs(defaults DefaultsSource, node domain.Node) (map[string]domain.Value, error) {
	inputs := defaults.DefaultInputs(node.Type)
	if inputs == nil {
		inputs = make(map[string]domain.Value)
	}
	if len(node.Defaults) == 0 {
		return inputs, nil
	}
	overrides, err := domain.ValuesFromMap(node.Defaults)
	if err != nil {
		return nil, fmt.Errorf("defaults of %s: %w", node.ID, err)
	}
	for k, v := range overrides {
		inputs[k] = v
	}
	return inputs, nil
}

// ConvertEdgeValue converts a value travelling along a data edge to the type of its target port.
// The value is returned unchanged when either port is unknown.
func ConvertEdgeValue(catalog MetadataSource, g *domain.Graph, e domain.Edge, v domain.Value) domain.Value {
	src, ok := portOf(catalog, g, e.Source, e.SourceHandle, false)
	if !ok {
		return v
	}
	dst, ok := portOf(catalog, g, e.Target, e.TargetHandle, true)
	if !ok {
		return v
	}
	return schema.Convert(v, src.Type, dst.Type)
}

func portOf(catalog MetadataSource, g *domain.Graph, nodeID, portID string, input bool) (registry.PortDefinition, bool) {
	n, ok := g.Node(nodeID)
	if !ok {
		return registry.PortDefinition{}, false
	}
	meta, ok := catalog.Metadata(n.Type)
	if !ok {
		return registry.PortDefinition{}, false
	}
	if input {
		return meta.Input(portID)
	}
	return meta.Output(portID)
}

// ApplyEdgeValues writes resolved data edge values into inputs. values[i] belongs to edges[i];
// a nil entry means the edge produced nothing and leaves the current input alone.
// A MultiInput port receives a List of every resolved value, in edge order.
func ApplyEdgeValues(inputs map[string]domain.Value, meta registry.NodeMetadata, edges []domain.Edge, values []domain.Value) {
	multi := make(map[string][]domain.Value)
	for i, e := range edges {
		v := values[i]
		if v == nil {
			continue
		}
		if p, ok := meta.Input(e.TargetHandle); ok && p.MultiInput {
			multi[e.TargetHandle] = append(multi[e.TargetHandle], v)
			continue
		}
		inputs[e.TargetHandle] = v
	}
	for port, vs := range multi {
		inputs[port] = domain.NewList(vs...)
	}
}

// mergeContext returns a new execution context holding ctx overlaid with the non-EXEC outputs of a node.
func mergeContext(ctx map[string]domain.Value, meta registry.NodeMetadata, outputs map[string]domain.Value) map[string]domain.Value {
	next := make(map[string]domain.Value, len(ctx)+len(outputs))
	for k, v := range ctx {
		next[k] = v
	}
	for k, v := range outputs {
		if p, ok := meta.Output(k); ok && p.IsExec() {
			continue
		}
		next[k] = v
	}
	return next
}
