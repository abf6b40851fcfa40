package nodes

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/aretw0/lattice/pkg/schema"
)

func binaryLogic(nodeType, name string, op func(a, b bool) bool) definition {
	return definition{
		meta: registry.NodeMetadata{
			Type: nodeType, DisplayName: name, Category: "Logic",
			Inputs:  []registry.PortDefinition{port("a", schema.Boolean, false), port("b", schema.Boolean, false)},
			Outputs: []registry.PortDefinition{{ID: "result", Type: schema.Boolean}},
		},
		fn: func(_ context.Context, _ ports.Runtime, in map[string]domain.Value) (map[string]domain.Value, error) {
			return out("result", domain.Bool(op(domain.AsBool(in["a"], false), domain.AsBool(in["b"], false)))), nil
		},
	}
}

func logicNodes() []definition {
	return []definition{
		binaryLogic("logic.and", "And", func(a, b bool) bool { return a && b }),
		binaryLogic("logic.or", "Or", func(a, b bool) bool { return a || b }),
		{
			meta: registry.NodeMetadata{
				Type: "logic.not", DisplayName: "Not", Category: "Logic",
				Inputs:  []registry.PortDefinition{port("value", schema.Boolean, false)},
				Outputs: []registry.PortDefinition{{ID: "result", Type: schema.Boolean}},
			},
			fn: func(_ context.Context, _ ports.Runtime, in map[string]domain.Value) (map[string]domain.Value, error) {
				return out("result", domain.Bool(!domain.AsBool(in["value"], false))), nil
			},
		},
	}
}
