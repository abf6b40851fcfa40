package nodes

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/aretw0/lattice/pkg/schema"
)

func constant(nodeType, name string, t schema.PortType, def any) definition {
	return definition{
		meta: registry.NodeMetadata{
			Type: nodeType, DisplayName: name, Category: "Constants",
			Inputs:  []registry.PortDefinition{port("value", t, def)},
			Outputs: []registry.PortDefinition{{ID: "value", Type: t}},
		},
		fn: func(_ context.Context, _ ports.Runtime, in map[string]domain.Value) (map[string]domain.Value, error) {
			v := in["value"]
			if v == nil {
				v = domain.Null()
			}
			return out("value", v), nil
		},
	}
}

func constantNodes() []definition {
	return []definition{
		constant("constant.number", "Number", schema.Number, 0),
		constant("constant.string", "String", schema.String, ""),
		constant("constant.boolean", "Boolean", schema.Boolean, false),
		constant("constant.vector3", "Vector3", schema.Vector3, "[0, 0, 0]"),
		constant("constant.list", "List", schema.List, "[]"),
	}
}
