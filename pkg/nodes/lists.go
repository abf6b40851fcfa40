package nodes

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/aretw0/lattice/pkg/schema"
)

func listNodes() []definition {
	return []definition{
		{
			meta: registry.NodeMetadata{
				Type: "list.first", DisplayName: "First", Category: "List",
				Description: "First element of a list, or null when empty.",
				Inputs:      []registry.PortDefinition{generic("list", schema.List, "LIST<T>")},
				Outputs:     []registry.PortDefinition{generic("value", schema.Any, "T")},
			},
			fn: func(_ context.Context, _ ports.Runtime, in map[string]domain.Value) (map[string]domain.Value, error) {
				items := domain.AsList(in["list"])
				if len(items) == 0 {
					return out("value", domain.Null()), nil
				}
				return out("value", items[0]), nil
			},
		},
		{
			meta: registry.NodeMetadata{
				Type: "list.length", DisplayName: "Length", Category: "List",
				Inputs:  []registry.PortDefinition{port("list", schema.List, "[]")},
				Outputs: []registry.PortDefinition{{ID: "result", Type: schema.Number}},
			},
			fn: func(_ context.Context, _ ports.Runtime, in map[string]domain.Value) (map[string]domain.Value, error) {
				return out("result", domain.Number(float64(len(domain.AsList(in["list"]))))), nil
			},
		},
		{
			meta: registry.NodeMetadata{
				Type: "list.append", DisplayName: "Append", Category: "List",
				Description: "Appends every connected item to the list, in edge order.",
				Inputs: []registry.PortDefinition{
					port("list", schema.List, "[]"),
					{ID: "items", Type: schema.Any, MultiInput: true},
				},
				Outputs: []registry.PortDefinition{{ID: "result", Type: schema.List}},
			},
			fn: appendItems,
		},
	}
}

// appendItems keeps bot handles intact: the result is a JSON array only when every element is JSON.
func appendItems(_ context.Context, _ ports.Runtime, in map[string]domain.Value) (map[string]domain.Value, error) {
	var items []any
	for _, v := range domain.AsList(in["list"]) {
		items = append(items, v)
	}
	switch v := in["items"]; {
	case v == nil || domain.IsNull(v):
	case v.Kind() == domain.KindList:
		for _, e := range domain.AsList(v) {
			items = append(items, e)
		}
	default:
		items = append(items, v)
	}
	res, err := domain.FromAny(append([]any{}, items...))
	if err != nil {
		return nil, err
	}
	return out("result", res), nil
}
