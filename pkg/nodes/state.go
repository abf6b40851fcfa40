package nodes

import (
	"context"
	"errors"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/aretw0/lattice/pkg/schema"
)

func stateKey(in map[string]domain.Value) (string, error) {
	key := domain.AsString(in["key"], "")
	if key == "" {
		return "", ErrEmptyKey
	}
	return key, nil
}

func stateNodes() []definition {
	return []definition{
		{
			meta: registry.NodeMetadata{
				Type: "state.get", DisplayName: "Get State", Category: "State",
				Description: "Reads a script state key, falling back to default.",
				Inputs:      []registry.PortDefinition{required("key", schema.String), port("default", schema.Any, nil)},
				Outputs:     []registry.PortDefinition{{ID: "value", Type: schema.Any}},
			},
			fn: func(ctx context.Context, rt ports.Runtime, in map[string]domain.Value) (map[string]domain.Value, error) {
				key, err := stateKey(in)
				if err != nil {
					return nil, err
				}
				v, err := rt.State().Get(ctx, key)
				if errors.Is(err, domain.ErrStateNotFound) {
					v, err = in["default"], nil
					if v == nil {
						v = domain.Null()
					}
				}
				if err != nil {
					return nil, err
				}
				return out("value", v), nil
			},
		},
		{
			meta: registry.NodeMetadata{
				Type: "state.set", DisplayName: "Set State", Category: "State",
				Inputs: []registry.PortDefinition{
					registry.ExecIn(),
					required("key", schema.String),
					port("value", schema.Any, nil),
				},
				Outputs:  []registry.PortDefinition{registry.ExecOut(), {ID: "value", Type: schema.Any}},
				Mutating: true,
			},
			fn: func(ctx context.Context, rt ports.Runtime, in map[string]domain.Value) (map[string]domain.Value, error) {
				key, err := stateKey(in)
				if err != nil {
					return nil, err
				}
				v := in["value"]
				if v == nil {
					v = domain.Null()
				}
				if err := rt.State().Set(ctx, key, v); err != nil {
					return nil, err
				}
				return out("value", v), nil
			},
		},
		{
			meta: registry.NodeMetadata{
				Type: "state.increment", DisplayName: "Increment State", Category: "State",
				Description: "Atomically adds by to a numeric state key, starting from 0.",
				Inputs: []registry.PortDefinition{
					registry.ExecIn(),
					required("key", schema.String),
					port("by", schema.Number, 1),
				},
				Outputs:  []registry.PortDefinition{registry.ExecOut(), {ID: "value", Type: schema.Number}},
				Mutating: true,
			},
			fn: increment,
		},
	}
}

func increment(ctx context.Context, rt ports.Runtime, in map[string]domain.Value) (map[string]domain.Value, error) {
	key, err := stateKey(in)
	if err != nil {
		return nil, err
	}
	state := rt.State()
	if _, err := state.GetOrCreate(ctx, key, func() domain.Value { return domain.Number(0) }); err != nil {
		return nil, err
	}
	by := domain.AsNumber(in["by"], 1)
	v, err := state.Update(ctx, key, func(cur domain.Value) (domain.Value, error) {
		return domain.Number(domain.AsNumber(cur, 0) + by), nil
	})
	if err != nil {
		return nil, err
	}
	return out("value", v), nil
}
