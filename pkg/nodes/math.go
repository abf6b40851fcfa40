package nodes

import (
	"context"
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/aretw0/lattice/pkg/schema"
)

func binaryMath(nodeType, name string, op func(a, b float64) (float64, error)) definition {
	return definition{
		meta: registry.NodeMetadata{
			Type: nodeType, DisplayName: name, Category: "Math",
			Inputs:  []registry.PortDefinition{port("a", schema.Number, 0), port("b", schema.Number, 0)},
			Outputs: []registry.PortDefinition{{ID: "result", Type: schema.Number}},
		},
		fn: func(_ context.Context, _ ports.Runtime, in map[string]domain.Value) (map[string]domain.Value, error) {
			r, err := op(domain.AsNumber(in["a"], 0), domain.AsNumber(in["b"], 0))
			if err != nil {
				return nil, err
			}
			return out("result", domain.Number(r)), nil
		},
	}
}

func mathNodes() []definition {
	return []definition{
		binaryMath("math.add", "Add", func(a, b float64) (float64, error) { return a + b, nil }),
		binaryMath("math.subtract", "Subtract", func(a, b float64) (float64, error) { return a - b, nil }),
		binaryMath("math.multiply", "Multiply", func(a, b float64) (float64, error) { return a * b, nil }),
		binaryMath("math.divide", "Divide", func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, ErrDivideByZero
			}
			return a / b, nil
		}),
		{
			meta: registry.NodeMetadata{
				Type: "math.double", DisplayName: "Double", Category: "Math",
				Inputs:  []registry.PortDefinition{required("value", schema.Number)},
				Outputs: []registry.PortDefinition{{ID: "result", Type: schema.Number}},
			},
			fn: func(_ context.Context, _ ports.Runtime, in map[string]domain.Value) (map[string]domain.Value, error) {
				return out("result", domain.Number(2*domain.AsNumber(in["value"], 0))), nil
			},
		},
		{
			meta: registry.NodeMetadata{
				Type: "math.compare", DisplayName: "Compare", Category: "Math",
				Description: "Compares a and b with one of ==, !=, <, <=, >, >=.",
				Inputs: []registry.PortDefinition{
					port("a", schema.Number, 0),
					port("b", schema.Number, 0),
					port("op", schema.String, "=="),
				},
				Outputs: []registry.PortDefinition{{ID: "result", Type: schema.Boolean}},
			},
			fn: compare,
		},
	}
}

func compare(_ context.Context, _ ports.Runtime, in map[string]domain.Value) (map[string]domain.Value, error) {
	a, b := domain.AsNumber(in["a"], 0), domain.AsNumber(in["b"], 0)
	var r bool
	switch op := domain.AsString(in["op"], "=="); op {
	case "==":
		r = a == b
	case "!=":
		r = a != b
	case "<":
		r = a < b
	case "<=":
		r = a <= b
	case ">":
		r = a > b
	case ">=":
		r = a >= b
	default:
		return nil, fmt.Errorf("unsupported comparison %q", op)
	}
	return out("result", domain.Bool(r)), nil
}
