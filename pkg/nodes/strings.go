package nodes

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/aretw0/lattice/pkg/schema"
)

func stringNodes() []definition {
	return []definition{
		{
			meta: registry.NodeMetadata{
				Type: "string.concat", DisplayName: "Concat", Category: "String",
				Inputs:  []registry.PortDefinition{port("a", schema.String, ""), port("b", schema.String, "")},
				Outputs: []registry.PortDefinition{{ID: "result", Type: schema.String}},
			},
			fn: func(_ context.Context, _ ports.Runtime, in map[string]domain.Value) (map[string]domain.Value, error) {
				return out("result", domain.Str(domain.AsString(in["a"], "")+domain.AsString(in["b"], ""))), nil
			},
		},
		{
			meta: registry.NodeMetadata{
				Type: "string.length", DisplayName: "Length", Category: "String",
				Inputs:  []registry.PortDefinition{port("value", schema.String, "")},
				Outputs: []registry.PortDefinition{{ID: "result", Type: schema.Number}},
			},
			fn: func(_ context.Context, _ ports.Runtime, in map[string]domain.Value) (map[string]domain.Value, error) {
				n := utf8.RuneCountInString(domain.AsString(in["value"], ""))
				return out("result", domain.Number(float64(n))), nil
			},
		},
		{
			meta: registry.NodeMetadata{
				Type: "string.split", DisplayName: "Split", Category: "String",
				Inputs: []registry.PortDefinition{
					port("value", schema.String, ""),
					port("separator", schema.String, ","),
				},
				Outputs: []registry.PortDefinition{generic("result", schema.List, "LIST<STRING>")},
			},
			fn: func(_ context.Context, _ ports.Runtime, in map[string]domain.Value) (map[string]domain.Value, error) {
				s := domain.AsString(in["value"], "")
				if s == "" {
					return out("result", domain.MustFromAny([]any{})), nil
				}
				parts := strings.Split(s, domain.AsString(in["separator"], ","))
				return out("result", domain.MustFromAny(parts)), nil
			},
		},
		{
			meta: registry.NodeMetadata{
				Type: "string.format", DisplayName: "Format", Category: "String",
				Description: "Replaces {a}, {b} and {c} in the template with the matching inputs.",
				Inputs: []registry.PortDefinition{
					port("template", schema.String, ""),
					port("a", schema.Any, nil),
					port("b", schema.Any, nil),
					port("c", schema.Any, nil),
				},
				Outputs: []registry.PortDefinition{{ID: "result", Type: schema.String}},
			},
			fn: format,
		},
	}
}

func format(_ context.Context, _ ports.Runtime, in map[string]domain.Value) (map[string]domain.Value, error) {
	var pairs []string
	for _, name := range []string{"a", "b", "c"} {
		v := ""
		if in[name] != nil {
			v = in[name].String()
		}
		pairs = append(pairs, "{"+name+"}", v)
	}
	return out("result", domain.Str(strings.NewReplacer(pairs...).Replace(domain.AsString(in["template"], "")))), nil
}
