package nodes

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/aretw0/lattice/pkg/schema"
)

// Trigger nodes pass their event inputs through as outputs.
func passThrough(_ context.Context, _ ports.Runtime, in map[string]domain.Value) (map[string]domain.Value, error) {
	res := make(map[string]domain.Value, len(in))
	for k, v := range in {
		res[k] = v
	}
	return res, nil
}

func triggerNodes() []definition {
	outputs := []registry.PortDefinition{
		registry.ExecOut(),
		{ID: "payload", Type: schema.Any, Description: "Event payload supplied by the caller."},
	}
	return []definition{
		{
			meta: registry.NodeMetadata{
				Type: "trigger.manual", DisplayName: "Manual Trigger", Category: "Triggers",
				Description: "Entry point fired explicitly through the API, HTTP or MCP.",
				Outputs:     outputs,
				Trigger:     true,
			},
			fn: passThrough,
		},
		{
			meta: registry.NodeMetadata{
				Type: "trigger.on_start", DisplayName: "On Start", Category: "Triggers",
				Description: "Entry point fired once when the whole script runs.",
				Outputs:     outputs,
				Trigger:     true,
			},
			fn: passThrough,
		},
	}
}
