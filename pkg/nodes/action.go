package nodes

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/aretw0/lattice/pkg/schema"
)

func logAction(nodeType, name string) definition {
	return definition{
		meta: registry.NodeMetadata{
			Type: nodeType, DisplayName: name, Category: "Action",
			Description: "Sends the message to the script listener.",
			Inputs: []registry.PortDefinition{
				registry.ExecIn(),
				port("message", schema.String, ""),
				port("level", schema.String, "info"),
			},
			Outputs: []registry.PortDefinition{registry.ExecOut()},
		},
		fn: func(_ context.Context, rt ports.Runtime, in map[string]domain.Value) (map[string]domain.Value, error) {
			rt.Log(domain.AsString(in["level"], "info"), domain.AsString(in["message"], ""))
			return map[string]domain.Value{}, nil
		},
	}
}

func actionNodes() []definition {
	return []definition{
		logAction("action.log", "Log"),
		logAction("action.print", "Print"),
	}
}
