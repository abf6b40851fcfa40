package nodes

import (
	"context"
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/aretw0/lattice/pkg/schema"
)

// SequenceHandles are the exec outputs of flow.sequence, fired in order.
var SequenceHandles = []string{"then_0", "then_1", "then_2"}

func flowNodes() []definition {
	seqOutputs := make([]registry.PortDefinition, 0, len(SequenceHandles))
	for _, h := range SequenceHandles {
		seqOutputs = append(seqOutputs, registry.PortDefinition{ID: h, Type: schema.Exec})
	}

	return []definition{
		{
			meta: registry.NodeMetadata{
				Type: "flow.branch", DisplayName: "Branch", Category: "Flow",
				Inputs: []registry.PortDefinition{registry.ExecIn(), port("condition", schema.Boolean, false)},
				Outputs: []registry.PortDefinition{
					{ID: "true", Type: schema.Exec},
					{ID: "false", Type: schema.Exec},
				},
			},
			fn: func(_ context.Context, _ ports.Runtime, in map[string]domain.Value) (map[string]domain.Value, error) {
				if domain.AsBool(in["condition"], false) {
					return out("true", domain.Bool(true)), nil
				}
				return out("false", domain.Bool(true)), nil
			},
		},
		{
			meta: registry.NodeMetadata{
				Type: "flow.sequence", DisplayName: "Sequence", Category: "Flow",
				Description: "Runs each then_N branch to completion before starting the next.",
				Inputs:      []registry.PortDefinition{registry.ExecIn()},
				Outputs:     seqOutputs,
			},
			fn: sequence,
		},
		{
			meta: registry.NodeMetadata{
				Type: "flow.fail", DisplayName: "Fail", Category: "Flow",
				Description: "Always fails with the given message.",
				Inputs:      []registry.PortDefinition{registry.ExecIn(), port("message", schema.String, "failure")},
				Outputs:     []registry.PortDefinition{registry.ExecOut(), registry.ExecError()},
			},
			fn: func(_ context.Context, _ ports.Runtime, in map[string]domain.Value) (map[string]domain.Value, error) {
				return nil, fmt.Errorf("%w: %s", ErrForcedFailure, domain.AsString(in["message"], "failure"))
			},
		},
	}
}

func sequence(ctx context.Context, rt ports.Runtime, _ map[string]domain.Value) (map[string]domain.Value, error) {
	for i, h := range SequenceHandles {
		step := out("index", domain.Number(float64(i)))
		if err := rt.ExecuteDownstream(ctx, h, step); err != nil {
			return nil, fmt.Errorf("sequence %s: %w", h, err)
		}
	}
	return map[string]domain.Value{}, nil
}
