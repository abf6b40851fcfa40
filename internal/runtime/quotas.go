package runtime

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Default quota values. DefaultQuotas starts from these; Normalize only fills the counts, since a
// zero timeout means disabled.
const (
	DefaultMaxExecutionCount   = 100000
	DefaultDataEdgeTimeout     = 10 * time.Second
	DefaultMaxParallelBranches = 8
)

// Quotas bound the resources a script may consume.
type Quotas struct {
	// MaxExecutionCount caps node executions per run. Exceeding it aborts the run.
	MaxExecutionCount int `mapstructure:"max_execution_count" yaml:"max_execution_count" json:"max_execution_count"`
	// DataEdgeTimeout bounds the wait on an upstream sink. The edge then contributes nothing. Zero disables it.
	DataEdgeTimeout time.Duration `mapstructure:"data_edge_timeout" yaml:"data_edge_timeout" json:"data_edge_timeout"`
	// NodeTimeout bounds a single Execute call. Zero disables it.
	// For self-driving nodes the bound includes the branches started through ExecuteDownstream.
	NodeTimeout time.Duration `mapstructure:"node_timeout" yaml:"node_timeout" json:"node_timeout"`
	// MaxConcurrentTriggers limits parallel runs of one script. Zero means unlimited.
	MaxConcurrentTriggers int `mapstructure:"max_concurrent_triggers" yaml:"max_concurrent_triggers" json:"max_concurrent_triggers"`
	// MaxStateEntries is enforced by the state store. Zero means unlimited.
	MaxStateEntries int `mapstructure:"max_state_entries" yaml:"max_state_entries" json:"max_state_entries"`
	// MaxParallelBranches limits concurrent branches at one fan-out point.
	MaxParallelBranches int `mapstructure:"max_parallel_branches" yaml:"max_parallel_branches" json:"max_parallel_branches"`
}

// DefaultQuotas returns the quotas used when nothing is configured.
func DefaultQuotas() Quotas {
	return Quotas{
		MaxExecutionCount:   DefaultMaxExecutionCount,
		DataEdgeTimeout:     DefaultDataEdgeTimeout,
		MaxParallelBranches: DefaultMaxParallelBranches,
	}
}

// Normalize replaces zero limits that have a default. Timeouts are left alone.
func (q Quotas) Normalize() Quotas {
	if q.MaxExecutionCount <= 0 {
		q.MaxExecutionCount = DefaultMaxExecutionCount
	}
	if q.MaxParallelBranches <= 0 {
		q.MaxParallelBranches = DefaultMaxParallelBranches
	}
	return q
}

// Validate rejects negative limits.
func (q Quotas) Validate() error {
	switch {
	case q.MaxExecutionCount < 0:
		return fmt.Errorf("max_execution_count must not be negative")
	case q.DataEdgeTimeout < 0:
		return fmt.Errorf("data_edge_timeout must not be negative")
	case q.NodeTimeout < 0:
		return fmt.Errorf("node_timeout must not be negative")
	case q.MaxConcurrentTriggers < 0:
		return fmt.Errorf("max_concurrent_triggers must not be negative")
	case q.MaxStateEntries < 0:
		return fmt.Errorf("max_state_entries must not be negative")
	case q.MaxParallelBranches < 0:
		return fmt.Errorf("max_parallel_branches must not be negative")
	}
	return nil
}

// DecodeQuotas overlays a raw map (from YAML, JSON or a graph document) on base.
// Durations may be given as strings such as "250ms". Unknown keys are rejected.
func DecodeQuotas(raw map[string]any, base Quotas) (Quotas, error) {
	out := base
	if len(raw) == 0 {
		return out, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &out,
	})
	if err != nil {
		return base, err
	}
	if err := dec.Decode(raw); err != nil {
		return base, fmt.Errorf("decode quotas: %w", err)
	}
	if err := out.Validate(); err != nil {
		return base, fmt.Errorf("decode quotas: %w", err)
	}
	return out, nil
}
