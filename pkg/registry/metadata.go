package registry

import (
	"fmt"

	"github.com/aretw0/lattice/pkg/schema"
)

// Standard port ids.
const (
	PortIn        = "in"
	PortOut       = "out"
	PortExecError = "exec_error"
)

// PortDefinition describes one input or output port of a node type.
type PortDefinition struct {
	ID          string            `json:"id" yaml:"id"`
	DisplayName string            `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Type        schema.PortType   `json:"type" yaml:"type"`
	Descriptor  schema.Descriptor `json:"descriptor,omitempty" yaml:"-"`
	Required    bool              `json:"required,omitempty" yaml:"required,omitempty"`
	// Default is a JSON-like value. A string default is parsed as JSON first, falling back to the string.
	Default     any    `json:"default,omitempty" yaml:"default,omitempty"`
	MultiInput  bool   `json:"multi_input,omitempty" yaml:"multi_input,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Desc returns the port descriptor, defaulting to Simple(Type).
func (p PortDefinition) Desc() schema.Descriptor {
	if p.Descriptor != nil {
		return p.Descriptor
	}
	return schema.Of(p.Type)
}

// IsExec reports whether the port carries control flow.
func (p PortDefinition) IsExec() bool {
	return p.Type == schema.Exec
}

// NodeMetadata is the static description of a node type.
type NodeMetadata struct {
	Type        string           `json:"type" yaml:"type"`
	DisplayName string           `json:"display_name" yaml:"display_name"`
	Category    string           `json:"category" yaml:"category"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Inputs      []PortDefinition `json:"inputs" yaml:"inputs"`
	Outputs     []PortDefinition `json:"outputs" yaml:"outputs"`

	Trigger   bool `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Mutating  bool `json:"mutating,omitempty" yaml:"mutating,omitempty"`
	Preview   bool `json:"preview,omitempty" yaml:"preview,omitempty"`
	Expensive bool `json:"expensive,omitempty" yaml:"expensive,omitempty"`
	Blocking  bool `json:"blocking,omitempty" yaml:"blocking,omitempty"`
}

// Input looks up an input port by id.
func (m NodeMetadata) Input(id string) (PortDefinition, bool) {
	return findPort(m.Inputs, id)
}

// Output looks up an output port by id.
func (m NodeMetadata) Output(id string) (PortDefinition, bool) {
	return findPort(m.Outputs, id)
}

// ExecOutputs lists the EXEC output ports in declaration order.
func (m NodeMetadata) ExecOutputs() []PortDefinition {
	var out []PortDefinition
	for _, p := range m.Outputs {
		if p.IsExec() {
			out = append(out, p)
		}
	}
	return out
}

// HasExecInput reports whether the node type takes part in control flow.
func (m NodeMetadata) HasExecInput() bool {
	for _, p := range m.Inputs {
		if p.IsExec() {
			return true
		}
	}
	return false
}

func findPort(ports []PortDefinition, id string) (PortDefinition, bool) {
	for _, p := range ports {
		if p.ID == id {
			return p, true
		}
	}
	return PortDefinition{}, false
}

func (m NodeMetadata) validate() error {
	if m.Type == "" {
		return fmt.Errorf("node type is empty")
	}
	for _, group := range [][]PortDefinition{m.Inputs, m.Outputs} {
		seen := make(map[string]bool, len(group))
		for _, p := range group {
			if p.ID == "" {
				return fmt.Errorf("%s: port with empty id", m.Type)
			}
			if seen[p.ID] {
				return fmt.Errorf("%s: duplicate port %q", m.Type, p.ID)
			}
			seen[p.ID] = true
			if !p.Type.Valid() {
				return fmt.Errorf("%s: port %q has invalid type %s", m.Type, p.ID, p.Type)
			}
		}
	}
	return nil
}

// Exec port constructors for the standard handles.

func ExecIn() PortDefinition {
	return PortDefinition{ID: PortIn, DisplayName: "In", Type: schema.Exec}
}

func ExecOut() PortDefinition {
	return PortDefinition{ID: PortOut, DisplayName: "Out", Type: schema.Exec}
}

func ExecError() PortDefinition {
	return PortDefinition{ID: PortExecError, DisplayName: "On Error", Type: schema.Exec,
		Description: "Fires when the node fails; success=false and errorMessage are set."}
}
