package schema

import (
	"encoding/json"
	"fmt"
)

// Descriptors serialize as their string form, e.g. "LIST<NUMBER>".

func (s Simple) MarshalJSON() ([]byte, error)        { return json.Marshal(s.String()) }
func (p Parameterized) MarshalJSON() ([]byte, error) { return json.Marshal(p.String()) }
func (v TypeVar) MarshalJSON() ([]byte, error)       { return json.Marshal(v.String()) }

// UnmarshalDescriptor decodes a JSON string produced by MarshalJSON.
func UnmarshalDescriptor(data []byte) (Descriptor, error) {
	if string(data) == "null" {
		return nil, nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("descriptor: expected string: %w", err)
	}
	return ParseDescriptor(raw)
}
