package schema

import (
	"fmt"
	"strings"
)

// PortType is the closed set of types a port can carry.
type PortType int

const (
	Any PortType = iota
	Number
	String
	Boolean
	Vector3
	Bot
	List
	Exec
	Block
	Entity
	Item
	Map
)

var portTypeNames = [...]string{
	Any:     "ANY",
	Number:  "NUMBER",
	String:  "STRING",
	Boolean: "BOOLEAN",
	Vector3: "VECTOR3",
	Bot:     "BOT",
	List:    "LIST",
	Exec:    "EXEC",
	Block:   "BLOCK",
	Entity:  "ENTITY",
	Item:    "ITEM",
	Map:     "MAP",
}

// PortTypes lists every port type in declaration order.
func PortTypes() []PortType {
	out := make([]PortType, len(portTypeNames))
	for i := range portTypeNames {
		out[i] = PortType(i)
	}
	return out
}

func (t PortType) String() string {
	if t < 0 || int(t) >= len(portTypeNames) {
		return fmt.Sprintf("PortType(%d)", int(t))
	}
	return portTypeNames[t]
}

// Valid reports whether t is one of the declared port types.
func (t PortType) Valid() bool {
	return t >= 0 && int(t) < len(portTypeNames)
}

// ParsePortType converts a name such as "NUMBER" or "number" into a PortType.
func ParsePortType(s string) (PortType, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range portTypeNames {
		if n == name {
			return PortType(i), nil
		}
	}
	return Any, fmt.Errorf("unsupported port type: %s", s)
}

// MarshalText implements encoding.TextMarshaler, used by JSON and YAML encoders.
func (t PortType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid port type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *PortType) UnmarshalText(b []byte) error {
	parsed, err := ParsePortType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// IsScalar reports whether a value of this type can be wrapped into a one-element list.
func (t PortType) IsScalar() bool {
	switch t {
	case Number, String, Boolean, Vector3, Bot, Block, Entity, Item:
		return true
	default:
		return false
	}
}

// accepts lists, per target type, the source types it coerces beyond itself and ANY.
var accepts = map[PortType]map[PortType]bool{
	Number:  {Boolean: true, String: true, Vector3: true},
	Boolean: {Number: true, String: true},
	Vector3: {Number: true, List: true},
}

// CanAccept reports whether a port of type target can receive a value from a port of type source.
// Identical types and ANY on either side always match. STRING accepts everything except EXEC,
// LIST accepts any scalar by wrapping it.
func CanAccept(target, source PortType) bool {
	if target == source || target == Any || source == Any {
		return true
	}
	switch target {
	case String:
		return source != Exec
	case List:
		return source.IsScalar()
	}
	return accepts[target][source]
}
