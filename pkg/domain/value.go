package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindJSON Kind = iota
	KindBot
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindJSON:
		return "json"
	case KindBot:
		return "bot"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is the sealed union flowing between node ports.
// The only implementations are JSON, Bot and List.
type Value interface {
	Kind() Kind
	String() string
	isValue()
}

// JSON holds a JSON-like value: nil, bool, float64, string, []any or map[string]any.
// Containers only ever hold other JSON-like values.
type JSON struct {
	raw any
}

// Bot is an opaque runtime handle. It never crosses a serialization boundary.
type Bot struct {
	Name string
	Ref  any
}

// List is a heterogeneous list. It is the only container allowed to hold Bot values.
type List []Value

func (JSON) Kind() Kind { return KindJSON }
func (Bot) Kind() Kind  { return KindBot }
func (List) Kind() Kind { return KindList }

func (JSON) isValue() {}
func (Bot) isValue()  {}
func (List) isValue() {}

// Raw returns the underlying normalized JSON value.
func (j JSON) Raw() any { return j.raw }

func (j JSON) String() string {
	switch v := j.raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return FormatNumber(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

// MarshalJSON implements json.Marshaler.
func (j JSON) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.raw)
}

func (b Bot) String() string {
	if b.Name == "" {
		return "Bot"
	}
	return "Bot(" + b.Name + ")"
}

// MarshalJSON always fails: bot handles are runtime-only.
func (b Bot) MarshalJSON() ([]byte, error) {
	return nil, fmt.Errorf("bot %q: %w", b.Name, ErrNotSerializable)
}

func (l List) String() string {
	if IsSerializable(l) {
		b, err := json.Marshal(l)
		if err == nil {
			return string(b)
		}
	}
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// MarshalJSON encodes the list as a JSON array, failing on bot elements.
func (l List) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Null returns the JSON null value.
func Null() Value { return JSON{} }

// Number wraps a float64.
func Number(f float64) Value { return JSON{raw: f} }

// Str wraps a string.
func Str(s string) Value { return JSON{raw: s} }

// Bool wraps a bool.
func Bool(b bool) Value { return JSON{raw: b} }

// Vector3 encodes a vector as a three element JSON array.
func Vector3(x, y, z float64) Value { return JSON{raw: []any{x, y, z}} }

// NewList builds a List from values.
func NewList(values ...Value) List {
	out := make(List, len(values))
	copy(out, values)
	return out
}

// FromAny converts a Go value into a Value.
// Numbers of any width and json.Number become float64. A slice holding a Bot becomes a List.
// Maps may only hold JSON-like values.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		return x, nil
	case []Value:
		return NewList(x...), nil
	case []any:
		items := make([]Value, len(x))
		allJSON := true
		for i, e := range x {
			iv, err := FromAny(e)
			if err != nil {
				return nil, err
			}
			items[i] = iv
			if iv.Kind() != KindJSON {
				allJSON = false
			}
		}
		if !allJSON {
			return List(items), nil
		}
		raw := make([]any, len(items))
		for i, iv := range items {
			raw[i] = iv.(JSON).raw
		}
		return JSON{raw: raw}, nil
	case map[string]any:
		raw := make(map[string]any, len(x))
		for k, e := range x {
			iv, err := FromAny(e)
			if err != nil {
				return nil, err
			}
			j, ok := iv.(JSON)
			if !ok {
				return nil, fmt.Errorf("map key %q holds a %s: %w", k, iv.Kind(), ErrNotSerializable)
			}
			raw[k] = j.raw
		}
		return JSON{raw: raw}, nil
	}

	n, err := normalize(v)
	if err != nil {
		return nil, err
	}
	return JSON{raw: n}, nil
}

// MustFromAny is FromAny for literals known to be valid.
func MustFromAny(v any) Value {
	out, err := FromAny(v)
	if err != nil {
		panic(err)
	}
	return out
}

func normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", x.String(), err)
		}
		return f, nil
	}

	// Typed slices and maps ([]string, map[string]int, structs) go through encoding/json.
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("unsupported value %T: %w", v, err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("unsupported value %T: %w", v, err)
	}
	return out, nil
}

// Raw converts a Value back into plain Go data. Bot values are returned as Bot.
func Raw(v Value) any {
	switch x := v.(type) {
	case nil:
		return nil
	case JSON:
		return x.raw
	case Bot:
		return x
	case List:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Raw(e)
		}
		return out
	default:
		panic(fmt.Sprintf("domain: unknown value variant %T", v))
	}
}

// IsSerializable reports whether v contains no Bot handles.
func IsSerializable(v Value) bool {
	switch x := v.(type) {
	case nil, JSON:
		return true
	case Bot:
		return false
	case List:
		for _, e := range x {
			if !IsSerializable(e) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IsNull reports whether v is absent or JSON null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	j, ok := v.(JSON)
	return ok && j.raw == nil
}

// AsNumber reads v as a number, returning def when it is not numeric.
// Numeric strings and booleans are accepted.
func AsNumber(v Value, def float64) float64 {
	j, ok := v.(JSON)
	if !ok {
		return def
	}
	switch x := j.raw.(type) {
	case float64:
		return x
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return def
		}
		return f
	default:
		return def
	}
}

// AsString reads v as a string. Non-string JSON values use their String rendering.
func AsString(v Value, def string) string {
	if IsNull(v) {
		return def
	}
	if j, ok := v.(JSON); ok {
		if s, ok := j.raw.(string); ok {
			return s
		}
	}
	return v.String()
}

// AsBool reads v as a bool, returning def when it is not boolean.
func AsBool(v Value, def bool) bool {
	j, ok := v.(JSON)
	if !ok {
		return def
	}
	switch x := j.raw.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return strings.EqualFold(x, "true")
	default:
		return def
	}
}

// AsList returns the elements of a List or of a JSON array. Other values yield nil.
func AsList(v Value) []Value {
	switch x := v.(type) {
	case List:
		return x
	case JSON:
		arr, ok := x.raw.([]any)
		if !ok {
			return nil
		}
		out := make([]Value, len(arr))
		for i, e := range arr {
			out[i] = JSON{raw: e}
		}
		return out
	default:
		return nil
	}
}

// IsListValue reports whether v is a List or a JSON array.
func IsListValue(v Value) bool {
	switch x := v.(type) {
	case List:
		return true
	case JSON:
		_, ok := x.raw.([]any)
		return ok
	default:
		return false
	}
}

// AsMap returns the object held by a JSON value, or nil.
func AsMap(v Value) map[string]any {
	j, ok := v.(JSON)
	if !ok {
		return nil
	}
	m, _ := j.raw.(map[string]any)
	return m
}

// AsBot returns the bot handle held by v.
func AsBot(v Value) (Bot, bool) {
	b, ok := v.(Bot)
	return b, ok
}

// Equal compares two values structurally. Bot values compare by name and reference.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case JSON:
		y := b.(JSON)
		xb, err1 := json.Marshal(x.raw)
		yb, err2 := json.Marshal(y.raw)
		if err1 != nil || err2 != nil {
			return false
		}
		return bytes.Equal(xb, yb)
	case Bot:
		y := b.(Bot)
		return x.Name == y.Name && x.Ref == y.Ref
	case List:
		y := b.(List)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// EqualMaps compares two output maps value by value.
func EqualMaps(a, b map[string]Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !Equal(av, bv) {
			return false
		}
	}
	return true
}

// FormatNumber renders a number with the shortest representation that parses back to the same float64.
// Whole numbers print without a decimal point.
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ValuesFromMap converts a map of plain Go values, as found in graph defaults.
func ValuesFromMap(in map[string]any) (map[string]Value, error) {
	out := make(map[string]Value, len(in))
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := FromAny(in[k])
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// RawMap is the inverse of ValuesFromMap.
func RawMap(in map[string]Value) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = Raw(v)
	}
	return out
}
