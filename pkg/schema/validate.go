package schema

import (
	"fmt"
	"sort"

	"github.com/aretw0/lattice/pkg/domain"
)

// Check verifies that a runtime value fits a descriptor.
// Type variables, ANY and EXEC accept everything, as do the opaque BLOCK, ENTITY and ITEM types.
func Check(d Descriptor, v domain.Value) error {
	if domain.IsNull(v) {
		return nil
	}
	switch x := d.(type) {
	case TypeVar:
		return nil
	case Simple:
		return checkSimple(x, v)
	case Parameterized:
		if len(x.Args) == 0 {
			return checkSimple(Simple{Type: x.Base}, v)
		}
		switch x.Base {
		case List:
			if !domain.IsListValue(v) {
				return &ValidationError{Want: d, Reason: fmt.Sprintf("got %s", describe(v))}
			}
			for i, e := range domain.AsList(v) {
				if err := Check(x.Args[0], e); err != nil {
					return &ValidationError{Want: d, Reason: fmt.Sprintf("element %d: %v", i, err)}
				}
			}
			return nil
		case Map:
			m := domain.AsMap(v)
			if m == nil {
				return &ValidationError{Want: d, Reason: fmt.Sprintf("got %s", describe(v))}
			}
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			valueDesc := x.Args[len(x.Args)-1]
			for _, k := range keys {
				if err := Check(valueDesc, domain.MustFromAny(m[k])); err != nil {
					return &ValidationError{Want: d, Reason: fmt.Sprintf("key %q: %v", k, err)}
				}
			}
			return nil
		default:
			return checkSimple(Simple{Type: x.Base}, v)
		}
	default:
		return fmt.Errorf("unknown descriptor %T", d)
	}
}

func checkSimple(s Simple, v domain.Value) error {
	ok := true
	j, isJSON := v.(domain.JSON)
	switch s.Type {
	case Number:
		_, ok = rawOf(j, isJSON).(float64)
	case String:
		_, ok = rawOf(j, isJSON).(string)
	case Boolean:
		_, ok = rawOf(j, isJSON).(bool)
	case Vector3:
		items := domain.AsList(v)
		ok = len(items) == 3
		for _, c := range items {
			if _, isNum := domain.Raw(c).(float64); !isNum {
				ok = false
			}
		}
	case Bot:
		_, ok = v.(domain.Bot)
	case List:
		ok = domain.IsListValue(v)
	case Map:
		ok = domain.AsMap(v) != nil
	}
	if !ok {
		return &ValidationError{Want: s, Reason: fmt.Sprintf("got %s", describe(v))}
	}
	return nil
}

func rawOf(j domain.JSON, isJSON bool) any {
	if !isJSON {
		return nil
	}
	return j.Raw()
}

func describe(v domain.Value) string {
	if j, ok := v.(domain.JSON); ok {
		switch j.Raw().(type) {
		case float64:
			return "number"
		case string:
			return "string"
		case bool:
			return "boolean"
		case []any:
			return "array"
		case map[string]any:
			return "object"
		}
	}
	return v.Kind().String()
}

// CheckPorts validates a set of values against port descriptors, collecting every failure.
// Values without a descriptor are ignored.
func CheckPorts(descs map[string]Descriptor, values map[string]domain.Value) error {
	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var errs []error
	for _, id := range ids {
		d, ok := descs[id]
		if !ok {
			continue
		}
		if err := Check(d, values[id]); err != nil {
			if ve, ok := err.(*ValidationError); ok {
				ve.Port = id
			}
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
