package schema

import (
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
)

// Convert coerces a value produced by a port of type source for a port of type target.
// Values pass through unchanged when the types match, when either side is ANY, when the value is
// null, or when no conversion exists for the target.
func Convert(v domain.Value, source, target PortType) domain.Value {
	if source == target || source == Any || target == Any || domain.IsNull(v) {
		return v
	}

	switch target {
	case Number:
		return toNumber(v, source)
	case String:
		return domain.Str(v.String())
	case Boolean:
		return toBoolean(v, source)
	case Vector3:
		return toVector3(v, source)
	case List:
		if domain.IsListValue(v) {
			return v
		}
		if v.Kind() == domain.KindJSON {
			return domain.MustFromAny([]any{domain.Raw(v)})
		}
		return domain.NewList(v)
	default:
		return v
	}
}

func toNumber(v domain.Value, source PortType) domain.Value {
	switch source {
	case Boolean:
		if domain.AsBool(v, false) {
			return domain.Number(1)
		}
		return domain.Number(0)
	case String:
		return domain.Number(ParseNumber(domain.AsString(v, "")))
	case Vector3:
		items := domain.AsList(v)
		if len(items) < 3 {
			return domain.Number(0)
		}
		sum := 0.0
		for _, c := range items[:3] {
			sum += domain.AsNumber(c, 0)
		}
		return domain.Number(sum / 3)
	default:
		return v
	}
}

func toBoolean(v domain.Value, source PortType) domain.Value {
	switch source {
	case Number:
		return domain.Bool(domain.AsNumber(v, 0) != 0)
	case String:
		return domain.Bool(strings.EqualFold(domain.AsString(v, ""), "true"))
	default:
		return v
	}
}

func toVector3(v domain.Value, source PortType) domain.Value {
	switch source {
	case Number:
		n := domain.AsNumber(v, 0)
		return domain.Vector3(n, n, n)
	case List:
		items := domain.AsList(v)
		var c [3]float64
		for i := 0; i < 3 && i < len(items); i++ {
			c[i] = domain.AsNumber(items[i], 0)
		}
		return domain.Vector3(c[0], c[1], c[2])
	default:
		return v
	}
}

// ParseNumber parses a decimal string. Unparseable input yields NaN, never an error.
func ParseNumber(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// FormatNumber renders a number for STRING ports. ParseNumber(FormatNumber(f)) == f for finite f.
func FormatNumber(f float64) string {
	return domain.FormatNumber(f)
}
