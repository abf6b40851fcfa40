package nodes

import (
	"errors"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/aretw0/lattice/pkg/schema"
)

var (
	// ErrDivideByZero is returned by math.divide.
	ErrDivideByZero = errors.New("division by zero")

	// ErrEmptyKey is returned by state nodes without a key.
	ErrEmptyKey = errors.New("state key is empty")

	// ErrForcedFailure is wrapped by flow.fail.
	ErrForcedFailure = errors.New("forced failure")
)

type definition struct {
	meta registry.NodeMetadata
	fn   ports.NodeFunc
}

// Register adds the generic catalogue to r.
func Register(r *registry.Registry) error {
	groups := [][]definition{
		triggerNodes(),
		constantNodes(),
		mathNodes(),
		logicNodes(),
		stringNodes(),
		listNodes(),
		flowNodes(),
		stateNodes(),
		actionNodes(),
	}
	for _, group := range groups {
		for _, d := range group {
			if err := r.RegisterFunc(d.meta, d.fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// NewRegistry returns a sealed registry holding the generic catalogue.
func NewRegistry() *registry.Registry {
	r := registry.New()
	if err := Register(r); err != nil {
		panic(err)
	}
	r.Seal()
	return r
}

func port(id string, t schema.PortType, def any) registry.PortDefinition {
	return registry.PortDefinition{ID: id, Type: t, Default: def}
}

func required(id string, t schema.PortType) registry.PortDefinition {
	return registry.PortDefinition{ID: id, Type: t, Required: true}
}

func generic(id string, t schema.PortType, d string) registry.PortDefinition {
	return registry.PortDefinition{ID: id, Type: t, Descriptor: schema.MustParseDescriptor(d)}
}

func out(values ...any) map[string]domain.Value {
	m := make(map[string]domain.Value, len(values)/2)
	for i := 0; i+1 < len(values); i += 2 {
		m[values[i].(string)] = values[i+1].(domain.Value)
	}
	return m
}
