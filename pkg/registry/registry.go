package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

var (
	// ErrRegistrySealed is returned when registering after Seal.
	ErrRegistrySealed = errors.New("registry is sealed")

	// ErrDuplicateType is returned when a node type is registered twice.
	ErrDuplicateType = errors.New("node type already registered")

	// ErrUnknownNodeType is returned when a type key has no registration.
	ErrUnknownNodeType = errors.New("unknown node type")
)

// Factory creates the Node behind a type. Nodes are stateless, so a factory may return a shared instance.
type Factory func() ports.Node

type entry struct {
	meta     NodeMetadata
	factory  Factory
	defaults map[string]domain.Value
}

// Registry maps node type keys to metadata and factories.
// It is built at start-up, sealed, and then read concurrently.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	sealed  bool
}

// New creates a new empty registry.
func New() *Registry {
	return &Registry{
		entries: make(map[string]entry),
	}
}

// Register adds a node type.
func (r *Registry) Register(meta NodeMetadata, factory Factory) error {
	if err := meta.validate(); err != nil {
		return err
	}
	if factory == nil {
		return fmt.Errorf("%s: nil factory", meta.Type)
	}
	defaults, err := parseDefaults(meta)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("register %s: %w", meta.Type, ErrRegistrySealed)
	}
	if _, ok := r.entries[meta.Type]; ok {
		return fmt.Errorf("register %s: %w", meta.Type, ErrDuplicateType)
	}
	r.entries[meta.Type] = entry{meta: meta, factory: factory, defaults: defaults}
	return nil
}

// MustRegister is Register for static catalogues. It panics on error.
func (r *Registry) MustRegister(meta NodeMetadata, factory Factory) {
	if err := r.Register(meta, factory); err != nil {
		panic(err)
	}
}

// RegisterFunc registers a node backed by a NodeFunc.
func (r *Registry) RegisterFunc(meta NodeMetadata, fn ports.NodeFunc) error {
	return r.Register(meta, func() ports.Node { return fn })
}

// Seal makes the registry immutable.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Sealed reports whether Seal was called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// IsRegistered reports whether a type key is known.
func (r *Registry) IsRegistered(nodeType string) bool {
	_, ok := r.lookup(nodeType)
	return ok
}

// Create instantiates the node for a type key.
func (r *Registry) Create(nodeType string) (ports.Node, error) {
	e, ok := r.lookup(nodeType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNodeType, nodeType)
	}
	return e.factory(), nil
}

// Metadata returns the metadata of a type key.
func (r *Registry) Metadata(nodeType string) (NodeMetadata, bool) {
	e, ok := r.lookup(nodeType)
	return e.meta, ok
}

// Types returns every registered type key, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.entries))
	for k := range r.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultInputs returns the parsed port defaults of a type, keyed by port id.
// The map is a fresh copy.
func (r *Registry) DefaultInputs(nodeType string) map[string]domain.Value {
	e, ok := r.lookup(nodeType)
	if !ok {
		return map[string]domain.Value{}
	}
	out := make(map[string]domain.Value, len(e.defaults))
	for k, v := range e.defaults {
		out[k] = v
	}
	return out
}

func (r *Registry) lookup(nodeType string) (entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[nodeType]
	return e, ok
}

func parseDefaults(meta NodeMetadata) (map[string]domain.Value, error) {
	out := make(map[string]domain.Value)
	for _, p := range meta.Inputs {
		if p.Default == nil || p.IsExec() {
			continue
		}
		v, err := ParseDefault(p.Default)
		if err != nil {
			return nil, fmt.Errorf("%s: default of port %q: %w", meta.Type, p.ID, err)
		}
		out[p.ID] = v
	}
	return out, nil
}

// ParseDefault converts a port default into a Value.
// Strings holding JSON ("5", "[1,2]", "true") decode to the JSON value, other strings stay strings.
func ParseDefault(raw any) (domain.Value, error) {
	if s, ok := raw.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			return domain.FromAny(decoded)
		}
		return domain.Str(s), nil
	}
	return domain.FromAny(raw)
}
