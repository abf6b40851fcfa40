package ports

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
)

// StateStore persists key/value state per script. Every run of a script shares it.
// Implementations are safe for concurrent use.
type StateStore interface {
	// Get returns domain.ErrStateNotFound when the key is absent.
	Get(ctx context.Context, scriptID, key string) (domain.Value, error)

	// Set stores a value. Creating a key beyond the entry quota fails with domain.ErrStateQuotaExceeded.
	Set(ctx context.Context, scriptID, key string, value domain.Value) error

	// GetOrCreate returns the stored value, or atomically stores and returns create().
	GetOrCreate(ctx context.Context, scriptID, key string, create func() domain.Value) (domain.Value, error)

	// Update atomically replaces the value with fn(current). current is nil when the key is absent.
	Update(ctx context.Context, scriptID, key string, fn func(current domain.Value) (domain.Value, error)) (domain.Value, error)

	Delete(ctx context.Context, scriptID, key string) error

	// Keys lists the keys of a script, sorted.
	Keys(ctx context.Context, scriptID string) ([]string, error)

	// Clear removes every key of a script.
	Clear(ctx context.Context, scriptID string) error
}

// ScriptState is a StateStore bound to one script.
type ScriptState interface {
	Get(ctx context.Context, key string) (domain.Value, error)
	Set(ctx context.Context, key string, value domain.Value) error
	GetOrCreate(ctx context.Context, key string, create func() domain.Value) (domain.Value, error)
	Update(ctx context.Context, key string, fn func(current domain.Value) (domain.Value, error)) (domain.Value, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// Scope binds a store to a script id. A nil store yields a state that always fails
// with domain.ErrStateUnavailable.
func Scope(store StateStore, scriptID string) ScriptState {
	if store == nil {
		return unavailableState{}
	}
	return scopedState{store: store, scriptID: scriptID}
}

type scopedState struct {
	store    StateStore
	scriptID string
}

func (s scopedState) Get(ctx context.Context, key string) (domain.Value, error) {
	return s.store.Get(ctx, s.scriptID, key)
}

func (s scopedState) Set(ctx context.Context, key string, value domain.Value) error {
	return s.store.Set(ctx, s.scriptID, key, value)
}

func (s scopedState) GetOrCreate(ctx context.Context, key string, create func() domain.Value) (domain.Value, error) {
	return s.store.GetOrCreate(ctx, s.scriptID, key, create)
}

func (s scopedState) Update(ctx context.Context, key string, fn func(domain.Value) (domain.Value, error)) (domain.Value, error) {
	return s.store.Update(ctx, s.scriptID, key, fn)
}

func (s scopedState) Delete(ctx context.Context, key string) error {
	return s.store.Delete(ctx, s.scriptID, key)
}

func (s scopedState) Keys(ctx context.Context) ([]string, error) {
	return s.store.Keys(ctx, s.scriptID)
}

type unavailableState struct{}

func (unavailableState) Get(context.Context, string) (domain.Value, error) {
	return nil, domain.ErrStateUnavailable
}

func (unavailableState) Set(context.Context, string, domain.Value) error {
	return domain.ErrStateUnavailable
}

func (unavailableState) GetOrCreate(context.Context, string, func() domain.Value) (domain.Value, error) {
	return nil, domain.ErrStateUnavailable
}

func (unavailableState) Update(context.Context, string, func(domain.Value) (domain.Value, error)) (domain.Value, error) {
	return nil, domain.ErrStateUnavailable
}

func (unavailableState) Delete(context.Context, string) error {
	return domain.ErrStateUnavailable
}

func (unavailableState) Keys(context.Context) ([]string, error) {
	return nil, domain.ErrStateUnavailable
}
