package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
)

// Loader implements ports.ScriptLoader using an in-memory map of raw documents.
type Loader struct {
	mu      sync.RWMutex
	scripts map[string][]byte
}

// NewLoader creates a Loader with the provided raw documents (JSON or YAML), keyed by script id.
func NewLoader(data map[string]string) *Loader {
	scripts := make(map[string][]byte, len(data))
	for k, v := range data {
		scripts[k] = []byte(v)
	}
	return &Loader{scripts: scripts}
}

// Put adds or replaces a document.
func (l *Loader) Put(scriptID string, doc []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scripts[scriptID] = append([]byte(nil), doc...)
}

// Load retrieves the raw document of a script.
func (l *Loader) Load(ctx context.Context, scriptID string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	content, ok := l.scripts[scriptID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrScriptNotFound, scriptID)
	}
	return content, nil
}

// List returns all available script ids.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]string, 0, len(l.scripts))
	for k := range l.scripts {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
