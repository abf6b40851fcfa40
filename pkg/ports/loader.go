package ports

import "context"

// ScriptLoader defines how the engine retrieves graph documents.
// This allows the storage layer (Loam, FS, Memory) to be decoupled.
type ScriptLoader interface {
	// Load returns the raw document (JSON or YAML) for a script id.
	// It returns domain.ErrScriptNotFound when the id is unknown.
	Load(ctx context.Context, scriptID string) ([]byte, error)

	// List returns every script id available, sorted.
	List(ctx context.Context) ([]string, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
type Watchable interface {
	// Watch returns a channel receiving the id of each changed script.
	Watch(ctx context.Context) (<-chan string, error)
}
