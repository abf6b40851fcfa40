package ports

import (
	"time"

	"github.com/aretw0/lattice/pkg/domain"
)

// EventListener receives engine lifecycle notifications.
// Implementations must be safe for concurrent use: parallel branches report concurrently.
type EventListener interface {
	OnNodeStarted(nodeID string)
	OnNodeCompleted(nodeID string, outputs map[string]domain.Value, elapsed time.Duration)
	OnNodeError(nodeID, message string)
	OnScriptCompleted(success bool)
	OnScriptCancelled()
	OnLog(level, message string)
}

var _ EventListener = domain.LifecycleHooks{}
