package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

// LogListener writes engine events to a structured logger.
// Node progress goes to debug, node errors to warn and node logs to the level they name.
type LogListener struct {
	logger *slog.Logger
}

var _ ports.EventListener = (*LogListener)(nil)

// NewLogListener binds the listener to a script. A nil logger discards everything.
func NewLogListener(logger *slog.Logger, scriptID string) *LogListener {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LogListener{logger: logger.With("script", scriptID)}
}

func (l *LogListener) OnNodeStarted(nodeID string) {
	l.logger.Debug("node started", "node", nodeID)
}

func (l *LogListener) OnNodeCompleted(nodeID string, outputs map[string]domain.Value, elapsed time.Duration) {
	l.logger.Debug("node completed", "node", nodeID, "outputs", len(outputs), "elapsed", elapsed)
}

func (l *LogListener) OnNodeError(nodeID, message string) {
	l.logger.Warn("node failed", "node", nodeID, "err", message)
}

func (l *LogListener) OnScriptCompleted(success bool) {
	l.logger.Info("script completed", "success", success)
}

func (l *LogListener) OnScriptCancelled() {
	l.logger.Info("script cancelled")
}

func (l *LogListener) OnLog(level, message string) {
	l.logger.Log(context.Background(), logging.ParseLevel(level), message)
}
