package observability

import (
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

// Fanout forwards every event to each listener in order.
type Fanout []ports.EventListener

var _ ports.EventListener = Fanout(nil)

// NewFanout drops nil listeners and flattens nested fanouts.
func NewFanout(listeners ...ports.EventListener) Fanout {
	f := make(Fanout, 0, len(listeners))
	for _, l := range listeners {
		switch v := l.(type) {
		case nil:
		case Fanout:
			f = append(f, v...)
		default:
			f = append(f, l)
		}
	}
	return f
}

func (f Fanout) OnNodeStarted(nodeID string) {
	for _, l := range f {
		l.OnNodeStarted(nodeID)
	}
}

func (f Fanout) OnNodeCompleted(nodeID string, outputs map[string]domain.Value, elapsed time.Duration) {
	for _, l := range f {
		l.OnNodeCompleted(nodeID, outputs, elapsed)
	}
}

func (f Fanout) OnNodeError(nodeID, message string) {
	for _, l := range f {
		l.OnNodeError(nodeID, message)
	}
}

func (f Fanout) OnScriptCompleted(success bool) {
	for _, l := range f {
		l.OnScriptCompleted(success)
	}
}

func (f Fanout) OnScriptCancelled() {
	for _, l := range f {
		l.OnScriptCancelled()
	}
}

func (f Fanout) OnLog(level, message string) {
	for _, l := range f {
		l.OnLog(level, message)
	}
}
