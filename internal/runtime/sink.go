package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
)

// sink holds the outputs of one node for one run. It is written once and read by any number of waiters.
type sink struct {
	once    sync.Once
	done    chan struct{}
	outputs map[string]domain.Value
}

func newSink() *sink {
	return &sink{done: make(chan struct{})}
}

// publish stores the outputs and wakes every waiter. Only the first call has an effect.
func (s *sink) publish(outputs map[string]domain.Value) error {
	err := ErrSinkAlreadyPublished
	s.once.Do(func() {
		if outputs == nil {
			outputs = map[string]domain.Value{}
		}
		s.outputs = outputs
		close(s.done)
		err = nil
	})
	return err
}

func (s *sink) published() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// wait blocks until the outputs are published, ctx ends or timeout elapses.
// A non-positive timeout waits without a bound.
func (s *sink) wait(ctx context.Context, timeout time.Duration) (map[string]domain.Value, error) {
	select {
	case <-s.done:
		return s.outputs, nil
	default:
	}

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case <-s.done:
		return s.outputs, nil
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	case <-expired:
		return nil, errEdgeTimeout
	}
}
