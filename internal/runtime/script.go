package runtime

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

// ScriptContext is the long-lived context of one loaded script. Every run of the script
// shares its listener, state and quotas, and Cancel stops all of them.
type ScriptContext struct {
	id       string
	listener ports.EventListener
	state    ports.ScriptState
	quotas   Quotas

	ctx        context.Context
	cancel     context.CancelFunc
	cancelOnce sync.Once

	// nil when MaxConcurrentTriggers is zero
	triggers *semaphore.Weighted
}

// ScriptOption configures a ScriptContext.
type ScriptOption func(*ScriptContext)

// WithListener sets the listener that receives lifecycle events.
func WithListener(l ports.EventListener) ScriptOption {
	return func(s *ScriptContext) {
		if l != nil {
			s.listener = l
		}
	}
}

// WithState sets the state scope nodes read and write.
func WithState(state ports.ScriptState) ScriptOption {
	return func(s *ScriptContext) {
		if state != nil {
			s.state = state
		}
	}
}

// WithQuotas sets the quotas. Zero fields fall back to their defaults.
func WithQuotas(q Quotas) ScriptOption {
	return func(s *ScriptContext) {
		s.quotas = q
	}
}

// NewScriptContext creates the context of a script. Without options it has no listener,
// no state store and default quotas.
func NewScriptContext(id string, opts ...ScriptOption) *ScriptContext {
	s := &ScriptContext{
		id:       id,
		listener: domain.LifecycleHooks{},
		state:    ports.Scope(nil, id),
		quotas:   DefaultQuotas(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.quotas = s.quotas.Normalize()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	if n := s.quotas.MaxConcurrentTriggers; n > 0 {
		s.triggers = semaphore.NewWeighted(int64(n))
	}
	return s
}

func (s *ScriptContext) ID() string                    { return s.id }
func (s *ScriptContext) Listener() ports.EventListener { return s.listener }
func (s *ScriptContext) State() ports.ScriptState      { return s.state }
func (s *ScriptContext) Quotas() Quotas                { return s.quotas }

// Done is closed once the script is cancelled.
func (s *ScriptContext) Done() <-chan struct{} { return s.ctx.Done() }

// Cancelled reports whether Cancel was called.
func (s *ScriptContext) Cancelled() bool { return s.ctx.Err() != nil }

// Cancel stops every in-flight run. Nodes already running see a cancelled context; no new node starts.
// OnScriptCancelled fires on the first call only.
func (s *ScriptContext) Cancel() {
	s.cancelOnce.Do(func() {
		s.cancel()
		s.listener.OnScriptCancelled()
	})
}

func (s *ScriptContext) acquire(ctx context.Context) error {
	if s.triggers == nil {
		return nil
	}
	return s.triggers.Acquire(ctx, 1)
}

func (s *ScriptContext) release() {
	if s.triggers != nil {
		s.triggers.Release(1)
	}
}
