package runtime

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// branchSlot is the fan-out slot held by one node while its body runs.
// A nil semaphore means the node is not limited. Once closed, acquire is a no-op.
type branchSlot struct {
	sem *semaphore.Weighted

	mu     sync.Mutex
	held   bool
	closed bool
}

func (s *branchSlot) acquire(ctx context.Context) error {
	if s == nil || s.sem == nil {
		return nil
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.held {
		s.sem.Release(1)
		return nil
	}
	s.held = true
	return nil
}

func (s *branchSlot) release() {
	if s == nil || s.sem == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held {
		s.held = false
		s.sem.Release(1)
	}
}

// close releases the slot for good.
func (s *branchSlot) close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.release()
}
