package middleware

import (
	"io"

	"github.com/aretw0/lattice/pkg/ports"
)

// Middleware allows wrapping a StateStore to add behavior.
type Middleware func(ports.StateStore) ports.StateStore

// Chain wraps store with every middleware. The first one is the outermost.
func Chain(store ports.StateStore, mws ...Middleware) ports.StateStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// closeNext closes the wrapped store when it holds resources.
func closeNext(next ports.StateStore) error {
	if c, ok := next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
