package scene

import (
	"sync"

	"github.com/spaghettifunk/prism/engine/core"
)

var (
	mu      sync.RWMutex
	current *Context
)

/**
 * @brief Creates the process-wide context. Fails with ErrAlreadyInitialized
 * until Shutdown is called.
 */
func Init(options Options) error {
	mu.Lock()
	defer mu.Unlock()
	if current != nil {
		return core.ErrAlreadyInitialized
	}
	ctx := NewContext()
	options.Normalize()
	ctx.Options = options
	current = ctx
	return nil
}

/**
 * @brief Drops the process-wide context and returns it, with every structure
 * queued in TakeRemoved for GPU release. Returns nil when nothing was
 * initialized, so calling it twice is harmless.
 */
func Shutdown() *Context {
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		return nil
	}
	ctx := current
	ctx.RemoveAll()
	current = nil
	return ctx
}

func IsInitialized() bool {
	mu.RLock()
	defer mu.RUnlock()
	return current != nil
}

// With runs fn with exclusive access to the context.
func With(fn func(ctx *Context) error) error {
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		return core.ErrNotInitialized
	}
	return fn(current)
}

// WithRead runs fn with shared access; fn must not mutate the context.
func WithRead(fn func(ctx *Context) error) error {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return core.ErrNotInitialized
	}
	return fn(current)
}
