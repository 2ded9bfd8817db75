package runner

import (
	"sync"

	"github.com/rs/zerolog"
)

// ShutdownGuard is the explicit shutdown context threaded through a run:
// signal handling needs access to in-flight resources (checkpoint, lock) to
// clean up, so those register here instead of living in ambient globals.
type ShutdownGuard struct {
	mu       sync.Mutex
	cleanups []namedCleanup
	done     bool
}

type namedCleanup struct {
	name string
	fn   func() error
}

// NewShutdownGuard creates an empty guard.
func NewShutdownGuard() *ShutdownGuard {
	return &ShutdownGuard{}
}

// Register adds a cleanup step. Steps run in reverse registration order.
func (g *ShutdownGuard) Register(name string, fn func() error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cleanups = append(g.cleanups, namedCleanup{name: name, fn: fn})
}

// Unregister removes a cleanup step by name, for resources already
// released on the normal path.
func (g *ShutdownGuard) Unregister(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	kept := g.cleanups[:0]
	for _, c := range g.cleanups {
		if c.name != name {
			kept = append(kept, c)
		}
	}
	g.cleanups = kept
}

// Cleanup runs all registered steps once, LIFO. Failures during shutdown
// cleanup are logged but do not change the exit path.
func (g *ShutdownGuard) Cleanup(logger zerolog.Logger) {
	g.mu.Lock()
	if g.done {
		g.mu.Unlock()
		return
	}
	g.done = true
	cleanups := append([]namedCleanup(nil), g.cleanups...)
	g.cleanups = nil
	g.mu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		c := cleanups[i]
		if err := c.fn(); err != nil {
			logger.Error().Err(err).Str("cleanup", c.name).Msg("Shutdown cleanup step failed")
		} else {
			logger.Debug().Str("cleanup", c.name).Msg("Shutdown cleanup step completed")
		}
	}
}
