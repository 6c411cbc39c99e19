// Package shutdown provides coordinated shutdown for the console's
// components. Components are stopped in reverse order of registration so
// the form controller settles its in-flight request before the journal and
// notifier it reports to are closed.
//
// Usage:
//
//	coord := shutdown.NewCoordinator(logger)
//	coord.Register("history", journal)
//	coord.Register("notify", publisher)
//	coord.Register("form", controller)
//	// On exit:
//	coord.Shutdown(ctx) // form first, then notify, then history
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Shutdowner is the interface that components must implement to participate
// in coordinated shutdown.
type Shutdowner interface {
	// Shutdown gracefully stops the component. It should respect the context's
	// deadline and return ctx.Err() if it cannot complete in time.
	Shutdown(ctx context.Context) error
}

// Func adapts a plain function to Shutdowner.
type Func func(ctx context.Context) error

// Shutdown calls f.
func (f Func) Shutdown(ctx context.Context) error {
	return f(ctx)
}

// CloserFunc adapts a context-free close function, such as (*os.File).Close.
func CloserFunc(fn func() error) Shutdowner {
	return Func(func(context.Context) error { return fn() })
}

type component struct {
	name       string
	shutdowner Shutdowner
}

// Coordinator manages ordered shutdown of multiple components.
// Shutdown runs at most once; later calls return the first result.
type Coordinator struct {
	mu         sync.Mutex
	components []component
	logger     *slog.Logger

	once   sync.Once
	result error
}

// NewCoordinator creates a new shutdown coordinator.
func NewCoordinator(logger *slog.Logger) *Coordinator {
	return &Coordinator{
		logger: logger.With(slog.String("component", "shutdown")),
	}
}

// Register adds a component to be shut down (LIFO).
func (c *Coordinator) Register(name string, s Shutdowner) {
	c.mu.Lock()
	c.components = append(c.components, component{name: name, shutdowner: s})
	c.mu.Unlock()

	c.logger.Debug("registered shutdown handler", slog.String("handler", name))
}

// Shutdown stops all registered components in reverse order. A failing
// component does not stop the rest; every failure is joined into the
// returned error. Components not reached before the context expires are
// reported as skipped.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.once.Do(func() {
		c.result = c.run(ctx)
	})
	return c.result
}

func (c *Coordinator) run(ctx context.Context) error {
	c.mu.Lock()
	components := append([]component(nil), c.components...)
	c.mu.Unlock()

	c.logger.Info("starting coordinated shutdown",
		slog.Int("components", len(components)),
	)

	var errs []error

	for i := len(components) - 1; i >= 0; i-- {
		comp := components[i]

		if err := ctx.Err(); err != nil {
			c.logger.Error("shutdown deadline exceeded",
				slog.String("remaining_component", comp.name),
			)
			errs = append(errs, fmt.Errorf("shutdown deadline exceeded at component %s: %w", comp.name, err))
			break
		}

		start := time.Now()
		err := comp.shutdowner.Shutdown(ctx)
		duration := time.Since(start)

		if err != nil {
			c.logger.Error("component shutdown failed",
				slog.String("handler", comp.name),
				slog.Duration("duration", duration),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("failed to shutdown %s: %w", comp.name, err))
			continue
		}
		c.logger.Debug("component shutdown complete",
			slog.String("handler", comp.name),
			slog.Duration("duration", duration),
		)
	}

	if len(errs) > 0 {
		c.logger.Warn("coordinated shutdown completed with errors")
		return errors.Join(errs...)
	}
	c.logger.Info("coordinated shutdown complete")
	return nil
}

// ComponentCount returns the number of registered components.
func (c *Coordinator) ComponentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.components)
}
