package goroutine

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/stacktrace"
)

// DefaultMaxGoroutine is multiplied by NumCPU when NewManager receives a non-positive limit.
const DefaultMaxGoroutine int = 100

// DefaultTaskTimeout bounds every background task.
const DefaultTaskTimeout = 10 * time.Second

// Manager runs fire-and-forget work that must outlive the request that
// scheduled it, such as publishing lifecycle events.
//
// Tasks inherit the values of the scheduling context (correlation id, trace)
// but not its cancellation. Each task runs under its own timeout.
type Manager struct {
	mu      sync.Mutex
	errs    []error
	wg      sync.WaitGroup
	sema    chan struct{}
	timeout time.Duration
	stateMu sync.RWMutex
	closed  bool
}

// NewManager creates a Manager allowing at most maxGoroutine concurrent tasks.
func NewManager(maxGoroutine int) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = runtime.NumCPU() * DefaultMaxGoroutine
	}

	return &Manager{
		sema:    make(chan struct{}, maxGoroutine),
		timeout: DefaultTaskTimeout,
	}
}

// Go schedules f in a new goroutine. When the manager is closed or saturated
// the task is dropped and a warning is logged.
func (g *Manager) Go(pCtx context.Context, name string, f func(ctx context.Context) error) {
	if g == nil {
		return
	}

	g.stateMu.RLock()
	defer g.stateMu.RUnlock()

	if g.closed {
		slog.WarnContext(pCtx, "goroutine manager is closed, task dropped", "task", name)
		return
	}

	select {
	case g.sema <- struct{}{}:
	default:
		slog.WarnContext(pCtx, "maximum goroutine limit reached, task dropped", "task", name)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(pCtx), g.timeout)
	g.wg.Go(func() {
		defer func() {
			cancel()
			<-g.sema

			if rvr := recover(); rvr != nil {
				stack := debug.Stack()
				if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
					slog.ErrorContext(ctx, "panic occurred in goroutine", "task", name, "because", rvr, "stack", paths)
				} else {
					slog.ErrorContext(ctx, "panic occurred in goroutine", "task", name, "because", rvr, "stack", string(stack))
				}
			}
		}()

		if err := f(ctx); err != nil {
			slog.WarnContext(ctx, "background task failed", "task", name, "error", err)
			g.mu.Lock()
			g.errs = append(g.errs, err)
			g.mu.Unlock()
		}
	})
}

// Wait stops accepting tasks, blocks until running tasks finish or ctx is
// done, and returns the collected task errors.
func (g *Manager) Wait(ctx context.Context) error {
	if g == nil {
		return nil
	}

	g.stateMu.Lock()
	g.closed = true
	g.stateMu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}
