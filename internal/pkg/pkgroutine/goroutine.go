package pkgroutine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// DefaultMaxGoroutine is used when NewManager receives a non-positive limit.
const DefaultMaxGoroutine int = 10

// ErrPanic wraps the value recovered from a panicking task.
var ErrPanic = errors.New("goroutine panicked")

// Manager runs background tasks with a bounded number of goroutines and
// collects what they return, so shutdown can wait for all of them at once.
type Manager struct {
	mu   sync.Mutex
	errs []error
	wg   sync.WaitGroup
	sema chan struct{}
}

// NewManager creates a Manager that runs at most maxGoroutine tasks at a time.
func NewManager(maxGoroutine int) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = DefaultMaxGoroutine
	}

	return &Manager{sema: make(chan struct{}, maxGoroutine)}
}

// Go blocks until a slot is free, then runs f in its own goroutine.
//
// It reports false when pCtx ends before a slot frees up; f is not run then.
// A panic inside f is recovered and collected as an ErrPanic error.
func (g *Manager) Go(pCtx context.Context, f func(ctx context.Context) error) bool {
	select {
	case g.sema <- struct{}{}:
	case <-pCtx.Done():
		slog.WarnContext(pCtx, "goroutine canceled before start", "because", pCtx.Err())
		return false
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() { <-g.sema }()

		if err := g.run(pCtx, f); err != nil {
			g.mu.Lock()
			g.errs = append(g.errs, err)
			g.mu.Unlock()
		}
	}()

	return true
}

func (g *Manager) run(ctx context.Context, f func(ctx context.Context) error) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			slog.ErrorContext(ctx, "panic occurred in goroutine", "because", rvr, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrPanic, rvr)
		}
	}()

	if ctx.Err() != nil {
		slog.WarnContext(ctx, "goroutine canceled", "because", ctx.Err())
		return nil
	}

	return f(ctx)
}

// Wait blocks until every scheduled task has returned and joins their errors.
func (g *Manager) Wait() error {
	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}
