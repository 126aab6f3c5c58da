package pkgroutine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewManagerDefaultMax(t *testing.T) {
	mgr := NewManager(0)
	if got := cap(mgr.sema); got != DefaultMaxGoroutine {
		t.Fatalf("expected cap %d, got %d", DefaultMaxGoroutine, got)
	}
}

func TestManagerCollectsErrors(t *testing.T) {
	mgr := NewManager(2)
	errOne := errors.New("one")
	errTwo := errors.New("two")

	mgr.Go(context.Background(), func(ctx context.Context) error {
		return errOne
	})
	mgr.Go(context.Background(), func(ctx context.Context) error {
		return errTwo
	})

	joined := mgr.Wait()
	if joined == nil {
		t.Fatalf("expected errors")
	}
	if !errors.Is(joined, errOne) {
		t.Fatalf("expected errOne to be present")
	}
	if !errors.Is(joined, errTwo) {
		t.Fatalf("expected errTwo to be present")
	}
}

func TestManagerRecoversPanics(t *testing.T) {
	mgr := NewManager(1)
	mgr.Go(context.Background(), func(ctx context.Context) error {
		panic("boom")
	})

	err := mgr.Wait()
	if !errors.Is(err, ErrPanic) {
		t.Fatalf("expected ErrPanic, got %v", err)
	}
}

func TestManagerGoCanceledBeforeSlot(t *testing.T) {
	mgr := NewManager(1)
	release := make(chan struct{})
	if !mgr.Go(context.Background(), func(ctx context.Context) error {
		<-release
		return nil
	}) {
		t.Fatal("expected first task to be scheduled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if mgr.Go(ctx, func(ctx context.Context) error {
		t.Error("must not run")
		return nil
	}) {
		t.Fatal("expected canceled task not to be scheduled")
	}

	close(release)
	if err := mgr.Wait(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestManagerEveryRunsUntilCanceled(t *testing.T) {
	mgr := NewManager(2)
	ctx, cancel := context.WithCancel(context.Background())

	var runs atomic.Int32
	done := make(chan struct{})
	mgr.Every(ctx, "tick", time.Millisecond, func(ctx context.Context) error {
		if runs.Add(1) == 3 {
			close(done)
		}
		return errors.New("ignored")
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for ticks")
	}
	cancel()

	if err := mgr.Wait(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestManagerEveryDisabled(t *testing.T) {
	mgr := NewManager(1)
	mgr.Every(context.Background(), "off", 0, func(ctx context.Context) error {
		t.Fatal("must not run")
		return nil
	})

	if err := mgr.Wait(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
