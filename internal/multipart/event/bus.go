package event

import (
	"context"
	"errors"
	"sync"

	"github.com/shandysiswandi/gomultipart/internal/multipart/entity"
)

var ErrBusClosed = errors.New("event bus is closed")

// Bus is a bounded in-process queue of upload events.
type Bus struct {
	mu     sync.RWMutex
	closed bool
	ch     chan entity.Event
}

func NewBus(buffer int) *Bus {
	if buffer < 1 {
		buffer = 1
	}

	return &Bus{
		ch: make(chan entity.Event, buffer),
	}
}

// Publish enqueues event, blocking while the buffer is full until ctx ends.
func (b *Bus) Publish(ctx context.Context, event entity.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}

	select {
	case b.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bus) Subscribe() <-chan entity.Event {
	return b.ch
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	close(b.ch)
}
