package event

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shandysiswandi/gomultipart/internal/multipart/entity"
)

type Handler interface {
	Name() string
	Handle(ctx context.Context, event entity.Event) error
}

type ConsumerConfig struct {
	Workers        int
	MaxRetries     int
	BaseBackoff    time.Duration
	HandlerTimeout time.Duration
	// DedupeWindow is how long a delivered event id is remembered.
	DedupeWindow time.Duration
}

// Consumer drains the bus with a fixed pool of workers and hands each event to
// every handler. A failing handler is retried with exponential backoff without
// holding up the others.
type Consumer struct {
	bus            *Bus
	handlers       []Handler
	workers        int
	maxRetries     int
	baseBackoff    time.Duration
	handlerTimeout time.Duration
	dedupeWindow   time.Duration

	mu   sync.Mutex
	seen map[string]time.Time

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func NewConsumer(bus *Bus, handlers []Handler, cfg ConsumerConfig) *Consumer {
	workers := cfg.Workers
	if workers < 1 {
		workers = 4
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	baseBackoff := cfg.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = 100 * time.Millisecond
	}

	handlerTimeout := cfg.HandlerTimeout
	if handlerTimeout <= 0 {
		handlerTimeout = 30 * time.Second
	}

	dedupeWindow := cfg.DedupeWindow
	if dedupeWindow <= 0 {
		dedupeWindow = 10 * time.Minute
	}

	return &Consumer{
		bus:            bus,
		handlers:       handlers,
		workers:        workers,
		maxRetries:     maxRetries,
		baseBackoff:    baseBackoff,
		handlerTimeout: handlerTimeout,
		dedupeWindow:   dedupeWindow,
		seen:           make(map[string]time.Time),
		stop:           make(chan struct{}),
	}
}

func (c *Consumer) Start() {
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker()
	}
}

// Stop closes the bus and waits for queued events to drain. When ctx ends
// first, pending retries are abandoned.
func (c *Consumer) Stop(ctx context.Context) error {
	if c.bus != nil {
		c.bus.Close()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		c.once.Do(func() { close(c.stop) })
		return ctx.Err()
	}
}

func (c *Consumer) worker() {
	defer c.wg.Done()

	for event := range c.bus.Subscribe() {
		c.processEvent(event)
	}
}

func (c *Consumer) processEvent(event entity.Event) {
	if event.EventID != "" && c.duplicate(event.EventID) {
		slog.Info("skip duplicate upload event", "event_id", event.EventID, "upload_id", event.UploadID)
		return
	}

	var wg sync.WaitGroup
	for _, h := range c.handlers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.deliver(h, event)
		}()
	}
	wg.Wait()
}

func (c *Consumer) deliver(h Handler, event entity.Event) {
	backoff := c.baseBackoff
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), c.handlerTimeout)
		err := h.Handle(ctx, event)
		cancel()
		if err == nil {
			return
		}

		if attempt == c.maxRetries {
			slog.Error("failed to handle upload event after retries",
				"handler", h.Name(),
				"event_id", event.EventID,
				"type", event.Type,
				"upload_id", event.UploadID,
				"error", err,
			)
			return
		}

		if !c.sleepBackoff(backoff) {
			return
		}
		backoff *= 2
	}
}

// duplicate records id and reports whether it was already seen. Entries older
// than the dedupe window are forgotten on the way.
func (c *Consumer) duplicate(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[id]; ok {
		return true
	}

	now := time.Now()
	for k, seenAt := range c.seen {
		if now.Sub(seenAt) > c.dedupeWindow {
			delete(c.seen, k)
		}
	}
	c.seen[id] = now

	return false
}

func (c *Consumer) sleepBackoff(d time.Duration) bool {
	if d <= 0 {
		return false
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-c.stop:
		return false
	}
}

// LogHandler writes every event to the structured log.
type LogHandler struct{}

func (LogHandler) Name() string { return "log" }

func (LogHandler) Handle(ctx context.Context, event entity.Event) error {
	slog.InfoContext(ctx, "upload event",
		"event_id", event.EventID,
		"type", event.Type,
		"upload_id", event.UploadID,
		"part_number", event.PartNumber,
		"size", event.Size,
	)
	return nil
}
