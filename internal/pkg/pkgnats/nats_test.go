package pkgnats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
)

func TestNewFailsWithoutServer(t *testing.T) {
	t.Parallel()

	_, err := New("nats://127.0.0.1:1", "test", nats.NoReconnect())
	if err == nil {
		t.Fatal("expected connection error")
	}
}

func TestNilPublisher(t *testing.T) {
	t.Parallel()

	var p *Publisher
	if err := p.Publish(context.Background(), "subject", map[string]string{"a": "b"}); !errors.Is(err, ErrNilPublisher) {
		t.Fatalf("expected ErrNilPublisher, got %v", err)
	}
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("expected nil close error, got %v", err)
	}
}
