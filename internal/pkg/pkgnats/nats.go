// Package pkgnats publishes JSON-encoded messages on a NATS connection.
package pkgnats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
)

// ErrNilPublisher is returned when Publish is called on a nil Publisher.
var ErrNilPublisher = errors.New("nil nats publisher")

// Publisher wraps a core NATS connection.
type Publisher struct {
	conn *nats.Conn
}

// New connects to url. Extra options are appended after the defaults.
func New(url, name string, opts ...nats.Option) (*Publisher, error) {
	base := []nats.Option{
		nats.Name(name),
		nats.Timeout(5 * time.Second),
		nats.MaxReconnects(-1),
	}

	nc, err := nats.Connect(url, append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	return &Publisher{conn: nc}, nil
}

// Publish encodes v as JSON and publishes it on subject, flushing before ctx
// expires so callers learn about a dead connection.
func (p *Publisher) Publish(ctx context.Context, subject string, v any) error {
	if p == nil || p.conn == nil {
		return ErrNilPublisher
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return err
	}

	return p.conn.FlushWithContext(ctx)
}

// Close drains the connection, falling back to a hard close.
func (p *Publisher) Close(context.Context) error {
	if p == nil || p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}
