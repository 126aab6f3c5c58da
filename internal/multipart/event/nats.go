package event

import (
	"context"
	"strings"

	"github.com/shandysiswandi/gomultipart/internal/multipart/entity"
)

type MessagePublisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

// NATSHandler forwards events to "{prefix}.{type}", e.g. "uploads.upload.completed".
type NATSHandler struct {
	pub    MessagePublisher
	prefix string
}

func NewNATSHandler(pub MessagePublisher, prefix string) *NATSHandler {
	return &NATSHandler{pub: pub, prefix: strings.Trim(prefix, ".")}
}

func (h *NATSHandler) Name() string { return "nats" }

func (h *NATSHandler) Handle(ctx context.Context, event entity.Event) error {
	return h.pub.Publish(ctx, h.Subject(event.Type), event)
}

func (h *NATSHandler) Subject(t entity.EventType) string {
	if h.prefix == "" {
		return string(t)
	}
	return h.prefix + "." + string(t)
}
