package event

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shandysiswandi/gomultipart/internal/multipart/entity"
)

// MetricsHandler turns upload events into Prometheus series.
type MetricsHandler struct {
	events     *prometheus.CounterVec
	partBytes  prometheus.Counter
	finalBytes prometheus.Histogram
	partsPer   prometheus.Histogram
}

func NewMetricsHandler(reg prometheus.Registerer, namespace string) *MetricsHandler {
	factory := promauto.With(reg)

	return &MetricsHandler{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "events_total",
			Help:      "Upload lifecycle events by type.",
		}, []string{"type"}),
		partBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "part_bytes_total",
			Help:      "Bytes accepted across all parts.",
		}),
		finalBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "artifact_size_bytes",
			Help:      "Size of assembled artifacts.",
			Buckets:   prometheus.ExponentialBuckets(1<<20, 4, 8),
		}),
		partsPer: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "parts_per_upload",
			Help:      "Number of parts in completed uploads.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

func (m *MetricsHandler) Name() string { return "metrics" }

func (m *MetricsHandler) Handle(ctx context.Context, event entity.Event) error {
	m.events.WithLabelValues(string(event.Type)).Inc()

	switch event.Type {
	case entity.EventPartAccepted:
		m.partBytes.Add(float64(event.Size))
	case entity.EventCompleted:
		m.finalBytes.Observe(float64(event.Size))
		m.partsPer.Observe(float64(event.Parts))
	}

	return nil
}
