package pkgrouter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/shandysiswandi/gomultipart/internal/pkg/pkglog"
)

type staticGenerator struct {
	mu    sync.Mutex
	value string
	calls int
}

func (g *staticGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.value
}

func TestMiddlewareCorrelationID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		headers   map[string]string
		generator *staticGenerator
		wantCID   string
		wantCalls int
	}{
		{
			name:      "uses correlation header",
			headers:   map[string]string{HeaderCorrelationID: "header-cid", HeaderRequestID: "proxy-id"},
			generator: &staticGenerator{value: "generated"},
			wantCID:   "header-cid",
		},
		{
			name:      "falls back to request id",
			headers:   map[string]string{HeaderRequestID: "proxy-id"},
			generator: &staticGenerator{value: "generated"},
			wantCID:   "proxy-id",
		},
		{
			name:      "generates when missing",
			generator: &staticGenerator{value: "generated"},
			wantCID:   "generated",
			wantCalls: 1,
		},
		{
			name:      "blank header is ignored",
			headers:   map[string]string{HeaderCorrelationID: "   "},
			generator: &staticGenerator{value: "generated"},
			wantCID:   "generated",
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotCID string
			h := middlewareCorrelationID(tt.generator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotCID = pkglog.GetCorrelationID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodPut, "/api/upload-part/u1/1", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if got := rec.Header().Get(HeaderCorrelationID); got != tt.wantCID {
				t.Fatalf("expected response cid %q, got %q", tt.wantCID, got)
			}
			if gotCID != tt.wantCID {
				t.Fatalf("expected context cid %q, got %q", tt.wantCID, gotCID)
			}
			if tt.generator.calls != tt.wantCalls {
				t.Fatalf("expected %d generator calls, got %d", tt.wantCalls, tt.generator.calls)
			}
		})
	}
}

func TestMiddlewareCorrelationIDWithoutGenerator(t *testing.T) {
	t.Parallel()

	var gotCID string
	h := middlewareCorrelationID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCID = pkglog.GetCorrelationID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api", nil))

	if got := rec.Header().Get(HeaderCorrelationID); got != "" {
		t.Fatalf("expected no cid header, got %q", got)
	}
	if gotCID != pkglog.MissingCorrelationID {
		t.Fatalf("expected missing cid, got %q", gotCID)
	}
}

func TestMiddlewareCorrelationIDTagsSpan(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	h := middlewareCorrelationID(&staticGenerator{value: "generated"})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	ctx, span := tp.Tracer("test").Start(context.Background(), "PUT /api/upload-part/:uploadId/:partNumber")
	req := httptest.NewRequest(http.MethodPut, "/api/upload-part/u1/1", nil).WithContext(ctx)
	req.Header.Set(HeaderCorrelationID, "cid-42")
	h.ServeHTTP(httptest.NewRecorder(), req)
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected one span, got %d", len(ended))
	}
	if !slices.Contains(ended[0].Attributes(), attribute.String("correlation.id", "cid-42")) {
		t.Fatalf("expected correlation.id attribute, got %v", ended[0].Attributes())
	}
}

func TestExposedHeaders(t *testing.T) {
	t.Parallel()

	got := ExposedHeaders()
	if !slices.Contains(got, "ETag") || !slices.Contains(got, HeaderCorrelationID) {
		t.Fatalf("unexpected exposed headers: %v", got)
	}
}
