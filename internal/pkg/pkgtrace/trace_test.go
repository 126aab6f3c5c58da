package pkgtrace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), "test", "")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestExporterOptions(t *testing.T) {
	if got := len(exporterOptions("collector:4318")); got != 2 {
		t.Fatalf("expected endpoint and insecure, got %d options", got)
	}
	if got := len(exporterOptions("http://collector:4318/v1/traces")); got != 3 {
		t.Fatalf("expected endpoint, path and insecure, got %d options", got)
	}
	if got := len(exporterOptions("https://collector")); got != 1 {
		t.Fatalf("expected endpoint only, got %d options", got)
	}
}

func TestHandlerPassesThrough(t *testing.T) {
	h := Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), "test")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}
