package pkglog

import (
	"context"
	"testing"
)

func TestCorrelationID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if got := GetCorrelationID(ctx); got != MissingCorrelationID {
		t.Fatalf("expected placeholder, got %q", got)
	}

	if got := GetCorrelationID(SetCorrelationID(ctx, "")); got != MissingCorrelationID {
		t.Fatalf("expected placeholder for empty id, got %q", got)
	}

	ctx = SetCorrelationID(ctx, "cid-123")
	if got := GetCorrelationID(ctx); got != "cid-123" {
		t.Fatalf("expected cid-123, got %q", got)
	}
}
