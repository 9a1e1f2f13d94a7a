package ctxutil

import (
	"context"
	"testing"
)

func TestRequestID(t *testing.T) {
	if got := RequestID(context.Background()); got != "" {
		t.Fatalf("empty ctx: got=%q", got)
	}
	ctx := WithTraceData(context.Background(), &TraceData{TraceID: "t", RequestID: "r"})
	if got := RequestID(ctx); got != "r" {
		t.Fatalf("RequestID=%q", got)
	}
	if WithTraceData(ctx, nil) != ctx {
		t.Fatalf("nil trace data must leave ctx untouched")
	}
}

func TestDetach(t *testing.T) {
	req := WithTraceData(context.Background(), &TraceData{RequestID: "req-9"})
	ctx, cancel := context.WithCancel(req)
	cancel()

	detached := Detach(ctx, context.Background())
	if detached.Err() != nil {
		t.Fatalf("detached ctx must not inherit cancellation")
	}
	if RequestID(detached) != "req-9" {
		t.Fatalf("request id lost: %q", RequestID(detached))
	}
}
