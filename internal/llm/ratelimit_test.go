package llm

import (
	"context"
	"testing"
	"time"
)

func TestRateLimit_PassesThrough(t *testing.T) {
	inner := &nullProvider{name: "null"}
	p := WithRateLimit(inner, 6000) // effectively unthrottled

	if _, err := p.Complete(context.Background(), &Prompt{}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Embed(context.Background(), []string{"x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "null" {
		t.Errorf("Name() = %q", p.Name())
	}
}

func TestRateLimit_CancelledContextUnblocks(t *testing.T) {
	inner := &nullProvider{name: "null"}
	p := WithRateLimit(inner, 1) // one call per minute

	// First call consumes the burst slot.
	if _, err := p.Embed(context.Background(), []string{"x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.Embed(ctx, []string{"y"}); err == nil {
		t.Fatal("expected context error while throttled")
	}
}
