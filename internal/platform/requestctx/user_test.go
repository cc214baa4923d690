package requestctx

import (
	"context"
	"testing"
)

func TestEmailFromContextRoundTrip(t *testing.T) {
	ctx := WithEmail(context.Background(), "cadet@example.com")
	if got := EmailFromContext(ctx); got != "cadet@example.com" {
		t.Fatalf("EmailFromContext = %q, want %q", got, "cadet@example.com")
	}
}

func TestEmailFromContextEmpty(t *testing.T) {
	if got := EmailFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
	if got := EmailFromContext(nil); got != "" {
		t.Fatalf("expected empty string for nil context, got %q", got)
	}
}

func TestWithEmailNilContext(t *testing.T) {
	ctx := WithEmail(nil, "admin@example.com")
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
	if got := EmailFromContext(ctx); got != "admin@example.com" {
		t.Fatalf("EmailFromContext = %q", got)
	}
}
