package reqid

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestContextRoundTrip(t *testing.T) {
	ctx, id := NewContext(context.Background())
	got, ok := FromContext(ctx)
	if !ok || got != id {
		t.Fatalf("expected %q from context, got %q ok=%v", id, got, ok)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("id %q is not a uuid: %v", id, err)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("unexpected id in empty context")
	}
}

func TestWithID(t *testing.T) {
	ctx, _ := WithID(context.Background(), "check-1")
	if got, _ := FromContext(ctx); got != "check-1" {
		t.Fatalf("expected check-1, got %q", got)
	}
}

func TestScopeIsPerContext(t *testing.T) {
	first, _ := WithID(context.Background(), "dup")
	second, _ := WithID(context.Background(), "dup")

	s1, ok := ScopeFromContext(first)
	if !ok {
		t.Fatalf("expected scope in context")
	}
	s2, _ := ScopeFromContext(second)
	if s1 == s2 {
		t.Fatalf("expected distinct scopes for the same id")
	}
	if s1.ID() != "dup" || s2.ID() != "dup" {
		t.Fatalf("unexpected ids %q %q", s1.ID(), s2.ID())
	}
	if _, ok := ScopeFromContext(context.Background()); ok {
		t.Fatalf("unexpected scope in empty context")
	}
}
