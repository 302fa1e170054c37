package model

import (
	"testing"
	"time"
)

func TestLocalIDGenerator_UsesMilliseconds(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	g := NewLocalIDGenerator(func() time.Time { return at })

	if got := g.Next(); got != "1700000000123" {
		t.Errorf("Next() = %q, want %q", got, "1700000000123")
	}
}

func TestLocalIDGenerator_SameMillisecond_NoCollision(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	g := NewLocalIDGenerator(func() time.Time { return at })

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		id := g.Next()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
	if !seen["1700000000127"] {
		t.Errorf("expected ids to advance by one, got %v", seen)
	}
}
