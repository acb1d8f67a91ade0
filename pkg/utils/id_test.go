package utils

import (
	"strings"
	"testing"
)

func TestGenerateIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateID()
		if id == "" {
			t.Fatalf("expected non-empty ID")
		}
		if seen[id] {
			t.Fatalf("expected unique IDs, got duplicate %q", id)
		}
		seen[id] = true
	}
}

func TestGenerateRunIDFormat(t *testing.T) {
	id := GenerateRunID()
	if !strings.HasPrefix(id, "run-") {
		t.Fatalf("expected run- prefix, got %q", id)
	}
	parts := strings.Split(id, "-")
	if len(parts) != 4 {
		t.Fatalf("expected run-<date>-<time>-<suffix>, got %q", id)
	}
}

func TestGenerateRunIDUnique(t *testing.T) {
	a := GenerateRunID()
	b := GenerateRunID()
	if a == b {
		t.Fatalf("expected distinct run IDs, got %q twice", a)
	}
}
