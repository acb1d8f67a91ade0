package faults

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestConfigErrorMessage(t *testing.T) {
	err := Configf("ring_count", "must be >= 1, got %d", 0)
	if !strings.Contains(err.Error(), "ring_count") {
		t.Fatalf("expected field name in message, got %q", err.Error())
	}
	if !IsConfig(err) {
		t.Fatalf("expected IsConfig to match")
	}
	if IsLayout(err) {
		t.Fatalf("expected IsLayout not to match a ConfigError")
	}
}

func TestLayoutErrorNamesPrimitive(t *testing.T) {
	err := Layoutf("ring[2]/ring[3]", "separation %.1f nm below minimum %.1f nm", 80.0, 120.0)
	if !strings.Contains(err.Error(), "ring[2]/ring[3]") {
		t.Fatalf("expected primitive name in message, got %q", err.Error())
	}
	if !IsLayout(err) {
		t.Fatalf("expected IsLayout to match")
	}
}

func TestTaxonomyMatchesThroughWrapping(t *testing.T) {
	base := Convergencef("ring[4]", "singular transfer denominator")
	wrapped := fmt.Errorf("simulate: %w", base)
	if !IsConvergence(wrapped) {
		t.Fatalf("expected IsConvergence to match through wrapping")
	}

	var ce *ConvergenceError
	if !errors.As(wrapped, &ce) {
		t.Fatalf("expected errors.As to extract ConvergenceError")
	}
	if ce.Unit != "ring[4]" {
		t.Fatalf("expected unit ring[4], got %q", ce.Unit)
	}
}

func TestSerializationErrorUnwraps(t *testing.T) {
	cause := errors.New("short read")
	err := Serialization("read mask", "chip.pmask", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable via errors.Is")
	}
	if !IsSerialization(err) {
		t.Fatalf("expected IsSerialization to match")
	}
	if !strings.Contains(err.Error(), "chip.pmask") {
		t.Fatalf("expected path in message, got %q", err.Error())
	}
}
