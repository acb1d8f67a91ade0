package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempYAML(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadChipConfig(t *testing.T) {
	path := writeTempYAML(t, "chip.yaml", `
base_radius_um: 5.0
ring_count: 4
coupling_gap_nm: 200
`)

	cfg, err := LoadChipConfig(path)
	if err != nil {
		t.Fatalf("LoadChipConfig failed: %v", err)
	}
	if cfg.RingCount != 4 {
		t.Fatalf("expected 4 rings, got %d", cfg.RingCount)
	}
	if cfg.MinFeatureNm != 100 {
		t.Fatalf("expected default min feature 100 nm, got %g", cfg.MinFeatureNm)
	}
}

func TestLoadChipConfigMissingFile(t *testing.T) {
	_, err := LoadChipConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadScenario(t *testing.T) {
	path := writeTempYAML(t, "scenario.yaml", `
physics:
  group_index: 2.45
  span_nm: 30
oscillator:
  count: 6
  alpha: 0.8
`)

	scenario, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario failed: %v", err)
	}
	if scenario.Physics.SpanNm != 30 {
		t.Fatalf("expected span 30 nm, got %g", scenario.Physics.SpanNm)
	}
	if scenario.Oscillator.Alpha != 0.8 {
		t.Fatalf("expected alpha 0.8, got %g", scenario.Oscillator.Alpha)
	}
	if scenario.Oscillator.Seed != 42 {
		t.Fatalf("expected default seed 42, got %d", scenario.Oscillator.Seed)
	}
}

func TestLoadScenarioInvalid(t *testing.T) {
	path := writeTempYAML(t, "scenario.yaml", `
physics:
  group_index: 0.5
`)

	_, err := LoadScenario(path)
	if err == nil {
		t.Fatalf("expected validation error for group index below 1")
	}
}
