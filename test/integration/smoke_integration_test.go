//go:build integration
// +build integration

package integration_test

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/lumen-phi/photonic-core/internal/drc"
	"github.com/lumen-phi/photonic-core/internal/geometry"
	"github.com/lumen-phi/photonic-core/pkg/config"
	"github.com/lumen-phi/photonic-core/pkg/phi"
)

func TestIntegration_ShippedConfigsLoadSmoke(t *testing.T) {
	chipPath := filepath.Join("..", "..", "config", "chip.yaml")
	scenarioPath := filepath.Join("..", "..", "config", "scenario.yaml")

	chip, err := config.LoadChipConfig(chipPath)
	if err != nil {
		t.Fatalf("LoadChipConfig(%s) failed: %v", chipPath, err)
	}
	if chip.Cell != "PHI_RING_BANK" {
		t.Errorf("expected cell PHI_RING_BANK, got %q", chip.Cell)
	}
	if chip.RingCount != 4 {
		t.Errorf("expected 4 rings, got %d", chip.RingCount)
	}
	if math.Abs(chip.Phi-phi.Phi) > 1e-12 {
		t.Errorf("expected default progression ratio %v, got %v", phi.Phi, chip.Phi)
	}
	if chip.Splitter == nil || !chip.Splitter.Enabled {
		t.Fatalf("expected the splitter tail to be enabled")
	}
	if sum := chip.Splitter.ThroughShare + chip.Splitter.CrossShare; math.Abs(sum-1) > 1e-9 {
		t.Errorf("expected golden split shares to sum to 1, got %v", sum)
	}

	scenario, err := config.LoadScenario(scenarioPath)
	if err != nil {
		t.Fatalf("LoadScenario(%s) failed: %v", scenarioPath, err)
	}
	if scenario.Physics.Points != 2001 {
		t.Errorf("expected 2001 grid points, got %d", scenario.Physics.Points)
	}
	if scenario.Oscillator == nil {
		t.Fatalf("expected scenario to define an oscillator block")
	}
	if scenario.Oscillator.IterationCap != 10000 {
		t.Errorf("expected default iteration cap 10000, got %d", scenario.Oscillator.IterationCap)
	}
	if scenario.Efficiency == nil || scenario.Efficiency.Curve != "trace" {
		t.Fatalf("expected a trace-curve efficiency block")
	}
	if scenario.Sweep == nil || scenario.Sweep.Scale != "golden" {
		t.Fatalf("expected a golden-scale sweep block")
	}
}

func TestIntegration_ShippedChipBuildsCleanLayout(t *testing.T) {
	chipPath := filepath.Join("..", "..", "config", "chip.yaml")
	chip, err := config.LoadChipConfig(chipPath)
	if err != nil {
		t.Fatalf("LoadChipConfig(%s) failed: %v", chipPath, err)
	}

	layout, err := geometry.Build(chip)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := drc.NewChecker().Check(layout, chip); err != nil {
		t.Fatalf("shipped chip config violates design rules: %v", err)
	}

	if len(layout.Rings) != 4 {
		t.Fatalf("expected 4 rings, got %d", len(layout.Rings))
	}
	radii := layout.Radii()
	for i := 1; i < len(radii); i++ {
		ratio := radii[i] / radii[i-1]
		if math.Abs(ratio-chip.Phi) > 1e-9 {
			t.Errorf("ring %d: expected radius ratio %v, got %v", i, chip.Phi, ratio)
		}
	}
	if len(layout.Couplers) != 1 || len(layout.MZIs) != 1 {
		t.Fatalf("expected splitter tail with 1 coupler and 1 MZI, got %d/%d",
			len(layout.Couplers), len(layout.MZIs))
	}

	summary := geometry.Summarize(layout, chip)
	if summary.Rings != 4 || summary.Primitives == 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.UtilizationPct <= 0 || summary.UtilizationPct > 100 {
		t.Errorf("expected utilization within (0, 100], got %v", summary.UtilizationPct)
	}
}
