package resonance

import (
	"context"
	"math"
	"testing"

	"github.com/lumen-phi/photonic-core/pkg/config"
	"github.com/lumen-phi/photonic-core/pkg/models"
	"github.com/lumen-phi/photonic-core/pkg/phi"
)

func testScenario() *config.Scenario {
	return &config.Scenario{
		Workers: 4,
		Physics: testPhysics(),
	}
}

func goldenLadder(base float64, count int) []float64 {
	radii := make([]float64, count)
	for i := range radii {
		radii[i] = phi.Scale(base, i)
	}
	return radii
}

func TestRunHealthyBatch(t *testing.T) {
	sim := NewSimulator(testScenario())

	report, err := sim.Run(context.Background(), goldenLadder(5.0, 4), 200)
	if err != nil {
		t.Fatalf("expected healthy batch to run, got error: %v", err)
	}

	if report.Status != models.RunStatusCompleted {
		t.Errorf("Expected status completed, got %s", report.Status)
	}
	if len(report.Rings) != 4 {
		t.Fatalf("expected 4 ring results, got %d", len(report.Rings))
	}
	for i, ring := range report.Rings {
		if ring.Failed {
			t.Errorf("Expected ring %d to solve, got failure: %s", i, ring.FailureReason)
		}
		if ring.RingIndex != i {
			t.Errorf("Expected ring index %d preserved, got %d", i, ring.RingIndex)
		}
	}
	if report.GroupIndex != 2.45 {
		t.Errorf("Expected group index echoed as 2.45, got %v", report.GroupIndex)
	}
	if report.CenterNm != 1550 || report.SpanNm != 40 {
		t.Errorf("Expected sweep window echoed, got center %v span %v", report.CenterNm, report.SpanNm)
	}
	if report.Cascade == nil {
		t.Fatal("expected cascade summary in report")
	}
	if report.Cascade.Points != 2001 {
		t.Errorf("Expected cascade over 2001 points, got %d", report.Cascade.Points)
	}
	if report.ElapsedMs < 0 {
		t.Errorf("Expected non-negative elapsed time, got %d", report.ElapsedMs)
	}
}

func TestRunGoldenLadderHasNoCrosstalk(t *testing.T) {
	sim := NewSimulator(testScenario())

	report, err := sim.Run(context.Background(), goldenLadder(5.0, 4), 200)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(report.Crosstalk) != 0 {
		t.Errorf("Expected phi-spaced ladder to clear the 1 nm window, got %d pairs", len(report.Crosstalk))
	}
}

func TestRunFlagsCrosstalkForNearDegenerateRings(t *testing.T) {
	sim := NewSimulator(testScenario())

	// Two radii 1 nm apart share order 50 and land ~0.31 nm apart.
	report, err := sim.Run(context.Background(), []float64{5.0, 5.001}, 200)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(report.Crosstalk) != 1 {
		t.Fatalf("expected exactly one crosstalk pair, got %d", len(report.Crosstalk))
	}

	pair := report.Crosstalk[0]
	if pair.RingA != 0 || pair.RingB != 1 {
		t.Errorf("Expected pair (0, 1), got (%d, %d)", pair.RingA, pair.RingB)
	}
	if math.Abs(pair.SeparationNm-0.3079) > 0.002 {
		t.Errorf("Expected separation near 0.3079 nm, got %v", pair.SeparationNm)
	}
	if pair.Overlap < 0.7 || pair.Overlap > 0.8 {
		t.Errorf("Expected Lorentzian overlap in (0.7, 0.8), got %v", pair.Overlap)
	}
}

func TestRunDegradesOnFailedRing(t *testing.T) {
	sim := NewSimulator(testScenario())

	report, err := sim.Run(context.Background(), []float64{5.0, 0.05}, 200)
	if err != nil {
		t.Fatalf("expected degraded batch to return a report, got error: %v", err)
	}

	if report.Status != models.RunStatusDegraded {
		t.Errorf("Expected status degraded, got %s", report.Status)
	}
	if report.Rings[0].Failed {
		t.Error("Expected healthy ring 0 to stay healthy")
	}
	if !report.Rings[1].Failed {
		t.Fatal("expected ring 1 to be marked failed")
	}
	if report.Rings[1].FailureReason == "" {
		t.Error("Expected failure reason to be recorded")
	}
	if report.Rings[1].RadiusUm != 0.05 {
		t.Errorf("Expected failed ring to keep its radius, got %v", report.Rings[1].RadiusUm)
	}
	if report.Cascade == nil {
		t.Error("Expected cascade summary even for a degraded batch")
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	sim := NewSimulator(testScenario())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := sim.Run(ctx, goldenLadder(5.0, 4), 200)
	if err == nil {
		t.Fatal("expected cancelled run to fail, got nil")
	}
	if report != nil {
		t.Error("Expected no report from a cancelled run")
	}
}

func TestRunVariationIsDeterministic(t *testing.T) {
	scenario := testScenario()
	scenario.Variation = &config.Variation{
		Enabled:       true,
		Seed:          7,
		AmplitudeNm:   5,
		CorrelationUm: 50,
	}
	sim := NewSimulator(scenario)

	first, err := sim.Run(context.Background(), goldenLadder(5.0, 4), 200)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := sim.Run(context.Background(), goldenLadder(5.0, 4), 200)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	for i := range first.Rings {
		if first.Rings[i].RadiusUm != second.Rings[i].RadiusUm {
			t.Errorf("ring %d: seeded variation not reproducible: %v vs %v",
				i, first.Rings[i].RadiusUm, second.Rings[i].RadiusUm)
		}
		if d := math.Abs(first.Rings[i].RadiusUm - phi.Scale(5.0, i)); d > 0.005+1e-12 {
			t.Errorf("ring %d: perturbation %v um exceeds 5 nm amplitude", i, d)
		}
	}
}

func TestOverlapMatrix(t *testing.T) {
	rings := []models.RingResult{
		{ResonantWavelengthNm: 1550.0, FWHMNm: 0.5},
		{ResonantWavelengthNm: 1550.5, FWHMNm: 0.5},
		{Failed: true},
	}

	m := OverlapMatrix(rings)
	if r, c := m.Dims(); r != 3 || c != 3 {
		t.Fatalf("expected 3x3 matrix, got %dx%d", r, c)
	}
	// One average linewidth of separation halves the overlap.
	if got := m.At(0, 1); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("Expected overlap 0.5 at one linewidth separation, got %v", got)
	}
	if m.At(0, 1) != m.At(1, 0) {
		t.Error("Expected symmetric overlap matrix")
	}
	if m.At(0, 0) != 1 {
		t.Errorf("Expected unit diagonal, got %v", m.At(0, 0))
	}
	if m.At(0, 2) != 0 || m.At(2, 2) != 0 {
		t.Error("Expected failed ring rows to stay zero")
	}
}

func TestCrosstalkPairsRespectWindow(t *testing.T) {
	rings := []models.RingResult{
		{ResonantWavelengthNm: 1550.0, FWHMNm: 0.5},
		{ResonantWavelengthNm: 1550.4, FWHMNm: 0.5},
		{ResonantWavelengthNm: 1553.0, FWHMNm: 0.5},
	}

	pairs := CrosstalkPairs(rings, 1.0)
	if len(pairs) != 1 {
		t.Fatalf("expected one pair inside the 1 nm window, got %d", len(pairs))
	}
	if pairs[0].RingA != 0 || pairs[0].RingB != 1 {
		t.Errorf("Expected pair (0, 1), got (%d, %d)", pairs[0].RingA, pairs[0].RingB)
	}
	if math.Abs(pairs[0].SeparationNm-0.4) > 1e-9 {
		t.Errorf("Expected separation 0.4 nm, got %v", pairs[0].SeparationNm)
	}
}
