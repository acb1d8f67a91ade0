package sweep

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/lumen-phi/photonic-core/pkg/config"
)

func testChip() *config.ChipConfig {
	return &config.ChipConfig{
		BaseRadiusUm:  5.0,
		Phi:           1.618033988749895,
		RingCount:     3,
		CouplingGapNm: 200,
	}
}

func testScenario() *config.Scenario {
	return &config.Scenario{
		Workers: 2,
		Physics: config.Physics{
			GroupIndex:          2.45,
			LossPerRoundTrip:    0.01,
			WavelengthNm:        1550,
			SpanNm:              40,
			Points:              501,
			Kappa0RadPerUm:      0.25,
			DecayNm:             300,
			MaxCouplingLengthUm: 50,
			CrosstalkWindowNm:   1.0,
		},
	}
}

func TestLinearGrid(t *testing.T) {
	grid, err := Grid(&config.Sweep{Axis: AxisCouplingGapNm, From: 100, To: 300, Points: 5, Scale: "linear"})
	if err != nil {
		t.Fatalf("grid failed: %v", err)
	}
	if len(grid) != 5 {
		t.Fatalf("expected 5 points, got %d", len(grid))
	}
	if grid[0] != 100 || grid[4] != 300 {
		t.Errorf("Expected endpoints 100 and 300, got %v and %v", grid[0], grid[4])
	}
	if math.Abs(grid[1]-150) > 1e-9 {
		t.Errorf("Expected even spacing of 50, got second point %v", grid[1])
	}
}

func TestLogGrid(t *testing.T) {
	grid, err := Grid(&config.Sweep{Axis: AxisBaseRadiusUm, From: 1, To: 100, Points: 3, Scale: "log"})
	if err != nil {
		t.Fatalf("grid failed: %v", err)
	}
	if math.Abs(grid[0]-1) > 1e-9 || math.Abs(grid[2]-100) > 1e-9 {
		t.Errorf("Expected endpoints 1 and 100, got %v and %v", grid[0], grid[2])
	}
	if math.Abs(grid[1]-10) > 1e-9 {
		t.Errorf("Expected log midpoint 10, got %v", grid[1])
	}
}

func TestGoldenGrid(t *testing.T) {
	grid, err := Grid(&config.Sweep{Axis: AxisCouplingGapNm, From: 100, To: 300, Points: 8, Scale: "golden"})
	if err != nil {
		t.Fatalf("grid failed: %v", err)
	}
	if len(grid) != 8 {
		t.Fatalf("expected 8 points, got %d", len(grid))
	}
	if grid[0] != 100 || grid[7] != 300 {
		t.Errorf("Expected pinned endpoints, got %v and %v", grid[0], grid[7])
	}
	for i := 1; i < len(grid); i++ {
		if grid[i] < grid[i-1] {
			t.Fatalf("expected ascending grid, got %v before %v", grid[i-1], grid[i])
		}
	}
}

func TestGridRejectsUnknownScale(t *testing.T) {
	_, err := Grid(&config.Sweep{Axis: AxisCouplingGapNm, From: 100, To: 300, Points: 5, Scale: "cubic"})
	if err == nil {
		t.Fatal("expected unknown scale to fail")
	}
	if _, err := Grid(nil); err == nil {
		t.Fatal("expected nil spec to fail")
	}
}

func TestSweepCouplingGap(t *testing.T) {
	runner := NewRunner(testChip(), testScenario())

	result, err := runner.Run(context.Background(), &config.Sweep{
		Axis: AxisCouplingGapNm, From: 150, To: 300, Points: 5, Scale: "linear",
	})
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if result.Axis != AxisCouplingGapNm {
		t.Errorf("Expected axis echoed, got %s", result.Axis)
	}
	if len(result.Points) != 5 {
		t.Fatalf("expected 5 points, got %d", len(result.Points))
	}

	for i, p := range result.Points {
		if p.FailedRings != 0 {
			t.Errorf("Expected point %d to solve cleanly, got %d failures", i, p.FailedRings)
		}
		if p.MeanLoadedQ <= 0 {
			t.Errorf("Expected positive mean Q at point %d, got %v", i, p.MeanLoadedQ)
		}
		if !p.SplitTunable {
			t.Errorf("Expected golden split tunable at gap %v", p.Value)
		}
		if p.SplitErrorPct > 0.5 {
			t.Errorf("Expected split error under tolerance at gap %v, got %v%%", p.Value, p.SplitErrorPct)
		}
	}

	// Wider gaps weaken the coupling and narrow the linewidth.
	first := result.Points[0].MeanLoadedQ
	last := result.Points[len(result.Points)-1].MeanLoadedQ
	if last <= first {
		t.Errorf("Expected loaded Q to rise with gap, got %v -> %v", first, last)
	}
	if result.QTrend != "improving" {
		t.Errorf("Expected improving Q trend over gap, got %s", result.QTrend)
	}
}

func TestSweepBaseRadius(t *testing.T) {
	runner := NewRunner(testChip(), testScenario())

	result, err := runner.Run(context.Background(), &config.Sweep{
		Axis: AxisBaseRadiusUm, From: 3, To: 8, Points: 4, Scale: "linear",
	})
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if len(result.Points) != 4 {
		t.Fatalf("expected 4 points, got %d", len(result.Points))
	}
	for i, p := range result.Points {
		if p.MeanLoadedQ <= 0 {
			t.Errorf("Expected positive mean Q at point %d, got %v", i, p.MeanLoadedQ)
		}
		if p.MinFinesse <= 0 {
			t.Errorf("Expected positive finesse at point %d, got %v", i, p.MinFinesse)
		}
	}
}

func TestSweepHonoursCancellation(t *testing.T) {
	runner := NewRunner(testChip(), testScenario())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, &config.Sweep{
		Axis: AxisCouplingGapNm, From: 150, To: 300, Points: 5, Scale: "linear",
	})
	if err == nil {
		t.Fatal("expected cancelled sweep to fail")
	}
}

func TestTrendClassification(t *testing.T) {
	if got := Trend([]float64{100, 110, 121, 133}); got != "improving" {
		t.Errorf("Expected improving trend, got %s", got)
	}
	if got := Trend([]float64{133, 121, 110, 100}); got != "degrading" {
		t.Errorf("Expected degrading trend, got %s", got)
	}
	if got := Trend([]float64{100, 100.1, 99.9, 100}); got != "stable" {
		t.Errorf("Expected stable trend, got %s", got)
	}
	if got := Trend([]float64{42}); got != "stable" {
		t.Errorf("Expected single point to be stable, got %s", got)
	}
}

func TestWriteCSV(t *testing.T) {
	result := &Result{
		Axis:  AxisCouplingGapNm,
		Scale: "linear",
		Points: []Point{
			{Value: 150, MeanLoadedQ: 9000.5, MinFinesse: 21, WorstInsertionLossDB: 0.8, SplitTunable: true, SplitErrorPct: 0.01},
			{Value: 200, MeanLoadedQ: 14000, MinFinesse: 33, WorstInsertionLossDB: 0.5, CrosstalkPairs: 1, SplitTunable: true},
		},
	}

	var buf bytes.Buffer
	if err := result.WriteCSV(&buf); err != nil {
		t.Fatalf("write csv failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], AxisCouplingGapNm+",mean_loaded_q") {
		t.Errorf("Expected axis-led header, got %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "150,9000.5") {
		t.Errorf("Expected first row to carry the point values, got %s", lines[1])
	}
	if !strings.Contains(lines[2], ",1,0,true,") {
		t.Errorf("Expected crosstalk and tunability columns, got %s", lines[2])
	}
}
