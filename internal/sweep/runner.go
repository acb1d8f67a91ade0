package sweep

import (
	"context"
	"math"
	"time"

	"github.com/lumen-phi/photonic-core/internal/geometry"
	"github.com/lumen-phi/photonic-core/internal/resonance"
	"github.com/lumen-phi/photonic-core/pkg/config"
	"github.com/lumen-phi/photonic-core/pkg/faults"
	"github.com/lumen-phi/photonic-core/pkg/logger"
	"github.com/lumen-phi/photonic-core/pkg/models"
	"github.com/lumen-phi/photonic-core/pkg/phi"
)

// Point is the reduced characterization of the bank at one swept value.
type Point struct {
	Value float64 `json:"value"`

	MeanLoadedQ          float64 `json:"mean_loaded_q"`
	MinFinesse           float64 `json:"min_finesse"`
	WorstInsertionLossDB float64 `json:"worst_insertion_loss_db"`
	CrosstalkPairs       int     `json:"crosstalk_pairs"`
	FailedRings          int     `json:"failed_rings"`

	// SplitErrorPct is the relative deviation of the tuned golden coupler
	// from its requested cross fraction at this point's gap, in percent.
	// SplitTunable is false when no coupler length inside the fabrication
	// limit can realize the split.
	SplitErrorPct float64 `json:"split_error_pct"`
	SplitTunable  bool    `json:"split_tunable"`
}

// Result is the full sweep: one point per grid value plus the Q trend over
// the axis.
type Result struct {
	Axis            string  `json:"axis"`
	Scale           string  `json:"scale"`
	GeneratedAtUnix int64   `json:"generated_at_unix"`
	Points          []Point `json:"points"`
	QTrend          string  `json:"q_trend"` // improving, degrading, or stable
	ElapsedMs       int64   `json:"elapsed_ms"`
}

// Runner sweeps one axis of the chip against a fixed scenario.
type Runner struct {
	chip     *config.ChipConfig
	scenario *config.Scenario
	sim      *resonance.Simulator
	model    *resonance.CouplingModel
}

// NewRunner creates a sweep runner over the chip's ladder.
func NewRunner(chip *config.ChipConfig, scenario *config.Scenario) *Runner {
	return &Runner{
		chip:     chip,
		scenario: scenario,
		sim:      resonance.NewSimulator(scenario),
		model:    resonance.NewCouplingModel(scenario.Physics.Kappa0RadPerUm, scenario.Physics.DecayNm),
	}
}

// Run expands the spec into a grid and characterizes the bank at every
// value. Convergence failures degrade individual points; only cancellation
// or a non-physics error aborts the sweep.
func (r *Runner) Run(ctx context.Context, spec *config.Sweep) (*Result, error) {
	start := time.Now()

	grid, err := Grid(spec)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Axis:            spec.Axis,
		Scale:           spec.Scale,
		GeneratedAtUnix: time.Now().UnixMilli(),
		Points:          make([]Point, 0, len(grid)),
	}

	for _, value := range grid {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		point, err := r.solvePoint(value, spec.Axis)
		if err != nil {
			return nil, err
		}
		result.Points = append(result.Points, point)
	}

	result.QTrend = Trend(qSeries(result.Points))
	result.ElapsedMs = time.Since(start).Milliseconds()

	logger.Info("sweep complete",
		"axis", result.Axis,
		"points", len(result.Points),
		"q_trend", result.QTrend,
		"elapsed_ms", result.ElapsedMs)
	return result, nil
}

// solvePoint characterizes the whole bank at one swept value
func (r *Runner) solvePoint(value float64, axis string) (Point, error) {
	var radii []float64
	var gapNm float64

	switch axis {
	case AxisCouplingGapNm:
		radii = geometry.Ladder(r.chip.BaseRadiusUm, r.chip.Phi, r.chip.RingCount)
		gapNm = value
	case AxisBaseRadiusUm:
		radii = geometry.Ladder(value, r.chip.Phi, r.chip.RingCount)
		gapNm = r.chip.CouplingGapNm
	default:
		return Point{}, faults.Configf("sweep.axis", "must be coupling_gap_nm or base_radius_um, got %s", axis)
	}

	point := Point{Value: value}
	rings := make([]models.RingResult, len(radii))

	for i, radius := range radii {
		result, err := r.sim.Solve(i, radius, gapNm)
		if err != nil {
			convErr, ok := faults.AsConvergence(err)
			if !ok {
				return Point{}, err
			}
			point.FailedRings++
			rings[i] = models.RingResult{
				RingIndex:     i,
				RadiusUm:      radius,
				Failed:        true,
				FailureReason: convErr.Reason,
			}
			continue
		}
		rings[i] = result
	}

	healthy := 0
	qSum := 0.0
	for _, ring := range rings {
		if ring.Failed {
			continue
		}
		qSum += ring.LoadedQ
		if healthy == 0 || ring.Finesse < point.MinFinesse {
			point.MinFinesse = ring.Finesse
		}
		healthy++
	}
	if healthy > 0 {
		point.MeanLoadedQ = qSum / float64(healthy)
	}

	point.CrosstalkPairs = len(resonance.CrosstalkPairs(rings, r.scenario.Physics.CrosstalkWindowNm))

	cascade := resonance.NewCascade(r.scenario.Physics, radii, gapNm, rings)
	if summary := cascade.Summarize(resonance.WavelengthGrid(r.scenario.Physics)); summary != nil {
		point.WorstInsertionLossDB = summary.WorstInsertionLossDB
	}

	point.SplitTunable, point.SplitErrorPct = r.splitError(gapNm)
	return point, nil
}

// splitError tunes the golden directional coupler at the gap and reports
// its relative deviation from the requested cross share.
func (r *Runner) splitError(gapNm float64) (bool, float64) {
	cross := phi.InvSq
	if r.chip.Splitter != nil && r.chip.Splitter.CrossShare > 0 {
		cross = r.chip.Splitter.CrossShare
	}

	tuned, err := resonance.TuneCoupler(r.model, cross, gapNm, r.scenario.Physics.MaxCouplingLengthUm)
	if err != nil {
		return false, 0
	}
	return true, math.Abs(tuned.Cross-cross) / cross * 100
}

func qSeries(points []Point) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.MeanLoadedQ
	}
	return values
}

// Trend classifies a figure-of-merit series over the swept axis by its
// normalized regression slope: a relative change above 1% per point in
// either direction leaves the stable band.
func Trend(values []float64) string {
	if len(values) < 2 {
		return "stable"
	}

	n := float64(len(values))
	var sumX, sumY, sumXY, sumX2 float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumX2 += x * x
	}
	slope := (n*sumXY - sumX*sumY) / (n*sumX2 - sumX*sumX)

	mean := sumY / n
	if mean == 0 {
		return "stable"
	}
	relative := slope / math.Abs(mean)

	if relative > 0.01 {
		return "improving"
	}
	if relative < -0.01 {
		return "degrading"
	}
	return "stable"
}
