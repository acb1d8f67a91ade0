// Package sweep walks one chip parameter across a grid and characterizes
// the ring bank at every point, reducing each batch to mean loaded Q, bus
// insertion loss, and golden-split error.
package sweep

import (
	"math"
	"sort"

	"github.com/lumen-phi/photonic-core/pkg/config"
	"github.com/lumen-phi/photonic-core/pkg/faults"
	"github.com/lumen-phi/photonic-core/pkg/phi"
)

// Swept axes
const (
	AxisCouplingGapNm = "coupling_gap_nm"
	AxisBaseRadiusUm  = "base_radius_um"
)

// Grid expands a sweep spec into the parameter values to visit.
func Grid(spec *config.Sweep) ([]float64, error) {
	if spec == nil {
		return nil, faults.Configf("sweep", "sweep section is missing")
	}
	switch spec.Scale {
	case "linear", "":
		return linearGrid(spec.From, spec.To, spec.Points), nil
	case "log":
		return logGrid(spec.From, spec.To, spec.Points), nil
	case "golden":
		return goldenGrid(spec.From, spec.To, spec.Points), nil
	default:
		return nil, faults.Configf("sweep.scale", "must be linear, log, or golden, got %s", spec.Scale)
	}
}

// linearGrid spaces points evenly between from and to, inclusive
func linearGrid(from, to float64, points int) []float64 {
	grid := make([]float64, points)
	step := (to - from) / float64(points-1)
	for i := range grid {
		grid[i] = from + float64(i)*step
	}
	return grid
}

// logGrid spaces points evenly in log space, inclusive
func logGrid(from, to float64, points int) []float64 {
	grid := make([]float64, points)
	logFrom := math.Log(from)
	step := (math.Log(to) - logFrom) / float64(points-1)
	for i := range grid {
		grid[i] = math.Exp(logFrom + float64(i)*step)
	}
	return grid
}

// goldenGrid samples the interval with the golden low-discrepancy sequence:
// successive points land at fractional multiples of 1/φ, filling the range
// evenly at every prefix length. Endpoints are pinned; interior points are
// sorted ascending.
func goldenGrid(from, to float64, points int) []float64 {
	grid := make([]float64, points)
	grid[0] = from
	grid[points-1] = to

	width := to - from
	for i := 1; i < points-1; i++ {
		frac := math.Mod(float64(i)*phi.Inv, 1)
		grid[i] = from + width*frac
	}
	sort.Float64s(grid)
	return grid
}
