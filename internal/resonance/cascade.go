package resonance

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/mat"

	"github.com/lumen-phi/photonic-core/pkg/config"
	"github.com/lumen-phi/photonic-core/pkg/models"
)

// Cascade models the shared bus threading every ring in series. Each healthy
// ring contributes one complex 2x2 stage: the bus field is scaled by the
// ring's through coefficient while the tapped drop field accumulates in the
// second row. Failed rings are skipped so a degraded batch still yields a
// bus response.
type Cascade struct {
	solver    *ringSolver
	radii     []float64
	gapNm     float64
	couplings []float64
	skip      map[int]bool
}

// NewCascade builds the cascade for the given ladder. The results slice
// marks which rings failed to solve and must be skipped; pass nil when all
// rings are healthy.
func NewCascade(physics config.Physics, radiiUm []float64, gapNm float64, results []models.RingResult) *Cascade {
	return &Cascade{
		solver: newRingSolver(physics),
		radii:  radiiUm,
		gapNm:  gapNm,
		skip:   skipSet(results),
	}
}

// NewCascadeCouplings builds a cascade whose per-ring power couplings are
// imposed directly instead of derived from a shared gap. couplings must be
// the same length as radiiUm.
func NewCascadeCouplings(physics config.Physics, radiiUm, couplings []float64, results []models.RingResult) *Cascade {
	return &Cascade{
		solver:    newRingSolver(physics),
		radii:     radiiUm,
		couplings: couplings,
		skip:      skipSet(results),
	}
}

func skipSet(results []models.RingResult) map[int]bool {
	skip := make(map[int]bool)
	for i, r := range results {
		if r.Failed {
			skip[i] = true
		}
	}
	return skip
}

// TransmissionAt evaluates the end-to-end bus power transmission at one
// wavelength by multiplying the per-ring stage matrices.
func (c *Cascade) TransmissionAt(wavelengthNm float64) float64 {
	acc := mat.NewCDense(2, 2, []complex128{1, 0, 0, 1})
	next := mat.NewCDense(2, 2, nil)
	stage := mat.NewCDense(2, 2, nil)

	for i, radius := range c.radii {
		if c.skip[i] {
			continue
		}
		var tau, delta complex128
		if c.couplings != nil {
			tau = c.solver.throughFieldAt(c.couplings[i], radius, wavelengthNm)
			delta = c.solver.dropFieldAt(c.couplings[i], radius, wavelengthNm)
		} else {
			tau = c.solver.throughField(radius, c.gapNm, wavelengthNm)
			delta = c.solver.dropField(radius, c.gapNm, wavelengthNm)
		}
		stage.Set(0, 0, tau)
		stage.Set(0, 1, 0)
		stage.Set(1, 0, delta)
		stage.Set(1, 1, 1)

		cblas128.Gemm(blas.NoTrans, blas.NoTrans, 1, stage.RawCMatrix(), acc.RawCMatrix(), 0, next.RawCMatrix())
		acc, next = next, acc
	}

	field := acc.At(0, 0)
	abs := cmplx.Abs(field)
	return abs * abs
}

// Sweep evaluates the bus transmission across a wavelength grid.
func (c *Cascade) Sweep(grid []float64) []float64 {
	out := make([]float64, len(grid))
	for i, wl := range grid {
		out[i] = c.TransmissionAt(wl)
	}
	return out
}

// Summarize sweeps the grid and reduces it to the cascade figures of merit.
// Returns nil for an empty grid.
func (c *Cascade) Summarize(grid []float64) *models.CascadeSummary {
	if len(grid) == 0 {
		return nil
	}
	trans := c.Sweep(grid)

	minT := trans[0]
	minAt := grid[0]
	sum := 0.0
	for i, t := range trans {
		if t < minT {
			minT = t
			minAt = grid[i]
		}
		sum += t
	}

	// Floor keeps the insertion loss finite for JSON encoding; a lossless
	// critically coupled ring can null the bus exactly on resonance.
	floored := minT
	if floored < 1e-300 {
		floored = 1e-300
	}

	return &models.CascadeSummary{
		Points:               len(grid),
		MinTransmission:      minT,
		MinTransmissionAtNm:  minAt,
		MeanTransmission:     sum / float64(len(trans)),
		WorstInsertionLossDB: -10 * math.Log10(floored),
	}
}
