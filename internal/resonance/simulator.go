package resonance

import (
	"context"
	"math"
	"runtime"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/lumen-phi/photonic-core/pkg/config"
	"github.com/lumen-phi/photonic-core/pkg/faults"
	"github.com/lumen-phi/photonic-core/pkg/logger"
	"github.com/lumen-phi/photonic-core/pkg/models"
)

// Simulator characterizes a ring bank against a scenario
type Simulator struct {
	scenario *config.Scenario
	solver   *ringSolver
	workers  int
}

// NewSimulator creates a simulator for the scenario. Worker count defaults
// to the machine's CPU count.
func NewSimulator(scenario *config.Scenario) *Simulator {
	workers := scenario.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Simulator{
		scenario: scenario,
		solver:   newRingSolver(scenario.Physics),
		workers:  workers,
	}
}

// Run solves every ring in parallel and assembles the batch report: per-ring
// resonances, the crosstalk pairs, and the cascaded bus response. A ring
// whose solve fails is carried as a failed entry and degrades the batch
// instead of aborting it; only cancellation or non-physics errors abort.
func (s *Simulator) Run(ctx context.Context, radiiUm []float64, gapNm float64) (*models.SimulationReport, error) {
	start := time.Now()

	radii := radiiUm
	if v := s.scenario.Variation; v != nil && v.Enabled {
		radii = Perturb(radiiUm, v)
		logger.Debug("applied fabrication variation",
			"seed", v.Seed,
			"amplitude_nm", v.AmplitudeNm,
			"correlation_um", v.CorrelationUm)
	}

	// Limit parallelism
	semaphore := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	results := make([]models.RingResult, len(radii))
	errs := make([]error, len(radii))
	var mu sync.Mutex

	for i := range radii {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			// Acquire semaphore
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if ctx.Err() != nil {
				mu.Lock()
				errs[idx] = ctx.Err()
				mu.Unlock()
				return
			}

			result, err := s.solver.Solve(idx, radii[idx], gapNm)
			mu.Lock()
			if err != nil {
				errs[idx] = err
			} else {
				results[idx] = result
			}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	degraded := false
	for i, err := range errs {
		if err == nil {
			continue
		}
		convErr, ok := faults.AsConvergence(err)
		if !ok {
			return nil, err
		}
		degraded = true
		results[i] = models.RingResult{
			RingIndex:     i,
			RadiusUm:      radii[i],
			RoundTripUm:   2 * math.Pi * radii[i],
			CouplingGapNm: gapNm,
			Failed:        true,
			FailureReason: convErr.Reason,
		}
		logger.Warn("ring solve failed", "ring", convErr.Unit, "reason", convErr.Reason)
	}

	report := &models.SimulationReport{
		Status:          models.RunStatusCompleted,
		GeneratedAtUnix: time.Now().UnixMilli(),
		GroupIndex:      s.scenario.Physics.GroupIndex,
		LossPerTrip:     s.scenario.Physics.LossPerRoundTrip,
		CenterNm:        s.scenario.Physics.WavelengthNm,
		SpanNm:          s.scenario.Physics.SpanNm,
		Rings:           results,
	}
	if degraded {
		report.Status = models.RunStatusDegraded
	}

	report.Crosstalk = CrosstalkPairs(results, s.scenario.Physics.CrosstalkWindowNm)

	cascade := NewCascade(s.scenario.Physics, radii, gapNm, results)
	grid := WavelengthGrid(s.scenario.Physics)
	report.Cascade = cascade.Summarize(grid)

	report.ElapsedMs = time.Since(start).Milliseconds()
	logger.Info("resonance batch solved",
		"rings", len(radii),
		"status", string(report.Status),
		"crosstalk_pairs", len(report.Crosstalk),
		"elapsed_ms", report.ElapsedMs)
	return report, nil
}

// Sweep returns the through-port transmission of a single ring across the
// wavelength grid.
func (s *Simulator) Sweep(radiusUm, gapNm float64, grid []float64) []float64 {
	out := make([]float64, len(grid))
	for i, wl := range grid {
		out[i] = s.solver.Through(radiusUm, gapNm, wl)
	}
	return out
}

// Solve characterizes a single ring without assembling a batch report.
func (s *Simulator) Solve(index int, radiusUm, gapNm float64) (models.RingResult, error) {
	return s.solver.Solve(index, radiusUm, gapNm)
}

// SolveCoupling characterizes a single ring with an imposed power coupling,
// bypassing the gap model. The result's gap field carries the direct-coupling
// marker so downstream consumers can tell the two apart.
func (s *Simulator) SolveCoupling(index int, radiusUm, coupling float64) (models.RingResult, error) {
	return s.solver.solveCoupling(index, radiusUm, directCoupling, coupling)
}

// OverlapMatrix builds the symmetric spectral-overlap matrix of the solved
// rings. Entry (i, j) is the Lorentzian overlap of the two resonances; rows
// of failed rings stay zero.
func OverlapMatrix(rings []models.RingResult) *mat.SymDense {
	n := len(rings)
	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if rings[i].Failed {
			continue
		}
		m.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			if rings[j].Failed {
				continue
			}
			m.SetSym(i, j, resonanceOverlap(&rings[i], &rings[j]))
		}
	}
	return m
}

// resonanceOverlap is the Lorentzian overlap of two resonances: 1 at zero
// separation, 1/2 when the lines sit one average linewidth apart.
func resonanceOverlap(a, b *models.RingResult) float64 {
	sep := math.Abs(a.ResonantWavelengthNm - b.ResonantWavelengthNm)
	halfSum := (a.FWHMNm + b.FWHMNm) / 2
	if halfSum <= 0 {
		return 0
	}
	x := sep / halfSum
	return 1 / (1 + x*x)
}

// CrosstalkPairs flags every ring pair whose resonant wavelengths fall
// inside the crosstalk window.
func CrosstalkPairs(rings []models.RingResult, windowNm float64) []models.CrosstalkPair {
	overlaps := OverlapMatrix(rings)
	var pairs []models.CrosstalkPair
	for i := 0; i < len(rings); i++ {
		if rings[i].Failed {
			continue
		}
		for j := i + 1; j < len(rings); j++ {
			if rings[j].Failed {
				continue
			}
			sep := math.Abs(rings[i].ResonantWavelengthNm - rings[j].ResonantWavelengthNm)
			if sep < windowNm {
				pairs = append(pairs, models.CrosstalkPair{
					RingA:        i,
					RingB:        j,
					SeparationNm: sep,
					Overlap:      overlaps.At(i, j),
				})
			}
		}
	}
	return pairs
}
