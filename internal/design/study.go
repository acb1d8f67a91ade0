package design

import (
	"context"
	"math"
	"time"

	"github.com/lumen-phi/photonic-core/internal/resonance"
	"github.com/lumen-phi/photonic-core/pkg/config"
	"github.com/lumen-phi/photonic-core/pkg/faults"
	"github.com/lumen-phi/photonic-core/pkg/logger"
	"github.com/lumen-phi/photonic-core/pkg/models"
)

// VariantResult is one solved variant with its figures of merit.
type VariantResult struct {
	Variant     string    `json:"variant"`
	RadiusScale float64   `json:"radius_scale"`
	Couplings   []float64 `json:"couplings"`

	MeanLoadedQ          float64 `json:"mean_loaded_q"`
	MinFinesse           float64 `json:"min_finesse"`
	WorstInsertionLossDB float64 `json:"worst_insertion_loss_db"`
	CrosstalkPairs       int     `json:"crosstalk_pairs"`
	FailedRings          int     `json:"failed_rings"`

	Rings []models.RingResult `json:"rings"`

	Score     float64 `json:"score"`
	Evaluated bool    `json:"-"`
}

// StudyReport is the outcome of a variant study: every solved variant, the
// selected winner, and its improvement over the conventional baseline.
type StudyReport struct {
	Objective       string  `json:"objective"`
	Strategy        string  `json:"strategy"`
	GeneratedAtUnix int64   `json:"generated_at_unix"`
	Baseline        string  `json:"baseline"`
	Winner          string  `json:"winner"`
	ImprovementPct  float64 `json:"improvement_pct"`
	ElapsedMs       int64   `json:"elapsed_ms"`

	Variants []*VariantResult `json:"variants"`
}

// Study solves a fixed set of coupling variants over one radius ladder and
// selects a winner.
type Study struct {
	scenario  *config.Scenario
	sim       *resonance.Simulator
	objective Objective
	strategy  SelectionStrategy
}

// NewStudy creates a study for the scenario. The objective name selects one
// of the built-in objectives; selection defaults to best score.
func NewStudy(scenario *config.Scenario, objectiveName string) (*Study, error) {
	objective, err := NewObjective(objectiveName)
	if err != nil {
		return nil, err
	}
	return &Study{
		scenario:  scenario,
		sim:       resonance.NewSimulator(scenario),
		objective: objective,
		strategy:  &BestScoreStrategy{},
	}, nil
}

// WithStrategy replaces the selection strategy.
func (s *Study) WithStrategy(strategy SelectionStrategy) *Study {
	s.strategy = strategy
	return s
}

// Run solves the standard variant set over the ladder and selects the
// winner. The first variant is the comparison baseline.
func (s *Study) Run(ctx context.Context, radiiUm []float64) (*StudyReport, error) {
	return s.RunVariants(ctx, radiiUm, Variants(len(radiiUm)))
}

// RunVariants solves an explicit variant set. Every variant must carry one
// coupling per ladder entry.
func (s *Study) RunVariants(ctx context.Context, radiiUm []float64, variants []Variant) (*StudyReport, error) {
	start := time.Now()

	results := make([]*VariantResult, 0, len(variants))
	for _, v := range variants {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(v.Couplings) != len(radiiUm) {
			return nil, faults.Configf("variants",
				"variant %s carries %d couplings for %d rings", v.Name, len(v.Couplings), len(radiiUm))
		}

		result, err := s.solveVariant(ctx, v, radiiUm)
		if err != nil {
			return nil, err
		}

		score, err := s.objective.Evaluate(result)
		if err != nil {
			return nil, err
		}
		result.Score = score
		result.Evaluated = true
		results = append(results, result)

		logger.Debug("variant solved",
			"variant", v.Name,
			"mean_loaded_q", result.MeanLoadedQ,
			"worst_insertion_loss_db", result.WorstInsertionLossDB,
			"score", result.Score)
	}

	winner, err := s.strategy.SelectBest(results, s.objective)
	if err != nil {
		return nil, err
	}

	report := &StudyReport{
		Objective:       s.objective.Name(),
		Strategy:        s.strategy.Name(),
		GeneratedAtUnix: time.Now().UnixMilli(),
		Baseline:        results[0].Variant,
		Winner:          winner.Variant,
		ImprovementPct:  ImprovementPercentage(results[0].Score, winner.Score),
		ElapsedMs:       time.Since(start).Milliseconds(),
		Variants:        results,
	}

	logger.Info("variant study complete",
		"objective", report.Objective,
		"winner", report.Winner,
		"improvement_pct", report.ImprovementPct,
		"variants", len(results))
	return report, nil
}

// solveVariant characterizes every ring of one variant and reduces the
// results to the variant's figures of merit. Convergence failures degrade
// the variant instead of aborting the study.
func (s *Study) solveVariant(ctx context.Context, v Variant, radiiUm []float64) (*VariantResult, error) {
	radii := v.ScaledRadii(radiiUm)
	rings := make([]models.RingResult, len(radii))
	failed := 0

	for i := range radii {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := s.sim.SolveCoupling(i, radii[i], v.Couplings[i])
		if err != nil {
			convErr, ok := faults.AsConvergence(err)
			if !ok {
				return nil, err
			}
			failed++
			rings[i] = models.RingResult{
				RingIndex:     i,
				RadiusUm:      radii[i],
				RoundTripUm:   2 * math.Pi * radii[i],
				PowerCoupling: v.Couplings[i],
				Failed:        true,
				FailureReason: convErr.Reason,
			}
			logger.Warn("variant ring solve failed",
				"variant", v.Name, "ring", convErr.Unit, "reason", convErr.Reason)
			continue
		}
		rings[i] = result
	}

	result := &VariantResult{
		Variant:     v.Name,
		RadiusScale: v.RadiusScale,
		Couplings:   v.Couplings,
		FailedRings: failed,
		Rings:       rings,
	}

	healthy := 0
	qSum := 0.0
	for _, r := range rings {
		if r.Failed {
			continue
		}
		qSum += r.LoadedQ
		if healthy == 0 || r.Finesse < result.MinFinesse {
			result.MinFinesse = r.Finesse
		}
		healthy++
	}
	if healthy > 0 {
		result.MeanLoadedQ = qSum / float64(healthy)
	}

	result.CrosstalkPairs = len(resonance.CrosstalkPairs(rings, s.scenario.Physics.CrosstalkWindowNm))

	cascade := resonance.NewCascadeCouplings(s.scenario.Physics, radii, v.Couplings, rings)
	if summary := cascade.Summarize(resonance.WavelengthGrid(s.scenario.Physics)); summary != nil {
		result.WorstInsertionLossDB = summary.WorstInsertionLossDB
	}

	return result, nil
}
