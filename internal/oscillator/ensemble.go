// Package oscillator implements the discrete-time phase-lock model: a bank
// of oscillators pulled toward a shared target phase with a golden-damped
// step gain, with coherence measured by the Kuramoto order parameter and a
// state machine deciding between lock and divergence.
package oscillator

import (
	"context"
	"fmt"
	"math"

	"github.com/lumen-phi/photonic-core/pkg/config"
	"github.com/lumen-phi/photonic-core/pkg/faults"
	"github.com/lumen-phi/photonic-core/pkg/logger"
	"github.com/lumen-phi/photonic-core/pkg/models"
	"github.com/lumen-phi/photonic-core/pkg/phi"
	"github.com/lumen-phi/photonic-core/pkg/utils"
)

// StepReporter receives the coherence after each step, on the stepping
// goroutine. The daemon uses it to stream live lock progress.
type StepReporter func(step int, coherence float64)

// Ensemble holds the mutable phase state of one oscillator bank.
type Ensemble struct {
	cfg      *config.Oscillator
	phases   []float64
	freqs    []float64
	gain     float64
	reporter StepReporter
}

// NewEnsemble seeds the bank. Explicit initial phases take precedence;
// otherwise phases are drawn uniformly from [-pi, pi) with the configured
// seed so reruns are bit-identical.
func NewEnsemble(cfg *config.Oscillator) *Ensemble {
	phases := make([]float64, cfg.Count)
	if len(cfg.InitialPhases) == cfg.Count {
		copy(phases, cfg.InitialPhases)
	} else {
		rng := utils.NewRandSource(cfg.Seed)
		for i := range phases {
			phases[i] = rng.UniformFloat64(-math.Pi, math.Pi)
		}
	}

	// Natural frequencies walk down the golden ladder: oscillator i sits a
	// factor phi^i below the base, mirroring the ring radii it models.
	freqs := make([]float64, cfg.Count)
	for i := range freqs {
		freqs[i] = 2 * math.Pi * cfg.BaseFrequencyHz / phi.Pow(i)
	}

	return &Ensemble{
		cfg:    cfg,
		phases: phases,
		freqs:  freqs,
		gain:   cfg.Alpha / phi.Phi,
	}
}

// WithStepReporter sets a per-step progress callback.
func (e *Ensemble) WithStepReporter(fn StepReporter) *Ensemble {
	e.reporter = fn
	return e
}

func (e *Ensemble) report(step int, coherence float64) {
	if e.reporter != nil {
		e.reporter(step, coherence)
	}
}

// Coherence is the Kuramoto order parameter of the current phases.
func (e *Ensemble) Coherence() float64 {
	var re, im float64
	for _, theta := range e.phases {
		re += math.Cos(theta)
		im += math.Sin(theta)
	}
	n := float64(len(e.phases))
	return math.Hypot(re/n, im/n)
}

// step advances every phase one tick: the golden-damped pull toward the
// target plus the natural-frequency drift.
func (e *Ensemble) step() {
	for i, theta := range e.phases {
		e.phases[i] = theta + e.gain*math.Sin(e.cfg.TargetPhase-theta) + e.freqs[i]*e.cfg.DtS
	}
}

// Run steps the ensemble until it locks, diverges, or hits the iteration
// cap. The trace is populated in every terminal state; a diverged run
// returns it alongside a ConvergenceError so callers can fail the
// operation while keeping the evidence.
func (e *Ensemble) Run(ctx context.Context) (*models.OscillatorTrace, error) {
	cfg := e.cfg
	det := newDetector(cfg)

	trace := &models.OscillatorTrace{
		State:       models.PhaseSearching,
		LockStep:    -1,
		Oscillators: cfg.Count,
		StepGain:    e.gain,
		Coherence:   make([]float64, 0, cfg.IterationCap+1),
	}
	trace.Coherence = append(trace.Coherence, e.Coherence())
	e.report(0, trace.Coherence[0])

	transition := func(step int, to models.OscillatorPhaseState, reason string) {
		trace.Transitions = append(trace.Transitions, models.Transition{
			Step:   step,
			From:   trace.State,
			To:     to,
			Reason: reason,
		})
		logger.Debug("oscillator transition",
			"step", step, "from", string(trace.State), "to", string(to), "reason", reason)
		trace.State = to
	}

	consecutive := 0
	for step := 1; step <= cfg.IterationCap; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		e.step()
		r := e.Coherence()
		trace.Coherence = append(trace.Coherence, r)
		trace.Steps = step
		e.report(step, r)

		if swinging, reason := det.oscillating(trace.Coherence); swinging {
			transition(step, models.PhaseDiverged, reason)
			break
		}

		switch trace.State {
		case models.PhaseSearching:
			if rising, reason := det.rising(trace.Coherence); rising {
				transition(step, models.PhaseLocking, reason)
			} else if r >= cfg.LockThreshold {
				transition(step, models.PhaseLocking,
					fmt.Sprintf("coherence %.4f already above lock threshold %.2f", r, cfg.LockThreshold))
			}
		case models.PhaseLocking:
			if r >= cfg.LockThreshold {
				consecutive++
			} else {
				consecutive = 0
			}
			if consecutive >= cfg.LockHoldSteps {
				trace.Locked = true
				trace.LockStep = step
				transition(step, models.PhaseLocked,
					fmt.Sprintf("coherence held at or above %.2f for %d consecutive steps",
						cfg.LockThreshold, cfg.LockHoldSteps))
			}
		}

		if trace.State == models.PhaseLocked || trace.State == models.PhaseDiverged {
			break
		}
	}

	trace.FinalPhases = append([]float64(nil), e.phases...)

	if trace.State == models.PhaseLocked {
		logger.Info("oscillator ensemble locked",
			"oscillators", cfg.Count, "lock_step", trace.LockStep, "steps", trace.Steps)
		return trace, nil
	}

	if trace.State != models.PhaseDiverged {
		transition(trace.Steps, models.PhaseDiverged,
			fmt.Sprintf("iteration cap %d reached without sustained lock (final coherence %.4f)",
				cfg.IterationCap, trace.Coherence[len(trace.Coherence)-1]))
	}
	trace.Locked = false
	trace.Reason = trace.Transitions[len(trace.Transitions)-1].Reason
	logger.Warn("oscillator ensemble failed to lock",
		"oscillators", cfg.Count, "steps", trace.Steps, "reason", trace.Reason)
	return trace, faults.Convergencef("oscillator", "%s", trace.Reason)
}
