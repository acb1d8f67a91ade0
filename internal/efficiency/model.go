// Package efficiency prices a modulator bank two ways over a fixed horizon:
// always-on active drive versus a resonant lock that runs at full power only
// until lock and then pays maintenance power scaled by the remaining
// incoherence.
package efficiency

import (
	"math"

	"github.com/lumen-phi/photonic-core/pkg/config"
	"github.com/lumen-phi/photonic-core/pkg/faults"
	"github.com/lumen-phi/photonic-core/pkg/logger"
	"github.com/lumen-phi/photonic-core/pkg/models"
	"github.com/lumen-phi/photonic-core/pkg/utils"
)

// CoherenceFunc maps elapsed seconds to the ensemble coherence in [0, 1].
type CoherenceFunc func(tS float64) float64

// Logistic is the closed-form S-curve approach to full coherence, centered
// on the lock time with the given time constant.
func Logistic(lockTimeS, timeConstantS float64) CoherenceFunc {
	return func(tS float64) float64 {
		return 1 / (1 + math.Exp(-(tS-lockTimeS)/timeConstantS))
	}
}

// Exponential is the closed-form saturating approach to full coherence
// starting at the lock time.
func Exponential(lockTimeS, timeConstantS float64) CoherenceFunc {
	return func(tS float64) float64 {
		if tS < lockTimeS {
			return 0
		}
		return 1 - math.Exp(-(tS-lockTimeS)/timeConstantS)
	}
}

// FromTrace adapts a recorded oscillator trace sampled at dtS per step.
// Queries beyond the recorded steps hold the final coherence.
func FromTrace(trace *models.OscillatorTrace, dtS float64) CoherenceFunc {
	return func(tS float64) float64 {
		if dtS <= 0 {
			return 0
		}
		return trace.CoherenceAt(int(math.Round(tS / dtS)))
	}
}

// Evaluate dispatches on the configured curve. The oscillator config and
// trace are consulted only for the trace curve.
func Evaluate(cfg *config.Efficiency, osc *config.Oscillator, trace *models.OscillatorTrace) (*models.EfficiencyReport, error) {
	switch cfg.Curve {
	case "logistic", "exponential":
		return EvaluateClosedForm(cfg)
	case "trace":
		if osc == nil || trace == nil {
			return nil, faults.Configf("efficiency.curve", "trace curve requires an oscillator run")
		}
		return EvaluateTrace(cfg, osc, trace)
	default:
		return nil, faults.Configf("efficiency.curve", "unknown coherence curve %q", cfg.Curve)
	}
}

// EvaluateClosedForm prices the horizon with the closed-form curve named in
// the config.
func EvaluateClosedForm(cfg *config.Efficiency) (*models.EfficiencyReport, error) {
	var curve CoherenceFunc
	switch cfg.Curve {
	case "logistic":
		curve = Logistic(cfg.LockTimeS, cfg.TimeConstantS)
	case "exponential":
		curve = Exponential(cfg.LockTimeS, cfg.TimeConstantS)
	default:
		return nil, faults.Configf("efficiency.curve", "unknown coherence curve %q", cfg.Curve)
	}
	return evaluate(cfg, cfg.Curve, curve)
}

// EvaluateTrace prices the horizon against a recorded oscillator run. The
// lock time comes from the trace, not the config, and the report carries
// the threshold that defined the lock.
func EvaluateTrace(cfg *config.Efficiency, osc *config.Oscillator, trace *models.OscillatorTrace) (*models.EfficiencyReport, error) {
	if !trace.Locked {
		return nil, faults.Convergencef("oscillator",
			"cannot price a lock that was never reached: %s", trace.Reason)
	}

	scoped := *cfg
	scoped.LockTimeS = float64(trace.LockStep) * osc.DtS

	report, err := evaluate(&scoped, "trace", FromTrace(trace, osc.DtS))
	if err != nil {
		return nil, err
	}
	report.LockThreshold = osc.LockThreshold
	return report, nil
}

// evaluate integrates the two energy budgets over the horizon.
func evaluate(cfg *config.Efficiency, curveName string, coherence CoherenceFunc) (*models.EfficiencyReport, error) {
	if cfg.PMaintainMw >= cfg.PActiveMw {
		return nil, faults.Configf("efficiency.p_maintain_mw",
			"maintenance power %.3f mW must be below active power %.3f mW",
			cfg.PMaintainMw, cfg.PActiveMw)
	}
	if cfg.HorizonS <= cfg.LockTimeS {
		return nil, faults.Configf("efficiency.horizon_s",
			"horizon %.3f s must exceed lock time %.3f s", cfg.HorizonS, cfg.LockTimeS)
	}

	pActiveW := cfg.PActiveMw / 1000
	pMaintainW := cfg.PMaintainMw / 1000
	energyActive := pActiveW * cfg.HorizonS

	steps := cfg.Steps
	if steps < 2 {
		steps = 2
	}
	x := make([]float64, steps+1)
	y := make([]float64, steps+1)
	span := cfg.HorizonS - cfg.LockTimeS
	for i := range x {
		t := cfg.LockTimeS + span*float64(i)/float64(steps)
		c := utils.ClampFloat64(coherence(t), 0, 1)
		x[i] = t
		y[i] = pMaintainW * (1 - c)
	}
	energyResonant := pActiveW*cfg.LockTimeS + utils.Trapezoid(x, y)
	if energyResonant <= 0 {
		return nil, faults.Configf("efficiency",
			"resonant energy over the horizon is zero; nothing to compare")
	}

	report := &models.EfficiencyReport{
		HorizonS:        cfg.HorizonS,
		PActiveW:        pActiveW,
		PMaintainW:      pMaintainW,
		LockTimeS:       cfg.LockTimeS,
		CoherenceCurve:  curveName,
		EnergyActiveJ:   energyActive,
		EnergyResonantJ: energyResonant,
		Ratio:           energyActive / energyResonant,
	}
	logger.Debug("efficiency evaluated",
		"curve", curveName,
		"energy_active_j", report.EnergyActiveJ,
		"energy_resonant_j", report.EnergyResonantJ,
		"ratio", report.Ratio)
	return report, nil
}
