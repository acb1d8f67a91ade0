package config

import (
	"fmt"
	"math"
	"os"

	"github.com/lumen-phi/photonic-core/pkg/faults"
)

// splitSumTolerance bounds how far the two splitter shares may drift from
// summing to exactly 1.
const splitSumTolerance = 1e-6

// LoadChipConfig loads and parses a chip configuration file
func LoadChipConfig(path string) (*ChipConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chip config file %s: %w", path, err)
	}
	cfg, err := ParseChipConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse chip config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadScenario loads and parses a scenario file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}
	scenario, err := ParseScenarioYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario file %s: %w", path, err)
	}
	return scenario, nil
}

// validateChipConfig performs validation on the chip configuration
func validateChipConfig(cfg *ChipConfig) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return faults.Configf("log_level", "must be debug, info, warn, or error, got %s", cfg.LogLevel)
	}

	if cfg.BaseRadiusUm <= 0 {
		return faults.Configf("base_radius_um", "must be positive, got %g", cfg.BaseRadiusUm)
	}
	if cfg.Phi <= 1 {
		return faults.Configf("phi", "progression ratio must exceed 1, got %g", cfg.Phi)
	}
	if cfg.RingCount < 1 {
		return faults.Configf("ring_count", "must be at least 1, got %d", cfg.RingCount)
	}
	if cfg.RingWidthNm < cfg.MinFeatureNm {
		return faults.Configf("ring_width_nm", "must be at least min_feature_nm (%g), got %g", cfg.MinFeatureNm, cfg.RingWidthNm)
	}
	if cfg.BusWidthNm < cfg.MinFeatureNm {
		return faults.Configf("bus_width_nm", "must be at least min_feature_nm (%g), got %g", cfg.MinFeatureNm, cfg.BusWidthNm)
	}
	if cfg.CouplingGapNm < cfg.MinFeatureNm {
		return faults.Configf("coupling_gap_nm", "must be at least min_feature_nm (%g), got %g", cfg.MinFeatureNm, cfg.CouplingGapNm)
	}
	if cfg.MinFeatureNm <= 0 {
		return faults.Configf("min_feature_nm", "must be positive, got %g", cfg.MinFeatureNm)
	}
	if cfg.RingSpacingUm <= 0 {
		return faults.Configf("ring_spacing_um", "must be positive, got %g", cfg.RingSpacingUm)
	}
	if cfg.MinSpacingUm <= 0 {
		return faults.Configf("min_spacing_um", "must be positive, got %g", cfg.MinSpacingUm)
	}
	if cfg.ChipWidthUm <= 0 {
		return faults.Configf("chip_width_um", "must be positive, got %g", cfg.ChipWidthUm)
	}
	if cfg.ChipHeightUm <= 0 {
		return faults.Configf("chip_height_um", "must be positive, got %g", cfg.ChipHeightUm)
	}
	if cfg.MarginUm < 0 {
		return faults.Configf("margin_um", "cannot be negative, got %g", cfg.MarginUm)
	}
	if cfg.PointsPerRing < 8 {
		return faults.Configf("points_per_ring", "must be at least 8, got %d", cfg.PointsPerRing)
	}
	for _, layer := range []struct {
		field string
		value int
	}{
		{"ring_layer", cfg.RingLayer},
		{"bus_layer", cfg.BusLayer},
		{"label_layer", cfg.LabelLayer},
	} {
		if layer.value < 0 || layer.value > 255 {
			return faults.Configf(layer.field, "must be between 0 and 255, got %d", layer.value)
		}
	}

	if cfg.Splitter != nil && cfg.Splitter.Enabled {
		if err := validateSplitter(cfg.Splitter); err != nil {
			return err
		}
	}

	return nil
}

// validateSplitter validates the interferometer tail configuration
func validateSplitter(sp *Splitter) error {
	if sp.ThroughShare <= 0 || sp.ThroughShare >= 1 {
		return faults.Configf("splitter.through_share", "must be strictly between 0 and 1, got %g", sp.ThroughShare)
	}
	if sp.CrossShare <= 0 || sp.CrossShare >= 1 {
		return faults.Configf("splitter.cross_share", "must be strictly between 0 and 1, got %g", sp.CrossShare)
	}
	if sum := sp.ThroughShare + sp.CrossShare; math.Abs(sum-1) > splitSumTolerance {
		return faults.Configf("splitter", "shares must sum to 1 within %.0e, got %.9f", splitSumTolerance, sum)
	}
	if sp.ArmDeltaUm <= 0 {
		return faults.Configf("splitter.arm_delta_um", "must be positive, got %g", sp.ArmDeltaUm)
	}
	if sp.GapNm <= 0 {
		return faults.Configf("splitter.gap_nm", "must be positive, got %g", sp.GapNm)
	}
	return nil
}

// validateScenario validates the scenario configuration
func validateScenario(s *Scenario) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[s.LogLevel] {
		return faults.Configf("log_level", "must be debug, info, warn, or error, got %s", s.LogLevel)
	}
	if s.Workers < 0 {
		return faults.Configf("workers", "cannot be negative, got %d", s.Workers)
	}

	if err := validatePhysics(&s.Physics); err != nil {
		return err
	}
	if s.Variation != nil && s.Variation.Enabled {
		if err := validateVariation(s.Variation); err != nil {
			return err
		}
	}
	if s.Efficiency != nil {
		if err := validateEfficiency(s.Efficiency); err != nil {
			return err
		}
	}
	if s.Oscillator != nil {
		if err := validateOscillator(s.Oscillator); err != nil {
			return err
		}
	}
	if s.Sweep != nil {
		if err := validateSweep(s.Sweep); err != nil {
			return err
		}
	}

	return nil
}

// validatePhysics validates the waveguide physics parameters
func validatePhysics(p *Physics) error {
	if p.GroupIndex <= 1 {
		return faults.Configf("physics.group_index", "guided mode requires group index above 1, got %g", p.GroupIndex)
	}
	if p.LossPerRoundTrip < 0 || p.LossPerRoundTrip >= 1 {
		return faults.Configf("physics.loss_per_round_trip", "must be in [0, 1), got %g", p.LossPerRoundTrip)
	}
	if p.WavelengthNm <= 0 {
		return faults.Configf("physics.wavelength_nm", "must be positive, got %g", p.WavelengthNm)
	}
	if p.SpanNm <= 0 {
		return faults.Configf("physics.span_nm", "must be positive, got %g", p.SpanNm)
	}
	if p.Points < 2 {
		return faults.Configf("physics.points", "must be at least 2, got %d", p.Points)
	}
	if p.Kappa0RadPerUm <= 0 {
		return faults.Configf("physics.kappa0_rad_per_um", "must be positive, got %g", p.Kappa0RadPerUm)
	}
	if p.DecayNm <= 0 {
		return faults.Configf("physics.decay_nm", "must be positive, got %g", p.DecayNm)
	}
	if p.MaxCouplingLengthUm <= 0 {
		return faults.Configf("physics.max_coupling_length_um", "must be positive, got %g", p.MaxCouplingLengthUm)
	}
	if p.CrosstalkWindowNm <= 0 {
		return faults.Configf("physics.crosstalk_window_nm", "must be positive, got %g", p.CrosstalkWindowNm)
	}
	return nil
}

// validateVariation validates the fabrication-noise parameters
func validateVariation(v *Variation) error {
	if v.AmplitudeNm < 0 {
		return faults.Configf("variation.amplitude_nm", "cannot be negative, got %g", v.AmplitudeNm)
	}
	if v.CorrelationUm <= 0 {
		return faults.Configf("variation.correlation_um", "must be positive, got %g", v.CorrelationUm)
	}
	return nil
}

// validateEfficiency validates the energy comparison parameters
func validateEfficiency(e *Efficiency) error {
	if e.PActiveMw <= 0 {
		return faults.Configf("efficiency.p_active_mw", "must be positive, got %g", e.PActiveMw)
	}
	if e.PMaintainMw < 0 {
		return faults.Configf("efficiency.p_maintain_mw", "cannot be negative, got %g", e.PMaintainMw)
	}
	if e.PMaintainMw >= e.PActiveMw {
		return faults.Configf("efficiency.p_maintain_mw", "maintenance power %g mW must be below active power %g mW", e.PMaintainMw, e.PActiveMw)
	}
	if e.HorizonS <= 0 {
		return faults.Configf("efficiency.horizon_s", "must be positive, got %g", e.HorizonS)
	}
	if e.LockTimeS < 0 {
		return faults.Configf("efficiency.lock_time_s", "cannot be negative, got %g", e.LockTimeS)
	}
	if e.LockTimeS >= e.HorizonS {
		return faults.Configf("efficiency.horizon_s", "horizon %g s must exceed lock time %g s", e.HorizonS, e.LockTimeS)
	}
	validCurves := map[string]bool{
		"logistic":    true,
		"exponential": true,
		"trace":       true,
	}
	if !validCurves[e.Curve] {
		return faults.Configf("efficiency.curve", "must be logistic, exponential, or trace, got %s", e.Curve)
	}
	if e.TimeConstantS <= 0 {
		return faults.Configf("efficiency.time_constant_s", "must be positive, got %g", e.TimeConstantS)
	}
	if e.Steps < 2 {
		return faults.Configf("efficiency.steps", "must be at least 2, got %d", e.Steps)
	}
	return nil
}

// validateOscillator validates the phase-lock ensemble parameters
func validateOscillator(o *Oscillator) error {
	if o.Count < 2 {
		return faults.Configf("oscillator.count", "ensemble needs at least 2 oscillators, got %d", o.Count)
	}
	if o.Alpha <= 0 {
		return faults.Configf("oscillator.alpha", "must be positive, got %g", o.Alpha)
	}
	if len(o.InitialPhases) > 0 && len(o.InitialPhases) != o.Count {
		return faults.Configf("oscillator.initial_phases", "expected %d phases, got %d", o.Count, len(o.InitialPhases))
	}
	if o.BaseFrequencyHz < 0 {
		return faults.Configf("oscillator.base_frequency_hz", "cannot be negative, got %g", o.BaseFrequencyHz)
	}
	if o.DtS <= 0 {
		return faults.Configf("oscillator.dt_s", "must be positive, got %g", o.DtS)
	}
	if o.LockThreshold <= 0 || o.LockThreshold >= 1 {
		return faults.Configf("oscillator.lock_threshold", "must be strictly between 0 and 1, got %g", o.LockThreshold)
	}
	if o.LockHoldSteps < 1 {
		return faults.Configf("oscillator.lock_hold_steps", "must be at least 1, got %d", o.LockHoldSteps)
	}
	if o.WindowSteps < 2 {
		return faults.Configf("oscillator.window_steps", "must be at least 2, got %d", o.WindowSteps)
	}
	if o.IterationCap < 1 {
		return faults.Configf("oscillator.iteration_cap", "must be at least 1, got %d", o.IterationCap)
	}
	if o.DivergenceBound <= 0 {
		return faults.Configf("oscillator.divergence_bound", "must be positive, got %g", o.DivergenceBound)
	}
	return nil
}

// validateSweep validates the parameter sweep bounds
func validateSweep(s *Sweep) error {
	switch s.Axis {
	case "coupling_gap_nm", "base_radius_um":
	default:
		return faults.Configf("sweep.axis", "must be coupling_gap_nm or base_radius_um, got %s", s.Axis)
	}
	if s.From <= 0 {
		return faults.Configf("sweep.from", "must be positive, got %g", s.From)
	}
	if s.To <= s.From {
		return faults.Configf("sweep.to", "must exceed from (%g), got %g", s.From, s.To)
	}
	if s.Points < 2 {
		return faults.Configf("sweep.points", "need at least 2 points, got %d", s.Points)
	}
	switch s.Scale {
	case "linear", "log", "golden":
	default:
		return faults.Configf("sweep.scale", "must be linear, log, or golden, got %s", s.Scale)
	}
	return nil
}

// NormalizeSweep applies the sweep defaults and validates the spec. It serves
// sweeps assembled outside a scenario document, such as from command-line
// flags.
func NormalizeSweep(s *Sweep) error {
	if s == nil {
		return faults.Configf("sweep", "sweep section is missing")
	}
	if s.Axis == "" {
		s.Axis = "coupling_gap_nm"
	}
	if s.Points == 0 {
		s.Points = 41
	}
	if s.Scale == "" {
		s.Scale = "linear"
	}
	return validateSweep(s)
}
