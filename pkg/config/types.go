package config

import "github.com/lumen-phi/photonic-core/pkg/phi"

// ChipConfig represents the layout generation configuration
type ChipConfig struct {
	LogLevel      string   `yaml:"log_level,omitempty"`
	Cell          string   `yaml:"cell,omitempty"`
	BaseRadiusUm  float64  `yaml:"base_radius_um"`
	Phi           float64  `yaml:"phi,omitempty"`
	RingCount     int      `yaml:"ring_count"`
	RingWidthNm   float64  `yaml:"ring_width_nm,omitempty"`
	BusWidthNm    float64  `yaml:"bus_width_nm,omitempty"`
	CouplingGapNm float64  `yaml:"coupling_gap_nm,omitempty"`
	RingSpacingUm float64  `yaml:"ring_spacing_um,omitempty"`
	MinSpacingUm  float64  `yaml:"min_spacing_um,omitempty"`
	MinFeatureNm  float64  `yaml:"min_feature_nm,omitempty"`
	ChipWidthUm   float64  `yaml:"chip_width_um,omitempty"`
	ChipHeightUm  float64  `yaml:"chip_height_um,omitempty"`
	MarginUm      float64  `yaml:"margin_um,omitempty"`
	PointsPerRing int      `yaml:"points_per_ring,omitempty"`
	RingLayer     int      `yaml:"ring_layer,omitempty"`
	BusLayer      int      `yaml:"bus_layer,omitempty"`
	LabelLayer    int      `yaml:"label_layer,omitempty"`
	Splitter      *Splitter `yaml:"splitter,omitempty"`
}

// Splitter configures the interferometer tail appended after the ring bank
type Splitter struct {
	Enabled      bool    `yaml:"enabled"`
	ThroughShare float64 `yaml:"through_share,omitempty"`
	CrossShare   float64 `yaml:"cross_share,omitempty"`
	ArmDeltaUm   float64 `yaml:"arm_delta_um,omitempty"`
	GapNm        float64 `yaml:"gap_nm,omitempty"`
}

// Scenario represents the simulation scenario configuration
type Scenario struct {
	LogLevel   string      `yaml:"log_level,omitempty"`
	Workers    int         `yaml:"workers,omitempty"`
	Physics    Physics     `yaml:"physics"`
	Variation  *Variation  `yaml:"variation,omitempty"`
	Efficiency *Efficiency `yaml:"efficiency,omitempty"`
	Oscillator *Oscillator `yaml:"oscillator,omitempty"`
	Sweep      *Sweep      `yaml:"sweep,omitempty"`
}

// Physics holds the waveguide and coupling parameters shared by every ring
type Physics struct {
	GroupIndex          float64 `yaml:"group_index,omitempty"`
	LossPerRoundTrip    float64 `yaml:"loss_per_round_trip,omitempty"`
	WavelengthNm        float64 `yaml:"wavelength_nm,omitempty"`
	SpanNm              float64 `yaml:"span_nm,omitempty"`
	Points              int     `yaml:"points,omitempty"`
	Kappa0RadPerUm      float64 `yaml:"kappa0_rad_per_um,omitempty"`
	DecayNm             float64 `yaml:"decay_nm,omitempty"`
	MaxCouplingLengthUm float64 `yaml:"max_coupling_length_um,omitempty"`
	CrosstalkWindowNm   float64 `yaml:"crosstalk_window_nm,omitempty"`
}

// Variation configures fabrication-noise perturbation of ring radii
type Variation struct {
	Enabled       bool    `yaml:"enabled"`
	Seed          int64   `yaml:"seed,omitempty"`
	AmplitudeNm   float64 `yaml:"amplitude_nm,omitempty"`
	CorrelationUm float64 `yaml:"correlation_um,omitempty"`
}

// Efficiency configures the active-versus-resonant energy comparison
type Efficiency struct {
	PActiveMw     float64 `yaml:"p_active_mw,omitempty"`
	PMaintainMw   float64 `yaml:"p_maintain_mw,omitempty"`
	HorizonS      float64 `yaml:"horizon_s,omitempty"`
	LockTimeS     float64 `yaml:"lock_time_s,omitempty"`
	Curve         string  `yaml:"curve,omitempty"` // logistic, exponential, or trace
	TimeConstantS float64 `yaml:"time_constant_s,omitempty"`
	Steps         int     `yaml:"steps,omitempty"`
}

// Sweep configures a one-dimensional parameter sweep over the ring bank
type Sweep struct {
	Axis   string  `yaml:"axis,omitempty"` // coupling_gap_nm or base_radius_um
	From   float64 `yaml:"from"`
	To     float64 `yaml:"to"`
	Points int     `yaml:"points,omitempty"`
	Scale  string  `yaml:"scale,omitempty"` // linear, log, or golden
}

// Oscillator configures the phase-lock ensemble run
type Oscillator struct {
	Count           int       `yaml:"count,omitempty"`
	Alpha           float64   `yaml:"alpha,omitempty"`
	TargetPhase     float64   `yaml:"target_phase,omitempty"`
	Seed            int64     `yaml:"seed,omitempty"`
	InitialPhases   []float64 `yaml:"initial_phases,omitempty"`
	BaseFrequencyHz float64   `yaml:"base_frequency_hz,omitempty"`
	DtS             float64   `yaml:"dt_s,omitempty"`
	LockThreshold   float64   `yaml:"lock_threshold,omitempty"`
	LockHoldSteps   int       `yaml:"lock_hold_steps,omitempty"`
	WindowSteps     int       `yaml:"window_steps,omitempty"`
	IterationCap    int       `yaml:"iteration_cap,omitempty"`
	DivergenceBound float64   `yaml:"divergence_bound,omitempty"`
}

// applyChipDefaults fills zero-valued fields with the standard process values
func applyChipDefaults(cfg *ChipConfig) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Cell == "" {
		cfg.Cell = "PHI_RING_BANK"
	}
	if cfg.Phi == 0 {
		cfg.Phi = phi.Phi
	}
	if cfg.RingWidthNm == 0 {
		cfg.RingWidthNm = 450
	}
	if cfg.BusWidthNm == 0 {
		cfg.BusWidthNm = 450
	}
	if cfg.CouplingGapNm == 0 {
		cfg.CouplingGapNm = 200
	}
	if cfg.RingSpacingUm == 0 {
		cfg.RingSpacingUm = 5
	}
	if cfg.MinSpacingUm == 0 {
		cfg.MinSpacingUm = 2
	}
	if cfg.MinFeatureNm == 0 {
		cfg.MinFeatureNm = 100
	}
	if cfg.ChipWidthUm == 0 {
		cfg.ChipWidthUm = 500
	}
	if cfg.ChipHeightUm == 0 {
		cfg.ChipHeightUm = 500
	}
	if cfg.MarginUm == 0 {
		cfg.MarginUm = 10
	}
	if cfg.PointsPerRing == 0 {
		cfg.PointsPerRing = 128
	}
	if cfg.RingLayer == 0 {
		cfg.RingLayer = 1
	}
	if cfg.BusLayer == 0 {
		cfg.BusLayer = 2
	}
	if cfg.LabelLayer == 0 {
		cfg.LabelLayer = 10
	}
	if cfg.Splitter != nil && cfg.Splitter.Enabled {
		if cfg.Splitter.ThroughShare == 0 && cfg.Splitter.CrossShare == 0 {
			cfg.Splitter.ThroughShare = phi.Inv
			cfg.Splitter.CrossShare = phi.InvSq
		}
		if cfg.Splitter.ArmDeltaUm == 0 {
			cfg.Splitter.ArmDeltaUm = cfg.BaseRadiusUm / cfg.Phi
		}
		if cfg.Splitter.GapNm == 0 {
			cfg.Splitter.GapNm = cfg.CouplingGapNm
		}
	}
}

// applyScenarioDefaults fills zero-valued fields with the standard
// C-band waveguide parameters
func applyScenarioDefaults(s *Scenario) {
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.Physics.GroupIndex == 0 {
		s.Physics.GroupIndex = 2.45
	}
	if s.Physics.LossPerRoundTrip == 0 {
		s.Physics.LossPerRoundTrip = 0.01
	}
	if s.Physics.WavelengthNm == 0 {
		s.Physics.WavelengthNm = 1550
	}
	if s.Physics.SpanNm == 0 {
		s.Physics.SpanNm = 40
	}
	if s.Physics.Points == 0 {
		s.Physics.Points = 2001
	}
	if s.Physics.Kappa0RadPerUm == 0 {
		s.Physics.Kappa0RadPerUm = 0.25
	}
	if s.Physics.DecayNm == 0 {
		s.Physics.DecayNm = 300
	}
	if s.Physics.MaxCouplingLengthUm == 0 {
		s.Physics.MaxCouplingLengthUm = 50
	}
	if s.Physics.CrosstalkWindowNm == 0 {
		s.Physics.CrosstalkWindowNm = 1.0
	}
	if s.Variation != nil && s.Variation.Enabled {
		if s.Variation.AmplitudeNm == 0 {
			s.Variation.AmplitudeNm = 5
		}
		if s.Variation.CorrelationUm == 0 {
			s.Variation.CorrelationUm = 50
		}
	}
	if s.Efficiency != nil {
		if s.Efficiency.PActiveMw == 0 {
			s.Efficiency.PActiveMw = 10
		}
		if s.Efficiency.PMaintainMw == 0 {
			s.Efficiency.PMaintainMw = 1
		}
		if s.Efficiency.HorizonS == 0 {
			s.Efficiency.HorizonS = 1
		}
		if s.Efficiency.Curve == "" {
			s.Efficiency.Curve = "logistic"
		}
		if s.Efficiency.TimeConstantS == 0 {
			s.Efficiency.TimeConstantS = 0.2
		}
		if s.Efficiency.Steps == 0 {
			s.Efficiency.Steps = 1000
		}
	}
	if s.Oscillator != nil {
		if s.Oscillator.Count == 0 {
			s.Oscillator.Count = 8
		}
		if s.Oscillator.Alpha == 0 {
			s.Oscillator.Alpha = 0.5
		}
		if s.Oscillator.Seed == 0 {
			s.Oscillator.Seed = 42
		}
		if s.Oscillator.DtS == 0 {
			s.Oscillator.DtS = 1e-3
		}
		if s.Oscillator.LockThreshold == 0 {
			s.Oscillator.LockThreshold = 0.95
		}
		if s.Oscillator.LockHoldSteps == 0 {
			s.Oscillator.LockHoldSteps = 25
		}
		if s.Oscillator.WindowSteps == 0 {
			s.Oscillator.WindowSteps = 50
		}
		if s.Oscillator.IterationCap == 0 {
			s.Oscillator.IterationCap = 10000
		}
		if s.Oscillator.DivergenceBound == 0 {
			s.Oscillator.DivergenceBound = 0.25
		}
	}
	if s.Sweep != nil {
		if s.Sweep.Axis == "" {
			s.Sweep.Axis = "coupling_gap_nm"
		}
		if s.Sweep.Points == 0 {
			s.Sweep.Points = 41
		}
		if s.Sweep.Scale == "" {
			s.Sweep.Scale = "linear"
		}
	}
}
