package models

import "time"

// RunStatus represents the status of a pipeline run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	// RunStatusDegraded marks a completed batch in which at least one
	// per-ring solve failed; the surviving results are still reported.
	RunStatusDegraded  RunStatus = "degraded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether a run in this status can still change state.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusDegraded, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// RunKind identifies which stage of the pipeline a run executes
type RunKind string

const (
	RunKindGenerate   RunKind = "generate"
	RunKindSimulate   RunKind = "simulate"
	RunKindOscillator RunKind = "oscillator"
)

// Run represents one pipeline invocation tracked by the daemon or archive
type Run struct {
	ID              string    `json:"id"`
	Kind            RunKind   `json:"kind"`
	Status          RunStatus `json:"status"`
	CreatedAtUnixMs int64     `json:"created_at_unix_ms"`
	StartedAtUnixMs int64     `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64     `json:"ended_at_unix_ms,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// CreatedAt returns the creation time as a time.Time.
func (r *Run) CreatedAt() time.Time {
	return time.UnixMilli(r.CreatedAtUnixMs)
}

// LayoutSummary describes a generated layout without carrying its geometry
type LayoutSummary struct {
	Cell           string    `json:"cell"`
	Primitives     int       `json:"primitives"`
	Rings          int       `json:"rings"`
	RadiiUm        []float64 `json:"radii_um"`
	WidthUm        float64   `json:"width_um"`
	HeightUm       float64   `json:"height_um"`
	ChipWidthUm    float64   `json:"chip_width_um"`
	ChipHeightUm   float64   `json:"chip_height_um"`
	UtilizationPct float64   `json:"utilization_pct"`
	MaskBytes      int       `json:"mask_bytes,omitempty"`
}

// RingResult holds the resonance characteristics of a single ring
type RingResult struct {
	RingIndex            int     `json:"ring_index"`
	RadiusUm             float64 `json:"radius_um"`
	RoundTripUm          float64 `json:"round_trip_um"`
	CouplingGapNm        float64 `json:"coupling_gap_nm"`
	PowerCoupling        float64 `json:"power_coupling"`
	ResonanceOrder       int     `json:"resonance_order"`
	ResonantWavelengthNm float64 `json:"resonant_wavelength_nm"`
	ResonantFrequencyTHz float64 `json:"resonant_frequency_thz"`
	LoadedQ              float64 `json:"loaded_q"`
	IntrinsicQ           float64 `json:"intrinsic_q"`
	FWHMNm               float64 `json:"fwhm_nm"`
	FSRNm                float64 `json:"fsr_nm"`
	Finesse              float64 `json:"finesse"`
	PeakTransmission     float64 `json:"peak_transmission"`
	Failed               bool    `json:"failed,omitempty"`
	FailureReason        string  `json:"failure_reason,omitempty"`
}

// CrosstalkPair flags two rings whose resonant wavelengths fall within the
// configured crosstalk bandwidth of each other
type CrosstalkPair struct {
	RingA        int     `json:"ring_a"`
	RingB        int     `json:"ring_b"`
	SeparationNm float64 `json:"separation_nm"`
	Overlap      float64 `json:"overlap"`
}

// CascadeSummary aggregates the end-to-end bus response of the ring chain
type CascadeSummary struct {
	Points               int     `json:"points"`
	MinTransmission      float64 `json:"min_transmission"`
	MinTransmissionAtNm  float64 `json:"min_transmission_at_nm"`
	MeanTransmission     float64 `json:"mean_transmission"`
	WorstInsertionLossDB float64 `json:"worst_insertion_loss_db"`
}

// SimulationReport is the JSON document produced by the simulate operation
type SimulationReport struct {
	Status          RunStatus        `json:"status"`
	GeneratedAtUnix int64            `json:"generated_at_unix_ms"`
	GroupIndex      float64          `json:"group_index"`
	LossPerTrip     float64          `json:"loss_per_round_trip"`
	CenterNm        float64          `json:"center_wavelength_nm"`
	SpanNm          float64          `json:"span_nm"`
	Rings           []RingResult     `json:"rings"`
	Crosstalk       []CrosstalkPair  `json:"crosstalk,omitempty"`
	Cascade         *CascadeSummary  `json:"cascade,omitempty"`
	Efficiency      *EfficiencyReport `json:"efficiency,omitempty"`
	ElapsedMs       int64            `json:"elapsed_ms"`
}

// Degraded reports whether any per-ring solve failed.
func (r *SimulationReport) Degraded() bool {
	for _, ring := range r.Rings {
		if ring.Failed {
			return true
		}
	}
	return false
}

// EfficiencyReport compares the always-on baseline against the
// coherence-decaying resonant model over a fixed horizon
type EfficiencyReport struct {
	HorizonS        float64 `json:"horizon_s"`
	PActiveW        float64 `json:"p_active_w"`
	PMaintainW      float64 `json:"p_maintain_w"`
	LockThreshold   float64 `json:"lock_threshold"`
	LockTimeS       float64 `json:"lock_time_s"`
	CoherenceCurve  string  `json:"coherence_curve"`
	EnergyActiveJ   float64 `json:"energy_active_j"`
	EnergyResonantJ float64 `json:"energy_resonant_j"`
	Ratio           float64 `json:"ratio"`
}

// OscillatorPhaseState names the phase-lock state machine states
type OscillatorPhaseState string

const (
	PhaseSearching OscillatorPhaseState = "searching"
	PhaseLocking   OscillatorPhaseState = "locking"
	PhaseLocked    OscillatorPhaseState = "locked"
	PhaseDiverged  OscillatorPhaseState = "diverged"
)

// Transition records a state-machine transition during an oscillator run
type Transition struct {
	Step   int                  `json:"step"`
	From   OscillatorPhaseState `json:"from"`
	To     OscillatorPhaseState `json:"to"`
	Reason string               `json:"reason"`
}

// OscillatorTrace is the JSON document produced by the run-oscillator
// operation: the full coherence history plus the terminal verdict
type OscillatorTrace struct {
	State       OscillatorPhaseState `json:"state"`
	Locked      bool                 `json:"locked"`
	LockStep    int                  `json:"lock_step"`
	Steps       int                  `json:"steps"`
	Oscillators int                  `json:"oscillators"`
	StepGain    float64              `json:"step_gain"`
	Coherence   []float64            `json:"coherence"`
	FinalPhases []float64            `json:"final_phases"`
	Transitions []Transition         `json:"transitions"`
	Reason      string               `json:"reason,omitempty"`
}

// CoherenceAt returns r(t) at a step, clamped to the recorded range.
func (t *OscillatorTrace) CoherenceAt(step int) float64 {
	if len(t.Coherence) == 0 {
		return 0
	}
	if step < 0 {
		step = 0
	}
	if step >= len(t.Coherence) {
		step = len(t.Coherence) - 1
	}
	return t.Coherence[step]
}

// MetricPoint represents a single point of a step-indexed series
type MetricPoint struct {
	Step   int64             `json:"step"`
	Name   string            `json:"name"`
	Value  float64           `json:"value"`
	Labels map[string]string `json:"labels,omitempty"`
}

// Aggregation represents aggregated statistics for a series
type Aggregation struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
}
