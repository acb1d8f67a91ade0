// Package resonance models the optical response of the ring bank: the
// gap-to-coupling law, per-ring add-drop transfer, the parallel batch solver,
// the cascaded bus response, and fabrication-noise perturbation.
package resonance

import (
	"math"

	"github.com/lumen-phi/photonic-core/pkg/faults"
)

// Field coupling law defaults for a C-band strip waveguide.
const (
	DefaultKappa0  = 0.25 // rad/um at zero gap
	DefaultDecayNm = 300  // gap decay constant
)

// splitTolerance is the relative error allowed between a requested power
// split and what a tuned coupler achieves.
const splitTolerance = 0.005

// CouplingModel maps a physical coupler (gap, length) to power splits. The
// field rate decays exponentially with gap; a longer coupler transfers more
// power until the quarter beat.
type CouplingModel struct {
	kappa0  float64
	decayNm float64
}

// NewCouplingModel builds a coupling law from the field rate at zero gap and
// the gap decay constant.
func NewCouplingModel(kappa0, decayNm float64) *CouplingModel {
	return &CouplingModel{kappa0: kappa0, decayNm: decayNm}
}

// Kappa returns the field coupling rate in rad/um at the given gap.
func (m *CouplingModel) Kappa(gapNm float64) float64 {
	return m.kappa0 * math.Exp(-gapNm/m.decayNm)
}

// Cross returns the cross-port power share sin^2(kappa*L) of a straight
// coupler of the given length.
func (m *CouplingModel) Cross(lengthUm, gapNm float64) float64 {
	s := math.Sin(m.Kappa(gapNm) * lengthUm)
	return s * s
}

// SplitFor returns the (through, cross) power pair of a coupler. The through
// share is defined as the complement so the two always sum to exactly 1.
func (m *CouplingModel) SplitFor(lengthUm, gapNm float64) (through, cross float64) {
	cross = m.Cross(lengthUm, gapNm)
	return 1 - cross, cross
}

// LengthFor solves the coupler length that places the given power share on
// the cross port: L = asin(sqrt(cross)) / kappa(gap).
func (m *CouplingModel) LengthFor(cross, gapNm float64) (float64, error) {
	if cross <= 0 || cross >= 1 {
		return 0, faults.Configf("splitter.cross_share",
			"target cross coupling must be strictly between 0 and 1, got %g", cross)
	}
	return math.Asin(math.Sqrt(cross)) / m.Kappa(gapNm), nil
}

// RingCoupling returns the bus-to-ring power coupling at a gap. The point
// contact is widened to an effective interaction length that grows with the
// ring radius, so larger rings couple more strongly at the same gap and the
// coupling falls monotonically as the gap opens.
func (m *CouplingModel) RingCoupling(gapNm, radiusUm float64) float64 {
	leff := math.Sqrt(2 * radiusUm * m.decayNm / 1000)
	s := math.Sin(m.Kappa(gapNm) * leff)
	return s * s
}

// TunedCoupler describes a solved directional coupler.
type TunedCoupler struct {
	LengthUm float64
	GapNm    float64
	Through  float64
	Cross    float64
}

// TuneCoupler solves the coupler length for the requested cross share at a
// gap, clamps it to the fabrication limit, and verifies the achieved split.
// A clamp that pulls the achieved share more than 0.5% (relative) away from
// the request is rejected.
func TuneCoupler(model *CouplingModel, cross, gapNm, maxLengthUm float64) (*TunedCoupler, error) {
	length, err := model.LengthFor(cross, gapNm)
	if err != nil {
		return nil, err
	}
	if maxLengthUm > 0 && length > maxLengthUm {
		length = maxLengthUm
	}
	through, achieved := model.SplitFor(length, gapNm)
	if err := VerifySplit(cross, achieved); err != nil {
		return nil, err
	}
	return &TunedCoupler{LengthUm: length, GapNm: gapNm, Through: through, Cross: achieved}, nil
}

// VerifySplit checks an achieved cross share against the requested one.
func VerifySplit(requested, achieved float64) error {
	if requested <= 0 {
		return faults.Configf("splitter.cross_share", "requested cross share must be positive, got %g", requested)
	}
	rel := math.Abs(achieved-requested) / requested
	if rel > splitTolerance {
		return faults.Configf("splitter",
			"achieved cross share %.6f deviates %.2f%% from requested %.6f (tolerance %.1f%%)",
			achieved, rel*100, requested, splitTolerance*100)
	}
	return nil
}
