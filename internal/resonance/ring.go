package resonance

import (
	"fmt"
	"math"

	"github.com/lumen-phi/photonic-core/pkg/config"
	"github.com/lumen-phi/photonic-core/pkg/faults"
	"github.com/lumen-phi/photonic-core/pkg/models"
)

// speedOfLightTHzNm converts a wavelength in nm to a frequency in THz.
const speedOfLightTHzNm = 299792.458

// singularityFloor is the smallest usable resonance denominator. Below it
// the transfer function is ill-conditioned and the solve is rejected rather
// than reported with garbage digits.
const singularityFloor = 1e-12

// directCoupling marks a result whose power coupling was imposed directly
// instead of derived from a physical gap.
const directCoupling = -1

// ringSolver evaluates one add-drop ring against the shared physics.
type ringSolver struct {
	physics config.Physics
	model   *CouplingModel
}

func newRingSolver(physics config.Physics) *ringSolver {
	return &ringSolver{
		physics: physics,
		model:   NewCouplingModel(physics.Kappa0RadPerUm, physics.DecayNm),
	}
}

// ringName is the naming convention shared with the layout generator.
func ringName(index int) string {
	return fmt.Sprintf("R%d", index)
}

// Solve characterizes the ring at the given ladder index: coupling, the
// resonance order nearest the target wavelength, linewidth, and quality
// factors. A ring whose denominator collapses returns a ConvergenceError.
func (s *ringSolver) Solve(index int, radiusUm, gapNm float64) (models.RingResult, error) {
	coupling := s.model.RingCoupling(gapNm, radiusUm)
	return s.solveCoupling(index, radiusUm, gapNm, coupling)
}

// solveCoupling is the shared core: the power coupling is already known,
// either from the gap model or imposed directly by a design variant.
func (s *ringSolver) solveCoupling(index int, radiusUm, gapNm, coupling float64) (models.RingResult, error) {
	p := s.physics
	roundTripUm := 2 * math.Pi * radiusUm
	roundTripNm := roundTripUm * 1000

	if coupling < 0 || 1-coupling < singularityFloor {
		return models.RingResult{}, faults.Convergencef(ringName(index),
			"power coupling %.3e leaves no usable through path", coupling)
	}

	t := math.Sqrt(1 - coupling)
	a := math.Sqrt(1 - p.LossPerRoundTrip)

	denom := 1 - t*t*a
	if denom < singularityFloor {
		return models.RingResult{}, faults.Convergencef(ringName(index),
			"transfer function ill-conditioned: 1-t^2*a = %.3e with coupling %.3e and loss %.3e",
			denom, coupling, p.LossPerRoundTrip)
	}

	order := int(math.Round(p.GroupIndex * roundTripNm / p.WavelengthNm))
	if order < 1 {
		return models.RingResult{}, faults.Convergencef(ringName(index),
			"no resonance order: optical length %.1f nm below target wavelength %.1f nm",
			p.GroupIndex*roundTripNm, p.WavelengthNm)
	}
	resonantNm := p.GroupIndex * roundTripNm / float64(order)

	fsrNm := resonantNm * resonantNm / (p.GroupIndex * roundTripNm)
	fwhmNm := denom * resonantNm * resonantNm / (math.Pi * p.GroupIndex * roundTripNm * t * math.Sqrt(a))
	loadedQ := resonantNm / fwhmNm

	// Intrinsic linewidth from propagation loss alone. A lossless ring has
	// no finite intrinsic Q; it is reported as zero.
	var intrinsicQ float64
	if a < 1 {
		intrinsicFwhm := (1 - a) * resonantNm * resonantNm / (math.Pi * p.GroupIndex * roundTripNm * math.Sqrt(a))
		intrinsicQ = resonantNm / intrinsicFwhm
	}

	peakDrop := coupling * coupling * a / (denom * denom)

	return models.RingResult{
		RingIndex:            index,
		RadiusUm:             radiusUm,
		RoundTripUm:          roundTripUm,
		CouplingGapNm:        gapNm,
		PowerCoupling:        coupling,
		ResonanceOrder:       order,
		ResonantWavelengthNm: resonantNm,
		ResonantFrequencyTHz: speedOfLightTHzNm / resonantNm,
		LoadedQ:              loadedQ,
		IntrinsicQ:           intrinsicQ,
		FWHMNm:               fwhmNm,
		FSRNm:                fsrNm,
		Finesse:              fsrNm / fwhmNm,
		PeakTransmission:     peakDrop,
	}, nil
}

// Through returns the through-port power transmission of a solved ring at
// one wavelength.
func (s *ringSolver) Through(radiusUm, gapNm, wavelengthNm float64) float64 {
	return s.throughAt(s.model.RingCoupling(gapNm, radiusUm), radiusUm, wavelengthNm)
}

func (s *ringSolver) throughAt(coupling, radiusUm, wavelengthNm float64) float64 {
	p := s.physics
	roundTripNm := 2 * math.Pi * radiusUm * 1000
	t := math.Sqrt(1 - coupling)
	a := math.Sqrt(1 - p.LossPerRoundTrip)
	phase := 2 * math.Pi * p.GroupIndex * roundTripNm / wavelengthNm

	t2a := t * t * a
	num := t*t*a*a - 2*t2a*math.Cos(phase) + t*t
	den := 1 - 2*t2a*math.Cos(phase) + t2a*t2a
	return num / den
}

// throughField returns the complex through-port field coefficient at one
// wavelength: t*(1 - a*e^{i phi}) / (1 - t^2*a*e^{i phi}).
func (s *ringSolver) throughField(radiusUm, gapNm, wavelengthNm float64) complex128 {
	return s.throughFieldAt(s.model.RingCoupling(gapNm, radiusUm), radiusUm, wavelengthNm)
}

func (s *ringSolver) throughFieldAt(coupling, radiusUm, wavelengthNm float64) complex128 {
	p := s.physics
	roundTripNm := 2 * math.Pi * radiusUm * 1000
	t := math.Sqrt(1 - coupling)
	a := math.Sqrt(1 - p.LossPerRoundTrip)
	phase := 2 * math.Pi * p.GroupIndex * roundTripNm / wavelengthNm

	loop := complex(a*math.Cos(phase), a*math.Sin(phase))
	return complex(t, 0) * (1 - loop) / (1 - complex(t*t, 0)*loop)
}

// dropField returns the complex drop-port field coefficient at one
// wavelength for the symmetric add-drop ring.
func (s *ringSolver) dropField(radiusUm, gapNm, wavelengthNm float64) complex128 {
	return s.dropFieldAt(s.model.RingCoupling(gapNm, radiusUm), radiusUm, wavelengthNm)
}

func (s *ringSolver) dropFieldAt(coupling, radiusUm, wavelengthNm float64) complex128 {
	p := s.physics
	roundTripNm := 2 * math.Pi * radiusUm * 1000
	t := math.Sqrt(1 - coupling)
	a := math.Sqrt(1 - p.LossPerRoundTrip)
	phase := 2 * math.Pi * p.GroupIndex * roundTripNm / wavelengthNm

	// Half the loop phase and loss accrue between the two couplers.
	halfLoop := complex(math.Sqrt(a)*math.Cos(phase/2), math.Sqrt(a)*math.Sin(phase/2))
	loop := complex(a*math.Cos(phase), a*math.Sin(phase))
	return -complex(coupling, 0) * halfLoop / (1 - complex(t*t, 0)*loop)
}

// WavelengthGrid returns the sweep grid centered on the target wavelength.
func WavelengthGrid(p config.Physics) []float64 {
	grid := make([]float64, p.Points)
	start := p.WavelengthNm - p.SpanNm/2
	step := p.SpanNm / float64(p.Points-1)
	for i := range grid {
		grid[i] = start + float64(i)*step
	}
	return grid
}
