package design

import "github.com/lumen-phi/photonic-core/pkg/phi"

// Built-in variant names
const (
	// VariantConventional is the textbook half split: every ring taps 50%
	// of the bus power.
	VariantConventional = "conventional"
	// VariantGolden applies the golden minor fraction 1/φ² to every ring.
	VariantGolden = "golden"
	// VariantPhiNested scales the ladder by φ and weakens each successive
	// tap by a further 1/φ, the recursive coupling of a nested hierarchy.
	VariantPhiNested = "phi_nested"
)

// Variant is one coupling scheme applied to a shared radius ladder.
type Variant struct {
	Name string `json:"name"`

	// RadiusScale multiplies every ladder radius before solving.
	RadiusScale float64 `json:"radius_scale"`

	// Couplings holds the imposed per-ring power coupling.
	Couplings []float64 `json:"couplings"`
}

// Variants builds the standard comparison set for a bank of n rings.
func Variants(n int) []Variant {
	return []Variant{
		Conventional(n),
		Golden(n),
		PhiNested(n),
	}
}

// Conventional builds the 50% coupling baseline.
func Conventional(n int) Variant {
	return Variant{
		Name:        VariantConventional,
		RadiusScale: 1,
		Couplings:   uniform(n, 0.5),
	}
}

// Golden builds the uniform 1/φ² coupling variant.
func Golden(n int) Variant {
	return Variant{
		Name:        VariantGolden,
		RadiusScale: 1,
		Couplings:   uniform(n, phi.InvSq),
	}
}

// PhiNested builds the recursive variant: the ladder grows by one golden
// step and ring i couples at 1/φ^(2+i), each level tapping the golden
// fraction of the level above it.
func PhiNested(n int) Variant {
	couplings := make([]float64, n)
	for i := range couplings {
		couplings[i] = phi.InvSq * phi.Pow(-i)
	}
	return Variant{
		Name:        VariantPhiNested,
		RadiusScale: phi.Phi,
		Couplings:   couplings,
	}
}

func uniform(n int, c float64) []float64 {
	couplings := make([]float64, n)
	for i := range couplings {
		couplings[i] = c
	}
	return couplings
}

// ScaledRadii applies the variant's radius scale to a ladder.
func (v Variant) ScaledRadii(radiiUm []float64) []float64 {
	scaled := make([]float64, len(radiiUm))
	for i, r := range radiiUm {
		scaled[i] = r * v.RadiusScale
	}
	return scaled
}
