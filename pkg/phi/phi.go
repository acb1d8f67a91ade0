// Package phi holds the golden-ratio constants shared by the geometry,
// resonance, and oscillator packages. Every φ-derived value is defined here
// once so the components cannot drift apart in precision.
package phi

import "math"

// Phi is the golden ratio.
const Phi = 1.618033988749895

var (
	// Inv is φ⁻¹, the major (~61.8%) fraction of the golden power split
	// and the through-port share of a golden directional coupler.
	Inv = 1 / Phi // 0.61803...

	// InvSq is φ⁻², the minor (~38.2%) fraction of the golden power split
	// and the cross-port share of a golden directional coupler.
	InvSq = 1 / (Phi * Phi) // 0.38197...
)

// Pow returns φⁿ for integer n. Negative n gives the reciprocal powers.
func Pow(n int) float64 {
	return math.Pow(Phi, float64(n))
}

// Scale returns base·φⁿ, the n-th term of a golden geometric ladder.
func Scale(base float64, n int) float64 {
	return base * Pow(n)
}
