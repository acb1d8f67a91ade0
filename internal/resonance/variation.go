package resonance

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/lumen-phi/photonic-core/pkg/config"
)

// Perturb applies correlated fabrication noise to a radius ladder. Noise is
// sampled along the cumulative bus position so neighbouring rings drift
// together rather than independently, and the same seed always reproduces
// the same perturbed ladder.
func Perturb(radiiUm []float64, v *config.Variation) []float64 {
	noise := opensimplex.NewNormalized(v.Seed)
	amplitudeUm := v.AmplitudeNm / 1000.0

	out := make([]float64, len(radiiUm))
	posUm := 0.0
	for i, r := range radiiUm {
		posUm += 2 * r
		// Eval2 returns [0, 1]; recenter to [-1, 1] before scaling.
		n := 2*noise.Eval2(posUm/v.CorrelationUm, 0) - 1
		out[i] = r + amplitudeUm*n
	}
	return out
}
