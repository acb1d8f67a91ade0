package oscillator

import (
	"fmt"

	"github.com/lumen-phi/photonic-core/pkg/config"
)

// minReversals is how many direction reversals inside the window count as
// oscillation rather than float jitter on a plateau.
const minReversals = 3

// detector applies the transition rules to the coherence history. It keeps
// no state of its own: every check re-reads the tail of the history, so the
// trace alone fully determines the state machine.
type detector struct {
	windowSteps     int
	divergenceBound float64
}

func newDetector(cfg *config.Oscillator) *detector {
	return &detector{
		windowSteps:     cfg.WindowSteps,
		divergenceBound: cfg.DivergenceBound,
	}
}

// rising reports whether the coherence increased strictly across the whole
// sliding window.
func (d *detector) rising(history []float64) (bool, string) {
	if len(history) < d.windowSteps+1 {
		return false, ""
	}
	tail := history[len(history)-d.windowSteps-1:]
	for i := 1; i < len(tail); i++ {
		if tail[i] <= tail[i-1] {
			return false, ""
		}
	}
	return true, fmt.Sprintf("coherence rose monotonically over a %d-step window", d.windowSteps)
}

// oscillating reports whether the coherence is swinging instead of
// converging: repeated direction reversals inside the window with a swing
// amplitude above the divergence bound. The amplitude gate keeps float
// jitter on a saturated plateau from reading as divergence.
func (d *detector) oscillating(history []float64) (bool, string) {
	if len(history) < d.windowSteps+1 {
		return false, ""
	}
	tail := history[len(history)-d.windowSteps-1:]

	reversals := 0
	prevSign := 0
	minR, maxR := tail[0], tail[0]
	for i := 1; i < len(tail); i++ {
		if tail[i] < minR {
			minR = tail[i]
		}
		if tail[i] > maxR {
			maxR = tail[i]
		}

		sign := 0
		if delta := tail[i] - tail[i-1]; delta > 0 {
			sign = 1
		} else if delta < 0 {
			sign = -1
		}
		if sign != 0 {
			if prevSign != 0 && sign != prevSign {
				reversals++
			}
			prevSign = sign
		}
	}

	amplitude := maxR - minR
	if reversals >= minReversals && amplitude > d.divergenceBound {
		return true, fmt.Sprintf("coherence oscillating: %d direction reversals with amplitude %.4f above bound %.4f",
			reversals, amplitude, d.divergenceBound)
	}
	return false, ""
}
