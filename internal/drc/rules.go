package drc

import (
	"fmt"
	"math"

	"github.com/lumen-phi/photonic-core/internal/geometry"
	"github.com/lumen-phi/photonic-core/pkg/config"
	"github.com/lumen-phi/photonic-core/pkg/faults"
)

const (
	// ratioTolerance bounds the relative error allowed between consecutive
	// ring radii and the configured progression ratio.
	ratioTolerance = 1e-9
	// splitSumTolerance bounds how far a splitter's two power shares may
	// drift from summing to 1.
	splitSumTolerance = 1e-6
)

// SpacingRule requires every pair of rings to keep at least the minimum
// edge-to-edge clearance. The bus sits inside the coupling gap on purpose,
// so only ring pairs are measured.
type SpacingRule struct{}

func (r *SpacingRule) Name() string { return "ring_spacing" }

func (r *SpacingRule) Check(layout *geometry.Layout, cfg *config.ChipConfig) error {
	for i := 0; i < len(layout.Rings); i++ {
		for j := i + 1; j < len(layout.Rings); j++ {
			a := &layout.Rings[i]
			b := &layout.Rings[j]
			dx := a.Center.X - b.Center.X
			dy := a.Center.Y - b.Center.Y
			clearance := math.Hypot(dx, dy) - (a.RadiusUm + a.WidthUm/2) - (b.RadiusUm + b.WidthUm/2)
			if clearance < cfg.MinSpacingUm {
				return faults.Layoutf(fmt.Sprintf("%s/%s", a.Name, b.Name),
					"edge clearance %.3f um below minimum %.3f um", clearance, cfg.MinSpacingUm)
			}
		}
	}
	return nil
}

// BoundsRule requires every primitive to stay inside the chip outline.
type BoundsRule struct{}

func (r *BoundsRule) Name() string { return "chip_bounds" }

func (r *BoundsRule) Check(layout *geometry.Layout, cfg *config.ChipConfig) error {
	inside := func(x, y float64) bool {
		return x >= 0 && x <= cfg.ChipWidthUm && y >= 0 && y <= cfg.ChipHeightUm
	}

	for i := range layout.Rings {
		ring := &layout.Rings[i]
		reach := ring.RadiusUm + ring.WidthUm/2
		if !inside(ring.Center.X-reach, ring.Center.Y-reach) || !inside(ring.Center.X+reach, ring.Center.Y+reach) {
			return faults.Layoutf(ring.Name, "extends past the %g x %g um chip outline",
				cfg.ChipWidthUm, cfg.ChipHeightUm)
		}
	}
	for i := range layout.Waveguides {
		wg := &layout.Waveguides[i]
		half := wg.WidthUm / 2
		for _, p := range wg.Points {
			if !inside(p.X-half, p.Y-half) || !inside(p.X+half, p.Y+half) {
				return faults.Layoutf(wg.Name, "point (%.3f, %.3f) extends past the chip outline", p.X, p.Y)
			}
		}
	}
	for i := range layout.Couplers {
		dc := &layout.Couplers[i]
		halfLen := dc.CouplingLengthUm / 2
		if !inside(dc.Center.X-halfLen, dc.Center.Y) || !inside(dc.Center.X+halfLen, dc.Center.Y) {
			return faults.Layoutf(dc.Name, "extends past the chip outline")
		}
	}
	for _, label := range layout.Labels {
		if !inside(label.Position.X, label.Position.Y) {
			return faults.Layoutf(label.Text, "anchor (%.3f, %.3f) lies outside the chip outline",
				label.Position.X, label.Position.Y)
		}
	}
	return nil
}

// ProgressionRule requires consecutive ring radii to follow the configured
// geometric progression to within one part in a billion.
type ProgressionRule struct{}

func (r *ProgressionRule) Name() string { return "radius_progression" }

func (r *ProgressionRule) Check(layout *geometry.Layout, cfg *config.ChipConfig) error {
	for i := 1; i < len(layout.Rings); i++ {
		prev := &layout.Rings[i-1]
		cur := &layout.Rings[i]
		if prev.RadiusUm <= 0 {
			return faults.Layoutf(prev.Name, "radius must be positive, got %g", prev.RadiusUm)
		}
		ratio := cur.RadiusUm / prev.RadiusUm
		if math.Abs(ratio-cfg.Phi)/cfg.Phi > ratioTolerance {
			return faults.Layoutf(fmt.Sprintf("%s/%s", prev.Name, cur.Name),
				"radius ratio %.12f deviates from %.12f beyond %.0e", ratio, cfg.Phi, ratioTolerance)
		}
	}
	return nil
}

// SplitRule requires every splitter's power shares to be complementary:
// each share strictly inside (0, 1) and the pair summing to 1.
type SplitRule struct{}

func (r *SplitRule) Name() string { return "split_conservation" }

func (r *SplitRule) Check(layout *geometry.Layout, cfg *config.ChipConfig) error {
	check := func(name string, split [2]float64) error {
		for _, share := range split {
			if share <= 0 || share >= 1 {
				return faults.Layoutf(name, "power share %g must be strictly between 0 and 1", share)
			}
		}
		if sum := split[0] + split[1]; math.Abs(sum-1) > splitSumTolerance {
			return faults.Layoutf(name, "power shares sum to %.9f, expected 1 within %.0e", sum, splitSumTolerance)
		}
		return nil
	}

	for i := range layout.Couplers {
		if err := check(layout.Couplers[i].Name, layout.Couplers[i].Split); err != nil {
			return err
		}
	}
	for i := range layout.MZIs {
		if err := check(layout.MZIs[i].Name, layout.MZIs[i].Split); err != nil {
			return err
		}
	}
	return nil
}
