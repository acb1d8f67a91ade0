package geometry

import (
	"fmt"
	"math"

	"github.com/lumen-phi/photonic-core/internal/resonance"
	"github.com/lumen-phi/photonic-core/pkg/config"
	"github.com/lumen-phi/photonic-core/pkg/faults"
	"github.com/lumen-phi/photonic-core/pkg/models"
)

// Ladder returns n radii in geometric progression from baseUm. With the
// golden ratio this is the radius ladder every other stage keys off.
func Ladder(baseUm, ratio float64, n int) []float64 {
	radii := make([]float64, n)
	for i := range radii {
		radii[i] = baseUm * math.Pow(ratio, float64(i))
	}
	return radii
}

// Build assembles the layout described by cfg: the radius ladder placed in
// serpentine rows, one bus waveguide snaking underneath, per-ring labels,
// and the optional golden-split interferometer tail.
func Build(cfg *config.ChipConfig) (*Layout, error) {
	radii := Ladder(cfg.BaseRadiusUm, cfg.Phi, cfg.RingCount)
	centers, rows, err := placeLadder(radii, cfg)
	if err != nil {
		return nil, err
	}

	ringUm := cfg.RingWidthNm / 1000
	gapUm := cfg.CouplingGapNm / 1000

	layout := &Layout{Cell: cfg.Cell}
	for i, r := range radii {
		layout.Rings = append(layout.Rings, RingResonator{
			Index:    i,
			Name:     RingName(i),
			RadiusUm: r,
			Center:   centers[i],
			GapUm:    gapUm,
			WidthUm:  ringUm,
			Layer:    cfg.RingLayer,
		})
		layout.Labels = append(layout.Labels, TextLabel{
			Text:     fmt.Sprintf("%s r=%.3fum", RingName(i), r),
			Position: centers[i],
			Layer:    cfg.LabelLayer,
		})
	}

	layout.Waveguides = append(layout.Waveguides, Waveguide{
		Name:    "BUS",
		Points:  busPath(rows, cfg),
		WidthUm: cfg.BusWidthNm / 1000,
		Layer:   cfg.BusLayer,
	})

	if cfg.Splitter != nil && cfg.Splitter.Enabled {
		if err := appendSplitterTail(layout, rows, cfg); err != nil {
			return nil, err
		}
	}

	return layout, nil
}

// appendSplitterTail extends the bus past the last row into a tuned
// directional coupler and an unbalanced interferometer. The coupler length
// is solved so the cross port carries the configured share.
func appendSplitterTail(layout *Layout, rows []rowSpan, cfg *config.ChipConfig) error {
	sp := cfg.Splitter
	busUm := cfg.BusWidthNm / 1000
	ringUm := cfg.RingWidthNm / 1000
	spacing := cfg.RingSpacingUm
	xMin := cfg.MarginUm
	xMax := cfg.ChipWidthUm - cfg.MarginUm

	model := resonance.NewCouplingModel(resonance.DefaultKappa0, resonance.DefaultDecayNm)
	dcLen, err := model.LengthFor(sp.CrossShare, sp.GapNm)
	if err != nil {
		return err
	}

	// The tail continues the serpentine: it runs above the last row in the
	// opposite direction, fed by a vertical jog from the bus end.
	last := rows[len(rows)-1]
	dir := float64(-last.Dir)
	xEdge := xMax
	if last.Dir < 0 {
		xEdge = xMin
	}

	rowTop := last.BottomY
	for i := range layout.Rings {
		top := layout.Rings[i].Center.Y + layout.Rings[i].RadiusUm + ringUm/2
		if top > rowTop {
			rowTop = top
		}
	}
	tailY := rowTop + spacing
	busY := last.BottomY - ringUm/2 - cfg.CouplingGapNm/1000 - busUm/2

	const leadUm = 2.0
	shortArm := 2 * cfg.BaseRadiusUm
	longArm := shortArm + sp.ArmDeltaUm
	armDrop := sp.ArmDeltaUm / 2
	armPitch := 1.0

	tailEnd := xEdge + dir*(leadUm+dcLen+leadUm+shortArm)
	if tailEnd < xMin-placeEps || tailEnd > xMax+placeEps {
		return faults.Layoutf("MZI0", "tail end %.3f um leaves the usable chip width", tailEnd)
	}
	if tailY+armPitch > cfg.ChipHeightUm-cfg.MarginUm+placeEps {
		return faults.Layoutf("MZI0", "tail at %.3f um exceeds usable chip height", tailY+armPitch)
	}
	if tailY-armPitch-armDrop < cfg.MarginUm-placeEps {
		return faults.Layoutf("MZI0", "long arm detour drops below the chip margin")
	}

	layout.Waveguides = append(layout.Waveguides, Waveguide{
		Name:    "TAIL_FEED",
		Points:  []Point{{X: xEdge, Y: busY}, {X: xEdge, Y: tailY}},
		WidthUm: busUm,
		Layer:   cfg.BusLayer,
	})

	dcCenter := Point{X: xEdge + dir*(leadUm+dcLen/2), Y: tailY}
	layout.Couplers = append(layout.Couplers, DirectionalCoupler{
		Name:             "DC0",
		Center:           dcCenter,
		Split:            [2]float64{sp.ThroughShare, sp.CrossShare},
		CouplingLengthUm: dcLen,
		GapUm:            sp.GapNm / 1000,
		WidthUm:          busUm,
		Layer:            cfg.BusLayer,
	})

	armOrigin := Point{X: dcCenter.X + dir*(dcLen/2+leadUm), Y: tailY}
	layout.MZIs = append(layout.MZIs, MZI{
		Name:       "MZI0",
		Origin:     armOrigin,
		ShortArmUm: shortArm,
		LongArmUm:  longArm,
		Split:      [2]float64{sp.ThroughShare, sp.CrossShare},
		Layer:      cfg.BusLayer,
	})

	// Short arm runs straight; the long arm makes up the imbalance with a
	// U detour so both arms land on the same output plane.
	topY := tailY + armPitch
	botY := tailY - armPitch
	seg := shortArm / 3
	layout.Waveguides = append(layout.Waveguides,
		Waveguide{
			Name:    "MZI0_ARM_A",
			Points:  []Point{{X: armOrigin.X, Y: topY}, {X: armOrigin.X + dir*shortArm, Y: topY}},
			WidthUm: busUm,
			Layer:   cfg.BusLayer,
		},
		Waveguide{
			Name: "MZI0_ARM_B",
			Points: []Point{
				{X: armOrigin.X, Y: botY},
				{X: armOrigin.X + dir*seg, Y: botY},
				{X: armOrigin.X + dir*seg, Y: botY - armDrop},
				{X: armOrigin.X + dir*2*seg, Y: botY - armDrop},
				{X: armOrigin.X + dir*2*seg, Y: botY},
				{X: armOrigin.X + dir*shortArm, Y: botY},
			},
			WidthUm: busUm,
			Layer:   cfg.BusLayer,
		},
	)

	layout.Labels = append(layout.Labels,
		TextLabel{
			Text:     fmt.Sprintf("%.1f%%", sp.ThroughShare*100),
			Position: Point{X: armOrigin.X + dir*shortArm, Y: topY},
			Layer:    cfg.LabelLayer,
		},
		TextLabel{
			Text:     fmt.Sprintf("%.1f%%", sp.CrossShare*100),
			Position: Point{X: armOrigin.X + dir*shortArm, Y: botY},
			Layer:    cfg.LabelLayer,
		},
	)

	return nil
}

// Summarize reduces a layout to the counters the generate operation reports.
func Summarize(l *Layout, cfg *config.ChipConfig) models.LayoutSummary {
	w := l.WidthUm()
	h := l.HeightUm()
	var util float64
	if cfg.ChipWidthUm > 0 && cfg.ChipHeightUm > 0 {
		util = w * h / (cfg.ChipWidthUm * cfg.ChipHeightUm) * 100
	}
	return models.LayoutSummary{
		Cell:           l.Cell,
		Primitives:     l.PrimitiveCount(),
		Rings:          len(l.Rings),
		RadiiUm:        l.Radii(),
		WidthUm:        w,
		HeightUm:       h,
		ChipWidthUm:    cfg.ChipWidthUm,
		ChipHeightUm:   cfg.ChipHeightUm,
		UtilizationPct: util,
	}
}
