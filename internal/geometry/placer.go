package geometry

import (
	"fmt"

	"github.com/lumen-phi/photonic-core/pkg/config"
	"github.com/lumen-phi/photonic-core/pkg/faults"
)

// placeEps absorbs floating-point slop when testing a ring against the margin.
const placeEps = 1e-9

// rowSpan records one serpentine row: the tangent line its rings sit on and
// the direction the bus runs underneath it.
type rowSpan struct {
	BottomY float64
	Dir     int // +1 left to right, -1 right to left
}

// RingName returns the canonical name for the ring at a ladder index.
func RingName(index int) string {
	return fmt.Sprintf("R%d", index)
}

// placeLadder assigns ring centers row by row inside the chip outline. Rings
// in a row share a bottom tangent line so one bus segment couples all of them
// across the same gap. When the next ring would cross the far margin the
// ladder wraps to a fresh row and the direction reverses.
func placeLadder(radii []float64, cfg *config.ChipConfig) ([]Point, []rowSpan, error) {
	gapUm := cfg.CouplingGapNm / 1000
	busUm := cfg.BusWidthNm / 1000
	ringUm := cfg.RingWidthNm / 1000
	margin := cfg.MarginUm
	spacing := cfg.RingSpacingUm

	xMin := margin
	xMax := cfg.ChipWidthUm - margin
	usable := xMax - xMin

	// Room reserved under each tangent line for the bus segment and the
	// coupling gap.
	busAllowance := ringUm/2 + gapUm + busUm

	centers := make([]Point, len(radii))
	rows := []rowSpan{{BottomY: margin + busAllowance, Dir: 1}}

	bottom := rows[0].BottomY
	dir := 1
	cursor := xMin
	rowTop := bottom

	fits := func(outer float64) bool {
		if dir > 0 {
			return cursor+2*outer <= xMax+placeEps
		}
		return cursor-2*outer >= xMin-placeEps
	}

	for i, r := range radii {
		outer := r + ringUm/2
		if 2*outer > usable+placeEps {
			return nil, nil, faults.Layoutf(RingName(i),
				"diameter %.3f um exceeds usable chip width %.3f um", 2*outer, usable)
		}

		if !fits(outer) {
			bottom = rowTop + spacing + busAllowance
			dir = -dir
			cursor = xMin
			if dir < 0 {
				cursor = xMax
			}
			rows = append(rows, rowSpan{BottomY: bottom, Dir: dir})
		}

		cx := cursor + float64(dir)*outer
		centers[i] = Point{X: cx, Y: bottom + r}
		cursor = cx + float64(dir)*(outer+spacing)

		top := centers[i].Y + r + ringUm/2
		if top > rowTop {
			rowTop = top
		}
		if top > cfg.ChipHeightUm-margin+placeEps {
			return nil, nil, faults.Layoutf(RingName(i),
				"top edge %.3f um exceeds usable chip height %.3f um", top, cfg.ChipHeightUm-margin)
		}
	}

	return centers, rows, nil
}

// busPath traces the single bus waveguide snaking under every row: a
// horizontal segment per row joined by vertical jogs at the alternating
// chip edges.
func busPath(rows []rowSpan, cfg *config.ChipConfig) []Point {
	gapUm := cfg.CouplingGapNm / 1000
	busUm := cfg.BusWidthNm / 1000
	ringUm := cfg.RingWidthNm / 1000
	xMin := cfg.MarginUm
	xMax := cfg.ChipWidthUm - cfg.MarginUm

	points := make([]Point, 0, 2*len(rows))
	for _, row := range rows {
		y := row.BottomY - ringUm/2 - gapUm - busUm/2
		if row.Dir > 0 {
			points = append(points, Point{X: xMin, Y: y}, Point{X: xMax, Y: y})
		} else {
			points = append(points, Point{X: xMax, Y: y}, Point{X: xMin, Y: y})
		}
	}
	return points
}
