// Package geometry builds golden-ratio ring-bank layouts: the radius ladder,
// serpentine placement against the chip outline, the bus waveguides, and the
// interferometer tail. A Layout is append-only while Build assembles it and
// read-only afterwards; downstream consumers never mutate it.
package geometry

import "math"

// Point is a position on the chip plane, in micrometers.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Waveguide is an open polyline traced at a fixed width on one layer
type Waveguide struct {
	Name    string  `json:"name"`
	Points  []Point `json:"points"`
	WidthUm float64 `json:"width_um"`
	Layer   int     `json:"layer"`
}

// LengthUm returns the traced length of the polyline.
func (w *Waveguide) LengthUm() float64 {
	var total float64
	for i := 1; i < len(w.Points); i++ {
		dx := w.Points[i].X - w.Points[i-1].X
		dy := w.Points[i].Y - w.Points[i-1].Y
		total += math.Hypot(dx, dy)
	}
	return total
}

// RingResonator is a circular resonator coupled to the bus across a gap
type RingResonator struct {
	Index    int     `json:"index"`
	Name     string  `json:"name"`
	RadiusUm float64 `json:"radius_um"`
	Center   Point   `json:"center"`
	GapUm    float64 `json:"gap_um"`
	WidthUm  float64 `json:"width_um"`
	Layer    int     `json:"layer"`
}

// CircumferenceUm returns the round-trip length along the ring centerline.
func (r *RingResonator) CircumferenceUm() float64 {
	return 2 * math.Pi * r.RadiusUm
}

// Outline traces the ring centerline as a closed polygon with n segments.
// The first point is repeated at the end.
func (r *RingResonator) Outline(n int) []Point {
	points := make([]Point, n+1)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		points[i] = Point{
			X: r.Center.X + r.RadiusUm*math.Cos(theta),
			Y: r.Center.Y + r.RadiusUm*math.Sin(theta),
		}
	}
	points[n] = points[0]
	return points
}

// DirectionalCoupler is a two-port power splitter characterized by its
// coupling length and gap
type DirectionalCoupler struct {
	Name             string     `json:"name"`
	Center           Point      `json:"center"`
	Split            [2]float64 `json:"split"` // through, cross power shares
	CouplingLengthUm float64    `json:"coupling_length_um"`
	GapUm            float64    `json:"gap_um"`
	WidthUm          float64    `json:"width_um"`
	Layer            int        `json:"layer"`
}

// MZI is a Mach-Zehnder interferometer with deliberately unbalanced arms
type MZI struct {
	Name       string     `json:"name"`
	Origin     Point      `json:"origin"`
	ShortArmUm float64    `json:"short_arm_um"`
	LongArmUm  float64    `json:"long_arm_um"`
	Split      [2]float64 `json:"split"`
	Layer      int        `json:"layer"`
}

// DeltaUm returns the arm length imbalance.
func (m *MZI) DeltaUm() float64 {
	return m.LongArmUm - m.ShortArmUm
}

// PhaseDelayRad returns the relative phase accumulated across the imbalance
// at the given wavelength: 2*pi*n_g*dL/lambda.
func (m *MZI) PhaseDelayRad(wavelengthNm, groupIndex float64) float64 {
	deltaNm := m.DeltaUm() * 1000
	return 2 * math.Pi * groupIndex * deltaNm / wavelengthNm
}

// TextLabel is an annotation placed on the label layer
type TextLabel struct {
	Text     string `json:"text"`
	Position Point  `json:"position"`
	Layer    int    `json:"layer"`
}

// Layout is a complete generated design: every primitive plus the cell name
type Layout struct {
	Cell       string               `json:"cell"`
	Waveguides []Waveguide          `json:"waveguides"`
	Rings      []RingResonator      `json:"rings"`
	Couplers   []DirectionalCoupler `json:"couplers"`
	MZIs       []MZI                `json:"mzis"`
	Labels     []TextLabel          `json:"labels"`
}

// PrimitiveCount returns the total number of primitives in the layout.
func (l *Layout) PrimitiveCount() int {
	return len(l.Waveguides) + len(l.Rings) + len(l.Couplers) + len(l.MZIs) + len(l.Labels)
}

// BBox returns the lower-left and upper-right corners of the layout,
// including waveguide and ring widths. Labels contribute their anchor
// point only.
func (l *Layout) BBox() (Point, Point) {
	lo := Point{X: math.Inf(1), Y: math.Inf(1)}
	hi := Point{X: math.Inf(-1), Y: math.Inf(-1)}

	grow := func(x, y float64) {
		lo.X = math.Min(lo.X, x)
		lo.Y = math.Min(lo.Y, y)
		hi.X = math.Max(hi.X, x)
		hi.Y = math.Max(hi.Y, y)
	}

	for i := range l.Waveguides {
		w := &l.Waveguides[i]
		half := w.WidthUm / 2
		for _, p := range w.Points {
			grow(p.X-half, p.Y-half)
			grow(p.X+half, p.Y+half)
		}
	}
	for i := range l.Rings {
		r := &l.Rings[i]
		reach := r.RadiusUm + r.WidthUm/2
		grow(r.Center.X-reach, r.Center.Y-reach)
		grow(r.Center.X+reach, r.Center.Y+reach)
	}
	for i := range l.Couplers {
		c := &l.Couplers[i]
		halfLen := c.CouplingLengthUm / 2
		reach := c.GapUm/2 + c.WidthUm
		grow(c.Center.X-halfLen, c.Center.Y-reach)
		grow(c.Center.X+halfLen, c.Center.Y+reach)
	}
	for i := range l.MZIs {
		m := &l.MZIs[i]
		grow(m.Origin.X, m.Origin.Y)
		// Arms run horizontally from the origin; the long arm bounds the extent.
		grow(m.Origin.X+m.LongArmUm, m.Origin.Y)
	}
	for _, t := range l.Labels {
		grow(t.Position.X, t.Position.Y)
	}

	if l.PrimitiveCount() == 0 {
		return Point{}, Point{}
	}
	return lo, hi
}

// WidthUm returns the bounding-box width of the layout.
func (l *Layout) WidthUm() float64 {
	lo, hi := l.BBox()
	return hi.X - lo.X
}

// HeightUm returns the bounding-box height of the layout.
func (l *Layout) HeightUm() float64 {
	lo, hi := l.BBox()
	return hi.Y - lo.Y
}

// Radii returns the ring radii in placement order.
func (l *Layout) Radii() []float64 {
	radii := make([]float64, len(l.Rings))
	for i := range l.Rings {
		radii[i] = l.Rings[i].RadiusUm
	}
	return radii
}
