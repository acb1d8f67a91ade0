package mask

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"os"
	"strconv"

	"github.com/lumen-phi/photonic-core/internal/geometry"
	"github.com/lumen-phi/photonic-core/pkg/faults"
)

// recordWriter accumulates the record stream and counts records as they go.
type recordWriter struct {
	buf   bytes.Buffer
	count uint32
	err   error
}

func (w *recordWriter) record(recType byte, fields func(*bytes.Buffer) error) {
	if w.err != nil {
		return
	}
	if err := w.buf.WriteByte(recType); err != nil {
		w.err = err
		return
	}
	if fields != nil {
		if err := fields(&w.buf); err != nil {
			w.err = err
			return
		}
	}
	w.count++
}

func (w *recordWriter) property(key, value string) {
	w.record(recProperty, func(buf *bytes.Buffer) error {
		if err := writeString(buf, key); err != nil {
			return err
		}
		return writeString(buf, value)
	})
}

func writePoints(buf *bytes.Buffer, points []geometry.Point) error {
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(points))); err != nil {
		return err
	}
	for _, p := range points {
		if err := binary.Write(buf, binary.LittleEndian, p.X); err != nil {
			return err
		}
		if err := binary.Write(buf, binary.LittleEndian, p.Y); err != nil {
			return err
		}
	}
	return nil
}

// Encode serializes a layout into the mask interchange format. Ring outlines
// are discretized into closed polygons with pointsPerRing segments; the exact
// construction parameters ride along as element properties.
func Encode(layout *geometry.Layout, pointsPerRing int) ([]byte, error) {
	w := &recordWriter{}

	// Library
	w.record(recLibrary, func(buf *bytes.Buffer) error {
		if err := writeString(buf, layout.Cell); err != nil {
			return err
		}
		return binary.Write(buf, binary.LittleEndian, float64(UnitM))
	})

	// Structure
	w.record(recStructure, func(buf *bytes.Buffer) error {
		return writeString(buf, layout.Cell)
	})

	for i := range layout.Rings {
		ring := &layout.Rings[i]
		w.record(recBoundary, func(buf *bytes.Buffer) error {
			if err := binary.Write(buf, binary.LittleEndian, uint16(ring.Layer)); err != nil {
				return err
			}
			if err := binary.Write(buf, binary.LittleEndian, uint16(0)); err != nil {
				return err
			}
			return writePoints(buf, ring.Outline(pointsPerRing))
		})
		w.property("kind", kindRing)
		w.property("name", ring.Name)
		w.property("index", strconv.Itoa(ring.Index))
		w.property("radius_um", formatFloat(ring.RadiusUm))
		w.property("center_x_um", formatFloat(ring.Center.X))
		w.property("center_y_um", formatFloat(ring.Center.Y))
		w.property("gap_um", formatFloat(ring.GapUm))
		w.property("width_um", formatFloat(ring.WidthUm))
	}

	for i := range layout.Waveguides {
		wg := &layout.Waveguides[i]
		w.record(recPath, func(buf *bytes.Buffer) error {
			if err := binary.Write(buf, binary.LittleEndian, uint16(wg.Layer)); err != nil {
				return err
			}
			if err := binary.Write(buf, binary.LittleEndian, uint16(0)); err != nil {
				return err
			}
			if err := binary.Write(buf, binary.LittleEndian, wg.WidthUm); err != nil {
				return err
			}
			return writePoints(buf, wg.Points)
		})
		w.property("kind", kindWaveguide)
		w.property("name", wg.Name)
	}

	for i := range layout.Couplers {
		dc := &layout.Couplers[i]
		w.record(recPath, func(buf *bytes.Buffer) error {
			if err := binary.Write(buf, binary.LittleEndian, uint16(dc.Layer)); err != nil {
				return err
			}
			if err := binary.Write(buf, binary.LittleEndian, uint16(0)); err != nil {
				return err
			}
			if err := binary.Write(buf, binary.LittleEndian, dc.WidthUm); err != nil {
				return err
			}
			half := dc.CouplingLengthUm / 2
			return writePoints(buf, []geometry.Point{
				{X: dc.Center.X - half, Y: dc.Center.Y},
				{X: dc.Center.X + half, Y: dc.Center.Y},
			})
		})
		w.property("kind", kindCoupler)
		w.property("name", dc.Name)
		w.property("center_x_um", formatFloat(dc.Center.X))
		w.property("center_y_um", formatFloat(dc.Center.Y))
		w.property("through", formatFloat(dc.Split[0]))
		w.property("cross", formatFloat(dc.Split[1]))
		w.property("length_um", formatFloat(dc.CouplingLengthUm))
		w.property("gap_um", formatFloat(dc.GapUm))
	}

	for i := range layout.MZIs {
		mzi := &layout.MZIs[i]
		w.record(recPath, func(buf *bytes.Buffer) error {
			if err := binary.Write(buf, binary.LittleEndian, uint16(mzi.Layer)); err != nil {
				return err
			}
			if err := binary.Write(buf, binary.LittleEndian, uint16(0)); err != nil {
				return err
			}
			if err := binary.Write(buf, binary.LittleEndian, float64(0)); err != nil {
				return err
			}
			return writePoints(buf, []geometry.Point{
				mzi.Origin,
				{X: mzi.Origin.X + mzi.ShortArmUm, Y: mzi.Origin.Y},
			})
		})
		w.property("kind", kindMZI)
		w.property("name", mzi.Name)
		w.property("short_arm_um", formatFloat(mzi.ShortArmUm))
		w.property("long_arm_um", formatFloat(mzi.LongArmUm))
		w.property("through", formatFloat(mzi.Split[0]))
		w.property("cross", formatFloat(mzi.Split[1]))
	}

	for _, label := range layout.Labels {
		w.record(recText, func(buf *bytes.Buffer) error {
			if err := binary.Write(buf, binary.LittleEndian, uint16(label.Layer)); err != nil {
				return err
			}
			if err := writeString(buf, label.Text); err != nil {
				return err
			}
			if err := binary.Write(buf, binary.LittleEndian, label.Position.X); err != nil {
				return err
			}
			return binary.Write(buf, binary.LittleEndian, label.Position.Y)
		})
	}

	w.record(recEndStruct, nil)
	w.record(recEndLib, nil)

	if w.err != nil {
		return nil, faults.Serialization("encode", "", w.err)
	}

	records := w.buf.Bytes()
	header := Header{
		Magic:    Magic,
		Version:  Version,
		Count:    w.count,
		Checksum: crc32.ChecksumIEEE(records),
	}

	out := bytes.NewBuffer(make([]byte, 0, HeaderSize+len(records)))
	if err := binary.Write(out, binary.LittleEndian, header); err != nil {
		return nil, faults.Serialization("encode", "", err)
	}
	out.Write(records)
	return out.Bytes(), nil
}

// WriteFile encodes a layout and writes it to path.
func WriteFile(path string, layout *geometry.Layout, pointsPerRing int) error {
	data, err := Encode(layout, pointsPerRing)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return faults.Serialization("write", path, err)
	}
	return nil
}
