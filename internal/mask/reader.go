package mask

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"strconv"

	"github.com/lumen-phi/photonic-core/internal/geometry"
	"github.com/lumen-phi/photonic-core/pkg/faults"
)

// pendingElement is an element record waiting for its property block.
type pendingElement struct {
	recType byte
	layer   int
	width   float64
	points  []geometry.Point
	props   map[string]string
}

// Decode parses a mask byte stream back into a layout. The header is
// verified before any record is trusted.
func Decode(data []byte) (*geometry.Layout, error) {
	layout, err := decode(data)
	if err != nil {
		return nil, faults.Serialization("decode", "", err)
	}
	return layout, nil
}

// ReadFile reads and decodes the mask at path.
func ReadFile(path string) (*geometry.Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, faults.Serialization("read", path, err)
	}
	layout, err := decode(data)
	if err != nil {
		return nil, faults.Serialization("decode", path, err)
	}
	return layout, nil
}

func decode(data []byte) (*geometry.Layout, error) {
	if len(data) < HeaderSize {
		return nil, errShortHeader
	}

	var header Header
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	if header.Magic != Magic {
		return nil, errBadMagic
	}
	if header.Version != Version {
		return nil, errBadVersion
	}

	records := data[HeaderSize:]
	if crc32.ChecksumIEEE(records) != header.Checksum {
		return nil, errChecksum
	}

	r := bytes.NewReader(records)
	layout := &geometry.Layout{}
	var pending *pendingElement
	var count uint32
	ended := false

	flush := func() error {
		if pending == nil {
			return nil
		}
		elem := pending
		pending = nil
		return buildElement(layout, elem)
	}

	for r.Len() > 0 {
		if ended {
			return nil, errDanglingRecord
		}
		recType, err := r.ReadByte()
		if err != nil {
			return nil, errTruncated
		}
		count++

		switch recType {
		case recLibrary:
			if _, err := readString(r); err != nil {
				return nil, err
			}
			var unit float64
			if err := binary.Read(r, binary.LittleEndian, &unit); err != nil {
				return nil, errTruncated
			}
			if unit != UnitM {
				return nil, fmt.Errorf("unsupported coordinate unit %g m", unit)
			}

		case recStructure:
			cell, err := readString(r)
			if err != nil {
				return nil, err
			}
			layout.Cell = cell

		case recBoundary:
			if err := flush(); err != nil {
				return nil, err
			}
			layer, _, err := readElementHead(r)
			if err != nil {
				return nil, err
			}
			points, err := readPoints(r)
			if err != nil {
				return nil, err
			}
			if len(points) < 4 || points[0] != points[len(points)-1] {
				return nil, errOpenBoundary
			}
			pending = &pendingElement{recType: recBoundary, layer: layer, points: points, props: map[string]string{}}

		case recPath:
			if err := flush(); err != nil {
				return nil, err
			}
			layer, _, err := readElementHead(r)
			if err != nil {
				return nil, err
			}
			var width float64
			if err := binary.Read(r, binary.LittleEndian, &width); err != nil {
				return nil, errTruncated
			}
			points, err := readPoints(r)
			if err != nil {
				return nil, err
			}
			if len(points) < 2 {
				return nil, fmt.Errorf("path with %d points", len(points))
			}
			pending = &pendingElement{recType: recPath, layer: layer, width: width, points: points, props: map[string]string{}}

		case recText:
			if err := flush(); err != nil {
				return nil, err
			}
			var layer uint16
			if err := binary.Read(r, binary.LittleEndian, &layer); err != nil {
				return nil, errTruncated
			}
			text, err := readString(r)
			if err != nil {
				return nil, err
			}
			var x, y float64
			if err := binary.Read(r, binary.LittleEndian, &x); err != nil {
				return nil, errTruncated
			}
			if err := binary.Read(r, binary.LittleEndian, &y); err != nil {
				return nil, errTruncated
			}
			layout.Labels = append(layout.Labels, geometry.TextLabel{
				Text:     text,
				Position: geometry.Point{X: x, Y: y},
				Layer:    int(layer),
			})

		case recProperty:
			if pending == nil {
				return nil, fmt.Errorf("property record without a preceding element")
			}
			key, err := readString(r)
			if err != nil {
				return nil, err
			}
			value, err := readString(r)
			if err != nil {
				return nil, err
			}
			pending.props[key] = value

		case recEndStruct:
			if err := flush(); err != nil {
				return nil, err
			}

		case recEndLib:
			if err := flush(); err != nil {
				return nil, err
			}
			ended = true

		default:
			return nil, fmt.Errorf("unknown record type 0x%02x", recType)
		}
	}

	if !ended {
		return nil, errTruncated
	}
	if count != header.Count {
		return nil, fmt.Errorf("record count mismatch: header says %d, stream has %d", header.Count, count)
	}
	return layout, nil
}

func readElementHead(r *bytes.Reader) (layer, datatype int, err error) {
	var l, d uint16
	if err := binary.Read(r, binary.LittleEndian, &l); err != nil {
		return 0, 0, errTruncated
	}
	if err := binary.Read(r, binary.LittleEndian, &d); err != nil {
		return 0, 0, errTruncated
	}
	return int(l), int(d), nil
}

func readPoints(r *bytes.Reader) ([]geometry.Point, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, errTruncated
	}
	if int(n)*16 > r.Len() {
		return nil, errTruncated
	}
	points := make([]geometry.Point, n)
	for i := range points {
		if err := binary.Read(r, binary.LittleEndian, &points[i].X); err != nil {
			return nil, errTruncated
		}
		if err := binary.Read(r, binary.LittleEndian, &points[i].Y); err != nil {
			return nil, errTruncated
		}
	}
	return points, nil
}

// buildElement turns a flushed element record into the primitive its
// property block describes.
func buildElement(layout *geometry.Layout, elem *pendingElement) error {
	kind := elem.props["kind"]
	switch kind {
	case kindRing:
		if elem.recType != recBoundary {
			return fmt.Errorf("ring element must be a boundary record")
		}
		index, err := propInt(elem.props, "index")
		if err != nil {
			return err
		}
		radius, err := propFloat(elem.props, "radius_um")
		if err != nil {
			return err
		}
		cx, err := propFloat(elem.props, "center_x_um")
		if err != nil {
			return err
		}
		cy, err := propFloat(elem.props, "center_y_um")
		if err != nil {
			return err
		}
		gap, err := propFloat(elem.props, "gap_um")
		if err != nil {
			return err
		}
		width, err := propFloat(elem.props, "width_um")
		if err != nil {
			return err
		}
		layout.Rings = append(layout.Rings, geometry.RingResonator{
			Index:    index,
			Name:     elem.props["name"],
			RadiusUm: radius,
			Center:   geometry.Point{X: cx, Y: cy},
			GapUm:    gap,
			WidthUm:  width,
			Layer:    elem.layer,
		})

	case kindWaveguide:
		layout.Waveguides = append(layout.Waveguides, geometry.Waveguide{
			Name:    elem.props["name"],
			Points:  elem.points,
			WidthUm: elem.width,
			Layer:   elem.layer,
		})

	case kindCoupler:
		cx, err := propFloat(elem.props, "center_x_um")
		if err != nil {
			return err
		}
		cy, err := propFloat(elem.props, "center_y_um")
		if err != nil {
			return err
		}
		through, err := propFloat(elem.props, "through")
		if err != nil {
			return err
		}
		cross, err := propFloat(elem.props, "cross")
		if err != nil {
			return err
		}
		length, err := propFloat(elem.props, "length_um")
		if err != nil {
			return err
		}
		gap, err := propFloat(elem.props, "gap_um")
		if err != nil {
			return err
		}
		layout.Couplers = append(layout.Couplers, geometry.DirectionalCoupler{
			Name:             elem.props["name"],
			Center:           geometry.Point{X: cx, Y: cy},
			Split:            [2]float64{through, cross},
			CouplingLengthUm: length,
			GapUm:            gap,
			WidthUm:          elem.width,
			Layer:            elem.layer,
		})

	case kindMZI:
		short, err := propFloat(elem.props, "short_arm_um")
		if err != nil {
			return err
		}
		long, err := propFloat(elem.props, "long_arm_um")
		if err != nil {
			return err
		}
		through, err := propFloat(elem.props, "through")
		if err != nil {
			return err
		}
		cross, err := propFloat(elem.props, "cross")
		if err != nil {
			return err
		}
		layout.MZIs = append(layout.MZIs, geometry.MZI{
			Name:       elem.props["name"],
			Origin:     elem.points[0],
			ShortArmUm: short,
			LongArmUm:  long,
			Split:      [2]float64{through, cross},
			Layer:      elem.layer,
		})

	default:
		return fmt.Errorf("element with unknown kind %q", kind)
	}
	return nil
}

func propFloat(props map[string]string, key string) (float64, error) {
	raw, ok := props[key]
	if !ok {
		return 0, fmt.Errorf("element missing %s property", key)
	}
	v, err := parseFloat(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s property %q: %w", key, raw, err)
	}
	return v, nil
}

func propInt(props map[string]string, key string) (int, error) {
	raw, ok := props[key]
	if !ok {
		return 0, fmt.Errorf("element missing %s property", key)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s property %q: %w", key, raw, err)
	}
	return v, nil
}
