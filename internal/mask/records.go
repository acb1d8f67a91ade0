// Package mask serializes layouts to the on-disk mask interchange format: a
// little-endian record stream fronted by a checksummed header. Coordinates
// and widths travel as raw IEEE 754 bits, and each element record carries a
// property block with its exact construction parameters, so a decoded layout
// reproduces the encoded one bit for bit.
package mask

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
)

// Record types in the mask stream.
const (
	recLibrary   byte = 0x01
	recStructure byte = 0x02
	recBoundary  byte = 0x03 // closed polygon
	recPath      byte = 0x04 // open polyline with width
	recText      byte = 0x05
	recProperty  byte = 0x06 // key/value attached to the preceding element
	recEndStruct byte = 0x07
	recEndLib    byte = 0x08
)

// Stream framing constants.
const (
	Magic      uint32 = 0x4D494850 // "PHIM" in little endian
	Version    uint32 = 1
	HeaderSize        = 20

	// UnitM is the physical length of one coordinate unit, in meters.
	UnitM = 1e-6
)

// Header fronts every mask file and guards the record stream.
type Header struct {
	Magic    uint32
	Version  uint32
	Count    uint32 // number of records following the header
	Checksum uint32 // CRC32 (IEEE) of the record bytes
	Reserved uint32
}

// Property kinds used to rebuild primitives on decode.
const (
	kindRing      = "ring"
	kindWaveguide = "waveguide"
	kindCoupler   = "coupler"
	kindMZI       = "mzi"
)

var (
	errShortHeader    = errors.New("data too short for header")
	errBadMagic       = errors.New("invalid magic number")
	errBadVersion     = errors.New("unsupported mask format version")
	errChecksum       = errors.New("data corruption detected")
	errTruncated      = errors.New("record stream truncated")
	errOpenBoundary   = errors.New("boundary polygon is not closed")
	errDanglingRecord = errors.New("record after library end")
)

// writeString writes a length-prefixed UTF-8 string.
func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 0xFFFF {
		return fmt.Errorf("string of %d bytes exceeds record limit", len(s))
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := buf.WriteString(s)
	return err
}

// readString reads a length-prefixed UTF-8 string.
func readString(buf *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(buf, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	raw := make([]byte, n)
	if _, err := buf.Read(raw); err != nil {
		return "", errTruncated
	}
	return string(raw), nil
}

// formatFloat renders a float64 for a property value without losing bits.
// The hexadecimal form survives the round-trip exactly.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'x', -1, 64)
}

// parseFloat reads a property value written by formatFloat.
func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
