package geometry

import (
	"errors"
	"fmt"
	"image"
	"math/bits"
	"strings"
)

// MaxScanRatio is the highest multiplexing ratio that five address lines
// (A..E) can select.
const MaxScanRatio = 32

// Chaining describes the order in which the panel rows of one chain are wired.
type Chaining int

const (
	// Linear chains every panel row in the same orientation.
	Linear Chaining = iota
	// ZigzagUp chains panel rows in a serpentine path starting at the bottom.
	ZigzagUp
	// ZigzagDown chains panel rows in a serpentine path starting at the top.
	ZigzagDown
)

var chainingNames = [...]string{"linear", "zigzag-up", "zigzag-down"}

func (c Chaining) String() string {
	if c < 0 || int(c) >= len(chainingNames) {
		return fmt.Sprintf("Chaining(%d)", int(c))
	}
	return chainingNames[c]
}

// ParseChaining returns the Chaining named s ("linear", "zigzag-up" or
// "zigzag-down"). Matching is case insensitive and accepts '_' for '-'.
func ParseChaining(s string) (Chaining, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for i, name := range chainingNames {
		if n == name {
			return Chaining(i), nil
		}
	}
	return 0, fmt.Errorf("geometry: unknown chaining %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Chaining) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= len(chainingNames) {
		return nil, fmt.Errorf("geometry: unknown chaining %d", int(c))
	}
	return []byte(chainingNames[c]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Chaining) UnmarshalText(b []byte) error {
	v, err := ParseChaining(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Topology is the static description of a display made of HUB12 panels.
type Topology struct {
	Width  int // Total width in pixels
	Height int // Total height in pixels

	PanelsX int // Panels per panel row
	PanelsY int // Panel rows

	Chaining  Chaining
	ScanRatio int // Rows lit per multiplex step is PanelHeight/ScanRatio
	Lines     int // Independent shift-register chains
}

// Validate reports the first configuration error found in t.
func (t *Topology) Validate() error {
	if t.Width <= 0 || t.Height <= 0 {
		return errors.New("geometry: width and height must be positive")
	}
	if t.PanelsX <= 0 || t.PanelsY <= 0 {
		return errors.New("geometry: panel counts must be positive")
	}
	if t.Width%t.PanelsX != 0 {
		return fmt.Errorf("geometry: width %d is not divisible by %d panels", t.Width, t.PanelsX)
	}
	if t.Height%t.PanelsY != 0 {
		return fmt.Errorf("geometry: height %d is not divisible by %d panel rows", t.Height, t.PanelsY)
	}
	if pw := t.PanelWidth(); pw%8 != 0 {
		return fmt.Errorf("geometry: panel width %d is not a multiple of 8", pw)
	}
	if t.ScanRatio <= 0 || t.ScanRatio > MaxScanRatio || t.ScanRatio&(t.ScanRatio-1) != 0 {
		return fmt.Errorf("geometry: scan ratio %d must be a power of two between 1 and %d", t.ScanRatio, MaxScanRatio)
	}
	if ph := t.PanelHeight(); ph%t.ScanRatio != 0 {
		return fmt.Errorf("geometry: panel height %d is not divisible by scan ratio %d", ph, t.ScanRatio)
	}
	if t.Lines <= 0 || t.PanelsY%t.Lines != 0 {
		return fmt.Errorf("geometry: %d lines cannot split %d panel rows", t.Lines, t.PanelsY)
	}
	if t.Chaining < Linear || t.Chaining > ZigzagDown {
		return fmt.Errorf("geometry: unknown chaining %d", int(t.Chaining))
	}
	return nil
}

// PanelWidth returns the width of one panel in pixels.
func (t *Topology) PanelWidth() int { return t.Width / t.PanelsX }

// PanelHeight returns the height of one panel in pixels.
func (t *Topology) PanelHeight() int { return t.Height / t.PanelsY }

// PanelWidthBytes returns the number of shift registers across one panel.
func (t *Topology) PanelWidthBytes() int { return t.PanelWidth() / 8 }

// RowsPerPattern returns how many physical rows of one panel share a scan row.
func (t *Topology) RowsPerPattern() int { return t.PanelHeight() / t.ScanRatio }

// PanelRowsPerLine returns how many panel rows one chain drives.
func (t *Topology) PanelRowsPerLine() int { return t.PanelsY / t.Lines }

// PanelsPerLine returns how many panels one chain drives.
func (t *Topology) PanelsPerLine() int { return t.PanelsX * t.PanelRowsPerLine() }

// LineSize returns the number of bytes shifted into one chain per scan step.
func (t *Topology) LineSize() int {
	return t.PanelsPerLine() * t.PanelWidthBytes() * t.RowsPerPattern()
}

// RowSize returns the number of bytes shifted into all chains per scan step.
func (t *Topology) RowSize() int { return t.Lines * t.LineSize() }

// PlaneSize returns the size of one bit-plane in bytes.
func (t *Topology) PlaneSize() int { return t.ScanRatio * t.RowSize() }

// AddrBits returns the number of multiplexer address lines in use.
func (t *Topology) AddrBits() int { return bits.Len(uint(t.ScanRatio)) - 1 }

// Transform is applied to every logical coordinate before it is mapped.
type Transform struct {
	Rotate bool // Swap the axes and mirror the new y axis
	Flip   bool // Mirror horizontally
}

// Apply converts the logical coordinate (x, y) into the physical frame of a
// w×h display.
func (t Transform) Apply(x, y, w, h int) (int, int) {
	if t.Rotate {
		x, y = y, h-1-x
	}
	if t.Flip {
		x = w - 1 - x
	}
	return x, y
}

// Invert is the inverse of Apply: it converts a physical coordinate of a w×h
// display back into the logical frame.
func (t Transform) Invert(x, y, w, h int) (int, int) {
	if t.Flip {
		x = w - 1 - x
	}
	if t.Rotate {
		x, y = h-1-y, x
	}
	return x, y
}

// Bounds returns the logical bounds of a w×h display.
func (t Transform) Bounds(w, h int) image.Rectangle {
	if t.Rotate {
		return image.Rect(0, 0, h, w)
	}
	return image.Rect(0, 0, w, h)
}

// Address locates one pixel inside a bit-plane.
type Address struct {
	Offset int  // Byte offset relative to the start of the plane
	Bit    uint // Bit inside that byte
}

// Mapper converts logical coordinates into plane addresses.
//
// A Mapper is immutable. Build a new one when the topology changes and use
// WithTransform when only the transform does.
type Mapper struct {
	topo Topology
	tr   Transform

	// rowOffset[row*Lines+line] is the offset of the last byte of that slice.
	rowOffset []int

	pw, ph      int
	pwb, rpp    int
	rowsPerLine int
}

// New validates t and precomputes its row offset table.
func New(t Topology, tr Transform) (*Mapper, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	m := &Mapper{
		topo:        t,
		tr:          tr,
		pw:          t.PanelWidth(),
		ph:          t.PanelHeight(),
		pwb:         t.PanelWidthBytes(),
		rpp:         t.RowsPerPattern(),
		rowsPerLine: t.PanelRowsPerLine(),
	}
	lineSize := t.LineSize()
	m.rowOffset = make([]int, t.ScanRatio*t.Lines)
	for row := 0; row < t.ScanRatio; row++ {
		for line := 0; line < t.Lines; line++ {
			i := row*t.Lines + line
			m.rowOffset[i] = i*lineSize + lineSize - 1
		}
	}
	return m, nil
}

// WithTransform returns a Mapper sharing m's table with a different transform.
func (m *Mapper) WithTransform(tr Transform) *Mapper {
	n := *m
	n.tr = tr
	return &n
}

// Topology returns the topology m was built for.
func (m *Mapper) Topology() Topology { return m.topo }

// Transform returns the transform applied by m.
func (m *Mapper) Transform() Transform { return m.tr }

// Bounds returns the logical drawing area.
func (m *Mapper) Bounds() image.Rectangle {
	return m.tr.Bounds(m.topo.Width, m.topo.Height)
}

// RowOffset returns the plane offset of the last byte of the slice shifted
// into chain line during scan row row.
func (m *Mapper) RowOffset(row, line int) int {
	return m.rowOffset[row*m.topo.Lines+line]
}

// Map returns the plane address of the logical pixel (x, y). It returns false
// when the pixel is outside the display.
func (m *Mapper) Map(x, y int) (Address, bool) {
	w, h := m.topo.Width, m.topo.Height
	x, y = m.tr.Apply(x, y, w, h)
	// Panels are mirrored horizontally in their native orientation.
	x = w - 1 - x
	if x < 0 || x >= w || y < 0 || y >= h {
		return Address{}, false
	}

	px, xIn := x/m.pw, x%m.pw
	py, yIn := y/m.ph, y%m.ph
	line, k := py/m.rowsPerLine, py%m.rowsPerLine
	if m.topo.Chaining == ZigzagUp {
		k = m.rowsPerLine - 1 - k
	}
	if m.topo.Chaining != Linear && k%2 == 1 {
		// Upside down panel row: the chain runs back through it.
		px = m.topo.PanelsX - 1 - px
		xIn = m.pw - 1 - xIn
		yIn = m.ph - 1 - yIn
	}

	chainPanel := k*m.topo.PanelsX + px
	rowIndex, yIndex := yIn%m.topo.ScanRatio, yIn/m.topo.ScanRatio
	offset := yIndex + m.rpp*(xIn/8) + m.pwb*m.rpp*chainPanel
	return Address{
		Offset: m.RowOffset(rowIndex, line) - offset,
		Bit:    uint(xIn % 8),
	}, true
}
