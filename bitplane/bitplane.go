package bitplane

import (
	"errors"
	"fmt"

	"github.com/flavioheleno/hub12/geometry"
)

const (
	// DefaultDepth is the number of planes used when Opts.Depth is zero.
	DefaultDepth = 4
	// MaxDepth is the highest supported number of planes.
	MaxDepth = 8
)

// Selector picks one of the arrays of a Buffer.
type Selector int

const (
	// Active is the array currently displayed.
	Active Selector = iota
	// Inactive is the array drawn into while Active is displayed.
	Inactive
	// First is the first array regardless of swaps.
	First
	// Second is the second array regardless of swaps.
	Second
)

var selectorNames = [...]string{"active", "inactive", "first", "second"}

func (s Selector) String() string {
	if s < 0 || int(s) >= len(selectorNames) {
		return fmt.Sprintf("Selector(%d)", int(s))
	}
	return selectorNames[s]
}

// Opts defines the options of a Buffer.
type Opts struct {
	Depth  int  // Number of planes, 1 to MaxDepth
	Double bool // Keep a second array for tear-free updates
	// Invert stores the complement of every level, for panels whose drivers
	// sink current on a high bit.
	Invert bool
	// Gamma is applied to the level before it is quantized. Nil disables it.
	Gamma *[256]uint8
}

// Buffer stores quantized intensities as Depth bit-planes.
//
// Buffer is not safe for concurrent use.
type Buffer struct {
	m      *geometry.Mapper
	depth  int
	shift  uint
	mask   uint8
	invert bool
	gamma  *[256]uint8

	planeSize int
	bufs      [2][]byte
	active    int

	// levels[q] is the 8-bit intensity reported for the quantized level q.
	levels [1 << MaxDepth]uint8
}

// New returns a cleared Buffer sized for m. A nil opts uses DefaultDepth with
// a single array.
func New(m *geometry.Mapper, opts *Opts) (*Buffer, error) {
	if m == nil {
		return nil, errors.New("bitplane: nil mapper")
	}
	if opts == nil {
		opts = &Opts{}
	}
	depth := opts.Depth
	if depth == 0 {
		depth = DefaultDepth
	}
	if depth < 1 || depth > MaxDepth {
		return nil, fmt.Errorf("bitplane: depth %d is not between 1 and %d", depth, MaxDepth)
	}
	topo := m.Topology()
	b := &Buffer{
		m:         m,
		depth:     depth,
		shift:     uint(8 - depth),
		mask:      uint8(1<<depth - 1),
		invert:    opts.Invert,
		gamma:     opts.Gamma,
		planeSize: topo.PlaneSize(),
	}
	b.bufs[0] = make([]byte, depth*b.planeSize)
	if opts.Double {
		b.bufs[1] = make([]byte, depth*b.planeSize)
	}
	b.buildLevels()
	b.Clear(First)
	b.Clear(Second)
	return b, nil
}

// buildLevels fills the table used by At to undo gamma correction.
//
// A quantized level maps back to the input whose gamma value matches it
// exactly. Without an exact match it maps to the smallest input quantizing
// to the same level, and to the raw expanded value when no input does.
func (b *Buffer) buildLevels() {
	for q := 0; q <= int(b.mask); q++ {
		raw := uint8(q << b.shift)
		b.levels[q] = raw
		if b.gamma == nil {
			continue
		}
		found := false
		for i, g := range b.gamma {
			if g == raw {
				b.levels[q] = uint8(i)
				found = true
				break
			}
		}
		if found {
			continue
		}
		for i, g := range b.gamma {
			if g>>b.shift == uint8(q) {
				b.levels[q] = uint8(i)
				break
			}
		}
	}
}

// Mapper returns the mapper addressing b.
func (b *Buffer) Mapper() *geometry.Mapper { return b.m }

// SetMapper replaces the mapper, typically to change the transform. The new
// mapper must describe the same topology.
func (b *Buffer) SetMapper(m *geometry.Mapper) error {
	if m == nil || m.Topology() != b.m.Topology() {
		return errors.New("bitplane: mapper topology differs from buffer")
	}
	b.m = m
	return nil
}

// SetTransform replaces the transform of the mapper. The stored planes are
// left as they are.
func (b *Buffer) SetTransform(tr geometry.Transform) {
	b.m = b.m.WithTransform(tr)
}

// Depth returns the number of planes.
func (b *Buffer) Depth() int { return b.depth }

// Double reports whether b keeps two arrays.
func (b *Buffer) Double() bool { return b.bufs[1] != nil }

// PlaneSize returns the size of one plane in bytes.
func (b *Buffer) PlaneSize() int { return b.planeSize }

func (b *Buffer) buf(sel Selector) []byte {
	if b.bufs[1] == nil {
		return b.bufs[0]
	}
	switch sel {
	case Inactive:
		return b.bufs[1-b.active]
	case First:
		return b.bufs[0]
	case Second:
		return b.bufs[1]
	default:
		return b.bufs[b.active]
	}
}

// Quantize returns the stored plane bits for level.
func (b *Buffer) Quantize(level uint8) uint8 {
	if b.gamma != nil {
		level = b.gamma[level]
	}
	q := level >> b.shift
	if b.invert {
		q ^= b.mask
	}
	return q
}

// Set stores level at the logical pixel (x, y). Out of bounds pixels are
// ignored.
func (b *Buffer) Set(x, y int, level uint8, sel Selector) {
	a, ok := b.m.Map(x, y)
	if !ok {
		return
	}
	q := b.Quantize(level)
	buf := b.buf(sel)
	bit := byte(1) << a.Bit
	for p, off := 0, a.Offset; p < b.depth; p, off = p+1, off+b.planeSize {
		if q&(1<<p) != 0 {
			buf[off] |= bit
		} else {
			buf[off] &^= bit
		}
	}
}

// At returns the level stored at the logical pixel (x, y), or 0 when the pixel
// is out of bounds.
//
// Without gamma the result is the level truncated to Depth bits. With gamma
// the result is approximate.
func (b *Buffer) At(x, y int, sel Selector) uint8 {
	a, ok := b.m.Map(x, y)
	if !ok {
		return 0
	}
	buf := b.buf(sel)
	var q uint8
	for p, off := 0, a.Offset; p < b.depth; p, off = p+1, off+b.planeSize {
		q |= (buf[off] >> a.Bit & 1) << p
	}
	if b.invert {
		q ^= b.mask
	}
	return b.levels[q]
}

// Clear sets every pixel of the selected array to level 0.
func (b *Buffer) Clear(sel Selector) {
	fill := byte(0x00)
	if b.invert {
		fill = 0xFF
	}
	buf := b.buf(sel)
	for i := range buf {
		buf[i] = fill
	}
}

// Swap exchanges the active and inactive arrays. It is a no-op with a single
// array.
func (b *Buffer) Swap() {
	if b.bufs[1] != nil {
		b.active = 1 - b.active
	}
}

// Copy copies the active array onto the inactive one, or the inactive onto the
// active one when reverse is true.
func (b *Buffer) Copy(reverse bool) {
	if b.bufs[1] == nil {
		return
	}
	src, dst := b.buf(Active), b.buf(Inactive)
	if reverse {
		src, dst = dst, src
	}
	copy(dst, src)
}

// Plane returns plane p of the selected array.
func (b *Buffer) Plane(sel Selector, p int) []byte {
	off := p * b.planeSize
	return b.buf(sel)[off : off+b.planeSize]
}

// RowSlice returns the bytes shifted into all chains for one scan row of
// plane p, chain 0 first.
func (b *Buffer) RowSlice(sel Selector, p, row int) []byte {
	topo := b.m.Topology()
	rs := topo.RowSize()
	off := p*b.planeSize + row*rs
	return b.buf(sel)[off : off+rs]
}

// Slice returns the bytes shifted into chain line for one scan row of plane p.
func (b *Buffer) Slice(sel Selector, p, row, line int) []byte {
	topo := b.m.Topology()
	ls := topo.LineSize()
	off := p*b.planeSize + (row*topo.Lines+line)*ls
	return b.buf(sel)[off : off+ls]
}
