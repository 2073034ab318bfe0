package bitplane

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flavioheleno/hub12/geometry"
)

func newMapper(t *testing.T, topo geometry.Topology) *geometry.Mapper {
	t.Helper()
	m, err := geometry.New(topo, geometry.Transform{})
	require.NoError(t, err)
	return m
}

func p10(t *testing.T, scan int) *geometry.Mapper {
	return newMapper(t, geometry.Topology{Width: 32, Height: 16, PanelsX: 1, PanelsY: 1, ScanRatio: scan, Lines: 1})
}

func TestNew(t *testing.T) {
	m := p10(t, 4)

	b, err := New(m, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDepth, b.Depth())
	assert.False(t, b.Double())
	assert.Equal(t, 64, b.PlaneSize())
	assert.Same(t, m, b.Mapper())

	for _, depth := range []int{-1, 9, 16} {
		_, err := New(m, &Opts{Depth: depth})
		assert.Error(t, err, "depth %d", depth)
	}
	_, err = New(nil, nil)
	assert.Error(t, err)
}

func TestQuantizationRoundTrip(t *testing.T) {
	m := p10(t, 8)
	for depth := 1; depth <= MaxDepth; depth++ {
		for _, invert := range []bool{false, true} {
			b, err := New(m, &Opts{Depth: depth, Invert: invert})
			require.NoError(t, err)
			shift := uint(8 - depth)
			for v := 0; v < 256; v++ {
				x, y := v%32, v/32
				b.Set(x, y, uint8(v), Active)
				want := uint8(v) >> shift << shift
				if got := b.At(x, y, Active); got != want {
					t.Fatalf("depth %d invert %v: At after Set(%d) = %d, want %d", depth, invert, v, got, want)
				}
			}
		}
	}
}

func TestSetLeavesOtherBits(t *testing.T) {
	b, err := New(p10(t, 4), &Opts{Depth: 4})
	require.NoError(t, err)

	// (0, 0) and (1, 0) share a byte in every plane.
	b.Set(0, 0, 0xFF, Active)
	b.Set(1, 0, 0x50, Active)
	b.Set(1, 0, 0xA0, Active)
	assert.Equal(t, uint8(0xF0), b.At(0, 0, Active))
	assert.Equal(t, uint8(0xA0), b.At(1, 0, Active))

	b.Set(0, 0, 0, Active)
	assert.Equal(t, uint8(0), b.At(0, 0, Active))
	assert.Equal(t, uint8(0xA0), b.At(1, 0, Active))
}

func TestScenarioPixelOrigin(t *testing.T) {
	m := p10(t, 8)
	b, err := New(m, &Opts{Depth: 4})
	require.NoError(t, err)

	b.Set(0, 0, 255, Active)

	a, ok := m.Map(0, 0)
	require.True(t, ok)
	assert.Equal(t, m.RowOffset(0, 0)-6, a.Offset)
	assert.Equal(t, uint(7), a.Bit)
	for p := 0; p < b.Depth(); p++ {
		plane := b.Plane(Active, p)
		for i, v := range plane {
			if i == a.Offset {
				assert.Equal(t, byte(0x80), v, "plane %d", p)
			} else {
				assert.Zero(t, v, "plane %d offset %d", p, i)
			}
		}
	}
}

func TestOutOfBounds(t *testing.T) {
	b, err := New(p10(t, 4), &Opts{Depth: 4, Double: true})
	require.NoError(t, err)
	b.Set(5, 5, 0xFF, Active)
	before := append([]byte(nil), b.Plane(Active, 3)...)

	for _, p := range []image.Point{{-1, 0}, {0, -1}, {32, 0}, {0, 16}, {1000, 1000}} {
		b.Set(p.X, p.Y, 0xFF, Active)
		assert.Zero(t, b.At(p.X, p.Y, Active), "At(%d, %d)", p.X, p.Y)
	}
	assert.Equal(t, before, b.Plane(Active, 3))
	assert.Equal(t, uint8(0xF0), b.At(5, 5, Active))
}

func TestClear(t *testing.T) {
	for _, invert := range []bool{false, true} {
		b, err := New(p10(t, 4), &Opts{Depth: 3, Invert: invert})
		require.NoError(t, err)

		fill := byte(0x00)
		if invert {
			fill = 0xFF
		}
		for p := 0; p < b.Depth(); p++ {
			for _, v := range b.Plane(Active, p) {
				require.Equal(t, fill, v, "new buffer, invert %v", invert)
			}
		}

		for y := 0; y < 16; y++ {
			for x := 0; x < 32; x++ {
				b.Set(x, y, uint8(x*8+y), Active)
			}
		}
		b.Clear(Active)
		b.Clear(Active)
		for y := 0; y < 16; y++ {
			for x := 0; x < 32; x++ {
				require.Zero(t, b.At(x, y, Active), "invert %v (%d, %d)", invert, x, y)
			}
		}
		for _, v := range b.Plane(Active, 0) {
			require.Equal(t, fill, v)
		}
	}
}

func TestSwapIsRelative(t *testing.T) {
	b, err := New(p10(t, 4), &Opts{Depth: 4, Double: true})
	require.NoError(t, err)
	require.True(t, b.Double())

	b.Set(2, 3, 0x80, Active)
	assert.Equal(t, uint8(0x80), b.At(2, 3, First))
	assert.Zero(t, b.At(2, 3, Inactive))

	b.Swap()
	assert.Equal(t, uint8(0x80), b.At(2, 3, Inactive))
	assert.Zero(t, b.At(2, 3, Active))
	assert.Equal(t, uint8(0x80), b.At(2, 3, First))
	assert.Zero(t, b.At(2, 3, Second))

	b.Set(2, 3, 0x40, Active)
	assert.Equal(t, uint8(0x40), b.At(2, 3, Second))

	b.Swap()
	assert.Equal(t, uint8(0x80), b.At(2, 3, Active))
	assert.Equal(t, uint8(0x40), b.At(2, 3, Inactive))
}

func TestCopy(t *testing.T) {
	b, err := New(p10(t, 4), &Opts{Depth: 4, Double: true})
	require.NoError(t, err)

	b.Set(1, 1, 0xF0, Active)
	b.Set(2, 2, 0x30, Inactive)

	b.Copy(false)
	assert.Equal(t, uint8(0xF0), b.At(1, 1, Inactive))
	assert.Zero(t, b.At(2, 2, Inactive))

	b.Set(2, 2, 0x30, Inactive)
	b.Copy(true)
	assert.Equal(t, uint8(0x30), b.At(2, 2, Active))
	assert.Equal(t, b.Plane(Active, 0), b.Plane(Inactive, 0))
}

func TestSingleBufferCollapses(t *testing.T) {
	b, err := New(p10(t, 4), &Opts{Depth: 2})
	require.NoError(t, err)

	b.Set(4, 4, 0xC0, Inactive)
	for _, sel := range []Selector{Active, Inactive, First, Second} {
		assert.Equal(t, uint8(0xC0), b.At(4, 4, sel), sel.String())
	}
	b.Swap()
	b.Copy(false)
	b.Copy(true)
	assert.Equal(t, uint8(0xC0), b.At(4, 4, Active))
	b.Clear(Second)
	assert.Zero(t, b.At(4, 4, First))
}

func TestSlices(t *testing.T) {
	m := newMapper(t, geometry.Topology{Width: 64, Height: 32, PanelsX: 2, PanelsY: 2, ScanRatio: 4, Lines: 2})
	b, err := New(m, &Opts{Depth: 2})
	require.NoError(t, err)

	topo := m.Topology()
	for p := 0; p < 2; p++ {
		for row := 0; row < topo.ScanRatio; row++ {
			rs := b.RowSlice(Active, p, row)
			require.Len(t, rs, topo.RowSize())
			for line := 0; line < topo.Lines; line++ {
				s := b.Slice(Active, p, row, line)
				require.Len(t, s, topo.LineSize())
				s[len(s)-1] = byte(p<<4 | row<<1 | line)
				// The last byte of the slice is the row offset entry.
				assert.Equal(t, s[len(s)-1], b.Plane(Active, p)[m.RowOffset(row, line)])
				assert.Equal(t, s[len(s)-1], rs[(line+1)*topo.LineSize()-1])
			}
		}
	}
}

func TestSetMapper(t *testing.T) {
	m := p10(t, 4)
	b, err := New(m, &Opts{Depth: 4})
	require.NoError(t, err)

	b.Set(0, 0, 0xFF, Active)
	flipped := m.WithTransform(geometry.Transform{Flip: true})
	require.NoError(t, b.SetMapper(flipped))
	assert.Equal(t, uint8(0xF0), b.At(31, 0, Active))
	assert.Zero(t, b.At(0, 0, Active))

	assert.Error(t, b.SetMapper(p10(t, 8)))
	assert.Error(t, b.SetMapper(nil))
}

func TestSetTransform(t *testing.T) {
	b, err := New(p10(t, 4), &Opts{Depth: 4})
	require.NoError(t, err)

	b.Set(0, 0, 0xFF, Active)
	b.SetTransform(geometry.Transform{Flip: true})
	assert.Equal(t, geometry.Transform{Flip: true}, b.Mapper().Transform())
	assert.Equal(t, uint8(0xF0), b.At(31, 0, Active))
	assert.Zero(t, b.At(0, 0, Active))

	b.SetTransform(geometry.Transform{})
	assert.Equal(t, uint8(0xF0), b.At(0, 0, Active))
}

func TestGamma(t *testing.T) {
	m := p10(t, 8)

	identity := GammaTable(1)
	for i, v := range identity {
		require.Equal(t, uint8(i), v)
	}

	gamma := GammaTable(2.2)
	assert.Equal(t, uint8(0), gamma[0])
	assert.Equal(t, uint8(255), gamma[255])
	assert.Less(t, gamma[128], uint8(128))

	for depth := 1; depth <= MaxDepth; depth++ {
		b, err := New(m, &Opts{Depth: depth, Gamma: gamma})
		require.NoError(t, err)
		for v := 0; v < 256; v++ {
			b.Set(0, 0, uint8(v), Active)
			got := b.At(0, 0, Active)
			// The reconstruction is approximate but quantizes to the same level.
			if b.Quantize(got) != b.Quantize(uint8(v)) {
				t.Fatalf("depth %d: At after Set(%d) = %d, quantized %d want %d",
					depth, v, got, b.Quantize(got), b.Quantize(uint8(v)))
			}
		}
	}

	b, err := New(m, &Opts{Depth: 4, Gamma: identity})
	require.NoError(t, err)
	b.Set(0, 0, 0x9F, Active)
	assert.Equal(t, uint8(0x90), b.At(0, 0, Active))
}

func TestCanvas(t *testing.T) {
	b, err := New(p10(t, 4), &Opts{Depth: 4, Double: true})
	require.NoError(t, err)

	c := b.Canvas(Inactive)
	var _ draw.Image = c
	assert.Equal(t, image.Rect(0, 0, 32, 16), c.Bounds())
	assert.Equal(t, color.GrayModel, c.ColorModel())

	draw.Draw(c, image.Rect(0, 0, 4, 4), image.NewUniform(color.White), image.Point{}, draw.Src)
	assert.Equal(t, color.Gray{Y: 0xF0}, c.GrayAt(3, 3))
	assert.Equal(t, color.Gray{}, c.At(4, 4))
	assert.Zero(t, b.At(0, 0, Active))

	// The selector follows swaps.
	b.Swap()
	assert.Equal(t, uint8(0xF0), b.At(0, 0, Active))
	assert.Equal(t, color.Gray{}, c.GrayAt(0, 0))

	c.Set(1, 1, color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF})
	assert.Equal(t, uint8(0x80), b.At(1, 1, Inactive))
}
