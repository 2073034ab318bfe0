package bitplane

import (
	"image"
	"image/color"
)

// Canvas is a draw.Image view of one array of a Buffer, in logical
// coordinates. Colors are reduced to their luminance.
type Canvas struct {
	b   *Buffer
	sel Selector
}

// Canvas returns a draw.Image drawing into the selected array. The selector is
// resolved on every access, so a Canvas on Inactive follows swaps.
func (b *Buffer) Canvas(sel Selector) *Canvas {
	return &Canvas{b: b, sel: sel}
}

// ColorModel returns color.GrayModel.
func (c *Canvas) ColorModel() color.Model {
	return color.GrayModel
}

// Bounds returns the logical bounds of the display.
func (c *Canvas) Bounds() image.Rectangle {
	return c.b.m.Bounds()
}

// At returns the color of the pixel at (x, y).
func (c *Canvas) At(x, y int) color.Color {
	return c.GrayAt(x, y)
}

// GrayAt returns the gray level of the pixel at (x, y).
func (c *Canvas) GrayAt(x, y int) color.Gray {
	return color.Gray{Y: c.b.At(x, y, c.sel)}
}

// Set sets the pixel at (x, y) to the luminance of col.
func (c *Canvas) Set(x, y int, col color.Color) {
	c.SetGray(x, y, color.GrayModel.Convert(col).(color.Gray))
}

// SetGray sets the gray level of the pixel at (x, y). It skips the color
// conversion done by Set.
func (c *Canvas) SetGray(x, y int, g color.Gray) {
	c.b.Set(x, y, g.Y, c.sel)
}
