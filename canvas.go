package hub12

import (
	"image/color"

	"tinygo.org/x/drivers"
)

var _ drivers.Displayer = (*Canvas)(nil)

// Canvas adapts a Dev to the TinyGo displayer interface, so font and shape
// packages written against it can draw into the inactive buffer.
type Canvas struct {
	d *Dev
}

// Canvas returns a drivers.Displayer drawing into d.
func (d *Dev) Canvas() *Canvas {
	return &Canvas{d: d}
}

// Size returns the logical size of the display.
func (c *Canvas) Size() (x, y int16) {
	b := c.d.Bounds()
	return int16(b.Dx()), int16(b.Dy())
}

// SetPixel sets the pixel at (x, y) in the inactive buffer to the luminance
// of col.
func (c *Canvas) SetPixel(x, y int16, col color.RGBA) {
	g := color.GrayModel.Convert(col).(color.Gray)
	c.d.SetPixel(int(x), int(y), g.Y)
}

// Display swaps the buffers. The panels are refreshed by Dev.Display.
func (c *Canvas) Display() error {
	if c.d.halted {
		return errHalted
	}
	c.d.ShowBuffer()
	return nil
}
