// Package hub12 drives scanned monochrome LED matrix panels with a HUB12
// interface, such as the common P10 32×16 modules.
//
// These panels have no frame memory. Columns are fed by chained 8-bit shift
// registers and only 1/ScanRatio of the rows is lit at a time, selected by up
// to five multiplexer address lines. The host keeps the picture alive by
// streaming every scan row over and over. Grayscale is produced with bit-angle
// modulation: each bit of the pixel level lives in its own plane and a plane
// is lit for a time proportional to its weight.
//
// This driver implements the display.Drawer interface from periph.io.
//
// # Hardware Connection
//
//	Panel Pin → System Pin
//	GND       → GND
//	R (DATA)  → SPI Data (MOSI)
//	CLK       → SPI Clock (SCLK)
//	OE        → GPIO (output enable, active low)
//	STB (LAT) → GPIO (latch)
//	A, B      → GPIO (row address; C, D, E for 1/8 to 1/32 scan)
//
// Panels draw a lot of current. Power them separately and share ground with
// the host.
//
// # Basic Usage
//
//	package main
//
//	import (
//		"github.com/flavioheleno/hub12"
//		"periph.io/x/conn/v3/gpio"
//		"periph.io/x/conn/v3/gpio/gpioreg"
//		"periph.io/x/conn/v3/spi/spireg"
//		"periph.io/x/host/v3"
//	)
//
//	func main() {
//		host.Init()
//		port, _ := spireg.Open("")
//		dev, _ := hub12.NewSPI(port, &hub12.Pins{
//			OE:    gpioreg.ByName("GPIO22"),
//			Latch: []gpio.PinOut{gpioreg.ByName("GPIO27")},
//			Addr:  [5]gpio.PinOut{gpioreg.ByName("GPIO23"), gpioreg.ByName("GPIO24")},
//		}, &hub12.Opts{W: 32, H: 16, ScanRatio: 4, DoubleBuffer: true})
//		defer dev.Halt()
//
//		for x := 0; x < 32; x++ {
//			dev.SetPixel(x, 8, uint8(x*8))
//		}
//		dev.ShowBuffer()
//		for {
//			dev.Display()
//		}
//	}
//
// # Refresh
//
// Display shows one plane of the active buffer and advances to the next one,
// so Depth calls make a complete frame. Each call lights every row for
// PlaneTime(ShowTime, plane, Depth, brightness) and spins while it waits.
// Call it from a tight loop; anything slow in between shows up as flicker.
//
// With FastUpdate set and brightness at 255, the next row is shifted in while
// the current one is lit, which roughly doubles the refresh rate.
//
// # Double Buffering
//
// With DoubleBuffer set, SetPixel, Draw and Canvas draw into the inactive
// buffer while Display reads the active one. ShowBuffer swaps them between
// Display calls. CopyBuffer seeds the new drawing buffer from the frame on
// screen. Without it every selector refers to the same buffer.
//
// # Drawing
//
// Levels range from 0 (off) to 255 and are truncated to Depth bits. Draw
// accepts any image.Image and reduces it to luminance. Canvas adapts the
// device to TinyGo's drivers.Displayer so tinyfont and tinydraw can render
// into it.
package hub12
