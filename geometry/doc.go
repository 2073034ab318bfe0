// Package geometry maps logical pixel coordinates of a scanned LED matrix onto
// the byte and bit positions of its shift-register chains.
//
// A HUB12 panel (for example the common P10 32×16 module) has no frame memory.
// Its columns are driven by 8-bit shift registers and only 1/ScanRatio of its
// rows is lit at a time. The bytes shifted in for one scan step therefore hold
// several physical rows, and the first byte shifted in ends up at the far end
// of the chain. For a single 32×16 panel at 1/4 scan the register chain looks
// like this when seen from the front:
//
//	              3  7 11 15  <= data in
//	              2  6 10 14
//	              1  5  9 13
//	next panel <= 0  4  8 12
//
// and each register drives its eight LEDs in reverse order:
//
//	7 6 5 4 3 2 1 0
//
// # Topology
//
// A display is a grid of PanelsX × PanelsY identical panels. The panels are
// split into Lines independent chains, each one driving PanelsY/Lines panel
// rows. Inside a chain the panel rows are visited according to the chaining
// mode:
//
//	Linear      every panel row in the same orientation, top to bottom
//	ZigzagDown  serpentine, starting at the top; every second row is mounted
//	            upside down
//	ZigzagUp    serpentine, starting at the bottom; every second row is
//	            mounted upside down
//
// # Addressing
//
// Mapper precomputes a row offset table holding the plane-relative offset of
// the last byte of every (scan row, chain) slice. A pixel address is obtained by
// subtracting the pixel's position inside the chain from that entry.
//
//	m, err := geometry.New(geometry.Topology{
//		Width: 64, Height: 16, PanelsX: 2, PanelsY: 1,
//		ScanRatio: 4, Lines: 1,
//	}, geometry.Transform{})
//	if err != nil {
//		return err
//	}
//	if a, ok := m.Map(10, 3); ok {
//		plane[a.Offset] |= 1 << a.Bit
//	}
package geometry
