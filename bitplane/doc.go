// Package bitplane provides the bit-plane framebuffer of a scanned LED matrix.
//
// An 8-bit intensity is reduced to Depth bits and every bit is stored in its
// own plane. Plane 0 holds the least significant bit. Each plane is laid out
// exactly as it is shifted out: ScanRatio row groups, each holding one slice
// of LineSize bytes per chain.
//
//	plane 0 | row 0: line 0, line 1 ... | row 1: ... | ... | row S-1 |
//	plane 1 | ...
//	...
//	plane D-1 (MSB)
//
// A Buffer optionally keeps a second identical array. Selectors are relative:
// Active is the array being displayed, Inactive the one being drawn into, and
// Swap exchanges the two without moving data. With a single array every
// selector resolves to it.
//
// Example usage:
//
//	buf, err := bitplane.New(m, &bitplane.Opts{Depth: 4, Double: true})
//	if err != nil {
//		return err
//	}
//	buf.Set(3, 4, 200, bitplane.Inactive)
//	buf.Swap()
//	level := buf.At(3, 4, bitplane.Active) // 192
package bitplane
