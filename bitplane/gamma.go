package bitplane

import "math"

// GammaTable returns a lookup table raising the normalized level to the power
// g. A g of 1 yields the identity; common LED corrections use 2.2 to 2.8.
func GammaTable(g float64) *[256]uint8 {
	var t [256]uint8
	for i := range t {
		t[i] = uint8(math.Round(255 * math.Pow(float64(i)/255, g)))
	}
	return &t
}
