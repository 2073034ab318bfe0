package hub12

import "time"

const (
	// DefaultShowTime is the illumination budget of one row over a full plane
	// cycle at maximum brightness.
	DefaultShowTime = 30 * time.Microsecond
	// MaxShowTime bounds the show time so PlaneTime never overflows.
	MaxShowTime = time.Second
)

// PlaneTime returns how long each row of plane p is lit when depth planes
// share show.
//
// Plane p weighs 2^p, so the planes of one cycle add up to show scaled by
// brightness/255, give or take a nanosecond per plane.
func PlaneTime(show time.Duration, p, depth int, brightness uint8) time.Duration {
	if show <= 0 || brightness == 0 || p < 0 || p >= depth {
		return 0
	}
	if show > MaxShowTime {
		show = MaxShowTime
	}
	weight := int64(1) << uint(p)
	total := int64(1)<<uint(depth) - 1
	t := int64(show) * weight / total
	return time.Duration(t * int64(brightness) / 255)
}
