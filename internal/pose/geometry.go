package pose

import "math"

// AngleBetween returns the planar angle at vertex b formed by the rays to a
// and c, in degrees within [0, 180].
func AngleBetween(a, b, c Point) float64 {
	radians := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	angle := math.Abs(radians * 180.0 / math.Pi)
	if angle > 180.0 {
		angle = 360 - angle
	}
	return angle
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// Visible reports whether every landmark in indices exists, lies inside the
// image and has visibility strictly above threshold. An empty index list is
// never visible.
func Visible(f *Frame, indices []int, threshold float64) bool {
	if f == nil || len(indices) == 0 {
		return false
	}
	for _, idx := range indices {
		lm, ok := f.At(idx)
		if !ok || !lm.finite() || !lm.InFrame() {
			return false
		}
		if !(lm.Visibility > threshold) {
			return false
		}
	}
	return true
}
