// Package physics provides distance helpers and a spatial index for a
// wrapping world.
package physics

import "math"

// Distance calculates the Euclidean distance between two points.
func Distance(x1, y1, x2, y2 float64) float64 {
	return math.Sqrt(DistanceSquared(x1, y1, x2, y2))
}

// DistanceSquared calculates the squared distance between two points.
// Use this when comparing distances to avoid the sqrt cost.
func DistanceSquared(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return dx*dx + dy*dy
}

// WrapDelta returns the shortest signed offset from a to b on an axis of
// length size that wraps around.
func WrapDelta(a, b, size float64) float64 {
	d := b - a
	if size <= 0 {
		return d
	}
	half := size / 2
	if d > half {
		d -= size
	} else if d < -half {
		d += size
	}
	return d
}

// WrappedDistanceSquared is DistanceSquared in a w by h world whose edges
// wrap.
func WrappedDistanceSquared(x1, y1, x2, y2, w, h float64) float64 {
	dx := WrapDelta(x1, x2, w)
	dy := WrapDelta(y1, y2, h)
	return dx*dx + dy*dy
}

// Wrap folds v into [0, size).
func Wrap(v, size float64) float64 {
	if size <= 0 {
		return v
	}
	v = math.Mod(v, size)
	if v < 0 {
		v += size
	}
	return v
}
