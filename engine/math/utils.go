package math

import (
	"github.com/chewxy/math32"
	"golang.org/x/exp/constraints"
)

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// Lerp interpolates between a and b for any float type.
func Lerp[T constraints.Float](a, b, t T) T {
	return a + (b-a)*t
}

func IsFinite(f float32) bool {
	return !math32.IsNaN(f) && !math32.IsInf(f, 0)
}

// ApproxEqual compares two floats with an absolute tolerance.
func ApproxEqual(a, b, tolerance float32) bool {
	return math32.Abs(a-b) <= tolerance
}

// Smoothstep is the cubic Hermite ramp between edge0 and edge1.
func Smoothstep(edge0, edge1, x float32) float32 {
	t := Clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}
