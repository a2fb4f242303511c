package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is the vector type used across the host boundary.
// Local frames are right handed with the bow along +Z, starboard along +X
// and the deck along +Y.
type Vec3 = mgl64.Vec3

// Axes of the local frame.
var (
	AxisX = Vec3{1, 0, 0}
	AxisY = Vec3{0, 1, 0}
	AxisZ = Vec3{0, 0, 1}
)

// Normalize returns v scaled to unit length, or the zero vector when v has
// no length.
func Normalize(v Vec3) Vec3 {
	l := v.Len()
	if l == 0 {
		return Vec3{}
	}
	return v.Mul(1 / l)
}

// AngleBetween returns the angle between a and b in degrees.
// Zero-length inputs yield 0.
func AngleBetween(a, b Vec3) float64 {
	la, lb := a.Len(), b.Len()
	if la == 0 || lb == 0 {
		return 0
	}
	c := a.Dot(b) / (la * lb)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return mgl64.RadToDeg(math.Acos(c))
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return mgl64.Clamp(v, lo, hi)
}
