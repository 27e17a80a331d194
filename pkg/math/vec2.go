package math

import "github.com/chewxy/math32"

// Vec2 is a 2D vector, used for texture coordinates.
type Vec2 struct {
	X, Y float32
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{v.X + other.X, v.Y + other.Y}
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{v.X - other.X, v.Y - other.Y}
}

// Cross returns the z component of the 2D cross product, the signed
// parallelogram area spanned by v and other.
func (v Vec2) Cross(other Vec2) float32 {
	return v.X*other.Y - v.Y*other.X
}

// ApproxEqual reports whether both components differ by at most eps.
func (v Vec2) ApproxEqual(other Vec2, eps float32) bool {
	return math32.Abs(v.X-other.X) <= eps && math32.Abs(v.Y-other.Y) <= eps
}
