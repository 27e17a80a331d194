// Package math provides the float32 vector types shared by the mesh codecs.
package math

import "github.com/chewxy/math32"

// Vec3 is a 3D vector.
type Vec3 struct {
	X, Y, Z float32
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Scale returns v * scalar.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product.
func (v Vec3) Dot(other Vec3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns the cross product.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X,
	}
}

// Length returns the magnitude.
func (v Vec3) Length() float32 {
	return math32.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalize returns a unit vector, or the zero vector for zero input.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

// Min returns the component-wise minimum.
func (v Vec3) Min(other Vec3) Vec3 {
	return Vec3{math32.Min(v.X, other.X), math32.Min(v.Y, other.Y), math32.Min(v.Z, other.Z)}
}

// Max returns the component-wise maximum.
func (v Vec3) Max(other Vec3) Vec3 {
	return Vec3{math32.Max(v.X, other.X), math32.Max(v.Y, other.Y), math32.Max(v.Z, other.Z)}
}

// MaxAbs returns the largest absolute component.
func (v Vec3) MaxAbs() float32 {
	return math32.Max(math32.Abs(v.X), math32.Max(math32.Abs(v.Y), math32.Abs(v.Z)))
}

// ApproxEqual reports whether every component differs by at most eps.
func (v Vec3) ApproxEqual(other Vec3, eps float32) bool {
	d := v.Sub(other)
	return math32.Abs(d.X) <= eps && math32.Abs(d.Y) <= eps && math32.Abs(d.Z) <= eps
}
