package geometry

import "math"

// Affine is a 2x3 row-major affine matrix:
//
//	x' = A[0]*x + A[1]*y + A[2]
//	y' = A[3]*x + A[4]*y + A[5]
//
// The layout matches golang.org/x/image/math/f64.Aff3.
type Affine [6]float64

// IdentityAffine returns the identity transform.
func IdentityAffine() Affine {
	return Affine{1, 0, 0, 0, 1, 0}
}

// Translation returns a translation by (tx, ty).
func Translation(tx, ty float64) Affine {
	return Affine{1, 0, tx, 0, 1, ty}
}

// Scaling returns a scale by (sx, sy) about the origin.
func Scaling(sx, sy float64) Affine {
	return Affine{sx, 0, 0, 0, sy, 0}
}

// Rotation returns a clockwise rotation (y axis pointing down) by deg degrees.
func Rotation(deg float64) Affine {
	s, c := math.Sincos(radians(deg))
	return Affine{c, -s, 0, s, c, 0}
}

// Mul returns a·b, the transform that applies b first and then a.
func (a Affine) Mul(b Affine) Affine {
	return Affine{
		a[0]*b[0] + a[1]*b[3],
		a[0]*b[1] + a[1]*b[4],
		a[0]*b[2] + a[1]*b[5] + a[2],
		a[3]*b[0] + a[4]*b[3],
		a[3]*b[1] + a[4]*b[4],
		a[3]*b[2] + a[4]*b[5] + a[5],
	}
}

// Apply maps a point through the transform.
func (a Affine) Apply(p Point) Point {
	return Point{
		X: a[0]*p.X + a[1]*p.Y + a[2],
		Y: a[3]*p.X + a[4]*p.Y + a[5],
	}
}

// Invert returns the inverse transform. ok is false for singular matrices.
func (a Affine) Invert() (inv Affine, ok bool) {
	det := a[0]*a[4] - a[1]*a[3]
	if det == 0 || math.IsNaN(det) {
		return Affine{}, false
	}
	inv[0] = a[4] / det
	inv[1] = -a[1] / det
	inv[3] = -a[3] / det
	inv[4] = a[0] / det
	inv[2] = -(inv[0]*a[2] + inv[1]*a[5])
	inv[5] = -(inv[3]*a[2] + inv[4]*a[5])
	return inv, true
}
