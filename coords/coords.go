// Package coords holds the affine matrices used to place text on a page.
package coords

import (
	"errors"
	"math"
)

// ErrSingular reports a matrix without an inverse.
var ErrSingular = errors.New("coords: matrix singular")

// Matrix is a PDF transformation matrix [a b c d e f].
type Matrix [6]float64

func Identity() Matrix { return Matrix{1, 0, 0, 1, 0, 0} }

func Translate(tx, ty float64) Matrix { return Matrix{1, 0, 0, 1, tx, ty} }

func Scale(sx, sy float64) Matrix { return Matrix{sx, 0, 0, sy, 0, 0} }

// Rotate returns a counter-clockwise rotation by angle radians.
func Rotate(angle float64) Matrix {
	c, s := math.Cos(angle), math.Sin(angle)
	return Matrix{c, s, -s, c, 0, 0}
}

// Multiply returns m followed by o.
func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[1]*o[2],
		m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2],
		m[2]*o[1] + m[3]*o[3],
		m[4]*o[0] + m[5]*o[2] + o[4],
		m[4]*o[1] + m[5]*o[3] + o[5],
	}
}

// Point is a position in user space.
type Point struct{ X, Y float64 }

func (m Matrix) Transform(p Point) Point {
	return Point{X: m[0]*p.X + m[2]*p.Y + m[4], Y: m[1]*p.X + m[3]*p.Y + m[5]}
}

func (m Matrix) Inverse() (Matrix, error) {
	det := m[0]*m[3] - m[1]*m[2]
	if math.Abs(det) < 1e-10 {
		return Matrix{}, ErrSingular
	}
	return Matrix{
		m[3] / det, -m[1] / det,
		-m[2] / det, m[0] / det,
		(m[2]*m[5] - m[3]*m[4]) / det,
		(m[1]*m[4] - m[0]*m[5]) / det,
	}, nil
}

// VerticalScale is the length of the transformed unit y vector. Applied to a
// text matrix it gives the effective font size multiplier.
func (m Matrix) VerticalScale() float64 { return math.Hypot(m[2], m[3]) }

// HorizontalScale is the length of the transformed unit x vector.
func (m Matrix) HorizontalScale() float64 { return math.Hypot(m[0], m[1]) }

// Origin returns the translation part of m.
func (m Matrix) Origin() Point { return Point{X: m[4], Y: m[5]} }

// Operands returns m as the six operands of a cm or Tm operator.
func (m Matrix) Operands() []float64 { return m[:] }
