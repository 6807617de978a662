// Package kinematics converts between gripper coordinates and arm joint angles.
package kinematics

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// Point is a gripper position in millimetres, relative to the arm base.
// Points are values; operations return new points.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// NewPoint returns the point (x, y, z).
func NewPoint(x, y, z float64) Point {
	return Point{X: x, Y: y, Z: z}
}

// Vector returns p as an r3 vector.
func (p Point) Vector() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return q.Vector().Sub(p.Vector()).Norm()
}

// Lerp returns the point a fraction t of the way from p to q.
func (p Point) Lerp(q Point, t float64) Point {
	v := p.Vector().Add(q.Vector().Sub(p.Vector()).Mul(t))
	return Point{X: v.X, Y: v.Y, Z: v.Z}
}

func (p Point) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", p.X, p.Y, p.Z)
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return a.Distance(b)
}
