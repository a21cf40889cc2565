package native

import "math"

// Point is a position in the plane.
type Point struct {
	X, Y float64
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// Translate moves p by (dx, dy).
func (p *Point) Translate(dx, dy float64) {
	p.X += dx
	p.Y += dy
}
