package geometry

// Shape is the physical outline of a product.
type Shape string

const (
	ShapeRectangular Shape = "rectangular"
	ShapeRound       Shape = "round"
)

// Clip is the region of a width×height template in which item content is
// visible. A round clip is the circle centred in the box with radius
// width/2; a rectangular clip is the full box.
type Clip struct {
	Shape  Shape
	Width  float64
	Height float64
}

// Center returns the centre of the clip region.
func (c Clip) Center() Point {
	return Point{X: c.Width / 2, Y: c.Height / 2}
}

// Radius returns the circle radius of a round clip.
func (c Clip) Radius() float64 {
	return c.Width / 2
}

// Contains reports whether p is inside the clip region.
func (c Clip) Contains(p Point) bool {
	if c.Shape == ShapeRound {
		return p.Distance(c.Center()) <= c.Radius()
	}
	return Rect{W: c.Width, H: c.Height}.Contains(p)
}
