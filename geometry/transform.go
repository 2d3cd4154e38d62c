package geometry

import (
	"errors"
	"math"
)

// MinBoxSize is the smallest width or height, in template pixels, a resize
// gesture may produce.
const MinBoxSize = 5

// ErrDegenerateTransform is returned when a resize would shrink an item below
// MinBoxSize on either axis or grow it past MaxScale. The caller keeps the
// previous geometry.
var ErrDegenerateTransform = errors.New("degenerate resize")

// Transform is the mutable placement of an item: top-left position, rotation
// in degrees about that position, and scale relative to the authored size.
type Transform struct {
	Position Point   `json:"position"`
	Rotation float64 `json:"rotation"`
	Scale    Scale   `json:"scale"`
}

// Frame couples a transform with the authored (unscaled) size of the item it
// places.
type Frame struct {
	Transform
	Size Size
}

// Matrix maps authored local coordinates into template space.
func (f Frame) Matrix() Affine {
	return Translation(f.Position.X, f.Position.Y).
		Mul(Rotation(f.Rotation)).
		Mul(Scaling(f.Scale.X, f.Scale.Y))
}

// local maps scaled-but-unrotated box coordinates into template space.
func (f Frame) local() Affine {
	return Translation(f.Position.X, f.Position.Y).Mul(Rotation(f.Rotation))
}

// Box returns the on-screen size of the item after scaling.
func (f Frame) Box() Size {
	return Size{W: f.Size.W * f.Scale.X, H: f.Size.H * f.Scale.Y}
}

// Center returns the centre of the item in template space.
func (f Frame) Center() Point {
	b := f.Box()
	return f.local().Apply(Point{X: b.W / 2, Y: b.H / 2})
}

// Corners returns top-left, top-right, bottom-right, bottom-left in template
// space.
func (f Frame) Corners() [4]Point {
	b := f.Box()
	m := f.local()
	return [4]Point{
		m.Apply(Point{}),
		m.Apply(Point{X: b.W}),
		m.Apply(Point{X: b.W, Y: b.H}),
		m.Apply(Point{Y: b.H}),
	}
}

// Bounds returns the axis-aligned rectangle enclosing the rotated item.
func (f Frame) Bounds() Rect {
	c := f.Corners()
	minX, minY := c[0].X, c[0].Y
	maxX, maxY := minX, minY
	for _, p := range c[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Contains reports whether p lies on the rotated item.
func (f Frame) Contains(p Point) bool {
	inv, ok := f.local().Invert()
	if !ok {
		return false
	}
	q := inv.Apply(p)
	b := f.Box()
	return q.X >= 0 && q.X <= b.W && q.Y >= 0 && q.Y <= b.H
}

// Box is the result of a resize gesture: the new rotated top-left corner
// and the new on-screen dimensions. Rotation is not part of a resize.
type Box struct {
	Origin Point   `json:"origin"`
	W      float64 `json:"width"`
	H      float64 `json:"height"`
}

// Drag moves the item by delta. Rotation and scale are unchanged.
func Drag(t Transform, delta Point) Transform {
	t.Position = t.Position.Add(delta)
	return t
}

// Resize applies a new bounding box to an item of the given authored size.
// Boxes narrower or shorter than MinBoxSize, or ones that would need a scale
// beyond MaxScale, are rejected and t is returned unchanged together with
// ErrDegenerateTransform.
func Resize(t Transform, authored Size, box Box) (Transform, error) {
	if box.W < MinBoxSize || box.H < MinBoxSize || authored.W <= 0 || authored.H <= 0 {
		return t, ErrDegenerateTransform
	}
	if math.IsNaN(box.W) || math.IsNaN(box.H) || math.IsInf(box.W, 0) || math.IsInf(box.H, 0) {
		return t, ErrDegenerateTransform
	}
	scale := Scale{X: box.W / authored.W, Y: box.H / authored.H}
	if !scale.Valid() {
		return t, ErrDegenerateTransform
	}
	t.Position = box.Origin
	t.Scale = scale
	return t, nil
}

// Rotate sets the rotation to the angle between the item's centre and the
// rotation handle position; 0° is the handle straight above the centre. The
// position is adjusted so the centre stays where it was.
func Rotate(f Frame, handle Point) Transform {
	c := f.Center()
	v := handle.Sub(c)
	if v.X == 0 && v.Y == 0 {
		return f.Transform
	}
	t := f.Transform
	t.Rotation = degrees(math.Atan2(v.X, -v.Y))
	b := f.Box()
	half := Rotation(t.Rotation).Apply(Point{X: b.W / 2, Y: b.H / 2})
	t.Position = c.Sub(half)
	return t
}

// ResizeFromHandle computes the box produced by dragging handle h to p. The
// opposite edge (or corner) stays fixed. Corner handles keep the aspect
// ratio. The returned box may be degenerate; pass it to Resize to validate.
func ResizeFromHandle(f Frame, h Handle, p Point) Box {
	m := f.local()
	inv, ok := m.Invert()
	b := f.Box()
	if !ok {
		return Box{Origin: f.Position, W: b.W, H: b.H}
	}
	q := inv.Apply(p)
	x0, y0, x1, y1 := 0.0, 0.0, b.W, b.H

	if h.corner() {
		// Fixed corner F, grabbed corner F+d; project the pointer onto d.
		fx, fy := b.W, b.H
		dx, dy := -b.W, -b.H
		if h == HandleTopRight || h == HandleBottomRight {
			fx, dx = 0, b.W
		}
		if h == HandleBottomLeft || h == HandleBottomRight {
			fy, dy = 0, b.H
		}
		k := ((q.X-fx)*dx + (q.Y-fy)*dy) / (dx*dx + dy*dy)
		gx, gy := fx+dx*k, fy+dy*k
		x0, x1 = math.Min(fx, gx), math.Max(fx, gx)
		y0, y1 = math.Min(fy, gy), math.Max(fy, gy)
		if k < 0 {
			// Dragged through the fixed corner: report a flipped box.
			x1, y1 = x0-(x1-x0), y0-(y1-y0)
		}
	} else {
		switch h {
		case HandleMiddleLeft:
			x0 = q.X
		case HandleMiddleRight:
			x1 = q.X
		case HandleTopCenter:
			y0 = q.Y
		case HandleBottomCenter:
			y1 = q.Y
		}
	}

	return Box{Origin: m.Apply(Point{X: x0, Y: y0}), W: x1 - x0, H: y1 - y0}
}
