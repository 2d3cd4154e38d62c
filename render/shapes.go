package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"product-customizer/geometry"

	"golang.org/x/image/vector"
)

// kappa places cubic Bézier control points so four segments approximate a
// circle.
const kappa = 0.5522847498

// shapeMask rasterizes the clip region of c at the given scale into an alpha
// mask the size of the output.
func shapeMask(c geometry.Clip, scale float64, size image.Point) *image.Alpha {
	z := vector.NewRasterizer(size.X, size.Y)
	if c.Shape == geometry.ShapeRound {
		center := c.Center().Mul(scale)
		circle(z, center, c.Radius()*scale)
	} else {
		polygon(z, []geometry.Point{
			{X: 0, Y: 0},
			{X: c.Width * scale, Y: 0},
			{X: c.Width * scale, Y: c.Height * scale},
			{X: 0, Y: c.Height * scale},
		})
	}
	mask := image.NewAlpha(image.Rect(0, 0, size.X, size.Y))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

func circle(z *vector.Rasterizer, c geometry.Point, r float64) {
	k := r * kappa
	x, y := float32(c.X), float32(c.Y)
	rf, kf := float32(r), float32(k)
	z.MoveTo(x+rf, y)
	z.CubeTo(x+rf, y+kf, x+kf, y+rf, x, y+rf)
	z.CubeTo(x-kf, y+rf, x-rf, y+kf, x-rf, y)
	z.CubeTo(x-rf, y-kf, x-kf, y-rf, x, y-rf)
	z.CubeTo(x+kf, y-rf, x+rf, y-kf, x+rf, y)
	z.ClosePath()
}

func polygon(z *vector.Rasterizer, pts []geometry.Point) {
	if len(pts) < 3 {
		return
	}
	z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X), float32(p.Y))
	}
	z.ClosePath()
}

// fillPolygon paints a closed polygon onto dst.
func fillPolygon(dst draw.Image, pts []geometry.Point, c color.Color) {
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	polygon(z, pts)
	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}

// fillCircle paints a disc onto dst.
func fillCircle(dst draw.Image, center geometry.Point, r float64, c color.Color) {
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	circle(z, center, r)
	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}

// strokeLine paints a segment of the given width as a quad.
func strokeLine(dst draw.Image, a, b geometry.Point, width float64, c color.Color) {
	d := b.Sub(a)
	l := math.Hypot(d.X, d.Y)
	if l == 0 {
		return
	}
	n := geometry.Pt(-d.Y/l, d.X/l).Mul(width / 2)
	fillPolygon(dst, []geometry.Point{a.Add(n), b.Add(n), b.Sub(n), a.Sub(n)}, c)
}

// strokePolygon outlines a closed polygon.
func strokePolygon(dst draw.Image, pts []geometry.Point, width float64, c color.Color) {
	for i := range pts {
		strokeLine(dst, pts[i], pts[(i+1)%len(pts)], width, c)
	}
}
