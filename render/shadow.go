package render

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/anthonynsimon/bild/blur"
)

// Drop shadow of the product shape.
const (
	ShadowBlur    = 20
	ShadowOpacity = 0.1
)

// drawShadow paints a soft black shadow of mask onto dst.
func drawShadow(dst draw.Image, mask *image.Alpha, scale float64) {
	shape := image.NewRGBA(mask.Bounds())
	draw.DrawMask(shape, shape.Bounds(), image.Black, image.Point{}, mask, image.Point{}, draw.Src)
	soft := blur.Gaussian(shape, ShadowBlur*scale)
	opacity := image.NewUniform(color.Alpha{A: uint8(ShadowOpacity*255 + 0.5)})
	draw.DrawMask(dst, dst.Bounds(), soft, image.Point{}, opacity, image.Point{}, draw.Over)
}
