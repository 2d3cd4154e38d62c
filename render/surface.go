// Package render rasterizes a design onto its product template: the
// background shape with its drop shadow, the items in z-order clipped to the
// shape, and optionally the selection overlay.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"product-customizer/canvas"
	"product-customizer/geometry"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// FlattenScale is the supersampling factor of exported previews.
const FlattenScale = 2

// Selection overlay styling, in template pixels.
const (
	borderWidth   = 1
	handleSize    = 10
	rotaterRadius = 6
)

var overlayStroke = color.NRGBA{R: 0x00, G: 0xA1, B: 0xFF, A: 0xFF}

// Scene is everything a frame depends on.
type Scene struct {
	Clip      geometry.Clip
	Items     canvas.Sequence
	Selection canvas.Selection
}

// Renderer draws scenes. It is safe for concurrent use.
type Renderer struct {
	fonts *Fonts
}

// NewRenderer returns a renderer that draws text with fonts.
func NewRenderer(fonts *Fonts) *Renderer {
	return &Renderer{fonts: fonts}
}

// Measurer returns the text measurer matching what the renderer draws.
func (r *Renderer) Measurer() canvas.Measurer {
	return r.fonts
}

// Flatten renders the scene for export: FlattenScale supersampling and no
// selection overlay.
func (r *Renderer) Flatten(s Scene) (*image.RGBA, error) {
	s.Selection = canvas.Selection{}
	return r.Render(s, FlattenScale, false)
}

// Render draws the scene with scale output pixels per template pixel.
// Pixels outside the product shape stay transparent apart from its shadow.
func (r *Renderer) Render(s Scene, scale float64, overlay bool) (*image.RGBA, error) {
	if scale <= 0 || s.Clip.Width <= 0 || s.Clip.Height <= 0 {
		return nil, fmt.Errorf("invalid render size %gx%g at scale %g", s.Clip.Width, s.Clip.Height, scale)
	}
	size := image.Pt(int(math.Ceil(s.Clip.Width*scale)), int(math.Ceil(s.Clip.Height*scale)))
	dst := image.NewRGBA(image.Rectangle{Max: size})
	mask := shapeMask(s.Clip, scale, size)

	drawShadow(dst, mask, scale)
	draw.DrawMask(dst, dst.Bounds(), image.White, image.Point{}, mask, image.Point{}, draw.Over)

	view := geometry.Scaling(scale, scale)
	for _, it := range s.Items.Items() {
		if err := r.drawItem(dst, view, scale, it, mask); err != nil {
			return nil, fmt.Errorf("item %s: %w", it.ID, err)
		}
	}

	if overlay {
		if id, ok := s.Selection.ID(); ok {
			if it, ok := s.Items.Get(id); ok {
				drawOverlay(dst, view, scale, it.Frame(r.fonts))
			}
		}
	}
	return dst, nil
}

func (r *Renderer) drawItem(dst *image.RGBA, view geometry.Affine, scale float64, it canvas.Item, clip *image.Alpha) error {
	frame := it.Frame(r.fonts)
	var (
		src      *image.RGBA
		srcToBox geometry.Affine
	)
	switch c := it.Content.(type) {
	case canvas.Text:
		want := scale * math.Max(it.Scale.X, it.Scale.Y)
		img, density, err := r.fonts.rasterizeText(c, want, dst.Bounds().Dx()*dst.Bounds().Dy())
		if err != nil {
			return err
		}
		if img == nil {
			return nil
		}
		src, srcToBox = img, geometry.Scaling(1/density, 1/density)
	case canvas.Image:
		img, err := decodeImage(c)
		if err != nil {
			return err
		}
		b := img.Bounds()
		if b.Empty() {
			return nil
		}
		src = img
		srcToBox = geometry.Scaling(frame.Size.W/float64(b.Dx()), frame.Size.H/float64(b.Dy())).
			Mul(geometry.Translation(-float64(b.Min.X), -float64(b.Min.Y)))
	default:
		return nil
	}

	m := view.Mul(frame.Matrix()).Mul(srcToBox)
	xdraw.BiLinear.Transform(dst, f64.Aff3(m), src, src.Bounds(), xdraw.Over, &xdraw.Options{
		DstMask: clip,
	})
	return nil
}

func drawOverlay(dst *image.RGBA, view geometry.Affine, scale float64, f geometry.Frame) {
	corners := f.Corners()
	pts := make([]geometry.Point, len(corners))
	for i, c := range corners {
		pts[i] = view.Apply(c)
	}
	stroke := borderWidth * scale
	strokePolygon(dst, pts, stroke, overlayStroke)

	top := view.Apply(f.HandlePosition(geometry.HandleTopCenter))
	rot := view.Apply(f.HandlePosition(geometry.HandleRotater))
	strokeLine(dst, top, rot, stroke, overlayStroke)
	fillCircle(dst, rot, rotaterRadius*scale, overlayStroke)
	fillCircle(dst, rot, rotaterRadius*scale-stroke, color.White)

	half := handleSize * scale / 2
	for _, h := range geometry.ResizeHandles {
		p := view.Apply(f.HandlePosition(h))
		square := []geometry.Point{
			p.Add(geometry.Pt(-half, -half)),
			p.Add(geometry.Pt(half, -half)),
			p.Add(geometry.Pt(half, half)),
			p.Add(geometry.Pt(-half, half)),
		}
		fillPolygon(dst, square, color.White)
		strokePolygon(dst, square, stroke, overlayStroke)
	}
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
