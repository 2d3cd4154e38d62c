package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"product-customizer/canvas"
	"product-customizer/geometry"
	"strings"

	"github.com/go-fonts/latin-modern/lmroman10regular"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// LineHeight is the line box height as a multiple of the font size.
const LineHeight = 1.0

// familyFaces maps catalog families onto the embedded fonts that stand in
// for them on the server.
var familyFaces = map[string][]byte{
	"Inter":     goregular.TTF,
	"Pacifico":  goitalic.TTF,
	"Quicksand": gomedium.TTF,
	"serif":     lmroman10regular.TTF,
	"monospace": gomono.TTF,
}

// Fonts resolves font families to parsed fonts. It implements
// canvas.Measurer. Parsed fonts are shared; faces are created per call since
// opentype faces are not safe for concurrent use.
type Fonts struct {
	fonts    map[string]*opentype.Font
	fallback *opentype.Font
}

// NewFonts parses the embedded fonts.
func NewFonts() (*Fonts, error) {
	f := &Fonts{fonts: make(map[string]*opentype.Font, len(familyFaces))}
	for family, ttf := range familyFaces {
		parsed, err := opentype.Parse(ttf)
		if err != nil {
			return nil, fmt.Errorf("failed to parse font for %s: %w", family, err)
		}
		f.fonts[family] = parsed
	}
	f.fallback = f.fonts[canvas.DefaultFontFamily]
	return f, nil
}

func (f *Fonts) face(family string, size float64) (font.Face, error) {
	parsed, ok := f.fonts[family]
	if !ok {
		parsed = f.fallback
	}
	return opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// TextSize implements canvas.Measurer: the widest line by the family's
// advances, and one line box per line.
func (f *Fonts) TextSize(t canvas.Text) geometry.Size {
	lines := strings.Split(t.Content, "\n")
	size := float64(t.FontSize)
	h := float64(len(lines)) * size * LineHeight

	face, err := f.face(t.FontFamily, size)
	if err != nil {
		return canvas.Estimate{}.TextSize(t)
	}
	defer face.Close()

	var w fixed.Int26_6
	for _, line := range lines {
		if adv := font.MeasureString(face, line); adv > w {
			w = adv
		}
	}
	return geometry.Size{W: fromFixed(w), H: h}
}

// rasterizeText draws t into a transparent image covering the authored text
// box. It aims for density pixels per template pixel but lowers the density
// so the image stays within maxPixels, and returns the density it used.
func (f *Fonts) rasterizeText(t canvas.Text, density float64, maxPixels int) (*image.RGBA, float64, error) {
	box := f.TextSize(t)
	if area := box.W * density * box.H * density; area > float64(maxPixels) {
		density *= math.Sqrt(float64(maxPixels) / area)
	}
	w, h := int(math.Ceil(box.W*density)), int(math.Ceil(box.H*density))
	if w <= 0 || h <= 0 {
		return nil, density, nil
	}
	fill, err := canvas.ParseHexColor(t.Fill)
	if err != nil {
		fill = color.NRGBA{A: 255}
	}

	face, err := f.face(t.FontFamily, float64(t.FontSize)*density)
	if err != nil {
		return nil, density, fmt.Errorf("failed to create face for %s: %w", t.FontFamily, err)
	}
	defer face.Close()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	m := face.Metrics()
	lineBox := float64(t.FontSize) * LineHeight * density
	// Centre the ascent+descent band in each line box.
	baseline := (lineBox + fromFixed(m.Ascent) - fromFixed(m.Descent)) / 2

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fill),
		Face: face,
	}
	for i, line := range strings.Split(t.Content, "\n") {
		d.Dot = fixed.Point26_6{
			X: 0,
			Y: fixed.Int26_6(math.Round((float64(i)*lineBox + baseline) * 64)),
		}
		d.DrawString(line)
	}
	return img, density, nil
}

func fromFixed(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
