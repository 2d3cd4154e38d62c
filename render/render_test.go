package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"product-customizer/canvas"
	"product-customizer/geometry"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	roundClip  = geometry.Clip{Shape: geometry.ShapeRound, Width: 500, Height: 500}
	squareClip = geometry.Clip{Shape: geometry.ShapeRectangular, Width: 600, Height: 600}
	red        = color.NRGBA{R: 255, A: 255}
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	fonts, err := NewFonts()
	require.NoError(t, err)
	return NewRenderer(fonts)
}

func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// overflowing returns an opaque red square larger than the template.
func overflowing(t *testing.T) canvas.Item {
	return canvas.Item{
		ID: "overflow",
		Transform: geometry.Transform{
			Position: geometry.Pt(-50, -50),
			Scale:    geometry.Identity,
		},
		Content: canvas.Image{Source: solidPNG(t, red), MIME: "image/png", Width: 600, Height: 600},
	}
}

func scene(t *testing.T, clip geometry.Clip, items ...canvas.Item) Scene {
	s, err := canvas.NewSequence(items...)
	require.NoError(t, err)
	return Scene{Clip: clip, Items: s}
}

func TestFlattenClipsToRoundShape(t *testing.T) {
	r := newRenderer(t)
	img, err := r.Flatten(scene(t, roundClip, overflowing(t)))
	require.NoError(t, err)

	require.Equal(t, image.Rect(0, 0, 1000, 1000), img.Bounds(), "flatten supersamples 2x")

	for _, p := range []image.Point{{0, 0}, {999, 0}, {0, 999}, {999, 999}, {40, 40}, {960, 60}} {
		assert.Zero(t, img.RGBAAt(p.X, p.Y).A, "pixel %v is outside the circle", p)
	}
	center := img.RGBAAt(500, 500)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, center)
	inside := img.RGBAAt(500, 20)
	assert.Equal(t, uint8(255), inside.A)
	assert.Equal(t, uint8(255), inside.R)
}

func TestFlattenRectangularBackground(t *testing.T) {
	r := newRenderer(t)
	img, err := r.Flatten(scene(t, squareClip))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 1200, 1200), img.Bounds())

	for _, p := range []image.Point{{0, 0}, {1199, 1199}, {600, 600}} {
		assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(p.X, p.Y), "pixel %v", p)
	}
}

func TestRoundBackgroundHasShadow(t *testing.T) {
	r := newRenderer(t)
	img, err := r.Render(scene(t, roundClip), 1, false)
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(250, 250))
	near := img.RGBAAt(250+180, 250+180)
	assert.NotZero(t, near.A, "shadow shows just outside the edge")
	assert.Less(t, near.A, uint8(64))
	far := img.RGBAAt(5, 5)
	assert.Zero(t, far.A)
}

func TestFlattenIsDeterministic(t *testing.T) {
	r := newRenderer(t)
	text := canvas.NewTextItem("txt", 500, 500)
	text.Rotation = 33
	s := scene(t, roundClip, overflowing(t), text)

	first, err := r.Flatten(s)
	require.NoError(t, err)
	second, err := r.Flatten(s)
	require.NoError(t, err)

	a, err := EncodePNG(first)
	require.NoError(t, err)
	b, err := EncodePNG(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFlattenSuppressesOverlay(t *testing.T) {
	r := newRenderer(t)
	s := scene(t, squareClip, canvas.NewTextItem("txt", 600, 600))

	plain, err := r.Flatten(s)
	require.NoError(t, err)
	s.Selection = canvas.Selected("txt")
	selected, err := r.Flatten(s)
	require.NoError(t, err)
	assert.Equal(t, plain.Pix, selected.Pix)

	live, err := r.Render(s, 1, true)
	require.NoError(t, err)
	bare, err := r.Render(s, 1, false)
	require.NoError(t, err)
	assert.NotEqual(t, live.Pix, bare.Pix, "overlay is drawn on live renders")
}

func TestTextIsDrawn(t *testing.T) {
	r := newRenderer(t)
	text := canvas.NewTextItem("txt", 600, 600)
	body := text.Content.(canvas.Text)
	body.Fill = "#EF4444"
	body.FontSize = 60
	text.Content = body

	img, err := r.Render(scene(t, squareClip, text), 1, false)
	require.NoError(t, err)

	box := text.Frame(r.Measurer()).Bounds()
	found := false
	for y := int(box.Y); y < int(box.Y+box.H) && !found; y++ {
		for x := int(box.X); x < int(box.X+box.W); x++ {
			c := img.RGBAAt(x, y)
			if c.R > 200 && c.G < 150 {
				found = true
				break
			}
		}
	}
	assert.True(t, found, "expected red glyph pixels inside the text box")
}

func TestFontsTextSize(t *testing.T) {
	fonts, err := NewFonts()
	require.NoError(t, err)

	short := fonts.TextSize(canvas.Text{Content: "Hi", FontSize: 24, FontFamily: "Inter"})
	long := fonts.TextSize(canvas.Text{Content: "Hello there", FontSize: 24, FontFamily: "Inter"})
	assert.Greater(t, long.W, short.W)
	assert.Equal(t, 24.0, short.H)

	two := fonts.TextSize(canvas.Text{Content: "a\nbb", FontSize: 30, FontFamily: "monospace"})
	assert.Equal(t, 60.0, two.H)

	empty := fonts.TextSize(canvas.Text{Content: "", FontSize: 30, FontFamily: "serif"})
	assert.Zero(t, empty.W)

	unknown := fonts.TextSize(canvas.Text{Content: "Hi", FontSize: 24, FontFamily: "Nope"})
	assert.Equal(t, short, unknown, "unknown families fall back to the default face")
}

func TestRasterizeTextStaysWithinLimit(t *testing.T) {
	fonts, err := NewFonts()
	require.NoError(t, err)

	const limit = 1000 * 1000
	text := canvas.Text{Content: "Your text", FontSize: 24, FontFamily: "Inter", Fill: "#000000"}
	img, density, err := fonts.rasterizeText(text, FlattenScale*geometry.MaxScale, limit)
	require.NoError(t, err)
	require.NotNil(t, img)

	b := img.Bounds()
	assert.LessOrEqual(t, b.Dx()*b.Dy(), limit+b.Dx()+b.Dy()+1)
	assert.Less(t, density, float64(FlattenScale*geometry.MaxScale))

	small, density, err := fonts.rasterizeText(text, 2, limit)
	require.NoError(t, err)
	assert.Equal(t, 2.0, density)
	assert.Equal(t, int(math.Ceil(fonts.TextSize(text).W*2)), small.Bounds().Dx())
}

func TestFlattenOversizedText(t *testing.T) {
	r := newRenderer(t)
	text := canvas.NewTextItem("txt", 500, 500)
	text.Scale = geometry.Scale{X: geometry.MaxScale, Y: geometry.MaxScale}

	img, err := r.Flatten(scene(t, roundClip, text))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1000, 1000), img.Bounds())
}

func TestRenderRejectsEmptyCanvas(t *testing.T) {
	r := newRenderer(t)
	_, err := r.Render(Scene{}, 1, false)
	assert.Error(t, err)
}
