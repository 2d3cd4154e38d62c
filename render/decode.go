package render

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"product-customizer/canvas"

	"github.com/anthonynsimon/bild/clone"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// decodeImage decodes the source of an image item into RGBA.
func decodeImage(img canvas.Image) (*image.RGBA, error) {
	decoded, _, err := image.Decode(bytes.NewReader(img.Source))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s image: %w", img.MIME, err)
	}
	// Paletted and YCbCr sources are converted once so the bilinear
	// transform stays on the RGBA path.
	if rgba, ok := decoded.(*image.RGBA); ok {
		return rgba, nil
	}
	return clone.AsRGBA(decoded), nil
}
