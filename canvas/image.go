package canvas

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"product-customizer/geometry"
	"strings"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaxImageBytes bounds the size of an uploaded image.
const MaxImageBytes = 10 << 20

// MaxImageDimension bounds the decoded width and height of an uploaded image.
const MaxImageDimension = 8192

// SniffImage checks that raw holds a decodable image and returns its MIME
// type and pixel dimensions.
func SniffImage(raw []byte) (mime string, width, height int, err error) {
	if len(raw) == 0 {
		return "", 0, 0, fmt.Errorf("%w: empty upload", ErrUnsupportedImage)
	}
	if len(raw) > MaxImageBytes {
		return "", 0, 0, fmt.Errorf("%w: %d bytes exceeds limit", ErrUnsupportedImage, len(raw))
	}
	if !filetype.IsImage(raw) {
		return "", 0, 0, fmt.Errorf("%w: not an image", ErrUnsupportedImage)
	}
	kind, err := filetype.Match(raw)
	if err != nil || kind == filetype.Unknown {
		return "", 0, 0, fmt.Errorf("%w: unknown format", ErrUnsupportedImage)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: %s: %v", ErrUnsupportedImage, kind.MIME.Value, err)
	}
	if cfg.Width > MaxImageDimension || cfg.Height > MaxImageDimension {
		return "", 0, 0, fmt.Errorf("%w: %dx%d exceeds %d pixels per side", ErrUnsupportedImage, cfg.Width, cfg.Height, MaxImageDimension)
	}
	return kind.MIME.Value, cfg.Width, cfg.Height, nil
}

// NewImageItem returns an image item for the uploaded bytes, sized to the
// default box and centred on a width×height template.
func NewImageItem(id string, raw []byte, width, height int) (Item, error) {
	mime, _, _, err := SniffImage(raw)
	if err != nil {
		return Item{}, err
	}
	src := make([]byte, len(raw))
	copy(src, raw)
	return Item{
		ID: id,
		Transform: geometry.Transform{
			Position: geometry.Pt(float64(width)/2-DefaultImageSize/2, float64(height)/2-DefaultImageSize/2),
			Scale:    geometry.Identity,
		},
		Content: Image{
			Source: src,
			MIME:   mime,
			Width:  DefaultImageSize,
			Height: DefaultImageSize,
		},
	}, nil
}

// DataURL encodes the image source as a data: URL.
func (img Image) DataURL() string {
	return "data:" + img.MIME + ";base64," + base64.StdEncoding.EncodeToString(img.Source)
}

// parseDataURL decodes a base64 data: URL. The MIME type is re-sniffed from
// the bytes when the URL does not carry one.
func parseDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: sourceData is not a data URL", ErrUnsupportedImage)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: malformed data URL", ErrUnsupportedImage)
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("%w: data URL must be base64", ErrUnsupportedImage)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if mime == "" {
		if kind, err := filetype.Match(raw); err == nil && kind != filetype.Unknown {
			mime = kind.MIME.Value
		}
	}
	return mime, raw, nil
}
