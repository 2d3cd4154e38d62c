package canvas

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Font size bounds enforced on every text item.
const (
	MinFontSize = 12
	MaxFontSize = 120
)

// ClampFontSize forces a font size into [MinFontSize, MaxFontSize].
func ClampFontSize(size int) int {
	if size < MinFontSize {
		return MinFontSize
	}
	if size > MaxFontSize {
		return MaxFontSize
	}
	return size
}

// Font is an entry of the fixed font catalog. Family is the stored value,
// Name the label shown to customers.
type Font struct {
	Name   string `json:"name" yaml:"name"`
	Family string `json:"family" yaml:"family"`
}

// Fonts is the fixed font catalog.
var Fonts = []Font{
	{Name: "Default", Family: "Inter"},
	{Name: "Handwritten", Family: "Pacifico"},
	{Name: "Friendly", Family: "Quicksand"},
	{Name: "Serif", Family: "serif"},
	{Name: "Monospace", Family: "monospace"},
}

// KnownFont reports whether family is in the font catalog.
func KnownFont(family string) bool {
	for _, f := range Fonts {
		if f.Family == family {
			return true
		}
	}
	return false
}

// Palette is the set of fill colours offered for text.
var Palette = []string{
	"#000000", "#FFFFFF", "#EF4444", "#F97316", "#F59E0B",
	"#84CC16", "#10B981", "#06B6D4", "#3B82F6", "#6366F1",
	"#8B5CF6", "#EC4899", "#F43F5E",
}

// ParseHexColor parses #RGB, #RRGGBB or #RRGGBBAA.
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]}) + "ff"
	case 6:
		hex += "ff"
	case 8:
	default:
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
