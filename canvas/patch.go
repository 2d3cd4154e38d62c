package canvas

import (
	"fmt"
	"math"
	"product-customizer/geometry"
)

// Patch is a partial set of item attributes. Nil fields are left untouched.
// Text fields only apply to text items, Width/Height only to image items.
type Patch struct {
	Position *geometry.Point `json:"position,omitempty"`
	Rotation *float64        `json:"rotation,omitempty"`
	Scale    *geometry.Scale `json:"scale,omitempty"`

	Content    *string `json:"content,omitempty"`
	FontSize   *int    `json:"fontSize,omitempty"`
	FillColor  *string `json:"fillColor,omitempty"`
	FontFamily *string `json:"fontFamily,omitempty"`

	Width  *int `json:"width,omitempty"`
	Height *int `json:"height,omitempty"`
}

// Empty reports whether the patch sets nothing.
func (p Patch) Empty() bool {
	return p == Patch{}
}

func (p Patch) hasText() bool {
	return p.Content != nil || p.FontSize != nil || p.FillColor != nil || p.FontFamily != nil
}

func (p Patch) hasImage() bool {
	return p.Width != nil || p.Height != nil
}

// apply merges p into it. On error it is returned unchanged.
func (p Patch) apply(it Item) (Item, error) {
	out := it

	if p.Position != nil {
		if !finite(p.Position.X) || !finite(p.Position.Y) {
			return it, fmt.Errorf("%w: position", ErrInvalidPatch)
		}
		out.Position = *p.Position
	}
	if p.Rotation != nil {
		if !finite(*p.Rotation) {
			return it, fmt.Errorf("%w: rotation", ErrInvalidPatch)
		}
		out.Rotation = *p.Rotation
	}
	if p.Scale != nil {
		if !p.Scale.Valid() {
			return it, fmt.Errorf("%w: scale must be in (0, %d]", ErrInvalidPatch, geometry.MaxScale)
		}
		out.Scale = *p.Scale
	}

	switch c := it.Content.(type) {
	case Text:
		if p.hasImage() {
			return it, fmt.Errorf("%w: width/height on %s item", ErrKindMismatch, KindText)
		}
		if p.Content != nil {
			c.Content = *p.Content
		}
		if p.FontSize != nil {
			c.FontSize = ClampFontSize(*p.FontSize)
		}
		if p.FillColor != nil {
			if _, err := ParseHexColor(*p.FillColor); err != nil {
				return it, err
			}
			c.Fill = *p.FillColor
		}
		if p.FontFamily != nil {
			if !KnownFont(*p.FontFamily) {
				return it, fmt.Errorf("%w: %q", ErrUnknownFont, *p.FontFamily)
			}
			c.FontFamily = *p.FontFamily
		}
		out.Content = c
	case Image:
		if p.hasText() {
			return it, fmt.Errorf("%w: text attributes on %s item", ErrKindMismatch, KindImage)
		}
		if p.Width != nil {
			if *p.Width <= 0 {
				return it, fmt.Errorf("%w: width must be positive", ErrInvalidPatch)
			}
			c.Width = *p.Width
		}
		if p.Height != nil {
			if *p.Height <= 0 {
				return it, fmt.Errorf("%w: height must be positive", ErrInvalidPatch)
			}
			c.Height = *p.Height
		}
		out.Content = c
	}

	return out, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
