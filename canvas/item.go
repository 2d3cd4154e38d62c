// Package canvas is the item model and manipulation engine of a design
// session: the ordered item sequence, the selection state machine, layer
// moves and the gesture command dispatcher.
package canvas

import (
	"fmt"
	"product-customizer/geometry"

	"github.com/google/uuid"
)

// Kind tags the active variant of an item.
type Kind int

const (
	KindText Kind = iota + 1
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

// ParseKind maps a serialized kind name back to its Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "text":
		return KindText, nil
	case "image":
		return KindImage, nil
	}
	return 0, fmt.Errorf("unknown item kind %q", s)
}

// Content is the variant-specific part of an item. It is implemented only by
// Text and Image; reading a variant means a type switch or assertion.
type Content interface {
	Kind() Kind
	isContent()
}

// Text is the content of a text item.
type Text struct {
	Content    string
	FontSize   int
	Fill       string
	FontFamily string
}

func (Text) Kind() Kind { return KindText }
func (Text) isContent() {}

// Image is the content of an image item. Source holds the encoded image
// bytes as uploaded; Width and Height are the authored box before scale.
type Image struct {
	Source []byte
	MIME   string
	Width  int
	Height int
}

func (Image) Kind() Kind { return KindImage }
func (Image) isContent() {}

// Item is a placed design element.
type Item struct {
	ID string
	geometry.Transform
	Content Content
}

// Kind returns the variant tag of the item.
func (it Item) Kind() Kind {
	if it.Content == nil {
		return 0
	}
	return it.Content.Kind()
}

// Text returns the text content, ok is false for other kinds.
func (it Item) Text() (Text, bool) {
	t, ok := it.Content.(Text)
	return t, ok
}

// Image returns the image content, ok is false for other kinds.
func (it Item) Image() (Image, bool) {
	img, ok := it.Content.(Image)
	return img, ok
}

// Frame returns the placement of the item together with its authored size.
func (it Item) Frame(m Measurer) geometry.Frame {
	var size geometry.Size
	switch c := it.Content.(type) {
	case Text:
		size = m.TextSize(c)
	case Image:
		size = geometry.Size{W: float64(c.Width), H: float64(c.Height)}
	}
	return geometry.Frame{Transform: it.Transform, Size: size}
}

// NewID returns a fresh item identifier.
func NewID() string {
	return uuid.NewString()
}

// Editor defaults.
const (
	DefaultText       = "Your text"
	DefaultFontSize   = 24
	DefaultFill       = "#000000"
	DefaultFontFamily = "Inter"

	// The default text box is estimated rather than measured so that the
	// initial placement does not depend on font metrics.
	defaultTextWidth  = 110
	defaultTextHeight = 24

	DefaultImageSize = 200
)

// NewTextItem returns the default text item centred on a width×height
// template.
func NewTextItem(id string, width, height int) Item {
	return Item{
		ID: id,
		Transform: geometry.Transform{
			Position: geometry.Pt(float64(width)/2-defaultTextWidth/2, float64(height)/2-defaultTextHeight/2),
			Scale:    geometry.Identity,
		},
		Content: Text{
			Content:    DefaultText,
			FontSize:   DefaultFontSize,
			Fill:       DefaultFill,
			FontFamily: DefaultFontFamily,
		},
	}
}

// Measurer reports the authored (unscaled) box of a text item.
type Measurer interface {
	TextSize(t Text) geometry.Size
}

// Estimate is a font-independent Measurer: half an em per rune, one em per
// line.
type Estimate struct{}

// TextSize implements Measurer.
func (Estimate) TextSize(t Text) geometry.Size {
	lines, widest, current := 1, 0, 0
	for _, r := range t.Content {
		if r == '\n' {
			lines++
			current = 0
			continue
		}
		current++
		if current > widest {
			widest = current
		}
	}
	em := float64(t.FontSize)
	return geometry.Size{W: float64(widest) * em * 0.51, H: float64(lines) * em}
}
