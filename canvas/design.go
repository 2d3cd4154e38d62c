package canvas

import (
	"encoding/json"
	"fmt"
	"product-customizer/geometry"

	"github.com/vmihailenco/msgpack/v5"
)

// Design is the exported record of a finished customization. Items keep
// their z-order.
type Design struct {
	Items        []Item  `json:"items" msgpack:"items"`
	CanvasWidth  int     `json:"canvasWidth" msgpack:"canvasWidth"`
	CanvasHeight int     `json:"canvasHeight" msgpack:"canvasHeight"`
	Background   *string `json:"background" msgpack:"background"`
}

// NewDesign snapshots a sequence on a width×height canvas.
func NewDesign(items Sequence, width, height int) Design {
	return Design{
		Items:        items.Items(),
		CanvasWidth:  width,
		CanvasHeight: height,
	}
}

// Sequence rebuilds the item sequence of the design.
func (d Design) Sequence() (Sequence, error) {
	return NewSequence(d.Items...)
}

// itemRecord is the serialized layout of an item. Only the fields of the
// item's kind are set.
type itemRecord struct {
	ID       string         `json:"id" msgpack:"id"`
	Kind     string         `json:"kind" msgpack:"kind"`
	Position geometry.Point `json:"position" msgpack:"position"`
	Rotation float64        `json:"rotation" msgpack:"rotation"`
	Scale    geometry.Scale `json:"scale" msgpack:"scale"`

	Content    *string `json:"content,omitempty" msgpack:"content,omitempty"`
	FontSize   int     `json:"fontSize,omitempty" msgpack:"fontSize,omitempty"`
	FillColor  string  `json:"fillColor,omitempty" msgpack:"fillColor,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty" msgpack:"fontFamily,omitempty"`

	SourceData string `json:"sourceData,omitempty" msgpack:"sourceData,omitempty"`
	Width      int    `json:"width,omitempty" msgpack:"width,omitempty"`
	Height     int    `json:"height,omitempty" msgpack:"height,omitempty"`
}

func (it Item) record() itemRecord {
	rec := itemRecord{
		ID:       it.ID,
		Kind:     it.Kind().String(),
		Position: it.Position,
		Rotation: it.Rotation,
		Scale:    it.Scale,
	}
	switch c := it.Content.(type) {
	case Text:
		content := c.Content
		rec.Content = &content
		rec.FontSize = c.FontSize
		rec.FillColor = c.Fill
		rec.FontFamily = c.FontFamily
	case Image:
		rec.SourceData = c.DataURL()
		rec.Width = c.Width
		rec.Height = c.Height
	}
	return rec
}

func (rec itemRecord) item() (Item, error) {
	kind, err := ParseKind(rec.Kind)
	if err != nil {
		return Item{}, fmt.Errorf("item %s: %w", rec.ID, err)
	}
	if rec.ID == "" {
		return Item{}, fmt.Errorf("%w: item without id", ErrInvalidPatch)
	}
	scale := rec.Scale
	if scale == (geometry.Scale{}) {
		scale = geometry.Identity
	}
	if !scale.Valid() {
		return Item{}, fmt.Errorf("%w: item %s has invalid scale", ErrInvalidPatch, rec.ID)
	}
	it := Item{
		ID: rec.ID,
		Transform: geometry.Transform{
			Position: rec.Position,
			Rotation: rec.Rotation,
			Scale:    scale,
		},
	}

	switch kind {
	case KindText:
		t := Text{
			FontSize:   ClampFontSize(rec.FontSize),
			Fill:       rec.FillColor,
			FontFamily: rec.FontFamily,
		}
		if rec.Content != nil {
			t.Content = *rec.Content
		}
		if t.Fill == "" {
			t.Fill = DefaultFill
		}
		if t.FontFamily == "" {
			t.FontFamily = DefaultFontFamily
		}
		if _, err := ParseHexColor(t.Fill); err != nil {
			return Item{}, fmt.Errorf("item %s: %w", rec.ID, err)
		}
		if !KnownFont(t.FontFamily) {
			return Item{}, fmt.Errorf("item %s: %w: %q", rec.ID, ErrUnknownFont, t.FontFamily)
		}
		it.Content = t
	case KindImage:
		if rec.Width <= 0 || rec.Height <= 0 {
			return Item{}, fmt.Errorf("%w: image %s needs a positive size", ErrInvalidPatch, rec.ID)
		}
		mime, raw, err := parseDataURL(rec.SourceData)
		if err != nil {
			return Item{}, fmt.Errorf("item %s: %w", rec.ID, err)
		}
		it.Content = Image{Source: raw, MIME: mime, Width: rec.Width, Height: rec.Height}
	}
	return it, nil
}

// MarshalJSON implements json.Marshaler.
func (it Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(it.record())
}

// UnmarshalJSON implements json.Unmarshaler.
func (it *Item) UnmarshalJSON(data []byte) error {
	var rec itemRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	decoded, err := rec.item()
	if err != nil {
		return err
	}
	*it = decoded
	return nil
}

var (
	_ msgpack.CustomEncoder = Item{}
	_ msgpack.CustomDecoder = (*Item)(nil)
)

// EncodeMsgpack implements msgpack.CustomEncoder.
func (it Item) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(it.record())
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (it *Item) DecodeMsgpack(dec *msgpack.Decoder) error {
	var rec itemRecord
	if err := dec.Decode(&rec); err != nil {
		return err
	}
	decoded, err := rec.item()
	if err != nil {
		return err
	}
	*it = decoded
	return nil
}
