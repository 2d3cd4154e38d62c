package canvas

import (
	"errors"
	"fmt"
	"product-customizer/geometry"

	"github.com/sirupsen/logrus"
)

// Editor owns the item sequence and the selection of one design session and
// keeps the two consistent: the selection always names an item that is in
// the sequence, or nothing.
//
// Editor is not safe for concurrent use; the owning session serializes
// access.
type Editor struct {
	items     Sequence
	selection Selection
	clip      geometry.Clip
	measure   Measurer
}

// NewEditor returns an empty editor for a canvas with the given clip region.
// A nil Measurer falls back to Estimate.
func NewEditor(clip geometry.Clip, m Measurer) *Editor {
	if m == nil {
		m = Estimate{}
	}
	return &Editor{clip: clip, measure: m}
}

func (e *Editor) Items() Sequence      { return e.items }
func (e *Editor) Selection() Selection { return e.selection }
func (e *Editor) Clip() geometry.Clip  { return e.clip }
func (e *Editor) Measurer() Measurer   { return e.measure }

// SelectedItem returns the selected item, if any.
func (e *Editor) SelectedItem() (Item, bool) {
	id, ok := e.selection.ID()
	if !ok {
		return Item{}, false
	}
	return e.items.Get(id)
}

// Frame returns the placement and authored size of the item with the given id.
func (e *Editor) Frame(id string) (geometry.Frame, error) {
	it, ok := e.items.Get(id)
	if !ok {
		return geometry.Frame{}, e.notFound("frame", id)
	}
	return it.Frame(e.measure), nil
}

// Add appends item in front of all others and selects it.
func (e *Editor) Add(item Item) error {
	items, err := e.items.Add(item)
	if err != nil {
		if errors.Is(err, ErrDuplicateID) {
			logrus.WithFields(logrus.Fields{
				"itemId": item.ID,
				"kind":   item.Kind().String(),
			}).Error("Item id collision")
		}
		return err
	}
	e.items = items
	e.selection = Selected(item.ID)
	logrus.WithFields(logrus.Fields{
		"itemId": item.ID,
		"kind":   item.Kind().String(),
		"count":  e.items.Len(),
	}).Debug("Item added")
	return nil
}

// Update merges patch into the item with the given id.
func (e *Editor) Update(id string, patch Patch) error {
	items, err := e.items.Update(id, patch)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return e.notFound("update", id)
		}
		return err
	}
	e.items = items
	return nil
}

// UpdateSelected merges patch into the selected item.
func (e *Editor) UpdateSelected(patch Patch) error {
	id, ok := e.selection.ID()
	if !ok {
		return ErrNotSelected
	}
	return e.Update(id, patch)
}

// Remove deletes the item with the given id, clearing the selection if it
// pointed at that item.
func (e *Editor) Remove(id string) error {
	items, err := e.items.Remove(id)
	if err != nil {
		return e.notFound("remove", id)
	}
	e.items = items
	if e.selection.Is(id) {
		e.selection = Selection{}
	}
	logrus.WithFields(logrus.Fields{
		"itemId": id,
		"count":  e.items.Len(),
	}).Debug("Item removed")
	return nil
}

// DeleteSelected removes the selected item. With nothing selected it does
// nothing.
func (e *Editor) DeleteSelected() error {
	id, ok := e.selection.ID()
	if !ok {
		return nil
	}
	return e.Remove(id)
}

// Select makes id the only selected item. An empty id deselects.
func (e *Editor) Select(id string) error {
	if id == "" {
		e.Deselect()
		return nil
	}
	if e.items.Index(id) < 0 {
		return e.notFound("select", id)
	}
	e.selection = Selected(id)
	return nil
}

// Deselect always leaves the editor with nothing selected.
func (e *Editor) Deselect() {
	e.selection = Selection{}
}

// MoveLayer moves the selected item one step in z-order. It reports whether
// the order changed; with nothing selected or at an edge it is a no-op.
func (e *Editor) MoveLayer(dir Direction) bool {
	id, ok := e.selection.ID()
	if !ok {
		return false
	}
	before := e.items.Index(id)
	e.items = e.items.MoveLayer(id, dir)
	return e.items.Index(id) != before
}

// ItemAt returns the front-most item under p. Points outside the clip region
// never hit anything since content there is not visible.
func (e *Editor) ItemAt(p geometry.Point) (Item, bool) {
	if !e.clip.Contains(p) {
		return Item{}, false
	}
	for i := e.items.Len() - 1; i >= 0; i-- {
		it := e.items.At(i)
		if it.Frame(e.measure).Contains(p) {
			return it, true
		}
	}
	return Item{}, false
}

// Reset discards every item and the selection and switches to a new clip
// region.
func (e *Editor) Reset(clip geometry.Clip) {
	e.items = Sequence{}
	e.selection = Selection{}
	e.clip = clip
}

func (e *Editor) notFound(op, id string) error {
	logrus.WithFields(logrus.Fields{
		"op":     op,
		"itemId": id,
	}).Warn("Item not found, ignoring")
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
