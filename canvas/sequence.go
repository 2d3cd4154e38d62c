package canvas

import (
	"fmt"
	"product-customizer/geometry"
)

// Sequence is the ordered list of items of a design. Order is z-order: the
// last item is drawn in front. Sequence values are immutable; every
// operation returns a new Sequence and leaves the receiver untouched.
type Sequence struct {
	items []Item
}

// NewSequence builds a sequence from items in back-to-front order.
func NewSequence(items ...Item) (Sequence, error) {
	var s Sequence
	for _, it := range items {
		var err error
		if s, err = s.Add(it); err != nil {
			return Sequence{}, err
		}
	}
	return s, nil
}

// Len returns the number of items.
func (s Sequence) Len() int {
	return len(s.items)
}

// At returns the item at z-position i (0 is back-most).
func (s Sequence) At(i int) Item {
	return s.items[i]
}

// Items returns a copy of the items in back-to-front order.
func (s Sequence) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// IDs returns the item ids in back-to-front order.
func (s Sequence) IDs() []string {
	ids := make([]string, len(s.items))
	for i, it := range s.items {
		ids[i] = it.ID
	}
	return ids
}

// Index returns the z-position of id, or -1.
func (s Sequence) Index(id string) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// Get returns the item with the given id.
func (s Sequence) Get(id string) (Item, bool) {
	if i := s.Index(id); i >= 0 {
		return s.items[i], true
	}
	return Item{}, false
}

// Add appends item in front of every other item.
func (s Sequence) Add(item Item) (Sequence, error) {
	if item.ID == "" {
		return s, fmt.Errorf("%w: empty id", ErrInvalidPatch)
	}
	if item.Content == nil {
		return s, fmt.Errorf("%w: item %s has no content", ErrInvalidPatch, item.ID)
	}
	if s.Index(item.ID) >= 0 {
		return s, fmt.Errorf("%w: %s", ErrDuplicateID, item.ID)
	}
	items := make([]Item, len(s.items), len(s.items)+1)
	copy(items, s.items)
	return Sequence{items: append(items, item)}, nil
}

// Update merges patch into the item with the given id. The item keeps its
// z-position.
func (s Sequence) Update(id string, patch Patch) (Sequence, error) {
	i := s.Index(id)
	if i < 0 {
		return s, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	updated, err := patch.apply(s.items[i])
	if err != nil {
		return s, err
	}
	return s.replace(i, updated), nil
}

// SetTransform replaces the placement of the item with the given id.
func (s Sequence) SetTransform(id string, t geometry.Transform) (Sequence, error) {
	i := s.Index(id)
	if i < 0 {
		return s, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	updated := s.items[i]
	updated.Transform = t
	return s.replace(i, updated), nil
}

// Remove deletes the item with the given id. Survivors keep their relative
// order.
func (s Sequence) Remove(id string) (Sequence, error) {
	i := s.Index(id)
	if i < 0 {
		return s, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	items := make([]Item, 0, len(s.items)-1)
	items = append(items, s.items[:i]...)
	items = append(items, s.items[i+1:]...)
	return Sequence{items: items}, nil
}

func (s Sequence) replace(i int, it Item) Sequence {
	items := s.Items()
	items[i] = it
	return Sequence{items: items}
}
