package canvas

// SelectionState names the two states of the selection controller.
type SelectionState int

const (
	NothingSelected SelectionState = iota
	ItemSelected
)

func (s SelectionState) String() string {
	if s == ItemSelected {
		return "item-selected"
	}
	return "nothing-selected"
}

// Selection is none or exactly one item id. The zero value selects nothing.
type Selection struct {
	id string
}

// Selected returns a selection of id.
func Selected(id string) Selection {
	return Selection{id: id}
}

// State returns the controller state of s.
func (s Selection) State() SelectionState {
	if s.id == "" {
		return NothingSelected
	}
	return ItemSelected
}

// ID returns the selected id; ok is false when nothing is selected.
func (s Selection) ID() (string, bool) {
	return s.id, s.id != ""
}

// Is reports whether id is the selected item.
func (s Selection) Is(id string) bool {
	return id != "" && s.id == id
}
