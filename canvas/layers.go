package canvas

import "fmt"

// Direction is a single-step layer move.
type Direction int

const (
	// Forward swaps an item with its successor, bringing it one step to the front.
	Forward Direction = iota + 1
	// Backward swaps an item with its predecessor, sending it one step back.
	Backward
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "unknown"
	}
}

// ParseDirection accepts "forward"/"backward" and the "up"/"down" aliases.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "forward", "up":
		return Forward, nil
	case "backward", "down":
		return Backward, nil
	}
	return 0, fmt.Errorf("unknown layer direction %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MoveLayer swaps the item with its neighbour in the given direction. Moving
// the front-most item forward, the back-most backward, or an absent id
// returns the sequence unchanged.
func (s Sequence) MoveLayer(id string, dir Direction) Sequence {
	i := s.Index(id)
	if i < 0 {
		return s
	}
	j := i
	switch dir {
	case Forward:
		j = i + 1
	case Backward:
		j = i - 1
	}
	if j == i || j < 0 || j >= len(s.items) {
		return s
	}
	items := s.Items()
	items[i], items[j] = items[j], items[i]
	return Sequence{items: items}
}
