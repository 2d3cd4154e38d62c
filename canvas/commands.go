package canvas

import (
	"encoding/json"
	"errors"
	"fmt"
	"product-customizer/geometry"

	"github.com/sirupsen/logrus"
)

// Command is a discrete user gesture consumed by Editor.Dispatch. The set of
// commands is closed.
type Command interface {
	isCommand()
}

// DragCommand moves an item by Delta.
type DragCommand struct {
	ID    string
	Delta geometry.Point
}

// ResizeCommand drags resize handle Handle of the selected item to To.
type ResizeCommand struct {
	ID     string
	Handle geometry.Handle
	To     geometry.Point
}

// RotateCommand drags the rotation handle of the selected item to To.
type RotateCommand struct {
	ID string
	To geometry.Point
}

// LayerCommand moves the selected item one step in z-order.
type LayerCommand struct {
	Direction Direction
}

// SelectCommand selects an item by id; an empty ID deselects.
type SelectCommand struct {
	ID string
}

// TapCommand is a click on the canvas: it selects the front-most item under
// At, or clears the selection when it hits empty canvas or the background.
type TapCommand struct {
	At geometry.Point
}

func (DragCommand) isCommand()   {}
func (ResizeCommand) isCommand() {}
func (RotateCommand) isCommand() {}
func (LayerCommand) isCommand()  {}
func (SelectCommand) isCommand() {}
func (TapCommand) isCommand()    {}

// Dispatch applies cmd. A resize that would produce a box below the minimum
// size is dropped and the previous geometry kept; Dispatch then returns nil.
func (e *Editor) Dispatch(cmd Command) error {
	err := e.dispatch(cmd)
	if errors.Is(err, geometry.ErrDegenerateTransform) {
		logrus.WithField("command", fmt.Sprintf("%T", cmd)).Debug("Degenerate resize rejected")
		return nil
	}
	return err
}

func (e *Editor) dispatch(cmd Command) error {
	switch c := cmd.(type) {
	case DragCommand:
		it, ok := e.items.Get(c.ID)
		if !ok {
			return e.notFound("drag", c.ID)
		}
		items, err := e.items.SetTransform(c.ID, geometry.Drag(it.Transform, c.Delta))
		if err != nil {
			return err
		}
		e.items = items
		return nil

	case ResizeCommand:
		if !c.Handle.Resizes() {
			return fmt.Errorf("%w: %s is not a resize handle", ErrInvalidPatch, c.Handle)
		}
		f, err := e.selectedFrame("resize", c.ID)
		if err != nil {
			return err
		}
		box := geometry.ResizeFromHandle(f, c.Handle, c.To)
		t, err := geometry.Resize(f.Transform, f.Size, box)
		if err != nil {
			return err
		}
		e.items, err = e.items.SetTransform(c.ID, t)
		return err

	case RotateCommand:
		f, err := e.selectedFrame("rotate", c.ID)
		if err != nil {
			return err
		}
		e.items, err = e.items.SetTransform(c.ID, geometry.Rotate(f, c.To))
		return err

	case LayerCommand:
		e.MoveLayer(c.Direction)
		return nil

	case SelectCommand:
		return e.Select(c.ID)

	case TapCommand:
		if it, ok := e.ItemAt(c.At); ok {
			e.selection = Selected(it.ID)
		} else {
			e.Deselect()
		}
		return nil
	}
	return fmt.Errorf("%w: %T", ErrInvalidCommand, cmd)
}

// selectedFrame returns the frame of id, which must be the selected item:
// handles are only shown, and can only be grabbed, on the selection.
func (e *Editor) selectedFrame(op, id string) (geometry.Frame, error) {
	it, ok := e.items.Get(id)
	if !ok {
		return geometry.Frame{}, e.notFound(op, id)
	}
	if !e.selection.Is(id) {
		return geometry.Frame{}, fmt.Errorf("%w: %s", ErrNotSelected, id)
	}
	return it.Frame(e.measure), nil
}

type commandEnvelope struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Delta     *geometry.Point `json:"delta,omitempty"`
	Handle    geometry.Handle `json:"handle,omitempty"`
	To        *geometry.Point `json:"to,omitempty"`
	Direction Direction       `json:"direction,omitempty"`
	At        *geometry.Point `json:"at,omitempty"`
}

// DecodeCommand parses a JSON gesture message such as
//
//	{"type":"drag","id":"…","delta":{"x":10,"y":0}}
//	{"type":"resize","id":"…","handle":"bottom-right","to":{"x":300,"y":300}}
//	{"type":"rotate","id":"…","to":{"x":250,"y":40}}
//	{"type":"layer","direction":"backward"}
//	{"type":"select","id":"…"}
//	{"type":"tap","at":{"x":20,"y":20}}
func DecodeCommand(data []byte) (Command, error) {
	var env commandEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	missing := func(field string) error {
		return fmt.Errorf("%w: %s command requires %q", ErrInvalidCommand, env.Type, field)
	}

	switch env.Type {
	case "drag":
		if env.ID == "" || env.Delta == nil {
			return nil, missing("id, delta")
		}
		return DragCommand{ID: env.ID, Delta: *env.Delta}, nil
	case "resize":
		if env.ID == "" || env.To == nil || env.Handle == geometry.HandleNone {
			return nil, missing("id, handle, to")
		}
		return ResizeCommand{ID: env.ID, Handle: env.Handle, To: *env.To}, nil
	case "rotate":
		if env.ID == "" || env.To == nil {
			return nil, missing("id, to")
		}
		return RotateCommand{ID: env.ID, To: *env.To}, nil
	case "layer":
		if env.Direction == 0 {
			return nil, missing("direction")
		}
		return LayerCommand{Direction: env.Direction}, nil
	case "select":
		return SelectCommand{ID: env.ID}, nil
	case "tap":
		if env.At == nil {
			return nil, missing("at")
		}
		return TapCommand{At: *env.At}, nil
	case "":
		return nil, fmt.Errorf("%w: type is required", ErrInvalidCommand)
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidCommand, env.Type)
}
