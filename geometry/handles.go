package geometry

import "fmt"

// RotaterOffset is the distance of the rotation handle above the top edge.
const RotaterOffset = 50

// Handle identifies the part of the selection overlay a pointer grabbed. The
// grabbed handle decides the gesture class: a resize handle resizes, the
// rotater rotates, and HandleNone (the item body) drags.
type Handle int

const (
	HandleNone Handle = iota
	HandleTopLeft
	HandleTopCenter
	HandleTopRight
	HandleMiddleRight
	HandleBottomRight
	HandleBottomCenter
	HandleBottomLeft
	HandleMiddleLeft
	HandleRotater
)

var handleNames = [...]string{
	HandleNone:         "none",
	HandleTopLeft:      "top-left",
	HandleTopCenter:    "top-center",
	HandleTopRight:     "top-right",
	HandleMiddleRight:  "middle-right",
	HandleBottomRight:  "bottom-right",
	HandleBottomCenter: "bottom-center",
	HandleBottomLeft:   "bottom-left",
	HandleMiddleLeft:   "middle-left",
	HandleRotater:      "rotater",
}

func (h Handle) String() string {
	if h < 0 || int(h) >= len(handleNames) {
		return "unknown"
	}
	return handleNames[h]
}

// ParseHandle maps an anchor name back to its Handle.
func ParseHandle(name string) (Handle, error) {
	for i, n := range handleNames {
		if n == name {
			return Handle(i), nil
		}
	}
	return HandleNone, fmt.Errorf("unknown handle %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Handle) UnmarshalText(text []byte) error {
	parsed, err := ParseHandle(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Resizes reports whether the handle is one of the eight resize anchors.
func (h Handle) Resizes() bool {
	return h >= HandleTopLeft && h <= HandleMiddleLeft
}

func (h Handle) corner() bool {
	switch h {
	case HandleTopLeft, HandleTopRight, HandleBottomRight, HandleBottomLeft:
		return true
	}
	return false
}

// ResizeHandles lists the resize anchors in drawing order.
var ResizeHandles = []Handle{
	HandleTopLeft, HandleTopCenter, HandleTopRight, HandleMiddleRight,
	HandleBottomRight, HandleBottomCenter, HandleBottomLeft, HandleMiddleLeft,
}

// HandlePosition returns where handle h of the frame sits in template space.
func (f Frame) HandlePosition(h Handle) Point {
	b := f.Box()
	var q Point
	switch h {
	case HandleTopLeft:
		q = Point{}
	case HandleTopCenter:
		q = Point{X: b.W / 2}
	case HandleTopRight:
		q = Point{X: b.W}
	case HandleMiddleRight:
		q = Point{X: b.W, Y: b.H / 2}
	case HandleBottomRight:
		q = Point{X: b.W, Y: b.H}
	case HandleBottomCenter:
		q = Point{X: b.W / 2, Y: b.H}
	case HandleBottomLeft:
		q = Point{Y: b.H}
	case HandleMiddleLeft:
		q = Point{Y: b.H / 2}
	case HandleRotater:
		q = Point{X: b.W / 2, Y: -RotaterOffset}
	default:
		return f.Center()
	}
	return f.local().Apply(q)
}

// PickHandle returns the overlay handle under p, within radius. It returns
// HandleNone when p misses every handle; the caller then hit-tests the body.
func (f Frame) PickHandle(p Point, radius float64) Handle {
	best, bestDist := HandleNone, radius
	for h := HandleTopLeft; h <= HandleRotater; h++ {
		if d := f.HandlePosition(h).Distance(p); d <= bestDist {
			best, bestDist = h, d
		}
	}
	return best
}
