package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func assertPoint(t *testing.T, want, got Point) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-6, "x")
	assert.InDelta(t, want.Y, got.Y, 1e-6, "y")
}

func TestDrag(t *testing.T) {
	before := Transform{Position: Pt(10, 20), Rotation: 33, Scale: Scale{X: 2, Y: 3}}
	after := Drag(before, Pt(5, -7))

	assert.Equal(t, Pt(15, 13), after.Position)
	assert.Equal(t, before.Rotation, after.Rotation)
	assert.Equal(t, before.Scale, after.Scale)
}

func TestResize(t *testing.T) {
	before := Transform{Position: Pt(150, 150), Rotation: 10, Scale: Identity}

	after, err := Resize(before, Size{W: 200, H: 200}, Box{Origin: Pt(140, 145), W: 400, H: 100})
	require.NoError(t, err)
	assert.Equal(t, Scale{X: 2, Y: 0.5}, after.Scale)
	assert.Equal(t, Pt(140, 145), after.Position)
	assert.Equal(t, 10.0, after.Rotation)
}

func TestResize_Degenerate(t *testing.T) {
	before := Transform{Position: Pt(150, 150), Scale: Scale{X: 1.5, Y: 1.5}}
	authored := Size{W: 200, H: 200}

	tests := []struct {
		name string
		box  Box
	}{
		{"narrow", Box{W: 4.99, H: 100}},
		{"short", Box{W: 100, H: 4}},
		{"zero", Box{}},
		{"flipped", Box{W: -50, H: 50}},
		{"nan", Box{W: math.NaN(), H: 50}},
		{"beyond max scale", Box{W: 200*MaxScale + 1, H: 100}},
		{"infinite", Box{W: math.Inf(1), H: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			after, err := Resize(before, authored, tt.box)
			assert.ErrorIs(t, err, ErrDegenerateTransform)
			assert.Equal(t, before, after)
		})
	}
}

func TestResize_MinimumAccepted(t *testing.T) {
	after, err := Resize(Transform{Scale: Identity}, Size{W: 10, H: 10}, Box{W: MinBoxSize, H: MinBoxSize})
	require.NoError(t, err)
	assert.Equal(t, Scale{X: 0.5, Y: 0.5}, after.Scale)
}

func TestRotate(t *testing.T) {
	f := Frame{Transform: Transform{Scale: Identity}, Size: Size{W: 100, H: 100}}

	t.Run("handle to the right is 90 degrees", func(t *testing.T) {
		after := Rotate(f, Pt(150, 50))
		assert.InDelta(t, 90, after.Rotation, eps)
		assertPoint(t, Pt(100, 0), after.Position)

		rotated := Frame{Transform: after, Size: f.Size}
		assertPoint(t, f.Center(), rotated.Center())
	})

	t.Run("handle straight above is 0 degrees", func(t *testing.T) {
		after := Rotate(f, Pt(50, -200))
		assert.InDelta(t, 0, after.Rotation, eps)
		assertPoint(t, Pt(0, 0), after.Position)
	})

	t.Run("handle on the centre keeps the transform", func(t *testing.T) {
		assert.Equal(t, f.Transform, Rotate(f, Pt(50, 50)))
	})

	t.Run("scale is unchanged", func(t *testing.T) {
		g := f
		g.Scale = Scale{X: 2, Y: 0.5}
		after := Rotate(g, Pt(-300, 25))
		assert.Equal(t, g.Scale, after.Scale)
		assert.InDelta(t, -90, after.Rotation, eps)
	})
}

func TestResizeFromHandle(t *testing.T) {
	f := Frame{Transform: Transform{Position: Pt(10, 10), Scale: Identity}, Size: Size{W: 100, H: 50}}

	t.Run("corner keeps ratio", func(t *testing.T) {
		box := ResizeFromHandle(f, HandleBottomRight, Pt(210, 110))
		assertPoint(t, Pt(10, 10), box.Origin)
		assert.InDelta(t, 200, box.W, 1e-6)
		assert.InDelta(t, 100, box.H, 1e-6)
	})

	t.Run("top-left moves origin", func(t *testing.T) {
		box := ResizeFromHandle(f, HandleTopLeft, Pt(60, 35))
		assertPoint(t, Pt(60, 35), box.Origin)
		assert.InDelta(t, 50, box.W, 1e-6)
		assert.InDelta(t, 25, box.H, 1e-6)
	})

	t.Run("edge changes one axis", func(t *testing.T) {
		box := ResizeFromHandle(f, HandleMiddleRight, Pt(60, 500))
		assert.InDelta(t, 50, box.W, 1e-6)
		assert.InDelta(t, 50, box.H, 1e-6)
	})

	t.Run("dragging past the opposite edge is degenerate", func(t *testing.T) {
		box := ResizeFromHandle(f, HandleMiddleLeft, Pt(200, 20))
		_, err := Resize(f.Transform, f.Size, box)
		assert.ErrorIs(t, err, ErrDegenerateTransform)
	})

	t.Run("rotated frame resizes along its own axes", func(t *testing.T) {
		r := Frame{Transform: Transform{Rotation: 90, Scale: Identity}, Size: Size{W: 100, H: 50}}
		// Local +x points down the screen at 90 degrees.
		box := ResizeFromHandle(r, HandleMiddleRight, Pt(0, 150))
		assert.InDelta(t, 150, box.W, 1e-6)
		assert.InDelta(t, 50, box.H, 1e-6)
		assertPoint(t, Pt(0, 0), box.Origin)
	})
}

func TestFrame(t *testing.T) {
	f := Frame{Transform: Transform{Position: Pt(100, 100), Rotation: 90, Scale: Scale{X: 2, Y: 1}}, Size: Size{W: 50, H: 20}}

	assertPoint(t, Pt(90, 150), f.Center())
	assert.True(t, f.Contains(Pt(90, 150)))
	assert.False(t, f.Contains(Pt(110, 150)))

	b := f.Bounds()
	assert.InDelta(t, 80, b.X, 1e-6)
	assert.InDelta(t, 100, b.Y, 1e-6)
	assert.InDelta(t, 20, b.W, 1e-6)
	assert.InDelta(t, 100, b.H, 1e-6)
}

func TestPickHandle(t *testing.T) {
	f := Frame{Transform: Transform{Scale: Identity}, Size: Size{W: 100, H: 100}}

	assert.Equal(t, HandleBottomRight, f.PickHandle(Pt(102, 99), 5))
	assert.Equal(t, HandleRotater, f.PickHandle(Pt(50, -48), 5))
	assert.Equal(t, HandleNone, f.PickHandle(Pt(50, 50), 5))
	assert.True(t, HandleMiddleLeft.Resizes())
	assert.False(t, HandleRotater.Resizes())
}

func TestHandleText(t *testing.T) {
	for _, h := range append(ResizeHandles, HandleRotater, HandleNone) {
		text, err := h.MarshalText()
		require.NoError(t, err)

		var parsed Handle
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, h, parsed)
	}

	_, err := ParseHandle("sideways")
	assert.Error(t, err)
}

func TestAffineInvert(t *testing.T) {
	m := Translation(30, -4).Mul(Rotation(37)).Mul(Scaling(2, 0.25))
	inv, ok := m.Invert()
	require.True(t, ok)

	p := Pt(12.5, -8)
	assertPoint(t, p, inv.Apply(m.Apply(p)))

	_, ok = Scaling(0, 1).Invert()
	assert.False(t, ok)
}

func TestNormalizeDegrees(t *testing.T) {
	assert.InDelta(t, 270, NormalizeDegrees(-90), eps)
	assert.InDelta(t, 0, NormalizeDegrees(720), eps)
	assert.InDelta(t, 45, NormalizeDegrees(405), eps)
}

func TestClip(t *testing.T) {
	round := Clip{Shape: ShapeRound, Width: 500, Height: 500}
	assert.True(t, round.Contains(Pt(250, 250)))
	assert.True(t, round.Contains(Pt(250, 0)))
	assert.False(t, round.Contains(Pt(1, 1)))
	assert.False(t, round.Contains(Pt(499, 499)))

	rect := Clip{Shape: ShapeRectangular, Width: 800, Height: 350}
	assert.True(t, rect.Contains(Pt(1, 1)))
	assert.False(t, rect.Contains(Pt(801, 1)))
}
