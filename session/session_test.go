package session

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"product-customizer/canvas"
	"product-customizer/core"
	"product-customizer/geometry"
	"product-customizer/render"
	"product-customizer/stores/memory"
	"product-customizer/templates"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// previewStub uploads into memory. When release is set each upload blocks
// until it is closed; entered is signalled as soon as an upload starts.
type previewStub struct {
	mu      sync.Mutex
	err     error
	panics  bool
	entered chan struct{}
	release chan struct{}
	keys    []string
}

func (p *previewStub) UploadPreview(ctx context.Context, key string, data []byte) (string, error) {
	if p.entered != nil {
		p.entered <- struct{}{}
	}
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.panics {
		panic("uploader crashed")
	}
	if p.err != nil {
		return "", p.err
	}
	p.keys = append(p.keys, key)
	return "http://cdn.example.com/previews/" + key, nil
}

func (p *previewStub) FindPreview(ctx context.Context, key string) ([]byte, error) {
	return nil, core.ErrPreviewNotFound
}

func (p *previewStub) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *previewStub) setPanics(panics bool) {
	p.mu.Lock()
	p.panics = panics
	p.mu.Unlock()
}

type fixture struct {
	manager  *Manager
	orders   core.OrderStore
	records  core.CustomizationStore
	previews *previewStub
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fonts, err := render.NewFonts()
	require.NoError(t, err)

	mem := memory.NewStore("http://localhost:3002")
	require.NoError(t, mem.SaveOrder(context.Background(), core.DemoOrder()))
	require.NoError(t, mem.SaveOrder(context.Background(), &core.Order{ID: "anonymous", Status: "paid"}))

	f := &fixture{
		orders:   mem,
		records:  mem,
		previews: &previewStub{},
		clock:    time.UnixMilli(1700000000000),
	}
	f.manager = NewManager(Config{
		Orders:         mem,
		Previews:       f.previews,
		Customizations: mem,
		Catalog:        templates.Default(),
		Renderer:       render.NewRenderer(fonts),
		CheckoutURL:    "https://shop.example.com/checkout/success",
		DemoMode:       true,
		MaxIdle:        10 * time.Minute,
		Now:            func() time.Time { return f.clock },
	})
	return f
}

// editing opens a demo session on the round sticker.
func (f *fixture) editing(t *testing.T) *Session {
	t.Helper()
	s, err := f.manager.Open(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, s.Start())
	_, err = s.ChooseTemplate("sticker-round")
	require.NoError(t, err)
	return s
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.manager.Open(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, core.DemoOrderID, s.OrderID())
	assert.Equal(t, "Demo Customer", s.Greeting())
	assert.Equal(t, Landing, s.State().Stage)

	got, err := f.manager.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	anon, err := f.manager.Open(ctx, "anonymous")
	require.NoError(t, err)
	assert.Equal(t, "Visitor", anon.Greeting())

	_, err = f.manager.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrLookup)
	assert.ErrorIs(t, err, core.ErrOrderNotFound)
	assert.Equal(t, 2, f.manager.Len(), "failed lookups open no session")

	f.manager.cfg.DemoMode = false
	_, err = f.manager.Open(ctx, "")
	assert.ErrorIs(t, err, ErrLookup)

	_, err = f.manager.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStageFlow(t *testing.T) {
	f := newFixture(t)
	s, err := f.manager.Open(context.Background(), "")
	require.NoError(t, err)

	_, err = s.AddText()
	assert.ErrorIs(t, err, ErrStage, "no editing before a template is chosen")
	_, err = s.ChooseTemplate("sticker-round")
	assert.ErrorIs(t, err, ErrStage)

	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Start(), ErrStage)

	_, err = s.ChooseTemplate("nope")
	assert.ErrorIs(t, err, templates.ErrTemplateNotFound)

	tmpl, err := s.ChooseTemplate("sticker-round")
	require.NoError(t, err)
	assert.Equal(t, geometry.ShapeRound, tmpl.Shape)

	st := s.State()
	assert.Equal(t, Editing, st.Stage)
	require.Len(t, st.Items, 1)
	assert.Equal(t, st.Items[0].ID, st.SelectedID, "the default text starts selected")
	assert.InDelta(t, 195, st.Items[0].Position.X, 0.5)
	assert.InDelta(t, 238, st.Items[0].Position.Y, 0.5)

	_, err = s.AddText()
	require.NoError(t, err)
	require.NoError(t, s.Back())

	st = s.State()
	assert.Equal(t, SelectTemplate, st.Stage)
	assert.Empty(t, st.Items)
	assert.Empty(t, st.SelectedID)
	assert.Nil(t, st.Template)
}

func TestEditing(t *testing.T) {
	f := newFixture(t)
	s := f.editing(t)

	img, err := s.AddImage(testPNG(t, 32, 16))
	require.NoError(t, err)
	assert.Equal(t, canvas.KindImage, img.Kind())
	assert.Equal(t, geometry.Pt(150, 150), img.Position)
	assert.Equal(t, img.ID, s.State().SelectedID)

	moved, err := s.MoveLayer(canvas.Backward)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, img.ID, s.State().Items[0].ID, "image moved behind the text")

	size := 48
	assert.ErrorIs(t, s.UpdateSelected(canvas.Patch{FontSize: &size}), canvas.ErrKindMismatch)

	require.NoError(t, s.Dispatch(canvas.DragCommand{ID: img.ID, Delta: geometry.Pt(10, -5)}))
	assert.Equal(t, geometry.Pt(160, 145), s.State().Items[0].Position)

	require.NoError(t, s.DeleteSelected())
	st := s.State()
	assert.Len(t, st.Items, 1)
	assert.Empty(t, st.SelectedID)

	_, err = s.AddImage(make([]byte, canvas.MaxImageBytes+1))
	assert.ErrorIs(t, err, ErrImageTooLarge)
	_, err = s.AddImage([]byte("not an image"))
	assert.ErrorIs(t, err, canvas.ErrUnsupportedImage)
}

func TestRender(t *testing.T) {
	f := newFixture(t)
	s := f.editing(t)

	data, err := s.Render()
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 500, 500), img.Bounds())
}

func TestFinish(t *testing.T) {
	f := newFixture(t)
	s := f.editing(t)
	ctx := context.Background()

	res, err := s.Finish(ctx)
	require.NoError(t, err)

	wantKey := core.DemoOrderID + "/preview-1700000000000.png"
	assert.Equal(t, []string{wantKey}, f.previews.keys)
	assert.Equal(t, "http://cdn.example.com/previews/"+wantKey, res.PreviewURL)
	assert.Equal(t, "https://shop.example.com/checkout/success", res.RedirectURL)
	assert.Equal(t, 500, res.Design.CanvasWidth)
	assert.Len(t, res.Design.Items, 1)

	flat, err := png.Decode(bytes.NewReader(res.PNG))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1000, 1000), flat.Bounds())

	list, err := f.records.ListCustomizations(ctx, core.DemoOrderID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.CustomizationID, list[0].ID)
	assert.Equal(t, res.PreviewURL, list[0].PreviewURL)

	st := s.State()
	assert.Equal(t, Completed, st.Stage)
	assert.Equal(t, Idle, st.Export)
	require.NotNil(t, st.Result)

	_, err = s.Finish(ctx)
	assert.ErrorIs(t, err, ErrStage, "a completed session cannot be exported again")
	_, err = s.AddText()
	assert.ErrorIs(t, err, ErrStage)
}

func TestFinishRejectsConcurrentExport(t *testing.T) {
	f := newFixture(t)
	f.previews.entered = make(chan struct{}, 1)
	f.previews.release = make(chan struct{})
	s := f.editing(t)

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.Finish(context.Background())
		done <- outcome{res, err}
	}()
	<-f.previews.entered

	assert.Equal(t, Exporting, s.State().Export)
	_, err := s.Finish(context.Background())
	assert.ErrorIs(t, err, ErrExportInProgress)
	_, err = s.AddText()
	assert.ErrorIs(t, err, ErrExportInProgress)
	assert.ErrorIs(t, s.Back(), ErrExportInProgress)

	close(f.previews.release)
	first := <-done
	require.NoError(t, first.err)
	assert.NotEmpty(t, first.res.PreviewURL)
	assert.Len(t, f.previews.keys, 1, "the rejected call never reached the uploader")
}

func TestFinishFailureLeavesDesignUntouched(t *testing.T) {
	f := newFixture(t)
	s := f.editing(t)
	_, err := s.AddImage(testPNG(t, 8, 8))
	require.NoError(t, err)
	before := s.State()

	uploadErr := errors.New("bucket unavailable")
	f.previews.setErr(uploadErr)

	_, err = s.Finish(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExport)
	assert.ErrorIs(t, err, uploadErr)

	after := s.State()
	assert.Equal(t, Idle, after.Export)
	assert.Equal(t, Editing, after.Stage)
	assert.Equal(t, before.SelectedID, after.SelectedID)
	require.Len(t, after.Items, len(before.Items))
	for i := range before.Items {
		assert.Equal(t, before.Items[i].ID, after.Items[i].ID)
		assert.Equal(t, before.Items[i].Transform, after.Items[i].Transform)
	}

	list, err := f.records.ListCustomizations(context.Background(), core.DemoOrderID)
	require.NoError(t, err)
	assert.Empty(t, list)

	f.previews.setErr(nil)
	_, err = s.Finish(context.Background())
	require.NoError(t, err, "a failed export can be retried")
}

func TestFinishFlattenFailure(t *testing.T) {
	f := newFixture(t)
	s := f.editing(t)

	// The header is enough to pass the upload check, but the pixel data is
	// missing so flattening fails.
	broken := testPNG(t, 8, 8)[:33]
	added, err := s.AddImage(broken)
	require.NoError(t, err)
	before := s.State()

	_, err = s.Finish(context.Background())
	assert.ErrorIs(t, err, ErrExport)
	assert.Empty(t, f.previews.keys)

	after := s.State()
	assert.Equal(t, Idle, after.Export)
	assert.Equal(t, Editing, after.Stage)
	assert.Equal(t, added.ID, after.SelectedID)
	assert.Equal(t, before.Items, after.Items)

	require.NoError(t, s.DeleteSelected())
	_, err = s.Finish(context.Background())
	require.NoError(t, err, "the session stays editable after a failed flatten")
}

func TestFinishRecoversFromPanic(t *testing.T) {
	f := newFixture(t)
	s := f.editing(t)
	before := s.State()

	f.previews.setPanics(true)
	var err error
	require.NotPanics(t, func() {
		_, err = s.Finish(context.Background())
	})
	assert.ErrorIs(t, err, ErrExport)

	after := s.State()
	assert.Equal(t, Idle, after.Export)
	assert.Equal(t, Editing, after.Stage)
	assert.Equal(t, before.Items, after.Items)

	_, err = s.AddText()
	require.NoError(t, err, "edits are accepted again")

	f.previews.setPanics(false)
	res, err := s.Finish(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Design.Items, 2)
}

func TestFinishWithOversizedText(t *testing.T) {
	f := newFixture(t)
	s := f.editing(t)

	huge := geometry.Scale{X: 1e5, Y: 1e5}
	assert.ErrorIs(t, s.UpdateSelected(canvas.Patch{Scale: &huge}), canvas.ErrInvalidPatch)

	largest := geometry.Scale{X: geometry.MaxScale, Y: geometry.MaxScale}
	require.NoError(t, s.UpdateSelected(canvas.Patch{Scale: &largest}))

	res, err := s.Finish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Completed, s.State().Stage)

	img, err := png.Decode(bytes.NewReader(res.PNG))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1000, 1000), img.Bounds())
}

func TestFinishHonoursContext(t *testing.T) {
	f := newFixture(t)
	f.previews.release = make(chan struct{})
	s := f.editing(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Finish(ctx)
	assert.ErrorIs(t, err, ErrExport)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Idle, s.State().Export)
}

func TestCleanup(t *testing.T) {
	f := newFixture(t)
	old := f.editing(t)

	f.clock = f.clock.Add(8 * time.Minute)
	fresh := f.editing(t)

	f.clock = f.clock.Add(5 * time.Minute)
	assert.Equal(t, 1, f.manager.Cleanup())

	_, err := f.manager.Get(old.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.manager.Get(fresh.ID())
	assert.NoError(t, err)
}

func TestStageText(t *testing.T) {
	for stage, want := range map[Stage]string{
		Landing:        "landing",
		SelectTemplate: "select-template",
		Editing:        "editing",
		Completed:      "completed",
	} {
		text, err := stage.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, want, string(text))
	}
	assert.True(t, strings.HasPrefix(Stage(9).String(), "stage("))
}
