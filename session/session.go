// Package session drives one customer's customization from landing to
// checkout. A Session owns the editor of its design and guards the export to
// the preview and customization stores.
package session

import (
	"context"
	"errors"
	"fmt"
	"product-customizer/canvas"
	"product-customizer/core"
	"product-customizer/render"
	"product-customizer/templates"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrExportInProgress rejects a second Finish, and any edit, while an
	// export is running.
	ErrExportInProgress = errors.New("export already in progress")
	// ErrExport wraps flatten, upload and persistence failures. The design
	// is left as it was and Finish may be retried.
	ErrExport = errors.New("export failed")
	// ErrLookup means the order could not be resolved. No session is
	// created for it.
	ErrLookup = errors.New("order lookup failed")
	// ErrStage means the operation is not available in the current stage.
	ErrStage         = errors.New("operation not allowed in current stage")
	ErrImageTooLarge = errors.New("image too large")
)

// Stage is the screen a session is on.
type Stage int

const (
	Landing Stage = iota
	SelectTemplate
	Editing
	Completed
)

func (s Stage) String() string {
	switch s {
	case Landing:
		return "landing"
	case SelectTemplate:
		return "select-template"
	case Editing:
		return "editing"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ExportState guards Finish.
type ExportState int

const (
	Idle ExportState = iota
	Exporting
)

func (e ExportState) String() string {
	if e == Exporting {
		return "exporting"
	}
	return "idle"
}

func (e ExportState) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// Result is what a successful Finish hands back to the shell.
type Result struct {
	CustomizationID string        `json:"customizationId"`
	Design          canvas.Design `json:"design"`
	PreviewURL      string        `json:"previewUrl"`
	RedirectURL     string        `json:"redirectUrl,omitempty"`
	PNG             []byte        `json:"-"`
}

// State is a snapshot of a session for display.
type State struct {
	ID           string              `json:"sessionId"`
	OrderID      string              `json:"orderId"`
	CustomerName string              `json:"customerName"`
	Stage        Stage               `json:"stage"`
	Export       ExportState         `json:"export"`
	Template     *templates.Template `json:"template,omitempty"`
	Items        []canvas.Item       `json:"items"`
	SelectedID   string              `json:"selectedId,omitempty"`
	Result       *Result             `json:"result,omitempty"`
}

// Session is safe for concurrent use.
type Session struct {
	id    string
	order core.Order
	deps  *Config

	mu       sync.Mutex
	stage    Stage
	template *templates.Template
	editor   *canvas.Editor
	export   ExportState
	result   *Result
	lastUsed time.Time
}

func newSession(id string, order core.Order, deps *Config) *Session {
	return &Session{
		id:       id,
		order:    order,
		deps:     deps,
		editor:   canvas.NewEditor(templates.Template{}.Clip(), deps.Renderer.Measurer()),
		lastUsed: deps.now(),
	}
}

func (s *Session) ID() string         { return s.id }
func (s *Session) Order() core.Order  { return s.order }
func (s *Session) OrderID() string    { return s.order.ID }
func (s *Session) log() *logrus.Entry { return logrus.WithField("session_id", s.id) }

// Greeting is the name the customer is addressed by.
func (s *Session) Greeting() string {
	if s.order.CustomerName == "" {
		return "Visitor"
	}
	return s.order.CustomerName
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	st := State{
		ID:           s.id,
		OrderID:      s.order.ID,
		CustomerName: s.Greeting(),
		Stage:        s.stage,
		Export:       s.export,
		Items:        s.editor.Items().Items(),
		Result:       s.result,
	}
	if s.template != nil {
		t := *s.template
		st.Template = &t
	}
	if id, ok := s.editor.Selection().ID(); ok {
		st.SelectedID = id
	}
	return st
}

func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed, s.export == Idle
}

// do runs fn under the session lock after checking that the session is
// editable.
func (s *Session) do(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.deps.now()
	if s.export == Exporting {
		return ErrExportInProgress
	}
	if s.stage != Editing {
		return fmt.Errorf("%w: %s", ErrStage, s.stage)
	}
	return fn()
}

// Start leaves the landing screen.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.deps.now()
	if s.stage != Landing {
		return fmt.Errorf("%w: %s", ErrStage, s.stage)
	}
	s.stage = SelectTemplate
	return nil
}

// ChooseTemplate starts a new design on the template with the given id. The
// canvas starts with the default text item, selected.
func (s *Session) ChooseTemplate(id string) (templates.Template, error) {
	t, err := s.deps.Catalog.Find(id)
	if err != nil {
		return templates.Template{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.deps.now()
	if s.export == Exporting {
		return templates.Template{}, ErrExportInProgress
	}
	if s.stage != SelectTemplate && s.stage != Editing {
		return templates.Template{}, fmt.Errorf("%w: %s", ErrStage, s.stage)
	}

	s.template = &t
	s.editor.Reset(t.Clip())
	if err := s.editor.Add(canvas.NewTextItem(canvas.NewID(), t.Width, t.Height)); err != nil {
		return templates.Template{}, err
	}
	s.stage = Editing

	s.log().WithFields(logrus.Fields{
		"template_id": t.ID,
		"shape":       t.Shape,
	}).Info("Template chosen")
	return t, nil
}

// Back abandons the design and returns to template selection.
func (s *Session) Back() error {
	return s.do(func() error {
		s.editor.Reset(templates.Template{}.Clip())
		s.template = nil
		s.stage = SelectTemplate
		return nil
	})
}

// AddText adds the default text item and selects it.
func (s *Session) AddText() (canvas.Item, error) {
	var it canvas.Item
	err := s.do(func() error {
		it = canvas.NewTextItem(canvas.NewID(), s.template.Width, s.template.Height)
		return s.editor.Add(it)
	})
	return it, err
}

// AddImage adds an uploaded image with the default box and selects it.
func (s *Session) AddImage(raw []byte) (canvas.Item, error) {
	if len(raw) > canvas.MaxImageBytes {
		return canvas.Item{}, fmt.Errorf("%w: %d bytes", ErrImageTooLarge, len(raw))
	}
	var it canvas.Item
	err := s.do(func() error {
		var err error
		it, err = canvas.NewImageItem(canvas.NewID(), raw, s.template.Width, s.template.Height)
		if err != nil {
			return err
		}
		return s.editor.Add(it)
	})
	return it, err
}

// Select selects the item with the given id; "" deselects.
func (s *Session) Select(id string) error {
	return s.do(func() error { return s.editor.Select(id) })
}

// UpdateSelected merges patch into the selected item.
func (s *Session) UpdateSelected(patch canvas.Patch) error {
	return s.do(func() error { return s.editor.UpdateSelected(patch) })
}

// DeleteSelected removes the selected item, if any.
func (s *Session) DeleteSelected() error {
	return s.do(s.editor.DeleteSelected)
}

// MoveLayer moves the selected item one step in z-order and reports whether
// the order changed.
func (s *Session) MoveLayer(dir canvas.Direction) (bool, error) {
	var moved bool
	err := s.do(func() error {
		moved = s.editor.MoveLayer(dir)
		return nil
	})
	return moved, err
}

// Dispatch applies a gesture command.
func (s *Session) Dispatch(cmd canvas.Command) error {
	return s.do(func() error { return s.editor.Dispatch(cmd) })
}

// Render draws the current design at 1x with the selection overlay.
func (s *Session) Render() ([]byte, error) {
	s.mu.Lock()
	if s.template == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrStage, s.stage)
	}
	scene := s.sceneLocked()
	scene.Selection = s.editor.Selection()
	s.mu.Unlock()

	img, err := s.deps.Renderer.Render(scene, 1, true)
	if err != nil {
		return nil, err
	}
	return render.EncodePNG(img)
}

func (s *Session) sceneLocked() render.Scene {
	return render.Scene{Clip: s.editor.Clip(), Items: s.editor.Items()}
}

// Finish flattens the design, uploads the preview and persists the
// customization. Only one export runs at a time; a concurrent call gets
// ErrExportInProgress. On failure the session returns to Idle with its
// design untouched.
func (s *Session) Finish(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if s.export == Exporting {
		s.mu.Unlock()
		return nil, ErrExportInProgress
	}
	if s.stage != Editing {
		stage := s.stage
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrStage, stage)
	}
	s.export = Exporting
	scene := s.sceneLocked()
	tmpl := *s.template
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.export = Idle
		s.lastUsed = s.deps.now()
		s.mu.Unlock()
	}()

	log := s.log().WithField("order_id", s.order.ID)
	log.Info("Export started")
	res, err := s.exportDesign(ctx, scene, tmpl)
	if err != nil {
		log.WithError(err).Error("Export failed")
		return nil, fmt.Errorf("%w: %w", ErrExport, err)
	}

	s.mu.Lock()
	s.result = res
	s.stage = Completed
	s.editor.Deselect()
	s.mu.Unlock()
	log.WithFields(logrus.Fields{
		"customization_id": res.CustomizationID,
		"preview_url":      res.PreviewURL,
	}).Info("Export completed successfully")
	return res, nil
}

// exportDesign runs outside the session lock. A panic in a collaborator is
// returned as an error.
func (s *Session) exportDesign(ctx context.Context, scene render.Scene, tmpl templates.Template) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("panic during export: %v", r)
		}
	}()

	img, err := s.deps.Renderer.Flatten(scene)
	if err != nil {
		return nil, fmt.Errorf("flatten: %w", err)
	}
	png, err := render.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	url, err := s.deps.Previews.UploadPreview(ctx, core.PreviewKey(s.order.ID, s.deps.now()), png)
	if err != nil {
		return nil, fmt.Errorf("upload preview: %w", err)
	}

	design := canvas.NewDesign(scene.Items, tmpl.Width, tmpl.Height)
	c := &core.Customization{
		OrderID:    s.order.ID,
		Design:     design,
		PreviewURL: url,
	}
	if err := s.deps.Customizations.SaveCustomization(ctx, c); err != nil {
		return nil, fmt.Errorf("save customization: %w", err)
	}

	return &Result{
		CustomizationID: c.ID,
		Design:          design,
		PreviewURL:      url,
		RedirectURL:     s.deps.CheckoutURL,
		PNG:             png,
	}, nil
}
