// Package controls is the builder toolbar: save, undo, redo, preview and
// export triggers plus the status and notice shown next to them.
package controls

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/eventbus"
	"github.com/conneroisu/mediakit/internal/logging"
	"github.com/conneroisu/mediakit/internal/state"
	"github.com/conneroisu/mediakit/internal/types"
)

// ErrSaveInProgress is returned when a save is requested while another is
// running. Match it with errors.Is.
var ErrSaveInProgress = errors.NewInvariantViolation(errors.ErrCodeSaveInProgress, "a save is already in progress")

// Editor is the part of the builder the toolbar drives.
type Editor interface {
	State() state.State
	Save(ctx context.Context) (string, error)
	Undo(ctx context.Context) (bool, error)
	Redo(ctx context.Context) (bool, error)
	Export(ctx context.Context, format types.ExportFormat) (types.ExportResult, error)
}

// NoticeKind classifies a notice.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Retryable actions.
const (
	ActionSave   = "save"
	ActionExport = "export"
)

// Notice is the message shown after a save or export. Retry names the
// action Retry re-runs; it is empty for notices that cannot be retried.
type Notice struct {
	Kind    NoticeKind         `json:"kind"`
	Message string             `json:"message"`
	Retry   string             `json:"retry,omitempty"`
	Format  types.ExportFormat `json:"format,omitempty"`
	URL     string             `json:"url,omitempty"`
	At      time.Time          `json:"at"`
}

// Status is the toolbar state.
type Status struct {
	CanUndo   bool       `json:"canUndo"`
	CanRedo   bool       `json:"canRedo"`
	IsDirty   bool       `json:"isDirty"`
	Saving    bool       `json:"saving"`
	Preview   bool       `json:"preview"`
	LastSaved *time.Time `json:"lastSaved,omitempty"`
	Notice    *Notice    `json:"notice,omitempty"`
}

// Controls is the toolbar.
type Controls struct {
	mu        sync.Mutex
	saving    bool
	preview   bool
	lastSaved time.Time
	notice    *Notice

	editor Editor
	bus    *eventbus.Bus
	logger logging.Logger
	now    func() time.Time
	unsubs []func()
}

// Option configures Controls.
type Option func(*Controls)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Controls) { c.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controls) { c.now = now }
}

// New creates the toolbar. Save results are tracked from bus events, so
// saves requested by the host show up too.
func New(editor Editor, bus *eventbus.Bus, opts ...Option) *Controls {
	c := &Controls{
		editor: editor,
		bus:    bus,
		logger: logging.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("controls")

	c.unsubs = append(c.unsubs,
		bus.On(eventbus.SaveCompleted, func(context.Context, eventbus.Event) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.lastSaved = c.now()
			c.notice = &Notice{Kind: NoticeSuccess, Message: "Saved", At: c.lastSaved}
			return nil
		}),
		bus.On(eventbus.SaveFailed, func(_ context.Context, ev eventbus.Event) error {
			p, _ := ev.Payload.(eventbus.KitPayload)
			c.saveFailed(p.Message)
			return nil
		}),
	)
	return c
}

// Close drops the bus subscriptions.
func (c *Controls) Close() {
	for _, u := range c.unsubs {
		u()
	}
	c.unsubs = nil
}

func (c *Controls) saveFailed(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice = &Notice{Kind: NoticeError, Message: "Save failed: " + msg, Retry: ActionSave, At: c.now()}
}

// Status returns the toolbar state.
func (c *Controls) Status() Status {
	st := c.editor.State()
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Status{
		CanUndo: st.CanUndo(),
		CanRedo: st.CanRedo(),
		IsDirty: st.IsDirty,
		Saving:  c.saving,
		Preview: c.preview,
	}
	if !c.lastSaved.IsZero() {
		t := c.lastSaved
		s.LastSaved = &t
	}
	if c.notice != nil {
		n := *c.notice
		s.Notice = &n
	}
	return s
}

// Save saves the kit. Only one save runs at a time; a second caller gets
// ErrSaveInProgress.
func (c *Controls) Save(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.saving {
		c.mu.Unlock()
		return "", ErrSaveInProgress
	}
	c.saving = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.saving = false
		c.mu.Unlock()
	}()

	id, err := c.editor.Save(ctx)
	if err != nil {
		c.logger.Warn(ctx, err, "Save failed")
		c.saveFailed(err.Error())
		return "", err
	}
	return id, nil
}

// SaveIfDirty saves when there are unsaved changes and no save is running.
// It reports whether a save happened.
func (c *Controls) SaveIfDirty(ctx context.Context) (bool, error) {
	if !c.editor.State().IsDirty {
		return false, nil
	}
	if _, err := c.Save(ctx); err != nil {
		if errors.Is(err, ErrSaveInProgress) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Undo steps back one change.
func (c *Controls) Undo(ctx context.Context) (bool, error) {
	return c.editor.Undo(ctx)
}

// Redo re-applies one undone change.
func (c *Controls) Redo(ctx context.Context) (bool, error) {
	return c.editor.Redo(ctx)
}

// Preview reports whether preview mode is on.
func (c *Controls) Preview() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preview
}

// TogglePreview flips preview mode and returns the new value.
func (c *Controls) TogglePreview(ctx context.Context) bool {
	c.mu.Lock()
	on := !c.preview
	c.mu.Unlock()
	c.SetPreview(ctx, on)
	return on
}

// SetPreview turns preview mode on or off, emitting preview-toggled on a
// change.
func (c *Controls) SetPreview(ctx context.Context, on bool) {
	c.mu.Lock()
	changed := c.preview != on
	c.preview = on
	c.mu.Unlock()
	if changed {
		c.bus.Emit(ctx, eventbus.PreviewToggled, eventbus.PreviewPayload{Enabled: on})
	}
}

// Export exports the kit and leaves a notice with the result.
func (c *Controls) Export(ctx context.Context, format types.ExportFormat) (types.ExportResult, error) {
	res, err := c.editor.Export(ctx, format)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.notice = &Notice{
			Kind:    NoticeError,
			Message: fmt.Sprintf("Export to %s failed: %v", format, err),
			Retry:   ActionExport,
			Format:  format,
			At:      c.now(),
		}
		var be *errors.BuilderError
		if errors.As(err, &be) && be.Code == errors.ErrCodeUnsupportedFormat {
			c.notice.Retry = ""
		}
		return types.ExportResult{}, err
	}
	c.notice = &Notice{Kind: NoticeSuccess, Message: "Exported " + res.Filename, Format: format, URL: res.URL, At: c.now()}
	return res, nil
}

// Retry re-runs the action of the current notice. It does nothing when the
// notice cannot be retried.
func (c *Controls) Retry(ctx context.Context) error {
	c.mu.Lock()
	n := c.notice
	c.mu.Unlock()
	if n == nil {
		return nil
	}
	switch n.Retry {
	case ActionSave:
		_, err := c.Save(ctx)
		return err
	case ActionExport:
		_, err := c.Export(ctx, n.Format)
		return err
	}
	return nil
}

// DismissNotice clears the current notice.
func (c *Controls) DismissNotice() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice = nil
}
