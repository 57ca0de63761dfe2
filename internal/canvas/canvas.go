// Package canvas is the editing surface of the builder. It renders the
// document with editor chrome, runs drag-and-drop sessions and routes the
// per-component controls to the builder.
package canvas

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/a-h/templ"

	"github.com/conneroisu/mediakit/internal/builder"
	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/eventbus"
	"github.com/conneroisu/mediakit/internal/logging"
	"github.com/conneroisu/mediakit/internal/registry"
	"github.com/conneroisu/mediakit/internal/renderer"
	"github.com/conneroisu/mediakit/internal/types"
)

// Editor is the subset of the builder the canvas drives.
type Editor interface {
	Document() types.Document
	Registry() *registry.Registry
	Selected() (types.Component, bool)
	GetComponent(id string) (types.Component, types.Location, error)
	AddComponent(ctx context.Context, componentType string, pos *types.Position, content map[string]any) (types.Component, error)
	UpdateComponent(ctx context.Context, id string, changes builder.Changes) error
	RemoveComponent(ctx context.Context, id string) error
	MoveComponentToPosition(ctx context.Context, id string, pos types.Position) error
	MoveComponentUp(ctx context.Context, id string) error
	MoveComponentDown(ctx context.Context, id string) error
	DuplicateComponent(ctx context.Context, id string) (types.Component, error)
	SelectComponent(ctx context.Context, id string) error
	ClearSelection(ctx context.Context) error
	AddListItem(ctx context.Context, id string, index int, value any) error
	RemoveListItem(ctx context.Context, id string, index int) error
}

// Gate decides whether a component type may be dropped from the palette.
// *palette.Palette implements it.
type Gate interface {
	CanAdd(componentType string) error
}

// Canvas renders the document and handles the gestures made on it.
type Canvas struct {
	mu      sync.Mutex
	drag    *DragState
	preview bool

	editor   Editor
	renderer *renderer.ComponentRenderer
	bus      *eventbus.Bus
	logger   logging.Logger
	gate     Gate
	unsub    func()
}

// Option configures a Canvas.
type Option func(*Canvas)

// WithGate rejects palette drags of types the gate refuses, such as premium
// types on a free plan.
func WithGate(g Gate) Option {
	return func(c *Canvas) { c.gate = g }
}

// New creates a canvas over editor. The canvas follows preview-toggled
// events on bus until Close.
func New(editor Editor, r *renderer.ComponentRenderer, bus *eventbus.Bus, logger logging.Logger, opts ...Option) *Canvas {
	if logger == nil {
		logger = logging.Discard()
	}
	c := &Canvas{
		editor:   editor,
		renderer: r,
		bus:      bus,
		logger:   logger.WithComponent("canvas"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.unsub = bus.On(eventbus.PreviewToggled, func(ctx context.Context, ev eventbus.Event) error {
		p, ok := ev.Payload.(eventbus.PreviewPayload)
		if !ok {
			return fmt.Errorf("unexpected %s payload %T", ev.Name, ev.Payload)
		}
		c.mu.Lock()
		c.preview = p.Enabled
		c.mu.Unlock()
		if p.Enabled {
			c.CancelDrag(ctx)
		}
		return nil
	})
	return c
}

// Close stops following bus events.
func (c *Canvas) Close() { c.unsub() }

// Preview reports whether the canvas renders without editor chrome.
func (c *Canvas) Preview() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preview
}

// View returns the canvas markup for the current document.
func (c *Canvas) View() templ.Component {
	c.mu.Lock()
	opts := renderer.Options{Editable: !c.preview, DragActive: c.drag != nil}
	c.mu.Unlock()
	if sel, ok := c.editor.Selected(); ok {
		opts.Selected = sel.ID
	}
	return c.renderer.Document(c.editor.Document(), opts)
}

// Render writes the canvas markup to w.
func (c *Canvas) Render(ctx context.Context, w io.Writer) error {
	return c.View().Render(ctx, w)
}

// DropZone is an insertion point: Index counts the gaps of the rendered
// list, from 0 before the first component to len(list) after the last.
type DropZone struct {
	SectionID string `json:"sectionId"`
	Column    string `json:"column,omitempty"`
	Index     int    `json:"index"`
}

// DropZones enumerates every insertion point of doc in render order.
func DropZones(doc types.Document) []DropZone {
	var zones []DropZone
	for _, s := range doc.Sections {
		for _, col := range s.ColumnKeys() {
			list, _ := s.List(col)
			for i := 0; i <= len(list); i++ {
				zones = append(zones, DropZone{SectionID: s.ID, Column: col, Index: i})
			}
		}
	}
	return zones
}

// Action names accepted by Do. They match the data-action attributes of the
// rendered controls.
const (
	ActionSelect    = renderer.ActionSelect
	ActionMoveUp    = renderer.ActionMoveUp
	ActionMoveDown  = renderer.ActionMoveDown
	ActionDuplicate = renderer.ActionDuplicate
	ActionDelete    = renderer.ActionDelete
)

// Do runs the per-component control named action against id.
func (c *Canvas) Do(ctx context.Context, action, id string) error {
	switch action {
	case ActionSelect:
		return c.Select(ctx, id)
	case ActionMoveUp:
		return c.MoveUp(ctx, id)
	case ActionMoveDown:
		return c.MoveDown(ctx, id)
	case ActionDuplicate:
		_, err := c.Duplicate(ctx, id)
		return err
	case ActionDelete:
		return c.Delete(ctx, id)
	default:
		return errors.NewValidationError(errors.ErrCodeValidationFailed, "unknown canvas action",
			errors.Issue{Path: "action", Message: fmt.Sprintf("%q is not a control", action)})
	}
}

// Select makes id the selected component. An empty id clears the selection.
func (c *Canvas) Select(ctx context.Context, id string) error {
	if id == "" {
		return c.editor.ClearSelection(ctx)
	}
	return c.editor.SelectComponent(ctx, id)
}

// MoveUp moves id one place towards the top of its list.
func (c *Canvas) MoveUp(ctx context.Context, id string) error {
	return c.editor.MoveComponentUp(ctx, id)
}

// MoveDown moves id one place towards the bottom of its list.
func (c *Canvas) MoveDown(ctx context.Context, id string) error {
	return c.editor.MoveComponentDown(ctx, id)
}

// Duplicate copies id in place.
func (c *Canvas) Duplicate(ctx context.Context, id string) (types.Component, error) {
	return c.editor.DuplicateComponent(ctx, id)
}

// Delete removes id.
func (c *Canvas) Delete(ctx context.Context, id string) error {
	return c.editor.RemoveComponent(ctx, id)
}

// AddItem inserts value into id's item list at index.
func (c *Canvas) AddItem(ctx context.Context, id string, index int, value any) error {
	return c.editor.AddListItem(ctx, id, index, value)
}

// RemoveItem removes the item at index from id's item list.
func (c *Canvas) RemoveItem(ctx context.Context, id string, index int) error {
	return c.editor.RemoveListItem(ctx, id, index)
}
