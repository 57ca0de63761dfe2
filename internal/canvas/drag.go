package canvas

import (
	"context"
	"time"

	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/eventbus"
	"github.com/conneroisu/mediakit/internal/types"
)

// DragKind tells palette drags from component drags.
type DragKind string

const (
	DragPalette   DragKind = "palette"
	DragComponent DragKind = "component"
)

// DragState is the open drag session.
type DragState struct {
	Kind        DragKind       `json:"kind"`
	Type        string         `json:"type,omitempty"`
	ComponentID string         `json:"componentId,omitempty"`
	Origin      types.Location `json:"origin"`
	StartedAt   time.Time      `json:"startedAt"`
}

// Drag returns the open session, if any.
func (c *Canvas) Drag() (DragState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drag == nil {
		return DragState{}, false
	}
	return *c.drag, true
}

func (c *Canvas) begin(ctx context.Context, d DragState) error {
	c.mu.Lock()
	if c.preview {
		c.mu.Unlock()
		return errors.NewInvariantViolation(errors.ErrCodeDragActive, "cannot drag in preview mode")
	}
	if c.drag != nil {
		c.mu.Unlock()
		return errors.NewInvariantViolation(errors.ErrCodeDragActive, "a drag is already in progress")
	}
	d.StartedAt = time.Now()
	c.drag = &d
	c.mu.Unlock()

	c.bus.Emit(ctx, eventbus.DragStarted, eventbus.DragPayload{Kind: string(d.Kind), Type: d.Type, ComponentID: d.ComponentID})
	return nil
}

// StartPaletteDrag opens a session that adds a componentType on drop.
// Types the gate refuses never start a drag.
func (c *Canvas) StartPaletteDrag(ctx context.Context, componentType string) error {
	if err := c.allowed(componentType); err != nil {
		c.logger.Info(ctx, "Refused palette drag", "type", componentType, "error", err.Error())
		return err
	}
	return c.begin(ctx, DragState{Kind: DragPalette, Type: componentType})
}

func (c *Canvas) allowed(componentType string) error {
	if c.gate == nil {
		return nil
	}
	return c.gate.CanAdd(componentType)
}

// StartComponentDrag opens a session that moves component id on drop.
func (c *Canvas) StartComponentDrag(ctx context.Context, id string) error {
	comp, loc, err := c.editor.GetComponent(id)
	if err != nil {
		return err
	}
	return c.begin(ctx, DragState{Kind: DragComponent, Type: comp.Type, ComponentID: id, Origin: loc})
}

// CancelDrag closes the session without changing the document.
func (c *Canvas) CancelDrag(ctx context.Context) {
	if d, ok := c.take(); ok {
		c.bus.Emit(ctx, eventbus.DragEnded, eventbus.DragPayload{Kind: string(d.Kind), Type: d.Type, ComponentID: d.ComponentID})
	}
}

func (c *Canvas) take() (DragState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drag == nil {
		return DragState{}, false
	}
	d := *c.drag
	c.drag = nil
	return d, true
}

// Drop ends the session on zone. A palette drop adds a component there, a
// component drop moves the dragged component there. The session is closed
// whether or not the builder accepts the change.
func (c *Canvas) Drop(ctx context.Context, zone DropZone) error {
	d, ok := c.take()
	if !ok {
		return errors.NewInvariantViolation(errors.ErrCodeNoDrag, "no drag in progress")
	}
	pos := types.Position{SectionID: zone.SectionID, Column: zone.Column, Index: zone.Index}
	defer c.bus.Emit(ctx, eventbus.DragEnded, eventbus.DragPayload{Kind: string(d.Kind), Type: d.Type, ComponentID: d.ComponentID, Target: &pos})

	switch d.Kind {
	case DragPalette:
		if !c.editor.Registry().Has(d.Type) {
			err := errors.ErrUnknownType(d.Type)
			c.logger.Error(ctx, err, "Dropped unregistered component type", "type", d.Type)
			c.bus.Emit(ctx, eventbus.Warning, eventbus.WarningPayload{Code: err.Code, Message: err.Message})
			return err
		}
		if err := c.allowed(d.Type); err != nil {
			return err
		}
		_, err := c.editor.AddComponent(ctx, d.Type, &pos, nil)
		return err
	default:
		target, moved, err := c.moveTarget(d.ComponentID, zone)
		if err != nil || !moved {
			return err
		}
		return c.editor.MoveComponentToPosition(ctx, d.ComponentID, target)
	}
}

// moveTarget converts a drop zone into the final index of the dragged
// component. Zones after the component's own slot shift down by one because
// the component leaves the list first. It reports false when the drop would
// leave the component where it is.
func (c *Canvas) moveTarget(id string, zone DropZone) (types.Position, bool, error) {
	_, loc, err := c.editor.GetComponent(id)
	if err != nil {
		return types.Position{}, false, err
	}
	pos := types.Position{SectionID: zone.SectionID, Column: zone.Column, Index: zone.Index}

	doc := c.editor.Document()
	si := doc.SectionIndex(zone.SectionID)
	if si < 0 {
		return types.Position{}, false, errors.ErrSectionNotFound(zone.SectionID)
	}
	col, ok := doc.Sections[si].ResolveColumn(zone.Column)
	if !ok || loc.SectionID != zone.SectionID || col != loc.Column {
		return pos, true, nil
	}
	if zone.Index > loc.Index {
		pos.Index--
	}
	return pos, pos.Index != loc.Index, nil
}
