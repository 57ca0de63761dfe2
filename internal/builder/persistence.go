package builder

import (
	"context"

	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/eventbus"
	"github.com/conneroisu/mediakit/internal/logging"
	"github.com/conneroisu/mediakit/internal/types"
)

// Undo restores the previous document. It reports false when there is
// nothing to undo.
func (b *Builder) Undo(ctx context.Context) (bool, error) {
	return b.history(ctx, "undo", eventbus.Undo, b.state.Undo)
}

// Redo re-applies the last undone change. It reports false when there is
// nothing to redo.
func (b *Builder) Redo(ctx context.Context) (bool, error) {
	return b.history(ctx, "redo", eventbus.Redo, b.state.Redo)
}

func (b *Builder) history(ctx context.Context, op, event string, step func() bool) (bool, error) {
	b.mu.Lock()
	if err := b.readyLocked(); err != nil {
		b.mu.Unlock()
		return false, b.fail(ctx, op, err)
	}
	previous := b.state.GetState().SelectedElement
	moved := step()
	current := b.state.GetState().SelectedElement
	b.mu.Unlock()

	if !moved {
		return false, nil
	}
	b.emitState(ctx, event)
	if previous != current {
		if previous != "" {
			b.bus.Emit(ctx, eventbus.ComponentDeselected, eventbus.SelectionPayload{ComponentID: previous})
		}
		if current != "" {
			b.bus.Emit(ctx, eventbus.ComponentSelected, eventbus.SelectionPayload{ComponentID: current})
		}
	}
	b.emitState(ctx, eventbus.StateChanged)
	return true, nil
}

// Save persists the current document through the adapter and returns the
// kit id. The state is marked clean only when nothing changed while the
// adapter was working; a failed save leaves it dirty. Saves do not overlap:
// a call made while one is running fails with ERR_SAVE_IN_PROGRESS.
func (b *Builder) Save(ctx context.Context) (string, error) {
	b.mu.Lock()
	if err := b.readyLocked(); err != nil {
		b.mu.Unlock()
		return "", b.fail(ctx, "save", err)
	}
	if b.saving {
		b.mu.Unlock()
		return "", b.fail(ctx, "save", errors.NewInvariantViolation(errors.ErrCodeSaveInProgress, "a save is already in progress"))
	}
	b.saving = true
	st := b.state.GetState()
	kitID := b.kitID
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.saving = false
		b.mu.Unlock()
	}()

	b.bus.Emit(ctx, eventbus.SaveStarted, eventbus.KitPayload{KitID: kitID})
	op := logging.StartOperation(b.logger, "builder.save")

	id, err := b.adapter.Save(ctx, types.SavePayload{
		ID:        kitID,
		State:     st.Document(),
		Version:   b.version,
		Timestamp: b.now(),
	})
	if err != nil {
		op.EndWithError(ctx, err)
		b.bus.Emit(ctx, eventbus.SaveFailed, eventbus.KitPayload{KitID: kitID, Message: err.Error(), Err: err})
		return "", b.fail(ctx, "save", err)
	}

	b.mu.Lock()
	b.kitID = id
	b.mu.Unlock()
	if !b.state.MarkSaved(st.Revision) {
		b.logger.Info(ctx, "Document changed during save, staying dirty", "kit_id", id, "revision", st.Revision)
	}

	op.End(ctx)
	b.bus.Emit(ctx, eventbus.SaveCompleted, eventbus.KitPayload{KitID: id})
	b.emitState(ctx, eventbus.StateChanged)
	return id, nil
}

// Load replaces the document with the stored kit id. Every component is
// validated first; on any failure the current state is left untouched.
func (b *Builder) Load(ctx context.Context, id string) error {
	b.mu.Lock()
	if err := b.readyLocked(); err != nil {
		b.mu.Unlock()
		return b.fail(ctx, "load", err)
	}
	b.mu.Unlock()

	op := logging.StartOperation(b.logger, "builder.load")
	res, err := b.adapter.Load(ctx, id)
	if err == nil {
		err = b.validateDocument(res.State)
	}
	if err != nil {
		op.EndWithError(ctx, err)
		b.bus.Emit(ctx, eventbus.LoadFailed, eventbus.KitPayload{KitID: id, Message: err.Error(), Err: err})
		return b.fail(ctx, "load", err)
	}
	if res.ID == "" {
		res.ID = id
	}

	b.mu.Lock()
	previous := b.state.GetState().SelectedElement
	b.state.Reset(res.State)
	b.kitID = res.ID
	b.mu.Unlock()

	op.End(ctx)
	if previous != "" {
		b.bus.Emit(ctx, eventbus.ComponentDeselected, eventbus.SelectionPayload{ComponentID: previous})
	}
	b.bus.Emit(ctx, eventbus.LoadCompleted, eventbus.KitPayload{KitID: res.ID})
	b.emitState(ctx, eventbus.StateChanged)
	return nil
}

func (b *Builder) validateDocument(doc types.Document) error {
	if err := checkDocument(doc); err != nil {
		return err
	}
	for _, c := range doc.Components() {
		if err := b.registry.ValidateComponent(c); err != nil {
			return err
		}
	}
	return nil
}

// Export renders the current document through the adapter.
func (b *Builder) Export(ctx context.Context, format types.ExportFormat) (types.ExportResult, error) {
	b.mu.Lock()
	if err := b.readyLocked(); err != nil {
		b.mu.Unlock()
		return types.ExportResult{}, b.fail(ctx, "export", err)
	}
	b.mu.Unlock()

	res, err := b.adapter.Export(ctx, b.Document(), format)
	if err != nil {
		var be *errors.BuilderError
		if !errors.As(err, &be) {
			be = errors.NewAdapterError(errors.ErrCodeExportFailed, "export "+string(format), err)
			err = be
		}
		b.bus.Emit(ctx, eventbus.ExportFailed, eventbus.ExportPayload{Format: string(format), Message: err.Error(), Err: err})
		return types.ExportResult{}, b.fail(ctx, "export", err)
	}
	b.bus.Emit(ctx, eventbus.ExportCompleted, eventbus.ExportPayload{Format: string(format), Result: res})
	return res, nil
}
