package eventbus

import (
	"context"

	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/types"
)

// Event names.
const (
	ComponentRegistered   = "component-registered"
	ComponentCreated      = "component-created"
	ComponentAddRequested = "component-add-requested"
	ComponentAdded        = "component-added"
	ComponentUpdated      = "component-updated"
	ComponentChanged      = "component-changed"
	ComponentRemoved      = "component-removed"
	ComponentMoved        = "component-moved"
	ComponentDuplicated   = "component-duplicated"
	ComponentSelected     = "component-selected"
	ComponentDeselected   = "component-deselected"
	SectionAdded          = "section-added"
	SectionRemoved        = "section-removed"
	SectionMoved          = "section-moved"
	TemplateApplied       = "template-applied"
	TemplatesReloaded     = "templates-reloaded"
	StateChanged          = "state-changed"
	Undo                  = "undo"
	Redo                  = "redo"
	SaveRequested         = "save-requested"
	SaveStarted           = "save-started"
	SaveCompleted         = "save-completed"
	SaveFailed            = "save-failed"
	LoadRequested         = "load-requested"
	LoadCompleted         = "load-completed"
	LoadFailed            = "load-failed"
	ExportCompleted       = "export-completed"
	ExportFailed          = "export-failed"
	DragStarted           = "drag-started"
	DragEnded             = "drag-ended"
	PreviewToggled        = "preview-toggled"
	BuilderReady          = "builder-ready"
	BuilderFailed         = "builder-failed"
	Warning               = "warning"
	Error                 = "error"
)

// ComponentPayload accompanies added, changed, created and duplicated events.
type ComponentPayload struct {
	Component types.Component `json:"component"`
	Location  types.Location  `json:"location"`
	SourceID  string          `json:"sourceId,omitempty"`
}

// RemovedPayload accompanies component-removed.
type RemovedPayload struct {
	ComponentID string         `json:"componentId"`
	Location    types.Location `json:"location"`
}

// MovePayload accompanies component-moved.
type MovePayload struct {
	ComponentID string         `json:"componentId"`
	From        types.Location `json:"from"`
	To          types.Location `json:"to"`
}

// UpdateRequest is the minimal delta the design panel emits on
// component-updated.
type UpdateRequest struct {
	ComponentID string `json:"componentId"`
	Group       string `json:"group"`
	Property    string `json:"property"`
	Value       any    `json:"value"`
}

// AddRequest is emitted by the palette on component-add-requested.
type AddRequest struct {
	Type     string          `json:"type"`
	Position *types.Position `json:"position,omitempty"`
}

// SelectionPayload accompanies component-selected and component-deselected.
type SelectionPayload struct {
	ComponentID string `json:"componentId,omitempty"`
	SectionID   string `json:"sectionId,omitempty"`
}

// SectionPayload accompanies section events.
type SectionPayload struct {
	SectionID string `json:"sectionId"`
	Index     int    `json:"index"`
	Layout    string `json:"layout,omitempty"`
}

// TemplatePayload accompanies template-applied and templates-reloaded.
type TemplatePayload struct {
	Name  string `json:"name,omitempty"`
	Count int    `json:"count,omitempty"`
}

// StatePayload accompanies state-changed, undo and redo.
type StatePayload struct {
	Revision uint64 `json:"revision"`
	IsDirty  bool   `json:"isDirty"`
	CanUndo  bool   `json:"canUndo"`
	CanRedo  bool   `json:"canRedo"`
}

// KitPayload accompanies save, load and host request events. Err is set on
// the failure variants.
type KitPayload struct {
	KitID   string `json:"kitId,omitempty"`
	Message string `json:"message,omitempty"`
	Err     error  `json:"-"`
}

// ExportPayload accompanies export events.
type ExportPayload struct {
	Format  string             `json:"format"`
	Result  types.ExportResult `json:"result"`
	Message string             `json:"message,omitempty"`
	Err     error              `json:"-"`
}

// DragPayload accompanies drag events.
type DragPayload struct {
	Kind        string          `json:"kind"`
	Type        string          `json:"type,omitempty"`
	ComponentID string          `json:"componentId,omitempty"`
	Target      *types.Position `json:"target,omitempty"`
}

// PreviewPayload accompanies preview-toggled.
type PreviewPayload struct {
	Enabled bool `json:"enabled"`
}

// WarningPayload is a user-visible warning; state was not mutated.
type WarningPayload struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	ComponentID string `json:"componentId,omitempty"`
}

// ErrorPayload routes an error to listeners of the error channel.
type ErrorPayload struct {
	Operation string         `json:"operation,omitempty"`
	Type      string         `json:"type"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Issues    []errors.Issue `json:"issues,omitempty"`
	Err       error          `json:"-"`
}

// NewErrorPayload describes err for the error channel.
func NewErrorPayload(operation string, err error) ErrorPayload {
	p := ErrorPayload{Operation: operation, Err: err, Message: err.Error(), Type: string(errors.ErrorTypeInternal)}
	var be *errors.BuilderError
	if errors.As(err, &be) {
		p.Type = string(be.Type)
		p.Code = be.Code
		p.Message = be.Error()
		p.Issues = be.Issues
	}
	return p
}

// Notifier adapts the bus to errors.Notifier by emitting on the error channel.
type Notifier struct {
	Bus *Bus
}

// NotifyError emits err as an error event. The operation is taken from the
// error's "operation" context value.
func (n Notifier) NotifyError(ctx context.Context, err *errors.BuilderError) error {
	op, _ := err.Context["operation"].(string)
	n.Bus.Emit(ctx, Error, NewErrorPayload(op, err))
	return nil
}
