// Package builder orchestrates a kit editing session. The Builder owns the
// lifecycle, serializes every mutation of the document, pushes undo
// snapshots through the state manager and reports results on the event bus.
//
// Every mutation is computed on a deep copy of the document and validated
// before it is committed, so an operation either applies completely or not
// at all. Events are emitted after the builder lock is released, which lets
// handlers call back into the builder.
package builder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/conneroisu/mediakit/internal/adapters"
	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/eventbus"
	"github.com/conneroisu/mediakit/internal/logging"
	"github.com/conneroisu/mediakit/internal/registry"
	"github.com/conneroisu/mediakit/internal/state"
	"github.com/conneroisu/mediakit/internal/types"
)

// Status is the builder lifecycle state.
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusInitializing  Status = "initializing"
	StatusReady         Status = "ready"
	StatusFailed        Status = "failed"
)

// Update groups accepted by UpdateComponent.
const (
	GroupContent = "content"
	GroupStyles  = "styles"
)

// Changes is a component update keyed by group then property. A nil value
// removes the property.
type Changes map[string]map[string]any

// Builder is one kit editing session.
type Builder struct {
	mu     sync.Mutex
	status Status
	kitID  string
	config types.Config

	registry *registry.Registry
	state    *state.Manager
	bus      *eventbus.Bus
	adapter  adapters.Adapter
	logger   logging.Logger
	errs     *errors.ErrorHandler

	sectionIDs *registry.IDGenerator
	version    string
	now        func() time.Time
	unsubs     []func()
	saving     bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithVersion sets the version stamped on saved payloads.
func WithVersion(v string) Option {
	return func(b *Builder) { b.version = v }
}

// WithKitID starts the session on an existing kit id.
func WithKitID(id string) Option {
	return func(b *Builder) { b.kitID = id }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// New wires a builder from its collaborators. The builder is unusable until
// Init succeeds.
func New(reg *registry.Registry, st *state.Manager, bus *eventbus.Bus, adapter adapters.Adapter, opts ...Option) *Builder {
	b := &Builder{
		status:     StatusUninitialized,
		registry:   reg,
		state:      st,
		bus:        bus,
		adapter:    adapter,
		logger:     logging.Discard(),
		sectionIDs: registry.NewIDGenerator("sec"),
		version:    "dev",
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.WithComponent("builder")
	b.errs = errors.NewErrorHandler(b.logger, eventbus.Notifier{Bus: bus})
	return b
}

// Init loads the adapter configuration and subscribes the builder to the
// requests it serves. It emits builder-ready or builder-failed.
func (b *Builder) Init(ctx context.Context) error {
	b.mu.Lock()
	if b.status != StatusUninitialized {
		status := b.status
		b.mu.Unlock()
		return errors.NewInvariantViolation(errors.ErrCodeNotReady,
			fmt.Sprintf("builder cannot initialize from %s", status))
	}
	b.status = StatusInitializing
	b.mu.Unlock()

	op := logging.StartOperation(b.logger, "builder.init")
	cfg, err := b.adapter.GetConfig(ctx)
	if err != nil {
		b.mu.Lock()
		b.status = StatusFailed
		b.mu.Unlock()
		op.EndWithError(ctx, err)
		b.bus.Emit(ctx, eventbus.BuilderFailed, eventbus.KitPayload{Message: err.Error(), Err: err})
		return fmt.Errorf("load builder config: %w", err)
	}

	b.mu.Lock()
	b.config = cfg
	if b.kitID == "" {
		b.kitID = cfg.KitID
	}
	b.status = StatusReady
	kitID := b.kitID
	b.mu.Unlock()

	if cfg.Theme != "" && b.state.GetState().Theme == "" {
		b.state.SetState(state.Patch{Theme: state.String(cfg.Theme)})
	}
	b.subscribe()

	op.End(ctx)
	b.logger.Info(ctx, "Builder ready", "kit_id", kitID, "components", b.registry.Count())
	b.bus.Emit(ctx, eventbus.BuilderReady, eventbus.KitPayload{KitID: kitID})
	return nil
}

func (b *Builder) subscribe() {
	b.unsubs = append(b.unsubs,
		b.bus.On(eventbus.ComponentUpdated, func(ctx context.Context, ev eventbus.Event) error {
			req, ok := ev.Payload.(eventbus.UpdateRequest)
			if !ok {
				return fmt.Errorf("unexpected %s payload %T", ev.Name, ev.Payload)
			}
			return b.UpdateComponent(ctx, req.ComponentID, Changes{req.Group: {req.Property: req.Value}})
		}),
		b.bus.On(eventbus.ComponentAddRequested, func(ctx context.Context, ev eventbus.Event) error {
			req, ok := ev.Payload.(eventbus.AddRequest)
			if !ok {
				return fmt.Errorf("unexpected %s payload %T", ev.Name, ev.Payload)
			}
			_, err := b.AddComponent(ctx, req.Type, req.Position, nil)
			return err
		}),
	)

	host, ok := b.adapter.(adapters.Notifier)
	if !ok {
		return
	}
	b.unsubs = append(b.unsubs,
		host.On(adapters.HostSaveRequested, func(ctx context.Context, _ string) {
			b.bus.Emit(ctx, eventbus.SaveRequested, eventbus.KitPayload{KitID: b.KitID()})
			_, _ = b.Save(ctx)
		}),
		host.On(adapters.HostLoadRequested, func(ctx context.Context, kitID string) {
			b.bus.Emit(ctx, eventbus.LoadRequested, eventbus.KitPayload{KitID: kitID})
			_ = b.Load(ctx, kitID)
		}),
	)
}

// Close drops the builder's subscriptions.
func (b *Builder) Close() {
	b.mu.Lock()
	unsubs := b.unsubs
	b.unsubs = nil
	b.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
}

// Status returns the lifecycle state.
func (b *Builder) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// KitID returns the id of the kit being edited, empty before the first save.
func (b *Builder) KitID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.kitID
}

// Config returns the configuration loaded by Init.
func (b *Builder) Config() types.Config {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.config
}

// Registry returns the component registry.
func (b *Builder) Registry() *registry.Registry { return b.registry }

// Bus returns the event bus.
func (b *Builder) Bus() *eventbus.Bus { return b.bus }

// State returns a copy of the current state.
func (b *Builder) State() state.State { return b.state.GetState() }

// Document returns a copy of the current document.
func (b *Builder) Document() types.Document { return b.state.GetState().Document() }

// GetComponent returns the component with id and where it lives.
func (b *Builder) GetComponent(id string) (types.Component, types.Location, error) {
	c, loc, ok := b.Document().FindComponent(id)
	if !ok {
		return types.Component{}, types.Location{}, errors.ErrComponentNotFound(id)
	}
	return c, loc, nil
}

// Selected returns the selected component, if any.
func (b *Builder) Selected() (types.Component, bool) {
	st := b.state.GetState()
	if st.SelectedElement == "" {
		return types.Component{}, false
	}
	c, _, ok := st.Document().FindComponent(st.SelectedElement)
	return c, ok
}

type emission struct {
	name    string
	payload any
}

// mutation computes one undoable change on doc, a private copy of the
// document. It may also change the selection through sel.
type mutation func(doc *types.Document, sel *selection) (label string, events []emission, err error)

type selection struct {
	element, section string
}

// readyLocked fails unless the builder is ready.
func (b *Builder) readyLocked() error {
	if b.status != StatusReady {
		return errors.NewInvariantViolation(errors.ErrCodeNotReady,
			fmt.Sprintf("builder is %s", b.status))
	}
	return nil
}

// mutate runs fn against a copy of the document and commits the result as
// one undo step.
func (b *Builder) mutate(ctx context.Context, op string, fn mutation) error {
	b.mu.Lock()
	if err := b.readyLocked(); err != nil {
		b.mu.Unlock()
		return b.fail(ctx, op, err)
	}
	st := b.state.GetState()
	doc := st.Document()
	sel := selection{element: st.SelectedElement, section: st.SelectedSection}
	before := sel

	label, events, err := fn(&doc, &sel)
	if err == nil {
		err = checkDocument(doc)
	}
	if err != nil {
		b.mu.Unlock()
		return b.fail(ctx, op, err)
	}

	patch := state.Patch{Sections: state.Sections(doc.Sections)}
	if sel != before {
		patch.SelectedElement = state.String(sel.element)
		patch.SelectedSection = state.String(sel.section)
	}
	b.state.Commit(label, patch)
	b.mu.Unlock()

	b.logger.Debug(ctx, "Applied mutation", "operation", op, "label", label)
	b.emitAll(ctx, events)
	if sel.element != before.element && before.element != "" {
		b.bus.Emit(ctx, eventbus.ComponentDeselected, eventbus.SelectionPayload{ComponentID: before.element})
	}
	b.emitState(ctx, eventbus.StateChanged)
	return nil
}

// checkDocument enforces document-wide invariants.
func checkDocument(doc types.Document) error {
	if dups := doc.DuplicateIDs(); len(dups) > 0 {
		return errors.NewInvariantViolation(errors.ErrCodeDuplicateID,
			fmt.Sprintf("duplicate ids in document: %v", dups))
	}
	for _, s := range doc.Sections {
		if !s.Layout.Valid() {
			return errors.NewValidationError(errors.ErrCodeValidationFailed, "invalid section layout",
				errors.Issue{Path: "sections." + s.ID + ".layout", Message: fmt.Sprintf("unknown layout %q", s.Layout)})
		}
		if keys := s.Misplaced(); len(keys) > 0 {
			issues := make([]errors.Issue, len(keys))
			for i, k := range keys {
				path := "sections." + s.ID + ".components"
				if k != "" {
					path += "." + k
				}
				issues[i] = errors.Issue{Path: path, Message: fmt.Sprintf("is not a column of layout %s", s.Layout)}
			}
			return errors.NewValidationError(errors.ErrCodeValidationFailed, "components outside the section layout", issues...)
		}
	}
	return nil
}

func (b *Builder) emitAll(ctx context.Context, events []emission) {
	for _, e := range events {
		b.bus.Emit(ctx, e.name, e.payload)
	}
}

func (b *Builder) emitState(ctx context.Context, name string) {
	st := b.state.GetState()
	b.bus.Emit(ctx, name, eventbus.StatePayload{
		Revision: st.Revision,
		IsDirty:  st.IsDirty,
		CanUndo:  st.CanUndo(),
		CanRedo:  st.CanRedo(),
	})
}

// fail reports a rejected operation and returns err. Invariant violations
// are user-facing warnings; everything else goes to the error channel.
func (b *Builder) fail(ctx context.Context, op string, err error) error {
	var be *errors.BuilderError
	if !errors.As(err, &be) {
		be = errors.NewInternalError(errors.ErrCodeInternalError, op+" failed", err)
		err = be
	}
	be.WithContext("operation", op)

	if be.Type == errors.ErrorTypeInvariant {
		b.logger.Warn(ctx, be, "Operation rejected", "operation", op, "code", be.Code)
		b.bus.Emit(ctx, eventbus.Warning, eventbus.WarningPayload{Code: be.Code, Message: be.Message, ComponentID: be.Component})
		return err
	}
	b.errs.Handle(ctx, be)
	return err
}
