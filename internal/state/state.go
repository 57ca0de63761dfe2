// Package state owns the kit document tree, selection, dirty tracking and the
// undo/redo history. Every read returns a deep copy and every write goes
// through the Manager.
package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/conneroisu/mediakit/internal/logging"
	"github.com/conneroisu/mediakit/internal/types"
)

// DefaultMaxUndo is the undo depth used when none is configured.
const DefaultMaxUndo = 20

// Snapshot is a deep copy of the undoable part of the state.
type Snapshot struct {
	Sections        []types.Section `json:"sections"`
	Theme           string          `json:"theme,omitempty"`
	SelectedElement string          `json:"selectedElement,omitempty"`
	SelectedSection string          `json:"selectedSection,omitempty"`
	Label           string          `json:"label,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}

func (s Snapshot) clone() Snapshot {
	s.Sections = types.CloneSections(s.Sections)
	return s
}

// State is the full builder state.
type State struct {
	Sections        []types.Section `json:"sections"`
	Theme           string          `json:"theme,omitempty"`
	SelectedElement string          `json:"selectedElement,omitempty"`
	SelectedSection string          `json:"selectedSection,omitempty"`
	IsDirty         bool            `json:"isDirty"`
	UndoStack       []Snapshot      `json:"-"`
	RedoStack       []Snapshot      `json:"-"`
	LastSaved       time.Time       `json:"lastSaved,omitempty"`
	LastModified    time.Time       `json:"lastModified,omitempty"`
	// Revision increases on every change to the document tree.
	Revision uint64 `json:"revision"`
}

// Document returns the serializable part of the state.
func (s State) Document() types.Document {
	return types.Document{Sections: types.CloneSections(s.Sections), Theme: s.Theme}
}

// CanUndo reports whether the undo stack is non-empty.
func (s State) CanUndo() bool { return len(s.UndoStack) > 0 }

// CanRedo reports whether the redo stack is non-empty.
func (s State) CanRedo() bool { return len(s.RedoStack) > 0 }

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	out.Sections = types.CloneSections(s.Sections)
	out.UndoStack = cloneStack(s.UndoStack)
	out.RedoStack = cloneStack(s.RedoStack)
	return out
}

func cloneStack(in []Snapshot) []Snapshot {
	if in == nil {
		return nil
	}
	out := make([]Snapshot, len(in))
	for i, s := range in {
		out[i] = s.clone()
	}
	return out
}

// Patch is a partial state update. Nil fields are left unchanged.
type Patch struct {
	Sections        *[]types.Section
	Theme           *string
	SelectedElement *string
	SelectedSection *string
}

// Sections wraps a section list for a Patch.
func Sections(s []types.Section) *[]types.Section { return &s }

// String wraps a string for a Patch.
func String(s string) *string { return &s }

// Listener receives the state before and after a change.
type Listener func(oldState, newState State)

type listener struct {
	id uint64
	fn Listener
}

// Manager is the single owner of State.
type Manager struct {
	mu        sync.Mutex
	state     State
	listeners []listener
	nextID    uint64
	maxUndo   int
	now       func() time.Time
	logger    logging.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxUndo caps the undo stack. Values below 1 select DefaultMaxUndo.
func WithMaxUndo(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxUndo = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger used for listener failures.
func WithLogger(l logging.Logger) Option {
	return func(m *Manager) { m.logger = l.WithComponent("state") }
}

// NewManager creates a manager holding initial sections.
func NewManager(sections []types.Section, opts ...Option) *Manager {
	m := &Manager{
		maxUndo: DefaultMaxUndo,
		now:     time.Now,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if sections == nil {
		sections = []types.Section{}
	}
	m.state.Sections = types.CloneSections(sections)
	return m
}

// MaxUndo returns the undo cap.
func (m *Manager) MaxUndo() int { return m.maxUndo }

// GetState returns a deep copy of the current state.
func (m *Manager) GetState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Revision returns the current document revision.
func (m *Manager) Revision() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Revision
}

// Subscribe registers fn for change notifications.
func (m *Manager) Subscribe(fn Listener) (unsubscribe func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, listener{id: id, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, l := range m.listeners {
			if l.id == id {
				m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// SetState shallow-merges p and notifies subscribers.
func (m *Manager) SetState(p Patch) {
	m.mu.Lock()
	old := m.state.Clone()
	m.applyLocked(p)
	next := m.state.Clone()
	m.mu.Unlock()

	m.notify(old, next)
}

func (m *Manager) applyLocked(p Patch) {
	if p.Sections != nil {
		m.state.Sections = types.CloneSections(*p.Sections)
		if m.state.Sections == nil {
			m.state.Sections = []types.Section{}
		}
		m.state.Revision++
	}
	if p.Theme != nil {
		m.state.Theme = *p.Theme
		m.state.Revision++
	}
	if p.SelectedElement != nil {
		m.state.SelectedElement = *p.SelectedElement
	}
	if p.SelectedSection != nil {
		m.state.SelectedSection = *p.SelectedSection
	}
}

// MarkDirty sets the dirty flag and stamps LastModified. Subscribers are
// notified only when the flag changes.
func (m *Manager) MarkDirty() {
	m.mu.Lock()
	m.state.LastModified = m.now()
	if m.state.IsDirty {
		m.mu.Unlock()
		return
	}
	old := m.state.Clone()
	m.state.IsDirty = true
	next := m.state.Clone()
	m.mu.Unlock()

	m.notify(old, next)
}

// MarkClean clears the dirty flag and stamps LastSaved. Subscribers are
// notified only when the flag changes.
func (m *Manager) MarkClean() {
	m.mu.Lock()
	m.state.LastSaved = m.now()
	if !m.state.IsDirty {
		m.mu.Unlock()
		return
	}
	old := m.state.Clone()
	m.state.IsDirty = false
	next := m.state.Clone()
	m.mu.Unlock()

	m.notify(old, next)
}

// MarkSaved marks the state clean only if the document is still at
// revision. It reports whether it did.
func (m *Manager) MarkSaved(revision uint64) bool {
	m.mu.Lock()
	if m.state.Revision != revision {
		m.mu.Unlock()
		return false
	}
	m.state.LastSaved = m.now()
	if !m.state.IsDirty {
		m.mu.Unlock()
		return true
	}
	old := m.state.Clone()
	m.state.IsDirty = false
	next := m.state.Clone()
	m.mu.Unlock()

	m.notify(old, next)
	return true
}

// Snapshot captures the undoable part of the current state.
func (m *Manager) Snapshot(label string) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(label)
}

func (m *Manager) snapshotLocked(label string) Snapshot {
	return Snapshot{
		Sections:        types.CloneSections(m.state.Sections),
		Theme:           m.state.Theme,
		SelectedElement: m.state.SelectedElement,
		SelectedSection: m.state.SelectedSection,
		Label:           label,
		Timestamp:       m.now(),
	}
}

// AddToUndoStack pushes a pre-mutation snapshot, drops the oldest entries
// beyond the cap and clears the redo stack.
func (m *Manager) AddToUndoStack(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushUndoLocked(s.clone())
}

func (m *Manager) pushUndoLocked(s Snapshot) {
	m.state.UndoStack = append(m.state.UndoStack, s)
	if excess := len(m.state.UndoStack) - m.maxUndo; excess > 0 {
		m.state.UndoStack = append([]Snapshot(nil), m.state.UndoStack[excess:]...)
	}
	m.state.RedoStack = nil
}

// Commit applies one undoable mutation: the current state is pushed to the
// undo stack, p is applied and the state is marked dirty, with a single
// notification.
func (m *Manager) Commit(label string, p Patch) {
	m.mu.Lock()
	old := m.state.Clone()
	m.pushUndoLocked(m.snapshotLocked(label))
	m.applyLocked(p)
	m.state.IsDirty = true
	m.state.LastModified = m.now()
	next := m.state.Clone()
	m.mu.Unlock()

	m.notify(old, next)
}

// Undo restores the most recent undo snapshot. It reports false, and does
// nothing, when the undo stack is empty.
func (m *Manager) Undo() bool {
	return m.step(true)
}

// Redo re-applies the most recently undone snapshot. It reports false, and
// does nothing, when the redo stack is empty.
func (m *Manager) Redo() bool {
	return m.step(false)
}

func (m *Manager) step(undo bool) bool {
	m.mu.Lock()
	from, to := &m.state.UndoStack, &m.state.RedoStack
	if !undo {
		from, to = to, from
	}
	if len(*from) == 0 {
		m.mu.Unlock()
		return false
	}

	old := m.state.Clone()
	target := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]
	*to = append(*to, m.snapshotLocked(target.Label))

	m.state.Sections = types.CloneSections(target.Sections)
	m.state.Theme = target.Theme
	m.state.SelectedElement = target.SelectedElement
	m.state.SelectedSection = target.SelectedSection
	m.state.IsDirty = true
	m.state.LastModified = m.now()
	m.state.Revision++
	next := m.state.Clone()
	m.mu.Unlock()

	m.notify(old, next)
	return true
}

// Reset replaces the document wholesale, clears history and selection and
// marks the state clean. Loading a kit uses it.
func (m *Manager) Reset(doc types.Document) {
	m.mu.Lock()
	old := m.state.Clone()
	m.state.Sections = types.CloneSections(doc.Sections)
	if m.state.Sections == nil {
		m.state.Sections = []types.Section{}
	}
	m.state.Theme = doc.Theme
	m.state.SelectedElement = ""
	m.state.SelectedSection = ""
	m.state.UndoStack = nil
	m.state.RedoStack = nil
	m.state.IsDirty = false
	m.state.LastSaved = m.now()
	m.state.Revision++
	next := m.state.Clone()
	m.mu.Unlock()

	m.notify(old, next)
}

func (m *Manager) notify(oldState, newState State) {
	m.mu.Lock()
	listeners := append([]listener(nil), m.listeners...)
	m.mu.Unlock()

	for _, l := range listeners {
		m.call(l, oldState.Clone(), newState.Clone())
	}
}

func (m *Manager) call(l listener, oldState, newState State) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error(context.Background(), fmt.Errorf("panic: %v", r), "State listener panicked", "listener", l.id)
		}
	}()
	l.fn(oldState, newState)
}
