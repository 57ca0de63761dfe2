package state

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/mediakit/internal/types"
)

func section(id string, componentIDs ...string) types.Section {
	s := types.NewSection(id, "content", types.LayoutFullWidth)
	for _, cid := range componentIDs {
		s.Components = append(s.Components, types.Component{
			ID: cid, Type: "biography", Content: map[string]any{"text": cid}, Styles: map[string]any{},
		})
	}
	return s
}

func ids(st State) []string {
	var out []string
	for _, s := range st.Sections {
		for _, c := range s.All() {
			out = append(out, c.ID)
		}
	}
	return out
}

func addComponent(m *Manager, id string) {
	st := m.GetState()
	sections := st.Sections
	sections[0].Components = append(sections[0].Components, types.Component{ID: id, Type: "biography"})
	m.Commit("add", Patch{Sections: Sections(sections)})
}

func TestGetStateReturnsCopy(t *testing.T) {
	m := NewManager([]types.Section{section("s1", "a")})

	st := m.GetState()
	st.Sections[0].Components[0].Content["text"] = "mutated"
	st.Sections = append(st.Sections, section("s2"))

	fresh := m.GetState()
	assert.Equal(t, "a", fresh.Sections[0].Components[0].Content["text"])
	assert.Len(t, fresh.Sections, 1)
}

func TestSetStateNotifiesWithOldAndNew(t *testing.T) {
	m := NewManager([]types.Section{section("s1")})
	var calls [][2]string
	m.Subscribe(func(o, n State) {
		calls = append(calls, [2]string{o.SelectedElement, n.SelectedElement})
	})

	m.SetState(Patch{SelectedElement: String("c1")})
	m.SetState(Patch{SelectedElement: String("c2")})

	assert.Equal(t, [][2]string{{"", "c1"}, {"c1", "c2"}}, calls)
}

func TestSetStateShallowMerge(t *testing.T) {
	m := NewManager([]types.Section{section("s1", "a")})
	m.SetState(Patch{SelectedSection: String("s1")})
	before := m.Revision()

	m.SetState(Patch{SelectedElement: String("a")})
	st := m.GetState()
	assert.Equal(t, "s1", st.SelectedSection)
	assert.Equal(t, "a", st.SelectedElement)
	assert.Equal(t, before, st.Revision, "selection does not change the document revision")
}

func TestUnsubscribe(t *testing.T) {
	m := NewManager(nil)
	calls := 0
	unsub := m.Subscribe(func(State, State) { calls++ })
	m.SetState(Patch{SelectedElement: String("x")})
	unsub()
	m.SetState(Patch{SelectedElement: String("y")})
	assert.Equal(t, 1, calls)
}

func TestListenerPanicDoesNotBlockOthers(t *testing.T) {
	m := NewManager(nil)
	reached := false
	m.Subscribe(func(State, State) { panic("listener bug") })
	m.Subscribe(func(State, State) { reached = true })

	assert.NotPanics(t, func() { m.SetState(Patch{SelectedElement: String("x")}) })
	assert.True(t, reached)
}

func TestMarkDirtyIsIdempotent(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManager(nil, WithClock(func() time.Time { clock = clock.Add(time.Second); return clock }))
	var flags []bool
	m.Subscribe(func(_, n State) { flags = append(flags, n.IsDirty) })

	m.MarkDirty()
	first := m.GetState().LastModified
	m.MarkDirty()

	assert.Equal(t, []bool{true}, flags)
	assert.True(t, m.GetState().IsDirty)
	assert.True(t, m.GetState().LastModified.After(first))
}

func TestMarkCleanIsIdempotent(t *testing.T) {
	m := NewManager(nil)
	var flags []bool
	m.Subscribe(func(_, n State) { flags = append(flags, n.IsDirty) })

	m.MarkDirty()
	m.MarkClean()
	m.MarkClean()

	assert.Equal(t, []bool{true, false}, flags)
	assert.False(t, m.GetState().LastSaved.IsZero())
}

func TestMarkSavedChecksRevision(t *testing.T) {
	m := NewManager([]types.Section{section("s1")})
	addComponent(m, "a")
	rev := m.Revision()

	addComponent(m, "b")
	assert.False(t, m.MarkSaved(rev))
	assert.True(t, m.GetState().IsDirty)

	assert.True(t, m.MarkSaved(m.Revision()))
	assert.False(t, m.GetState().IsDirty)
}

func TestCommitPushesPreMutationSnapshot(t *testing.T) {
	m := NewManager([]types.Section{section("s1")})
	addComponent(m, "a")

	st := m.GetState()
	require.Len(t, st.UndoStack, 1)
	assert.Empty(t, st.UndoStack[0].Sections[0].Components)
	assert.Equal(t, []string{"a"}, ids(st))
	assert.True(t, st.IsDirty)
}

func TestUndoRedo(t *testing.T) {
	m := NewManager([]types.Section{section("s1")})
	addComponent(m, "a")
	addComponent(m, "b")

	require.True(t, m.Undo())
	assert.Equal(t, []string{"a"}, ids(m.GetState()))
	require.True(t, m.Undo())
	assert.Empty(t, ids(m.GetState()))
	assert.False(t, m.Undo(), "empty undo stack is a no-op")

	require.True(t, m.Redo())
	require.True(t, m.Redo())
	assert.Equal(t, []string{"a", "b"}, ids(m.GetState()))
	assert.False(t, m.Redo())
}

func TestUndoKeepsDirtyAtSavedState(t *testing.T) {
	m := NewManager([]types.Section{section("s1")})
	m.MarkClean()
	addComponent(m, "a")
	require.True(t, m.Undo())

	st := m.GetState()
	assert.Empty(t, ids(st))
	assert.True(t, st.IsDirty)
}

func TestNewMutationClearsRedo(t *testing.T) {
	m := NewManager([]types.Section{section("s1")})
	addComponent(m, "a")
	require.True(t, m.Undo())
	require.True(t, m.GetState().CanRedo())

	addComponent(m, "b")
	assert.False(t, m.GetState().CanRedo())
	assert.False(t, m.Redo())
	assert.Equal(t, []string{"b"}, ids(m.GetState()))
}

func TestUndoStackIsCapped(t *testing.T) {
	m := NewManager([]types.Section{section("s1")}, WithMaxUndo(3))
	for i := 0; i < 5; i++ {
		addComponent(m, fmt.Sprintf("c%d", i))
	}

	st := m.GetState()
	require.Len(t, st.UndoStack, 3)
	// Oldest kept snapshot is the state before c2 was added.
	assert.Len(t, st.UndoStack[0].Sections[0].Components, 2)

	for m.Undo() {
	}
	assert.Equal(t, []string{"c0", "c1"}, ids(m.GetState()))
}

func TestDefaultUndoDepth(t *testing.T) {
	m := NewManager([]types.Section{section("s1")})
	for i := 0; i < 25; i++ {
		addComponent(m, fmt.Sprintf("c%d", i))
	}
	assert.Len(t, m.GetState().UndoStack, DefaultMaxUndo)
}

func TestUndoRestoresSelection(t *testing.T) {
	m := NewManager([]types.Section{section("s1")})
	m.SetState(Patch{SelectedElement: String("before")})
	m.Commit("select-and-add", Patch{SelectedElement: String("after")})

	require.True(t, m.Undo())
	assert.Equal(t, "before", m.GetState().SelectedElement)
}

func TestResetClearsHistory(t *testing.T) {
	m := NewManager([]types.Section{section("s1")})
	addComponent(m, "a")
	m.Undo()

	m.Reset(types.Document{Sections: []types.Section{section("loaded", "x")}, Theme: "dark"})

	st := m.GetState()
	assert.False(t, st.CanUndo())
	assert.False(t, st.CanRedo())
	assert.False(t, st.IsDirty)
	assert.Equal(t, "dark", st.Theme)
	if diff := cmp.Diff([]string{"x"}, ids(st)); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}
