package canvas

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/mediakit/internal/adapters"
	"github.com/conneroisu/mediakit/internal/builder"
	"github.com/conneroisu/mediakit/internal/components"
	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/eventbus"
	"github.com/conneroisu/mediakit/internal/palette"
	"github.com/conneroisu/mediakit/internal/registry"
	"github.com/conneroisu/mediakit/internal/renderer"
	"github.com/conneroisu/mediakit/internal/state"
	"github.com/conneroisu/mediakit/internal/types"
)

type env struct {
	canvas   *Canvas
	builder  *builder.Builder
	bus      *eventbus.Bus
	warnings []eventbus.WarningPayload
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWith(t, nil)
}

// newEnvWith builds an env whose canvas gets the options opts returns.
func newEnvWith(t *testing.T, opts func(reg *registry.Registry, bus *eventbus.Bus) []Option) *env {
	t.Helper()
	bus := eventbus.New(nil)
	reg := registry.New(bus, nil)
	require.NoError(t, components.RegisterBuiltins(reg))
	reg.Seal()

	b := builder.New(reg, state.NewManager(nil), bus, adapters.New(adapters.NewMemory(), types.Config{}))
	require.NoError(t, b.Init(context.Background()))
	var canvasOpts []Option
	if opts != nil {
		canvasOpts = opts(reg, bus)
	}
	c := New(b, renderer.NewComponentRenderer(reg, nil), bus, nil, canvasOpts...)
	t.Cleanup(func() {
		c.Close()
		b.Close()
	})

	e := &env{canvas: c, builder: b, bus: bus}
	bus.On(eventbus.Warning, func(_ context.Context, ev eventbus.Event) error {
		e.warnings = append(e.warnings, ev.Payload.(eventbus.WarningPayload))
		return nil
	})
	return e
}

// abc fills a new full-width section with three biographies.
func (e *env) abc(t *testing.T) (string, []string) {
	t.Helper()
	ctx := context.Background()
	sec, err := e.builder.AddSection(ctx, "content", types.LayoutFullWidth, -1)
	require.NoError(t, err)
	var ids []string
	for range 3 {
		c, err := e.builder.AddComponent(ctx, "biography", &types.Position{SectionID: sec.ID, Index: -1}, nil)
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	return sec.ID, ids
}

func order(b *builder.Builder) []string {
	var out []string
	for _, c := range b.Document().Components() {
		out = append(out, c.ID)
	}
	return out
}

func TestDropZones(t *testing.T) {
	full := types.NewSection("s1", "content", types.LayoutFullWidth)
	full.Components = []types.Component{{ID: "a"}, {ID: "b"}}
	cols := types.NewSection("s2", "content", types.LayoutTwoColumn)

	zones := DropZones(types.Document{Sections: []types.Section{full, cols}})
	assert.Equal(t, []DropZone{
		{SectionID: "s1", Index: 0},
		{SectionID: "s1", Index: 1},
		{SectionID: "s1", Index: 2},
		{SectionID: "s2", Column: "column_1", Index: 0},
		{SectionID: "s2", Column: "column_2", Index: 0},
	}, zones)
}

func TestPaletteDrop(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	secID, ids := e.abc(t)

	require.NoError(t, e.canvas.StartPaletteDrag(ctx, "hero"))
	_, open := e.canvas.Drag()
	require.True(t, open)
	require.NoError(t, e.canvas.Drop(ctx, DropZone{SectionID: secID, Index: 1}))

	_, open = e.canvas.Drag()
	assert.False(t, open)
	got := order(e.builder)
	require.Len(t, got, 4)
	assert.Equal(t, ids[0], got[0])
	assert.Equal(t, ids[1], got[2])
}

func TestComponentDropShiftsAfterRemoval(t *testing.T) {
	cases := []struct {
		name string
		drag int
		zone int
		want []int
	}{
		{name: "down one slot", drag: 0, zone: 2, want: []int{1, 0, 2}},
		{name: "to the end", drag: 0, zone: 3, want: []int{1, 2, 0}},
		{name: "to the top", drag: 2, zone: 0, want: []int{2, 0, 1}},
		{name: "up one slot", drag: 2, zone: 1, want: []int{0, 2, 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			ctx := context.Background()
			secID, ids := e.abc(t)

			require.NoError(t, e.canvas.StartComponentDrag(ctx, ids[tc.drag]))
			require.NoError(t, e.canvas.Drop(ctx, DropZone{SectionID: secID, Index: tc.zone}))

			want := make([]string, len(tc.want))
			for i, n := range tc.want {
				want[i] = ids[n]
			}
			assert.Equal(t, want, order(e.builder))
		})
	}
}

func TestDropOnOwnSlotIsNoop(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	secID, ids := e.abc(t)
	rev := e.builder.State().Revision

	for _, zone := range []int{1, 2} {
		require.NoError(t, e.canvas.StartComponentDrag(ctx, ids[1]))
		require.NoError(t, e.canvas.Drop(ctx, DropZone{SectionID: secID, Index: zone}))
	}
	assert.Equal(t, rev, e.builder.State().Revision)
}

func TestDropIntoOtherColumn(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, ids := e.abc(t)
	cols, err := e.builder.AddSection(ctx, "features", types.LayoutTwoColumn, -1)
	require.NoError(t, err)

	require.NoError(t, e.canvas.StartComponentDrag(ctx, ids[0]))
	require.NoError(t, e.canvas.Drop(ctx, DropZone{SectionID: cols.ID, Column: "column_2"}))

	_, loc, err := e.builder.GetComponent(ids[0])
	require.NoError(t, err)
	assert.Equal(t, cols.ID, loc.SectionID)
	assert.Equal(t, "column_2", loc.Column)
}

func TestOneDragAtATime(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, ids := e.abc(t)

	require.NoError(t, e.canvas.StartPaletteDrag(ctx, "hero"))
	err := e.canvas.StartComponentDrag(ctx, ids[0])
	assert.True(t, errors.IsInvariant(err))

	d, ok := e.canvas.Drag()
	require.True(t, ok)
	assert.Equal(t, DragPalette, d.Kind)

	e.canvas.CancelDrag(ctx)
	assert.True(t, errors.IsInvariant(e.canvas.Drop(ctx, DropZone{})))
	assert.True(t, errors.IsNotFound(e.canvas.StartComponentDrag(ctx, "missing")))
}

func TestDropUnregisteredType(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	secID, _ := e.abc(t)
	rev := e.builder.State().Revision

	require.NoError(t, e.canvas.StartPaletteDrag(ctx, "carousel"))
	err := e.canvas.Drop(ctx, DropZone{SectionID: secID})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, rev, e.builder.State().Revision)
	require.NotEmpty(t, e.warnings)
	assert.Equal(t, errors.ErrCodeUnknownType, e.warnings[len(e.warnings)-1].Code)

	_, open := e.canvas.Drag()
	assert.False(t, open)
}

func TestPaletteDragRespectsPlan(t *testing.T) {
	e := newEnvWith(t, func(reg *registry.Registry, bus *eventbus.Bus) []Option {
		return []Option{WithGate(palette.New(reg, bus, palette.TierFree))}
	})
	ctx := context.Background()
	secID, ids := e.abc(t)

	err := e.canvas.StartPaletteDrag(ctx, "gallery")
	require.Error(t, err)
	assert.True(t, errors.IsInvariant(err))
	var be *errors.BuilderError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, errors.ErrCodePremiumLocked, be.Code)
	_, open := e.canvas.Drag()
	assert.False(t, open)
	assert.Equal(t, ids, order(e.builder))

	require.NoError(t, e.canvas.StartPaletteDrag(ctx, "hero"))
	require.NoError(t, e.canvas.Drop(ctx, DropZone{SectionID: secID}))
	assert.Len(t, order(e.builder), 4)
}

func TestDropRechecksGate(t *testing.T) {
	locked := false
	e := newEnvWith(t, func(*registry.Registry, *eventbus.Bus) []Option {
		return []Option{WithGate(gateFunc(func(componentType string) error {
			if locked {
				return errors.NewInvariantViolation(errors.ErrCodePremiumLocked, componentType+" requires a premium plan")
			}
			return nil
		}))}
	})
	ctx := context.Background()
	secID, ids := e.abc(t)

	require.NoError(t, e.canvas.StartPaletteDrag(ctx, "stats"))
	locked = true
	err := e.canvas.Drop(ctx, DropZone{SectionID: secID})
	require.Error(t, err)
	assert.True(t, errors.IsInvariant(err))
	assert.Equal(t, ids, order(e.builder))
	_, open := e.canvas.Drag()
	assert.False(t, open)
}

type gateFunc func(componentType string) error

func (f gateFunc) CanAdd(componentType string) error { return f(componentType) }

func TestControls(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, ids := e.abc(t)

	require.NoError(t, e.canvas.Do(ctx, ActionMoveDown, ids[0]))
	assert.Equal(t, []string{ids[1], ids[0], ids[2]}, order(e.builder))

	require.NoError(t, e.canvas.Do(ctx, ActionDuplicate, ids[2]))
	assert.Len(t, order(e.builder), 4)

	require.NoError(t, e.canvas.Do(ctx, ActionDelete, ids[1]))
	assert.NotContains(t, order(e.builder), ids[1])

	require.NoError(t, e.canvas.Do(ctx, ActionSelect, ids[2]))
	sel, ok := e.builder.Selected()
	require.True(t, ok)
	assert.Equal(t, ids[2], sel.ID)
	require.NoError(t, e.canvas.Select(ctx, ""))
	_, ok = e.builder.Selected()
	assert.False(t, ok)

	assert.True(t, errors.IsValidation(e.canvas.Do(ctx, "explode", ids[2])))
}

func TestRemoveLastTopicIsRejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c, err := e.builder.AddComponent(ctx, "topics", nil, map[string]any{"topic_1": "Go"})
	require.NoError(t, err)

	require.NoError(t, e.canvas.AddItem(ctx, c.ID, 1, "Rust"))
	require.NoError(t, e.canvas.RemoveItem(ctx, c.ID, 0))
	rev := e.builder.State().Revision

	err = e.canvas.RemoveItem(ctx, c.ID, 0)
	assert.True(t, errors.IsInvariant(err))
	assert.Equal(t, rev, e.builder.State().Revision)
	require.NotEmpty(t, e.warnings)
	assert.Equal(t, errors.ErrCodeMinCardinality, e.warnings[len(e.warnings)-1].Code)

	got, _, err := e.builder.GetComponent(c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rust", got.Content["topic_1"])
}

func TestCommitInlineEdit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c, err := e.builder.AddComponent(ctx, "biography", nil, nil)
	require.NoError(t, err)

	require.NoError(t, e.canvas.CommitInlineEdit(ctx, c.ID, "text", "<p>Hello <b>world</b></p><script>alert(1)</script>"))
	got, _, err := e.builder.GetComponent(c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", got.Content["text"])

	undo := len(e.builder.State().UndoStack)
	require.NoError(t, e.canvas.CommitInlineEdit(ctx, c.ID, "text", "Hello world"))
	assert.Len(t, e.builder.State().UndoStack, undo, "unchanged text is not a mutation")

	err = e.canvas.CommitInlineEdit(ctx, c.ID, "imagePosition", "left")
	assert.True(t, errors.IsValidation(err))

	topics, err := e.builder.AddComponent(ctx, "topics", nil, nil)
	require.NoError(t, err)
	require.NoError(t, e.canvas.CommitInlineEdit(ctx, topics.ID, "topic_2", "Platform engineering"))
	got, _, err = e.builder.GetComponent(topics.ID)
	require.NoError(t, err)
	assert.Equal(t, "Platform engineering", got.Content["topic_2"])
}

func TestPlainText(t *testing.T) {
	cases := map[string]string{
		"plain":                         "plain",
		"a<br>b":                        "a\nb",
		"<p>one</p><p>two</p>":          "one\ntwo",
		"Tom &amp; Jerry":               "Tom & Jerry",
		"<style>p{}</style>  kept  ":    "kept",
		"<ul><li>x</li><li>y</li></ul>": "x\ny",
	}
	for in, want := range cases {
		got, err := PlainText(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

func TestViewFollowsPreviewAndSelection(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, ids := e.abc(t)
	require.NoError(t, e.canvas.Select(ctx, ids[0]))

	var buf bytes.Buffer
	require.NoError(t, e.canvas.Render(ctx, &buf))
	assert.Contains(t, buf.String(), "mk-drop-zone")
	assert.Contains(t, buf.String(), "mk-selected")

	e.bus.Emit(ctx, eventbus.PreviewToggled, eventbus.PreviewPayload{Enabled: true})
	assert.True(t, e.canvas.Preview())
	buf.Reset()
	require.NoError(t, e.canvas.Render(ctx, &buf))
	assert.NotContains(t, buf.String(), "mk-drop-zone")
	assert.True(t, errors.IsInvariant(e.canvas.StartPaletteDrag(ctx, "hero")))
}
