package designpanel

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
	"github.com/conneroisu/mediakit/internal/registry"
	"github.com/conneroisu/mediakit/internal/schema"
	"github.com/conneroisu/mediakit/internal/state"
	"github.com/conneroisu/mediakit/internal/types"
)

func setup(t *testing.T) (*Panel, *builder.Builder) {
	t.Helper()
	bus := eventbus.New(nil)
	reg := registry.New(bus, nil)
	require.NoError(t, components.RegisterBuiltins(reg))
	reg.Seal()

	b := builder.New(reg, state.NewManager(nil), bus, adapters.New(adapters.NewMemory(), types.Config{}))
	require.NoError(t, b.Init(context.Background()))
	p := New(b, reg, bus, nil)
	t.Cleanup(func() {
		p.Close()
		b.Close()
	})
	return p, b
}

func tabs(v View) []Tab {
	var out []Tab
	for _, t := range v.Tabs {
		out = append(out, t.Tab)
	}
	return out
}

func TestEmptyWithoutSelection(t *testing.T) {
	p, _ := setup(t)
	assert.True(t, p.View().Empty)

	var buf bytes.Buffer
	require.NoError(t, p.Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "mk-panel-empty")

	err := p.Edit(context.Background(), GroupContent, "name", "x")
	assert.True(t, errors.IsInvariant(err))
}

func TestFollowsSelection(t *testing.T) {
	p, b := setup(t)
	ctx := context.Background()
	hero, err := b.AddComponent(ctx, "hero", nil, nil)
	require.NoError(t, err)
	bio, err := b.AddComponent(ctx, "biography", nil, nil)
	require.NoError(t, err)

	require.NoError(t, b.SelectComponent(ctx, hero.ID))
	v := p.View()
	require.False(t, v.Empty)
	assert.Equal(t, hero.ID, v.ComponentID)
	assert.Equal(t, []Tab{TabContent, TabStyle, TabAdvanced}, tabs(v))

	require.NoError(t, b.SelectComponent(ctx, bio.ID))
	assert.Equal(t, bio.ID, p.View().ComponentID)

	require.NoError(t, b.RemoveComponent(ctx, bio.ID))
	assert.True(t, p.View().Empty)

	require.NoError(t, b.SelectComponent(ctx, hero.ID))
	require.NoError(t, b.ClearSelection(ctx))
	assert.True(t, p.View().Empty)
}

func TestEditorsForHero(t *testing.T) {
	p, b := setup(t)
	ctx := context.Background()
	hero, err := b.AddComponent(ctx, "hero", nil, nil)
	require.NoError(t, err)
	require.NoError(t, b.SelectComponent(ctx, hero.ID))
	v := p.View()

	cases := []struct {
		group, property string
		widget          Widget
		label           string
	}{
		{GroupContent, "name", WidgetText, "Name"},
		{GroupContent, "tagline", WidgetTextarea, "Tagline"},
		{GroupContent, "imageUrl", WidgetImage, "Portrait"},
		{GroupContent, "ctaUrl", WidgetURL, "Button link"},
		{GroupStyles, "backgroundColor", WidgetColor, "Background"},
		{GroupStyles, "alignment", WidgetSelect, "Alignment"},
		{GroupStyles, "padding", WidgetNumber, "Padding"},
	}
	for _, tc := range cases {
		e, ok := v.Editor(tc.group, tc.property)
		require.True(t, ok, tc.property)
		assert.Equal(t, tc.widget, e.Widget, tc.property)
		assert.Equal(t, tc.label, e.Label, tc.property)
	}

	bg, _ := v.Editor(GroupStyles, "backgroundColor")
	assert.Equal(t, "#1f2937", bg.Hex)

	for _, tab := range v.Tabs {
		if tab.Tab == TabAdvanced {
			assert.Len(t, tab.Editors, 2, "ctaUrl and padding")
		}
	}
}

func TestListItemEditors(t *testing.T) {
	p, b := setup(t)
	ctx := context.Background()
	c, err := b.AddComponent(ctx, "topics", nil, nil)
	require.NoError(t, err)
	require.NoError(t, b.SelectComponent(ctx, c.ID))

	e, ok := p.View().Editor(GroupContent, "topic_2")
	require.True(t, ok)
	assert.Equal(t, "Topic 2", e.Label)
	assert.Equal(t, "Innovation", e.Value)
}

func TestEditAppliesThroughBuilder(t *testing.T) {
	p, b := setup(t)
	ctx := context.Background()
	hero, err := b.AddComponent(ctx, "hero", nil, nil)
	require.NoError(t, err)
	require.NoError(t, b.SelectComponent(ctx, hero.ID))
	undo := len(b.State().UndoStack)

	require.NoError(t, p.Edit(ctx, GroupContent, "name", "Ada Lovelace"))
	require.NoError(t, p.Edit(ctx, "style", "padding", "48"))
	require.NoError(t, p.Edit(ctx, GroupStyles, "backgroundColor", "FF0000"))

	got, _, err := b.GetComponent(hero.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Content["name"])
	assert.Equal(t, float64(48), got.Styles["padding"])
	assert.Equal(t, "#ff0000", got.Styles["backgroundColor"])
	assert.Len(t, b.State().UndoStack, undo+3)

	e, _ := p.View().Editor(GroupContent, "name")
	assert.Equal(t, "Ada Lovelace", e.Value, "panel refreshes after the builder applies the edit")
}

func TestEditRejectsBadValues(t *testing.T) {
	p, b := setup(t)
	ctx := context.Background()
	hero, err := b.AddComponent(ctx, "hero", nil, nil)
	require.NoError(t, err)
	require.NoError(t, b.SelectComponent(ctx, hero.ID))
	rev := b.State().Revision

	assert.True(t, errors.IsValidation(p.Edit(ctx, GroupStyles, "padding", "lots")))
	assert.True(t, errors.IsValidation(p.Edit(ctx, GroupStyles, "padding", "500")))
	assert.True(t, errors.IsValidation(p.Edit(ctx, GroupStyles, "alignment", "justify")))
	assert.True(t, errors.IsValidation(p.Edit(ctx, GroupContent, "colour", "red")))
	assert.Equal(t, rev, b.State().Revision)
}

func TestEditReturnsBuilderRejection(t *testing.T) {
	p, b := setup(t)
	ctx := context.Background()
	hero, err := b.AddComponent(ctx, "hero", nil, nil)
	require.NoError(t, err)
	require.NoError(t, b.SelectComponent(ctx, hero.ID))
	rev := b.State().Revision

	err = p.Edit(ctx, GroupContent, "ctaText", "Book me")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	require.NotEmpty(t, errors.IssuesOf(err))
	assert.Equal(t, "content.ctaUrl", errors.IssuesOf(err)[0].Path)
	assert.Equal(t, rev, b.State().Revision)

	require.NoError(t, p.Edit(ctx, GroupContent, "ctaUrl", "https://example.com/book"))
	require.NoError(t, p.Edit(ctx, GroupContent, "ctaText", "Book me"))
}

func TestRenderEditors(t *testing.T) {
	p, b := setup(t)
	ctx := context.Background()
	hero, err := b.AddComponent(ctx, "hero", nil, map[string]any{"name": `<Ada & "Co">`})
	require.NoError(t, err)
	require.NoError(t, b.SelectComponent(ctx, hero.ID))

	var buf bytes.Buffer
	require.NoError(t, p.Render(ctx, &buf))
	html := buf.String()
	assert.Contains(t, html, `data-component-id="`+hero.ID+`"`)
	assert.Contains(t, html, `<textarea id="mk-content-tagline"`)
	assert.Contains(t, html, `type="color"`)
	assert.Contains(t, html, `class="mk-hex"`)
	assert.Contains(t, html, `<option value="center" selected>`)
	assert.Contains(t, html, `type="number" id="mk-styles-padding" name="padding" value="32" min="0" max="200"`)
	assert.Contains(t, html, "&lt;Ada &amp; &#34;Co&#34;&gt;")
	assert.NotContains(t, html, `<Ada`)
}

func TestFieldLabel(t *testing.T) {
	cases := map[string]string{
		"ctaText":         "Cta Text",
		"image_position":  "Image Position",
		"backgroundColor": "Background Color",
		"topic":           "Topic",
		"videoURL":        "Video Url",
	}
	for in, want := range cases {
		assert.Equal(t, want, fieldLabel(in), in)
	}
}

func TestWidgetFor(t *testing.T) {
	assert.Equal(t, WidgetTextarea, WidgetFor(schema.Field{Type: schema.TypeString, MaxLength: 500}))
	assert.Equal(t, WidgetTextarea, WidgetFor(schema.Field{Type: schema.TypeString, Multiline: true}))
	assert.Equal(t, WidgetText, WidgetFor(schema.Field{Type: schema.TypeString, MaxLength: 80}))
	assert.Equal(t, WidgetToggle, WidgetFor(schema.Field{Type: schema.TypeBoolean}))
	assert.Equal(t, WidgetEmail, WidgetFor(schema.Field{Type: schema.TypeEmail}))
	assert.Equal(t, WidgetSelect, WidgetFor(schema.Field{Type: schema.TypeString, Options: []schema.Option{{Value: "a"}}}))
}
