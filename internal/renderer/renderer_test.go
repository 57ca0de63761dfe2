package renderer

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/mediakit/internal/components"
	"github.com/conneroisu/mediakit/internal/registry"
	"github.com/conneroisu/mediakit/internal/types"
)

func setup(t *testing.T) (*ComponentRenderer, *registry.Registry) {
	t.Helper()
	reg := registry.New(nil, nil)
	require.NoError(t, components.RegisterBuiltins(reg))
	return NewComponentRenderer(reg, nil), reg
}

func document(t *testing.T, reg *registry.Registry) types.Document {
	t.Helper()
	hero, err := reg.CreateComponent("hero", registry.CreateData{ID: "hero-1"})
	require.NoError(t, err)
	bio, err := reg.CreateComponent("biography", registry.CreateData{ID: "bio-1"})
	require.NoError(t, err)
	topics, err := reg.CreateComponent("topics", registry.CreateData{ID: "topics-1"})
	require.NoError(t, err)

	top := types.NewSection("s-top", "hero", types.LayoutFullWidth)
	top.Components = []types.Component{hero, bio}
	cols := types.NewSection("s-cols", "content", types.LayoutTwoColumn)
	cols.Columns[types.ColumnKey(2)] = []types.Component{topics}
	return types.Document{Sections: []types.Section{top, cols}, Theme: "light"}
}

func TestRenderDocumentPreservesOrder(t *testing.T) {
	r, reg := setup(t)
	var buf bytes.Buffer
	require.NoError(t, r.RenderDocument(context.Background(), &buf, document(t, reg), Options{}))
	out := buf.String()

	hero := strings.Index(out, `data-component-id="hero-1"`)
	bio := strings.Index(out, `data-component-id="bio-1"`)
	topics := strings.Index(out, `data-component-id="topics-1"`)
	require.True(t, hero >= 0 && bio >= 0 && topics >= 0)
	assert.Less(t, hero, bio)
	assert.Less(t, bio, topics)
	assert.Contains(t, out, `data-column="column_2"`)
	assert.NotContains(t, out, "mk-drop-zone")
	assert.NotContains(t, out, "mk-controls")
}

func TestRenderEditableChrome(t *testing.T) {
	r, reg := setup(t)
	var buf bytes.Buffer
	require.NoError(t, r.RenderDocument(context.Background(), &buf, document(t, reg), Options{Editable: true, Selected: "bio-1"}))
	out := buf.String()

	// Two components in the full-width list give three zones; each column
	// adds one more than it holds.
	assert.Equal(t, 3+1+2, strings.Count(out, "mk-drop-zone"))
	assert.Contains(t, out, `data-section-id="s-top" data-column="" data-index="2"`)
	assert.Contains(t, out, `class="mk-item mk-selected" data-item-id="bio-1"`)
	assert.Contains(t, out, `data-action="move-up" data-target="hero-1" disabled`)
	assert.Contains(t, out, `data-action="move-down" data-target="bio-1" disabled`)
	assert.Contains(t, out, "contenteditable")
}

func TestUnknownTypeRendersPlaceholder(t *testing.T) {
	r, _ := setup(t)
	var buf bytes.Buffer
	err := r.RenderComponent(context.Background(), &buf, types.Component{ID: "x1", Type: "<bogus>"}, false)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "mk-unknown")
	assert.Contains(t, buf.String(), "&lt;bogus&gt;")
}

func TestRenderPage(t *testing.T) {
	r, reg := setup(t)
	var buf bytes.Buffer
	require.NoError(t, r.RenderPage(context.Background(), &buf, "Ada & Co", document(t, reg)))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<title>Ada &amp; Co</title>")
	assert.Contains(t, out, `data-theme="light"`)
	assert.NotContains(t, out, "contenteditable")
}
