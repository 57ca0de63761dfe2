package components

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/registry"
	"github.com/conneroisu/mediakit/internal/schema"
	"github.com/conneroisu/mediakit/internal/types"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(nil, nil)
	require.NoError(t, RegisterBuiltins(reg))
	return reg
}

func renderString(t *testing.T, ctx context.Context, reg *registry.Registry, c types.Component) string {
	t.Helper()
	class, err := reg.GetComponentClass(c.Type)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, class.Render(c).Render(ctx, &buf))
	return buf.String()
}

func TestRegisterBuiltins(t *testing.T) {
	reg := newRegistry(t)

	assert.Equal(t, 12, reg.Count())
	for _, typ := range []string{
		"hero", "biography", "topics", "questions", "social", "contact",
		"stats", "call-to-action", "testimonials", "gallery", "video", "logo-grid",
	} {
		assert.True(t, reg.Has(typ), typ)
	}
	assert.Error(t, RegisterBuiltins(reg), "second registration is a duplicate")
}

func TestBuiltinDefaultsAreValid(t *testing.T) {
	reg := newRegistry(t)
	for _, def := range reg.List() {
		c, err := reg.CreateComponent(def.Type, registry.CreateData{})
		require.NoError(t, err, def.Type)
		assert.Equal(t, def.Type, c.Type)
		assert.NotEmpty(t, c.ID)
	}
}

func TestBiographyRequiresText(t *testing.T) {
	reg := newRegistry(t)

	_, err := reg.CreateComponent("biography", registry.CreateData{Content: map[string]any{}})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	c, err := reg.CreateComponent("biography", registry.CreateData{})
	require.NoError(t, err)
	assert.Equal(t, "About Me", c.Content["title"])
	assert.NotEmpty(t, c.Content["text"])
}

func TestSocialNeedsOneLink(t *testing.T) {
	reg := newRegistry(t)

	_, err := reg.CreateComponent("social", registry.CreateData{Content: map[string]any{"title": "Find me"}})
	require.Error(t, err)
	issues := errors.IssuesOf(err)
	require.NotEmpty(t, issues)
	assert.Equal(t, "content", issues[0].Path)

	_, err = reg.CreateComponent("social", registry.CreateData{Content: map[string]any{"twitter": "https://x.com/me"}})
	assert.NoError(t, err)
}

func TestHeroButtonNeedsLink(t *testing.T) {
	reg := newRegistry(t)
	_, err := reg.CreateComponent("hero", registry.CreateData{Content: map[string]any{
		"name": "Ada", "ctaText": "Book",
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ctaUrl")
}

func TestTopicsCardinality(t *testing.T) {
	reg := newRegistry(t)

	_, err := reg.CreateComponent("topics", registry.CreateData{Content: map[string]any{"title": "Topics"}})
	assert.Error(t, err, "at least one topic")

	content := map[string]any{}
	for i := 1; i <= 11; i++ {
		content[(&schema.List{Prefix: "topic"}).Key(i)] = "t"
	}
	_, err = reg.CreateComponent("topics", registry.CreateData{Content: content})
	assert.Error(t, err, "at most ten topics")
}

func TestRenderEscapesContent(t *testing.T) {
	reg := newRegistry(t)
	c, err := reg.CreateComponent("hero", registry.CreateData{Content: map[string]any{
		"name": `<script>alert("x")</script>`,
	}})
	require.NoError(t, err)

	out := renderString(t, context.Background(), reg, c)
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, `data-component-id="`+c.ID+`"`)
	assert.Contains(t, out, `data-field="name"`)
	assert.NotContains(t, out, "contenteditable")
}

func TestRenderEditableMarksFields(t *testing.T) {
	reg := newRegistry(t)
	c, err := reg.CreateComponent("topics", registry.CreateData{})
	require.NoError(t, err)

	out := renderString(t, WithEditable(context.Background(), true), reg, c)
	assert.Contains(t, out, `data-field="topic_1"`)
	assert.Contains(t, out, `contenteditable="true"`)
	assert.Contains(t, out, "Leadership")
	assert.Contains(t, out, `data-index="2"`)
}

func TestRenderSanitizesURLs(t *testing.T) {
	reg := newRegistry(t)
	c, err := reg.CreateComponent("call-to-action", registry.CreateData{})
	require.NoError(t, err)
	c.Content["buttonUrl"] = "javascript:alert(1)"

	out := renderString(t, context.Background(), reg, c)
	assert.NotContains(t, out, "javascript:")
}

func TestRenderAppliesStyles(t *testing.T) {
	reg := newRegistry(t)
	c, err := reg.CreateComponent("hero", registry.CreateData{Styles: map[string]any{"padding": 48}})
	require.NoError(t, err)
	assert.Equal(t, float64(48), c.Styles["padding"])

	out := renderString(t, context.Background(), reg, c)
	assert.Contains(t, out, "background-color: #1f2937")
	assert.Contains(t, out, "padding: 48px")
}

func TestEmbedURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://www.youtube.com/watch?v=abc", "https://www.youtube.com/embed/abc"},
		{"https://youtu.be/abc", "https://www.youtube.com/embed/abc"},
		{"https://vimeo.com/42", "https://player.vimeo.com/video/42"},
		{"https://example.com/talk.mp4", "https://example.com/talk.mp4"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, embedURL(tt.in))
	}
}

func TestInlineFieldsIncludeListPattern(t *testing.T) {
	reg := newRegistry(t)
	class, err := reg.GetComponentClass("questions")
	require.NoError(t, err)
	inline, ok := class.(registry.InlineEditable)
	require.True(t, ok)
	assert.Equal(t, []string{"title", "question_*"}, inline.InlineFields())
}

func TestGenericRendersManifestTypes(t *testing.T) {
	def := registry.Definition{
		Type:  "press-quote",
		Title: "Press Quote",
		ContentSchema: schema.New(
			schema.Field{Name: "quote", Type: schema.TypeText, Required: true},
			schema.Field{Name: "source", Type: schema.TypeURL},
		),
	}
	class := Generic(def)
	c := types.Component{ID: "p1", Type: "press-quote", Content: map[string]any{
		"quote": "Brilliant", "source": "https://news.example.com",
	}}

	var buf bytes.Buffer
	require.NoError(t, class.Render(c).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "Brilliant")
	assert.Contains(t, buf.String(), `href="https://news.example.com"`)
	assert.Equal(t, []string{"quote"}, class.InlineFields())
}

func TestClassForFallsBackToGeneric(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, reg.Register("press-quote", registry.Definition{
		Type:          "press-quote",
		ContentSchema: schema.New(schema.Field{Name: "quote", Type: schema.TypeText}),
	}))

	class, err := ClassFor(reg, "press-quote")
	require.NoError(t, err)
	assert.Equal(t, "press-quote", class.Definition().Type)

	class, err = ClassFor(reg, "hero")
	require.NoError(t, err)
	assert.IsType(t, &Class{}, class)

	_, err = ClassFor(reg, "nope")
	assert.True(t, errors.IsNotFound(err))
}
