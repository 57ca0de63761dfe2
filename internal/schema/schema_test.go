package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/mediakit/internal/errors"
)

func ptr(f float64) *float64 { return &f }

func bioSchema() *Schema {
	return New(
		Field{Name: "title", Type: TypeString, Default: "About Me", MaxLength: 80},
		Field{Name: "text", Type: TypeText, Required: true},
		Field{Name: "imageUrl", Type: TypeImage},
		Field{Name: "layout", Type: TypeSelect, Default: "left", Options: []Option{{Value: "left"}, {Value: "right"}}},
		Field{Name: "columns", Type: TypeNumber, Default: 1, Min: ptr(1), Max: ptr(3)},
		Field{Name: "showImage", Type: TypeBoolean, Default: true},
		Field{Name: "accent", Type: TypeColor, Default: "#336699", Group: GroupStyle},
	)
}

func TestValidateAcceptsValidValues(t *testing.T) {
	err := bioSchema().Validate(map[string]any{
		"title":     "Hi",
		"text":      "Body",
		"imageUrl":  "https://example.com/a.png",
		"layout":    "right",
		"columns":   2,
		"showImage": false,
		"accent":    "rgb(0, 0, 0)",
		"topic_1":   "extra keys are allowed",
	})
	assert.NoError(t, err)
}

func TestValidateReportsEveryIssue(t *testing.T) {
	err := bioSchema().Validate(map[string]any{
		"title":     42,
		"layout":    "center",
		"columns":   9,
		"showImage": "yes",
		"accent":    "not-a-color",
		"imageUrl":  "ftp//broken",
	})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	paths := map[string]bool{}
	for _, is := range errors.IssuesOf(err) {
		paths[is.Path] = true
	}
	for _, p := range []string{"title", "text", "layout", "columns", "showImage", "accent", "imageUrl"} {
		assert.True(t, paths[p], "expected issue for %s", p)
	}
}

func TestRequiredRejectsEmptyString(t *testing.T) {
	err := bioSchema().Validate(map[string]any{"text": ""})
	require.Error(t, err)
	assert.Equal(t, []errors.Issue{{Path: "text", Message: "is required"}}, errors.IssuesOf(err))
}

func TestDefaults(t *testing.T) {
	s := bioSchema()
	assert.Equal(t, map[string]any{
		"title": "About Me", "layout": "left", "columns": 1, "showImage": true, "accent": "#336699",
	}, s.Defaults())

	s.Fields[1].Default = "Write something"
	assert.NotContains(t, s.OptionalDefaults(), "text")
	assert.Contains(t, s.Defaults(), "text")
	assert.Equal(t, []string{"text"}, s.Required())
}

func TestValidateSchema(t *testing.T) {
	assert.Empty(t, ValidateSchema(bioSchema(), "contentSchema"))
	assert.NotEmpty(t, ValidateSchema(nil, "contentSchema"))

	bad := New(
		Field{Name: "a", Type: TypeString},
		Field{Name: "a", Type: TypeString},
		Field{Name: "", Type: "blob"},
		Field{Name: "choice", Type: TypeSelect},
		Field{Name: "n", Type: TypeNumber, Min: ptr(5), Max: ptr(1)},
		Field{Name: "p", Type: TypeString, Pattern: "("},
		Field{Name: "d", Type: TypeBoolean, Default: "nope"},
	)
	issues := ValidateSchema(bad, "contentSchema")
	var paths []string
	for _, is := range issues {
		paths = append(paths, is.Path)
	}
	assert.Contains(t, paths, "contentSchema.fields[1].name")
	assert.Contains(t, paths, "contentSchema.fields[2].name")
	assert.Contains(t, paths, "contentSchema.fields[2].type")
	assert.Contains(t, paths, "contentSchema.fields[3].options")
	assert.Contains(t, paths, "contentSchema.fields[4].min")
	assert.Contains(t, paths, "contentSchema.fields[5].pattern")
	assert.Contains(t, paths, "contentSchema.fields[6].default")
}

func TestCoerce(t *testing.T) {
	s := bioSchema()
	columns, _ := s.Field("columns")
	show, _ := s.Field("showImage")
	accent, _ := s.Field("accent")
	layout, _ := s.Field("layout")

	v, err := Coerce(columns, "2")
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	_, err = Coerce(columns, "abc")
	assert.Error(t, err)

	_, err = Coerce(columns, "7")
	assert.Error(t, err)

	v, err = Coerce(show, "on")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = Coerce(accent, "#AABBCC")
	require.NoError(t, err)
	assert.Equal(t, "#aabbcc", v)

	_, err = Coerce(layout, "diagonal")
	assert.Error(t, err)
}

func TestIsColor(t *testing.T) {
	for _, ok := range []string{"#fff", "#FFFFFF", "#11223344", "rgba(1,2,3,0.5)", "transparent"} {
		assert.True(t, IsColor(ok), ok)
	}
	for _, bad := range []string{"#ggg", "fff", "rgb(1,2,3", "chartreuse-ish"} {
		assert.False(t, IsColor(bad), bad)
	}
}

func TestLongText(t *testing.T) {
	assert.True(t, Field{Type: TypeText}.LongText())
	assert.True(t, Field{Type: TypeString, Multiline: true}.LongText())
	assert.True(t, Field{Type: TypeString, MaxLength: 500}.LongText())
	assert.False(t, Field{Type: TypeString, MaxLength: 80}.LongText())
}
