package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() Document {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	bio := Component{
		ID:       "c-1",
		Type:     "biography",
		Content:  map[string]any{"title": "About", "text": "Hello"},
		Styles:   map[string]any{"textAlign": "left"},
		Metadata: Metadata{CreatedAt: now, UpdatedAt: now},
	}
	topics := Component{
		ID:       "c-2",
		Type:     "topics",
		Content:  map[string]any{"topic_1": "Go", "topic_2": "Design"},
		Styles:   map[string]any{},
		Metadata: Metadata{CreatedAt: now, UpdatedAt: now},
	}

	full := NewSection("s-1", "content", LayoutFullWidth)
	full.Components = []Component{bio, topics}

	cols := NewSection("s-2", "features", LayoutTwoColumn)
	cols.Columns[ColumnKey(2)] = []Component{topics.Clone()}
	cols.Columns[ColumnKey(2)][0].ID = "c-3"

	return Document{Sections: []Section{full, cols}}
}

func TestDocumentJSONRoundTrip(t *testing.T) {
	doc := sampleDocument()

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var got Document
	require.NoError(t, json.Unmarshal(data, &got))

	if diff := cmp.Diff(doc, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSectionWireShape(t *testing.T) {
	doc := sampleDocument()

	data, err := json.Marshal(doc.Sections[1])
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	comps, ok := raw["components"].(map[string]any)
	require.True(t, ok, "multi-column components must be a column map")
	assert.Contains(t, comps, "column_1")
	assert.Contains(t, comps, "column_2")

	data, err = json.Marshal(doc.Sections[0])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &raw))
	_, ok = raw["components"].([]any)
	assert.True(t, ok, "full-width components must be an array")
}

func TestSectionUnmarshalRejectsScalarComponents(t *testing.T) {
	var s Section
	err := json.Unmarshal([]byte(`{"id":"s","type":"content","layout":"full-width","components":3}`), &s)
	assert.Error(t, err)
}

func TestSectionUnmarshalDefaultsLayout(t *testing.T) {
	var s Section
	require.NoError(t, json.Unmarshal([]byte(`{"id":"s1","components":[]}`), &s))
	assert.Equal(t, LayoutFullWidth, s.Layout)
	assert.NotNil(t, s.Components)
}

func TestSectionUnmarshalRejectsColumnsOutsideLayout(t *testing.T) {
	tests := []struct {
		name, body string
	}{
		{"beyond two columns", `{"id":"s","layout":"two-column","components":{"column_1":[],"column_2":[],"column_3":[{"id":"c","type":"hero"}]}}`},
		{"padded number", `{"id":"s","layout":"three-column","components":{"column_01":[]}}`},
		{"zero", `{"id":"s","layout":"two-column","components":{"column_0":[]}}`},
		{"second column of full width", `{"id":"s","layout":"full-width","components":{"column_2":[]}}`},
		{"not a column", `{"id":"s","layout":"two-column","components":{"sidebar":[]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Section
			assert.Error(t, json.Unmarshal([]byte(tt.body), &s))
		})
	}

	var s Section
	require.NoError(t, json.Unmarshal([]byte(`{"id":"s","layout":"full-width","components":{"column_1":[{"id":"c","type":"hero"}]}}`), &s))
	require.Len(t, s.Components, 1)
	assert.Nil(t, s.Columns)
}

func TestSectionMisplaced(t *testing.T) {
	two := NewSection("s", "content", LayoutTwoColumn)
	assert.Empty(t, two.Misplaced())

	two.Columns["column_3"] = []Component{{ID: "c-9", Type: "hero"}}
	two.Columns["column_4"] = []Component{}
	two.Components = []Component{{ID: "c-8", Type: "hero"}}
	assert.Equal(t, []string{"column_3", ""}, two.Misplaced())

	full := NewSection("f", "content", LayoutFullWidth)
	full.Columns = map[string][]Component{"column_1": {{ID: "c-7", Type: "hero"}}}
	assert.Equal(t, []string{"column_1"}, full.Misplaced())

	assert.True(t, LayoutThreeColumn.HasColumn("column_3"))
	assert.False(t, LayoutTwoColumn.HasColumn("column_3"))
	assert.False(t, LayoutTwoColumn.HasColumn("column_+1"))
}

func TestJSONValues(t *testing.T) {
	got := JSONValues(map[string]any{
		"padding": 32,
		"ratio":   float32(0.5),
		"tags":    []string{"a", "b"},
		"nested":  map[string]any{"n": int64(7), "list": []any{uint8(1), "x"}},
		"name":    "Ada",
	})
	want := map[string]any{
		"padding": float64(32),
		"ratio":   float64(0.5),
		"tags":    []any{"a", "b"},
		"nested":  map[string]any{"n": float64(7), "list": []any{float64(1), "x"}},
		"name":    "Ada",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("JSONValues mismatch (-want +got):\n%s", diff)
	}

	data, err := json.Marshal(got)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, got, decoded)
	assert.Nil(t, JSONValues(nil))
}

func TestSectionResolveColumn(t *testing.T) {
	full := NewSection("a", "content", LayoutFullWidth)
	key, ok := full.ResolveColumn("")
	assert.True(t, ok)
	assert.Equal(t, "", key)
	_, ok = full.ResolveColumn("column_2")
	assert.False(t, ok)

	three := NewSection("b", "content", LayoutThreeColumn)
	key, ok = three.ResolveColumn("")
	assert.True(t, ok)
	assert.Equal(t, "column_1", key)
	_, ok = three.ResolveColumn("column_3")
	assert.True(t, ok)
	_, ok = three.ResolveColumn("column_4")
	assert.False(t, ok)
	assert.Equal(t, []string{"column_1", "column_2", "column_3"}, three.ColumnKeys())
}

func TestCloneIsDeep(t *testing.T) {
	doc := sampleDocument()
	doc.Sections[0].Components[0].Content["nested"] = map[string]any{"k": []any{"a"}}

	clone := doc.Clone()
	clone.Sections[0].Components[0].Content["title"] = "Changed"
	clone.Sections[0].Components[0].Content["nested"].(map[string]any)["k"].([]any)[0] = "b"
	clone.Sections[1].Columns["column_2"][0].Styles["x"] = 1

	assert.Equal(t, "About", doc.Sections[0].Components[0].Content["title"])
	assert.Equal(t, "a", doc.Sections[0].Components[0].Content["nested"].(map[string]any)["k"].([]any)[0])
	assert.NotContains(t, doc.Sections[1].Columns["column_2"][0].Styles, "x")
}

func TestFindComponent(t *testing.T) {
	doc := sampleDocument()

	c, loc, ok := doc.FindComponent("c-3")
	require.True(t, ok)
	assert.Equal(t, "topics", c.Type)
	assert.Equal(t, Location{SectionIndex: 1, SectionID: "s-2", Column: "column_2", Index: 0}, loc)

	_, _, ok = doc.FindComponent("missing")
	assert.False(t, ok)
}

func TestDuplicateIDs(t *testing.T) {
	doc := sampleDocument()
	assert.Empty(t, doc.DuplicateIDs())

	doc.Sections[1].Columns["column_1"] = []Component{{ID: "c-1", Type: "biography"}}
	assert.Equal(t, []string{"c-1"}, doc.DuplicateIDs())
}

func TestMergeMaps(t *testing.T) {
	base := map[string]any{"a": 1, "b": map[string]any{"x": 1}}
	got := MergeMaps(base, map[string]any{"a": 2, "c": 3})

	assert.Equal(t, map[string]any{"a": 2, "b": map[string]any{"x": 1}, "c": 3}, got)
	assert.Equal(t, 1, base["a"])
}
