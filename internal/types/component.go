// Package types provides the document model shared by the builder packages:
// components, sections, documents, templates and adapter payloads. It has no
// dependencies on other mediakit packages to avoid import cycles.
package types

import (
	"time"
)

// Metadata carries bookkeeping that does not affect rendering.
type Metadata struct {
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// Component is one typed, schema-validated content block inside a section.
type Component struct {
	// ID is unique within a document and stable for the component's lifetime.
	ID string `json:"id"`
	// Type names a registered component definition (e.g. "hero", "topics").
	Type string `json:"type"`
	// Content holds the type-specific fields validated by the content schema.
	Content map[string]any `json:"content"`
	// Styles holds visual overrides validated by the style schema.
	Styles   map[string]any `json:"styles"`
	Metadata Metadata       `json:"metadata"`
}

// Clone returns a deep copy of the component.
func (c Component) Clone() Component {
	out := c
	out.Content = CloneMap(c.Content)
	out.Styles = CloneMap(c.Styles)
	out.Metadata.Extra = CloneMap(c.Metadata.Extra)
	return out
}

// CloneMap deep-copies nested maps and slices. Leaf values are copied by value.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, e := range t {
			out[i] = CloneMap(e)
		}
		return out
	default:
		return v
	}
}

// MergeMaps returns a copy of base with every key of over applied on top.
func MergeMaps(base, over map[string]any) map[string]any {
	out := CloneMap(base)
	if out == nil {
		out = make(map[string]any, len(over))
	}
	for k, v := range over {
		out[k] = cloneValue(v)
	}
	return out
}

// JSONValues returns a copy of m holding only the shapes a JSON decode
// produces: every number is a float64 and typed slices become []any. A
// component built from such values compares equal after a save and load.
func JSONValues(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = JSONValue(v)
	}
	return out
}

// JSONValue is JSONValues for a single value.
func JSONValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return JSONValues(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = JSONValue(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = JSONValues(e)
		}
		return out
	case []float64:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case []int:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = float64(e)
		}
		return out
	case int:
		return float64(t)
	case int8:
		return float64(t)
	case int16:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint8:
		return float64(t)
	case uint16:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}
