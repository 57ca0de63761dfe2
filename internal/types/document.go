package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Layout is the arrangement of a section's components.
type Layout string

const (
	LayoutFullWidth   Layout = "full-width"
	LayoutTwoColumn   Layout = "two-column"
	LayoutThreeColumn Layout = "three-column"
)

// Columns returns the column count of the layout. Unknown layouts render as
// a single column.
func (l Layout) Columns() int {
	switch l {
	case LayoutTwoColumn:
		return 2
	case LayoutThreeColumn:
		return 3
	default:
		return 1
	}
}

// Valid reports whether l is one of the known layouts.
func (l Layout) Valid() bool {
	switch l {
	case LayoutFullWidth, LayoutTwoColumn, LayoutThreeColumn:
		return true
	}
	return false
}

// ColumnKey returns the wire key of the n-th column, counting from 1.
func ColumnKey(n int) string {
	return "column_" + strconv.Itoa(n)
}

// HasColumn reports whether key names one of the layout's columns. Unknown
// layouts have a single column_1.
func (l Layout) HasColumn(key string) bool {
	n, ok := strings.CutPrefix(key, "column_")
	if !ok {
		return false
	}
	i, err := strconv.Atoi(n)
	return err == nil && i >= 1 && i <= l.Columns() && ColumnKey(i) == key
}

// Section is a layout container. Full-width sections keep their components in
// Components; multi-column sections keep one list per column in Columns.
type Section struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Layout     Layout                 `json:"layout"`
	Components []Component            `json:"-"`
	Columns    map[string][]Component `json:"-"`
}

// NewSection returns an empty section with every column of layout present.
func NewSection(id, sectionType string, layout Layout) Section {
	if !layout.Valid() {
		layout = LayoutFullWidth
	}
	s := Section{ID: id, Type: sectionType, Layout: layout}
	s.normalize()
	return s
}

// IsMultiColumn reports whether the section stores per-column lists.
func (s Section) IsMultiColumn() bool {
	return s.Layout.Columns() > 1
}

// ColumnKeys lists the section's column keys in render order. Full-width
// sections have a single unnamed list and return [""].
func (s Section) ColumnKeys() []string {
	if !s.IsMultiColumn() {
		return []string{""}
	}
	keys := make([]string, s.Layout.Columns())
	for i := range keys {
		keys[i] = ColumnKey(i + 1)
	}
	return keys
}

// ResolveColumn maps a caller supplied column onto a key of this section.
// An empty column means the first list.
func (s Section) ResolveColumn(column string) (string, bool) {
	if !s.IsMultiColumn() {
		return "", column == "" || column == ColumnKey(1)
	}
	if column == "" {
		return ColumnKey(1), true
	}
	for _, k := range s.ColumnKeys() {
		if k == column {
			return k, true
		}
	}
	return "", false
}

// List returns the component list stored under column.
func (s Section) List(column string) ([]Component, bool) {
	key, ok := s.ResolveColumn(column)
	if !ok {
		return nil, false
	}
	if !s.IsMultiColumn() {
		return s.Components, true
	}
	return s.Columns[key], true
}

// SetList replaces the list stored under column.
func (s *Section) SetList(column string, list []Component) bool {
	key, ok := s.ResolveColumn(column)
	if !ok {
		return false
	}
	if !s.IsMultiColumn() {
		s.Components = list
		return true
	}
	if s.Columns == nil {
		s.Columns = make(map[string][]Component)
	}
	s.Columns[key] = list
	return true
}

// All returns every component in render order.
func (s Section) All() []Component {
	if !s.IsMultiColumn() {
		return s.Components
	}
	var out []Component
	for _, k := range s.ColumnKeys() {
		out = append(out, s.Columns[k]...)
	}
	return out
}

// Misplaced lists the storage keys whose components the layout never
// shows: columns beyond the layout's count, any column of a full-width
// section, and the full-width list of a multi-column section ("").
func (s Section) Misplaced() []string {
	var out []string
	for _, k := range sortedKeys(s.Columns) {
		if !s.IsMultiColumn() || !s.Layout.HasColumn(k) {
			if len(s.Columns[k]) > 0 {
				out = append(out, k)
			}
		}
	}
	if s.IsMultiColumn() && len(s.Components) > 0 {
		out = append(out, "")
	}
	return out
}

// Len counts the section's components across all columns.
func (s Section) Len() int {
	n := 0
	for _, k := range s.ColumnKeys() {
		l, _ := s.List(k)
		n += len(l)
	}
	return n
}

// Clone returns a deep copy of the section.
func (s Section) Clone() Section {
	out := Section{ID: s.ID, Type: s.Type, Layout: s.Layout}
	if s.Components != nil {
		out.Components = cloneList(s.Components)
	}
	if s.Columns != nil {
		out.Columns = make(map[string][]Component, len(s.Columns))
		for k, v := range s.Columns {
			out.Columns[k] = cloneList(v)
		}
	}
	return out
}

func cloneList(in []Component) []Component {
	out := make([]Component, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

// normalize makes the storage match the layout: full-width sections get a
// non-nil slice, multi-column sections get every column key. Components that
// were stored in the wrong shape are folded into the first list.
func (s *Section) normalize() {
	if !s.IsMultiColumn() {
		if s.Components == nil {
			s.Components = []Component{}
		}
		for _, k := range sortedKeys(s.Columns) {
			s.Components = append(s.Components, s.Columns[k]...)
		}
		s.Columns = nil
		return
	}
	if s.Columns == nil {
		s.Columns = make(map[string][]Component)
	}
	for _, k := range s.ColumnKeys() {
		if s.Columns[k] == nil {
			s.Columns[k] = []Component{}
		}
	}
	if len(s.Components) > 0 {
		first := ColumnKey(1)
		s.Columns[first] = append(s.Components, s.Columns[first]...)
	}
	s.Components = nil
}

func sortedKeys(m map[string][]Component) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type sectionWire struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Layout     Layout          `json:"layout"`
	Components json.RawMessage `json:"components"`
}

// MarshalJSON writes components as an array for full-width sections and as a
// column map otherwise.
func (s Section) MarshalJSON() ([]byte, error) {
	n := s.Clone()
	n.normalize()

	var raw []byte
	var err error
	if n.IsMultiColumn() {
		raw, err = json.Marshal(n.Columns)
	} else {
		raw, err = json.Marshal(n.Components)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(sectionWire{ID: s.ID, Type: s.Type, Layout: n.Layout, Components: raw})
}

// UnmarshalJSON accepts either components shape.
func (s *Section) UnmarshalJSON(data []byte) error {
	var w sectionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Section{ID: w.ID, Type: w.Type, Layout: w.Layout}
	if s.Layout == "" {
		s.Layout = LayoutFullWidth
	}

	raw := bytes.TrimSpace(w.Components)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '[':
		if err := json.Unmarshal(raw, &s.Components); err != nil {
			return fmt.Errorf("section %s components: %w", w.ID, err)
		}
	case raw[0] == '{':
		if err := json.Unmarshal(raw, &s.Columns); err != nil {
			return fmt.Errorf("section %s columns: %w", w.ID, err)
		}
		for _, k := range sortedKeys(s.Columns) {
			if !s.Layout.HasColumn(k) {
				return fmt.Errorf("section %s: column key %q does not fit layout %s", w.ID, k, s.Layout)
			}
		}
	default:
		return fmt.Errorf("section %s: components must be an array or a column map", w.ID)
	}
	s.normalize()
	return nil
}

// Position is an insertion point: a zero-based index into one list of one
// section.
type Position struct {
	SectionID string `json:"sectionId"`
	Column    string `json:"column,omitempty"`
	Index     int    `json:"index"`
}

// Location records where a component currently lives.
type Location struct {
	SectionIndex int    `json:"sectionIndex"`
	SectionID    string `json:"sectionId"`
	Column       string `json:"column,omitempty"`
	Index        int    `json:"index"`
}

// Document is the ordered collection of sections forming one kit.
type Document struct {
	Sections []Section `json:"sections"`
	Theme    string    `json:"theme,omitempty"`
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	return Document{Sections: CloneSections(d.Sections), Theme: d.Theme}
}

// CloneSections deep-copies a section list, preserving nil.
func CloneSections(in []Section) []Section {
	if in == nil {
		return nil
	}
	out := make([]Section, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

// SectionIndex returns the index of the section with id, or -1.
func (d Document) SectionIndex(id string) int {
	for i, s := range d.Sections {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// FindComponent locates a component by id.
func (d Document) FindComponent(id string) (Component, Location, bool) {
	for si, s := range d.Sections {
		for _, col := range s.ColumnKeys() {
			list, _ := s.List(col)
			for i, c := range list {
				if c.ID == id {
					return c, Location{SectionIndex: si, SectionID: s.ID, Column: col, Index: i}, true
				}
			}
		}
	}
	return Component{}, Location{}, false
}

// Components returns every component of the document in render order.
func (d Document) Components() []Component {
	var out []Component
	for _, s := range d.Sections {
		out = append(out, s.All()...)
	}
	return out
}

// DuplicateIDs returns ids used by more than one section or component.
func (d Document) DuplicateIDs() []string {
	seen := make(map[string]int)
	for _, s := range d.Sections {
		seen[s.ID]++
		for _, c := range s.All() {
			seen[c.ID]++
		}
	}
	var dups []string
	for id, n := range seen {
		if n > 1 {
			dups = append(dups, id)
		}
	}
	sort.Strings(dups)
	return dups
}

// Template is a document-shaped payload used to initialize a kit.
type Template struct {
	Name        string    `json:"name"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Premium     bool      `json:"premium,omitempty"`
	Sections    []Section `json:"sections"`
}

// SavePayload is what the builder hands to Adapter.Save.
type SavePayload struct {
	ID        string    `json:"id,omitempty"`
	State     Document  `json:"state"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// LoadResult is what Adapter.Load returns.
type LoadResult struct {
	ID        string    `json:"id"`
	State     Document  `json:"state"`
	Version   string    `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// ExportFormat names an export target.
type ExportFormat string

const (
	ExportHTML ExportFormat = "html"
	ExportJSON ExportFormat = "json"
	ExportYAML ExportFormat = "yaml"
	ExportPDF  ExportFormat = "pdf"
)

// ExportResult points at an exported artifact.
type ExportResult struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Config is the initial configuration blob supplied by the adapter.
type Config struct {
	Theme    string          `json:"theme,omitempty"`
	Platform map[string]bool `json:"platform,omitempty"`
	Features map[string]bool `json:"features,omitempty"`
	// KitID, when set, is the kit the builder starts on. Init records it as
	// the save target; loading it is up to the caller.
	KitID string `json:"kitId,omitempty"`
}
