// Package schema describes the fields of component content and styles and
// validates values against them. The same descriptions drive the design
// panel's editors.
package schema

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/conneroisu/mediakit/internal/errors"
)

// FieldType is the primitive kind of a field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeText    FieldType = "text"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeColor   FieldType = "color"
	TypeSelect  FieldType = "select"
	TypeURL     FieldType = "url"
	TypeEmail   FieldType = "email"
	TypeImage   FieldType = "image"
)

// Known reports whether t is a supported field type.
func (t FieldType) Known() bool {
	switch t {
	case TypeString, TypeText, TypeNumber, TypeBoolean, TypeColor,
		TypeSelect, TypeURL, TypeEmail, TypeImage:
		return true
	}
	return false
}

// Group is the design panel tab a field is shown in.
type Group string

const (
	GroupContent  Group = "content"
	GroupStyle    Group = "style"
	GroupAdvanced Group = "advanced"
)

// Option is one choice of a select field.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Field describes one content or style property.
type Field struct {
	Name        string    `json:"name" yaml:"name"`
	Label       string    `json:"label,omitempty" yaml:"label,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Type        FieldType `json:"type" yaml:"type"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Default     any       `json:"default,omitempty" yaml:"default,omitempty"`
	Options     []Option  `json:"options,omitempty" yaml:"options,omitempty"`
	Min         *float64  `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *float64  `json:"max,omitempty" yaml:"max,omitempty"`
	MaxLength   int       `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern     string    `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Multiline   bool      `json:"multiline,omitempty" yaml:"multiline,omitempty"`
	Group       Group     `json:"group,omitempty" yaml:"group,omitempty"`
}

// LongText reports whether the field should be edited as multi-line text.
func (f Field) LongText() bool {
	return f.Type == TypeText || f.Multiline || f.MaxLength > 120
}

// HasOption reports whether v is one of the select options.
func (f Field) HasOption(v string) bool {
	for _, o := range f.Options {
		if o.Value == v {
			return true
		}
	}
	return false
}

// Schema is an ordered list of fields.
type Schema struct {
	Fields []Field `json:"fields" yaml:"fields"`
}

// New builds a schema from fields.
func New(fields ...Field) *Schema {
	return &Schema{Fields: fields}
}

// Field returns the field named name.
func (s *Schema) Field(name string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Names lists the field names in declaration order.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Required lists the names of required fields.
func (s *Schema) Required() []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// Defaults returns a map of every field that declares a default.
func (s *Schema) Defaults() map[string]any {
	out := make(map[string]any)
	if s == nil {
		return out
	}
	for _, f := range s.Fields {
		if f.Default != nil {
			out[f.Name] = f.Default
		}
	}
	return out
}

// OptionalDefaults is Defaults restricted to non-required fields.
func (s *Schema) OptionalDefaults() map[string]any {
	out := make(map[string]any)
	if s == nil {
		return out
	}
	for _, f := range s.Fields {
		if f.Default != nil && !f.Required {
			out[f.Name] = f.Default
		}
	}
	return out
}

// ValidateSchema checks a schema itself: unique names, known types, options
// on select fields, sane bounds, compilable patterns and valid defaults.
func ValidateSchema(s *Schema, path string) []errors.Issue {
	var issues []errors.Issue
	if s == nil {
		return append(issues, errors.Issue{Path: path, Message: "is required"})
	}

	seen := make(map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		fp := fmt.Sprintf("%s.fields[%d]", path, i)
		if f.Name == "" {
			issues = append(issues, errors.Issue{Path: fp + ".name", Message: "is required"})
		} else if seen[f.Name] {
			issues = append(issues, errors.Issue{Path: fp + ".name", Message: fmt.Sprintf("duplicate field %q", f.Name)})
		}
		seen[f.Name] = true

		if !f.Type.Known() {
			issues = append(issues, errors.Issue{Path: fp + ".type", Message: fmt.Sprintf("unknown field type %q", f.Type)})
			continue
		}
		if f.Type == TypeSelect && len(f.Options) == 0 {
			issues = append(issues, errors.Issue{Path: fp + ".options", Message: "select fields need options"})
		}
		if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			issues = append(issues, errors.Issue{Path: fp + ".min", Message: "min exceeds max"})
		}
		if f.Pattern != "" {
			if _, err := regexp.Compile(f.Pattern); err != nil {
				issues = append(issues, errors.Issue{Path: fp + ".pattern", Message: err.Error()})
			}
		}
		if f.Group != "" && f.Group != GroupContent && f.Group != GroupStyle && f.Group != GroupAdvanced {
			issues = append(issues, errors.Issue{Path: fp + ".group", Message: fmt.Sprintf("unknown group %q", f.Group)})
		}
		if f.Default != nil {
			if msg := checkValue(f, f.Default); msg != "" {
				issues = append(issues, errors.Issue{Path: fp + ".default", Message: msg})
			}
		}
	}
	return issues
}

// Validate checks values against the schema and returns a validation error
// listing every issue, or nil. Keys without a field are allowed.
func (s *Schema) Validate(values map[string]any) error {
	issues := s.Check(values, "")
	if len(issues) == 0 {
		return nil
	}
	return errors.NewValidationError(errors.ErrCodeValidationFailed, "values do not match schema", issues...)
}

// Check is Validate returning the raw issue list, prefixed with path.
func (s *Schema) Check(values map[string]any, path string) []errors.Issue {
	if s == nil {
		return nil
	}
	var issues []errors.Issue
	for _, f := range s.Fields {
		fp := joinPath(path, f.Name)
		v, ok := values[f.Name]
		if !ok || v == nil || isBlank(f, v) {
			if f.Required {
				issues = append(issues, errors.Issue{Path: fp, Message: "is required"})
			}
			continue
		}
		if msg := checkValue(f, v); msg != "" {
			issues = append(issues, errors.Issue{Path: fp, Message: msg})
		}
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Path < issues[j].Path })
	return issues
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

func isBlank(f Field, v any) bool {
	if !isStringType(f.Type) {
		return false
	}
	s, ok := v.(string)
	return ok && s == ""
}
