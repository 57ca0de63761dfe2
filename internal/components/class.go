// Package components contains the built-in component runtimes: their
// definitions, HTML rendering and type-specific rules. RegisterBuiltins is
// the static registration table run once at startup.
package components

import (
	"sort"
	"strconv"

	"github.com/a-h/templ"

	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/registry"
	"github.com/conneroisu/mediakit/internal/schema"
	"github.com/conneroisu/mediakit/internal/types"
)

// Class is the runtime shared by all built-in types.
type Class struct {
	def      registry.Definition
	body     func(h *htmlWriter, c types.Component, def registry.Definition)
	inline   []string
	validate func(content map[string]any) []errors.Issue
}

// Definition returns the type's registry entry.
func (k *Class) Definition() registry.Definition { return k.def }

// InlineFields lists the content fields editable in place.
func (k *Class) InlineFields() []string {
	out := append([]string(nil), k.inline...)
	if k.def.List != nil {
		out = append(out, k.def.List.Prefix+"_*")
	}
	return out
}

// ValidateContent applies rules beyond the schema.
func (k *Class) ValidateContent(content map[string]any) []errors.Issue {
	if k.validate == nil {
		return nil
	}
	return k.validate(content)
}

// Render renders the component wrapped in its mk-component element.
func (k *Class) Render(c types.Component) templ.Component {
	return render(func(h *htmlWriter) {
		h.open("div",
			"class", "mk-component mk-"+c.Type,
			"data-component-id", c.ID,
			"data-component-type", c.Type,
			"style", styleAttr(c.Styles, commonCSS),
		)
		k.body(h, c, k.def)
		h.close("div")
	})
}

// commonCSS maps shared style keys onto CSS properties.
var commonCSS = map[string]string{
	"backgroundColor": "background-color",
	"textColor":       "color",
	"textAlign":       "text-align",
	"alignment":       "text-align",
	"padding":         "padding:px",
}

// Generic returns a runtime for a definition that has no dedicated class,
// such as manifest-declared types. It renders every content field in schema
// order followed by the list items.
func Generic(def registry.Definition) *Class {
	var inline []string
	for _, f := range def.ContentSchema.Fields {
		if f.Type == schema.TypeString || f.Type == schema.TypeText {
			inline = append(inline, f.Name)
		}
	}
	return &Class{def: def, inline: inline, body: genericBody}
}

func genericBody(h *htmlWriter, c types.Component, def registry.Definition) {
	for _, f := range def.ContentSchema.Fields {
		v := str(c.Content, f.Name)
		if v == "" {
			continue
		}
		switch f.Type {
		case schema.TypeURL:
			h.link(v, v, "data-field", f.Name)
		case schema.TypeImage:
			h.image(v, f.Name, "data-field", f.Name)
		case schema.TypeText:
			h.field("p", f.Name, v)
		default:
			h.field("div", f.Name, v, "class", "mk-field")
		}
	}
	listItems(h, c, def, "ul", "li")
}

// listItems renders the numbered list items of c, if its type has a list.
func listItems(h *htmlWriter, c types.Component, def registry.Definition, outer, inner string) {
	if def.List == nil {
		return
	}
	h.open(outer, "class", "mk-list")
	for i, item := range def.List.Items(c.Content) {
		key := def.List.Key(i + 1)
		if def.List.Item.Type == schema.TypeImage {
			h.open(inner, "data-index", strconv.Itoa(i))
			h.image(display(item), key, "data-field", key)
			h.close(inner)
			continue
		}
		h.field(inner, key, display(item), "data-index", strconv.Itoa(i))
	}
	h.close(outer)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ClassFor returns the runtime for componentType, falling back to a generic
// runtime for types registered without a class.
func ClassFor(reg *registry.Registry, componentType string) (registry.Class, error) {
	if class, err := reg.GetComponentClass(componentType); err == nil {
		return class, nil
	}
	def, err := reg.GetComponent(componentType)
	if err != nil {
		return nil, err
	}
	return Generic(def), nil
}
