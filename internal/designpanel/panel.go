// Package designpanel builds the property editor for the selected component.
// Editors are derived from the component type's schemas and grouped into
// Content, Style and Advanced tabs; edits are emitted on the bus as
// component-updated requests for the builder to apply.
package designpanel

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/eventbus"
	"github.com/conneroisu/mediakit/internal/logging"
	"github.com/conneroisu/mediakit/internal/registry"
	"github.com/conneroisu/mediakit/internal/schema"
	"github.com/conneroisu/mediakit/internal/types"
)

// Update groups, matching the builder's.
const (
	GroupContent = "content"
	GroupStyles  = "styles"
)

// Widget is the kind of input an editor renders.
type Widget string

const (
	WidgetText     Widget = "text"
	WidgetTextarea Widget = "textarea"
	WidgetNumber   Widget = "number"
	WidgetToggle   Widget = "toggle"
	WidgetColor    Widget = "color"
	WidgetSelect   Widget = "select"
	WidgetURL      Widget = "url"
	WidgetEmail    Widget = "email"
	WidgetImage    Widget = "image"
)

// WidgetFor maps a field onto its editor widget.
func WidgetFor(f schema.Field) Widget {
	switch f.Type {
	case schema.TypeNumber:
		return WidgetNumber
	case schema.TypeBoolean:
		return WidgetToggle
	case schema.TypeColor:
		return WidgetColor
	case schema.TypeSelect:
		return WidgetSelect
	case schema.TypeURL:
		return WidgetURL
	case schema.TypeEmail:
		return WidgetEmail
	case schema.TypeImage:
		return WidgetImage
	}
	if len(f.Options) > 0 {
		return WidgetSelect
	}
	if f.LongText() {
		return WidgetTextarea
	}
	return WidgetText
}

// Tab names.
type Tab string

const (
	TabContent  Tab = "content"
	TabStyle    Tab = "style"
	TabAdvanced Tab = "advanced"
)

var tabOrder = []Tab{TabContent, TabStyle, TabAdvanced}

// Editor is one property input. Color editors carry the value twice, as
// Value for the picker and Hex for the paired text input.
type Editor struct {
	Group       string          `json:"group"`
	Property    string          `json:"property"`
	Label       string          `json:"label"`
	Description string          `json:"description,omitempty"`
	Widget      Widget          `json:"widget"`
	Value       any             `json:"value,omitempty"`
	Hex         string          `json:"hex,omitempty"`
	Options     []schema.Option `json:"options,omitempty"`
	Min         *float64        `json:"min,omitempty"`
	Max         *float64        `json:"max,omitempty"`
	MaxLength   int             `json:"maxLength,omitempty"`
	Required    bool            `json:"required,omitempty"`

	field schema.Field
}

// TabView is the editors of one tab.
type TabView struct {
	Tab     Tab      `json:"tab"`
	Label   string   `json:"label"`
	Editors []Editor `json:"editors"`
}

// View is the panel's current content. Empty is set when nothing is
// selected.
type View struct {
	Empty         bool      `json:"empty"`
	ComponentID   string    `json:"componentId,omitempty"`
	ComponentType string    `json:"componentType,omitempty"`
	Title         string    `json:"title,omitempty"`
	Tabs          []TabView `json:"tabs,omitempty"`
}

// Editor finds the editor for group and property.
func (v View) Editor(group, property string) (Editor, bool) {
	for _, t := range v.Tabs {
		for _, e := range t.Editors {
			if e.Group == group && e.Property == property {
				return e, true
			}
		}
	}
	return Editor{}, false
}

// Selection provides the currently selected component.
type Selection interface {
	Selected() (types.Component, bool)
}

// Panel is the design panel.
type Panel struct {
	mu   sync.RWMutex
	view View

	selection Selection
	registry  *registry.Registry
	bus       *eventbus.Bus
	logger    logging.Logger
	unsubs    []func()
}

// New creates a panel that follows the selection through bus events.
func New(sel Selection, reg *registry.Registry, bus *eventbus.Bus, logger logging.Logger) *Panel {
	if logger == nil {
		logger = logging.Discard()
	}
	p := &Panel{
		view:      View{Empty: true},
		selection: sel,
		registry:  reg,
		bus:       bus,
		logger:    logger.WithComponent("designpanel"),
	}
	refresh := func(context.Context, eventbus.Event) error {
		p.Refresh()
		return nil
	}
	for _, ev := range []string{
		eventbus.ComponentSelected,
		eventbus.ComponentDeselected,
		eventbus.ComponentRemoved,
		eventbus.ComponentChanged,
		eventbus.StateChanged,
	} {
		p.unsubs = append(p.unsubs, bus.On(ev, refresh))
	}
	p.Refresh()
	return p
}

// Close stops following bus events.
func (p *Panel) Close() {
	for _, u := range p.unsubs {
		u()
	}
	p.unsubs = nil
}

// View returns the panel content.
func (p *Panel) View() View {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.view
}

// Refresh rebuilds the view from the current selection.
func (p *Panel) Refresh() {
	view := View{Empty: true}
	if c, ok := p.selection.Selected(); ok {
		if def, err := p.registry.GetComponent(c.Type); err == nil {
			view = p.build(c, def)
		} else {
			p.logger.Warn(context.Background(), err, "Selected component has no definition", "id", c.ID, "type", c.Type)
		}
	}
	p.mu.Lock()
	p.view = view
	p.mu.Unlock()
}

func (p *Panel) build(c types.Component, def registry.Definition) View {
	byTab := make(map[Tab][]Editor)
	if def.ContentSchema != nil {
		for _, f := range def.ContentSchema.Fields {
			tab := TabContent
			if f.Group == schema.GroupStyle || f.Group == schema.GroupAdvanced {
				tab = Tab(f.Group)
			}
			byTab[tab] = append(byTab[tab], p.editor(GroupContent, f, c.Content[f.Name]))
		}
	}
	if def.List != nil {
		for i := range def.List.Len(c.Content) {
			f := def.List.Item
			f.Name = def.List.Key(i + 1)
			if f.Label == "" {
				f.Label = fieldLabel(def.List.Prefix) + fmt.Sprintf(" %d", i+1)
			}
			byTab[TabContent] = append(byTab[TabContent], p.editor(GroupContent, f, c.Content[f.Name]))
		}
	}
	if def.StyleSchema != nil {
		for _, f := range def.StyleSchema.Fields {
			tab := TabStyle
			if f.Group == schema.GroupAdvanced {
				tab = TabAdvanced
			}
			byTab[tab] = append(byTab[tab], p.editor(GroupStyles, f, c.Styles[f.Name]))
		}
	}

	v := View{ComponentID: c.ID, ComponentType: c.Type, Title: def.Title}
	for _, tab := range tabOrder {
		if eds := byTab[tab]; len(eds) > 0 {
			v.Tabs = append(v.Tabs, TabView{Tab: tab, Label: titleCase(string(tab)), Editors: eds})
		}
	}
	return v
}

func (p *Panel) editor(group string, f schema.Field, value any) Editor {
	if value == nil {
		value = f.Default
	}
	label := f.Label
	if label == "" {
		label = fieldLabel(f.Name)
	}
	e := Editor{
		Group:       group,
		Property:    f.Name,
		Label:       label,
		Description: f.Description,
		Widget:      WidgetFor(f),
		Value:       value,
		Options:     f.Options,
		Min:         f.Min,
		Max:         f.Max,
		MaxLength:   f.MaxLength,
		Required:    f.Required,
		field:       f,
	}
	if e.Widget == WidgetColor {
		if s, ok := value.(string); ok && schema.IsHexColor(s) {
			e.Hex = strings.ToLower(s)
		}
	}
	return e
}

// titleCase uses a fresh Caser per call; Casers are not safe for
// concurrent use.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// fieldLabel turns a field name such as ctaText or image_position into
// "Cta Text" or "Image Position".
func fieldLabel(name string) string {
	var b strings.Builder
	prev := rune(0)
	for _, r := range name {
		switch {
		case r == '_' || r == '-':
			b.WriteByte(' ')
		case unicode.IsUpper(r) && prev != 0 && !unicode.IsUpper(prev):
			b.WriteByte(' ')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
		prev = r
	}
	return titleCase(strings.Join(strings.Fields(b.String()), " "))
}

// Edit coerces raw to the type of the selected component's group.property
// and requests component-updated. The error of a subscriber that rejects the
// change, usually the builder, is returned.
func (p *Panel) Edit(ctx context.Context, group, property string, raw any) error {
	v := p.View()
	if v.Empty {
		return errors.NewInvariantViolation(errors.ErrCodeComponentNotFound, "no component is selected")
	}
	if group == "style" {
		group = GroupStyles
	}
	ed, ok := v.Editor(group, property)
	if !ok {
		return errors.NewValidationError(errors.ErrCodeValidationFailed, "unknown property",
			errors.Issue{Path: group + "." + property, Message: "is not editable on " + v.ComponentType}).WithComponent(v.ComponentID)
	}
	if ed.Widget == WidgetColor {
		if s, ok := raw.(string); ok && s != "" && !strings.HasPrefix(s, "#") && schema.IsHexColor("#"+s) {
			raw = "#" + s
		}
	}
	value, err := schema.Coerce(ed.field, raw)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeValidationFailed, "invalid value",
			errors.Issue{Path: group + "." + property, Message: err.Error()}).WithComponent(v.ComponentID)
	}

	return p.bus.Request(ctx, eventbus.ComponentUpdated, eventbus.UpdateRequest{
		ComponentID: v.ComponentID,
		Group:       group,
		Property:    property,
		Value:       value,
	})
}
