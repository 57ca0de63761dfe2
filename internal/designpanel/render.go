package designpanel

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

// Component renders the current view.
func (p *Panel) Component() templ.Component {
	v := p.View()
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		writeView(&b, v)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// Render writes the current view to w.
func (p *Panel) Render(ctx context.Context, w io.Writer) error {
	return p.Component().Render(ctx, w)
}

func writeView(b *strings.Builder, v View) {
	if v.Empty {
		b.WriteString(`<aside class="mk-panel mk-panel-empty"><p>Select a component to edit its properties.</p></aside>`)
		return
	}
	fmt.Fprintf(b, `<aside class="mk-panel" data-component-id="%s" data-component-type="%s"><h2>%s</h2>`,
		esc(v.ComponentID), esc(v.ComponentType), esc(v.Title))

	b.WriteString(`<nav class="mk-tabs">`)
	for i, t := range v.Tabs {
		active := ""
		if i == 0 {
			active = " mk-active"
		}
		fmt.Fprintf(b, `<button type="button" class="mk-tab%s" data-tab="%s">%s</button>`, active, t.Tab, esc(t.Label))
	}
	b.WriteString(`</nav>`)

	for i, t := range v.Tabs {
		hidden := ""
		if i > 0 {
			hidden = " hidden"
		}
		fmt.Fprintf(b, `<section class="mk-tab-panel" data-tab="%s"%s>`, t.Tab, hidden)
		for _, e := range t.Editors {
			writeEditor(b, e)
		}
		b.WriteString(`</section>`)
	}
	b.WriteString(`</aside>`)
}

func writeEditor(b *strings.Builder, e Editor) {
	id := "mk-" + e.Group + "-" + e.Property
	fmt.Fprintf(b, `<div class="mk-field mk-field-%s" data-group="%s" data-property="%s">`, e.Widget, esc(e.Group), esc(e.Property))
	fmt.Fprintf(b, `<label for="%s">%s</label>`, esc(id), esc(e.Label))

	common := fmt.Sprintf(`id="%s" name="%s"`, esc(id), esc(e.Property))
	if e.Required {
		common += " required"
	}
	value := text(e.Value)

	switch e.Widget {
	case WidgetTextarea:
		fmt.Fprintf(b, `<textarea %s%s>%s</textarea>`, common, maxLength(e), esc(value))
	case WidgetNumber:
		fmt.Fprintf(b, `<input type="number" %s value="%s"%s%s>`, common, esc(value), bound("min", e.Min), bound("max", e.Max))
	case WidgetToggle:
		checked := ""
		if on, _ := e.Value.(bool); on {
			checked = " checked"
		}
		fmt.Fprintf(b, `<input type="checkbox" role="switch" %s%s>`, common, checked)
	case WidgetColor:
		hex := e.Hex
		if hex == "" {
			hex = "#000000"
		}
		fmt.Fprintf(b, `<input type="color" %s value="%s">`, common, esc(hex))
		fmt.Fprintf(b, `<input type="text" class="mk-hex" data-pair="%s" value="%s" pattern="^#?[0-9a-fA-F]{3,8}$">`, esc(id), esc(value))
	case WidgetSelect:
		fmt.Fprintf(b, `<select %s>`, common)
		for _, o := range e.Options {
			selected := ""
			if o.Value == value {
				selected = " selected"
			}
			label := o.Label
			if label == "" {
				label = o.Value
			}
			fmt.Fprintf(b, `<option value="%s"%s>%s</option>`, esc(o.Value), selected, esc(label))
		}
		b.WriteString(`</select>`)
	default:
		kind := "text"
		switch e.Widget {
		case WidgetURL, WidgetImage:
			kind = "url"
		case WidgetEmail:
			kind = "email"
		}
		fmt.Fprintf(b, `<input type="%s" %s value="%s"%s>`, kind, common, esc(value), maxLength(e))
	}

	if e.Description != "" {
		fmt.Fprintf(b, `<small>%s</small>`, esc(e.Description))
	}
	b.WriteString(`</div>`)
}

func esc(s string) string { return templ.EscapeString(s) }

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func maxLength(e Editor) string {
	if e.MaxLength <= 0 {
		return ""
	}
	return fmt.Sprintf(` maxlength="%d"`, e.MaxLength)
}

func bound(attr string, v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf(` %s="%s"`, attr, strconv.FormatFloat(*v, 'f', -1, 64))
}
