package components

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

type editableKey struct{}

// WithEditable marks ctx so that inline-editable fields render with
// contenteditable and a data-field marker the canvas binds to.
func WithEditable(ctx context.Context, editable bool) context.Context {
	return context.WithValue(ctx, editableKey{}, editable)
}

// Editable reports whether ctx was marked by WithEditable.
func Editable(ctx context.Context) bool {
	v, _ := ctx.Value(editableKey{}).(bool)
	return v
}

// htmlWriter writes escaped markup and remembers the first write error.
type htmlWriter struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newHTMLWriter(ctx context.Context, w io.Writer) *htmlWriter {
	return &htmlWriter{ctx: ctx, w: w}
}

func (h *htmlWriter) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

// open writes a start tag. attrs are name/value pairs; an empty value writes a
// bare attribute.
func (h *htmlWriter) open(tag string, attrs ...string) {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(tag)
	for i := 0; i+1 < len(attrs); i += 2 {
		b.WriteString(" ")
		b.WriteString(attrs[i])
		if attrs[i+1] != "" {
			b.WriteString(`="`)
			b.WriteString(templ.EscapeString(attrs[i+1]))
			b.WriteString(`"`)
		}
	}
	b.WriteString(">")
	h.raw(b.String())
}

func (h *htmlWriter) close(tag string) {
	h.raw("</" + tag + ">")
}

// elem writes <tag attrs>text</tag>.
func (h *htmlWriter) elem(tag, text string, attrs ...string) {
	h.open(tag, attrs...)
	h.text(text)
	h.close(tag)
}

// field writes a text element bound to a content field. In editable mode the
// element can be edited in place.
func (h *htmlWriter) field(tag, name, value string, attrs ...string) {
	attrs = append(attrs, "data-field", name)
	if Editable(h.ctx) {
		attrs = append(attrs, "contenteditable", "true")
	}
	h.elem(tag, value, attrs...)
}

// link writes an anchor with a sanitized href.
func (h *htmlWriter) link(href, text string, attrs ...string) {
	attrs = append([]string{"href", safeURL(href)}, attrs...)
	h.elem("a", text, attrs...)
}

// image writes an img with a sanitized src.
func (h *htmlWriter) image(src, alt string, attrs ...string) {
	attrs = append([]string{"src", safeURL(src), "alt", alt}, attrs...)
	h.open("img", attrs...)
}

func safeURL(u string) string {
	return string(templ.URL(u))
}

// render adapts a writer callback into a templ component.
func render(fn func(h *htmlWriter)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTMLWriter(ctx, w)
		fn(h)
		return h.err
	})
}

// str reads a content value as display text.
func str(m map[string]any, key string) string {
	return display(m[key])
}

func display(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(v)
	}
}

// styleAttr renders a style map to an inline style attribute for the keys in
// cssProps, which maps style keys onto CSS properties.
func styleAttr(styles map[string]any, cssProps map[string]string) string {
	var parts []string
	for _, key := range sortedKeys(cssProps) {
		v := str(styles, key)
		if v == "" {
			continue
		}
		prop := cssProps[key]
		if strings.HasSuffix(prop, ":px") {
			prop = strings.TrimSuffix(prop, ":px")
			v += "px"
		}
		parts = append(parts, prop+": "+v)
	}
	return strings.Join(parts, "; ")
}
