// Package renderer turns documents into HTML.
//
// Component markup comes from the registered runtimes; the renderer lays
// sections and columns out around them. In editor mode it also writes the
// canvas chrome: drop zones between components, per-component controls and
// the selection marker. Export uses the same path without chrome through
// RenderPage.
package renderer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/conneroisu/mediakit/internal/components"
	"github.com/conneroisu/mediakit/internal/logging"
	"github.com/conneroisu/mediakit/internal/registry"
	"github.com/conneroisu/mediakit/internal/types"
)

// Options control editor chrome.
type Options struct {
	// Editable adds drop zones, controls and contenteditable fields.
	Editable bool
	// Selected is the id of the selected component, if any.
	Selected string
	// DragActive marks the canvas while a drag session is open.
	DragActive bool
}

// ComponentRenderer renders components and documents to HTML.
type ComponentRenderer struct {
	registry *registry.Registry
	logger   logging.Logger
}

// NewComponentRenderer creates a renderer over reg.
func NewComponentRenderer(reg *registry.Registry, logger logging.Logger) *ComponentRenderer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ComponentRenderer{registry: reg, logger: logger.WithComponent("renderer")}
}

// Component returns the templ component for one instance. Unregistered types
// render as a placeholder so one bad component does not blank the page.
func (r *ComponentRenderer) Component(c types.Component) templ.Component {
	class, err := components.ClassFor(r.registry, c.Type)
	if err != nil {
		r.logger.Warn(context.Background(), err, "Rendering placeholder for unknown component", "id", c.ID, "type", c.Type)
		return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			_, err := fmt.Fprintf(w, `<div class="mk-component mk-unknown" data-component-id="%s">Unknown component type %s</div>`,
				templ.EscapeString(c.ID), templ.EscapeString(c.Type))
			return err
		})
	}
	return class.Render(c)
}

// RenderComponent writes one component.
func (r *ComponentRenderer) RenderComponent(ctx context.Context, w io.Writer, c types.Component, editable bool) error {
	return r.Component(c).Render(components.WithEditable(ctx, editable), w)
}

// Document returns the templ component for the section list of doc.
func (r *ComponentRenderer) Document(doc types.Document, opts Options) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ctx = components.WithEditable(ctx, opts.Editable)
		classes := "mk-document"
		if opts.Editable {
			classes += " mk-editing"
		}
		if opts.DragActive {
			classes += " mk-dragging"
		}
		if _, err := fmt.Fprintf(w, `<main class="%s" data-theme="%s">`, classes, templ.EscapeString(doc.Theme)); err != nil {
			return err
		}
		for _, s := range doc.Sections {
			if err := r.section(ctx, w, s, opts); err != nil {
				return fmt.Errorf("render section %s: %w", s.ID, err)
			}
		}
		_, err := io.WriteString(w, "</main>")
		return err
	})
}

// RenderDocument writes the document.
func (r *ComponentRenderer) RenderDocument(ctx context.Context, w io.Writer, doc types.Document, opts Options) error {
	return r.Document(doc, opts).Render(ctx, w)
}

func (r *ComponentRenderer) section(ctx context.Context, w io.Writer, s types.Section, opts Options) error {
	if _, err := fmt.Fprintf(w, `<section class="mk-section mk-%s mk-layout-%s" data-section-id="%s">`,
		templ.EscapeString(s.Type), templ.EscapeString(string(s.Layout)), templ.EscapeString(s.ID)); err != nil {
		return err
	}
	for _, col := range s.ColumnKeys() {
		list, _ := s.List(col)
		if s.IsMultiColumn() {
			if _, err := fmt.Fprintf(w, `<div class="mk-column" data-column="%s">`, col); err != nil {
				return err
			}
		}
		for i, c := range list {
			if opts.Editable {
				if err := dropZone(w, s.ID, col, i); err != nil {
					return err
				}
			}
			if err := r.item(ctx, w, c, i, len(list), opts); err != nil {
				return err
			}
		}
		if opts.Editable {
			if err := dropZone(w, s.ID, col, len(list)); err != nil {
				return err
			}
		}
		if s.IsMultiColumn() {
			if _, err := io.WriteString(w, "</div>"); err != nil {
				return err
			}
		}
	}
	_, err := io.WriteString(w, "</section>")
	return err
}

func (r *ComponentRenderer) item(ctx context.Context, w io.Writer, c types.Component, index, count int, opts Options) error {
	if !opts.Editable {
		return r.Component(c).Render(ctx, w)
	}
	classes := "mk-item"
	if c.ID == opts.Selected {
		classes += " mk-selected"
	}
	if _, err := fmt.Fprintf(w, `<div class="%s" data-item-id="%s" draggable="true">`, classes, templ.EscapeString(c.ID)); err != nil {
		return err
	}
	if err := controls(w, c.ID, index, count); err != nil {
		return err
	}
	if err := r.Component(c).Render(ctx, w); err != nil {
		return err
	}
	_, err := io.WriteString(w, "</div>")
	return err
}

// dropZone writes the insertion target before position index of a list.
func dropZone(w io.Writer, sectionID, column string, index int) error {
	_, err := fmt.Fprintf(w, `<div class="mk-drop-zone" data-section-id="%s" data-column="%s" data-index="%d"></div>`,
		templ.EscapeString(sectionID), column, index)
	return err
}

// Control actions written on per-component buttons.
const (
	ActionSelect    = "select"
	ActionMoveUp    = "move-up"
	ActionMoveDown  = "move-down"
	ActionDuplicate = "duplicate"
	ActionDelete    = "delete"
)

func controls(w io.Writer, id string, index, count int) error {
	var b strings.Builder
	b.WriteString(`<div class="mk-controls">`)
	button := func(action, label string, disabled bool) {
		b.WriteString(`<button type="button" data-action="` + action + `" data-target="` + templ.EscapeString(id) + `"`)
		if disabled {
			b.WriteString(" disabled")
		}
		b.WriteString(">" + label + "</button>")
	}
	button(ActionSelect, "Edit", false)
	button(ActionMoveUp, "Up", index == 0)
	button(ActionMoveDown, "Down", index == count-1)
	button(ActionDuplicate, "Duplicate", false)
	button(ActionDelete, "Delete", false)
	b.WriteString("</div>")
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderPage writes a standalone HTML page for doc without editor chrome.
func (r *ComponentRenderer) RenderPage(ctx context.Context, w io.Writer, title string, doc types.Document) error {
	if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="generator" content="mediakit">
<title>%s</title>
<style>%s</style>
</head>
<body>
`, templ.EscapeString(title), pageCSS); err != nil {
		return err
	}
	if err := r.RenderDocument(ctx, w, doc, Options{}); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n</body>\n</html>\n")
	return err
}

// pageCSS is the base stylesheet of exported pages.
const pageCSS = `body{margin:0;font-family:system-ui,sans-serif;line-height:1.5}
.mk-section{display:grid;gap:1.5rem;padding:2rem}
.mk-layout-two-column{grid-template-columns:repeat(2,1fr)}
.mk-layout-three-column{grid-template-columns:repeat(3,1fr)}
.mk-component img{max-width:100%}
.mk-button{display:inline-block;padding:.75rem 1.5rem;border-radius:.375rem;text-decoration:none}`
