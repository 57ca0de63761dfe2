package canvas

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/mediakit/internal/builder"
	"github.com/conneroisu/mediakit/internal/components"
	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/registry"
)

// CommitInlineEdit applies an in-place text edit. raw is the markup of the
// edited element; only its text is kept.
func (c *Canvas) CommitInlineEdit(ctx context.Context, id, field, raw string) error {
	comp, _, err := c.editor.GetComponent(id)
	if err != nil {
		return err
	}
	class, err := components.ClassFor(c.editor.Registry(), comp.Type)
	if err != nil {
		return err
	}
	if !inlineField(class, field) {
		return errors.NewValidationError(errors.ErrCodeValidationFailed, "field is not editable in place",
			errors.Issue{Path: "content." + field, Message: fmt.Sprintf("%s does not allow inline edits", comp.Type)}).WithComponent(id)
	}

	text, err := PlainText(raw)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeValidationFailed, "unreadable inline markup",
			errors.Issue{Path: "content." + field, Message: err.Error()}).WithComponent(id)
	}
	if current, ok := comp.Content[field].(string); ok && current == text {
		return nil
	}
	return c.editor.UpdateComponent(ctx, id, builder.Changes{builder.GroupContent: {field: text}})
}

func inlineField(class registry.Class, field string) bool {
	ie, ok := class.(registry.InlineEditable)
	if !ok {
		return false
	}
	for _, f := range ie.InlineFields() {
		if f == field {
			return true
		}
		if prefix, wild := strings.CutSuffix(f, "*"); wild && strings.HasPrefix(field, prefix) {
			return true
		}
	}
	return false
}

// PlainText reduces an HTML fragment to its text. Line breaks and block
// boundaries become newlines; scripts and styles are dropped.
func PlainText(fragment string) (string, error) {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style:
				return
			case atom.Br:
				b.WriteByte('\n')
				return
			case atom.P, atom.Div, atom.Li:
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteByte('\n')
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return strings.TrimSpace(b.String()), nil
}
