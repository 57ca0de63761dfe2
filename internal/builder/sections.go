package builder

import (
	"context"
	"fmt"

	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/eventbus"
	"github.com/conneroisu/mediakit/internal/types"
)

// AddSection inserts an empty section of sectionType at index. An index out
// of range appends.
func (b *Builder) AddSection(ctx context.Context, sectionType string, layout types.Layout, index int) (types.Section, error) {
	if layout == "" {
		layout = types.LayoutFullWidth
	}
	if !layout.Valid() {
		return types.Section{}, b.fail(ctx, "add-section", errors.NewValidationError(errors.ErrCodeValidationFailed,
			"invalid section layout", errors.Issue{Path: "layout", Message: fmt.Sprintf("unknown layout %q", layout)}))
	}
	if sectionType == "" {
		sectionType = "content"
	}

	var added types.Section
	err := b.mutate(ctx, "add-section", func(doc *types.Document, _ *selection) (string, []emission, error) {
		s := types.NewSection(b.nextSectionID(*doc), sectionType, layout)
		if index < 0 || index > len(doc.Sections) {
			index = len(doc.Sections)
		}
		sections := make([]types.Section, 0, len(doc.Sections)+1)
		sections = append(sections, doc.Sections[:index]...)
		sections = append(sections, s)
		doc.Sections = append(sections, doc.Sections[index:]...)

		added = s.Clone()
		return "add section", []emission{{eventbus.SectionAdded, eventbus.SectionPayload{SectionID: s.ID, Index: index, Layout: string(layout)}}}, nil
	})
	if err != nil {
		return types.Section{}, err
	}
	return added, nil
}

// nextSectionID skips ids already present in doc, which matters after a
// load or template brought in sections from elsewhere.
func (b *Builder) nextSectionID(doc types.Document) string {
	for {
		id := b.sectionIDs.Next()
		if doc.SectionIndex(id) < 0 {
			return id
		}
	}
}

// RemoveSection deletes a section and every component in it.
func (b *Builder) RemoveSection(ctx context.Context, id string) error {
	return b.mutate(ctx, "remove-section", func(doc *types.Document, sel *selection) (string, []emission, error) {
		i := doc.SectionIndex(id)
		if i < 0 {
			return "", nil, errors.ErrSectionNotFound(id)
		}
		for _, c := range doc.Sections[i].All() {
			if c.ID == sel.element {
				sel.element = ""
			}
		}
		if sel.section == id {
			sel.section = ""
		}
		doc.Sections = append(doc.Sections[:i:i], doc.Sections[i+1:]...)
		return "remove section", []emission{{eventbus.SectionRemoved, eventbus.SectionPayload{SectionID: id, Index: i}}}, nil
	})
}

// MoveSection moves a section so it ends up at index.
func (b *Builder) MoveSection(ctx context.Context, id string, index int) error {
	return b.mutate(ctx, "move-section", func(doc *types.Document, _ *selection) (string, []emission, error) {
		i := doc.SectionIndex(id)
		if i < 0 {
			return "", nil, errors.ErrSectionNotFound(id)
		}
		s := doc.Sections[i]
		rest := append(doc.Sections[:i:i], doc.Sections[i+1:]...)
		if index < 0 || index > len(rest) {
			index = len(rest)
		}
		sections := make([]types.Section, 0, len(doc.Sections))
		sections = append(sections, rest[:index]...)
		sections = append(sections, s)
		doc.Sections = append(sections, rest[index:]...)
		return "move section", []emission{{eventbus.SectionMoved, eventbus.SectionPayload{SectionID: id, Index: index}}}, nil
	})
}

// ApplyTemplate replaces the document's sections with the named template's.
// Every section and component gets a fresh id and every component must
// validate, otherwise nothing changes.
func (b *Builder) ApplyTemplate(ctx context.Context, name string) error {
	list, err := b.adapter.ListTemplates(ctx)
	if err != nil {
		return b.fail(ctx, "apply-template", err)
	}
	var tpl *types.Template
	for i := range list {
		if list[i].Name == name {
			tpl = &list[i]
			break
		}
	}
	if tpl == nil {
		return b.fail(ctx, "apply-template", errors.NewNotFoundError(errors.ErrCodeTemplateNotFound, "template not found: "+name))
	}

	return b.mutate(ctx, "apply-template", func(doc *types.Document, sel *selection) (string, []emission, error) {
		sections := types.CloneSections(tpl.Sections)
		now := b.now()
		for si := range sections {
			sections[si].ID = b.sectionIDs.Next()
			for _, col := range sections[si].ColumnKeys() {
				items, _ := sections[si].List(col)
				for i := range items {
					items[i].ID = b.registry.IDs().Next()
					items[i].Metadata.CreatedAt, items[i].Metadata.UpdatedAt = now, now
					def, err := b.registry.GetComponent(items[i].Type)
					if err != nil {
						return "", nil, err
					}
					if items[i].Content == nil {
						items[i].Content = def.FullDefaultContent()
					}
					items[i].Content = types.JSONValues(items[i].Content)
					items[i].Styles = types.JSONValues(types.MergeMaps(def.FullDefaultStyles(), items[i].Styles))
					if err := b.registry.ValidateComponent(items[i]); err != nil {
						return "", nil, err
					}
				}
			}
		}
		doc.Sections = sections
		sel.element, sel.section = "", ""
		return "apply template " + name, []emission{{eventbus.TemplateApplied, eventbus.TemplatePayload{Name: name, Count: len(sections)}}}, nil
	})
}
