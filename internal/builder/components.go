package builder

import (
	"context"
	"fmt"

	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/eventbus"
	"github.com/conneroisu/mediakit/internal/registry"
	"github.com/conneroisu/mediakit/internal/schema"
	"github.com/conneroisu/mediakit/internal/state"
	"github.com/conneroisu/mediakit/internal/types"
)

// target resolves pos to a section index and column key. A nil position
// means the end of the last section's first list; an empty document gets a
// new full-width section.
func (b *Builder) target(doc *types.Document, pos *types.Position) (int, string, int, error) {
	if pos == nil {
		if len(doc.Sections) == 0 {
			doc.Sections = append(doc.Sections, types.NewSection(b.sectionIDs.Next(), "content", types.LayoutFullWidth))
		}
		si := len(doc.Sections) - 1
		col := doc.Sections[si].ColumnKeys()[0]
		list, _ := doc.Sections[si].List(col)
		return si, col, len(list), nil
	}
	si := doc.SectionIndex(pos.SectionID)
	if si < 0 {
		return 0, "", 0, errors.ErrSectionNotFound(pos.SectionID)
	}
	col, ok := doc.Sections[si].ResolveColumn(pos.Column)
	if !ok {
		return 0, "", 0, errors.NewNotFoundError(errors.ErrCodeInvalidPosition,
			fmt.Sprintf("section %s has no column %q", pos.SectionID, pos.Column))
	}
	list, _ := doc.Sections[si].List(col)
	index := pos.Index
	if index < 0 || index > len(list) {
		index = len(list)
	}
	return si, col, index, nil
}

func insertAt(list []types.Component, index int, c types.Component) []types.Component {
	out := make([]types.Component, 0, len(list)+1)
	out = append(out, list[:index]...)
	out = append(out, c)
	return append(out, list[index:]...)
}

func removeAt(list []types.Component, index int) []types.Component {
	out := make([]types.Component, 0, len(list)-1)
	out = append(out, list[:index]...)
	return append(out, list[index+1:]...)
}

// find locates id in doc or returns a not-found error.
func find(doc *types.Document, id string) (types.Component, types.Location, error) {
	c, loc, ok := doc.FindComponent(id)
	if !ok {
		return types.Component{}, types.Location{}, errors.ErrComponentNotFound(id)
	}
	return c, loc, nil
}

func listAt(doc *types.Document, loc types.Location) []types.Component {
	list, _ := doc.Sections[loc.SectionIndex].List(loc.Column)
	return list
}

func setListAt(doc *types.Document, loc types.Location, list []types.Component) {
	doc.Sections[loc.SectionIndex].SetList(loc.Column, list)
}

// AddComponent creates a component of componentType and inserts it at pos.
// A nil content selects the type's defaults.
func (b *Builder) AddComponent(ctx context.Context, componentType string, pos *types.Position, content map[string]any) (types.Component, error) {
	var added types.Component
	err := b.mutate(ctx, "add-component", func(doc *types.Document, _ *selection) (string, []emission, error) {
		c, err := b.registry.CreateComponent(componentType, registry.CreateData{Content: content})
		if err != nil {
			return "", nil, err
		}
		if _, _, exists := doc.FindComponent(c.ID); exists {
			return "", nil, errors.NewInvariantViolation(errors.ErrCodeDuplicateID, "component id already in use: "+c.ID)
		}
		si, col, index, err := b.target(doc, pos)
		if err != nil {
			return "", nil, err
		}
		list, _ := doc.Sections[si].List(col)
		doc.Sections[si].SetList(col, insertAt(list, index, c))

		added = c
		loc := types.Location{SectionIndex: si, SectionID: doc.Sections[si].ID, Column: col, Index: index}
		return "add " + componentType, []emission{{eventbus.ComponentAdded, eventbus.ComponentPayload{Component: c.Clone(), Location: loc}}}, nil
	})
	if err != nil {
		return types.Component{}, err
	}
	return added, nil
}

// UpdateComponent merges changes into the component's content and styles
// and validates the result.
func (b *Builder) UpdateComponent(ctx context.Context, id string, changes Changes) error {
	return b.mutate(ctx, "update-component", func(doc *types.Document, _ *selection) (string, []emission, error) {
		c, loc, err := find(doc, id)
		if err != nil {
			return "", nil, err
		}
		for group, props := range changes {
			var target map[string]any
			switch group {
			case GroupContent:
				if c.Content == nil {
					c.Content = map[string]any{}
				}
				target = c.Content
			case GroupStyles, "style":
				if c.Styles == nil {
					c.Styles = map[string]any{}
				}
				target = c.Styles
			default:
				return "", nil, errors.NewValidationError(errors.ErrCodeValidationFailed, "unknown update group",
					errors.Issue{Path: group, Message: "must be content or styles"}).WithComponent(id)
			}
			for k, v := range props {
				if v == nil {
					delete(target, k)
					continue
				}
				target[k] = types.JSONValue(v)
			}
		}
		if err := b.registry.ValidateComponent(c); err != nil {
			return "", nil, err
		}
		c.Metadata.UpdatedAt = b.now()

		list := listAt(doc, loc)
		list[loc.Index] = c
		return "update " + c.Type, []emission{{eventbus.ComponentChanged, eventbus.ComponentPayload{Component: c.Clone(), Location: loc}}}, nil
	})
}

// RemoveComponent deletes the component with id. Removing the selected
// component clears the selection.
func (b *Builder) RemoveComponent(ctx context.Context, id string) error {
	return b.mutate(ctx, "remove-component", func(doc *types.Document, sel *selection) (string, []emission, error) {
		c, loc, err := find(doc, id)
		if err != nil {
			return "", nil, err
		}
		setListAt(doc, loc, removeAt(listAt(doc, loc), loc.Index))
		if sel.element == id {
			sel.element, sel.section = "", ""
		}
		return "remove " + c.Type, []emission{{eventbus.ComponentRemoved, eventbus.RemovedPayload{ComponentID: id, Location: loc}}}, nil
	})
}

// MoveComponentToPosition moves the component with id so that it ends up at
// pos.Index of the target list. The component is removed first, so pos.Index
// addresses the list without it: moving A to 2 in [A,B,C] gives [B,C,A].
func (b *Builder) MoveComponentToPosition(ctx context.Context, id string, pos types.Position) error {
	return b.mutate(ctx, "move-component", func(doc *types.Document, _ *selection) (string, []emission, error) {
		c, from, err := find(doc, id)
		if err != nil {
			return "", nil, err
		}
		si := doc.SectionIndex(pos.SectionID)
		if si < 0 {
			return "", nil, errors.ErrSectionNotFound(pos.SectionID)
		}
		col, ok := doc.Sections[si].ResolveColumn(pos.Column)
		if !ok {
			return "", nil, errors.NewNotFoundError(errors.ErrCodeInvalidPosition,
				fmt.Sprintf("section %s has no column %q", pos.SectionID, pos.Column))
		}

		setListAt(doc, from, removeAt(listAt(doc, from), from.Index))
		list, _ := doc.Sections[si].List(col)
		index := pos.Index
		if index < 0 || index > len(list) {
			index = len(list)
		}
		doc.Sections[si].SetList(col, insertAt(list, index, c))

		to := types.Location{SectionIndex: si, SectionID: pos.SectionID, Column: col, Index: index}
		return "move " + c.Type, []emission{{eventbus.ComponentMoved, eventbus.MovePayload{ComponentID: id, From: from, To: to}}}, nil
	})
}

// MoveComponentUp swaps the component with its predecessor. At the top of
// its list it does nothing.
func (b *Builder) MoveComponentUp(ctx context.Context, id string) error {
	return b.step(ctx, id, -1)
}

// MoveComponentDown swaps the component with its successor. At the bottom
// of its list it does nothing.
func (b *Builder) MoveComponentDown(ctx context.Context, id string) error {
	return b.step(ctx, id, 1)
}

func (b *Builder) step(ctx context.Context, id string, delta int) error {
	_, loc, err := b.GetComponent(id)
	if err != nil {
		return b.fail(ctx, "move-component", err)
	}
	doc := b.Document()
	list := listAt(&doc, loc)
	to := loc.Index + delta
	if to < 0 || to >= len(list) {
		return nil
	}
	return b.MoveComponentToPosition(ctx, id, types.Position{SectionID: loc.SectionID, Column: loc.Column, Index: to})
}

// DuplicateComponent deep-copies the component with id under a new id and
// inserts the copy right after the original.
func (b *Builder) DuplicateComponent(ctx context.Context, id string) (types.Component, error) {
	var dup types.Component
	err := b.mutate(ctx, "duplicate-component", func(doc *types.Document, _ *selection) (string, []emission, error) {
		c, loc, err := find(doc, id)
		if err != nil {
			return "", nil, err
		}
		dup = c.Clone()
		dup.ID = b.registry.IDs().Next()
		now := b.now()
		dup.Metadata.CreatedAt, dup.Metadata.UpdatedAt = now, now

		setListAt(doc, loc, insertAt(listAt(doc, loc), loc.Index+1, dup))
		at := loc
		at.Index++
		return "duplicate " + c.Type, []emission{{eventbus.ComponentDuplicated, eventbus.ComponentPayload{Component: dup.Clone(), Location: at, SourceID: id}}}, nil
	})
	if err != nil {
		return types.Component{}, err
	}
	return dup, nil
}

// listSpec returns the numbered-list description of c's type.
func (b *Builder) listSpec(c types.Component) (*schema.List, error) {
	def, err := b.registry.GetComponent(c.Type)
	if err != nil {
		return nil, err
	}
	if def.List == nil {
		return nil, errors.NewValidationError(errors.ErrCodeValidationFailed,
			fmt.Sprintf("%s has no item list", c.Type)).WithComponent(c.ID)
	}
	return def.List, nil
}

// editList applies a list edit to the component with id.
func (b *Builder) editList(ctx context.Context, op, id string, edit func(l *schema.List, content map[string]any) (map[string]any, error)) error {
	return b.mutate(ctx, op, func(doc *types.Document, _ *selection) (string, []emission, error) {
		c, loc, err := find(doc, id)
		if err != nil {
			return "", nil, err
		}
		l, err := b.listSpec(c)
		if err != nil {
			return "", nil, err
		}
		content, err := edit(l, c.Content)
		if err != nil {
			if be, ok := err.(*errors.BuilderError); ok {
				be.WithComponent(id)
			}
			return "", nil, err
		}
		c.Content = content
		if err := b.registry.ValidateComponent(c); err != nil {
			return "", nil, err
		}
		c.Metadata.UpdatedAt = b.now()
		listAt(doc, loc)[loc.Index] = c
		return op + " " + c.Type, []emission{{eventbus.ComponentChanged, eventbus.ComponentPayload{Component: c.Clone(), Location: loc}}}, nil
	})
}

// AddListItem inserts value at zero-based index of the component's item
// list, renumbering the items after it. An index past the end appends.
func (b *Builder) AddListItem(ctx context.Context, id string, index int, value any) error {
	return b.editList(ctx, "add-item", id, func(l *schema.List, content map[string]any) (map[string]any, error) {
		return l.Insert(content, index, value)
	})
}

// RemoveListItem removes the item at zero-based index. Removing below the
// type's minimum is rejected with a warning.
func (b *Builder) RemoveListItem(ctx context.Context, id string, index int) error {
	return b.editList(ctx, "remove-item", id, func(l *schema.List, content map[string]any) (map[string]any, error) {
		return l.Remove(content, index)
	})
}

// MoveListItem moves the item at from to index to.
func (b *Builder) MoveListItem(ctx context.Context, id string, from, to int) error {
	return b.editList(ctx, "move-item", id, func(l *schema.List, content map[string]any) (map[string]any, error) {
		return l.Move(content, from, to)
	})
}

// SelectComponent makes id the single selected component.
func (b *Builder) SelectComponent(ctx context.Context, id string) error {
	b.mu.Lock()
	if err := b.readyLocked(); err != nil {
		b.mu.Unlock()
		return b.fail(ctx, "select-component", err)
	}
	st := b.state.GetState()
	_, loc, ok := st.Document().FindComponent(id)
	if !ok {
		b.mu.Unlock()
		return b.fail(ctx, "select-component", errors.ErrComponentNotFound(id))
	}
	previous := st.SelectedElement
	if previous == id {
		b.mu.Unlock()
		return nil
	}
	b.state.SetState(state.Patch{SelectedElement: state.String(id), SelectedSection: state.String(loc.SectionID)})
	b.mu.Unlock()

	if previous != "" {
		b.bus.Emit(ctx, eventbus.ComponentDeselected, eventbus.SelectionPayload{ComponentID: previous})
	}
	b.bus.Emit(ctx, eventbus.ComponentSelected, eventbus.SelectionPayload{ComponentID: id, SectionID: loc.SectionID})
	return nil
}

// ClearSelection deselects the selected component, if any.
func (b *Builder) ClearSelection(ctx context.Context) error {
	b.mu.Lock()
	if err := b.readyLocked(); err != nil {
		b.mu.Unlock()
		return b.fail(ctx, "clear-selection", err)
	}
	previous := b.state.GetState().SelectedElement
	if previous == "" {
		b.mu.Unlock()
		return nil
	}
	b.state.SetState(state.Patch{SelectedElement: state.String(""), SelectedSection: state.String("")})
	b.mu.Unlock()

	b.bus.Emit(ctx, eventbus.ComponentDeselected, eventbus.SelectionPayload{ComponentID: previous})
	return nil
}
