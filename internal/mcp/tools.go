package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/conneroisu/mediakit/internal/builder"
	"github.com/conneroisu/mediakit/internal/types"
)

func boolPtr(v bool) *bool { return &v }

func (s *Server) registerComponentTools() {
	s.mcp.AddTool(mcp.NewTool("list_component_types",
		mcp.WithDescription("List the registered component types with their content fields"),
		mcp.WithString("category", mcp.Description("Only types of this category (optional)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListComponentTypes)

	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Return the kit document: every section and its components"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleGetDocument)

	s.mcp.AddTool(mcp.NewTool("get_component",
		mcp.WithDescription("Return one component and where it sits"),
		mcp.WithString("id", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleGetComponent)

	s.mcp.AddTool(mcp.NewTool("add_component",
		mcp.WithDescription("Add a component. Without sectionId it is appended to the last section."),
		mcp.WithString("type", mcp.Description("Component type, see list_component_types"), mcp.Required()),
		mcp.WithString("sectionId", mcp.Description("Target section (optional)")),
		mcp.WithString("column", mcp.Description("Column key of a multi-column section, e.g. column_2 (optional)")),
		mcp.WithNumber("index", mcp.Description("Zero-based index in the target list (optional, appends)")),
		mcp.WithObject("content", mcp.Description("Initial content merged over the type defaults (optional)")),
	), s.handleAddComponent)

	s.mcp.AddTool(mcp.NewTool("update_component",
		mcp.WithDescription("Merge content and style changes into a component"),
		mcp.WithString("id", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithObject("content", mcp.Description("Content fields to change (optional)")),
		mcp.WithObject("styles", mcp.Description("Style fields to change (optional)")),
	), s.handleUpdateComponent)

	s.mcp.AddTool(mcp.NewTool("remove_component",
		mcp.WithDescription("Remove a component. It can be restored with undo."),
		mcp.WithString("id", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRemoveComponent)

	s.mcp.AddTool(mcp.NewTool("move_component",
		mcp.WithDescription("Move a component to a section, column and index"),
		mcp.WithString("id", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("sectionId", mcp.Description("Target section"), mcp.Required()),
		mcp.WithString("column", mcp.Description("Column key (optional)")),
		mcp.WithNumber("index", mcp.Description("Final zero-based index"), mcp.Required()),
	), s.handleMoveComponent)

	s.mcp.AddTool(mcp.NewTool("duplicate_component",
		mcp.WithDescription("Copy a component directly below itself"),
		mcp.WithString("id", mcp.Description("Component ID"), mcp.Required()),
	), s.handleDuplicateComponent)
}

type typeSummary struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Premium     bool     `json:"premium,omitempty"`
	Fields      []string `json:"fields"`
}

func (s *Server) handleListComponentTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := req.GetString("category", "")
	var out []typeSummary
	for _, def := range s.builder.Registry().List() {
		if category != "" && def.Category != category {
			continue
		}
		ts := typeSummary{
			Type:        def.Type,
			Title:       def.Title,
			Description: def.Description,
			Category:    def.Category,
			Premium:     def.Premium,
			Fields:      []string{},
		}
		if def.ContentSchema != nil {
			for _, f := range def.ContentSchema.Fields {
				ts.Fields = append(ts.Fields, f.Name)
			}
		}
		out = append(out, ts)
	}
	return jsonResult(out)
}

func (s *Server) handleGetDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.builder.Document())
}

type componentResult struct {
	Component types.Component `json:"component"`
	Location  types.Location  `json:"location"`
}

func (s *Server) handleGetComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, loc, err := s.builder.GetComponent(req.GetString("id", ""))
	if err != nil {
		return errorResult("get-component", err)
	}
	return jsonResult(componentResult{Component: c, Location: loc})
}

func (s *Server) handleAddComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	content, err := getObject(args, "content")
	if err != nil {
		return nil, err
	}
	var pos *types.Position
	if sectionID := req.GetString("sectionId", ""); sectionID != "" {
		pos = &types.Position{
			SectionID: sectionID,
			Column:    req.GetString("column", ""),
			Index:     getInt(args, "index", -1),
		}
	}
	componentType := req.GetString("type", "")
	if s.palette != nil {
		if err := s.palette.CanAdd(componentType); err != nil {
			return errorResult("add-component", err)
		}
	}
	c, err := s.builder.AddComponent(ctx, componentType, pos, content)
	if err != nil {
		return errorResult("add-component", err)
	}
	return jsonResult(c)
}

func (s *Server) handleUpdateComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	changes := builder.Changes{}
	for arg, group := range map[string]string{"content": builder.GroupContent, "styles": builder.GroupStyles} {
		m, err := getObject(args, arg)
		if err != nil {
			return nil, err
		}
		if len(m) > 0 {
			changes[group] = m
		}
	}
	id := req.GetString("id", "")
	if err := s.builder.UpdateComponent(ctx, id, changes); err != nil {
		return errorResult("update-component", err)
	}
	return s.handleGetComponent(ctx, req)
}

func (s *Server) handleRemoveComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if err := s.builder.RemoveComponent(ctx, id); err != nil {
		return errorResult("remove-component", err)
	}
	return textResult(fmt.Sprintf("Component %s removed", id)), nil
}

func (s *Server) handleMoveComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pos := types.Position{
		SectionID: req.GetString("sectionId", ""),
		Column:    req.GetString("column", ""),
		Index:     getInt(args, "index", 0),
	}
	if err := s.builder.MoveComponentToPosition(ctx, req.GetString("id", ""), pos); err != nil {
		return errorResult("move-component", err)
	}
	return s.handleGetComponent(ctx, req)
}

func (s *Server) handleDuplicateComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.builder.DuplicateComponent(ctx, req.GetString("id", ""))
	if err != nil {
		return errorResult("duplicate-component", err)
	}
	return jsonResult(c)
}

func (s *Server) registerSectionTools() {
	s.mcp.AddTool(mcp.NewTool("add_section",
		mcp.WithDescription("Insert an empty section"),
		mcp.WithString("type", mcp.Description("Section type, e.g. header or content (optional)")),
		mcp.WithString("layout",
			mcp.Description("Section layout (optional, full-width)"),
			mcp.Enum(string(types.LayoutFullWidth), string(types.LayoutTwoColumn), string(types.LayoutThreeColumn)),
		),
		mcp.WithNumber("index", mcp.Description("Zero-based section index (optional, appends)")),
	), s.handleAddSection)

	s.mcp.AddTool(mcp.NewTool("remove_section",
		mcp.WithDescription("Remove a section and every component in it"),
		mcp.WithString("id", mcp.Description("Section ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRemoveSection)

	s.mcp.AddTool(mcp.NewTool("apply_template",
		mcp.WithDescription("Replace the document with a template. The previous document stays reachable through undo."),
		mcp.WithString("name", mcp.Description("Template name, see list_templates"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleApplyTemplate)

	s.mcp.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List the available templates"),
		mcp.WithString("category", mcp.Description("Only templates of this category (optional)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListTemplates)
}

func (s *Server) handleAddSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sec, err := s.builder.AddSection(ctx, req.GetString("type", ""),
		types.Layout(req.GetString("layout", "")), getInt(req.GetArguments(), "index", -1))
	if err != nil {
		return errorResult("add-section", err)
	}
	return jsonResult(sec)
}

func (s *Server) handleRemoveSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if err := s.builder.RemoveSection(ctx, id); err != nil {
		return errorResult("remove-section", err)
	}
	return textResult(fmt.Sprintf("Section %s removed", id)), nil
}

func (s *Server) handleApplyTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.builder.ApplyTemplate(ctx, req.GetString("name", "")); err != nil {
		return errorResult("apply-template", err)
	}
	return jsonResult(s.builder.Document())
}

type templateSummary struct {
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Premium     bool   `json:"premium,omitempty"`
	Sections    int    `json:"sections"`
}

func (s *Server) handleListTemplates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var out []templateSummary
	for _, t := range s.templates.Filter(req.GetString("category", ""), true) {
		out = append(out, templateSummary{
			Name:        t.Name,
			Title:       t.Title,
			Description: t.Description,
			Category:    t.Category,
			Premium:     t.Premium,
			Sections:    len(t.Sections),
		})
	}
	return jsonResult(out)
}

func (s *Server) registerKitTools() {
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last document change"),
	), s.handleUndo)

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone change"),
	), s.handleRedo)

	s.mcp.AddTool(mcp.NewTool("save_kit",
		mcp.WithDescription("Save the kit and return its ID"),
	), s.handleSaveKit)

	s.mcp.AddTool(mcp.NewTool("load_kit",
		mcp.WithDescription("Replace the document with a saved kit. Unsaved changes are lost."),
		mcp.WithString("id", mcp.Description("Kit ID, see list_kits"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleLoadKit)

	s.mcp.AddTool(mcp.NewTool("list_kits",
		mcp.WithDescription("List saved kits"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListKits)

	s.mcp.AddTool(mcp.NewTool("export_kit",
		mcp.WithDescription("Export the kit and return where the file was written"),
		mcp.WithString("format",
			mcp.Description("Export format (optional, html)"),
			mcp.Enum(string(types.ExportHTML), string(types.ExportJSON), string(types.ExportYAML)),
		),
	), s.handleExportKit)
}

type historyResult struct {
	Changed bool `json:"changed"`
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

func (s *Server) history(ctx context.Context, op string, step func(context.Context) (bool, error)) (*mcp.CallToolResult, error) {
	changed, err := step(ctx)
	if err != nil {
		return errorResult(op, err)
	}
	st := s.controls.Status()
	return jsonResult(historyResult{Changed: changed, CanUndo: st.CanUndo, CanRedo: st.CanRedo})
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.history(ctx, "undo", s.controls.Undo)
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.history(ctx, "redo", s.controls.Redo)
}

func (s *Server) handleSaveKit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.controls.Save(ctx)
	if err != nil {
		return errorResult("save", err)
	}
	return jsonResult(map[string]string{"id": id})
}

func (s *Server) handleLoadKit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.builder.Load(ctx, req.GetString("id", "")); err != nil {
		return errorResult("load", err)
	}
	return jsonResult(s.builder.Document())
}

func (s *Server) handleListKits(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kits, err := s.adapter.Kits(ctx)
	if err != nil {
		return errorResult("list-kits", err)
	}
	return jsonResult(kits)
}

func (s *Server) handleExportKit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := types.ExportFormat(req.GetString("format", string(types.ExportHTML)))
	res, err := s.controls.Export(ctx, format)
	if err != nil {
		return errorResult("export", err)
	}
	return jsonResult(res)
}

func getInt(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}

// getObject accepts an object argument or the same object encoded as a JSON
// string, which some clients send.
func getObject(args map[string]any, key string) (map[string]any, error) {
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("%s must be a JSON object: %w", key, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%s must be an object, got %T", key, v)
	}
}
