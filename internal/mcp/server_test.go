package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/mediakit/internal/config"
	"github.com/conneroisu/mediakit/internal/eventbus"
	"github.com/conneroisu/mediakit/internal/services"
	"github.com/conneroisu/mediakit/internal/types"
)

func newTestServer(t *testing.T) (*Server, *services.Kit) {
	t.Helper()
	root := t.TempDir()
	v := viper.New()
	v.Set("storage.driver", "memory")
	v.Set("templates.dir", filepath.Join(root, "templates"))
	v.Set("export.dir", filepath.Join(root, "exports"))
	cfg, err := config.LoadFrom(v)
	require.NoError(t, err)

	k, err := services.OpenKit(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = k.Close() })

	return New(Deps{Builder: k.Builder, Controls: k.Controls, Templates: k.Templates, Adapter: k.Adapter}), k
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return tc.Text
}

func TestAddUpdateMoveRemove(t *testing.T) {
	s, k := newTestServer(t)

	res := call(t, s.handleAddSection, map[string]any{"layout": "two-column"})
	require.False(t, res.IsError, resultText(t, res))
	var sec types.Section
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &sec))

	res = call(t, s.handleAddComponent, map[string]any{
		"type":      "biography",
		"sectionId": sec.ID,
		"column":    "column_2",
		"content":   `{"text": "Writes about distributed systems."}`,
	})
	require.False(t, res.IsError, resultText(t, res))
	var bio types.Component
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &bio))
	assert.Equal(t, "Writes about distributed systems.", bio.Content["text"])

	res = call(t, s.handleUpdateComponent, map[string]any{
		"id":      bio.ID,
		"content": map[string]any{"text": "Writes about databases."},
	})
	require.False(t, res.IsError, resultText(t, res))
	got, _, err := k.Builder.GetComponent(bio.ID)
	require.NoError(t, err)
	assert.Equal(t, "Writes about databases.", got.Content["text"])

	res = call(t, s.handleMoveComponent, map[string]any{"id": bio.ID, "sectionId": sec.ID, "column": "column_1", "index": float64(0)})
	require.False(t, res.IsError, resultText(t, res))
	_, loc, err := k.Builder.GetComponent(bio.ID)
	require.NoError(t, err)
	assert.Equal(t, "column_1", loc.Column)

	res = call(t, s.handleRemoveComponent, map[string]any{"id": bio.ID})
	require.False(t, res.IsError)

	res = call(t, s.handleUndo, nil)
	assert.Contains(t, resultText(t, res), `"changed": true`)
	_, _, err = k.Builder.GetComponent(bio.ID)
	assert.NoError(t, err)
}

func TestBuilderErrorsAreToolErrors(t *testing.T) {
	s, _ := newTestServer(t)

	res := call(t, s.handleAddComponent, map[string]any{"type": "marquee"})
	require.True(t, res.IsError)
	var payload eventbus.ErrorPayload
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &payload))
	assert.Equal(t, "add-component", payload.Operation)
	assert.Equal(t, "ERR_UNKNOWN_TYPE", payload.Code)

	res = call(t, s.handleLoadKit, map[string]any{"id": "missing"})
	assert.True(t, res.IsError)

	var req mcp.CallToolRequest
	req.Params.Arguments = map[string]any{"type": "hero", "content": 42}
	_, err := s.handleAddComponent(context.Background(), req)
	assert.Error(t, err)
}

func TestTemplateSaveAndList(t *testing.T) {
	s, k := newTestServer(t)

	res := call(t, s.handleListTemplates, nil)
	assert.Contains(t, resultText(t, res), `"name": "speaker"`)

	res = call(t, s.handleApplyTemplate, map[string]any{"name": "speaker"})
	require.False(t, res.IsError, resultText(t, res))
	assert.NotEmpty(t, k.Builder.Document().Sections)

	res = call(t, s.handleSaveKit, nil)
	require.False(t, res.IsError, resultText(t, res))
	var saved map[string]string
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &saved))
	assert.Equal(t, k.Builder.KitID(), saved["id"])

	res = call(t, s.handleListKits, nil)
	assert.Contains(t, resultText(t, res), saved["id"])

	res = call(t, s.handleExportKit, map[string]any{"format": "json"})
	require.False(t, res.IsError, resultText(t, res))
	assert.Contains(t, resultText(t, res), ".json")
}

func TestListComponentTypes(t *testing.T) {
	s, _ := newTestServer(t)

	res := call(t, s.handleListComponentTypes, map[string]any{"category": "header"})
	var defs []typeSummary
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &defs))
	require.NotEmpty(t, defs)
	for _, ts := range defs {
		assert.Equal(t, "header", ts.Category)
	}
}

func TestToolsAreListed(t *testing.T) {
	s, _ := newTestServer(t)

	msg := s.MCP().HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	for _, name := range []string{"add_component", "update_component", "move_component", "apply_template", "save_kit", "undo"} {
		assert.Contains(t, string(data), `"`+name+`"`)
	}
}
