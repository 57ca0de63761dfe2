// Package mcpserver exposes an editing session as Model Context Protocol
// tools so an assistant can build a kit through the same builder API the
// editor uses.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/conneroisu/mediakit/internal/adapters"
	"github.com/conneroisu/mediakit/internal/builder"
	"github.com/conneroisu/mediakit/internal/controls"
	"github.com/conneroisu/mediakit/internal/eventbus"
	"github.com/conneroisu/mediakit/internal/logging"
	"github.com/conneroisu/mediakit/internal/palette"
	"github.com/conneroisu/mediakit/internal/templates"
	"github.com/conneroisu/mediakit/internal/version"
)

// Server is the MCP server for one kit.
type Server struct {
	mcp    *server.MCPServer
	logger logging.Logger

	builder   *builder.Builder
	controls  *controls.Controls
	templates *templates.Library
	adapter   *adapters.StoreAdapter
	palette   *palette.Palette
}

// Deps holds the session components the tools drive. A nil Palette lets
// every registered type be added.
type Deps struct {
	Builder   *builder.Builder
	Controls  *controls.Controls
	Templates *templates.Library
	Adapter   *adapters.StoreAdapter
	Palette   *palette.Palette
	Logger    logging.Logger
}

// New creates and configures the MCP server with all tools and resources.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	s := &Server{
		logger:    deps.Logger.WithComponent("mcp"),
		builder:   deps.Builder,
		controls:  deps.Controls,
		templates: deps.Templates,
		adapter:   deps.Adapter,
		palette:   deps.Palette,
	}

	s.mcp = server.NewMCPServer(
		"mediakit",
		version.GetVersion(),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s.registerComponentTools()
	s.registerSectionTools()
	s.registerKitTools()
	s.registerResources()
	return s
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// Serve speaks the stdio transport over in and out until ctx is done or in
// closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info(ctx, "Starting MCP stdio server", "kit", s.builder.KitID())
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// errorResult reports a builder error to the model as a failed tool call
// carrying the same payload the editor receives on the error event.
func errorResult(op string, err error) (*mcp.CallToolResult, error) {
	data, merr := json.Marshal(eventbus.NewErrorPayload(op, err))
	if merr != nil {
		return nil, merr
	}
	res := textResult(string(data))
	res.IsError = true
	return res, nil
}
