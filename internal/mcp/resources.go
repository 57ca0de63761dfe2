package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	documentURI = "mediakit://document"
	stateURI    = "mediakit://state"
)

func (s *Server) registerResources() {
	s.mcp.AddResource(mcp.NewResource(
		documentURI,
		"Kit Document",
		mcp.WithResourceDescription("Sections and components of the open kit"),
		mcp.WithMIMEType("application/json"),
	), s.handleDocumentResource)

	s.mcp.AddResource(mcp.NewResource(
		stateURI,
		"Toolbar State",
		mcp.WithResourceDescription("Dirty flag, undo and redo availability and the last notice"),
		mcp.WithMIMEType("application/json"),
	), s.handleStateResource)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleDocumentResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(documentURI, s.builder.Document())
}

func (s *Server) handleStateResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(stateURI, s.controls.Status())
}
