// Package mcp exposes the gist entry points as Model Context Protocol tools
// served over stdio.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/poiesic/gist/pipeline"
)

// Tool names.
const (
	DocumentQATool   = "document_qa"
	WorkspaceQATool  = "workspace_qa"
	DeepSearchTool   = "deep_search"
	VideoSummaryTool = "video_summary"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

var toolRegistry = map[string]toolEntry{
	DocumentQATool: {
		def: mcp.NewTool(DocumentQATool,
			mcp.WithDescription("Answer a question about a single PDF, text, markdown or HTML file"),
			mcp.WithString("question", mcp.Required(), mcp.Description("Question to answer from the file")),
			mcp.WithString("path", mcp.Description("Path of a local file to read")),
			mcp.WithString("text", mcp.Description("Inline file content, used when path is not given")),
			mcp.WithString("filename", mcp.Description("Name used to label inline content and detect its format (default: document.txt)")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDocumentQA },
	},
	WorkspaceQATool: {
		def: mcp.NewTool(WorkspaceQATool,
			mcp.WithDescription("Answer a query over every document stored in a workspace"),
			mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Workspace ID (ULID)")),
			mcp.WithString("query", mcp.Required(), mcp.Description("Query to answer from the workspace documents")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWorkspaceQA },
	},
	DeepSearchTool: {
		def: mcp.NewTool(DeepSearchTool,
			mcp.WithDescription("Search the web and synthesize a sourced answer. Pass results to skip the web search."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Research query")),
			mcp.WithArray("results",
				mcp.Description("Search results to use instead of searching"),
				mcp.Items(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":   map[string]any{"type": "string"},
						"url":     map[string]any{"type": "string"},
						"snippet": map[string]any{"type": "string"},
					},
				}),
			),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDeepSearch },
	},
	VideoSummaryTool: {
		def: mcp.NewTool(VideoSummaryTool,
			mcp.WithDescription("Summarize a YouTube video into a summary and study notes"),
			mcp.WithString("video_url", mcp.Description("YouTube URL or video ID")),
			mcp.WithString("transcript", mcp.Description("Transcript text to use instead of fetching captions")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleVideoSummary },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// NewServer creates an MCP server with every gist tool registered.
func NewServer(orchestrator *pipeline.Orchestrator, version string, logger *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"gist",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(orchestrator, logger)
	for _, entry := range toolRegistry {
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves the gist tools over stdio until stdin closes.
func Run(orchestrator *pipeline.Orchestrator, version string, logger *slog.Logger) error {
	return server.ServeStdio(NewServer(orchestrator, version, logger))
}
