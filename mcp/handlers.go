package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/poiesic/gist/core"
	"github.com/poiesic/gist/extract"
	"github.com/poiesic/gist/pipeline"
)

const defaultFilename = "document.txt"

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	orchestrator *pipeline.Orchestrator
	logger       *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(orchestrator *pipeline.Orchestrator, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{orchestrator: orchestrator, logger: logger.With("component", "mcp")}
}

// DocumentQARequest represents the arguments for document_qa.
type DocumentQARequest struct {
	Question string `json:"question"`
	Path     string `json:"path,omitempty"`
	Text     string `json:"text,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// WorkspaceQARequest represents the arguments for workspace_qa.
type WorkspaceQARequest struct {
	WorkspaceID string `json:"workspace_id"`
	Query       string `json:"query"`
}

// DeepSearchRequest represents the arguments for deep_search.
type DeepSearchRequest struct {
	Query   string           `json:"query"`
	Results []core.SearchHit `json:"results,omitempty"`
}

// VideoSummaryRequest represents the arguments for video_summary.
type VideoSummaryRequest struct {
	VideoURL   string `json:"video_url,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// VideoSummaryResult is the video_summary response.
type VideoSummaryResult struct {
	core.VideoSummary
	Sources []string `json:"sources"`
}

// HandleDocumentQA handles the document_qa tool call.
func (h *Handlers) HandleDocumentQA(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DocumentQARequest](req)
	if err != nil {
		return errorResult(core.NewInvalidRequest(err.Error())), nil
	}

	file, err := h.rawInput(input)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.orchestrator.RunDocumentQA(ctx, pipeline.DocumentQARequest{
		File:     file,
		Question: input.Question,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// rawInput loads the file named by the request, or wraps its inline text.
func (h *Handlers) rawInput(input DocumentQARequest) (core.RawInput, error) {
	var (
		data []byte
		name = input.Filename
	)
	switch {
	case input.Path != "":
		b, err := os.ReadFile(input.Path)
		if err != nil {
			h.logger.Debug("failed to read document", "path", input.Path, "err", err)
			return core.RawInput{}, core.NewInvalidRequest("cannot read file " + input.Path)
		}
		data = b
		if name == "" {
			name = filepath.Base(input.Path)
		}
	case input.Text != "":
		data = []byte(input.Text)
		if name == "" {
			name = defaultFilename
		}
	default:
		return core.RawInput{}, core.NewInvalidRequest("either path or text is required")
	}

	format, err := extract.DetectFormat(name, "")
	if err != nil {
		return core.RawInput{}, err
	}
	return core.RawInput{Data: data, Filename: name, Format: format}, nil
}

// HandleWorkspaceQA handles the workspace_qa tool call.
func (h *Handlers) HandleWorkspaceQA(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[WorkspaceQARequest](req)
	if err != nil {
		return errorResult(core.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.orchestrator.AskWorkspace(ctx, pipeline.AskWorkspaceRequest{
		WorkspaceID: input.WorkspaceID,
		Query:       input.Query,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDeepSearch handles the deep_search tool call.
func (h *Handlers) HandleDeepSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeepSearchRequest](req)
	if err != nil {
		return errorResult(core.NewInvalidRequest(err.Error())), nil
	}

	var result *core.SynthesisResult
	if len(input.Results) > 0 {
		result, err = h.orchestrator.RunDeepSearch(ctx, pipeline.DeepSearchRequest{
			Query:   input.Query,
			Results: input.Results,
		})
	} else {
		result, err = h.orchestrator.Search(ctx, pipeline.SearchRequest{Query: input.Query})
	}
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleVideoSummary handles the video_summary tool call.
func (h *Handlers) HandleVideoSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[VideoSummaryRequest](req)
	if err != nil {
		return errorResult(core.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.orchestrator.RunVideoSummary(ctx, pipeline.VideoSummaryRequest{
		VideoURL:         input.VideoURL,
		ManualTranscript: input.Transcript,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(VideoSummaryResult{
		VideoSummary: result.VideoSummary(),
		Sources:      result.Sources,
	})
}

// errorResult creates an MCP error result from any error.
// Details of internal errors are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	errorObj := map[string]any{
		"kind":    core.KindInternal,
		"message": "an internal error occurred",
	}
	if cErr, ok := err.(*core.Error); ok {
		errorObj["kind"] = cErr.Kind
		errorObj["message"] = cErr.Message
		if cErr.Kind != core.KindInternal && cErr.Details != nil {
			errorObj["details"] = cErr.Details
		}
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
