package pipeline

import (
	"strings"

	"github.com/poiesic/gist/core"
)

// Caller identifies who issued a request. It is trusted as given and only
// used for logging.
type Caller struct {
	ID   string
	Role string
}

// DocumentQARequest asks a question about a single uploaded file.
type DocumentQARequest struct {
	Caller   Caller
	File     core.RawInput `validate:"required"`
	Question string        `validate:"notblank"`
}

// WorkspaceQARequest asks a query over documents already extracted and stored.
// Documents are used in the order given.
type WorkspaceQARequest struct {
	Caller    Caller
	Documents []core.Document
	Query     string `validate:"notblank"`
}

// AskWorkspaceRequest asks a query over every document stored in a workspace.
type AskWorkspaceRequest struct {
	Caller      Caller
	WorkspaceID string `validate:"notblank"`
	Query       string `validate:"notblank"`
}

// DeepSearchRequest synthesizes an answer from search results the caller already has.
type DeepSearchRequest struct {
	Caller  Caller
	Query   string `validate:"notblank"`
	Results []core.SearchHit
}

// SearchRequest runs a web search for Query and synthesizes an answer from the hits.
type SearchRequest struct {
	Caller Caller
	Query  string `validate:"notblank"`
}

// VideoSummaryRequest summarizes a video. A non-blank ManualTranscript is used
// instead of fetching captions for VideoURL.
type VideoSummaryRequest struct {
	Caller           Caller
	VideoURL         string `validate:"required_without=ManualTranscript"`
	ManualTranscript string `validate:"required_without=VideoURL"`
}

func (r *VideoSummaryRequest) normalize() {
	r.VideoURL = strings.TrimSpace(r.VideoURL)
	r.ManualTranscript = strings.TrimSpace(r.ManualTranscript)
}
