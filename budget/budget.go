// Package budget enforces character limits on text before it reaches a prompt.
//
// Truncation is always a prefix cut measured in characters (runes), followed
// by a fixed marker so both readers and the model can tell the text is
// partial. Each call site uses its own named budget from Budgets.
package budget

import (
	"fmt"
)

// Marker is appended to every truncated text.
const Marker = "... (truncated)"

// MarkerLen is the character length of Marker.
var MarkerLen = len([]rune(Marker))

// Headroom is added to a single-fragment budget to size its aggregate
// budget, leaving room for the label line and the truncation marker.
const Headroom = 512

// Result is the output of Truncate.
type Result struct {
	Text      string
	Truncated bool
}

// Truncate cuts text to at most maxChars characters and appends Marker when
// anything was removed. A non-positive maxChars disables the limit.
func Truncate(text string, maxChars int) Result {
	if maxChars <= 0 {
		return Result{Text: text}
	}

	// Only the first maxChars runes are visited.
	count := 0
	for i := range text {
		if count == maxChars {
			return Result{Text: text[:i] + Marker, Truncated: true}
		}
		count++
	}
	return Result{Text: text}
}

// Budgets are the named character limits applied at each call site.
type Budgets struct {
	// DocumentQA bounds the single uploaded document sent for question answering.
	DocumentQA int `toml:"document_qa"`
	// WorkspaceDocument bounds each document inside a workspace query.
	WorkspaceDocument int `toml:"workspace_document"`
	// WorkspaceAggregate bounds the whole assembled workspace context.
	WorkspaceAggregate int `toml:"workspace_aggregate"`
	// SearchSnippet bounds each search result's content.
	SearchSnippet int `toml:"search_snippet"`
	// SearchAggregate bounds the assembled search context.
	SearchAggregate int `toml:"search_aggregate"`
	// Transcript bounds the transcript fed to summarization.
	Transcript int `toml:"transcript"`
	// UploadStore bounds the extracted text kept when a document is stored.
	UploadStore int `toml:"upload_store"`
}

// Defaults returns the standard budgets.
func Defaults() Budgets {
	return Budgets{
		DocumentQA:         30000,
		WorkspaceDocument:  3000,
		WorkspaceAggregate: 40000,
		SearchSnippet:      2000,
		SearchAggregate:    12000,
		Transcript:         10000,
		UploadStore:        50000,
	}
}

// Single returns the aggregate budget for a context holding one fragment
// limited to perFragment characters.
func Single(perFragment int) int {
	return perFragment + MarkerLen + Headroom
}

// Validate checks that every budget is positive and that each aggregate can
// hold one fragment truncated to its per-fragment budget, label included.
func (b Budgets) Validate() error {
	checks := []struct {
		name  string
		value int
	}{
		{"document_qa", b.DocumentQA},
		{"workspace_document", b.WorkspaceDocument},
		{"workspace_aggregate", b.WorkspaceAggregate},
		{"search_snippet", b.SearchSnippet},
		{"search_aggregate", b.SearchAggregate},
		{"transcript", b.Transcript},
		{"upload_store", b.UploadStore},
	}
	for _, c := range checks {
		if c.value <= 0 {
			return fmt.Errorf("budget config: %s must be greater than 0", c.name)
		}
	}
	if b.WorkspaceAggregate < Single(b.WorkspaceDocument) {
		return fmt.Errorf("budget config: workspace_aggregate must be at least workspace_document + %d", MarkerLen+Headroom)
	}
	if b.SearchAggregate < Single(b.SearchSnippet) {
		return fmt.Errorf("budget config: search_aggregate must be at least search_snippet + %d", MarkerLen+Headroom)
	}
	return nil
}
