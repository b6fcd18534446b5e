// Package pipeline sequences extraction, truncation, assembly and synthesis
// for each gist entry point.
//
// The Orchestrator exposes four runs:
//   - RunDocumentQA answers a question about one uploaded file
//   - RunWorkspaceQA answers a query over a list of stored documents
//   - RunDeepSearch synthesizes an answer from web search results
//   - RunVideoSummary summarizes a video transcript into JSON
//
// AskWorkspace and Search fetch their inputs from the document store and the
// search backend before delegating to the corresponding run.
//
// Requests are validated at the boundary. Every failure is a classified
// *core.Error; classified extraction and transcript failures are returned
// as-is without calling the completion backend. A run whose context block
// is empty returns an informational result instead of synthesizing.
// Runs share no mutable state and are safe to execute concurrently.
package pipeline
