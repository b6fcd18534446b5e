// Package transcript resolves caption text for a video before summarization.
//
// The Resolver is an explicit state machine in front of a Fetcher. Its
// outcomes map onto classified errors through core.TranscriptOutcome.Err, so
// callers can offer a manual-paste fallback only when captions are disabled.
//
// Subpackage youtube provides the production Fetcher.
package transcript
