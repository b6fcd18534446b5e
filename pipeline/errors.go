package pipeline

import "errors"

var (
	// ErrCompleterRequired is returned when a completion backend is not provided.
	ErrCompleterRequired = errors.New("completer required")

	// ErrDocumentStoreRequired is returned by AskWorkspace when no document store is configured.
	ErrDocumentStoreRequired = errors.New("document store required")

	// ErrSearchBackendRequired is returned by Search when no search backend is configured.
	ErrSearchBackendRequired = errors.New("search backend required")

	// ErrTranscriptBackendRequired is reported when a video must be fetched
	// but no transcript backend is configured.
	ErrTranscriptBackendRequired = errors.New("transcript backend required")
)
