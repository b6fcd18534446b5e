package ingestion

import "errors"

var (
	// ErrRepositoryRequired is returned when a workspace repository is not provided.
	ErrRepositoryRequired = errors.New("workspace repository required")

	// ErrNoFiles is returned when IngestFiles is called without any paths.
	ErrNoFiles = errors.New("no files to ingest")
)
