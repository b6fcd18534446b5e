package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/gist/budget"
	"github.com/poiesic/gist/core"
	"github.com/poiesic/gist/extract"
	"github.com/poiesic/gist/storage"
)

// Pipeline extracts files and stores them as workspace documents.
type Pipeline struct {
	repository  storage.WorkspaceRepository
	extractor   *extract.Extractor
	pool        *ants.Pool
	storeBudget int
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent extraction.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithExtractor replaces the content extractor.
func WithExtractor(e *extract.Extractor) Option {
	return func(p *Pipeline) error {
		if e == nil {
			return errors.New("extractor cannot be nil")
		}
		p.extractor = e
		return nil
	}
}

// WithStoreBudget sets the maximum characters kept per stored document.
// Default is budget.Defaults().UploadStore.
func WithStoreBudget(maxChars int) Option {
	return func(p *Pipeline) error {
		if maxChars <= 0 {
			return fmt.Errorf("store budget must be positive, got %d", maxChars)
		}
		p.storeBudget = maxChars
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(repository storage.WorkspaceRepository, opts ...Option) (*Pipeline, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		repository:  repository,
		pool:        pool,
		storeBudget: budget.Defaults().UploadStore,
		logger:      slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	if p.extractor == nil {
		p.extractor = extract.New(extract.WithLogger(p.logger))
	}
	return p, nil
}

// AddFile extracts an uploaded file and stores it in a workspace.
// Extraction failures are returned as their classified errors and nothing
// is stored.
func (p *Pipeline) AddFile(ctx context.Context, workspaceID string, file core.RawInput) (*core.Document, error) {
	extracted, err := p.extractor.Extract(ctx, file)
	if err != nil {
		return nil, err
	}
	return p.store(ctx, workspaceID, extracted)
}

// AddText stores a named piece of text in a workspace.
func (p *Pipeline) AddText(ctx context.Context, workspaceID, name, content string) (*core.Document, error) {
	if core.IsBlank(name) {
		return nil, core.NewInvalidRequest("document name is required")
	}
	return p.AddFile(ctx, workspaceID, core.RawInput{
		Data:     []byte(content),
		Filename: name,
		Format:   core.FormatText,
	})
}

func (p *Pipeline) store(ctx context.Context, workspaceID string, extracted *core.ExtractedText) (*core.Document, error) {
	cut := budget.Truncate(extracted.Text, p.storeBudget)
	doc := &core.Document{
		WorkspaceID: workspaceID,
		Name:        extracted.SourceLabel,
		Content:     cut.Text,
		Truncated:   extracted.Truncated || cut.Truncated,
	}

	added, err := p.repository.AddDocuments(ctx, doc)
	if err != nil {
		return nil, p.classify(err)
	}

	p.logger.Debug("document stored",
		"workspace", workspaceID,
		"name", doc.Name,
		"id", added[0].Id,
		"truncated", doc.Truncated)
	return added[0], nil
}

// classify maps storage failures onto the error taxonomy.
func (p *Pipeline) classify(err error) error {
	switch {
	case core.KindOf(err) != "":
		return err
	case errors.Is(err, storage.ErrNotFound):
		return core.NewNotFound("workspace")
	case errors.Is(err, storage.ErrDuplicateKey):
		return core.NewInvalidRequest("a document with the same content already exists in this workspace")
	case errors.Is(err, core.ErrInvalidDocument):
		return core.NewInvalidRequest(err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	p.logger.Error("failed to store document", "err", err)
	return core.NewInternal(err)
}

// FileError records why one file of a batch was not stored.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}

// Report summarizes a batch ingestion.
type Report struct {
	Added  []*core.Document
	Failed []FileError
}

// IngestFiles extracts every path concurrently and stores the results in the
// workspace in the order given. Progress is written to progress when it is
// non-nil. Per-file failures are collected in the report; the returned error
// is reserved for failures that stop the whole batch.
func (p *Pipeline) IngestFiles(ctx context.Context, workspaceID string, paths []string, progress io.Writer) (*Report, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	if _, err := p.repository.GetWorkspace(ctx, workspaceID); err != nil {
		return nil, p.classify(err)
	}

	if progress == nil {
		progress = io.Discard
	}
	tracker := NewProgress(progress, len(paths), 1)
	tracker.Start()

	extracted := make([]*core.ExtractedText, len(paths))
	failures := make([]error, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			extracted[i], failures[i] = p.extractFile(ctx, path)
			tracker.Advance(failures[i])
		})
		if err != nil {
			wg.Done()
			failures[i] = err
			tracker.Advance(err)
		}
	}
	wg.Wait()
	tracker.Finish()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{}
	for i, path := range paths {
		if failures[i] == nil {
			var doc *core.Document
			doc, failures[i] = p.store(ctx, workspaceID, extracted[i])
			if failures[i] == nil {
				report.Added = append(report.Added, doc)
				continue
			}
		}
		p.logger.Warn("file not ingested", "path", path, "err", failures[i])
		report.Failed = append(report.Failed, FileError{Path: path, Err: failures[i]})
	}

	p.logger.Info("ingestion finished",
		"workspace", workspaceID,
		"added", len(report.Added),
		"failed", len(report.Failed),
		"elapsed", tracker.Elapsed())
	return report, nil
}

func (p *Pipeline) extractFile(ctx context.Context, path string) (*core.ExtractedText, error) {
	format, err := extract.DetectFormat(path, "")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.NewInvalidRequest(fmt.Sprintf("cannot read %s: %v", filepath.Base(path), err))
	}
	return p.extractor.Extract(ctx, core.RawInput{
		Data:     data,
		Filename: filepath.Base(path),
		Format:   format,
	})
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
