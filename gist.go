// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package gist wires storage, the completion backend, web search and
// transcript fetching into one Service.
package gist

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/gist/ai"
	"github.com/poiesic/gist/ai/openai"
	"github.com/poiesic/gist/config"
	"github.com/poiesic/gist/core"
	"github.com/poiesic/gist/extract"
	"github.com/poiesic/gist/ingestion"
	"github.com/poiesic/gist/pipeline"
	"github.com/poiesic/gist/search"
	"github.com/poiesic/gist/search/web"
	"github.com/poiesic/gist/storage"
	"github.com/poiesic/gist/storage/badger"
	"github.com/poiesic/gist/transcript"
	"github.com/poiesic/gist/transcript/youtube"
)

// Service owns the workspace store, the completion provider and the
// pipelines built on them. Close releases all of it.
type Service struct {
	backend      *badger.Backend
	workspaces   storage.WorkspaceRepository
	provider     ai.AIProvider
	web          *web.Client
	orchestrator *pipeline.Orchestrator
	ingestion    *ingestion.Pipeline
	logger       *slog.Logger
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	provider      ai.AIProvider
	searchBackend search.Backend
	fetcher       transcript.Fetcher
	inMemory      bool
}

// WithProvider replaces the OpenAI-compatible provider built from the config.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// WithSearchBackend replaces the DuckDuckGo client.
func WithSearchBackend(backend search.Backend) Option {
	return func(o *serviceOptions) {
		o.searchBackend = backend
	}
}

// WithTranscriptFetcher replaces the YouTube caption fetcher.
func WithTranscriptFetcher(fetcher transcript.Fetcher) Option {
	return func(o *serviceOptions) {
		o.fetcher = fetcher
	}
}

// InMemory keeps workspaces in memory instead of at the configured path.
func InMemory() Option {
	return func(o *serviceOptions) {
		o.inMemory = true
	}
}

// Open validates cfg and builds a Service from it. A nil cfg uses
// config.NewDefaultConfig().
func Open(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout, err := cfg.RequestTimeoutDuration()
	if err != nil {
		return nil, err
	}

	options := &serviceOptions{}
	for _, opt := range opts {
		opt(options)
	}

	s := &Service{logger: slog.Default().With("component", "gist")}

	s.backend, err = badger.OpenBackend(cfg.Storage.Path, options.inMemory)
	if err != nil {
		return nil, err
	}

	if s.workspaces, err = badger.NewWorkspaceRepository(s.backend); err != nil {
		s.Close()
		return nil, err
	}

	s.provider = options.provider
	if s.provider == nil {
		aiConfig, err := cfg.AI.Build()
		if err != nil {
			s.Close()
			return nil, err
		}
		if s.provider, err = openai.NewProvider(aiConfig); err != nil {
			s.Close()
			return nil, err
		}
	}

	searchBackend := options.searchBackend
	if searchBackend == nil {
		s.web, err = web.New(
			web.WithEndpoint(cfg.Search.Endpoint),
			web.WithUserAgent(cfg.Search.UserAgent),
			web.WithScrape(cfg.Search.Scrape),
			web.WithWorkers(cfg.Search.Workers),
		)
		if err != nil {
			s.Close()
			return nil, err
		}
		searchBackend = s.web
	}

	fetcher := options.fetcher
	if fetcher == nil {
		fetcher = youtube.New(youtube.WithLanguage(cfg.Transcript.Language))
	}

	extractor := extract.New(extract.WithMaxBytes(cfg.MaxUploadBytes))

	s.orchestrator, err = pipeline.New(s.provider.Completer(),
		pipeline.WithBudgets(cfg.Budgets),
		pipeline.WithTimeout(timeout),
		pipeline.WithExtractor(extractor),
		pipeline.WithTranscriptFetcher(fetcher),
		pipeline.WithDocumentStore(s.workspaces),
		pipeline.WithSearchBackend(searchBackend),
		pipeline.WithSearchLimit(cfg.Search.Limit),
	)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.ingestion, err = ingestion.NewPipeline(s.workspaces,
		ingestion.WithExtractor(extractor),
		ingestion.WithStoreBudget(cfg.Budgets.UploadStore),
	)
	if err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// Close releases every resource in reverse order of creation. The first
// error encountered is returned.
func (s *Service) Close() error {
	var firstErr error
	record := func(what string, err error) {
		if err == nil {
			return
		}
		s.logger.Error("error closing "+what, "err", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	if s.ingestion != nil {
		s.ingestion.Release()
	}
	if s.web != nil {
		s.web.Release()
	}
	if s.provider != nil {
		record("AI provider", s.provider.Close())
	}
	if s.workspaces != nil {
		record("workspace repository", s.workspaces.Close())
	}
	if s.backend != nil {
		record("backend storage", s.backend.Close())
	}
	return firstErr
}

// Pipeline returns the orchestrator that runs the four entry points.
func (s *Service) Pipeline() *pipeline.Orchestrator {
	return s.orchestrator
}

// Ingestion returns the pipeline that stores files in workspaces.
func (s *Service) Ingestion() *ingestion.Pipeline {
	return s.ingestion
}

// Workspaces returns the workspace repository backing the service.
func (s *Service) Workspaces() storage.WorkspaceRepository {
	return s.workspaces
}

// CreateWorkspace creates a named workspace for owner.
func (s *Service) CreateWorkspace(ctx context.Context, name, owner string) (*core.Workspace, error) {
	ws, err := s.workspaces.CreateWorkspace(ctx, &core.Workspace{Name: name, Owner: owner})
	if errors.Is(err, core.ErrInvalidWorkspace) {
		return nil, core.NewInvalidRequest(err.Error())
	}
	return ws, err
}

// ListWorkspaces returns owner's workspaces oldest first.
func (s *Service) ListWorkspaces(ctx context.Context, owner string) ([]*core.Workspace, error) {
	return s.workspaces.ListWorkspaces(ctx, owner)
}

// AddDocument extracts an uploaded file and stores it in a workspace.
func (s *Service) AddDocument(ctx context.Context, workspaceID string, file core.RawInput) (*core.Document, error) {
	return s.ingestion.AddFile(ctx, workspaceID, file)
}

// AddText stores a named piece of text in a workspace.
func (s *Service) AddText(ctx context.Context, workspaceID, name, content string) (*core.Document, error) {
	return s.ingestion.AddText(ctx, workspaceID, name, content)
}

// Documents returns a workspace's documents in insertion order.
func (s *Service) Documents(ctx context.Context, workspaceID string) ([]*core.Document, error) {
	docs, err := s.workspaces.ListDocuments(ctx, workspaceID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, core.NewNotFound("workspace")
	}
	return docs, err
}
