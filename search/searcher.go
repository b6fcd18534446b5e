package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/gist/core"
)

// DefaultLimit is the number of results requested when none is configured.
const DefaultLimit = 5

// Backend returns web results for a query, in the backend's own order.
// Implementations return at most limit hits.
type Backend interface {
	Search(ctx context.Context, query string, limit int) ([]core.SearchHit, error)
}

// Searcher applies query validation, deduplication and result capping to a Backend.
type Searcher struct {
	backend Backend
	limit   int
	logger  *slog.Logger
}

var _ Backend = (*Searcher)(nil)

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithLimit sets the default result count.
func WithLimit(limit int) Option {
	return func(s *Searcher) error {
		if limit <= 0 {
			return errors.New("search limit must be positive")
		}
		s.limit = limit
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(backend Backend, opts ...Option) (*Searcher, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}

	s := &Searcher{
		backend: backend,
		limit:   DefaultLimit,
		logger:  slog.Default().With("component", "search"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Limit returns the default result count.
func (s *Searcher) Limit() int {
	return s.limit
}

// Search returns up to limit hits for query. A non-positive limit uses the
// searcher's default.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]core.SearchHit, error) {
	return s.SearchWithMonitor(ctx, query, limit, nil)
}

// SearchWithMonitor is Search with callbacks at each stage.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, limit int, monitor SearchMonitor) ([]core.SearchHit, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if limit <= 0 {
		limit = s.limit
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, core.NewInvalidRequest(ErrEmptyQuery.Error())
	}
	monitor.Start(query, limit)

	hits, err := s.backend.Search(ctx, query, limit)
	if err != nil {
		s.logger.Error("web search failed", "query", query, "err", err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, core.NewNetworkError("web search timed out or was cancelled", ctxErr)
		}
		return nil, core.NewNetworkError("web search failed", err)
	}
	monitor.AfterBackend(hits)

	seen := make(map[string]bool, len(hits))
	results := make([]core.SearchHit, 0, min(len(hits), limit))
	for _, hit := range hits {
		if len(results) == limit {
			monitor.Dropped(hit, "over limit")
			continue
		}
		if hit.URL != "" {
			if seen[hit.URL] {
				monitor.Dropped(hit, "duplicate url")
				continue
			}
			seen[hit.URL] = true
		}
		results = append(results, hit)
	}

	s.logger.Debug("web search complete", "query", query, "hits", len(results))
	monitor.Finish(results)
	return results, nil
}
