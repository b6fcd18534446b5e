package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/gist/ai"
	"github.com/poiesic/gist/budget"
	"github.com/poiesic/gist/core"
	"github.com/poiesic/gist/extract"
	"github.com/poiesic/gist/search"
	"github.com/poiesic/gist/storage"
	"github.com/poiesic/gist/synthesis"
	"github.com/poiesic/gist/transcript"
)

// DefaultTimeout bounds a single run when no timeout is configured.
const DefaultTimeout = 90 * time.Second

// Informational answers returned when there is nothing to synthesize from.
const (
	NoContentMessage          = "No content found."
	NoWorkspaceContentMessage = "No document content found in this workspace. Please upload some files first."
	NoSearchResultsMessage    = "No search results found for this query."
)

// Orchestrator runs the gist entry points against its collaborators.
type Orchestrator struct {
	invoker     *synthesis.Invoker
	extractor   *extract.Extractor
	budgets     budget.Budgets
	timeout     time.Duration
	fetcher     transcript.Fetcher
	documents   storage.DocumentSource
	backend     search.Backend
	searcher    *search.Searcher
	searchLimit int
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger.With("component", "pipeline")
		return nil
	}
}

// WithBudgets replaces the character budgets.
func WithBudgets(b budget.Budgets) Option {
	return func(o *Orchestrator) error {
		if err := b.Validate(); err != nil {
			return err
		}
		o.budgets = b
		return nil
	}
}

// WithTimeout bounds each run. Zero disables the bound and leaves only the
// caller's context in control.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) error {
		if d < 0 {
			return errors.New("timeout cannot be negative")
		}
		o.timeout = d
		return nil
	}
}

// WithExtractor replaces the content extractor.
func WithExtractor(e *extract.Extractor) Option {
	return func(o *Orchestrator) error {
		if e == nil {
			return errors.New("extractor cannot be nil")
		}
		o.extractor = e
		return nil
	}
}

// WithTranscriptFetcher sets the backend used to fetch video captions.
func WithTranscriptFetcher(f transcript.Fetcher) Option {
	return func(o *Orchestrator) error {
		o.fetcher = f
		return nil
	}
}

// WithDocumentStore sets the store AskWorkspace reads documents from.
func WithDocumentStore(source storage.DocumentSource) Option {
	return func(o *Orchestrator) error {
		o.documents = source
		return nil
	}
}

// WithSearchBackend sets the web search backend used by Search.
func WithSearchBackend(backend search.Backend) Option {
	return func(o *Orchestrator) error {
		o.backend = backend
		return nil
	}
}

// WithSearchLimit caps the number of search results used by Search.
// Default is search.DefaultLimit.
func WithSearchLimit(limit int) Option {
	return func(o *Orchestrator) error {
		if limit <= 0 {
			return fmt.Errorf("search limit must be positive, got %d", limit)
		}
		o.searchLimit = limit
		return nil
	}
}

// New creates an Orchestrator that synthesizes answers with completer.
func New(completer ai.Completer, opts ...Option) (*Orchestrator, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}

	o := &Orchestrator{
		budgets:     budget.Defaults(),
		timeout:     DefaultTimeout,
		searchLimit: search.DefaultLimit,
		logger:      slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	if o.extractor == nil {
		o.extractor = extract.New(extract.WithLogger(o.logger))
	}
	if o.backend != nil {
		searcher, err := search.NewSearcher(o.backend, search.WithLimit(o.searchLimit), search.WithLogger(o.logger))
		if err != nil {
			return nil, err
		}
		o.searcher = searcher
	}

	invoker, err := synthesis.New(completer, synthesis.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}
	o.invoker = invoker
	return o, nil
}

// Budgets returns the budgets applied by every run.
func (o *Orchestrator) Budgets() budget.Budgets {
	return o.budgets
}

// run carries the per-request state shared by the stages of one entry point.
type run struct {
	ctx    context.Context
	cancel context.CancelFunc
	id     string
	op     string
	start  time.Time
	logger *slog.Logger
}

func (o *Orchestrator) begin(ctx context.Context, op string, caller Caller) *run {
	r := &run{
		id:    uuid.NewString(),
		op:    op,
		start: time.Now(),
	}
	if o.timeout > 0 {
		r.ctx, r.cancel = context.WithTimeout(ctx, o.timeout)
	} else {
		r.ctx, r.cancel = context.WithCancel(ctx)
	}
	r.logger = o.logger.With("request_id", r.id, "op", op)
	if caller.ID != "" {
		r.logger = r.logger.With("caller", caller.ID, "role", caller.Role)
	}
	r.logger.Debug("run started")
	return r
}

// finish releases the run and normalizes its error. Classified errors pass
// through unchanged; context expiry becomes a NetworkError and anything else
// is logged and hidden behind an Internal error.
func (r *run) finish(result *core.SynthesisResult, err error) (*core.SynthesisResult, error) {
	defer r.cancel()
	elapsed := time.Since(r.start)

	if err == nil {
		r.logger.Info("run completed",
			"elapsed", elapsed,
			"sources", len(result.Sources),
			"informational", result.Informational)
		return result, nil
	}

	if core.KindOf(err) == "" {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			err = core.NewNetworkError("request timed out", err)
		case errors.Is(err, context.Canceled):
			err = core.NewNetworkError("request was cancelled", err)
		default:
			r.logger.Error("unexpected failure", "elapsed", elapsed, "err", err)
			return nil, core.NewInternal(err)
		}
	}
	r.logger.Info("run failed", "elapsed", elapsed, "kind", core.KindOf(err), "err", err)
	return nil, err
}

// emptyResult handles a block with no fragments. Usable text that did not
// fit the aggregate budget is a rejected request; only a block whose sources
// had no text at all gets the informational message.
func emptyResult(block *core.ContextBlock, aggregate int, message string) (*core.SynthesisResult, error) {
	if block.AggregateTruncated {
		err := core.NewInvalidRequest("content does not fit the context budget")
		err.Details = map[string]any{"aggregate_budget": aggregate}
		return nil, err
	}
	return informational(message), nil
}

// informational is the result returned when the assembled block is empty.
func informational(message string) *core.SynthesisResult {
	return &core.SynthesisResult{
		AnswerText:    message,
		Sources:       []string{},
		Informational: true,
	}
}

func (o *Orchestrator) synthesize(r *run, block *core.ContextBlock, req core.SynthesisRequest) (*core.SynthesisResult, error) {
	req.Context = block
	r.logger.Debug("context assembled",
		"fragments", len(block.Fragments),
		"chars", block.Chars,
		"aggregate_truncated", block.AggregateTruncated)
	return o.invoker.Synthesize(r.ctx, req)
}
