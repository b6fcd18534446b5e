package transcript

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/gist/core"
)

var (
	// ErrTranscriptDisabled is returned by a Fetcher when the remote source
	// has captions turned off for the video.
	ErrTranscriptDisabled = errors.New("transcript is disabled for this video")

	// ErrFetcherRequired is returned by NewResolver when no fetcher is given.
	ErrFetcherRequired = errors.New("transcript fetcher is required")
)

// Fetcher retrieves caption text for a video reference (URL or ID).
// Implementations return ErrTranscriptDisabled, possibly wrapped, when the
// source has no captions available.
type Fetcher interface {
	Fetch(ctx context.Context, videoRef string) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, videoRef string) (string, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, videoRef string) (string, error) {
	return f(ctx, videoRef)
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the resolver's logger.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Resolver runs the transcript state machine for one request:
//
//	Idle -> Fetching -> Resolved | Disabled | Empty | Failed
//
// Every state after Fetching is terminal. A Resolver fetches at most once;
// later calls return the stored outcome. Manually supplied text skips the
// machine entirely. A Resolver is request-scoped and not safe for
// concurrent use.
type Resolver struct {
	fetcher Fetcher
	logger  *slog.Logger
	state   core.TranscriptState
	outcome core.TranscriptOutcome
	fetches int
}

// NewResolver creates a resolver in the Idle state.
func NewResolver(fetcher Fetcher, opts ...ResolverOption) (*Resolver, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	r := &Resolver{
		fetcher: fetcher,
		logger:  slog.Default().With("component", "transcript"),
		state:   core.TranscriptIdle,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// State returns the current state of the machine.
func (r *Resolver) State() core.TranscriptState {
	return r.state
}

// Fetches returns how many remote fetches this resolver has performed.
func (r *Resolver) Fetches() int {
	return r.fetches
}

// Resolve produces transcript text for videoRef.
//
// Non-blank manualText is used as-is and never triggers a fetch, whatever
// state the machine is in. Otherwise the first call fetches and every later
// call returns the stored outcome.
func (r *Resolver) Resolve(ctx context.Context, videoRef, manualText string) core.TranscriptOutcome {
	if !core.IsBlank(manualText) {
		r.logger.Debug("using manual transcript", "video", videoRef, "chars", core.CharCount(manualText))
		return core.TranscriptOutcome{
			State:  core.TranscriptResolved,
			Text:   strings.TrimSpace(manualText),
			Manual: true,
		}
	}

	if r.state.Terminal() {
		r.logger.Debug("transcript already resolved", "video", videoRef, "state", r.state)
		return r.outcome
	}

	r.transition(core.TranscriptFetching, videoRef)
	r.fetches++
	text, err := r.fetcher.Fetch(ctx, videoRef)

	var outcome core.TranscriptOutcome
	switch {
	case errors.Is(err, ErrTranscriptDisabled):
		outcome = core.TranscriptOutcome{State: core.TranscriptDisabled}
	case err != nil:
		outcome = core.TranscriptOutcome{State: core.TranscriptFailed, Detail: failureDetail(ctx, err)}
	case core.IsBlank(text):
		outcome = core.TranscriptOutcome{State: core.TranscriptEmpty}
	default:
		outcome = core.TranscriptOutcome{State: core.TranscriptResolved, Text: text}
	}

	r.outcome = outcome
	r.transition(outcome.State, videoRef)
	if outcome.State == core.TranscriptFailed {
		r.logger.Warn("transcript fetch failed", "video", videoRef, "err", err)
	}
	return outcome
}

func (r *Resolver) transition(to core.TranscriptState, videoRef string) {
	r.logger.Debug("transcript state change", "video", videoRef, "from", r.state, "to", to)
	r.state = to
}

func failureDetail(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "request timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "request cancelled"
	}
	return err.Error()
}
