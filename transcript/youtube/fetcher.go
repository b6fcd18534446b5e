// Package youtube fetches video captions from YouTube.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	yt "github.com/kkdai/youtube/v2"
	"github.com/poiesic/gist/transcript"
)

// DefaultLanguage is the caption language requested when none is configured.
const DefaultLanguage = "en"

// ErrInvalidVideoRef is returned for references that contain no video ID.
var ErrInvalidVideoRef = errors.New("invalid video reference")

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the HTTP client used for caption requests.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client.HTTPClient = client
		}
	}
}

// WithLanguage sets the caption language code.
func WithLanguage(lang string) Option {
	return func(f *Fetcher) {
		if lang != "" {
			f.lang = lang
		}
	}
}

// WithLogger sets the fetcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Fetcher implements transcript.Fetcher against YouTube's caption API.
type Fetcher struct {
	client *yt.Client
	lang   string
	logger *slog.Logger
}

var _ transcript.Fetcher = (*Fetcher)(nil)

// New creates a YouTube caption fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &yt.Client{},
		lang:   DefaultLanguage,
		logger: slog.Default().With("component", "youtube"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// VideoID extracts the video ID from a watch URL, short link or bare ID.
func VideoID(ref string) (string, error) {
	id, err := yt.ExtractVideoID(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidVideoRef, err)
	}
	return id, nil
}

// Fetch returns the video's caption segments joined by single spaces.
// Videos without captions yield transcript.ErrTranscriptDisabled.
func (f *Fetcher) Fetch(ctx context.Context, videoRef string) (string, error) {
	id, err := VideoID(videoRef)
	if err != nil {
		return "", err
	}

	f.logger.Debug("fetching transcript", "video", id, "lang", f.lang)
	segments, err := f.client.GetTranscriptCtx(ctx, &yt.Video{ID: id}, f.lang)
	if err != nil {
		if errors.Is(err, yt.ErrTranscriptDisabled) {
			return "", fmt.Errorf("%w: %s", transcript.ErrTranscriptDisabled, id)
		}
		return "", fmt.Errorf("failed to fetch transcript for %s: %w", id, err)
	}

	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
