package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/poiesic/gist/core"
	"github.com/yuin/goldmark"
)

// DefaultMaxBytes is the largest input accepted for extraction (4 MiB).
const DefaultMaxBytes = 4 * 1024 * 1024

// Extractor turns raw bytes into plain text. It holds no per-request state
// and is safe for concurrent use.
type Extractor struct {
	maxBytes int
	loadPDF  PDFLoader
	html     *md.Converter
	markdown goldmark.Markdown
	logger   *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxBytes sets the input size limit. Non-positive values disable it.
func WithMaxBytes(n int) Option {
	return func(e *Extractor) {
		e.maxBytes = n
	}
}

// WithPDFLoader replaces the structural PDF text loader.
func WithPDFLoader(loader PDFLoader) Option {
	return func(e *Extractor) {
		if loader != nil {
			e.loadPDF = loader
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "extractor")
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		maxBytes: DefaultMaxBytes,
		loadPDF:  langchainPDFLoader,
		html:     md.NewConverter("", true, nil),
		markdown: goldmark.New(),
		logger:   slog.Default().With("component", "extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Supported reports whether the extractor handles format.
func Supported(format core.Format) bool {
	switch format {
	case core.FormatPDF, core.FormatText, core.FormatMarkdown, core.FormatHTML,
		core.FormatRemoteTranscript, core.FormatSearchSnippet:
		return true
	}
	return false
}

// Extract recovers plain text from in according to its declared format.
//
// Unsupported formats are rejected before any byte is inspected. Every
// failure is a classified *core.Error; a successful result always carries
// visible text.
func (e *Extractor) Extract(ctx context.Context, in core.RawInput) (*core.ExtractedText, error) {
	if !Supported(in.Format) {
		return nil, core.NewUnsupportedFormat(in.Format)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.maxBytes > 0 && len(in.Data) > e.maxBytes {
		cErr := core.NewInvalidRequest(fmt.Sprintf("File too large. Maximum size is %s.", humanSize(e.maxBytes)))
		cErr.Details = map[string]any{"max_bytes": e.maxBytes, "actual_bytes": len(in.Data)}
		return nil, cErr
	}

	var (
		result *core.ExtractedText
		err    error
	)
	switch in.Format {
	case core.FormatPDF:
		result, err = e.extractPDF(ctx, in)
	case core.FormatMarkdown:
		result, err = e.extractMarkdown(in)
	case core.FormatHTML:
		result, err = e.extractHTML(in)
	case core.FormatSearchSnippet:
		result, err = e.extractSnippet(in)
	default:
		result, err = e.extractText(in)
	}
	if err != nil {
		e.logger.Debug("extraction failed",
			"source", in.Label(),
			"format", in.Format,
			"kind", core.KindOf(err),
			"err", err)
		return nil, err
	}

	e.logger.Debug("extracted text",
		"source", result.SourceLabel,
		"format", in.Format,
		"chars", core.CharCount(result.Text))
	return result, nil
}

// DetectFormat infers a format from an upload's filename and MIME type.
func DetectFormat(filename, mimeType string) (core.Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	mimeType = strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))

	switch {
	case mimeType == "application/pdf" || ext == ".pdf":
		return core.FormatPDF, nil
	case mimeType == "text/markdown" || ext == ".md" || ext == ".markdown":
		return core.FormatMarkdown, nil
	case mimeType == "text/html" || ext == ".html" || ext == ".htm":
		return core.FormatHTML, nil
	case mimeType == "text/plain" || ext == ".txt":
		return core.FormatText, nil
	}

	cErr := core.NewUnsupportedFormat(core.Format(strings.TrimPrefix(ext, ".")))
	cErr.Message = "Only PDF, TXT, Markdown and HTML files are supported"
	return "", cErr
}

func humanSize(n int) string {
	const mib = 1024 * 1024
	if n%mib == 0 {
		return fmt.Sprintf("%dMB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
