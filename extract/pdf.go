package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/poiesic/gist/core"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
)

var pdfMagic = []byte("%PDF-")

// PDFLoader extracts per-page text from a PDF.
type PDFLoader func(ctx context.Context, r io.ReaderAt, size int64) ([]schema.Document, error)

func langchainPDFLoader(ctx context.Context, r io.ReaderAt, size int64) ([]schema.Document, error) {
	return documentloaders.NewPDF(r, size).Load(ctx)
}

func (e *Extractor) extractPDF(ctx context.Context, in core.RawInput) (*core.ExtractedText, error) {
	if !bytes.HasPrefix(in.Data, pdfMagic) {
		return nil, core.NewMalformedFormat("Invalid PDF format. The file header is missing.")
	}

	pages, err := e.safeLoadPDF(ctx, in.Data)
	if err != nil {
		return nil, core.NewExtractorFault(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		if t := strings.TrimSpace(p.PageContent); t != "" {
			texts = append(texts, t)
		}
	}
	text := strings.Join(texts, "\n\n")
	if core.IsBlank(text) {
		cErr := core.NewNoExtractableText("No text found in PDF. This might be an image-based PDF or scanned document.")
		cErr.Details = map[string]any{"pages": len(pages)}
		return nil, cErr
	}

	return &core.ExtractedText{
		SourceLabel: in.Label(),
		Text:        text,
		Pages:       len(pages),
	}, nil
}

// safeLoadPDF runs the loader and converts a parser panic into an error.
func (e *Extractor) safeLoadPDF(ctx context.Context, data []byte) (pages []schema.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("pdf parser panicked", "panic", r)
			pages = nil
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()
	return e.loadPDF(ctx, bytes.NewReader(data), int64(len(data)))
}
