package extract

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/poiesic/gist/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"
)

// stubLoader returns fixed pages and counts invocations.
type stubLoader struct {
	pages []schema.Document
	err   error
	panic any
	calls int
}

func (s *stubLoader) load(ctx context.Context, r io.ReaderAt, size int64) ([]schema.Document, error) {
	s.calls++
	if s.panic != nil {
		panic(s.panic)
	}
	return s.pages, s.err
}

func page(text string) schema.Document {
	return schema.Document{PageContent: text}
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	loader := &stubLoader{}
	e := New(WithPDFLoader(loader.load))

	_, err := e.Extract(context.Background(), core.RawInput{Data: nil, Format: "docx"})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindUnsupportedFormat))
	assert.Zero(t, loader.calls)
}

func TestExtract_PDF_MissingSignature(t *testing.T) {
	loader := &stubLoader{pages: []schema.Document{page("should never be read")}}
	e := New(WithPDFLoader(loader.load))

	inputs := [][]byte{
		[]byte("hello12345"), // 10 bytes, no signature
		{},
		[]byte("%PD"),
		[]byte(" %PDF-1.7 leading space"),
		[]byte("plain text pretending to be a PDF"),
	}
	for _, data := range inputs {
		_, err := e.Extract(context.Background(), core.RawInput{Data: data, Filename: "doc.pdf", Format: core.FormatPDF})
		require.Error(t, err)
		assert.True(t, core.IsKind(err, core.KindMalformedFormat), "input %q gave %v", data, err)
		assert.False(t, core.IsKind(err, core.KindExtractorFault))
	}
	assert.Zero(t, loader.calls, "parser must not run without a signature")
}

func TestExtract_PDF_Pages(t *testing.T) {
	loader := &stubLoader{pages: []schema.Document{
		page("First page text\n"),
		page("   "),
		page("Third page"),
	}}
	e := New(WithPDFLoader(loader.load))

	got, err := e.Extract(context.Background(), core.RawInput{
		Data:     []byte("%PDF-1.4 body"),
		Filename: "report.pdf",
		Format:   core.FormatPDF,
	})
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", got.SourceLabel)
	assert.Equal(t, "First page text\n\nThird page", got.Text)
	assert.Equal(t, 3, got.Pages)
	assert.False(t, got.Truncated)
	assert.Equal(t, 1, loader.calls)
}

func TestExtract_PDF_ImageOnly(t *testing.T) {
	loader := &stubLoader{pages: []schema.Document{page(""), page(" \n\t")}}
	e := New(WithPDFLoader(loader.load))

	_, err := e.Extract(context.Background(), core.RawInput{Data: []byte("%PDF-1.5"), Format: core.FormatPDF})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindNoExtractableText))
	assert.Contains(t, err.Error(), "scanned")
}

func TestExtract_PDF_ParserError(t *testing.T) {
	loader := &stubLoader{err: errors.New("malformed xref")}
	e := New(WithPDFLoader(loader.load))

	_, err := e.Extract(context.Background(), core.RawInput{Data: []byte("%PDF-1.5"), Format: core.FormatPDF})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindExtractorFault))
	assert.Contains(t, err.Error(), "malformed xref")
}

func TestExtract_PDF_ParserPanic(t *testing.T) {
	loader := &stubLoader{panic: "index out of range"}
	e := New(WithPDFLoader(loader.load))

	_, err := e.Extract(context.Background(), core.RawInput{Data: []byte("%PDF-1.5"), Format: core.FormatPDF})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindExtractorFault))
	assert.Contains(t, err.Error(), "index out of range")
}

func TestExtract_PDF_CorruptBodyWithRealParser(t *testing.T) {
	e := New()

	_, err := e.Extract(context.Background(), core.RawInput{
		Data:   []byte("%PDF-1.4\nthis is not really a pdf body\n"),
		Format: core.FormatPDF,
	})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindExtractorFault), "got %v", err)
}

func TestExtract_Text(t *testing.T) {
	e := New()

	got, err := e.Extract(context.Background(), core.RawInput{Data: []byte("Hello world"), Filename: "hello.txt", Format: core.FormatText})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", got.Text)
	assert.Equal(t, "hello.txt", got.SourceLabel)
}

func TestExtract_Text_Empty(t *testing.T) {
	e := New()

	for _, data := range [][]byte{nil, {}, []byte("   \n\n")} {
		_, err := e.Extract(context.Background(), core.RawInput{Data: data, Format: core.FormatText})
		require.Error(t, err)
		assert.True(t, core.IsKind(err, core.KindNoExtractableText))
	}
}

func TestExtract_Text_InvalidUTF8(t *testing.T) {
	e := New()

	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("caf\xe9 menu")...)
	got, err := e.Extract(context.Background(), core.RawInput{Data: data, Format: core.FormatText})
	require.NoError(t, err)
	assert.Equal(t, "caf� menu", got.Text)
}

func TestExtract_RemoteTranscript(t *testing.T) {
	e := New()

	got, err := e.Extract(context.Background(), core.RawInput{Data: []byte("lecture notes..."), Format: core.FormatRemoteTranscript})
	require.NoError(t, err)
	assert.Equal(t, "lecture notes...", got.Text)
	assert.Equal(t, "remote-transcript", got.SourceLabel)
}

func TestExtract_Markdown(t *testing.T) {
	e := New()

	src := "# Title\n\nSome *emphasis* and a [link](https://example.com).\n\n- one\n- two\n\n```go\nfmt.Println(1)\n```\n"
	got, err := e.Extract(context.Background(), core.RawInput{Data: []byte(src), Filename: "readme.md", Format: core.FormatMarkdown})
	require.NoError(t, err)

	assert.Contains(t, got.Text, "Title")
	assert.Contains(t, got.Text, "Some emphasis and a link.")
	assert.Contains(t, got.Text, "one\ntwo")
	assert.Contains(t, got.Text, "fmt.Println(1)")
	assert.NotContains(t, got.Text, "#")
	assert.NotContains(t, got.Text, "*")
}

func TestExtract_Markdown_OnlyMarkup(t *testing.T) {
	e := New()

	_, err := e.Extract(context.Background(), core.RawInput{Data: []byte("---\n\n<!-- nothing -->\n"), Format: core.FormatMarkdown})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindNoExtractableText))
}

func TestExtract_HTML(t *testing.T) {
	e := New()

	src := `<html><body><h1>Gophers</h1><p>They <b>dig</b> tunnels.</p></body></html>`
	got, err := e.Extract(context.Background(), core.RawInput{Data: []byte(src), Format: core.FormatHTML})
	require.NoError(t, err)
	assert.Contains(t, got.Text, "Gophers")
	assert.Contains(t, got.Text, "**dig**")
	assert.NotContains(t, got.Text, "<p>")
}

func TestExtract_SearchSnippet(t *testing.T) {
	e := New()

	got, err := e.Extract(context.Background(), core.RawInput{Data: []byte("plain snippet text"), Format: core.FormatSearchSnippet})
	require.NoError(t, err)
	assert.Equal(t, "plain snippet text", got.Text)

	got, err = e.Extract(context.Background(), core.RawInput{Data: []byte("<p>marked <i>up</i></p>"), Format: core.FormatSearchSnippet})
	require.NoError(t, err)
	assert.Contains(t, got.Text, "marked")
	assert.NotContains(t, got.Text, "<p>")
}

func TestExtract_TooLarge(t *testing.T) {
	e := New(WithMaxBytes(16))

	_, err := e.Extract(context.Background(), core.RawInput{Data: bytes.Repeat([]byte("x"), 17), Format: core.FormatText})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindInvalidRequest))

	e = New()
	_, err = e.Extract(context.Background(), core.RawInput{Data: bytes.Repeat([]byte("x"), DefaultMaxBytes+1), Format: core.FormatText})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "4MB")
}

func TestExtract_Cancelled(t *testing.T) {
	e := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Extract(ctx, core.RawInput{Data: []byte("text"), Format: core.FormatText})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		mime     string
		want     core.Format
	}{
		{"paper.pdf", "", core.FormatPDF},
		{"PAPER.PDF", "", core.FormatPDF},
		{"blob", "application/pdf", core.FormatPDF},
		{"notes.txt", "", core.FormatText},
		{"notes", "text/plain; charset=utf-8", core.FormatText},
		{"README.md", "", core.FormatMarkdown},
		{"page.htm", "", core.FormatHTML},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, err := DetectFormat(tt.filename, tt.mime)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := DetectFormat("sheet.xlsx", "application/vnd.ms-excel")
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindUnsupportedFormat))
	assert.True(t, strings.HasPrefix(err.Error(), string(core.KindUnsupportedFormat)))
}
