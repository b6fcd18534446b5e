package extract

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/poiesic/gist/core"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeUTF8 decodes data as UTF-8, dropping a leading byte order mark and
// replacing invalid sequences.
func decodeUTF8(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "\uFFFD")
}

func noText(in core.RawInput) error {
	cErr := core.NewNoExtractableText("No text content found in the document.")
	cErr.Details = map[string]any{"source": in.Label(), "bytes": len(in.Data)}
	return cErr
}

func (e *Extractor) extractText(in core.RawInput) (*core.ExtractedText, error) {
	s := decodeUTF8(in.Data)
	if core.IsBlank(s) {
		return nil, noText(in)
	}
	return &core.ExtractedText{SourceLabel: in.Label(), Text: s}, nil
}

func (e *Extractor) extractMarkdown(in core.RawInput) (*core.ExtractedText, error) {
	src := []byte(decodeUTF8(in.Data))
	s := strings.TrimSpace(markdownText(e.markdown.Parser().Parse(text.NewReader(src)), src))
	if s == "" {
		return nil, noText(in)
	}
	return &core.ExtractedText{SourceLabel: in.Label(), Text: s}, nil
}

func (e *Extractor) extractHTML(in core.RawInput) (*core.ExtractedText, error) {
	s := strings.TrimSpace(e.htmlText(decodeUTF8(in.Data)))
	if s == "" {
		return nil, noText(in)
	}
	return &core.ExtractedText{SourceLabel: in.Label(), Text: s}, nil
}

// extractSnippet accepts search result content that may be markup or plain text.
func (e *Extractor) extractSnippet(in core.RawInput) (*core.ExtractedText, error) {
	s := decodeUTF8(in.Data)
	if strings.Contains(s, "<") && strings.Contains(s, ">") {
		s = e.htmlText(s)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, noText(in)
	}
	return &core.ExtractedText{SourceLabel: in.Label(), Text: s}, nil
}

// htmlText converts markup to markdown, falling back to the document's bare
// text when conversion fails.
func (e *Extractor) htmlText(html string) string {
	out, err := e.html.ConvertString(html)
	if err == nil {
		return out
	}
	e.logger.Debug("html conversion failed, using text nodes", "err", err)
	doc, qErr := goquery.NewDocumentFromReader(strings.NewReader(html))
	if qErr != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()
	return doc.Text()
}

// markdownText flattens a parsed markdown tree into plain text, one line per
// block.
func markdownText(doc ast.Node, src []byte) string {
	var sb strings.Builder
	newline := func() {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteByte('\n')
		}
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				newline()
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.String:
			sb.Write(node.Value)
		case *ast.AutoLink:
			sb.Write(node.URL(src))
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return sb.String()
}
