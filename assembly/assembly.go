// Package assembly joins labeled text fragments into the single context block
// sent to the completion backend.
package assembly

import (
	"strings"

	"github.com/poiesic/gist/core"
)

const (
	// Delimiter separates fragments in an assembled block.
	Delimiter = "\n\n---\n\n"

	// NoContentSentinel is the text of a block with no usable fragments.
	NoContentSentinel = "No content available."

	defaultLabelPrefix = "Source"
)

// Render formats one fragment as it appears in a block.
func Render(f core.Fragment) string {
	prefix := f.LabelPrefix
	if prefix == "" {
		prefix = defaultLabelPrefix
	}

	var sb strings.Builder
	sb.Grow(len(prefix) + len(f.Label) + len(f.URL) + len(f.Text) + 24)
	sb.WriteString(prefix)
	sb.WriteString(": ")
	sb.WriteString(f.Label)
	sb.WriteByte('\n')
	if f.URL != "" {
		sb.WriteString("URL: ")
		sb.WriteString(f.URL)
		sb.WriteByte('\n')
	}
	sb.WriteString("Content: ")
	sb.WriteString(f.Text)
	return sb.String()
}

// Assemble joins fragments in order, skipping those with no visible text.
// Inclusion stops at the first fragment that would push the block past
// aggregateBudget characters, and the block is marked aggregate-truncated.
// A non-positive aggregateBudget disables the limit.
//
// When nothing is included the sentinel block is returned: Empty is set,
// Text is NoContentSentinel and Chars is zero.
func Assemble(fragments []core.Fragment, aggregateBudget int) *core.ContextBlock {
	block := &core.ContextBlock{
		Fragments: make([]core.Fragment, 0, len(fragments)),
	}
	delimLen := core.CharCount(Delimiter)

	var sb strings.Builder
	for _, f := range fragments {
		if core.IsBlank(f.Text) {
			continue
		}

		rendered := Render(f)
		add := core.CharCount(rendered)
		if len(block.Fragments) > 0 {
			add += delimLen
		}
		if aggregateBudget > 0 && block.Chars+add > aggregateBudget {
			block.AggregateTruncated = true
			break
		}

		if len(block.Fragments) > 0 {
			sb.WriteString(Delimiter)
		}
		sb.WriteString(rendered)
		block.Chars += add
		block.Fragments = append(block.Fragments, f)
	}

	if len(block.Fragments) == 0 {
		block.Empty = true
		block.Text = NoContentSentinel
		block.Chars = 0
		return block
	}

	block.Text = sb.String()
	return block
}
