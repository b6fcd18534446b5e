package assembly

import (
	"strings"
	"testing"

	"github.com/poiesic/gist/budget"
	"github.com/poiesic/gist/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble_Empty(t *testing.T) {
	for _, b := range []int{0, 1, 100, 40000} {
		block := Assemble(nil, b)
		require.NotNil(t, block)
		assert.True(t, block.Empty)
		assert.Equal(t, NoContentSentinel, block.Text)
		assert.NotEmpty(t, block.Text)
		assert.Zero(t, block.Chars)
		assert.Empty(t, block.Sources())
	}
}

func TestAssemble_AllBlank(t *testing.T) {
	block := Assemble([]core.Fragment{
		{LabelPrefix: "File", Label: "empty.txt", Text: ""},
		{LabelPrefix: "File", Label: "spaces.txt", Text: "   \n"},
	}, 1000)
	assert.True(t, block.Empty)
	assert.False(t, block.AggregateTruncated)
	assert.Equal(t, NoContentSentinel, block.Text)
}

func TestAssemble_SingleFragment(t *testing.T) {
	block := Assemble([]core.Fragment{
		{LabelPrefix: "Document", Label: "hello.txt", Text: "Hello world"},
	}, 1000)

	assert.False(t, block.Empty)
	assert.Equal(t, "Document: hello.txt\nContent: Hello world", block.Text)
	assert.Equal(t, core.CharCount(block.Text), block.Chars)
	assert.Equal(t, []string{"hello.txt"}, block.Sources())
}

func TestAssemble_OrderAndDelimiter(t *testing.T) {
	block := Assemble([]core.Fragment{
		{LabelPrefix: "File", Label: "one", Text: "first"},
		{LabelPrefix: "File", Label: "two", Text: "second"},
	}, 0)

	want := "File: one\nContent: first" + Delimiter + "File: two\nContent: second"
	assert.Equal(t, want, block.Text)
	assert.Equal(t, core.CharCount(want), block.Chars)
}

func TestAssemble_URLLine(t *testing.T) {
	text := Render(core.Fragment{LabelPrefix: "Source", Label: "Go", URL: "https://go.dev", Text: "gopher"})
	assert.Equal(t, "Source: Go\nURL: https://go.dev\nContent: gopher", text)

	text = Render(core.Fragment{Label: "untitled", Text: "x"})
	assert.Equal(t, "Source: untitled\nContent: x", text)
}

func TestAssemble_StopsAtBudget(t *testing.T) {
	fragments := []core.Fragment{
		{LabelPrefix: "File", Label: "a", Text: strings.Repeat("a", 50)},
		{LabelPrefix: "File", Label: "b", Text: strings.Repeat("b", 50)},
		{LabelPrefix: "File", Label: "c", Text: "c"},
	}
	first := core.CharCount(Render(fragments[0]))

	block := Assemble(fragments, first+10)
	assert.True(t, block.AggregateTruncated)
	assert.Equal(t, []string{"a"}, block.Sources())
	assert.Equal(t, first, block.Chars)
	assert.LessOrEqual(t, block.Chars, first+10)
}

func TestAssemble_FirstFragmentTooLarge(t *testing.T) {
	block := Assemble([]core.Fragment{
		{LabelPrefix: "File", Label: "big", Text: strings.Repeat("x", 500)},
	}, 100)
	assert.True(t, block.Empty)
	assert.True(t, block.AggregateTruncated)
	assert.Equal(t, NoContentSentinel, block.Text)
}

func TestAssemble_NeverExceedsBudget(t *testing.T) {
	fragments := make([]core.Fragment, 0, 20)
	for i := 0; i < 20; i++ {
		fragments = append(fragments, core.Fragment{
			LabelPrefix: "Source",
			Label:       strings.Repeat("t", i+1),
			Text:        strings.Repeat("w", 37*(i+1)),
		})
	}
	for _, b := range []int{1, 50, 120, 500, 1000, 4000, 10000} {
		block := Assemble(fragments, b)
		assert.LessOrEqual(t, block.Chars, b, "budget %d", b)
		if !block.Empty {
			assert.Equal(t, core.CharCount(block.Text), block.Chars)
		}
	}
}

func TestAssemble_Deterministic(t *testing.T) {
	fragments := []core.Fragment{
		{LabelPrefix: "File", Label: "x", Text: strings.Repeat("1", 300)},
		{LabelPrefix: "File", Label: "y", Text: strings.Repeat("2", 300)},
	}
	a := Assemble(fragments, 500)
	b := Assemble(fragments, 500)
	assert.Equal(t, a, b)
}

func TestAssemble_WorkspaceScenario(t *testing.T) {
	budgets := budget.Defaults()
	docs := []struct{ name, content string }{
		{"a.txt", strings.Repeat("A", 40000)},
		{"b.txt", strings.Repeat("B", 5000)},
		{"c.txt", ""},
	}
	fragments := make([]core.Fragment, 0, len(docs))
	for _, d := range docs {
		r := budget.Truncate(d.content, budgets.WorkspaceDocument)
		fragments = append(fragments, core.Fragment{LabelPrefix: "File", Label: d.name, Text: r.Text})
	}

	block := Assemble(fragments, budgets.WorkspaceAggregate)
	assert.False(t, block.AggregateTruncated)
	assert.Equal(t, []string{"a.txt", "b.txt"}, block.Sources())

	parts := strings.Split(block.Text, Delimiter)
	require.Len(t, parts, 2)
	assert.Equal(t, "File: a.txt\nContent: "+strings.Repeat("A", 3000)+budget.Marker, parts[0])
	assert.Equal(t, "File: b.txt\nContent: "+strings.Repeat("B", 3000)+budget.Marker, parts[1])
}
