package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/gist/ai"
	"github.com/poiesic/gist/ai/mock"
	"github.com/poiesic/gist/assembly"
	"github.com/poiesic/gist/budget"
	"github.com/poiesic/gist/core"
	"github.com/poiesic/gist/storage/badger"
	"github.com/poiesic/gist/synthesis"
	"github.com/poiesic/gist/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrchestrator(t *testing.T, completer ai.Completer, opts ...Option) *Orchestrator {
	t.Helper()
	o, err := New(completer, opts...)
	require.NoError(t, err)
	return o
}

func textFile(name, content string) core.RawInput {
	return core.RawInput{Data: []byte(content), Filename: name, Format: core.FormatText}
}

// countingFetcher returns text or err and counts calls.
func countingFetcher(calls *atomic.Int32, text string, err error) transcript.Fetcher {
	return transcript.FetcherFunc(func(ctx context.Context, videoRef string) (string, error) {
		calls.Add(1)
		return text, err
	})
}

type stubSearch struct {
	hits []core.SearchHit
	err  error
}

func (s *stubSearch) Search(ctx context.Context, query string, limit int) ([]core.SearchHit, error) {
	return s.hits, s.err
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrCompleterRequired)

	completer := mock.NewMockCompleter("x")

	t.Run("defaults", func(t *testing.T) {
		o := newOrchestrator(t, completer)
		assert.Equal(t, budget.Defaults(), o.Budgets())
		assert.Equal(t, DefaultTimeout, o.timeout)
		assert.Nil(t, o.searcher)
	})

	t.Run("invalid options", func(t *testing.T) {
		bad := budget.Defaults()
		bad.Transcript = 0
		for name, opt := range map[string]Option{
			"negative timeout": WithTimeout(-time.Second),
			"bad budgets":      WithBudgets(bad),
			"nil extractor":    WithExtractor(nil),
			"zero limit":       WithSearchLimit(0),
		} {
			t.Run(name, func(t *testing.T) {
				_, err := New(completer, opt)
				assert.Error(t, err)
			})
		}
	})

	t.Run("search backend wrapped with limit", func(t *testing.T) {
		o := newOrchestrator(t, completer, WithSearchBackend(&stubSearch{}), WithSearchLimit(3))
		require.NotNil(t, o.searcher)
		assert.Equal(t, 3, o.searcher.Limit())
	})
}

func TestRunDocumentQA_MalformedPDF(t *testing.T) {
	completer := mock.NewMockCompleter("unused")
	o := newOrchestrator(t, completer)

	_, err := o.RunDocumentQA(context.Background(), DocumentQARequest{
		File:     core.RawInput{Data: []byte("0123456789"), Filename: "paper.pdf", Format: core.FormatPDF},
		Question: "What is this about?",
	})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindMalformedFormat))
	assert.Equal(t, 0, completer.CallCount())
}

func TestRunDocumentQA_SingleFragment(t *testing.T) {
	completer := mock.NewMockCompleter("It says hello.")
	o := newOrchestrator(t, completer)

	result, err := o.RunDocumentQA(context.Background(), DocumentQARequest{
		Caller:   Caller{ID: "u1", Role: "user"},
		File:     textFile("notes.txt", "Hello world"),
		Question: "What does it say?",
	})
	require.NoError(t, err)

	assert.Equal(t, "It says hello.", result.AnswerText)
	assert.Equal(t, []string{"notes.txt"}, result.Sources)
	assert.False(t, result.Informational)

	require.Equal(t, 1, completer.CallCount())
	req := completer.LastRequest()
	assert.Equal(t, synthesis.DocumentQAPrompt, req.SystemPrompt)
	assert.Equal(t, "Context:\nDocument: notes.txt\nContent: Hello world\n\nQuestion: What does it say?", req.UserMessage)
	assert.False(t, req.JSONMode)
}

func TestRunDocumentQA_Truncates(t *testing.T) {
	completer := mock.NewMockCompleter("ok")
	budgets := budget.Defaults()
	budgets.DocumentQA = 10
	o := newOrchestrator(t, completer, WithBudgets(budgets))

	_, err := o.RunDocumentQA(context.Background(), DocumentQARequest{
		File:     textFile("long.txt", strings.Repeat("x", 50)),
		Question: "q",
	})
	require.NoError(t, err)
	assert.Contains(t, completer.LastRequest().UserMessage, "Content: "+strings.Repeat("x", 10)+budget.Marker+"\n\n")
}

func TestRunDocumentQA_LongFilename(t *testing.T) {
	completer := mock.NewMockCompleter("ok")
	budgets := budget.Defaults()
	budgets.DocumentQA = 10
	o := newOrchestrator(t, completer, WithBudgets(budgets))

	name := strings.Repeat("n", 600) + ".txt"
	result, err := o.RunDocumentQA(context.Background(), DocumentQARequest{
		File:     textFile(name, strings.Repeat("x", 50)),
		Question: "q",
	})
	require.NoError(t, err)
	assert.False(t, result.Informational)
	assert.Equal(t, []string{name}, result.Sources)
	assert.Equal(t, 1, completer.CallCount())
}

func TestRunDocumentQA_Rejections(t *testing.T) {
	tests := []struct {
		name string
		req  DocumentQARequest
		kind core.Kind
	}{
		{"no file", DocumentQARequest{Question: "q"}, core.KindInvalidRequest},
		{"no question", DocumentQARequest{File: textFile("a.txt", "hi")}, core.KindInvalidRequest},
		{"blank question", DocumentQARequest{File: textFile("a.txt", "hi"), Question: "  "}, core.KindInvalidRequest},
		{"empty text", DocumentQARequest{File: textFile("a.txt", ""), Question: "q"}, core.KindNoExtractableText},
		{"unsupported", DocumentQARequest{File: core.RawInput{Data: []byte("x"), Format: "docx"}, Question: "q"}, core.KindUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := mock.NewMockCompleter("unused")
			o := newOrchestrator(t, completer)

			_, err := o.RunDocumentQA(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, core.KindOf(err))
			assert.Equal(t, 0, completer.CallCount())
		})
	}
}

func TestRunDocumentQA_Cancelled(t *testing.T) {
	completer := mock.NewMockCompleter("unused")
	o := newOrchestrator(t, completer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := o.RunDocumentQA(ctx, DocumentQARequest{File: textFile("a.txt", "hi"), Question: "q"})
	assert.Nil(t, result)
	assert.True(t, core.IsKind(err, core.KindNetworkError))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, completer.CallCount())
}

func TestRunDocumentQA_SynthesisTimeout(t *testing.T) {
	completer := &mock.MockCompleter{
		CompleteFunc: func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	o := newOrchestrator(t, completer, WithTimeout(20*time.Millisecond))

	result, err := o.RunDocumentQA(context.Background(), DocumentQARequest{File: textFile("a.txt", "hi"), Question: "q"})
	assert.Nil(t, result)
	assert.True(t, core.IsKind(err, core.KindSynthesisError))
	assert.Equal(t, 1, completer.CallCount())
}

func TestRunDocumentQA_SynthesisFailure(t *testing.T) {
	completer := &mock.MockCompleter{
		CompleteFunc: func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			return nil, errors.New("503 service unavailable")
		},
	}
	o := newOrchestrator(t, completer)

	_, err := o.RunDocumentQA(context.Background(), DocumentQARequest{File: textFile("a.txt", "hi"), Question: "q"})
	assert.True(t, core.IsKind(err, core.KindSynthesisError))
	assert.Equal(t, 1, completer.CallCount(), "no retry")
}

func TestRunWorkspaceQA_BudgetsAndOrder(t *testing.T) {
	completer := mock.NewMockCompleter("answer")
	o := newOrchestrator(t, completer)

	result, err := o.RunWorkspaceQA(context.Background(), WorkspaceQARequest{
		Documents: []core.Document{
			{Name: "a.txt", Content: strings.Repeat("A", 40000)},
			{Name: "b.txt", Content: strings.Repeat("B", 5000)},
			{Name: "c.txt", Content: ""},
		},
		Query: "Summarize",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, result.Sources)

	want := "Context:\n" +
		"File: a.txt\nContent: " + strings.Repeat("A", 3000) + budget.Marker +
		assembly.Delimiter +
		"File: b.txt\nContent: " + strings.Repeat("B", 3000) + budget.Marker +
		"\n\nQuestion: Summarize"
	req := completer.LastRequest()
	assert.Equal(t, want, req.UserMessage)
	assert.Equal(t, synthesis.WorkspaceQAPrompt, req.SystemPrompt)
	assert.NotContains(t, req.UserMessage, "c.txt")
}

func TestRunWorkspaceQA_AggregateBudget(t *testing.T) {
	completer := mock.NewMockCompleter("answer")
	budgets := budget.Defaults()
	budgets.WorkspaceDocument = 100
	budgets.WorkspaceAggregate = budget.Single(100)
	o := newOrchestrator(t, completer, WithBudgets(budgets))

	// Each document renders to 133 characters, plus 7 for the delimiter after
	// the first, so four fit in 627.
	docs := make([]core.Document, 0, 6)
	for i := 1; i <= 6; i++ {
		docs = append(docs, core.Document{
			Name:    fmt.Sprintf("d%d", i),
			Content: strings.Repeat("x", 200),
		})
	}
	result, err := o.RunWorkspaceQA(context.Background(), WorkspaceQARequest{Documents: docs, Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2", "d3", "d4"}, result.Sources)
}

func TestRunWorkspaceQA_ContentTooLargeForBudget(t *testing.T) {
	completer := mock.NewMockCompleter("unused")
	budgets := budget.Defaults()
	budgets.WorkspaceDocument = 100
	budgets.WorkspaceAggregate = budget.Single(100)
	o := newOrchestrator(t, completer, WithBudgets(budgets))

	_, err := o.RunWorkspaceQA(context.Background(), WorkspaceQARequest{
		Documents: []core.Document{{Name: strings.Repeat("n", 600), Content: strings.Repeat("x", 5000)}},
		Query:     "q",
	})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindInvalidRequest))
	var ce *core.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, budget.Single(100), ce.Details["aggregate_budget"])
	assert.Equal(t, 0, completer.CallCount())
}

func TestRunWorkspaceQA_NoContent(t *testing.T) {
	completer := mock.NewMockCompleter("unused")
	o := newOrchestrator(t, completer)

	for _, docs := range [][]core.Document{nil, {{Name: "blank", Content: " \n "}}} {
		result, err := o.RunWorkspaceQA(context.Background(), WorkspaceQARequest{Documents: docs, Query: "q"})
		require.NoError(t, err)
		assert.True(t, result.Informational)
		assert.Equal(t, NoWorkspaceContentMessage, result.AnswerText)
		assert.Empty(t, result.Sources)
	}
	assert.Equal(t, 0, completer.CallCount())

	_, err := o.RunWorkspaceQA(context.Background(), WorkspaceQARequest{})
	assert.True(t, core.IsKind(err, core.KindInvalidRequest))
}

func TestAskWorkspace(t *testing.T) {
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer backend.Close()
	defer repo.Close()

	ctx := context.Background()
	ws, err := repo.CreateWorkspace(ctx, &core.Workspace{Name: "thesis", Owner: "u1"})
	require.NoError(t, err)
	_, err = repo.AddDocuments(ctx,
		&core.Document{WorkspaceID: ws.ID, Name: "ch1.txt", Content: "Chapter one"},
		&core.Document{WorkspaceID: ws.ID, Name: "ch2.txt", Content: "Chapter two"},
	)
	require.NoError(t, err)

	completer := mock.NewMockCompleter("two chapters")
	o := newOrchestrator(t, completer, WithDocumentStore(repo))

	result, err := o.AskWorkspace(ctx, AskWorkspaceRequest{WorkspaceID: ws.ID, Query: "How many chapters?"})
	require.NoError(t, err)
	assert.Equal(t, "two chapters", result.AnswerText)
	assert.Equal(t, []string{"ch1.txt", "ch2.txt"}, result.Sources)

	t.Run("unknown workspace", func(t *testing.T) {
		_, err := o.AskWorkspace(ctx, AskWorkspaceRequest{WorkspaceID: "01HZY3J5QK8W9V2B6C4D0E1F2G", Query: "q"})
		assert.True(t, core.IsKind(err, core.KindNotFound))
	})

	t.Run("missing workspace id", func(t *testing.T) {
		_, err := o.AskWorkspace(ctx, AskWorkspaceRequest{Query: "q"})
		assert.True(t, core.IsKind(err, core.KindInvalidRequest))
	})

	t.Run("no document store", func(t *testing.T) {
		bare := newOrchestrator(t, completer)
		_, err := bare.AskWorkspace(ctx, AskWorkspaceRequest{WorkspaceID: ws.ID, Query: "q"})
		assert.True(t, core.IsKind(err, core.KindInternal))
		assert.ErrorIs(t, err, ErrDocumentStoreRequired)
	})
}

func TestRunDeepSearch(t *testing.T) {
	completer := mock.NewMockCompleter("Go is fast.")
	o := newOrchestrator(t, completer)

	result, err := o.RunDeepSearch(context.Background(), DeepSearchRequest{
		Query: "is go fast",
		Results: []core.SearchHit{
			{Title: "Go", URL: "https://go.dev", Snippet: "<p>Go is <b>fast</b></p>"},
			{Title: "Empty", URL: "https://empty.example", Snippet: "   "},
			{Title: "", URL: "", Snippet: "Benchmarks show Go is quick."},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Go is fast.", result.AnswerText)
	assert.Equal(t, []string{"Go", DefaultLinkTitle}, result.Sources)
	assert.Equal(t, []core.Link{
		{Title: "Go", URL: "https://go.dev"},
		{Title: DefaultLinkTitle, URL: DefaultLinkURL},
	}, result.Links)

	req := completer.LastRequest()
	assert.Equal(t, synthesis.ResearchPrompt, req.SystemPrompt)
	assert.Contains(t, req.UserMessage, "Source: Go\nURL: https://go.dev\nContent: Go is **fast**")
	assert.NotContains(t, req.UserMessage, "empty.example")
	assert.True(t, strings.HasSuffix(req.UserMessage, "\n\nQuery: is go fast"))
}

func TestRunDeepSearch_SnippetBudget(t *testing.T) {
	completer := mock.NewMockCompleter("ok")
	o := newOrchestrator(t, completer)

	_, err := o.RunDeepSearch(context.Background(), DeepSearchRequest{
		Query:   "q",
		Results: []core.SearchHit{{Title: "long", URL: "https://long.example", Snippet: strings.Repeat("s", 2500)}},
	})
	require.NoError(t, err)
	assert.Contains(t, completer.LastRequest().UserMessage, strings.Repeat("s", 2000)+budget.Marker)
	assert.NotContains(t, completer.LastRequest().UserMessage, strings.Repeat("s", 2001))
}

func TestRunDeepSearch_NoResults(t *testing.T) {
	completer := mock.NewMockCompleter("unused")
	o := newOrchestrator(t, completer)

	result, err := o.RunDeepSearch(context.Background(), DeepSearchRequest{Query: "q"})
	require.NoError(t, err)
	assert.True(t, result.Informational)
	assert.Equal(t, NoSearchResultsMessage, result.AnswerText)
	assert.Empty(t, result.Links)
	assert.Equal(t, 0, completer.CallCount())
}

func TestSearch(t *testing.T) {
	hits := make([]core.SearchHit, 0, 8)
	for i := range 8 {
		hits = append(hits, core.SearchHit{
			Title:   fmt.Sprintf("hit %d", i),
			URL:     fmt.Sprintf("https://example.com/%d", i),
			Snippet: fmt.Sprintf("snippet %d", i),
		})
	}

	completer := mock.NewMockCompleter("answer")
	o := newOrchestrator(t, completer, WithSearchBackend(&stubSearch{hits: hits}))

	result, err := o.Search(context.Background(), SearchRequest{Query: "golang"})
	require.NoError(t, err)
	assert.Len(t, result.Links, 5)
	assert.Equal(t, "https://example.com/0", result.Links[0].URL)

	t.Run("backend failure", func(t *testing.T) {
		failing := newOrchestrator(t, completer, WithSearchBackend(&stubSearch{err: errors.New("connection reset")}))
		_, err := failing.Search(context.Background(), SearchRequest{Query: "golang"})
		assert.True(t, core.IsKind(err, core.KindNetworkError))
	})

	t.Run("no backend", func(t *testing.T) {
		bare := newOrchestrator(t, completer)
		_, err := bare.Search(context.Background(), SearchRequest{Query: "golang"})
		assert.ErrorIs(t, err, ErrSearchBackendRequired)
	})

	t.Run("blank query", func(t *testing.T) {
		_, err := o.Search(context.Background(), SearchRequest{Query: " "})
		assert.True(t, core.IsKind(err, core.KindInvalidRequest))
	})
}

func TestRunVideoSummary(t *testing.T) {
	var fetches atomic.Int32
	completer := mock.NewMockCompleter("```json\n{\"summary\": \"A lecture on Go.\", \"notes\": [\"goroutines\", \"channels\"]}\n```")
	o := newOrchestrator(t, completer, WithTranscriptFetcher(countingFetcher(&fetches, "today we talk about goroutines", nil)))

	result, err := o.RunVideoSummary(context.Background(), VideoSummaryRequest{VideoURL: "https://youtu.be/dQw4w9WgXcQ"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), fetches.Load())
	assert.Equal(t, "A lecture on Go.", result.AnswerText)
	assert.Equal(t, core.VideoSummary{Summary: "A lecture on Go.", Notes: []string{"goroutines", "channels"}}, result.VideoSummary())
	assert.Equal(t, []string{"https://youtu.be/dQw4w9WgXcQ"}, result.Sources)

	req := completer.LastRequest()
	assert.True(t, req.JSONMode)
	assert.Equal(t, synthesis.VideoSummaryPrompt, req.SystemPrompt)
	assert.Contains(t, req.UserMessage, "Transcript: https://youtu.be/dQw4w9WgXcQ\nContent: today we talk about goroutines")
	assert.True(t, strings.HasSuffix(req.UserMessage, "Task: "+synthesis.VideoSummaryTask))
}

func TestRunVideoSummary_DisabledThenManual(t *testing.T) {
	var fetches atomic.Int32
	completer := mock.NewMockCompleter(`{"summary": "Notes summary", "notes": ["one"]}`)
	o := newOrchestrator(t, completer,
		WithTranscriptFetcher(countingFetcher(&fetches, "", fmt.Errorf("wrapped: %w", transcript.ErrTranscriptDisabled))))

	_, err := o.RunVideoSummary(context.Background(), VideoSummaryRequest{VideoURL: "https://youtu.be/abc"})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindTranscriptDisabled))
	assert.Equal(t, int32(1), fetches.Load())
	assert.Equal(t, 0, completer.CallCount())

	result, err := o.RunVideoSummary(context.Background(), VideoSummaryRequest{
		VideoURL:         "https://youtu.be/abc",
		ManualTranscript: "lecture notes...",
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetches.Load(), "manual transcript must not trigger a fetch")
	assert.Equal(t, "Notes summary", result.AnswerText)
	assert.Equal(t, []string{"manual transcript"}, result.Sources)
	assert.Contains(t, completer.LastRequest().UserMessage, "Content: lecture notes...")
}

func TestRunVideoSummary_MalformedJSON(t *testing.T) {
	completer := mock.NewMockCompleter("Sure! Here is your summary: it was about Go")
	o := newOrchestrator(t, completer)

	result, err := o.RunVideoSummary(context.Background(), VideoSummaryRequest{ManualTranscript: "lecture notes..."})
	require.NoError(t, err)

	summary := result.VideoSummary()
	assert.Equal(t, "", summary.Summary)
	assert.Empty(t, summary.Notes)
	assert.Equal(t, "", result.StructuredPayload["summary"])
	assert.Equal(t, []any{}, result.StructuredPayload["notes"])
}

func TestRunVideoSummary_Failures(t *testing.T) {
	tests := []struct {
		name    string
		fetcher transcript.Fetcher
		req     VideoSummaryRequest
		kind    core.Kind
	}{
		{
			name: "nothing supplied",
			req:  VideoSummaryRequest{VideoURL: " ", ManualTranscript: " "},
			kind: core.KindInvalidRequest,
		},
		{
			name:    "empty transcript",
			fetcher: transcript.FetcherFunc(func(context.Context, string) (string, error) { return "  ", nil }),
			req:     VideoSummaryRequest{VideoURL: "https://youtu.be/abc"},
			kind:    core.KindTranscriptEmpty,
		},
		{
			name:    "network failure",
			fetcher: transcript.FetcherFunc(func(context.Context, string) (string, error) { return "", errors.New("dial tcp: timeout") }),
			req:     VideoSummaryRequest{VideoURL: "https://youtu.be/abc"},
			kind:    core.KindNetworkError,
		},
		{
			name: "no transcript backend",
			req:  VideoSummaryRequest{VideoURL: "https://youtu.be/abc"},
			kind: core.KindNetworkError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := mock.NewMockCompleter("unused")
			o := newOrchestrator(t, completer, WithTranscriptFetcher(tt.fetcher))

			_, err := o.RunVideoSummary(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, core.KindOf(err))
			assert.Equal(t, 0, completer.CallCount())
		})
	}
}

func TestRuns_Concurrent(t *testing.T) {
	completer := mock.NewMockCompleter("ok")
	o := newOrchestrator(t, completer)

	errs := make(chan error, 16)
	for i := range 16 {
		go func() {
			_, err := o.RunDocumentQA(context.Background(), DocumentQARequest{
				File:     textFile(fmt.Sprintf("f%d.txt", i), "content"),
				Question: "q",
			})
			errs <- err
		}()
	}
	for range 16 {
		assert.NoError(t, <-errs)
	}
	assert.Equal(t, 16, completer.CallCount())
}
