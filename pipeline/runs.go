package pipeline

import (
	"context"
	"errors"

	"github.com/poiesic/gist/assembly"
	"github.com/poiesic/gist/budget"
	"github.com/poiesic/gist/core"
	"github.com/poiesic/gist/storage"
	"github.com/poiesic/gist/synthesis"
	"github.com/poiesic/gist/transcript"
)

// Fragment label prefixes, one per entry point.
const (
	DocumentLabel   = "Document"
	FileLabel       = "File"
	SourceLabel     = "Source"
	TranscriptLabel = "Transcript"
)

// Link defaults for search results without a title or URL.
const (
	DefaultLinkTitle = "External Source"
	DefaultLinkURL   = "#"
)

// RunDocumentQA extracts text from an uploaded file and answers a question
// about it.
func (o *Orchestrator) RunDocumentQA(ctx context.Context, req DocumentQARequest) (*core.SynthesisResult, error) {
	r := o.begin(ctx, "document_qa", req.Caller)
	return r.finish(o.documentQA(r, req))
}

func (o *Orchestrator) documentQA(r *run, req DocumentQARequest) (*core.SynthesisResult, error) {
	if err := core.ValidateRequest(req); err != nil {
		return nil, err
	}

	extracted, err := o.extractor.Extract(r.ctx, req.File)
	if err != nil {
		return nil, err
	}

	cut := budget.Truncate(extracted.Text, o.budgets.DocumentQA)
	aggregate := budget.Single(o.budgets.DocumentQA) + core.CharCount(extracted.SourceLabel)
	block := assembly.Assemble([]core.Fragment{{
		LabelPrefix: DocumentLabel,
		Label:       extracted.SourceLabel,
		Text:        cut.Text,
	}}, aggregate)
	if block.Empty {
		return emptyResult(block, aggregate, NoContentMessage)
	}

	return o.synthesize(r, block, core.SynthesisRequest{
		SystemPrompt: synthesis.DocumentQAPrompt,
		UserQuery:    req.Question,
	})
}

// RunWorkspaceQA answers a query over stored documents. Documents without
// text are skipped; the rest are cut to the per-document budget and joined in
// the order given until the aggregate budget is reached.
func (o *Orchestrator) RunWorkspaceQA(ctx context.Context, req WorkspaceQARequest) (*core.SynthesisResult, error) {
	r := o.begin(ctx, "workspace_qa", req.Caller)
	return r.finish(o.workspaceQA(r, req))
}

// AskWorkspace reads every document of a workspace from the document store
// and answers query over them.
func (o *Orchestrator) AskWorkspace(ctx context.Context, req AskWorkspaceRequest) (*core.SynthesisResult, error) {
	r := o.begin(ctx, "workspace_qa", req.Caller)
	r.logger = r.logger.With("workspace", req.WorkspaceID)

	if err := core.ValidateRequest(req); err != nil {
		return r.finish(nil, err)
	}
	if o.documents == nil {
		return r.finish(nil, ErrDocumentStoreRequired)
	}

	docs, err := o.documents.ListDocuments(r.ctx, req.WorkspaceID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return r.finish(nil, core.NewNotFound("workspace"))
		}
		return r.finish(nil, err)
	}

	list := make([]core.Document, 0, len(docs))
	for _, doc := range docs {
		if doc != nil {
			list = append(list, *doc)
		}
	}
	return r.finish(o.workspaceQA(r, WorkspaceQARequest{
		Caller:    req.Caller,
		Documents: list,
		Query:     req.Query,
	}))
}

func (o *Orchestrator) workspaceQA(r *run, req WorkspaceQARequest) (*core.SynthesisResult, error) {
	if err := core.ValidateRequest(req); err != nil {
		return nil, err
	}

	fragments := make([]core.Fragment, 0, len(req.Documents))
	for _, doc := range req.Documents {
		if core.IsBlank(doc.Content) {
			continue
		}
		fragments = append(fragments, core.Fragment{
			LabelPrefix: FileLabel,
			Label:       doc.Name,
			Text:        budget.Truncate(doc.Content, o.budgets.WorkspaceDocument).Text,
		})
	}

	block := assembly.Assemble(fragments, o.budgets.WorkspaceAggregate)
	if block.Empty {
		return emptyResult(block, o.budgets.WorkspaceAggregate, NoWorkspaceContentMessage)
	}

	return o.synthesize(r, block, core.SynthesisRequest{
		SystemPrompt: synthesis.WorkspaceQAPrompt,
		UserQuery:    req.Query,
	})
}

// RunDeepSearch synthesizes an answer from search results. Each snippet is
// converted to text and cut to the snippet budget; results whose snippet
// yields no text are left out of both the context and the returned links.
func (o *Orchestrator) RunDeepSearch(ctx context.Context, req DeepSearchRequest) (*core.SynthesisResult, error) {
	r := o.begin(ctx, "deep_search", req.Caller)
	return r.finish(o.deepSearch(r, req))
}

// Search queries the search backend and synthesizes an answer from its hits.
func (o *Orchestrator) Search(ctx context.Context, req SearchRequest) (*core.SynthesisResult, error) {
	r := o.begin(ctx, "deep_search", req.Caller)

	if err := core.ValidateRequest(req); err != nil {
		return r.finish(nil, err)
	}
	if o.searcher == nil {
		return r.finish(nil, ErrSearchBackendRequired)
	}

	hits, err := o.searcher.Search(r.ctx, req.Query, o.searchLimit)
	if err != nil {
		return r.finish(nil, err)
	}
	r.logger.Debug("search returned", "hits", len(hits))

	return r.finish(o.deepSearch(r, DeepSearchRequest{
		Caller:  req.Caller,
		Query:   req.Query,
		Results: hits,
	}))
}

func (o *Orchestrator) deepSearch(r *run, req DeepSearchRequest) (*core.SynthesisResult, error) {
	if err := core.ValidateRequest(req); err != nil {
		return nil, err
	}

	fragments := make([]core.Fragment, 0, len(req.Results))
	for _, hit := range req.Results {
		text, err := o.snippetText(r, hit)
		if err != nil {
			return nil, err
		}
		if text == "" {
			continue
		}
		title := hit.Title
		if core.IsBlank(title) {
			title = DefaultLinkTitle
		}
		fragments = append(fragments, core.Fragment{
			LabelPrefix: SourceLabel,
			Label:       title,
			URL:         hit.URL,
			Text:        budget.Truncate(text, o.budgets.SearchSnippet).Text,
		})
	}

	block := assembly.Assemble(fragments, o.budgets.SearchAggregate)
	if block.Empty {
		return emptyResult(block, o.budgets.SearchAggregate, NoSearchResultsMessage)
	}

	result, err := o.synthesize(r, block, core.SynthesisRequest{
		SystemPrompt: synthesis.ResearchPrompt,
		QueryLabel:   "Query",
		UserQuery:    req.Query,
	})
	if err != nil {
		return nil, err
	}
	result.Links = links(block)
	return result, nil
}

// snippetText converts one hit's snippet to plain text. An empty string means
// the hit has nothing usable and should be skipped.
func (o *Orchestrator) snippetText(r *run, hit core.SearchHit) (string, error) {
	if core.IsBlank(hit.Snippet) {
		return "", nil
	}
	extracted, err := o.extractor.Extract(r.ctx, core.RawInput{
		Data:     []byte(hit.Snippet),
		Filename: hit.Title,
		Format:   core.FormatSearchSnippet,
	})
	switch {
	case err == nil:
		return extracted.Text, nil
	case r.ctx.Err() != nil:
		return "", r.ctx.Err()
	default:
		r.logger.Debug("skipping search result", "url", hit.URL, "kind", core.KindOf(err), "err", err)
		return "", nil
	}
}

func links(block *core.ContextBlock) []core.Link {
	out := make([]core.Link, 0, len(block.Fragments))
	for _, f := range block.Fragments {
		link := core.Link{Title: f.Label, URL: f.URL}
		if core.IsBlank(link.URL) {
			link.URL = DefaultLinkURL
		}
		out = append(out, link)
	}
	return out
}

// RunVideoSummary resolves a transcript and summarizes it into a JSON
// payload with "summary" and "notes" keys. Manually supplied transcript text
// is used as-is without contacting the transcript backend. A disabled or
// empty transcript is returned as its classified error so the caller can
// offer manual entry.
func (o *Orchestrator) RunVideoSummary(ctx context.Context, req VideoSummaryRequest) (*core.SynthesisResult, error) {
	r := o.begin(ctx, "video_summary", req.Caller)
	return r.finish(o.videoSummary(r, req))
}

func (o *Orchestrator) videoSummary(r *run, req VideoSummaryRequest) (*core.SynthesisResult, error) {
	req.normalize()
	if err := core.ValidateRequest(req); err != nil {
		return nil, err
	}

	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = transcript.FetcherFunc(func(context.Context, string) (string, error) {
			return "", ErrTranscriptBackendRequired
		})
	}
	resolver, err := transcript.NewResolver(fetcher, transcript.WithLogger(r.logger))
	if err != nil {
		return nil, err
	}

	outcome := resolver.Resolve(r.ctx, req.VideoURL, req.ManualTranscript)
	if err := outcome.Err(req.VideoURL); err != nil {
		return nil, err
	}

	label := req.VideoURL
	if outcome.Manual || label == "" {
		label = "manual transcript"
	}
	cut := budget.Truncate(outcome.Text, o.budgets.Transcript)
	aggregate := budget.Single(o.budgets.Transcript) + core.CharCount(label)
	block := assembly.Assemble([]core.Fragment{{
		LabelPrefix: TranscriptLabel,
		Label:       label,
		Text:        cut.Text,
	}}, aggregate)
	if block.Empty {
		return emptyResult(block, aggregate, NoContentMessage)
	}

	return o.synthesize(r, block, core.SynthesisRequest{
		SystemPrompt:   synthesis.VideoSummaryPrompt,
		QueryLabel:     "Task",
		UserQuery:      synthesis.VideoSummaryTask,
		ResponseFormat: core.ResponseJSON,
		Schema:         synthesis.VideoSummarySchema,
	})
}
