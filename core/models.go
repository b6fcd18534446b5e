package core

import (
	"encoding/binary"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored documents.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Format is the declared format of a raw input.
type Format string

const (
	FormatPDF              Format = "pdf"
	FormatText             Format = "text"
	FormatMarkdown         Format = "markdown"
	FormatHTML             Format = "html"
	FormatRemoteTranscript Format = "remote-transcript"
	FormatSearchSnippet    Format = "search-snippet"
)

// RawInput is an uploaded or fetched byte sequence awaiting extraction.
// It lives only for the duration of one request.
type RawInput struct {
	Data     []byte
	Filename string
	MIMEType string
	Format   Format
}

// Label returns the name used to identify this input in assembled context.
func (r *RawInput) Label() string {
	if r.Filename != "" {
		return r.Filename
	}
	return string(r.Format)
}

// ExtractedText is the plain text recovered from a RawInput.
type ExtractedText struct {
	SourceLabel string
	Text        string
	Truncated   bool
	Pages       int // populated for paged formats only
}

// Fragment is one labeled piece of text offered to the assembler.
type Fragment struct {
	LabelPrefix string // "Document", "File", "Source", "Transcript"
	Label       string
	URL         string // optional, rendered as its own line when set
	Text        string
}

// ContextBlock is the single assembled payload sent alongside a query.
type ContextBlock struct {
	Fragments          []Fragment // fragments actually included, in order
	Text               string
	Chars              int // rune count of Text; zero for the sentinel block
	AggregateTruncated bool
	Empty              bool
}

// Sources returns the labels of the fragments included in the block.
func (b *ContextBlock) Sources() []string {
	if b == nil {
		return []string{}
	}
	sources := make([]string, 0, len(b.Fragments))
	for _, f := range b.Fragments {
		sources = append(sources, f.Label)
	}
	return sources
}

// ResponseFormat selects free text or structured output from the completion backend.
type ResponseFormat string

const (
	ResponseText ResponseFormat = "text"
	ResponseJSON ResponseFormat = "json"
)

// FieldKind is the JSON type a structured reply field must have.
type FieldKind string

const (
	FieldString     FieldKind = "string"
	FieldStringList FieldKind = "string_list"
)

// SchemaField names a required top-level key of a structured reply.
type SchemaField struct {
	Name string
	Kind FieldKind
}

// SynthesisRequest is a single stateless call to the completion backend.
// Sampling temperature comes from the completer's configuration.
type SynthesisRequest struct {
	SystemPrompt   string         `validate:"required"`
	Context        *ContextBlock  `validate:"required"`
	QueryLabel     string         // defaults to "Question"
	UserQuery      string         `validate:"required"`
	ResponseFormat ResponseFormat `validate:"omitempty,oneof=text json"`
	Schema         []SchemaField  // required top-level fields when ResponseFormat is json
}

// SynthesisResult is what every pipeline entry point returns on success.
type SynthesisResult struct {
	AnswerText        string         `json:"answer"`
	StructuredPayload map[string]any `json:"payload,omitempty"`
	Sources           []string       `json:"sources"`
	Links             []Link         `json:"links,omitempty"`
	Informational     bool           `json:"informational,omitempty"` // no synthesis was performed
}

// VideoSummary reads the summary payload of a video summary result.
// Missing or mistyped fields read as empty values.
func (r *SynthesisResult) VideoSummary() VideoSummary {
	vs := VideoSummary{Notes: []string{}}
	if r == nil || r.StructuredPayload == nil {
		return vs
	}
	if s, ok := r.StructuredPayload["summary"].(string); ok {
		vs.Summary = s
	}
	switch notes := r.StructuredPayload["notes"].(type) {
	case []string:
		vs.Notes = append(vs.Notes, notes...)
	case []any:
		for _, n := range notes {
			if s, ok := n.(string); ok {
				vs.Notes = append(vs.Notes, s)
			}
		}
	}
	return vs
}

// VideoSummary is the structured output of a video summarization run.
type VideoSummary struct {
	Summary string   `json:"summary"`
	Notes   []string `json:"notes"`
}

// Link is a titled reference returned alongside a deep search answer.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SearchHit is one result from a web search backend.
type SearchHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// TranscriptState is a state of the transcript resolver.
type TranscriptState int

const (
	TranscriptIdle TranscriptState = iota
	TranscriptFetching
	TranscriptResolved
	TranscriptDisabled
	TranscriptEmpty
	TranscriptFailed
)

func (s TranscriptState) String() string {
	switch s {
	case TranscriptIdle:
		return "idle"
	case TranscriptFetching:
		return "fetching"
	case TranscriptResolved:
		return "resolved"
	case TranscriptDisabled:
		return "disabled"
	case TranscriptEmpty:
		return "empty"
	case TranscriptFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen from s.
func (s TranscriptState) Terminal() bool {
	return s >= TranscriptResolved
}

// TranscriptOutcome is the result of resolving a video transcript.
type TranscriptOutcome struct {
	State  TranscriptState
	Text   string // set when State is TranscriptResolved
	Detail string // failure detail when State is TranscriptFailed
	Manual bool   // text was supplied by the caller, no fetch happened
}

// Err converts a non-resolved outcome into its classified error.
func (o TranscriptOutcome) Err(videoRef string) error {
	switch o.State {
	case TranscriptResolved:
		return nil
	case TranscriptDisabled:
		return NewTranscriptDisabled(videoRef)
	case TranscriptEmpty:
		return NewTranscriptEmpty(videoRef)
	case TranscriptFailed:
		return NewNetworkError("failed to fetch transcript: "+o.Detail, nil)
	default:
		return NewInternal(nil)
	}
}

// Workspace groups documents owned by one caller.
type Workspace struct {
	ID         string // ULID
	Name       string
	Owner      string
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// Document is stored extracted text belonging to a workspace.
type Document struct {
	Id          ID
	WorkspaceID string
	Name        string
	Content     string
	ContentHash ID // IDFromContent(Content), used to reject duplicate uploads
	Truncated   bool
	InsertedAt  time.Time
}

// IsBlank reports whether s has no visible characters.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// CharCount counts characters the way every budget in this module does.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}
