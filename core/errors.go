// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. Callers branch on the kind, never on
// the message text.
type Kind string

const (
	KindUnsupportedFormat  Kind = "UNSUPPORTED_FORMAT"
	KindMalformedFormat    Kind = "MALFORMED_FORMAT"
	KindNoExtractableText  Kind = "NO_EXTRACTABLE_TEXT"
	KindExtractorFault     Kind = "EXTRACTOR_FAULT"
	KindTranscriptDisabled Kind = "TRANSCRIPT_DISABLED"
	KindTranscriptEmpty    Kind = "TRANSCRIPT_EMPTY"
	KindNetworkError       Kind = "NETWORK_ERROR"
	KindSynthesisError     Kind = "SYNTHESIS_ERROR"
	KindInvalidRequest     Kind = "INVALID_REQUEST"
	KindNotFound           Kind = "NOT_FOUND"
	KindInternal           Kind = "INTERNAL"
)

// Error is a classified failure returned by every pipeline stage.
type Error struct {
	Kind    Kind
	Message string         // human readable, safe to show to the caller
	Details map[string]any // optional structured context
	Err     error          // underlying cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. This lets callers
// write errors.Is(err, &core.Error{Kind: core.KindMalformedFormat}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or the empty
// kind if there is none.
func KindOf(err error) Kind {
	var cErr *Error
	if errors.As(err, &cErr) {
		return cErr.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// NewUnsupportedFormat rejects a declared format the extractor cannot handle.
func NewUnsupportedFormat(format Format) *Error {
	return &Error{
		Kind:    KindUnsupportedFormat,
		Message: fmt.Sprintf("unsupported format %q: only PDF, text, markdown and HTML inputs are supported", format),
		Details: map[string]any{"format": string(format)},
	}
}

// NewMalformedFormat reports bytes that do not match their declared format.
func NewMalformedFormat(msg string) *Error {
	return &Error{
		Kind:    KindMalformedFormat,
		Message: msg,
	}
}

// NewNoExtractableText reports a well-formed input that produced no usable text.
func NewNoExtractableText(msg string) *Error {
	return &Error{
		Kind:    KindNoExtractableText,
		Message: msg,
	}
}

// NewExtractorFault wraps an unexpected parser failure.
func NewExtractorFault(err error) *Error {
	return &Error{
		Kind:    KindExtractorFault,
		Message: "text extraction failed; try converting the file to plain text",
		Err:     err,
	}
}

// NewTranscriptDisabled reports that the remote source has captions turned off.
func NewTranscriptDisabled(videoRef string) *Error {
	return &Error{
		Kind:    KindTranscriptDisabled,
		Message: "transcripts are disabled for this video; paste the transcript manually instead",
		Details: map[string]any{"video": videoRef},
	}
}

// NewTranscriptEmpty reports a successful fetch that returned no caption text.
func NewTranscriptEmpty(videoRef string) *Error {
	return &Error{
		Kind:    KindTranscriptEmpty,
		Message: "the transcript for this video is empty",
		Details: map[string]any{"video": videoRef},
	}
}

// NewNetworkError wraps a transport failure talking to a remote collaborator.
func NewNetworkError(detail string, err error) *Error {
	return &Error{
		Kind:    KindNetworkError,
		Message: detail,
		Err:     err,
	}
}

// NewSynthesisError wraps any failure of the completion backend.
func NewSynthesisError(detail string, err error) *Error {
	return &Error{
		Kind:    KindSynthesisError,
		Message: detail,
		Err:     err,
	}
}

// NewInvalidRequest rejects a request with missing or invalid inputs.
func NewInvalidRequest(msg string) *Error {
	return &Error{
		Kind:    KindInvalidRequest,
		Message: msg,
	}
}

// NewNotFound reports a missing workspace or document.
func NewNotFound(what string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", what),
	}
}

// NewInternal hides an unexpected fault behind a generic message.
func NewInternal(err error) *Error {
	return &Error{
		Kind:    KindInternal,
		Message: "internal error",
		Err:     err,
	}
}

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidWorkspace indicates a Workspace failed validation.
	ErrInvalidWorkspace = errors.New("invalid workspace")

	// ErrEmptyName indicates a required name field is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrMissingWorkspace indicates a document is not attached to a workspace.
	ErrMissingWorkspace = errors.New("workspace id cannot be empty")
)
