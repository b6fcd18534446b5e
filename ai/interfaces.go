package ai

import "context"

// Completer sends one self-contained prompt to a language model and returns
// its reply. There is no conversation memory: every call carries the full
// context. Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete runs a single completion.
	// Returns an error for transport failures, upstream error statuses and
	// responses without any choices.
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// CompletionRequest is a system prompt plus one user message.
type CompletionRequest struct {
	SystemPrompt string
	UserMessage  string

	// JSONMode asks the backend to emit a single JSON object.
	JSONMode bool

	// Temperature overrides the configured default when non-nil.
	Temperature *float64

	// MaxTokens overrides the configured default when positive.
	MaxTokens int
}

// Completion is the backend's reply.
type Completion struct {
	Text       string
	StopReason string
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Completer returns the completion service.
	// The returned Completer is safe for concurrent use.
	Completer() Completer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}

// Float returns a pointer to f, for CompletionRequest.Temperature.
func Float(f float64) *float64 {
	return &f
}
