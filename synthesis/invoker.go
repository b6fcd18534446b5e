package synthesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/gist/ai"
	"github.com/poiesic/gist/core"
)

// DefaultQueryLabel introduces the user query when a request names none.
const DefaultQueryLabel = "Question"

// ErrCompleterRequired is returned by New when no completer is given.
var ErrCompleterRequired = errors.New("completer is required")

// Option configures an Invoker.
type Option func(*Invoker) error

// WithLogger sets the logger. Nil loggers are rejected.
func WithLogger(logger *slog.Logger) Option {
	return func(inv *Invoker) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		inv.logger = logger
		return nil
	}
}

// Invoker sends assembled context plus a query to the completion backend in
// a single stateless call. It keeps no state between calls and is safe for
// concurrent use.
type Invoker struct {
	completer ai.Completer
	logger    *slog.Logger
}

// New creates an Invoker around completer.
func New(completer ai.Completer, opts ...Option) (*Invoker, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}
	inv := &Invoker{
		completer: completer,
		logger:    slog.Default().With("component", "synthesis"),
	}
	for _, opt := range opts {
		if err := opt(inv); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

// Synthesize runs one completion for req.
//
// Every backend failure (transport error, error status, timeout, reply with
// no choices) is reported as a single KindSynthesisError. Nothing is retried.
// In JSON mode a reply that does not decode to an object, or whose fields
// have the wrong types, yields a payload holding the schema's default values
// for the affected fields instead of an error. The answer text is then the
// payload's summary string, or empty when there is none.
func (inv *Invoker) Synthesize(ctx context.Context, req core.SynthesisRequest) (*core.SynthesisResult, error) {
	if err := core.ValidateRequest(req); err != nil {
		return nil, err
	}

	jsonMode := req.ResponseFormat == core.ResponseJSON
	creq := ai.CompletionRequest{
		SystemPrompt: req.SystemPrompt,
		UserMessage:  UserMessage(req),
		JSONMode:     jsonMode,
	}

	inv.logger.Debug("invoking completion",
		"context_chars", req.Context.Chars,
		"fragments", len(req.Context.Fragments),
		"json", jsonMode)

	reply, err := inv.completer.Complete(ctx, creq)
	if err != nil {
		return nil, classify(ctx, err)
	}
	if reply == nil {
		return nil, core.NewSynthesisError("completion backend returned no reply", nil)
	}

	result := &core.SynthesisResult{
		Sources: req.Context.Sources(),
	}
	if !jsonMode {
		result.AnswerText = strings.TrimSpace(reply.Text)
		return result, nil
	}

	payload, perr := DecodePayload(reply.Text, req.Schema)
	if perr != nil {
		inv.logger.Warn("structured reply did not match schema, using defaults", "err", perr)
	}
	result.StructuredPayload = payload
	if summary, ok := payload["summary"].(string); ok {
		result.AnswerText = strings.TrimSpace(summary)
	}
	return result, nil
}

// UserMessage renders the single user turn for req.
func UserMessage(req core.SynthesisRequest) string {
	label := req.QueryLabel
	if label == "" {
		label = DefaultQueryLabel
	}
	var block string
	if req.Context != nil {
		block = req.Context.Text
	}
	return fmt.Sprintf("Context:\n%s\n\n%s: %s", block, label, req.UserQuery)
}

// DecodePayload parses a JSON reply into an object and coerces every schema
// field to its declared kind. Absent, null or mistyped fields get the kind's
// default: "" for strings and an empty list for string lists. Non-string
// items inside a list are dropped. Keys outside the schema are kept as sent.
// The returned error describes every field that was replaced; the payload is
// always usable.
func DecodePayload(text string, schema []core.SchemaField) (map[string]any, error) {
	payload := map[string]any{}
	var errs []error

	cleaned := ai.CleanJSON(text)
	if cleaned == "" {
		errs = append(errs, errors.New("reply contained no JSON object"))
	} else if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		payload = map[string]any{}
		errs = append(errs, fmt.Errorf("failed to decode structured reply: %w", err))
	}
	if payload == nil {
		payload = map[string]any{}
	}

	for _, field := range schema {
		value, err := coerce(field, payload[field.Name])
		if err != nil {
			errs = append(errs, err)
		}
		payload[field.Name] = value
	}
	return payload, errors.Join(errs...)
}

func coerce(field core.SchemaField, v any) (any, error) {
	switch field.Kind {
	case core.FieldStringList:
		if v == nil {
			return []any{}, nil
		}
		items, ok := v.([]any)
		if !ok {
			return []any{}, fmt.Errorf("field %q: want list of strings, got %T", field.Name, v)
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) != len(items) {
			return out, fmt.Errorf("field %q: dropped %d non-string items", field.Name, len(items)-len(out))
		}
		return out, nil
	default:
		if v == nil {
			return "", nil
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("field %q: want string, got %T", field.Name, v)
		}
		return s, nil
	}
}

// classify maps a completer failure onto the synthesis error kind.
func classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return core.NewSynthesisError("completion request timed out", err)
	case errors.Is(err, context.Canceled):
		return core.NewSynthesisError("completion request was cancelled", err)
	default:
		return core.NewSynthesisError("completion backend failed", err)
	}
}
