// Package mock provides test double implementations of AI service interfaces.
//
// The mocks let tests run without a completion backend and make behavior
// deterministic.
//
// # Usage in Tests
//
//	// Fixed reply
//	completer := mock.NewMockCompleter("The answer is 42.")
//
//	// Custom behavior injection
//	completer.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
//	    return nil, errors.New("upstream unavailable")
//	}
//
//	// Assertions
//	count := completer.CallCount()
//	last := completer.LastRequest()
package mock
