// Package synthesis turns an assembled context block and a user query into a
// single completion call.
//
// Each call is self-contained: the full context is re-sent every time and
// nothing is remembered between calls. Structured (JSON) replies are cleaned
// and decoded leniently; fields the model failed to produce read as empty
// values rather than errors.
//
//	inv, err := synthesis.New(provider.Completer())
//	result, err := inv.Synthesize(ctx, core.SynthesisRequest{
//	    SystemPrompt: synthesis.DocumentQAPrompt,
//	    Context:      block,
//	    UserQuery:    "What is the main finding?",
//	})
package synthesis
