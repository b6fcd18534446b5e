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


// Package ai provides abstractions for the language-completion backend used by gist.
//
// The synthesis step depends on the Completer interface rather than a
// concrete client, so tests and alternative backends can be swapped in.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs (Groq by default)
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewCompleter) return
// INTERFACE types. Test constructors (mock.NewMockCompleter) return CONCRETE
// types so tests can inject behavior and inspect recorded requests.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithAPIKey(os.Getenv("GROQ_API_KEY")))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	reply, err := provider.Completer().Complete(ctx, ai.CompletionRequest{
//	    SystemPrompt: "You are a research assistant.",
//	    UserMessage:  "Query: ...",
//	})
//
// Model replies that should be JSON go through CleanJSON before decoding.
package ai
