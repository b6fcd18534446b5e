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


// Package openai provides the completion backend using OpenAI-compatible APIs.
//
// This package implements ai.AIProvider and ai.Completer using the langchaingo
// library to talk to Groq, OpenAI, or any OpenAI-compatible server (Ollama,
// LocalAI, vLLM).
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithAPIKey(os.Getenv("GROQ_API_KEY")),
//	)
//
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	reply, err := provider.Completer().Complete(ctx, ai.CompletionRequest{
//	    SystemPrompt: "You are a helpful AI assistant.",
//	    UserMessage:  "Context:\n...\n\nQuestion: ...",
//	})
package openai
