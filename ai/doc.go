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


// Package ai provides abstractions for the AI services used by answerit.
//
// This package defines interfaces for text embeddings and image-to-text
// recognition. The retrieval pipeline depends on these abstractions rather
// than on a concrete model runtime, so tests can run against deterministic
// doubles and deployments can swap model hosts freely.
//
// # Design Principles
//
// The package is designed around three interfaces:
//
//   - Embedder: Generates fixed-dimension vector embeddings from text
//   - TextReader: Extracts plain text from an image (OCR)
//   - AIProvider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, etc.) return
// INTERFACE types. Test utility constructors (mock.NewMockEmbedder,
// mock.NewMockReader) return CONCRETE types so tests can inject behavior
// and inspect call counts.
//
// # Input Preparation
//
// Embedders reject empty text with ErrEmptyText and silently truncate text
// that exceeds the model's input window. Truncation is delegated to a
// Truncator: TokenTruncator counts cl100k_base tokens, RuneTruncator counts
// characters and needs no encoding tables.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithEmbeddingModel("all-minilm"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "How do I submit project 1?")
package ai
