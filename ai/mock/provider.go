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


package mock

import "github.com/poiesic/answerit/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates mock embedder and text reader instances.
type MockProvider struct {
	embedder *MockEmbedder
	reader   *MockTextReader
}

// NewMockProvider creates a new mock provider with a default mock embedder
// and no text reader.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use GetMockEmbedder() to access the concrete type for test assertions.
func NewMockProvider() ai.AIProvider {
	return &MockProvider{
		embedder: NewMockEmbedder(),
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
// A nil reader means OCR is disabled.
func NewMockProviderWithServices(embedder *MockEmbedder, reader *MockTextReader) ai.AIProvider {
	return &MockProvider{
		embedder: embedder,
		reader:   reader,
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// TextReader returns the mock text reader, or nil when none was configured.
func (p *MockProvider) TextReader() ai.TextReader {
	if p.reader == nil {
		return nil
	}
	return p.reader
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockTextReader returns the underlying mock text reader for test assertions.
func (p *MockProvider) GetMockTextReader() *MockTextReader {
	return p.reader
}
