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
	"fmt"
	"strings"
)

// NewChunk builds a validated Chunk.
//
// Validation rules:
//   - Text must contain something other than whitespace
//
// NOT validated (used verbatim):
//   - URL
//   - Source
func NewChunk(text, url, source string) (Chunk, error) {
	c := Chunk{Text: text, URL: url, Source: source}
	if err := ValidateChunk(c); err != nil {
		return Chunk{}, err
	}
	return c, nil
}

// ValidateChunk validates a Chunk according to domain rules.
func ValidateChunk(c Chunk) error {
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyText)
	}
	return nil
}

// ValidateChunks validates every chunk in order and reports the first
// offending position.
func ValidateChunks(chunks []Chunk) error {
	for i, c := range chunks {
		if err := ValidateChunk(c); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
	}
	return nil
}

// MergeQuery appends OCR text to a question the way the answer pipeline
// expects: both parts trimmed, joined by a single space when OCR text is
// present, and the result trimmed.
func MergeQuery(question string, ocrText string, hasOCR bool) string {
	query := strings.TrimSpace(question)
	if hasOCR {
		query += " " + strings.TrimSpace(ocrText)
	}
	return strings.TrimSpace(query)
}
