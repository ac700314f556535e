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

// Domain validation errors
var (
	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyText indicates the Text field of a chunk is empty.
	ErrEmptyText = errors.New("chunk text cannot be empty")

	// ErrEmptyQuery indicates a question was empty after merging OCR text.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrConfiguration is matched by every ConfigurationError.
	ErrConfiguration = errors.New("configuration error")

	// ErrIndexOutOfRange is matched by every IndexOutOfRangeError.
	ErrIndexOutOfRange = errors.New("index position out of range")
)

// ConfigurationError reports a fatal start-up problem: a missing or corrupt
// artifact, a chunk store that does not line up with its index, or an
// embedding model that could not be loaded.
type ConfigurationError struct {
	Op  string
	Err error
}

// NewConfigurationError wraps err as a ConfigurationError for the named operation.
func NewConfigurationError(op string, err error) *ConfigurationError {
	return &ConfigurationError{Op: op, Err: err}
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return "configuration error: " + e.Op
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrConfiguration) hold for any ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// IndexOutOfRangeError is returned when a vector index yields a position that
// does not exist in its chunk store. It signals corrupted state and must not
// be retried.
type IndexOutOfRangeError struct {
	Corpus   string
	Position int
	Size     int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index position out of range: corpus %q position %d, store size %d",
		e.Corpus, e.Position, e.Size)
}

// Is makes errors.Is(err, ErrIndexOutOfRange) hold for any IndexOutOfRangeError.
func (e *IndexOutOfRangeError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}
