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


package retrieval

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrCorpusRequired is returned when a corpus is not provided.
	ErrCorpusRequired = errors.New("corpus required")

	// ErrCorpusNameRequired is returned when a corpus has no name.
	ErrCorpusNameRequired = errors.New("corpus name required")

	// ErrSearcherRequired is returned when a corpus has no vector index.
	ErrSearcherRequired = errors.New("vector index required")

	// ErrSizeMismatch is returned when a vector index and its chunk store
	// hold a different number of entries.
	ErrSizeMismatch = errors.New("index size does not match chunk store size")
)
