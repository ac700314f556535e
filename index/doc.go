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


// Package index provides exact nearest-neighbour search over a corpus of
// embedding vectors.
//
// Row i of an index is the embedding of chunk i of the matching chunk store,
// so a Hit's Position is directly a chunk position. Indices are built once,
// offline, persisted with WriteFile and loaded read-only with ReadFile. A
// loaded index is immutable and safe for concurrent searches.
//
// # Metrics
//
// The distance metric is fixed when the index is built and stored in the
// file header:
//
//   - MetricCosine: 1 - cosine similarity. Rows are normalized at build time.
//   - MetricL2: squared Euclidean distance.
//
// # Ordering
//
// Search returns at most k hits ordered by ascending distance. Equal
// distances are ordered by ascending position so results are deterministic.
//
// # Backends
//
// Flat is an in-process exact index. The pgvector subpackage provides the
// same Searcher contract backed by PostgreSQL.
package index
