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


// Package retrieval finds the passages of each corpus nearest to a question.
//
// A Corpus pairs a chunk store with the vector index built from it. Position
// i of the index is chunk i of the store, which NewCorpus checks by size.
// The Retriever embeds a query once and looks the vector up in both the
// course and the discourse corpus with the same top-k.
//
// # Usage
//
//	course, err := retrieval.NewCorpus(core.CorpusCourse, courseChunks, courseIndex)
//	discourse, err := retrieval.NewCorpus(core.CorpusDiscourse, postChunks, postIndex)
//
//	r, err := retrieval.NewRetriever(embedder, course, discourse, retrieval.WithTopK(5))
//	result, err := r.Retrieve(ctx, "How do I submit project 1?")
//
// Retrievers are immutable after construction and safe for concurrent use.
package retrieval
