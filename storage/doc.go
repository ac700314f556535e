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


// Package storage provides the chunk store abstraction for answerit.
//
// A chunk store holds the passages of one corpus in the exact order of the
// corpus vector index: the chunk at position i is the passage whose embedding
// is row i of the index. Stores are written once, offline, and loaded
// read-only when a server starts.
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.ChunkRepository interface:
//
//	repo, err := badger.NewChunkRepository("/path/to/db")  // returns storage.ChunkRepository
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Backends
//
//   - badger: BadgerDB through badgerhold, one store holding every corpus
//   - JSON files: the flat {text,url,source} array format exchanged with
//     scrapers and other tools (ReadChunksFile / WriteChunksFile)
//
// # Usage
//
//	repo, err := badger.NewChunkRepository("/var/lib/answerit/chunks")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
//	chunks, err := repo.LoadChunks(ctx, core.CorpusCourse)
//
// Use in tests with in-memory storage:
//
//	repo, err := badger.NewMemoryChunkRepository()
package storage
