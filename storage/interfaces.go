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


package storage

import (
	"context"
	"time"

	"github.com/poiesic/answerit/core"
)

// Manifest records how a corpus was built so that a server can verify its
// chunk store and index belong together.
type Manifest struct {
	Corpus      string
	Count       int
	Fingerprint core.ID
	Dimension   int
	Metric      string
	IndexPath   string
	BuiltAt     time.Time
}

// ChunkRepository persists the chunk store of each corpus.
// Chunks are stored with their position; loading returns them in position
// order so that position i matches row i of the corpus index.
// Implementations must be safe for concurrent reads.
type ChunkRepository interface {
	// SaveChunks replaces the stored chunks of corpus.
	SaveChunks(ctx context.Context, corpus string, chunks []core.Chunk) error

	// LoadChunks returns all chunks of corpus ordered by position.
	// An unknown corpus yields an empty slice.
	LoadChunks(ctx context.Context, corpus string) ([]core.Chunk, error)

	// CountChunks returns the number of chunks stored for corpus.
	CountChunks(ctx context.Context, corpus string) (int, error)

	// SaveManifest persists the build manifest of a corpus.
	SaveManifest(ctx context.Context, manifest *Manifest) error

	// LoadManifest retrieves the manifest of a corpus.
	// Returns nil, nil if no manifest exists.
	LoadManifest(ctx context.Context, corpus string) (*Manifest, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
