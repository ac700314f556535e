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


package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/storage"
	"github.com/timshannon/badgerhold/v4"
)

const defaultWriteBatchSize = 500

// chunkRecord is the persisted form of a chunk.
type chunkRecord struct {
	Corpus   string `badgerhold:"index"`
	Position int
	Text     string
	URL      string
	Source   string
}

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend   *Backend
	ownsStore bool
	batchSize int
	logger    *slog.Logger
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository opens (or creates) a chunk store at path.
func NewChunkRepository(path string) (storage.ChunkRepository, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	repo := newChunkRepository(backend)
	repo.ownsStore = true
	return repo, nil
}

// NewChunkRepositoryWithBackend creates a repository on an existing backend.
// The caller keeps ownership of the backend.
func NewChunkRepositoryWithBackend(backend *Backend) (storage.ChunkRepository, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	return newChunkRepository(backend), nil
}

func newChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{
		backend:   backend,
		batchSize: defaultWriteBatchSize,
		logger:    slog.Default().With("component", "chunk-repository"),
	}
}

func corpusQuery(corpus string) *badgerhold.Query {
	return badgerhold.Where("Corpus").Eq(corpus).Index("Corpus")
}

func (r *ChunkRepository) check(corpus string) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if corpus == "" {
		return storage.ErrCorpusRequired
	}
	return nil
}

// SaveChunks replaces every chunk of corpus with chunks, in order.
func (r *ChunkRepository) SaveChunks(ctx context.Context, corpus string, chunks []core.Chunk) error {
	if err := r.check(corpus); err != nil {
		return err
	}
	if err := core.ValidateChunks(chunks); err != nil {
		return err
	}

	store := r.backend.Store()
	if err := store.DeleteMatching(&chunkRecord{}, corpusQuery(corpus)); err != nil {
		return fmt.Errorf("failed to clear corpus %q: %w", corpus, err)
	}

	for start := 0; start < len(chunks); start += r.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+r.batchSize, len(chunks))
		err := r.backend.WithTx(func(tx *badger.Txn) error {
			for i := start; i < end; i++ {
				c := chunks[i]
				record := &chunkRecord{
					Corpus:   corpus,
					Position: i,
					Text:     c.Text,
					URL:      c.URL,
					Source:   c.Source,
				}
				if err := store.TxUpsert(tx, makeChunkKey(corpus, i), record); err != nil {
					return err
				}
			}
			return tx.Commit()
		}, true)
		if err != nil {
			return fmt.Errorf("failed to write chunks %d-%d of corpus %q: %w", start, end, corpus, err)
		}
	}

	r.logger.Debug("saved chunks", "corpus", corpus, "count", len(chunks))
	return nil
}

// LoadChunks returns the chunks of corpus in position order.
func (r *ChunkRepository) LoadChunks(ctx context.Context, corpus string) ([]core.Chunk, error) {
	if err := r.check(corpus); err != nil {
		return nil, err
	}

	var records []chunkRecord
	if err := r.backend.Store().Find(&records, corpusQuery(corpus).SortBy("Position")); err != nil {
		return nil, fmt.Errorf("failed to load corpus %q: %w", corpus, err)
	}

	chunks := make([]core.Chunk, len(records))
	for i, rec := range records {
		if rec.Position != i {
			return nil, fmt.Errorf("corpus %q: missing chunk at position %d", corpus, i)
		}
		chunks[i] = core.Chunk{Text: rec.Text, URL: rec.URL, Source: rec.Source}
	}
	return chunks, nil
}

// CountChunks returns the number of chunks stored for corpus.
func (r *ChunkRepository) CountChunks(ctx context.Context, corpus string) (int, error) {
	if err := r.check(corpus); err != nil {
		return 0, err
	}
	count, err := r.backend.Store().Count(&chunkRecord{}, corpusQuery(corpus))
	if err != nil {
		return 0, fmt.Errorf("failed to count corpus %q: %w", corpus, err)
	}
	return int(count), nil
}

// SaveManifest persists a corpus build manifest.
func (r *ChunkRepository) SaveManifest(ctx context.Context, manifest *storage.Manifest) error {
	if err := r.check(manifest.Corpus); err != nil {
		return err
	}
	if manifest.BuiltAt.IsZero() {
		manifest.BuiltAt = time.Now().UTC()
	}
	return r.backend.Store().Upsert(makeManifestKey(manifest.Corpus), manifest)
}

// LoadManifest retrieves the manifest for corpus.
// Returns nil, nil if no manifest exists.
func (r *ChunkRepository) LoadManifest(ctx context.Context, corpus string) (*storage.Manifest, error) {
	if err := r.check(corpus); err != nil {
		return nil, err
	}
	var manifest storage.Manifest
	if err := r.backend.Store().Get(makeManifestKey(corpus), &manifest); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &manifest, nil
}

// Close closes the underlying store if this repository opened it.
func (r *ChunkRepository) Close() error {
	if !r.ownsStore || r.backend.IsClosed() {
		return nil
	}
	return r.backend.Close()
}
