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

package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/index"
	"github.com/poiesic/answerit/storage"
)

// Output says where a built corpus is written.
type Output struct {
	// Corpus is the corpus name, core.CorpusCourse or core.CorpusDiscourse.
	Corpus string

	// IndexPath is the index file to write.
	IndexPath string

	// Repo receives the chunks and a manifest. When nil the chunks are
	// written as JSON to ChunksPath instead.
	Repo       storage.ChunkRepository
	ChunksPath string
}

// WriteCorpus persists chunks and their index side by side and stamps the
// chunk store fingerprint into the index header. It returns the fingerprint.
func WriteCorpus(ctx context.Context, out Output, chunks []core.Chunk, flat *index.Flat) (core.ID, error) {
	if out.Corpus == "" {
		return 0, ErrCorpusRequired
	}
	if flat.Len() != len(chunks) {
		return 0, fmt.Errorf("%w: %d chunks, %d rows", ErrSizeMismatch, len(chunks), flat.Len())
	}

	fingerprint := core.Fingerprint(chunks)

	if out.Repo != nil {
		if err := out.Repo.SaveChunks(ctx, out.Corpus, chunks); err != nil {
			return 0, fmt.Errorf("failed to save chunks: %w", err)
		}
		stored, err := out.Repo.CountChunks(ctx, out.Corpus)
		if err != nil {
			return 0, fmt.Errorf("failed to count saved chunks: %w", err)
		}
		if stored != len(chunks) {
			return 0, fmt.Errorf("%w: saved %d chunks, store holds %d", ErrSizeMismatch, len(chunks), stored)
		}
		manifest := &storage.Manifest{
			Corpus:      out.Corpus,
			Count:       len(chunks),
			Fingerprint: fingerprint,
			Dimension:   flat.Dimension(),
			Metric:      flat.Metric().String(),
			IndexPath:   out.IndexPath,
		}
		if err := out.Repo.SaveManifest(ctx, manifest); err != nil {
			return 0, fmt.Errorf("failed to save manifest: %w", err)
		}
	} else {
		if err := storage.WriteChunksFile(out.ChunksPath, chunks); err != nil {
			return 0, err
		}
	}

	if err := index.WriteFile(out.IndexPath, flat, fingerprint); err != nil {
		return 0, err
	}

	slog.Default().With("component", "ingest").Info("corpus written",
		"corpus", out.Corpus,
		"chunks", len(chunks),
		"dimension", flat.Dimension(),
		"metric", flat.Metric().String(),
		"index", out.IndexPath)
	return fingerprint, nil
}
