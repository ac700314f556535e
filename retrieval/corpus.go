package retrieval

import (
	"context"
	"fmt"

	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/index"
)

// Match is a chunk found by a vector lookup.
type Match struct {
	Chunk    core.Chunk
	Distance float32
	Position int
}

// Corpus is a read-only chunk store and the vector index built from it.
type Corpus struct {
	name     string
	chunks   []core.Chunk
	searcher index.Searcher
}

// NewCorpus pairs chunks with searcher. The index must hold exactly one
// vector per chunk; a mismatch is reported as a *core.ConfigurationError.
func NewCorpus(name string, chunks []core.Chunk, searcher index.Searcher) (*Corpus, error) {
	if name == "" {
		return nil, ErrCorpusNameRequired
	}
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if searcher.Len() != len(chunks) {
		return nil, core.NewConfigurationError("load corpus "+name,
			fmt.Errorf("%w: index has %d vectors, store has %d chunks", ErrSizeMismatch, searcher.Len(), len(chunks)))
	}
	return &Corpus{
		name:     name,
		chunks:   chunks,
		searcher: searcher,
	}, nil
}

// Name returns the corpus name.
func (c *Corpus) Name() string {
	return c.name
}

// Len returns the number of chunks.
func (c *Corpus) Len() int {
	return len(c.chunks)
}

// Dimension returns the dimension of the corpus index.
func (c *Corpus) Dimension() int {
	return c.searcher.Dimension()
}

// Chunk returns the chunk at position.
func (c *Corpus) Chunk(position int) (core.Chunk, error) {
	if position < 0 || position >= len(c.chunks) {
		return core.Chunk{}, &core.IndexOutOfRangeError{Corpus: c.name, Position: position, Size: len(c.chunks)}
	}
	return c.chunks[position], nil
}

// Lookup returns the k chunks nearest to vector, nearest first.
func (c *Corpus) Lookup(ctx context.Context, vector []float32, k int) ([]Match, error) {
	hits, err := c.searcher.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", c.name, err)
	}

	matches := make([]Match, len(hits))
	for i, hit := range hits {
		chunk, err := c.Chunk(hit.Position)
		if err != nil {
			return nil, err
		}
		matches[i] = Match{Chunk: chunk, Distance: hit.Distance, Position: hit.Position}
	}
	return matches, nil
}

// Chunks extracts the chunks of matches, preserving order.
func Chunks(matches []Match) []core.Chunk {
	chunks := make([]core.Chunk, len(matches))
	for i, m := range matches {
		chunks[i] = m.Chunk
	}
	return chunks
}
