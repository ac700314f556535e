package ingest

import (
	"fmt"
	"strings"

	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/scrape"
)

// Chunker splits documents into overlapping windows of tokens.
type Chunker struct {
	tokenizer Tokenizer
	size      int
	overlap   int
}

// NewChunker creates a chunker producing windows of size tokens where
// consecutive windows share overlap tokens.
func NewChunker(tokenizer Tokenizer, size, overlap int) (*Chunker, error) {
	if tokenizer == nil {
		return nil, ErrTokenizerRequired
	}
	if size < 1 {
		return nil, ErrInvalidChunkSize
	}
	if overlap < 0 || overlap >= size {
		return nil, ErrInvalidOverlap
	}
	return &Chunker{tokenizer: tokenizer, size: size, overlap: overlap}, nil
}

// Split returns the non-blank windows of text in order.
func (c *Chunker) Split(text string) []string {
	tokens := c.tokenizer.Encode(text)
	step := c.size - c.overlap

	var pieces []string
	for start := 0; start < len(tokens); start += step {
		end := min(start+c.size, len(tokens))

		// Token boundaries can split a multibyte character.
		piece := strings.ToValidUTF8(c.tokenizer.Decode(tokens[start:end]), "")
		if piece = strings.TrimSpace(piece); piece != "" {
			pieces = append(pieces, piece)
		}
		if end == len(tokens) {
			break
		}
	}
	return pieces
}

// Chunk splits every document. Each chunk carries its document's URL and
// uses the document title as its source. Documents are processed in order
// so chunk positions follow document order.
func (c *Chunker) Chunk(docs []scrape.Document) ([]core.Chunk, error) {
	var chunks []core.Chunk
	for _, doc := range docs {
		for _, piece := range c.Split(doc.Content) {
			chunk, err := core.NewChunk(piece, doc.URL, doc.Title)
			if err != nil {
				return nil, fmt.Errorf("document %q: %w", doc.URL, err)
			}
			chunks = append(chunks, chunk)
		}
	}
	if chunks == nil {
		chunks = []core.Chunk{}
	}
	return chunks, nil
}
