package ingest

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEmbedderRequired is returned when a builder has no embedder.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrTokenizerRequired is returned when a chunker has no tokenizer.
	ErrTokenizerRequired = errors.New("tokenizer required")

	// ErrInvalidChunkSize is returned for a chunk size below one token.
	ErrInvalidChunkSize = errors.New("chunk size must be at least 1")

	// ErrInvalidOverlap is returned when the overlap is negative or not
	// smaller than the chunk size.
	ErrInvalidOverlap = errors.New("overlap must be in [0, chunk size)")

	// ErrInvalidBatchSize is returned for a batch size below one.
	ErrInvalidBatchSize = errors.New("batch size must be at least 1")

	// ErrSizeMismatch is returned when an index does not have one row per chunk.
	ErrSizeMismatch = errors.New("index size does not match chunk count")

	// ErrCorpusRequired is returned when a corpus output has no name.
	ErrCorpusRequired = errors.New("corpus name required")
)
