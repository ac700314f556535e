package ai

import "errors"

var (
	// ErrEmptyText is returned when an embedder is asked to embed empty text.
	ErrEmptyText = errors.New("text to embed cannot be empty")

	// ErrEmptyImage is returned when a text reader receives no image bytes.
	ErrEmptyImage = errors.New("image cannot be empty")

	// ErrEmbeddingMismatch is returned when a batch embedding call returns
	// a different number of vectors than texts.
	ErrEmbeddingMismatch = errors.New("embedding count mismatch")
)
