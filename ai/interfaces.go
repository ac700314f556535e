package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns ErrEmptyText if text is empty; over-long text is truncated.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any text is empty or any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// TextReader extracts plain text from an image.
// Implementations must be thread-safe for concurrent use.
type TextReader interface {
	// ReadText returns the text recognized in the encoded image
	// (PNG, JPEG, GIF or WebP). An image without text yields "".
	ReadText(ctx context.Context, image []byte) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// TextReader returns the image text recognition service.
	TextReader() TextReader

	// Close releases resources held by the provider and its services.
	Close() error
}
