package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/answerit/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// charsPerToken approximates the rune budget when token tables are unavailable.
const charsPerToken = 4

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder  embeddings.Embedder
	truncator ai.Truncator
	logger    *slog.Logger
}

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "openai-embedder")

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIKey),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder:  embedder,
		truncator: newTruncator(config.MaxInputTokens, logger),
		logger:    logger,
	}, nil
}

func newTruncator(maxTokens int, logger *slog.Logger) ai.Truncator {
	if maxTokens == 0 {
		return nil
	}
	tt, err := ai.NewTokenTruncator(maxTokens)
	if err != nil {
		logger.Warn("token truncation unavailable, falling back to character budget",
			"maxTokens", maxTokens, "err", err)
		return ai.RuneTruncator{Max: maxTokens * charsPerToken}
	}
	return tt
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	text, err := ai.PrepareText(text, e.truncator)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("generating embedding for single text", "length", len(text))

	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}

	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1, received %d", ai.ErrEmbeddingMismatch, len(vectors))
	}

	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	prepared, err := ai.PrepareTexts(texts, e.truncator)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("generating embeddings for texts", "count", len(prepared))

	vectors, err := e.embedder.EmbedDocuments(ctx, prepared)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(prepared), "err", err)
		return nil, err
	}

	if len(vectors) != len(prepared) {
		return nil, fmt.Errorf("%w: expected %d, received %d", ai.ErrEmbeddingMismatch, len(prepared), len(vectors))
	}

	return vectors, nil
}
