package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/answerit/ai"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/index"
)

const (
	defaultBatchSize  = 32
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
)

// Builder embeds chunks and assembles them into a flat index.
type Builder struct {
	embedder   ai.Embedder
	metric     index.Metric
	batchSize  int
	pool       *ants.Pool
	maxRetries int
	retryDelay time.Duration
	progress   io.Writer
	label      string
	logger     *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// WithMetric sets the distance metric of built indices. Default is cosine.
func WithMetric(metric index.Metric) BuilderOption {
	return func(b *Builder) error {
		if !metric.Valid() {
			return fmt.Errorf("%w: %s", index.ErrUnknownMetric, metric)
		}
		b.metric = metric
		return nil
	}
}

// WithBatchSize sets how many chunks are sent per embedding request.
func WithBatchSize(size int) BuilderOption {
	return func(b *Builder) error {
		if size < 1 {
			return ErrInvalidBatchSize
		}
		b.batchSize = size
		return nil
	}
}

// WithWorkers sets how many batches are embedded concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithWorkers(n int) BuilderOption {
	return func(b *Builder) error {
		if n < 1 {
			n = 1
		}
		if b.pool != nil {
			b.pool.Release()
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return err
		}
		b.pool = pool
		return nil
	}
}

// WithRetry sets the attempts per batch and the base backoff delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) BuilderOption {
	return func(b *Builder) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		b.maxRetries = maxAttempts
		b.retryDelay = baseDelay
		return nil
	}
}

// WithProgress reports embedding progress to w under label.
func WithProgress(w io.Writer, label string) BuilderOption {
	return func(b *Builder) error {
		b.progress = w
		b.label = label
		return nil
	}
}

// NewBuilder creates a builder. Call Release when done.
func NewBuilder(embedder ai.Embedder, opts ...BuilderOption) (*Builder, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	b := &Builder{
		embedder:   embedder,
		metric:     index.DefaultMetric,
		batchSize:  defaultBatchSize,
		pool:       pool,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		label:      "Embedding",
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(b); err != nil {
			b.Release()
			return nil, err
		}
	}
	b.logger = b.logger.With("component", "builder")

	return b, nil
}

// Build embeds every chunk and returns an index whose row i is the
// embedding of chunks[i]. The first failing batch cancels the rest.
func (b *Builder) Build(ctx context.Context, chunks []core.Chunk) (*index.Flat, error) {
	if len(chunks) == 0 {
		return index.Build(nil, b.metric)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors := make([][]float32, len(chunks))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	tracker := NewProgressTracker(b.progress, b.label, len(chunks), b.batchSize)
	tracker.Start()
	b.logger.Info("embedding chunks", "chunks", len(chunks), "batch_size", b.batchSize)

	for start := 0; start < len(texts); start += b.batchSize {
		if ctx.Err() != nil {
			break
		}
		end := min(start+b.batchSize, len(texts))

		wg.Add(1)
		err := b.pool.Submit(func() {
			defer wg.Done()

			embedded, err := b.embedBatch(ctx, texts[start:end])
			if err != nil {
				fail(fmt.Errorf("failed to embed chunks %d-%d: %w", start, end-1, err))
				return
			}
			copy(vectors[start:end], embedded)
			tracker.Increment(end - start)
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("failed to submit batch: %w", err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tracker.Finish()
	b.logger.Info("embedded chunks", "chunks", len(chunks), "elapsed", tracker.Elapsed().Round(time.Millisecond))

	return index.Build(vectors, b.metric)
}

// embedBatch embeds one batch with retries. Empty texts are not retried.
func (b *Builder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = b.embedder.EmbedTexts(ctx, texts)
		if errors.Is(err, ai.ErrEmptyText) {
			return Permanent(err)
		}
		return err
	}, b.maxRetries, b.retryDelay)
	if err != nil {
		return nil, err
	}

	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d, got %d", ai.ErrEmbeddingMismatch, len(texts), len(embeddings))
	}
	return embeddings, nil
}

// Release releases the worker pool.
// The builder should not be used after calling Release.
func (b *Builder) Release() {
	if b.pool != nil {
		b.pool.Release()
	}
}
