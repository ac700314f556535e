package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/answerit/ai"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/index"
	"golang.org/x/sync/errgroup"
)

// DefaultTopK is the number of chunks retrieved from each corpus.
const DefaultTopK = 5

// Result holds the matches from both corpora, each nearest first.
type Result struct {
	Query     string
	Course    []Match
	Discourse []Match
}

// CourseChunks returns the course chunks in rank order.
func (r *Result) CourseChunks() []core.Chunk {
	return Chunks(r.Course)
}

// DiscourseChunks returns the discourse chunks in rank order.
func (r *Result) DiscourseChunks() []core.Chunk {
	return Chunks(r.Discourse)
}

// Retriever looks questions up in the course and discourse corpora.
type Retriever struct {
	embedder  ai.Embedder
	course    *Corpus
	discourse *Corpus
	topK      int
	logger    *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithTopK sets how many chunks are taken from each corpus.
// Default is DefaultTopK.
func WithTopK(k int) Option {
	return func(r *Retriever) error {
		if k <= 0 {
			return fmt.Errorf("%w: got %d", index.ErrInvalidK, k)
		}
		r.topK = k
		return nil
	}
}

// NewRetriever creates a retriever over the two corpora.
func NewRetriever(embedder ai.Embedder, course, discourse *Corpus, opts ...Option) (*Retriever, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if course == nil || discourse == nil {
		return nil, ErrCorpusRequired
	}

	r := &Retriever{
		embedder:  embedder,
		course:    course,
		discourse: discourse,
		topK:      DefaultTopK,
		logger:    slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	r.logger = r.logger.With("component", "retriever")
	return r, nil
}

// TopK returns the per-corpus result count.
func (r *Retriever) TopK() int {
	return r.topK
}

// Course returns the course corpus.
func (r *Retriever) Course() *Corpus {
	return r.course
}

// Discourse returns the discourse corpus.
func (r *Retriever) Discourse() *Corpus {
	return r.discourse
}

func (r *Retriever) embed(ctx context.Context, query string) ([]float32, error) {
	if strings.TrimSpace(query) == "" {
		return nil, core.ErrEmptyQuery
	}
	vector, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vector, nil
}

// TopChunks returns the topK chunks of corpus nearest to query.
func (r *Retriever) TopChunks(ctx context.Context, query string, corpus *Corpus, topK int) ([]core.Chunk, error) {
	if corpus == nil {
		return nil, ErrCorpusRequired
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: got %d", index.ErrInvalidK, topK)
	}

	vector, err := r.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := corpus.Lookup(ctx, vector, topK)
	if err != nil {
		return nil, err
	}
	return Chunks(matches), nil
}

// Retrieve embeds query once and returns the nearest chunks of both corpora.
func (r *Retriever) Retrieve(ctx context.Context, query string) (*Result, error) {
	return r.RetrieveWithMonitor(ctx, query, nil)
}

// RetrieveWithMonitor is Retrieve with monitoring.
// The monitor receives callbacks at each stage of the retrieval process.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, query string, monitor Monitor) (*Result, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	vector, err := r.embed(ctx, query)
	if err != nil {
		return nil, err
	}
	monitor.AfterEmbedding(vector)

	result := &Result{Query: query}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		result.Course, err = r.course.Lookup(gctx, vector, r.topK)
		return err
	})
	g.Go(func() error {
		var err error
		result.Discourse, err = r.discourse.Lookup(gctx, vector, r.topK)
		return err
	})
	if err := g.Wait(); err != nil {
		r.logger.Error("corpus lookup failed", "err", err)
		return nil, err
	}

	monitor.AfterLookup(r.course.Name(), result.Course)
	monitor.AfterLookup(r.discourse.Name(), result.Discourse)

	r.logger.Debug("retrieved chunks",
		"course", len(result.Course),
		"discourse", len(result.Discourse),
		"topK", r.topK)

	monitor.Finish(result)
	return result, nil
}
