package answerit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/poiesic/answerit/ai"
	"github.com/poiesic/answerit/ai/mock"
	"github.com/poiesic/answerit/ai/openai"
	"github.com/poiesic/answerit/config"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/index"
	"github.com/poiesic/answerit/index/pgvector"
	"github.com/poiesic/answerit/retrieval"
	"github.com/poiesic/answerit/storage"
	"github.com/poiesic/answerit/storage/badger"
)

// probeText is embedded at start-up to check the model dimension.
const probeText = "dimension probe"

// loader accumulates resources while Open assembles an engine so they can
// be released if a later step fails.
type loader struct {
	cfg     *config.Config
	closers []func() error
	logger  *slog.Logger
}

func (l *loader) release() {
	for i := len(l.closers) - 1; i >= 0; i-- {
		if err := l.closers[i](); err != nil {
			l.logger.Warn("error releasing resource", "err", err)
		}
	}
	l.closers = nil
}

func configurationError(op string, err error) error {
	var cfgErr *core.ConfigurationError
	if errors.As(err, &cfgErr) {
		return err
	}
	return core.NewConfigurationError(op, err)
}

// Open loads the embedder, both chunk stores, both indices and the optional
// text reader described by cfg. Any failure is returned as a
// *core.ConfigurationError and no engine is produced.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, core.NewConfigurationError("validate config", err)
	}

	l := &loader{cfg: cfg, logger: slog.Default().With("component", "loader")}
	engine, err := l.open(ctx, opts)
	if err != nil {
		l.release()
		return nil, err
	}
	return engine, nil
}

func (l *loader) open(ctx context.Context, opts []Option) (*Engine, error) {
	provider, err := NewProvider(l.cfg)
	if err != nil {
		return nil, configurationError("create AI provider", err)
	}
	l.closers = append(l.closers, provider.Close)

	chunks, err := l.loadChunks(ctx)
	if err != nil {
		return nil, err
	}

	searchers, err := l.loadSearchers(ctx, chunks)
	if err != nil {
		return nil, err
	}

	course, err := retrieval.NewCorpus(core.CorpusCourse, chunks[core.CorpusCourse], searchers[core.CorpusCourse])
	if err != nil {
		return nil, configurationError("load course corpus", err)
	}
	discourse, err := retrieval.NewCorpus(core.CorpusDiscourse, chunks[core.CorpusDiscourse], searchers[core.CorpusDiscourse])
	if err != nil {
		return nil, configurationError("load discourse corpus", err)
	}

	if err := l.checkDimension(ctx, provider.Embedder(), course, discourse); err != nil {
		return nil, err
	}

	all := []Option{WithTopK(l.cfg.Retrieval.TopK)}
	if reader := provider.TextReader(); reader != nil {
		all = append(all, WithTextReader(reader))
	}
	all = append(all, opts...)

	engine, err := New(provider.Embedder(), course, discourse, all...)
	if err != nil {
		return nil, configurationError("create engine", err)
	}
	engine.closers = l.closers
	l.closers = nil

	l.logger.Info("engine ready",
		"course", course.Len(),
		"discourse", discourse.Len(),
		"ocr", engine.reader != nil)
	return engine, nil
}

// NewProvider creates the AI provider selected by cfg.
func NewProvider(cfg *config.Config) (ai.AIProvider, error) {
	switch cfg.AI.Provider {
	case "mock":
		return mock.NewMockProvider(), nil
	default:
		return openai.NewProvider(cfg.AIConfig())
	}
}

// loadChunks reads both chunk stores and verifies any recorded manifests.
func (l *loader) loadChunks(ctx context.Context) (map[string][]core.Chunk, error) {
	corpus := &l.cfg.Corpus
	chunks := make(map[string][]core.Chunk, 2)

	switch corpus.ChunkStore {
	case config.StoreBadger:
		repo, err := badger.NewChunkRepository(corpus.Path(corpus.BadgerDir))
		if err != nil {
			return nil, configurationError("open chunk store", err)
		}
		defer repo.Close()

		for _, name := range []string{core.CorpusCourse, core.CorpusDiscourse} {
			loaded, err := repo.LoadChunks(ctx, name)
			if err != nil {
				return nil, configurationError("load "+name+" chunks", err)
			}
			manifest, err := repo.LoadManifest(ctx, name)
			if err != nil {
				return nil, configurationError("load "+name+" manifest", err)
			}
			if err := checkManifest(manifest, loaded); err != nil {
				return nil, configurationError("verify "+name+" chunks", err)
			}
			chunks[name] = loaded
		}
	default:
		paths := map[string]string{
			core.CorpusCourse:    corpus.Path(corpus.CourseChunks),
			core.CorpusDiscourse: corpus.Path(corpus.DiscourseChunks),
		}
		for name, path := range paths {
			loaded, err := storage.ReadChunksFile(path)
			if err != nil {
				return nil, configurationError("load "+name+" chunks", err)
			}
			chunks[name] = loaded
		}
	}

	return chunks, nil
}

func checkManifest(manifest *storage.Manifest, chunks []core.Chunk) error {
	if manifest == nil {
		return nil
	}
	if manifest.Count != len(chunks) {
		return fmt.Errorf("manifest records %d chunks, store has %d", manifest.Count, len(chunks))
	}
	if manifest.Fingerprint != core.Fingerprint(chunks) {
		return errors.New("chunk store does not match its manifest fingerprint")
	}
	return nil
}

// loadSearchers opens both indices and checks each against its chunk store.
func (l *loader) loadSearchers(ctx context.Context, chunks map[string][]core.Chunk) (map[string]index.Searcher, error) {
	corpus := &l.cfg.Corpus
	searchers := make(map[string]index.Searcher, 2)

	switch corpus.IndexBackend {
	case config.IndexPGVector:
		pool, err := pgvector.Connect(ctx, corpus.DatabaseURL)
		if err != nil {
			return nil, configurationError("connect vector database", err)
		}
		l.closers = append(l.closers, closePool(pool))

		tables := map[string]string{
			core.CorpusCourse:    corpus.CourseTable,
			core.CorpusDiscourse: corpus.DiscourseTable,
		}
		for name, table := range tables {
			idx, err := pgvector.Open(ctx, pool, table)
			if err != nil {
				return nil, configurationError("open "+name+" index", err)
			}
			if err := checkFingerprint(idx.Header(), chunks[name]); err != nil {
				return nil, configurationError("verify "+name+" index", err)
			}
			searchers[name] = idx
		}
	default:
		paths := map[string]string{
			core.CorpusCourse:    corpus.Path(corpus.CourseIndex),
			core.CorpusDiscourse: corpus.Path(corpus.DiscourseIndex),
		}
		for name, path := range paths {
			flat, hdr, err := index.ReadFile(path)
			if err != nil {
				return nil, configurationError("load "+name+" index", err)
			}
			if err := checkFingerprint(hdr, chunks[name]); err != nil {
				return nil, configurationError("verify "+name+" index", err)
			}
			searchers[name] = flat
		}
	}

	return searchers, nil
}

func closePool(pool *pgxpool.Pool) func() error {
	return func() error {
		pool.Close()
		return nil
	}
}

// checkFingerprint compares an index header with the chunk store it is
// served with. A zero fingerprint was not recorded and is not checked.
func checkFingerprint(hdr index.Header, chunks []core.Chunk) error {
	if hdr.Fingerprint == 0 {
		return nil
	}
	if want := core.Fingerprint(chunks); hdr.Fingerprint != want {
		return fmt.Errorf("index was built from a different chunk store (fingerprint %016x, store %016x)",
			uint64(hdr.Fingerprint), uint64(want))
	}
	return nil
}

// checkDimension embeds a probe text and compares its length with every
// non-empty index.
func (l *loader) checkDimension(ctx context.Context, embedder ai.Embedder, corpora ...*retrieval.Corpus) error {
	var probe []float32
	for _, c := range corpora {
		if c.Len() == 0 {
			continue
		}
		if probe == nil {
			var err error
			if probe, err = embedder.EmbedText(ctx, probeText); err != nil {
				return configurationError("probe embedding model", err)
			}
		}
		if len(probe) != c.Dimension() {
			return core.NewConfigurationError("verify "+c.Name()+" index",
				fmt.Errorf("%w: model produces %d, index has %d", index.ErrDimensionMismatch, len(probe), c.Dimension()))
		}
	}
	return nil
}
