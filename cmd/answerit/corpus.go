package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/answerit"
	"github.com/poiesic/answerit/config"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/index"
	"github.com/poiesic/answerit/index/pgvector"
	"github.com/poiesic/answerit/ingest"
	"github.com/poiesic/answerit/scrape"
	"github.com/poiesic/answerit/storage/badger"
	"github.com/urfave/cli/v2"
)

// runesPerToken approximates token windows when the tiktoken encoding is unavailable.
const runesPerToken = 4

func corpusFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "corpus",
		Usage:    "Corpus to operate on (course, discourse)",
		Required: true,
	}
}

func corpusName(c *cli.Context) (string, error) {
	switch name := c.String("corpus"); name {
	case core.CorpusCourse, core.CorpusDiscourse:
		return name, nil
	default:
		return "", fmt.Errorf("unknown corpus %q: must be %s or %s", name, core.CorpusCourse, core.CorpusDiscourse)
	}
}

func scrapeDiscourseCommand() *cli.Command {
	return &cli.Command{
		Name:   "scrape-discourse",
		Usage:  "Download the topics of a Discourse category as documents",
		Action: scrapeDiscourseAction,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "Discourse base URL"},
			&cli.StringFlag{Name: "category", Usage: "Category path, e.g. c/courses/tds-kb/34"},
			&cli.StringFlag{Name: "cookie", Usage: "Cookie header for a logged-in session"},
			&cli.DurationFlag{Name: "delay", Usage: "Minimum delay between requests"},
			&cli.IntFlag{Name: "max-pages", Usage: "Maximum topic list pages to read", Value: 100},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output JSON file",
				Value:   "discourse_docs.json",
			},
		},
	}
}

func scrapeDiscourseAction(c *cli.Context) error {
	cfg := appConfig(c).Scrape
	if c.IsSet("url") {
		cfg.DiscourseURL = c.String("url")
	}
	if c.IsSet("category") {
		cfg.Category = c.String("category")
	}
	if c.IsSet("cookie") {
		cfg.Cookie = c.String("cookie")
	}
	delay := time.Duration(cfg.DelayMillis) * time.Millisecond
	if c.IsSet("delay") {
		delay = c.Duration("delay")
	}

	client, err := scrape.NewDiscourseClient(cfg.DiscourseURL,
		scrape.WithCookie(cfg.Cookie),
		scrape.WithDelay(delay),
		scrape.WithMaxPages(c.Int("max-pages")),
	)
	if err != nil {
		return err
	}

	docs, err := client.ScrapeCategory(c.Context, cfg.Category)
	if err != nil {
		return fmt.Errorf("scrape failed: %w", err)
	}

	out := appConfig(c).Corpus.Path(c.String("out"))
	if err := scrape.WriteDocuments(out, docs); err != nil {
		return err
	}
	fmt.Fprintf(c.App.ErrWriter, "Scraped %d topics to %s\n", len(docs), out)
	return nil
}

func loadCourseCommand() *cli.Command {
	return &cli.Command{
		Name:   "load-course",
		Usage:  "Collect course markdown files as documents",
		Action: loadCourseAction,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Usage: "Directory of course markdown files"},
			&cli.StringFlag{Name: "base-url", Usage: "URL prefix for course pages"},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output JSON file",
				Value:   "course_docs.json",
			},
		},
	}
}

func loadCourseAction(c *cli.Context) error {
	cfg := appConfig(c)
	dir := cfg.Scrape.CourseDir
	if c.IsSet("dir") {
		dir = c.String("dir")
	}
	if dir == "" {
		return errors.New("course directory is required (--dir or scrape.course_dir)")
	}
	baseURL := cfg.Scrape.CourseBaseURL
	if c.IsSet("base-url") {
		baseURL = c.String("base-url")
	}

	docs, err := scrape.LoadCourse(dir, baseURL)
	if err != nil {
		return err
	}

	out := cfg.Corpus.Path(c.String("out"))
	if err := scrape.WriteDocuments(out, docs); err != nil {
		return err
	}
	fmt.Fprintf(c.App.ErrWriter, "Loaded %d course pages to %s\n", len(docs), out)
	return nil
}

func buildIndexCommand() *cli.Command {
	return &cli.Command{
		Name:   "build-index",
		Usage:  "Chunk documents, embed them and write the corpus chunk store and index",
		Action: buildIndexAction,
		Flags: []cli.Flag{
			corpusFlag(),
			&cli.StringFlag{
				Name:     "docs",
				Usage:    "Documents JSON file produced by scrape-discourse or load-course",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "tokenizer",
				Usage: "How chunk sizes are counted (tiktoken, rune)",
				Value: "tiktoken",
			},
			&cli.IntFlag{Name: "chunk-tokens", Usage: "Tokens per chunk"},
			&cli.IntFlag{Name: "chunk-overlap", Usage: "Tokens shared by consecutive chunks"},
			&cli.IntFlag{Name: "batch-size", Usage: "Chunks per embedding request"},
			&cli.IntFlag{Name: "workers", Usage: "Concurrent embedding requests"},
			&cli.IntFlag{
				Name:  "max-retries",
				Usage: "Maximum retry attempts for failed operations",
				Value: 3,
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Usage: "Base delay for exponential backoff",
				Value: 1 * time.Second,
			},
		},
	}
}

func buildIndexAction(c *cli.Context) error {
	name, err := corpusName(c)
	if err != nil {
		return err
	}

	cfg := appConfig(c)
	sc := cfg.Scrape
	if c.IsSet("chunk-tokens") {
		sc.ChunkTokens = c.Int("chunk-tokens")
	}
	if c.IsSet("chunk-overlap") {
		sc.ChunkOverlap = c.Int("chunk-overlap")
	}
	if c.IsSet("batch-size") {
		sc.EmbedBatchSize = c.Int("batch-size")
	}
	if c.IsSet("workers") {
		sc.EmbedWorkers = c.Int("workers")
	}

	metric, err := cfg.Corpus.IndexMetric()
	if err != nil {
		return err
	}

	docs, err := scrape.ReadDocuments(cfg.Corpus.Path(c.String("docs")))
	if err != nil {
		return err
	}

	chunker, err := newChunker(c.String("tokenizer"), sc.ChunkTokens, sc.ChunkOverlap)
	if err != nil {
		return err
	}
	chunks, err := chunker.Chunk(docs)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.ErrWriter, "Split %d documents into %d chunks\n", len(docs), len(chunks))

	provider, err := answerit.NewProvider(cfg)
	if err != nil {
		return err
	}
	defer provider.Close()

	builder, err := ingest.NewBuilder(provider.Embedder(),
		ingest.WithMetric(metric),
		ingest.WithBatchSize(sc.EmbedBatchSize),
		ingest.WithWorkers(sc.EmbedWorkers),
		ingest.WithRetry(c.Int("max-retries"), c.Duration("retry-delay")),
		ingest.WithProgress(c.App.ErrWriter, "Embedding "+name),
	)
	if err != nil {
		return err
	}
	defer builder.Release()

	flat, err := builder.Build(c.Context, chunks)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}

	out, closeRepo, err := corpusOutput(cfg, name)
	if err != nil {
		return err
	}
	defer closeRepo()

	fingerprint, err := ingest.WriteCorpus(c.Context, out, chunks, flat)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.ErrWriter, "Wrote %s corpus: %d chunks, dimension %d, fingerprint %016x\n",
		name, flat.Len(), flat.Dimension(), uint64(fingerprint))
	return nil
}

func newChunker(kind string, tokens, overlap int) (*ingest.Chunker, error) {
	switch kind {
	case "rune":
		return ingest.NewChunker(ingest.RuneTokenizer{}, tokens*runesPerToken, overlap*runesPerToken)
	case "tiktoken":
	default:
		return nil, fmt.Errorf("unknown tokenizer %q: must be tiktoken or rune", kind)
	}

	tokenizer, err := ingest.NewTiktokenTokenizer()
	if err != nil {
		slog.Warn("tiktoken unavailable, chunking by characters", "err", err)
		return ingest.NewChunker(ingest.RuneTokenizer{}, tokens*runesPerToken, overlap*runesPerToken)
	}
	return ingest.NewChunker(tokenizer, tokens, overlap)
}

// corpusOutput returns where the configured chunk store and index of a
// corpus live, and a function closing any store it opened.
func corpusOutput(cfg *config.Config, name string) (ingest.Output, func(), error) {
	corpus := &cfg.Corpus
	out := ingest.Output{Corpus: name}
	if name == core.CorpusCourse {
		out.IndexPath = corpus.Path(corpus.CourseIndex)
		out.ChunksPath = corpus.Path(corpus.CourseChunks)
	} else {
		out.IndexPath = corpus.Path(corpus.DiscourseIndex)
		out.ChunksPath = corpus.Path(corpus.DiscourseChunks)
	}

	if corpus.ChunkStore != config.StoreBadger {
		return out, func() {}, nil
	}

	if err := os.MkdirAll(corpus.Path(corpus.BadgerDir), 0o755); err != nil {
		return out, nil, fmt.Errorf("failed to create chunk store directory: %w", err)
	}
	repo, err := badger.NewChunkRepository(corpus.Path(corpus.BadgerDir))
	if err != nil {
		return out, nil, fmt.Errorf("failed to open chunk store: %w", err)
	}
	out.Repo = repo
	return out, func() { repo.Close() }, nil
}

func publishPGVectorCommand() *cli.Command {
	return &cli.Command{
		Name:   "publish-pgvector",
		Usage:  "Copy a corpus index file into a PostgreSQL pgvector table",
		Action: publishPGVectorAction,
		Flags: []cli.Flag{
			corpusFlag(),
			&cli.StringFlag{Name: "database-url", Usage: "PostgreSQL connection string"},
			&cli.StringFlag{Name: "table", Usage: "Destination table"},
		},
	}
}

func publishPGVectorAction(c *cli.Context) error {
	name, err := corpusName(c)
	if err != nil {
		return err
	}

	corpus := appConfig(c).Corpus
	if c.IsSet("database-url") {
		corpus.DatabaseURL = c.String("database-url")
	}
	if corpus.DatabaseURL == "" {
		return errors.New("database URL is required (--database-url or corpus.database_url)")
	}

	indexPath, table := corpus.Path(corpus.CourseIndex), corpus.CourseTable
	if name == core.CorpusDiscourse {
		indexPath, table = corpus.Path(corpus.DiscourseIndex), corpus.DiscourseTable
	}
	if c.IsSet("table") {
		table = c.String("table")
	}

	flat, hdr, err := index.ReadFile(indexPath)
	if err != nil {
		return err
	}

	pool, err := pgvector.Connect(c.Context, corpus.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pgvector.Publish(c.Context, pool, table, flat, hdr.Fingerprint); err != nil {
		return err
	}
	fmt.Fprintf(c.App.ErrWriter, "Published %d %s vectors to %s\n", flat.Len(), name, table)
	return nil
}
