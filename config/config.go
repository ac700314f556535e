package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/poiesic/answerit/ai"
	"github.com/poiesic/answerit/index"
)

// Chunk store backends.
const (
	StoreJSON   = "json"
	StoreBadger = "badger"
)

// Index backends.
const (
	IndexFile     = "file"
	IndexPGVector = "pgvector"
)

// Config is the complete answerit configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	AI        AIConfig        `toml:"ai"`
	Corpus    CorpusConfig    `toml:"corpus"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Scrape    ScrapeConfig    `toml:"scrape"`
	Logging   LoggingConfig   `toml:"logging"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr            string `toml:"addr" validate:"required"`
	Workers         int    `toml:"workers" validate:"gte=1"`
	ShutdownSeconds int    `toml:"shutdown_seconds" validate:"gte=0"`
}

// AIConfig selects the embedding and OCR models.
type AIConfig struct {
	Provider       string `toml:"provider" validate:"oneof=openai mock"`
	EmbeddingHost  string `toml:"embedding_host" validate:"required"`
	EmbeddingModel string `toml:"embedding_model" validate:"required"`
	VisionHost     string `toml:"vision_host"`
	VisionModel    string `toml:"vision_model"`
	APIKey         string `toml:"api_key"`
	MaxInputTokens int    `toml:"max_input_tokens" validate:"gte=0"`
}

// CorpusConfig locates the chunk stores and indices of both corpora.
// Relative paths are resolved against DataDir.
type CorpusConfig struct {
	DataDir         string `toml:"data_dir" validate:"required"`
	ChunkStore      string `toml:"chunk_store" validate:"oneof=json badger"`
	CourseChunks    string `toml:"course_chunks" validate:"required_if=ChunkStore json"`
	DiscourseChunks string `toml:"discourse_chunks" validate:"required_if=ChunkStore json"`
	BadgerDir       string `toml:"badger_dir" validate:"required_if=ChunkStore badger"`
	IndexBackend    string `toml:"index_backend" validate:"oneof=file pgvector"`
	CourseIndex     string `toml:"course_index" validate:"required_if=IndexBackend file"`
	DiscourseIndex  string `toml:"discourse_index" validate:"required_if=IndexBackend file"`
	Metric          string `toml:"metric" validate:"oneof=cosine l2"`
	DatabaseURL     string `toml:"database_url" validate:"required_if=IndexBackend pgvector"`
	CourseTable     string `toml:"course_table" validate:"required_if=IndexBackend pgvector"`
	DiscourseTable  string `toml:"discourse_table" validate:"required_if=IndexBackend pgvector"`
}

// RetrievalConfig controls lookups.
type RetrievalConfig struct {
	TopK int `toml:"top_k" validate:"gte=1"`
}

// ScrapeConfig controls offline corpus production.
type ScrapeConfig struct {
	DiscourseURL   string `toml:"discourse_url" validate:"omitempty,url"`
	Category       string `toml:"category"`
	Cookie         string `toml:"cookie"`
	DelayMillis    int    `toml:"delay_millis" validate:"gte=0"`
	CourseDir      string `toml:"course_dir"`
	CourseBaseURL  string `toml:"course_base_url" validate:"omitempty,url"`
	ChunkTokens    int    `toml:"chunk_tokens" validate:"gte=1"`
	ChunkOverlap   int    `toml:"chunk_overlap" validate:"gte=0,ltfield=ChunkTokens"`
	EmbedBatchSize int    `toml:"embed_batch_size" validate:"gte=1"`
	EmbedWorkers   int    `toml:"embed_workers" validate:"gte=1"`
}

// LoggingConfig controls the log level.
type LoggingConfig struct {
	Level string `toml:"level" validate:"oneof=debug info warn error"`
}

// NewDefaultConfig returns a configuration that serves JSON chunk stores
// and index files from ./data using a local Ollama embedder.
func NewDefaultConfig() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			Workers:         32,
			ShutdownSeconds: 10,
		},
		AI: AIConfig{
			Provider:       "openai",
			EmbeddingHost:  aiDefaults.EmbeddingHost,
			EmbeddingModel: aiDefaults.EmbeddingModel,
			VisionHost:     aiDefaults.VisionHost,
			APIKey:         aiDefaults.APIKey,
			MaxInputTokens: aiDefaults.MaxInputTokens,
		},
		Corpus: CorpusConfig{
			DataDir:         "data",
			ChunkStore:      StoreJSON,
			CourseChunks:    "course_chunks.json",
			DiscourseChunks: "discourse_chunks.json",
			BadgerDir:       "chunks.db",
			IndexBackend:    IndexFile,
			CourseIndex:     "course.idx",
			DiscourseIndex:  "discourse.idx",
			Metric:          index.DefaultMetric.String(),
			CourseTable:     "answerit_course",
			DiscourseTable:  "answerit_discourse",
		},
		Retrieval: RetrievalConfig{
			TopK: 5,
		},
		Scrape: ScrapeConfig{
			DiscourseURL:   "https://discourse.onlinedegree.iitm.ac.in",
			Category:       "c/courses/tds-kb/34",
			DelayMillis:    250,
			ChunkTokens:    256,
			ChunkOverlap:   32,
			EmbedBatchSize: 32,
			EmbedWorkers:   4,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration with priority default -> file -> .env -> env.
// An empty path skips the file. A missing .env file is ignored.
func Load(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies ANSWERIT_* environment variables to config.
func applyEnvOverrides(config *Config) error {
	strs := map[string]*string{
		"ANSWERIT_SERVER_ADDR":      &config.Server.Addr,
		"ANSWERIT_AI_PROVIDER":      &config.AI.Provider,
		"ANSWERIT_EMBEDDING_HOST":   &config.AI.EmbeddingHost,
		"ANSWERIT_EMBEDDING_MODEL":  &config.AI.EmbeddingModel,
		"ANSWERIT_VISION_HOST":      &config.AI.VisionHost,
		"ANSWERIT_VISION_MODEL":     &config.AI.VisionModel,
		"ANSWERIT_DATA_DIR":         &config.Corpus.DataDir,
		"ANSWERIT_CHUNK_STORE":      &config.Corpus.ChunkStore,
		"ANSWERIT_INDEX_BACKEND":    &config.Corpus.IndexBackend,
		"ANSWERIT_METRIC":           &config.Corpus.Metric,
		"ANSWERIT_DATABASE_URL":     &config.Corpus.DatabaseURL,
		"ANSWERIT_DISCOURSE_URL":    &config.Scrape.DiscourseURL,
		"ANSWERIT_DISCOURSE_COOKIE": &config.Scrape.Cookie,
		"ANSWERIT_LOG_LEVEL":        &config.Logging.Level,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	// The conventional OpenAI variable is a fallback for the API key.
	if v := os.Getenv("ANSWERIT_API_KEY"); v != "" {
		config.AI.APIKey = v
	} else if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		config.AI.APIKey = v
	}

	ints := map[string]*int{
		"ANSWERIT_SERVER_WORKERS":   &config.Server.Workers,
		"ANSWERIT_MAX_INPUT_TOKENS": &config.AI.MaxInputTokens,
		"ANSWERIT_TOP_K":            &config.Retrieval.TopK,
	}
	for name, dst := range ints {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
		*dst = n
	}
	return nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.AI.VisionModel != "" && c.AI.VisionHost == "" {
		return errors.New("invalid configuration: vision_host is required when vision_model is set")
	}
	return nil
}

// Path resolves name against the data directory. Absolute names are
// returned unchanged.
func (c *CorpusConfig) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// IndexMetric returns the parsed build metric.
func (c *CorpusConfig) IndexMetric() (index.Metric, error) {
	return index.ParseMetric(c.Metric)
}

// AIConfig converts the AI section to an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithMaxInputTokens(c.AI.MaxInputTokens),
	}
	if c.AI.VisionHost != "" {
		opts = append(opts, ai.WithVisionHost(c.AI.VisionHost))
	}
	if c.AI.VisionModel != "" {
		opts = append(opts, ai.WithVisionModel(c.AI.VisionModel))
	}
	return ai.NewConfig(opts...)
}
