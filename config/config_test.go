package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/answerit/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answerit.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, StoreJSON, cfg.Corpus.ChunkStore)
	assert.Equal(t, IndexFile, cfg.Corpus.IndexBackend)

	metric, err := cfg.Corpus.IndexMetric()
	require.NoError(t, err)
	assert.Equal(t, index.MetricCosine, metric)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
[server]
addr = ":9000"
workers = 4

[ai]
embedding_model = "nomic-embed-text"
vision_model = "llava"

[corpus]
data_dir = "/srv/answerit"
chunk_store = "badger"
metric = "l2"

[retrieval]
top_k = 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Server.Workers)
	assert.Equal(t, "nomic-embed-text", cfg.AI.EmbeddingModel)
	assert.Equal(t, StoreBadger, cfg.Corpus.ChunkStore)
	assert.Equal(t, 3, cfg.Retrieval.TopK)

	// Unset keys keep their defaults.
	assert.Equal(t, "chunks.db", cfg.Corpus.BadgerDir)
	assert.Equal(t, 10, cfg.Server.ShutdownSeconds)

	assert.Equal(t, "/srv/answerit/chunks.db", cfg.Corpus.Path(cfg.Corpus.BadgerDir))
	assert.Equal(t, "/abs/x.idx", cfg.Corpus.Path("/abs/x.idx"))
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		assert.Error(t, err)
	})

	t.Run("malformed toml", func(t *testing.T) {
		_, err := Load(writeFile(t, "[server\naddr = "))
		assert.Error(t, err)
	})
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, `
[server]
addr = ":9000"
`)
	t.Setenv("ANSWERIT_SERVER_ADDR", ":7000")
	t.Setenv("ANSWERIT_TOP_K", "8")
	t.Setenv("ANSWERIT_INDEX_BACKEND", "pgvector")
	t.Setenv("ANSWERIT_DATABASE_URL", "postgres://localhost/answerit")
	t.Setenv("ANSWERIT_API_KEY", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.Equal(t, IndexPGVector, cfg.Corpus.IndexBackend)
	assert.Equal(t, "secret", cfg.AI.APIKey)
}

func TestLoad_InvalidIntEnv(t *testing.T) {
	t.Setenv("ANSWERIT_TOP_K", "five")

	_, err := Load("")
	assert.ErrorContains(t, err, "ANSWERIT_TOP_K")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero top k", func(c *Config) { c.Retrieval.TopK = 0 }},
		{"unknown chunk store", func(c *Config) { c.Corpus.ChunkStore = "sqlite" }},
		{"unknown metric", func(c *Config) { c.Corpus.Metric = "dot" }},
		{"pgvector without database", func(c *Config) { c.Corpus.IndexBackend = IndexPGVector }},
		{"missing embedding model", func(c *Config) { c.AI.EmbeddingModel = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"overlap not below window", func(c *Config) { c.Scrape.ChunkOverlap = c.Scrape.ChunkTokens }},
		{"vision model without host", func(c *Config) {
			c.AI.VisionModel = "llava"
			c.AI.VisionHost = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAIConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.AI.EmbeddingHost = "http://embed:11434"
	cfg.AI.VisionModel = "llava"

	aiCfg := cfg.AIConfig()
	require.NoError(t, aiCfg.Validate())
	assert.Equal(t, "http://embed:11434/v1", aiCfg.EmbeddingHost)
	assert.True(t, aiCfg.VisionEnabled())
}
