package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunk(t *testing.T) {
	t.Run("valid chunk", func(t *testing.T) {
		c, err := NewChunk("Use uv to manage Python dependencies.", "https://tds.example/#/uv", "uv")
		require.NoError(t, err)
		assert.Equal(t, "Use uv to manage Python dependencies.", c.Text)
		assert.Equal(t, "https://tds.example/#/uv", c.URL)
		assert.Equal(t, "uv", c.Source)
	})

	t.Run("url and source are not validated", func(t *testing.T) {
		c, err := NewChunk("text", "", "")
		require.NoError(t, err)
		assert.Empty(t, c.URL)
		assert.Empty(t, c.Source)
	})

	t.Run("empty text", func(t *testing.T) {
		_, err := NewChunk("", "https://x", "x")
		assert.ErrorIs(t, err, ErrInvalidChunk)
		assert.ErrorIs(t, err, ErrEmptyText)
	})

	t.Run("whitespace-only text", func(t *testing.T) {
		_, err := NewChunk(" \n\t ", "https://x", "x")
		assert.ErrorIs(t, err, ErrEmptyText)
	})
}

func TestValidateChunks(t *testing.T) {
	t.Run("all valid", func(t *testing.T) {
		err := ValidateChunks([]Chunk{{Text: "a"}, {Text: "b"}})
		assert.NoError(t, err)
	})

	t.Run("reports offending position", func(t *testing.T) {
		err := ValidateChunks([]Chunk{{Text: "a"}, {Text: ""}})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyText)
		assert.Contains(t, err.Error(), "chunk 1")
	})
}

func TestMergeQuery(t *testing.T) {
	tests := []struct {
		name     string
		question string
		ocr      string
		hasOCR   bool
		want     string
	}{
		{"question only", "  what is uv?  ", "", false, "what is uv?"},
		{"question and ocr", "what is this error?", "  ModuleNotFoundError  ", true, "what is this error? ModuleNotFoundError"},
		{"ocr only", "", "screenshot text", true, "screenshot text"},
		{"ocr present but blank", "question", "   ", true, "question"},
		{"nothing", "   ", "", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeQuery(tt.question, tt.ocr, tt.hasOCR))
		})
	}
}

func TestConfigurationError(t *testing.T) {
	cause := errors.New("file missing")
	err := NewConfigurationError("load course index", cause)

	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "configuration error: load course index: file missing", err.Error())

	var cfgErr *ConfigurationError
	require.True(t, errors.As(error(err), &cfgErr))
	assert.Equal(t, "load course index", cfgErr.Op)
}

func TestIndexOutOfRangeError(t *testing.T) {
	var err error = &IndexOutOfRangeError{Corpus: CorpusCourse, Position: 7, Size: 3}

	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.NotErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "position 7")
	assert.Contains(t, err.Error(), "store size 3")
}
