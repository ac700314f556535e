package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/poiesic/answerit/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestTextReader(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		body = string(raw)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "llava",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]string{
					"role":    "assistant",
					"content": "```text\nWhat is GA4?\n```",
				},
			}},
			"usage": map[string]int{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
		})
	}))
	defer srv.Close()

	config := ai.NewConfig(ai.WithVisionHost(srv.URL), ai.WithVisionModel("llava"))
	reader, err := NewTextReader(config)
	require.NoError(t, err)

	text, err := reader.ReadText(context.Background(), pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "What is GA4?", text)
	assert.True(t, strings.Contains(body, "data:image/png;base64,"), "image should be sent as a data URL")
}

func TestTextReaderEmptyImage(t *testing.T) {
	reader, err := NewTextReader(ai.NewConfig(ai.WithVisionModel("llava")))
	require.NoError(t, err)

	_, err = reader.ReadText(context.Background(), nil)
	assert.ErrorIs(t, err, ai.ErrEmptyImage)
}

func TestCleanTranscript(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  hello world \n", "hello world"},
		{"fenced", "```\nline one\nline two\n```", "line one\nline two"},
		{"fenced with language", "```text\nhello\n```", "hello"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanTranscript(tt.in))
		})
	}
}

func TestProvider(t *testing.T) {
	t.Run("without vision", func(t *testing.T) {
		p, err := NewProvider(ai.NewConfig(ai.WithMaxInputTokens(0)))
		require.NoError(t, err)
		defer p.Close()

		assert.NotNil(t, p.Embedder())
		assert.Nil(t, p.TextReader())
	})

	t.Run("with vision", func(t *testing.T) {
		p, err := NewProvider(ai.NewConfig(ai.WithMaxInputTokens(0), ai.WithVisionModel("llava")))
		require.NoError(t, err)
		defer p.Close()

		assert.NotNil(t, p.TextReader())
	})
}
