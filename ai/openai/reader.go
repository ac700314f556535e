package openai

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/poiesic/answerit/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const transcribePrompt = `You are an OCR engine. Transcribe every piece of text visible in the image exactly as written, preserving line breaks. Do not describe the image, explain, summarize or translate. If the image contains no text, reply with an empty message.`

// TextReader implements ai.TextReader using an OpenAI-compatible vision model.
type TextReader struct {
	client llms.Model
	logger *slog.Logger
}

// newTextReader is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newTextReader(config *ai.Config) (*TextReader, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.VisionHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.VisionModel),
	)
	if err != nil {
		return nil, err
	}

	return &TextReader{
		client: client,
		logger: slog.Default().With("component", "openai-reader"),
	}, nil
}

// NewTextReader creates a new image text reader using the provided configuration.
//
// Returns ai.TextReader interface to enforce abstraction.
func NewTextReader(config *ai.Config) (ai.TextReader, error) {
	return newTextReader(config)
}

// ReadText transcribes the text contained in image.
func (r *TextReader) ReadText(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", ai.ErrEmptyImage
	}

	mimeType := http.DetectContentType(image)
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(transcribePrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.ImageURLPart(dataURL),
			},
		},
	}

	r.logger.Debug("transcribing image", "bytes", len(image), "mimeType", mimeType)

	response, err := r.client.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		r.logger.Error("failed to transcribe image", "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		r.logger.Debug("no choices returned from model")
		return "", nil
	}

	return cleanTranscript(response.Choices[0].Content), nil
}
