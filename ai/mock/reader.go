package mock

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/answerit/ai"
)

// MockTextReader is a test double for ai.TextReader.
type MockTextReader struct {
	// ReadTextFunc is called by ReadText if set.
	ReadTextFunc func(ctx context.Context, image []byte) (string, error)

	// Text is returned by the default behavior.
	Text string

	callCount atomic.Int64
}

// NewMockTextReader creates a reader that returns text for every non-empty image.
func NewMockTextReader(text string) *MockTextReader {
	return &MockTextReader{Text: text}
}

// ReadText returns the configured transcript.
func (m *MockTextReader) ReadText(ctx context.Context, image []byte) (string, error) {
	m.callCount.Add(1)

	if m.ReadTextFunc != nil {
		return m.ReadTextFunc(ctx, image)
	}
	if len(image) == 0 {
		return "", ai.ErrEmptyImage
	}
	return m.Text, nil
}

// CallCount returns the number of ReadText calls.
func (m *MockTextReader) CallCount() int {
	return int(m.callCount.Load())
}
