package ai

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Truncator shortens text to fit a model's input window.
type Truncator interface {
	Truncate(text string) string
}

// RuneTruncator keeps at most Max characters. Max <= 0 disables truncation.
type RuneTruncator struct {
	Max int
}

// Truncate returns the first Max runes of text.
func (t RuneTruncator) Truncate(text string) string {
	if t.Max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= t.Max {
		return text
	}
	return string(runes[:t.Max])
}

// TokenTruncator keeps at most Max cl100k_base tokens.
type TokenTruncator struct {
	encoding *tiktoken.Tiktoken
	max      int
}

// NewTokenTruncator loads the cl100k_base encoding.
// The encoding tables are fetched on first use, so construction may fail
// in offline environments; callers fall back to RuneTruncator.
func NewTokenTruncator(maxTokens int) (*TokenTruncator, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}
	return &TokenTruncator{encoding: encoding, max: maxTokens}, nil
}

// Truncate returns the longest token prefix of text within the limit.
func (t *TokenTruncator) Truncate(text string) string {
	if t.max <= 0 {
		return text
	}
	tokens := t.encoding.Encode(text, nil, nil)
	if len(tokens) <= t.max {
		return text
	}
	return t.encoding.Decode(tokens[:t.max])
}

// CountTokens returns the cl100k_base token count of text.
func (t *TokenTruncator) CountTokens(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}

// PrepareText validates and truncates text before embedding.
// A nil truncator leaves the text length unchanged.
func PrepareText(text string, truncator Truncator) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	if truncator == nil {
		return text, nil
	}
	return truncator.Truncate(text), nil
}

// PrepareTexts applies PrepareText to every element, failing on the first empty text.
func PrepareTexts(texts []string, truncator Truncator) ([]string, error) {
	prepared := make([]string, len(texts))
	for i, text := range texts {
		p, err := PrepareText(text, truncator)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		prepared[i] = p
	}
	return prepared, nil
}
