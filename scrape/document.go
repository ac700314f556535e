package scrape

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Document is one scraped page: a Discourse topic or a course file.
type Document struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// WriteDocuments writes docs to path as an indented JSON array.
func WriteDocuments(path string, docs []Document) error {
	if docs == nil {
		docs = []Document{}
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode documents: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write documents: %w", err)
	}
	return nil
}

// ReadDocuments reads a JSON array written by WriteDocuments.
func ReadDocuments(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}
	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return docs, nil
}
