package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/poiesic/answerit/core"
)

// MarshalChunks serializes chunks as a JSON array of {text,url,source}.
func MarshalChunks(chunks []core.Chunk) ([]byte, error) {
	if chunks == nil {
		chunks = []core.Chunk{}
	}
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalChunks parses a JSON chunk array and validates every chunk.
func UnmarshalChunks(data []byte) ([]core.Chunk, error) {
	var chunks []core.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if err := core.ValidateChunks(chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

// ReadChunksFile loads a chunk store from a JSON file.
func ReadChunksFile(path string) ([]core.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	chunks, err := UnmarshalChunks(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return chunks, nil
}

// WriteChunksFile writes chunks to path, creating parent directories.
// The file is written to a temporary sibling and renamed into place.
func WriteChunksFile(path string, chunks []core.Chunk) error {
	data, err := MarshalChunks(chunks)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
