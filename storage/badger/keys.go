package badger

import "fmt"

// Key prefixes for different data types
const (
	chunkPrefix    = "chunk"
	manifestPrefix = "manifest"
)

// makeChunkKey generates a key for the chunk at position in corpus.
// Positions are zero padded so keys sort in position order.
func makeChunkKey(corpus string, position int) string {
	return fmt.Sprintf("%s:%s:%010d", chunkPrefix, corpus, position)
}

// makeManifestKey generates a key for a corpus build manifest.
func makeManifestKey(corpus string) string {
	return fmt.Sprintf("%s:%s", manifestPrefix, corpus)
}
