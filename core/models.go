package core

import (
	"encoding/binary"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier for chunks and chunk stores.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Corpus names used by the question answering pipeline.
const (
	CorpusCourse    = "course"
	CorpusDiscourse = "discourse"
)

// Chunk is an immutable unit of retrievable text with its provenance.
// Use NewChunk to construct one; URL and Source are kept verbatim.
type Chunk struct {
	Text   string `json:"text"`
	URL    string `json:"url"`
	Source string `json:"source"`
}

// ID returns the content-derived identifier of the chunk text.
func (c Chunk) ID() ID {
	return IDFromContent(c.Text)
}

// Link is a source reference returned alongside an answer.
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Answer is the composite response for a question.
type Answer struct {
	Answer string `json:"answer"`
	Links  []Link `json:"links"`
}

// Fingerprint derives a single ID for an ordered chunk sequence.
// Reordering, adding or editing any chunk changes the fingerprint.
func Fingerprint(chunks []Chunk) ID {
	h, _ := blake2b.New(8, nil)
	var buf [8]byte
	for _, c := range chunks {
		binary.LittleEndian.PutUint64(buf[:], uint64(c.ID()))
		h.Write(buf[:])
	}
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}
