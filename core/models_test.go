package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantSame bool
	}{
		{
			name:     "same content produces same ID",
			content:  "test content",
			wantSame: true,
		},
		{
			name:     "empty string",
			content:  "",
			wantSame: true,
		},
		{
			name:     "long content",
			content:  "Deploying a FastAPI app to Vercel needs a vercel.json with the python runtime configured",
			wantSame: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if tt.wantSame && id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestChunk_ID(t *testing.T) {
	a := Chunk{Text: "same text", URL: "https://a", Source: "A"}
	b := Chunk{Text: "same text", URL: "https://b", Source: "B"}

	if a.ID() != b.ID() {
		t.Errorf("chunk ID should depend on text only")
	}
	if a.ID() != IDFromContent("same text") {
		t.Errorf("chunk ID should equal IDFromContent of its text")
	}
}

func TestFingerprint(t *testing.T) {
	chunks := []Chunk{
		{Text: "first"},
		{Text: "second"},
	}

	t.Run("deterministic", func(t *testing.T) {
		if Fingerprint(chunks) != Fingerprint(chunks) {
			t.Errorf("Fingerprint() not deterministic")
		}
	})

	t.Run("order sensitive", func(t *testing.T) {
		reversed := []Chunk{chunks[1], chunks[0]}
		if Fingerprint(chunks) == Fingerprint(reversed) {
			t.Errorf("Fingerprint() ignored chunk order")
		}
	})

	t.Run("length sensitive", func(t *testing.T) {
		if Fingerprint(chunks) == Fingerprint(chunks[:1]) {
			t.Errorf("Fingerprint() ignored a missing chunk")
		}
	})
}
