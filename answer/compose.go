// Package answer turns retrieved chunks into the response text and links.
package answer

import (
	"strconv"
	"strings"

	"github.com/poiesic/answerit/core"
)

const (
	// ExcerptLength is the maximum number of characters kept from each chunk.
	ExcerptLength = 300

	courseHeader    = "📘 **Course Content:**\n"
	discourseHeader = "\n💬 **Discourse Posts:**\n"
)

// Excerpt trims text, keeps its first ExcerptLength characters and trims
// the result again.
func Excerpt(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) > ExcerptLength {
		text = string(runes[:ExcerptLength])
	}
	return strings.TrimSpace(text)
}

// Compose builds the answer for ranked course and discourse chunks.
//
// Each section lists its chunks as numbered excerpts in rank order. Both
// headers are always present, even for empty sections. Links hold every
// course chunk followed by every discourse chunk, without deduplication.
func Compose(course, discourse []core.Chunk) *core.Answer {
	var b strings.Builder

	b.WriteString(courseHeader)
	writeSection(&b, course)

	b.WriteString(discourseHeader)
	writeSection(&b, discourse)

	links := make([]core.Link, 0, len(course)+len(discourse))
	for _, c := range course {
		links = append(links, core.Link{URL: c.URL, Text: c.Source})
	}
	for _, c := range discourse {
		links = append(links, core.Link{URL: c.URL, Text: c.Source})
	}

	return &core.Answer{
		Answer: strings.TrimSpace(b.String()),
		Links:  links,
	}
}

func writeSection(b *strings.Builder, chunks []core.Chunk) {
	for i, c := range chunks {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(Excerpt(c.Text))
		b.WriteString("...\n\n")
	}
}
