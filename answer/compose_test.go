package answer

import (
	"strings"
	"testing"

	"github.com/poiesic/answerit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose_BothEmpty(t *testing.T) {
	a := Compose(nil, nil)

	assert.Equal(t, "📘 **Course Content:**\n\n💬 **Discourse Posts:**", a.Answer)
	assert.NotNil(t, a.Links)
	assert.Empty(t, a.Links)
}

func TestCompose_Format(t *testing.T) {
	course := []core.Chunk{
		{Text: "  Week 1 covers the shell.  ", URL: "https://tds/w1", Source: "Week 1"},
		{Text: "Week 2 covers git.", URL: "https://tds/w2", Source: "Week 2"},
	}
	discourse := []core.Chunk{
		{Text: "Use the GA4 dashboard.", URL: "https://discourse/t/1", Source: "GA4 help"},
	}

	a := Compose(course, discourse)

	want := "📘 **Course Content:**\n" +
		"1. Week 1 covers the shell....\n\n" +
		"2. Week 2 covers git....\n\n" +
		"\n💬 **Discourse Posts:**\n" +
		"1. Use the GA4 dashboard...."
	assert.Equal(t, want, a.Answer)

	assert.Equal(t, []core.Link{
		{URL: "https://tds/w1", Text: "Week 1"},
		{URL: "https://tds/w2", Text: "Week 2"},
		{URL: "https://discourse/t/1", Text: "GA4 help"},
	}, a.Links)
}

func TestCompose_LinksNotDeduplicated(t *testing.T) {
	dup := core.Chunk{Text: "same", URL: "https://same", Source: "Same"}

	a := Compose([]core.Chunk{dup, dup}, []core.Chunk{dup})
	require.Len(t, a.Links, 3)
	for _, l := range a.Links {
		assert.Equal(t, "https://same", l.URL)
	}
}

func TestCompose_EmptyURLAndSourceKept(t *testing.T) {
	a := Compose([]core.Chunk{{Text: "no metadata"}}, nil)
	assert.Equal(t, []core.Link{{}}, a.Links)
}

func TestExcerpt_TruncationLaw(t *testing.T) {
	long := strings.Repeat("é", 500)
	got := Excerpt(long)
	assert.Equal(t, ExcerptLength, len([]rune(got)))

	// Whitespace at the cut point is trimmed away.
	text := strings.Repeat("a", 299) + " " + strings.Repeat("b", 10)
	assert.Equal(t, strings.Repeat("a", 299), Excerpt(text))

	// Leading whitespace does not count against the limit.
	text = "\n\n   " + strings.Repeat("x", 300) + "tail"
	assert.Equal(t, strings.Repeat("x", 300), Excerpt(text))

	assert.Equal(t, "short", Excerpt("  short \n"))
}

func TestCompose_ExcerptLengthBound(t *testing.T) {
	chunks := []core.Chunk{
		{Text: strings.Repeat("word ", 200)},
		{Text: "tiny"},
	}

	a := Compose(chunks, chunks)
	for _, line := range strings.Split(a.Answer, "\n") {
		if !strings.HasSuffix(line, "...") {
			continue
		}
		body := strings.TrimSuffix(line[strings.Index(line, ". ")+2:], "...")
		assert.LessOrEqual(t, len([]rune(body)), ExcerptLength)
	}
}
