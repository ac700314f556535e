package scrape

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// noiseSelector matches parts of cooked posts that carry no text worth
// indexing: image captions, lightbox controls and quote headers.
const noiseSelector = "script, style, .lightbox-wrapper .meta, aside.quote .title, .onebox .source"

// cookedToMarkdown converts the rendered HTML of a post to markdown.
// Emoji images are replaced by their alt text.
func cookedToMarkdown(converter *md.Converter, cooked string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cooked))
	if err != nil {
		return "", fmt.Errorf("failed to parse post HTML: %w", err)
	}

	doc.Find(noiseSelector).Remove()
	doc.Find("img.emoji").Each(func(_ int, s *goquery.Selection) {
		alt, _ := s.Attr("alt")
		s.ReplaceWithHtml(alt)
	})

	body, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("failed to render post HTML: %w", err)
	}

	markdown, err := converter.ConvertString(body)
	if err != nil {
		return "", fmt.Errorf("failed to convert post to markdown: %w", err)
	}
	return strings.TrimSpace(markdown), nil
}
