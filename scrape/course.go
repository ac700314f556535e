package scrape

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdownExtensions = []string{".md", ".markdown"}

// LoadCourse reads every markdown file under dir. A document's title is its
// front matter title, else its first heading, else its file name without
// extension. Its URL is baseURL joined with the file's path relative to dir.
// Documents are returned in lexical path order.
func LoadCourse(dir, baseURL string) ([]Document, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if slices.Contains(markdownExtensions, strings.ToLower(filepath.Ext(path))) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list course files: %w", err)
	}
	slices.Sort(paths)

	parser := goldmark.New().Parser()
	docs := make([]Document, 0, len(paths))
	for _, path := range paths {
		source, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil, err
		}

		fmTitle, body := splitFrontMatter(source)
		title := fmTitle
		if title == "" {
			title = firstHeading(parser.Parse(text.NewReader(body)), body)
		}
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}

		docs = append(docs, Document{
			Title:   title,
			URL:     courseURL(baseURL, filepath.ToSlash(rel)),
			Content: strings.TrimSpace(string(body)),
		})
	}
	return docs, nil
}

func courseURL(baseURL, rel string) string {
	if baseURL == "" {
		return rel
	}
	return strings.TrimRight(baseURL, "/") + "/" + rel
}

// firstHeading returns the plain text of the first heading in doc.
func firstHeading(doc ast.Node, source []byte) string {
	var title string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		title = strings.TrimSpace(inlineText(heading, source))
		if title == "" {
			return ast.WalkContinue, nil
		}
		return ast.WalkStop, nil
	})
	return title
}

func inlineText(n ast.Node, source []byte) string {
	var buf strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(source))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
			continue
		}
		buf.WriteString(inlineText(c, source))
	}
	return buf.String()
}

// splitFrontMatter separates a leading "---" delimited block and returns
// its title value, if any, along with the remaining markdown.
func splitFrontMatter(source []byte) (string, []byte) {
	lines := bytes.SplitAfter(source, []byte("\n"))
	if len(lines) == 0 || strings.TrimRight(string(lines[0]), "\r\n") != "---" {
		return "", source
	}

	var title string
	offset := len(lines[0])
	for _, raw := range lines[1:] {
		offset += len(raw)
		line := strings.TrimRight(string(raw), "\r\n")
		if strings.TrimSpace(line) == "---" {
			return title, source[offset:]
		}
		if key, value, ok := strings.Cut(line, ":"); ok && strings.TrimSpace(key) == "title" {
			title = strings.Trim(strings.TrimSpace(value), `"'`)
		}
	}
	// Unterminated front matter is treated as ordinary markdown.
	return "", source
}
