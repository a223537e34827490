// Package ingest turns a URL, PDF or text/Markdown file into article
// content that a dialogue can walk through.
package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/apresai/duet/internal/article"
)

type SourceType string

const (
	SourceURL  SourceType = "url"
	SourcePDF  SourceType = "pdf"
	SourceText SourceType = "text"

	// maxInputSize is the maximum allowed size for input content (25 MB).
	maxInputSize = 25 * 1024 * 1024

	maxTitleLen = 80
)

func (s SourceType) String() string {
	return string(s)
}

// Document is an ingested article plus where it came from.
type Document struct {
	Article   article.Content
	Source    string
	WordCount int
}

type Ingester interface {
	Ingest(ctx context.Context, source string) (*Document, error)
}

func DetectSource(input string) SourceType {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return SourceURL
	}
	if strings.HasSuffix(strings.ToLower(input), ".pdf") {
		return SourcePDF
	}
	return SourceText
}

func NewIngester(input string) Ingester {
	switch DetectSource(input) {
	case SourceURL:
		return &URLIngester{}
	case SourcePDF:
		return &PDFIngester{}
	default:
		return &TextIngester{}
	}
}

// Ingest picks an ingester for source and runs it.
func Ingest(ctx context.Context, source string) (*Document, error) {
	return NewIngester(source).Ingest(ctx, source)
}

func newDocument(c article.Content, source string) (*Document, error) {
	if len(c.Description) == 0 && c.Code == "" {
		return nil, fmt.Errorf("no readable content in %s", source)
	}
	if c.Title == "" {
		c.Title = "Untitled"
	}
	words := wordCount(c.Code)
	for _, seg := range c.Description {
		words += wordCount(seg.Content)
	}
	return &Document{Article: c, Source: source, WordCount: words}, nil
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

func truncateTitle(line string) string {
	line = strings.TrimSpace(line)
	if len(line) > maxTitleLen {
		line = line[:maxTitleLen] + "..."
	}
	return line
}

// paragraphs splits plain text on blank lines, joining wrapped lines.
func paragraphs(text string) []article.Segment {
	var segs []article.Segment
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			segs = append(segs, article.Segment{Type: "paragraph", Content: strings.Join(cur, " ")})
			cur = nil
		}
	}
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return segs
}

func validateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() > maxInputSize {
		return fmt.Errorf("%s is too large (%d MB, max %d MB)", path, info.Size()/(1024*1024), maxInputSize/(1024*1024))
	}
	return nil
}
