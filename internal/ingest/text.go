package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apresai/duet/internal/article"
)

// TextIngester reads plain text or Markdown. "#" lines become headings,
// the first fenced code block becomes the article's code, and everything
// else is split into paragraphs.
type TextIngester struct{}

func (t *TextIngester) Ingest(ctx context.Context, source string) (*Document, error) {
	if err := validateFile(source); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("could not read file %s: %w", source, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("file %s is empty", source)
	}

	return newDocument(parseMarkdown(string(data)), filepath.Base(source))
}

func parseMarkdown(text string) article.Content {
	var (
		c       article.Content
		prose   strings.Builder
		code    strings.Builder
		inFence bool
		fenceNo int
		lang    string
	)
	flushProse := func() {
		c.Description = append(c.Description, paragraphs(prose.String())...)
		prose.Reset()
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			if !inFence {
				inFence = true
				fenceNo++
				lang = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
				continue
			}
			inFence = false
			if fenceNo == 1 {
				c.Code = strings.TrimRight(code.String(), "\n")
				c.Language = lang
			}
			continue
		}
		if inFence {
			if fenceNo == 1 {
				code.WriteString(line)
				code.WriteByte('\n')
			}
			continue
		}

		if strings.HasPrefix(trimmed, "#") {
			heading := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			if heading == "" {
				continue
			}
			flushProse()
			if c.Title == "" {
				c.Title = truncateTitle(heading)
				continue
			}
			c.Description = append(c.Description, article.Segment{Type: "heading", Content: heading})
			continue
		}

		prose.WriteString(line)
		prose.WriteByte('\n')
	}
	flushProse()

	if c.Title == "" && len(c.Description) > 0 {
		c.Title = truncateTitle(c.Description[0].Content)
	}
	return c
}
