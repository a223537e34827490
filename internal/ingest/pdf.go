package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/apresai/duet/internal/article"
)

// PDFIngester extracts plain text page by page. Each page's text is split
// into paragraphs; the first line of the document is the title.
type PDFIngester struct{}

func (p *PDFIngester) Ingest(ctx context.Context, source string) (*Document, error) {
	if err := validateFile(source); err != nil {
		return nil, err
	}

	f, r, err := pdf.Open(source)
	if err != nil {
		return nil, fmt.Errorf("could not read PDF %s: %w", source, err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue // Skip pages that fail to extract
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	text := strings.TrimSpace(sb.String())
	if len(text) == 0 {
		return nil, fmt.Errorf("could not extract text from PDF %s: it may be scanned or image-based", source)
	}

	title, body, _ := strings.Cut(text, "\n")
	segs := paragraphs(body)
	if len(segs) == 0 {
		segs = paragraphs(text)
	}
	return newDocument(article.Content{
		Title:       truncateTitle(title),
		Description: segs,
	}, filepath.Base(source))
}
