package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/apresai/duet/internal/article"
)

// URLIngester fetches a web page and keeps its readable article. Headings
// and paragraphs become segments and the first <pre> block becomes the
// code, with its language taken from a "language-xxx" class.
type URLIngester struct {
	Client *http.Client
}

func (u *URLIngester) Ingest(ctx context.Context, source string) (*Document, error) {
	parsed, err := url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %s: %w", source, err)
	}

	client := u.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %s: %w", source, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch URL %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("could not fetch URL %s: HTTP %d", source, resp.StatusCode)
	}

	// Classes carry the code block language.
	parser := readability.NewParser()
	parser.KeepClasses = true

	limited := io.LimitReader(resp.Body, maxInputSize)
	page, err := parser.Parse(limited, parsed)
	if err != nil {
		return nil, fmt.Errorf("could not extract article from %s: %w", source, err)
	}

	var c article.Content
	if page.Node != nil {
		c = fromNode(page.Node)
	}
	if len(c.Description) == 0 {
		c.Description = paragraphs(page.TextContent)
	}
	c.Title = truncateTitle(page.Title)
	if c.Title == "" && len(c.Description) > 0 {
		c.Title = truncateTitle(c.Description[0].Content)
	}

	return newDocument(c, source)
}

func fromNode(root *html.Node) article.Content {
	var c article.Content
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "h1", "h2", "h3", "h4", "h5", "h6":
				if text := nodeText(n); text != "" {
					c.Description = append(c.Description, article.Segment{Type: "heading", Content: text})
				}
				return
			case "p", "li", "blockquote":
				if text := nodeText(n); text != "" {
					c.Description = append(c.Description, article.Segment{Type: "paragraph", Content: text})
				}
				return
			case "pre":
				if c.Code == "" {
					c.Code = strings.TrimRight(rawText(n), "\n")
					c.Language = codeLanguage(n)
				}
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return c
}

// nodeText returns the whitespace-collapsed text under n.
func nodeText(n *html.Node) string {
	return strings.Join(strings.Fields(rawText(n)), " ")
}

func rawText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}

// codeLanguage looks for a language-xxx or lang-xxx class on n or its
// first <code> child.
func codeLanguage(n *html.Node) string {
	candidates := []*html.Node{n}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode && child.Data == "code" {
			candidates = append(candidates, child)
			break
		}
	}
	for _, node := range candidates {
		for _, attr := range node.Attr {
			if attr.Key != "class" {
				continue
			}
			for _, class := range strings.Fields(attr.Val) {
				for _, prefix := range []string{"language-", "lang-"} {
					if lang, ok := strings.CutPrefix(class, prefix); ok && lang != "" {
						return lang
					}
				}
			}
		}
	}
	return ""
}
