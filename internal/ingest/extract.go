package ingest

import (
	"fmt"
	"mime"
	"strings"

	"github.com/yuin/goldmark"
	mdast "github.com/yuin/goldmark/ast"
	mdtext "github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// ExtractText turns raw resource bytes into plain text suitable for
// chunking. HTML and markdown are reduced to their visible text; anything
// else is treated as plain text.
func ExtractText(data []byte, mimeType string) (string, error) {
	mediaType := mimeType
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		mediaType = parsed
	}
	switch mediaType {
	case "text/html":
		return ExtractHTMLText(string(data)), nil
	case "text/markdown":
		return extractMarkdownText(data), nil
	case "", "text/plain", "application/octet-stream", "text/csv", "application/json":
		return string(data), nil
	default:
		if strings.HasPrefix(mediaType, "text/") {
			return string(data), nil
		}
		return "", fmt.Errorf("unsupported content type: %s", mimeType)
	}
}

// ExtractHTMLText strips markup and returns the visible text of an HTML
// page with whitespace collapsed. Script and style bodies are dropped.
func ExtractHTMLText(page string) string {
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return strings.Join(strings.Fields(page), " ")
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// ExtractHTMLTitle returns the page <title>, or empty when absent.
func ExtractHTMLTitle(page string) string {
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return ""
	}
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return title
}

func extractMarkdownText(source []byte) string {
	md := goldmark.New()
	reader := mdtext.NewReader(source)
	doc := md.Parser().Parse(reader)

	var sb strings.Builder
	_ = mdast.Walk(doc, func(node mdast.Node, entering bool) (mdast.WalkStatus, error) {
		if !entering {
			return mdast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *mdast.Text:
			sb.Write(n.Segment.Value(source))
			sb.WriteByte(' ')
		case *mdast.FencedCodeBlock:
			for i := 0; i < n.Lines().Len(); i++ {
				line := n.Lines().At(i)
				sb.Write(line.Value(source))
			}
			sb.WriteByte(' ')
		}
		return mdast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}
