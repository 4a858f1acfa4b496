package ingest

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	inlineSpace = regexp.MustCompile(`[ \t\f\v\p{Zs}]+`)
	blankRuns   = regexp.MustCompile(`\n{3,}`)
)

// ExtractText normalizes raw plain text into the flat form the Segmenter
// expects: LF line endings, single spaces inside lines, no surrounding
// whitespace and at most one blank line between blocks.
func ExtractText(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = inlineSpace.ReplaceAllString(line, " ")
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

var skipElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"head":     {},
	"template": {},
}

var blockElements = map[string]struct{}{
	"p": {}, "div": {}, "section": {}, "article": {}, "main": {},
	"header": {}, "footer": {}, "ul": {}, "ol": {}, "table": {},
	"tr": {}, "blockquote": {}, "pre": {}, "br": {},
}

var headingLevels = map[string]int{"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6}

// ExtractHTML renders an HTML document as structured plain text: headings
// become "#" lines and list items become "- " bullets, so segmentation
// follows the page structure.
func ExtractHTML(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, skip := skipElements[n.Data]; skip {
				return
			}
			if level, ok := headingLevels[n.Data]; ok {
				buf.WriteString("\n\n" + strings.Repeat("#", level) + " ")
				walkChildren(n, walk)
				buf.WriteString("\n\n")
				return
			}
			if n.Data == "li" {
				buf.WriteString("\n- ")
				walkChildren(n, walk)
				return
			}
			if _, block := blockElements[n.Data]; block {
				buf.WriteString("\n\n")
				walkChildren(n, walk)
				buf.WriteString("\n\n")
				return
			}
		}
		if n.Type == html.TextNode {
			buf.WriteString(strings.ReplaceAll(n.Data, "\n", " "))
		}
		walkChildren(n, walk)
	}
	walk(doc)

	return ExtractText(buf.String()), nil
}

func walkChildren(n *html.Node, walk func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
}
