package crawl

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// removedTags are stripped from the whole document before any text is pulled
// out, regardless of which content root is chosen.
var removedTags = "script, style, nav, footer, aside"

// ExtractText parses HTML and returns the page title plus the readable text of
// the main content area. It is pure and total: malformed markup degrades to
// best-effort text, never an error. Text is capped at maxTextLen characters.
func ExtractText(rawHTML string, maxTextLen int) (title, text string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", ""
	}
	doc.Find(removedTags).Remove()

	title = strings.TrimSpace(doc.Find("title").First().Text())

	root := doc.Selection
	for _, sel := range []string{"main", "article", "body"} {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			root = found
			break
		}
	}

	text = visibleText(root)
	if text == "" {
		text = visibleText(doc.Selection)
	}
	return title, truncateRunes(text, maxTextLen)
}

// visibleText walks the selection's nodes and joins every non-blank text node
// with a single newline, so each logical chunk lands on its own line.
func visibleText(sel *goquery.Selection) string {
	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				lines = append(lines, trimmed)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
