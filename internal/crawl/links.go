package crawl

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractLinks collects outbound anchors from a page in document order. The
// scan stops as soon as maxLinks links have been accepted. Duplicate absolute
// URLs are dropped (first occurrence wins), as are fragment-only, mailto: and
// non-http(s) targets. With sameDomainOnly set, only links whose host exactly
// matches the page's host survive.
func ExtractLinks(rawHTML, pageURL string, sameDomainOnly bool, maxLinks, maxTextLen int) []Link {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	links := make([]Link, 0, maxLinks)

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if maxLinks > 0 && len(links) >= maxLinks {
			return false
		}
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return true
		}
		if sameDomainOnly && abs.Host != base.Host {
			return true
		}
		absURL := abs.String()
		if _, dup := seen[absURL]; dup {
			return true
		}
		seen[absURL] = struct{}{}

		text := strings.TrimSpace(a.Text())
		if text == "" {
			text = absURL
		}
		links = append(links, Link{URL: absURL, Text: truncateRunes(text, maxTextLen)})
		return true
	})

	return links
}
