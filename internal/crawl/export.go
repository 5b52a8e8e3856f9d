package crawl

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// docExportPattern pulls the document identifier out of a Google Docs path.
var docExportPattern = regexp.MustCompile(`^/document/d/([a-zA-Z0-9_-]+)`)

// minExportTextLen guards against export endpoints that answer with an error
// page or an empty shell instead of the document body.
const minExportTextLen = 200

// docExportURL derives the plain-text export endpoint for a hosted document
// URL, when one exists. Export fetches are far cheaper than a browser render.
func docExportURL(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host != "docs.google.com" {
		return "", false
	}
	m := docExportPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return "", false
	}
	return fmt.Sprintf("https://docs.google.com/document/d/%s/export?format=txt", m[1]), true
}

// tryDocExport fetches the export endpoint and returns its text when the
// output looks like real document content. Any failure falls through to the
// normal render pipeline.
func (c *Crawler) tryDocExport(ctx context.Context, rawURL string) (string, bool) {
	exportURL, ok := docExportURL(rawURL)
	if !ok {
		return "", false
	}
	res, err := c.fetcher.Fetch(ctx, exportURL)
	if err != nil {
		c.logger.Debug("doc export fetch failed", zap.String("url", exportURL), zap.Error(err))
		return "", false
	}
	text := strings.TrimSpace(res.HTML)
	if len(text) < minExportTextLen || strings.HasPrefix(text, "<") {
		return "", false
	}
	return text, true
}
