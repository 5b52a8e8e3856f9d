package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Brave scrapes search.brave.com as the deepest fallback. Its markup shifts
// more often than DuckDuckGo's, so the selectors stay loose: any result
// container with an outbound anchor counts.
type Brave struct {
	client    *http.Client
	userAgent string
	endpoint  string
}

// NewBrave builds the Brave scrape strategy.
func NewBrave(client *http.Client, userAgent string) *Brave {
	return &Brave{
		client:    client,
		userAgent: userAgent,
		endpoint:  "https://search.brave.com/search",
	}
}

// Name identifies the strategy in logs and metrics.
func (b *Brave) Name() string { return "brave" }

// Search fetches one result page and scrapes the snippet containers.
func (b *Brave) Search(ctx context.Context, query string, maxResults int, region string) ([]Hit, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("source", "web")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		searchAttemptErrorsTotal.WithLabelValues(b.Name()).Inc()
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("User-Agent", b.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := b.client.Do(req)
	if err != nil {
		searchAttemptErrorsTotal.WithLabelValues(b.Name()).Inc()
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		searchAttemptErrorsTotal.WithLabelValues(b.Name()).Inc()
		return nil, fmt.Errorf("search backend rate limited: HTTP 429")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		searchAttemptErrorsTotal.WithLabelValues(b.Name()).Inc()
		return nil, fmt.Errorf("search backend: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		searchAttemptErrorsTotal.WithLabelValues(b.Name()).Inc()
		return nil, fmt.Errorf("read search response: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		searchAttemptErrorsTotal.WithLabelValues(b.Name()).Inc()
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	hits := make([]Hit, 0, maxResults)
	doc.Find("div.snippet").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if maxResults > 0 && len(hits) >= maxResults {
			return false
		}
		anchor := sel.Find("a[href]").First()
		href, ok := anchor.Attr("href")
		if !ok || !isHTTPURL(href) {
			return true
		}
		title := strings.TrimSpace(sel.Find(".title").First().Text())
		if title == "" {
			title = strings.TrimSpace(anchor.Text())
		}
		hits = append(hits, Hit{
			Title:   title,
			URL:     href,
			Snippet: strings.TrimSpace(sel.Find(".snippet-description").First().Text()),
		})
		return true
	})

	if len(hits) == 0 {
		return nil, ErrNoResults
	}
	return hits, nil
}
