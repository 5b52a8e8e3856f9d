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

// DuckDuckGo scrapes the no-JS HTML endpoint. It is the first line of the
// cascade because it needs no API key and tolerates moderate traffic.
type DuckDuckGo struct {
	client    *http.Client
	userAgent string
	endpoint  string
}

// NewDuckDuckGo builds the html.duckduckgo.com strategy.
func NewDuckDuckGo(client *http.Client, userAgent string) *DuckDuckGo {
	return &DuckDuckGo{
		client:    client,
		userAgent: userAgent,
		endpoint:  "https://html.duckduckgo.com/html/",
	}
}

// Name identifies the strategy in logs and metrics.
func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search fetches one result page and scrapes the result anchors.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int, region string) ([]Hit, error) {
	doc, err := fetchDocument(ctx, d.client, d.userAgent, d.endpoint, query, region)
	if err != nil {
		searchAttemptErrorsTotal.WithLabelValues(d.Name()).Inc()
		return nil, err
	}

	hits := make([]Hit, 0, maxResults)
	doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if maxResults > 0 && len(hits) >= maxResults {
			return false
		}
		anchor := sel.Find("a.result__a").First()
		href, ok := anchor.Attr("href")
		if !ok {
			return true
		}
		dest := unwrapRedirect(href)
		if !isHTTPURL(dest) {
			return true
		}
		hits = append(hits, Hit{
			Title:   strings.TrimSpace(anchor.Text()),
			URL:     dest,
			Snippet: strings.TrimSpace(sel.Find(".result__snippet").First().Text()),
		})
		return true
	})

	if len(hits) == 0 {
		return nil, ErrNoResults
	}
	return hits, nil
}

// DuckDuckGoLite scrapes the lite endpoint, a plain-table rendering that has
// historically survived scraping-resistance changes longer than the html one.
type DuckDuckGoLite struct {
	client    *http.Client
	userAgent string
	endpoint  string
}

// NewDuckDuckGoLite builds the lite.duckduckgo.com strategy.
func NewDuckDuckGoLite(client *http.Client, userAgent string) *DuckDuckGoLite {
	return &DuckDuckGoLite{
		client:    client,
		userAgent: userAgent,
		endpoint:  "https://lite.duckduckgo.com/lite/",
	}
}

// Name identifies the strategy in logs and metrics.
func (d *DuckDuckGoLite) Name() string { return "duckduckgo-lite" }

// Search scrapes the lite table layout. Result links and snippets live in
// sibling table rows, so they are collected independently and zipped by index.
func (d *DuckDuckGoLite) Search(ctx context.Context, query string, maxResults int, region string) ([]Hit, error) {
	doc, err := fetchDocument(ctx, d.client, d.userAgent, d.endpoint, query, region)
	if err != nil {
		searchAttemptErrorsTotal.WithLabelValues(d.Name()).Inc()
		return nil, err
	}

	var hits []Hit
	// Snippet rows track anchor rows by source position, so a skipped anchor
	// must also skip its snippet. byRow maps anchor position to hit index.
	byRow := make(map[int]int)
	doc.Find("a.result-link").Each(func(row int, anchor *goquery.Selection) {
		href, ok := anchor.Attr("href")
		if !ok {
			return
		}
		dest := unwrapRedirect(href)
		if !isHTTPURL(dest) {
			return
		}
		byRow[row] = len(hits)
		hits = append(hits, Hit{
			Title: strings.TrimSpace(anchor.Text()),
			URL:   dest,
		})
	})
	doc.Find("td.result-snippet").Each(func(row int, td *goquery.Selection) {
		if idx, ok := byRow[row]; ok {
			hits[idx].Snippet = strings.TrimSpace(td.Text())
		}
	})

	if maxResults > 0 && len(hits) > maxResults {
		hits = hits[:maxResults]
	}
	if len(hits) == 0 {
		return nil, ErrNoResults
	}
	return hits, nil
}

// fetchDocument issues the GET shared by both DuckDuckGo variants and parses
// the response. The region hint maps onto the kl query parameter.
func fetchDocument(ctx context.Context, client *http.Client, userAgent, endpoint, query, region string) (*goquery.Document, error) {
	params := url.Values{}
	params.Set("q", query)
	if region != "" {
		params.Set("kl", region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("search backend rate limited: HTTP 429")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("search backend: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}
	return doc, nil
}

// unwrapRedirect extracts the true destination from DuckDuckGo's redirect
// wrapper (the uddg query parameter). Unwrapped links pass through untouched.
func unwrapRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if !strings.Contains(u.Path, "/l/") && u.Query().Get("uddg") == "" {
		return href
	}
	if dest := u.Query().Get("uddg"); dest != "" {
		if unescaped, err := url.QueryUnescape(dest); err == nil {
			return unescaped
		}
		return dest
	}
	return href
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
