package mcptool

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flocrawl/flocrawl/internal/config"
	"github.com/flocrawl/flocrawl/internal/crawl"
	"github.com/flocrawl/flocrawl/internal/search"
)

type stubFetcher struct {
	pages map[string]string
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string) (crawl.FetchResult, error) {
	html, ok := f.pages[rawURL]
	if !ok {
		return crawl.FetchResult{}, &crawl.FetchError{Kind: crawl.FetchErrHTTPStatus, Code: 404}
	}
	return crawl.FetchResult{URL: rawURL, FinalURL: rawURL, Status: 200, HTML: html}, nil
}

type stubStrategy struct {
	hits []search.Hit
}

func (s *stubStrategy) Name() string { return "stub" }

func (s *stubStrategy) Search(context.Context, string, int, string) ([]search.Hit, error) {
	return s.hits, nil
}

func newSession(t *testing.T, pages map[string]string, hits []search.Hit) *mcp.ClientSession {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)

	crawler := crawl.New(cfg.CrawlSettings(), &stubFetcher{pages: pages},
		crawl.NoopRenderer{}, nil, nil, zap.NewNop())
	resolver := search.NewResolver([]search.Strategy{&stubStrategy{hits: hits}},
		cfg.SearchOptions(), zap.NewNop())

	srv := New(crawler, resolver, cfg, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(context.Background(),
		&mcp.StreamableClientTransport{Endpoint: ts.URL}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestListTools(t *testing.T) {
	session := newSession(t, nil, nil)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t,
		[]string{"search_web", "scrape_url", "list_links", "scrape_links", "scrape_urls"},
		names)
}

func TestSearchWebTool(t *testing.T) {
	hits := []search.Hit{{Title: "Go", URL: "https://go.dev/", Snippet: "The Go language"}}
	session := newSession(t, nil, hits)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "search_web",
		Arguments: map[string]any{"query": "golang"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	out, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var parsed struct {
		Results []search.Hit `json:"results"`
	}
	require.NoError(t, json.Unmarshal(out, &parsed))
	require.Len(t, parsed.Results, 1)
	assert.Equal(t, "https://go.dev/", parsed.Results[0].URL)
}

func TestSearchWebToolRequiresQuery(t *testing.T) {
	session := newSession(t, nil, nil)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "search_web",
		Arguments: map[string]any{"query": ""},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestScrapeURLTool(t *testing.T) {
	session := newSession(t, map[string]string{
		"https://example.com/": `<html><head><title>Example</title></head><body><p>tool content</p></body></html>`,
	}, nil)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "scrape_url",
		Arguments: map[string]any{"url": "https://example.com/"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	out, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var page crawl.PageResult
	require.NoError(t, json.Unmarshal(out, &page))
	assert.Equal(t, "Example", page.Title)
	assert.Equal(t, "tool content", page.Text)
}

func TestScrapeLinksTool(t *testing.T) {
	session := newSession(t, map[string]string{
		"https://example.com/":  `<a href="/a">A</a>`,
		"https://example.com/a": `<html><body>linked page</body></html>`,
	}, nil)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name: "scrape_links",
		Arguments: map[string]any{
			"url":              "https://example.com/",
			"same_domain_only": true,
		},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	out, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var result crawl.CrawlResult
	require.NoError(t, json.Unmarshal(out, &result))
	assert.Equal(t, "https://example.com/", result.BaseURL)
	require.Len(t, result.Pages, 1)
	assert.Equal(t, "linked page", result.Pages[0].Text)
}

func TestScrapeURLsToolEmptyInput(t *testing.T) {
	session := newSession(t, nil, nil)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "scrape_urls",
		Arguments: map[string]any{"urls": []string{}},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	out, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var result crawl.CrawlResult
	require.NoError(t, json.Unmarshal(out, &result))
	assert.Empty(t, result.Pages)
	assert.Empty(t, result.Errors)
}
