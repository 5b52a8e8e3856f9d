// Package mcptool exposes the crawl and search operations as MCP tools over
// streamable HTTP, so agent runtimes can drive the pipeline directly.
package mcptool

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/flocrawl/flocrawl/internal/config"
	"github.com/flocrawl/flocrawl/internal/crawl"
	"github.com/flocrawl/flocrawl/internal/search"
)

// Server owns the MCP server instance and its tool registrations.
type Server struct {
	srv      *mcp.Server
	crawler  *crawl.Crawler
	resolver *search.Resolver
	cfg      config.Config
	logger   *zap.Logger
}

// New builds the MCP server and registers the tool set.
func New(crawler *crawl.Crawler, resolver *search.Resolver, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		srv: mcp.NewServer(&mcp.Implementation{
			Name:    "flocrawl",
			Version: "1.0.0",
		}, nil),
		crawler:  crawler,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
	}
	s.registerTools()
	return s
}

// Handler returns the streamable HTTP handler for mounting under /mcp.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return s.srv },
		&mcp.StreamableHTTPOptions{Stateless: true},
	)
}

type searchWebInput struct {
	Query      string `json:"query" jsonschema:"required" jsonschema_description:"Free-text search query"`
	MaxResults int    `json:"max_results,omitempty" jsonschema_description:"Maximum number of results to return"`
	Region     string `json:"region,omitempty" jsonschema_description:"Backend region hint, e.g. us-en"`
}

type searchWebOutput struct {
	Results []search.Hit `json:"results"`
}

type scrapeURLInput struct {
	URL string `json:"url" jsonschema:"required" jsonschema_description:"Page URL to scrape"`
}

type listLinksInput struct {
	URL            string `json:"url" jsonschema:"required" jsonschema_description:"Page URL to list links from"`
	SameDomainOnly bool   `json:"same_domain_only,omitempty" jsonschema_description:"Keep only links on the page's own host"`
}

type scrapeLinksInput struct {
	URL            string `json:"url" jsonschema:"required" jsonschema_description:"Base page whose links are followed"`
	SameDomainOnly bool   `json:"same_domain_only,omitempty" jsonschema_description:"Keep only links on the page's own host"`
	MaxPages       int    `json:"max_pages,omitempty" jsonschema_description:"Maximum number of linked pages to scrape"`
}

type scrapeURLsInput struct {
	URLs []string `json:"urls" jsonschema:"required" jsonschema_description:"Explicit list of page URLs to scrape"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.srv,
		&mcp.Tool{
			Name:        "search_web",
			Description: "Search the web via a cascade of keyless search backends and return title/url/snippet hits.",
		},
		func(ctx context.Context, _ *mcp.CallToolRequest, args searchWebInput) (*mcp.CallToolResult, searchWebOutput, error) {
			if args.Query == "" {
				return toolError("query is required"), searchWebOutput{}, nil
			}
			maxResults := args.MaxResults
			if maxResults <= 0 || maxResults > s.cfg.Search.MaxResults {
				maxResults = s.cfg.Search.MaxResults
			}
			region := args.Region
			if region == "" {
				region = s.cfg.Search.Region
			}
			hits := s.resolver.Search(ctx, args.Query, maxResults, region)
			return nil, searchWebOutput{Results: hits}, nil
		},
	)

	mcp.AddTool(s.srv,
		&mcp.Tool{
			Name:        "scrape_url",
			Description: "Fetch one page and return its title and readable text. JS-only pages are rendered in a headless browser when available.",
		},
		func(ctx context.Context, _ *mcp.CallToolRequest, args scrapeURLInput) (*mcp.CallToolResult, crawl.PageResult, error) {
			if args.URL == "" {
				return toolError("url is required"), crawl.PageResult{}, nil
			}
			return nil, s.crawler.ScrapeURL(ctx, args.URL), nil
		},
	)

	mcp.AddTool(s.srv,
		&mcp.Tool{
			Name:        "list_links",
			Description: "Fetch one page and return its outbound links as absolute URLs with anchor text.",
		},
		func(ctx context.Context, _ *mcp.CallToolRequest, args listLinksInput) (*mcp.CallToolResult, crawl.LinkList, error) {
			if args.URL == "" {
				return toolError("url is required"), crawl.LinkList{}, nil
			}
			return nil, s.crawler.ListLinks(ctx, args.URL, args.SameDomainOnly), nil
		},
	)

	mcp.AddTool(s.srv,
		&mcp.Tool{
			Name:        "scrape_links",
			Description: "List the links on a base page, then scrape the linked pages concurrently. Per-page failures are reported in errors.",
		},
		func(ctx context.Context, _ *mcp.CallToolRequest, args scrapeLinksInput) (*mcp.CallToolResult, crawl.CrawlResult, error) {
			if args.URL == "" {
				return toolError("url is required"), crawl.CrawlResult{}, nil
			}
			return nil, s.crawler.ScrapeLinks(ctx, args.URL, args.SameDomainOnly, args.MaxPages), nil
		},
	)

	mcp.AddTool(s.srv,
		&mcp.Tool{
			Name:        "scrape_urls",
			Description: "Scrape an explicit list of page URLs concurrently. Per-page failures are reported in errors.",
		},
		func(ctx context.Context, _ *mcp.CallToolRequest, args scrapeURLsInput) (*mcp.CallToolResult, crawl.CrawlResult, error) {
			return nil, s.crawler.ScrapeURLs(ctx, args.URLs), nil
		},
	)
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
