// Package api exposes the HTTP interface for the crawl and search pipeline.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/flocrawl/flocrawl/internal/config"
	"github.com/flocrawl/flocrawl/internal/crawl"
	"github.com/flocrawl/flocrawl/internal/search"
)

// IDGenerator produces request identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Clock abstracts wall time for uptime reporting and request logs.
type Clock interface {
	Now() time.Time
}

// Server wires HTTP handlers to the crawler and the search resolver.
type Server struct {
	router    chi.Router
	crawler   *crawl.Crawler
	resolver  *search.Resolver
	cfg       config.Config
	logger    *zap.Logger
	idGen     IDGenerator
	clock     Clock
	startedAt time.Time
}

// NewServer constructs a Server with middleware and routes. mcpHandler is
// mounted under /mcp when non-nil.
func NewServer(
	crawler *crawl.Crawler,
	resolver *search.Resolver,
	idGen IDGenerator,
	clock Clock,
	cfg config.Config,
	logger *zap.Logger,
	mcpHandler http.Handler,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		crawler:   crawler,
		resolver:  resolver,
		cfg:       cfg,
		logger:    logger,
		idGen:     idGen,
		clock:     clock,
		startedAt: clock.Now(),
	}

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/.well-known/flocrawl-mcp", s.discovery)

	timeout := time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second
	r.Route("/v1", func(r chi.Router) {
		r.Use(timeoutMiddleware(timeout))
		r.Post("/search", s.searchWeb)
		r.Post("/scrape", s.scrapeURL)
		r.Post("/links", s.listLinks)
		r.Post("/crawl", s.scrapeLinks)
		r.Post("/scrape_batch", s.scrapeURLs)
	})

	if mcpHandler != nil {
		r.Mount("/mcp", mcpHandler)
	}

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(s.clock.Now().Sub(s.startedAt).Seconds()),
	})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// discovery advertises the MCP endpoint so agent runtimes can find it without
// out-of-band configuration.
func (s *Server) discovery(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":     "flocrawl",
		"version":  "1.0",
		"endpoint": "/mcp",
		"tools":    []string{"search_web", "scrape_url", "list_links", "scrape_links", "scrape_urls"},
	})
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	Region     string `json:"region"`
}

func (s *Server) searchWeb(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	maxResults := req.MaxResults
	if maxResults <= 0 || maxResults > s.cfg.Search.MaxResults {
		maxResults = s.cfg.Search.MaxResults
	}
	region := req.Region
	if region == "" {
		region = s.cfg.Search.Region
	}
	hits := s.resolver.Search(r.Context(), req.Query, maxResults, region)
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}

type scrapeRequest struct {
	URL string `json:"url"`
}

func (s *Server) scrapeURL(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	writeJSON(w, http.StatusOK, s.crawler.ScrapeURL(r.Context(), req.URL))
}

type linksRequest struct {
	URL            string `json:"url"`
	SameDomainOnly bool   `json:"same_domain_only"`
}

func (s *Server) listLinks(w http.ResponseWriter, r *http.Request) {
	var req linksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	writeJSON(w, http.StatusOK, s.crawler.ListLinks(r.Context(), req.URL, req.SameDomainOnly))
}

type crawlRequest struct {
	URL            string `json:"url"`
	SameDomainOnly bool   `json:"same_domain_only"`
	MaxPages       int    `json:"max_pages"`
}

func (s *Server) scrapeLinks(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	writeJSON(w, http.StatusOK, s.crawler.ScrapeLinks(r.Context(), req.URL, req.SameDomainOnly, req.MaxPages))
}

type batchRequest struct {
	URLs []string `json:"urls"`
}

func (s *Server) scrapeURLs(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	writeJSON(w, http.StatusOK, s.crawler.ScrapeURLs(r.Context(), req.URLs))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
