package crawl

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Crawler ties the fetch, detect, render and extract stages together and fans
// batch work out across a bounded worker pool.
type Crawler struct {
	cfg      Settings
	fetcher  Fetcher
	renderer Renderer
	detector *Detector
	cache    FetchCache
	logger   *zap.Logger
}

// New assembles a Crawler. renderer and cache may be nil; a nil renderer
// disables the browser escape hatch, a nil cache disables page caching.
func New(cfg Settings, fetcher Fetcher, renderer Renderer, detector *Detector, cache FetchCache, logger *zap.Logger) *Crawler {
	if renderer == nil {
		renderer = NoopRenderer{}
	}
	if detector == nil {
		detector = NewDetector(0, nil, nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{
		cfg:      cfg,
		fetcher:  fetcher,
		renderer: renderer,
		detector: detector,
		cache:    cache,
		logger:   logger,
	}
}

// ScrapeURL fetches one page and extracts its readable text. Pages that look
// like JS-required placeholders go through the export shortcut or a headless
// render before extraction. Failures are reported in the result, never as a
// Go error, so batch callers can collect them uniformly.
func (c *Crawler) ScrapeURL(ctx context.Context, rawURL string) PageResult {
	res, err := c.fetch(ctx, rawURL)
	if err != nil {
		return PageResult{URL: rawURL, Err: err.Error()}
	}

	title, text := ExtractText(res.HTML, c.cfg.MaxTextLen)
	if c.detector.NeedsRender(res.HTML, res.FinalURL, text) {
		title, text = c.escalate(ctx, res.FinalURL, title, text)
	}
	return PageResult{URL: rawURL, Title: title, Text: text}
}

// escalate upgrades a placeholder page: first via the cheap document export
// endpoint, then via a headless render. The HTTP-fetched extraction is kept
// whenever the upgrade fails or yields nothing.
func (c *Crawler) escalate(ctx context.Context, pageURL, title, text string) (string, string) {
	if exported, ok := c.tryDocExport(ctx, pageURL); ok {
		return title, truncateRunes(exported, c.cfg.MaxTextLen)
	}

	html, err := c.renderer.Render(ctx, pageURL)
	if err != nil {
		if !errors.Is(err, ErrRenderUnavailable) {
			c.logger.Warn("render fallback failed", zap.String("url", pageURL), zap.Error(err))
		}
		return title, text
	}
	rTitle, rText := ExtractText(html, c.cfg.MaxTextLen)
	if rText == "" {
		return title, text
	}
	if rTitle == "" {
		rTitle = title
	}
	return rTitle, rText
}

// ListLinks fetches one page and returns its outbound links. Fetch failures
// are reported in the result's Err field with an empty link list.
func (c *Crawler) ListLinks(ctx context.Context, rawURL string, sameDomainOnly bool) LinkList {
	res, err := c.fetch(ctx, rawURL)
	if err != nil {
		return LinkList{URL: rawURL, Links: []Link{}, Err: err.Error()}
	}
	links := ExtractLinks(res.HTML, res.FinalURL, sameDomainOnly, c.cfg.MaxLinksPerPage, c.cfg.MaxLinkTextLen)
	if links == nil {
		links = []Link{}
	}
	return LinkList{URL: rawURL, Links: links}
}

// ScrapeLinks lists the links on a base page and scrapes the first maxPages of
// them concurrently. A failure to list the base page short-circuits the whole
// operation. maxPages values outside (0, configured max] are clamped to the
// configured max.
func (c *Crawler) ScrapeLinks(ctx context.Context, rawURL string, sameDomainOnly bool, maxPages int) CrawlResult {
	if maxPages <= 0 || maxPages > c.cfg.MaxPages {
		maxPages = c.cfg.MaxPages
	}

	listing := c.ListLinks(ctx, rawURL, sameDomainOnly)
	if listing.Err != "" {
		return CrawlResult{BaseURL: rawURL, Pages: []PageResult{}, Errors: []string{listing.Err}}
	}

	targets := make([]string, 0, maxPages)
	for _, l := range listing.Links {
		if len(targets) >= maxPages {
			break
		}
		targets = append(targets, l.URL)
	}

	out := c.scrapeBatch(ctx, targets)
	out.BaseURL = rawURL
	return out
}

// ScrapeURLs scrapes an explicit list of pages concurrently. Empty input
// returns an empty result without issuing any requests.
func (c *Crawler) ScrapeURLs(ctx context.Context, urls []string) CrawlResult {
	return c.scrapeBatch(ctx, urls)
}

// scrapeBatch fans out over the pool. Results land in completion order;
// per-page failures become "url: message" strings. Context cancellation stops
// admitting new work, already-admitted pages finish or fail fast, and every
// unprocessed page still gets an error entry.
func (c *Crawler) scrapeBatch(ctx context.Context, urls []string) CrawlResult {
	pages := make([]PageResult, 0, len(urls))
	errs := make([]string, 0)
	if len(urls) == 0 {
		return CrawlResult{Pages: pages, Errors: errs}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for _, u := range urls {
		u := u
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				mu.Lock()
				errs = append(errs, u+": "+err.Error())
				mu.Unlock()
				return nil
			}
			page := c.ScrapeURL(gctx, u)
			mu.Lock()
			defer mu.Unlock()
			if page.Err != "" {
				errs = append(errs, u+": "+page.Err)
				return nil
			}
			pages = append(pages, page)
			return nil
		})
	}
	_ = g.Wait()

	return CrawlResult{Pages: pages, Errors: errs}
}

// fetch consults the cache before the network and writes fresh responses back
// on success. Cache errors are logged and otherwise ignored.
func (c *Crawler) fetch(ctx context.Context, rawURL string) (FetchResult, error) {
	if c.cache != nil {
		res, ok, err := c.cache.Get(ctx, rawURL)
		if err != nil {
			c.logger.Debug("cache get failed", zap.String("url", rawURL), zap.Error(err))
		} else if ok {
			cacheHitsTotal.Inc()
			return res, nil
		}
	}

	res, err := c.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return FetchResult{}, err
	}
	if c.cache != nil {
		if err := c.cache.Put(ctx, res); err != nil {
			c.logger.Debug("cache put failed", zap.String("url", rawURL), zap.Error(err))
		}
	}
	return res, nil
}
