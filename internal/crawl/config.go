package crawl

import (
	"fmt"
	"time"
)

// Settings captures every knob that influences the scrape pipeline. Values
// originate from the config package so the crawler stays decoupled from Viper.
type Settings struct {
	UserAgent       string
	RequestTimeout  time.Duration
	MaxPageBytes    int
	MaxLinksPerPage int
	MaxPages        int
	Concurrency     int
	MaxTextLen      int
	MaxLinkTextLen  int

	RenderEnabled    bool
	RenderTimeout    time.Duration
	PostLoadWait     time.Duration
	RenderMaxBrowser int
	RenderDomainQPS  float64
}

// DefaultSettings mirrors the documented environment defaults.
func DefaultSettings() Settings {
	return Settings{
		UserAgent:        "Mozilla/5.0 (compatible; Flocrawl/1.0; +https://flotorch.ai)",
		RequestTimeout:   30 * time.Second,
		MaxPageBytes:     1 << 20,
		MaxLinksPerPage:  100,
		MaxPages:         20,
		Concurrency:      10,
		MaxTextLen:       50000,
		MaxLinkTextLen:   200,
		RenderTimeout:    45 * time.Second,
		PostLoadWait:     2 * time.Second,
		RenderMaxBrowser: 2,
	}
}

// Validate checks for obviously bad configuration combinations.
func (s Settings) Validate() error {
	if s.UserAgent == "" {
		return fmt.Errorf("crawl.user_agent must be set")
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("crawl.request_timeout must be > 0")
	}
	if s.MaxPageBytes <= 0 {
		return fmt.Errorf("crawl.max_page_bytes must be > 0")
	}
	if s.MaxLinksPerPage <= 0 {
		return fmt.Errorf("crawl.max_links_per_page must be > 0")
	}
	if s.MaxPages <= 0 {
		return fmt.Errorf("crawl.max_pages must be > 0")
	}
	if s.Concurrency <= 0 {
		return fmt.Errorf("crawl.concurrency must be > 0")
	}
	if s.MaxTextLen <= 0 {
		return fmt.Errorf("crawl.max_text_len must be > 0")
	}
	if s.RenderEnabled && s.RenderTimeout <= 0 {
		return fmt.Errorf("crawl.render_timeout must be > 0 when rendering is enabled")
	}
	return nil
}
