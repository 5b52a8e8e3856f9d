package crawl

import (
	"fmt"
	"time"
)

// FetchErrorKind classifies fetch failures.
type FetchErrorKind string

// Fetch failure categories surfaced to callers.
const (
	FetchErrTimeout    FetchErrorKind = "timeout"
	FetchErrHTTPStatus FetchErrorKind = "http_status"
	FetchErrNetwork    FetchErrorKind = "network"
)

// FetchError is the typed failure returned by a Fetcher. It is data, not a
// panic: composite operations aggregate these into partial results.
type FetchError struct {
	Kind FetchErrorKind
	Code int
	Msg  string
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchErrHTTPStatus:
		return fmt.Sprintf("HTTP %d", e.Code)
	case FetchErrTimeout:
		if e.Msg != "" {
			return "timeout: " + e.Msg
		}
		return "timeout"
	default:
		if e.Msg != "" {
			return e.Msg
		}
		return "network error"
	}
}

// FetchResult is the outcome of a single bounded GET. Body is capped at the
// configured page-size limit; HTML is the decoded body (decoding never fails,
// invalid sequences are replaced).
type FetchResult struct {
	URL      string
	FinalURL string
	Status   int
	Body     []byte
	Charset  string
	HTML     string
	Duration time.Duration
}

// PageResult is the scraped content of one page. Err is mutually exclusive
// with a non-empty Text.
type PageResult struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
	Err   string `json:"error,omitempty"`
}

// Link is one outbound anchor, resolved to an absolute http(s) URL.
type Link struct {
	URL  string `json:"href"`
	Text string `json:"text"`
}

// LinkList is the deduplicated, capped link listing for one page.
type LinkList struct {
	URL   string `json:"url"`
	Links []Link `json:"links"`
	Err   string `json:"error,omitempty"`
}

// CrawlResult aggregates a multi-page scrape. Pages holds successes only, in
// completion order; Errors holds "url: message" strings for failures.
type CrawlResult struct {
	BaseURL string       `json:"base_url,omitempty"`
	Pages   []PageResult `json:"pages"`
	Errors  []string     `json:"errors"`
}
