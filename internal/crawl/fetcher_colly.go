package crawl

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// CollyFetcher implements Fetcher using the Colly collector. A base collector
// holds the shared pooled transport; each Fetch clones it so per-request
// callbacks never leak between calls.
type CollyFetcher struct {
	baseCollector *colly.Collector
	maxPageBytes  int
	logger        *zap.Logger
}

// NewCollyFetcher constructs a configured Colly-based Fetcher.
func NewCollyFetcher(cfg Settings, logger *zap.Logger) (*CollyFetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.MaxBodySize(cfg.MaxPageBytes),
		colly.IgnoreRobotsTxt(),
	)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          128,
		MaxIdleConnsPerHost:   32,
		MaxConnsPerHost:       cfg.Concurrency * 2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.RequestTimeout)

	return &CollyFetcher{
		baseCollector: base,
		maxPageBytes:  cfg.MaxPageBytes,
		logger:        logger,
	}, nil
}

// Fetch performs one bounded GET. Redirects are followed transparently; the
// final response decides the status. The body is truncated to the page-size
// cap before buffering, and truncation is not an error.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (FetchResult, error) {
	collector := f.baseCollector.Clone()

	var (
		result   FetchResult
		fetchErr error
	)
	start := time.Now()
	done := make(chan struct{})
	var once sync.Once
	finish := func() { once.Do(func() { close(done) }) }

	collector.OnResponse(func(r *colly.Response) {
		defer finish()
		status := r.StatusCode
		if status < 200 || status > 299 {
			fetchErr = &FetchError{Kind: FetchErrHTTPStatus, Code: status}
			return
		}
		body := append([]byte(nil), r.Body...)
		if len(body) > f.maxPageBytes {
			body = body[:f.maxPageBytes]
		}
		contentType := ""
		if r.Headers != nil {
			contentType = r.Headers.Get("Content-Type")
		}
		html, label := decodeBody(body, contentType)
		result = FetchResult{
			URL:      rawURL,
			FinalURL: r.Request.URL.String(),
			Status:   status,
			Body:     body,
			Charset:  label,
			HTML:     html,
			Duration: time.Since(start),
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		defer finish()
		fetchErr = classifyFetchError(r, err)
	})

	fetchesTotal.Inc()
	visitErr := make(chan error, 1)
	go func() {
		visitErr <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		fetchErrorsTotal.Inc()
		return FetchResult{}, ctx.Err()
	case err := <-visitErr:
		if err != nil {
			fetchErrorsTotal.Inc()
			return FetchResult{}, classifyFetchError(nil, err)
		}
	}

	// Visit is synchronous, so the callbacks have fired by now.
	select {
	case <-done:
	default:
		fetchErrorsTotal.Inc()
		return FetchResult{}, &FetchError{Kind: FetchErrNetwork, Msg: "fetch produced no response"}
	}
	if fetchErr != nil {
		fetchErrorsTotal.Inc()
		f.logger.Debug("fetch failed", zap.String("url", rawURL), zap.Error(fetchErr))
		return FetchResult{}, fetchErr
	}
	return result, nil
}

// classifyFetchError maps transport failures onto the FetchError taxonomy.
func classifyFetchError(r *colly.Response, err error) error {
	if r != nil && r.StatusCode >= 300 {
		return &FetchError{Kind: FetchErrHTTPStatus, Code: r.StatusCode}
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &FetchError{Kind: FetchErrTimeout, Msg: err.Error()}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &FetchError{Kind: FetchErrTimeout, Msg: err.Error()}
	case err != nil:
		return &FetchError{Kind: FetchErrNetwork, Msg: err.Error()}
	default:
		return &FetchError{Kind: FetchErrNetwork, Msg: "unknown fetch error"}
	}
}

// decodeBody converts raw bytes to text using the transport-declared charset
// when present. Decoding never fails: on any problem the bytes are read as
// UTF-8 with replacement characters for invalid sequences.
func decodeBody(body []byte, contentType string) (text string, label string) {
	label = declaredCharset(contentType)
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err == nil {
		if decoded, readErr := io.ReadAll(reader); readErr == nil {
			return strings.ToValidUTF8(string(decoded), "�"), label
		}
	}
	return strings.ToValidUTF8(string(body), "�"), label
}

func declaredCharset(contentType string) string {
	if contentType == "" {
		return "utf-8"
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "utf-8"
	}
	if cs, ok := params["charset"]; ok && cs != "" {
		return strings.ToLower(cs)
	}
	return "utf-8"
}
