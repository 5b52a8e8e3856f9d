package search

import (
	"fmt"
	"net/http"
	"time"
)

// DefaultStrategyNames is the cascade order used when configuration does not
// override it. Backend ordering is configuration, not an invariant: engines
// change their scraping resistance over time.
var DefaultStrategyNames = []string{"duckduckgo", "duckduckgo-lite", "brave"}

// NewStrategies resolves configured strategy names into instances sharing one
// HTTP client. Unknown names are an error so typos fail at startup, not at
// query time.
func NewStrategies(names []string, client *http.Client, userAgent string) ([]Strategy, error) {
	if client == nil {
		client = &http.Client{Timeout: defaultAttemptTimeout}
	}
	if len(names) == 0 {
		names = DefaultStrategyNames
	}

	out := make([]Strategy, 0, len(names))
	for _, name := range names {
		switch name {
		case "duckduckgo":
			out = append(out, NewDuckDuckGo(client, userAgent))
		case "duckduckgo-lite":
			out = append(out, NewDuckDuckGoLite(client, userAgent))
		case "brave":
			out = append(out, NewBrave(client, userAgent))
		default:
			return nil, fmt.Errorf("unknown search strategy %q", name)
		}
	}
	return out, nil
}

// NewHTTPClient builds the pooled client shared by all scrape strategies.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        32,
			MaxIdleConnsPerHost: 8,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		},
	}
}
