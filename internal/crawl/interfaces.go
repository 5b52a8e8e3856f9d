package crawl

import "context"

// Fetcher retrieves a single URL with size and time caps applied.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (FetchResult, error)
}

// FetchCache optionally short-circuits fetches for recently seen URLs.
// Implementations live in internal/cache; a nil cache disables caching.
type FetchCache interface {
	Get(ctx context.Context, rawURL string) (FetchResult, bool, error)
	Put(ctx context.Context, res FetchResult) error
}
