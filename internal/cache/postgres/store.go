// Package postgres provides the Postgres-backed page cache.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flocrawl/flocrawl/internal/crawl"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the connection pool and cache behavior.
type Config struct {
	DSN             string
	Table           string
	TTL             time.Duration
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PageCache stores fetched pages in Postgres keyed by URL, one row per URL
// with last-write-wins semantics.
type PageCache struct {
	pool  pgxPool
	table string
	ttl   time.Duration
	now   func() time.Time
}

// NewPageCache connects a pool and returns a ready cache.
func NewPageCache(ctx context.Context, cfg Config) (*PageCache, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("cache.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "page_cache"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PageCache{pool: pool, table: table, ttl: cfg.TTL, now: time.Now}, nil
}

// NewPageCacheWithPool constructs a cache from an existing pool (primarily for
// testing).
func NewPageCacheWithPool(pool pgxPool, table string, ttl time.Duration) (*PageCache, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "page_cache"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PageCache{pool: pool, table: table, ttl: ttl, now: time.Now}, nil
}

// Close releases the underlying pool resources.
func (c *PageCache) Close() {
	if c == nil || c.pool == nil {
		return
	}
	c.pool.Close()
}

// Get returns the cached page for url. An expired row is a miss; the row is
// left in place for the next Put to overwrite.
func (c *PageCache) Get(ctx context.Context, url string) (crawl.FetchResult, bool, error) {
	if c == nil || c.pool == nil {
		return crawl.FetchResult{}, false, fmt.Errorf("page cache is not configured")
	}
	query := fmt.Sprintf(`
SELECT final_url, status, body, charset, html, fetched_at
FROM %s
WHERE url = $1`, c.table)

	var (
		res       crawl.FetchResult
		fetchedAt time.Time
	)
	res.URL = url
	err := c.pool.QueryRow(ctx, query, url).
		Scan(&res.FinalURL, &res.Status, &res.Body, &res.Charset, &res.HTML, &fetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return crawl.FetchResult{}, false, nil
	}
	if err != nil {
		return crawl.FetchResult{}, false, fmt.Errorf("query page cache: %w", err)
	}
	if c.ttl > 0 && c.now().Sub(fetchedAt) > c.ttl {
		return crawl.FetchResult{}, false, nil
	}
	return res, true, nil
}

// Put upserts the fetched page for its URL.
func (c *PageCache) Put(ctx context.Context, res crawl.FetchResult) error {
	if c == nil || c.pool == nil {
		return fmt.Errorf("page cache is not configured")
	}
	if res.URL == "" {
		return fmt.Errorf("result url is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (url, final_url, status, body, charset, html, fetched_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (url) DO UPDATE SET
	final_url = EXCLUDED.final_url,
	status = EXCLUDED.status,
	body = EXCLUDED.body,
	charset = EXCLUDED.charset,
	html = EXCLUDED.html,
	fetched_at = EXCLUDED.fetched_at`, c.table)

	_, err := c.pool.Exec(ctx, query,
		res.URL, res.FinalURL, res.Status, res.Body, res.Charset, res.HTML, c.now().UTC())
	if err != nil {
		return fmt.Errorf("upsert page cache: %w", err)
	}
	return nil
}
