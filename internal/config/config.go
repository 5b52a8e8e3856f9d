// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/flocrawl/flocrawl/internal/crawl"
	"github.com/flocrawl/flocrawl/internal/search"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Render  RenderConfig  `mapstructure:"render"`
	Search  SearchConfig  `mapstructure:"search"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	RequestTimeoutSeconds  int `mapstructure:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// CrawlerConfig governs the fetch/extract/crawl pipeline.
type CrawlerConfig struct {
	UserAgent       string `mapstructure:"user_agent"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	MaxPageBytes    int    `mapstructure:"max_page_bytes"`
	MaxLinksPerPage int    `mapstructure:"max_links_per_page"`
	MaxPages        int    `mapstructure:"max_pages"`
	Concurrency     int    `mapstructure:"concurrency"`
	MaxTextLen      int    `mapstructure:"max_text_len"`
}

// RenderConfig configures the headless browser escape hatch.
type RenderConfig struct {
	Enabled            bool    `mapstructure:"enabled"`
	TimeoutSeconds     int     `mapstructure:"timeout_seconds"`
	PostLoadWaitMillis int     `mapstructure:"post_load_wait_ms"`
	MaxTabs            int     `mapstructure:"max_tabs"`
	DomainQPS          float64 `mapstructure:"domain_qps"`
}

// SearchConfig orders and paces the search strategy cascade.
type SearchConfig struct {
	Strategies          []string `mapstructure:"strategies"`
	Region              string   `mapstructure:"region"`
	MaxResults          int      `mapstructure:"max_results"`
	TimeoutSeconds      int      `mapstructure:"timeout_seconds"`
	InterAttemptDelayMs int      `mapstructure:"inter_attempt_delay_ms"`
	RateLimitCooldownMs int      `mapstructure:"rate_limit_cooldown_ms"`
}

// CacheConfig selects and tunes the fetched-page cache.
type CacheConfig struct {
	// Backend is "", "memory" or "postgres". Empty disables caching.
	Backend    string `mapstructure:"backend"`
	DSN        string `mapstructure:"dsn"`
	Table      string `mapstructure:"table"`
	TTLMinutes int    `mapstructure:"ttl_minutes"`
	MaxEntries int    `mapstructure:"max_entries"`
	MaxConns   int32  `mapstructure:"max_conns"`
	MinConns   int32  `mapstructure:"min_conns"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FLOCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 120)
	v.SetDefault("server.shutdown_timeout_seconds", 15)
	v.SetDefault("crawler.user_agent", "Mozilla/5.0 (compatible; Flocrawl/1.0; +https://flotorch.ai)")
	v.SetDefault("crawler.timeout_seconds", 30)
	v.SetDefault("crawler.max_page_bytes", 1024*1024)
	v.SetDefault("crawler.max_links_per_page", 100)
	v.SetDefault("crawler.max_pages", 20)
	v.SetDefault("crawler.concurrency", 10)
	v.SetDefault("crawler.max_text_len", 50000)
	v.SetDefault("render.enabled", true)
	v.SetDefault("render.timeout_seconds", 45)
	v.SetDefault("render.post_load_wait_ms", 2000)
	v.SetDefault("render.max_tabs", 2)
	v.SetDefault("render.domain_qps", 0.5)
	v.SetDefault("search.strategies", search.DefaultStrategyNames)
	v.SetDefault("search.region", "wt-wt")
	v.SetDefault("search.max_results", 10)
	v.SetDefault("search.timeout_seconds", 15)
	v.SetDefault("search.inter_attempt_delay_ms", 1000)
	v.SetDefault("search.rate_limit_cooldown_ms", 5000)
	v.SetDefault("cache.backend", "")
	v.SetDefault("cache.table", "page_cache")
	v.SetDefault("cache.ttl_minutes", 60)
	v.SetDefault("cache.max_entries", 1024)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	if c.Crawler.MaxPageBytes <= 0 {
		return fmt.Errorf("crawler.max_page_bytes must be > 0")
	}
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("crawler.max_pages must be > 0")
	}
	if c.Render.Enabled && c.Render.MaxTabs <= 0 {
		return fmt.Errorf("render.max_tabs must be > 0 when rendering is enabled")
	}
	switch c.Cache.Backend {
	case "", "memory":
	case "postgres":
		if c.Cache.DSN == "" {
			return fmt.Errorf("cache.dsn must be set when cache.backend is postgres")
		}
	default:
		return fmt.Errorf("cache.backend must be empty, memory or postgres")
	}
	return nil
}

// CrawlSettings projects the config onto the crawl pipeline's settings object.
func (c Config) CrawlSettings() crawl.Settings {
	return crawl.Settings{
		UserAgent:        c.Crawler.UserAgent,
		RequestTimeout:   time.Duration(c.Crawler.TimeoutSeconds) * time.Second,
		MaxPageBytes:     c.Crawler.MaxPageBytes,
		MaxLinksPerPage:  c.Crawler.MaxLinksPerPage,
		MaxPages:         c.Crawler.MaxPages,
		Concurrency:      c.Crawler.Concurrency,
		MaxTextLen:       c.Crawler.MaxTextLen,
		MaxLinkTextLen:   200,
		RenderEnabled:    c.Render.Enabled,
		RenderTimeout:    time.Duration(c.Render.TimeoutSeconds) * time.Second,
		PostLoadWait:     time.Duration(c.Render.PostLoadWaitMillis) * time.Millisecond,
		RenderMaxBrowser: c.Render.MaxTabs,
		RenderDomainQPS:  c.Render.DomainQPS,
	}
}

// SearchOptions projects the config onto the resolver's pacing options.
func (c Config) SearchOptions() search.Options {
	return search.Options{
		AttemptTimeout:    time.Duration(c.Search.TimeoutSeconds) * time.Second,
		InterAttemptDelay: time.Duration(c.Search.InterAttemptDelayMs) * time.Millisecond,
		RateLimitCooldown: time.Duration(c.Search.RateLimitCooldownMs) * time.Millisecond,
	}
}
