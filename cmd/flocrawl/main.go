// Package main wires together the flocrawl service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/flocrawl/flocrawl/internal/api"
	"github.com/flocrawl/flocrawl/internal/cache"
	cachepg "github.com/flocrawl/flocrawl/internal/cache/postgres"
	"github.com/flocrawl/flocrawl/internal/clock/system"
	"github.com/flocrawl/flocrawl/internal/config"
	"github.com/flocrawl/flocrawl/internal/crawl"
	"github.com/flocrawl/flocrawl/internal/id/uuid"
	"github.com/flocrawl/flocrawl/internal/logging"
	"github.com/flocrawl/flocrawl/internal/mcptool"
	"github.com/flocrawl/flocrawl/internal/search"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings := cfg.CrawlSettings()
	fetcher, err := crawl.NewCollyFetcher(settings, logger.Named("fetcher"))
	if err != nil {
		logger.Fatal("fetcher init failed", zap.Error(err))
	}
	renderer := crawl.NewRenderer(settings, logger.Named("renderer"))
	detector := crawl.NewDetector(0, nil, nil)

	pageCache, closeCache, err := newPageCache(ctx, cfg)
	if err != nil {
		logger.Fatal("page cache init failed", zap.Error(err))
	}

	strategies, err := search.NewStrategies(cfg.Search.Strategies,
		search.NewHTTPClient(time.Duration(cfg.Search.TimeoutSeconds)*time.Second),
		cfg.Crawler.UserAgent)
	if err != nil {
		logger.Fatal("search strategies init failed", zap.Error(err))
	}
	resolver := search.NewResolver(strategies, cfg.SearchOptions(), logger.Named("search"))

	crawler := crawl.New(settings, fetcher, renderer, detector, pageCache, logger.Named("crawl"))
	mcpServer := mcptool.New(crawler, resolver, cfg, logger.Named("mcp"))
	apiServer := api.NewServer(crawler, resolver, uuid.NewUUIDGenerator(), system.New(),
		cfg, logger.Named("api"), mcpServer.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if err := renderer.Close(shutdownCtx); err != nil {
		logger.Error("renderer shutdown error", zap.Error(err))
	}
	closeCache()
	logger.Info("shutdown complete")
}

// newPageCache builds the configured cache backend. The returned close func is
// always safe to call.
func newPageCache(ctx context.Context, cfg config.Config) (crawl.FetchCache, func(), error) {
	ttl := time.Duration(cfg.Cache.TTLMinutes) * time.Minute
	switch cfg.Cache.Backend {
	case "":
		return nil, func() {}, nil
	case "memory":
		return cache.NewMemory(ttl, cfg.Cache.MaxEntries), func() {}, nil
	case "postgres":
		store, err := cachepg.NewPageCache(ctx, cachepg.Config{
			DSN:      cfg.Cache.DSN,
			Table:    cfg.Cache.Table,
			TTL:      ttl,
			MaxConns: cfg.Cache.MaxConns,
			MinConns: cfg.Cache.MinConns,
		})
		if err != nil {
			return nil, func() {}, err
		}
		return store, store.Close, nil
	default:
		return nil, func() {}, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
