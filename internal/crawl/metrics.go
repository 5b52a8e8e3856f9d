package crawl

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flocrawl_fetches_total",
		Help: "The total number of HTTP fetches attempted.",
	})
	fetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flocrawl_fetch_errors_total",
		Help: "The total number of HTTP fetches that failed.",
	})
	rendersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flocrawl_renders_total",
		Help: "The total number of headless browser renders attempted.",
	})
	renderFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flocrawl_render_failures_total",
		Help: "The total number of headless browser renders that failed.",
	})
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flocrawl_cache_hits_total",
		Help: "The total number of fetches served from the page cache.",
	})
)
