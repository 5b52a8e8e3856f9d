package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flocrawl_search_queries_total",
		Help: "Queries answered, labeled by the strategy that produced the hits.",
	}, []string{"strategy"})

	searchAttemptErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flocrawl_search_attempt_errors_total",
		Help: "Failed strategy attempts, labeled by strategy.",
	}, []string{"strategy"})
)
