// Package metrics holds the service-wide Prometheus collectors, exposed on
// /metrics by the API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	URLsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "satset",
		Name:      "urls_created_total",
		Help:      "Short links created.",
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "satset",
		Name:      "cache_hits_total",
		Help:      "Resolves served from the fast cache.",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "satset",
		Name:      "cache_misses_total",
		Help:      "Resolves that fell through to the durable store.",
	})

	RateLimitDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "satset",
		Name:      "rate_limit_denied_total",
		Help:      "Requests denied by the rate limiter.",
	}, []string{"op"})

	SweptAliases = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "satset",
		Name:      "swept_aliases_total",
		Help:      "Expired records removed by the sweeper.",
	})
)
