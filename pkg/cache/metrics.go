package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer ("memory", "redis")
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pexels_cache_hits_total",
			Help: "Total number of Pexels response cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pexels_cache_misses_total",
			Help: "Total number of Pexels response cache misses",
		},
	)

	// CacheMemoryEntries tracks the number of entries in the memory layer
	CacheMemoryEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pexels_cache_memory_entries",
			Help: "Current number of entries in the in-memory cache layer",
		},
	)

	// ConditionalRequests tracks requests sent with If-None-Match or If-Modified-Since
	ConditionalRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pexels_conditional_requests_total",
			Help: "Total number of conditional requests sent to Pexels",
		},
	)

	// NotModifiedResponses tracks 304 Not Modified responses
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pexels_304_responses_total",
			Help: "Total number of Pexels 304 Not Modified responses",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pexels_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
