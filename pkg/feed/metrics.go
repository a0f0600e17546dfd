package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feedFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pexels_feed_fetches_total",
		Help: "Completed feed fetches by listing kind and outcome",
	}, []string{"kind", "outcome"}) // kind: curated|search, outcome: success|error|cancelled

	feedFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pexels_feed_fetch_duration_seconds",
		Help:    "Time from accepting a fetch to merging its result",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"kind"})

	feedStaleResultsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pexels_feed_stale_results_total",
		Help: "Fetch results dropped because a newer search superseded them",
	})

	feedRejectedFetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pexels_feed_rejected_fetches_total",
		Help: "Fetch requests ignored because another fetch was in flight or the page was invalid",
	})

	feedSearchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pexels_feed_searches_total",
		Help: "Search sessions started",
	})

	feedItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pexels_feed_items",
		Help: "Photos in the most recently published list, excluding the placeholder",
	})
)
