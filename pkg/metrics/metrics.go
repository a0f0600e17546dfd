// Package metrics is the catalogue of Prometheus metrics exported by the
// feed. Metrics are defined with promauto in the packages that record them
// (client, cache, ratelimit, feed); this package lists them and exposes the
// scrape handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all feed metrics are registered with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer matching Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the HTTP handler serving the metrics in the Prometheus
// exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metric describes one exported metric.
type Metric struct {
	Name    string
	Type    string
	Labels  []string
	Package string
}

// Catalogue lists every metric the feed exports.
var Catalogue = []Metric{
	// Rate limit (pkg/ratelimit)
	{Name: "pexels_quota_remaining", Type: "gauge", Package: "ratelimit"},
	{Name: "pexels_rate_limit_blocks_total", Type: "counter", Package: "ratelimit"},
	{Name: "pexels_rate_limit_throttles_total", Type: "counter", Package: "ratelimit"},

	// Cache (pkg/cache)
	{Name: "pexels_cache_hits_total", Type: "counter", Labels: []string{"layer"}, Package: "cache"},
	{Name: "pexels_cache_misses_total", Type: "counter", Package: "cache"},
	{Name: "pexels_cache_memory_entries", Type: "gauge", Package: "cache"},
	{Name: "pexels_conditional_requests_total", Type: "counter", Package: "cache"},
	{Name: "pexels_304_responses_total", Type: "counter", Package: "cache"},
	{Name: "pexels_cache_errors_total", Type: "counter", Labels: []string{"operation"}, Package: "cache"},

	// Requests (pkg/client)
	{Name: "pexels_requests_total", Type: "counter", Labels: []string{"endpoint", "status"}, Package: "client"},
	{Name: "pexels_request_duration_seconds", Type: "histogram", Labels: []string{"endpoint"}, Package: "client"},
	{Name: "pexels_errors_total", Type: "counter", Labels: []string{"class"}, Package: "client"},
	{Name: "pexels_retries_total", Type: "counter", Labels: []string{"error_class"}, Package: "client"},
	{Name: "pexels_retry_backoff_seconds", Type: "histogram", Labels: []string{"error_class"}, Package: "client"},
	{Name: "pexels_retry_exhausted_total", Type: "counter", Labels: []string{"error_class"}, Package: "client"},

	// Feed controller (pkg/feed)
	{Name: "pexels_feed_fetches_total", Type: "counter", Labels: []string{"kind", "outcome"}, Package: "feed"},
	{Name: "pexels_feed_fetch_duration_seconds", Type: "histogram", Labels: []string{"kind"}, Package: "feed"},
	{Name: "pexels_feed_stale_results_total", Type: "counter", Package: "feed"},
	{Name: "pexels_feed_rejected_fetches_total", Type: "counter", Package: "feed"},
	{Name: "pexels_feed_searches_total", Type: "counter", Package: "feed"},
	{Name: "pexels_feed_items", Type: "gauge", Package: "feed"},
}

// Example Prometheus Queries:
//
//	# Cache Hit Rate
//	sum(rate(pexels_cache_hits_total[5m])) /
//	(sum(rate(pexels_cache_hits_total[5m])) + sum(rate(pexels_cache_misses_total[5m])))
//
//	# Quota running low
//	pexels_quota_remaining < 20
//
//	# Failed feed fetches
//	sum by (kind) (rate(pexels_feed_fetches_total{outcome="error"}[5m]))
//
//	# P95 Request Latency
//	histogram_quantile(0.95, rate(pexels_request_duration_seconds_bucket[5m]))
