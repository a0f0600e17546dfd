// Package cache stores Pexels listing responses so repeated page requests
// are served locally and stale pages are revalidated with conditional
// requests instead of being downloaded again.
//
// Two layers are consulted in order: an in-memory expirable LRU and, when a
// Redis client is configured, Redis. Entries outlive their Expires time by a
// grace period so their ETag or Last-Modified can still be used for
// revalidation.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient, cache.Options{})
//
//	key := cache.Key{
//		Endpoint:    "/v1/curated",
//		QueryParams: url.Values{"page": []string{"2"}, "per_page": []string{"30"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	switch {
//	case errors.Is(err, cache.ErrCacheMiss):
//		// fetch from Pexels
//	case entry.IsExpired():
//		cache.AddConditionalHeaders(req, entry)
//	}
//
// # Metrics
//
//   - pexels_cache_hits_total{layer} - Cache hits by layer
//   - pexels_cache_misses_total - Cache misses
//   - pexels_cache_memory_entries - Entries in the memory layer
//   - pexels_conditional_requests_total - Conditional requests sent
//   - pexels_304_responses_total - 304 Not Modified responses
//   - pexels_cache_errors_total{operation} - Cache operation errors
package cache
