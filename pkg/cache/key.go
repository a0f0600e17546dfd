package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key.
const KeyPrefix = "pexels"

// Key identifies a cached Pexels response.
//
// Credentials never take part in the key: every API key sees the same
// public listing.
type Key struct {
	// Endpoint is the API path (e.g. "/v1/curated")
	Endpoint string

	// QueryParams are the request query parameters (e.g. {"page": "2"})
	QueryParams url.Values
}

// String generates a deterministic cache key string.
// Format: pexels:endpoint:query1=val1:query2=val2
//
// Example:
//
//	pexels:v1/search:page=2:per_page=30:query=forest
func (k Key) String() string {
	parts := []string{KeyPrefix}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			values := append([]string(nil), k.QueryParams[key]...)
			sort.Strings(values)
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(values, ",")))
		}
	}

	return strings.Join(parts, ":")
}

// KeyFromURL builds the cache key for a request URL.
func KeyFromURL(u *url.URL) Key {
	if u == nil {
		return Key{}
	}
	return Key{
		Endpoint:    u.Path,
		QueryParams: u.Query(),
	}
}
