// Package client provides the Pexels HTTP client with rate limiting,
// caching and error handling. It implements the page fetcher used by the
// feed controller.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/pexels-feed/pkg/cache"
	"github.com/Sternrassler/pexels-feed/pkg/logging"
	"github.com/Sternrassler/pexels-feed/pkg/model"
	"github.com/Sternrassler/pexels-feed/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for Pexels client operations.
var (
	pexelsRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pexels_requests_total",
		Help: "Total Pexels requests by endpoint and status",
	}, []string{"endpoint", "status"})

	pexelsRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pexels_request_duration_seconds",
		Help:    "Pexels request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	pexelsErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pexels_errors_total",
		Help: "Total Pexels errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the Pexels API root.
const DefaultBaseURL = "https://api.pexels.com"

// Client is the Pexels API client.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	retry       RetryConfig
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// APIKey is sent verbatim in the Authorization header (REQUIRED)
	APIKey string

	// BaseURL of the API (default https://api.pexels.com)
	BaseURL string

	// UserAgent header
	UserAgent string

	// PerPage is the page size requested (1..80)
	PerPage int

	// Timeout bounds a single HTTP attempt
	Timeout time.Duration

	// Redis client for shared caching and quota state (optional)
	Redis *redis.Client

	// Caching
	MemoryCacheSize int
	MemoryCacheTTL  time.Duration

	// Retry
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(apiKey string) Config {
	retry := DefaultRetryConfig()
	return Config{
		APIKey:          apiKey,
		BaseURL:         DefaultBaseURL,
		UserAgent:       "pexels-feed/1.0",
		PerPage:         model.DefaultPerPage,
		Timeout:         15 * time.Second,
		MemoryCacheSize: cache.DefaultMemorySize,
		MemoryCacheTTL:  cache.DefaultMemoryTTL,
		MaxAttempts:     retry.MaxAttempts,
		InitialBackoff:  retry.InitialBackoff,
		MaxBackoff:      retry.MaxBackoff,
	}
}

// New creates a new Pexels client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.PerPage < 1 || cfg.PerPage > model.MaxPerPage {
		return nil, fmt.Errorf("per_page must be between 1 and %d (got %d)", model.MaxPerPage, cfg.PerPage)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %v)", cfg.Timeout)
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("max_attempts must be >= 1 (got %d)", cfg.MaxAttempts)
	}
	if cfg.InitialBackoff <= 0 || cfg.MaxBackoff < cfg.InitialBackoff {
		return nil, fmt.Errorf("invalid backoff range %v..%v", cfg.InitialBackoff, cfg.MaxBackoff)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	logger := logging.NewLogger("pexels-client")

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: ratelimit.NewTracker(cfg.Redis, logger),
		cache: cache.NewManager(cfg.Redis, cache.Options{
			MemorySize: cfg.MemoryCacheSize,
			MemoryTTL:  cfg.MemoryCacheTTL,
		}),
		retry: RetryConfig{
			MaxAttempts:       cfg.MaxAttempts,
			InitialBackoff:    cfg.InitialBackoff,
			MaxBackoff:        cfg.MaxBackoff,
			BackoffMultiplier: 2.0,
		},
		config: cfg,
		logger: logger,
	}, nil
}

// Do performs an HTTP request with rate limiting, caching and error handling.
//
// Non-success statuses are returned as *APIError. A fresh cached response is
// served without touching the network; a stale one is revalidated.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		pexelsRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check Rate Limit
	allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		}
		c.logger.Error().Err(err).Msg("Rate limit check failed")
		return nil, fmt.Errorf("%w: rate limit check: %w", ErrNetwork, err)
	}
	if !allowed {
		c.logger.Warn().Str("endpoint", endpoint).Msg("Request blocked by rate limiter")
		pexelsRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		return nil, ErrRateLimited
	}

	// Step 2: Check Cache
	cacheKey := cache.KeyFromURL(req.URL)
	cachedEntry, err := c.cache.Get(ctx, cacheKey)
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
	}

	if cachedEntry != nil && !cachedEntry.IsExpired() {
		c.logger.Debug().
			Str("endpoint", endpoint).
			Dur("ttl", cachedEntry.TTL()).
			Msg("Serving response from cache")
		pexelsRequestsTotal.WithLabelValues(endpoint, "cache_hit").Inc()
		return cache.EntryToResponse(cachedEntry, req, "HIT"), nil
	}

	// Step 3: Revalidate a stale entry
	if cache.ShouldMakeConditionalRequest(cachedEntry) {
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequests.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	// Step 4: Headers
	req.Header.Set("Authorization", c.config.APIKey)
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	// Step 5: Execute with retry
	resp, err := retryWithBackoff(ctx, c.retry, c.logger, func() (*http.Response, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			pexelsErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			pexelsRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
		}

		// Step 6: Update Rate Limit from headers
		if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}

		pexelsRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusNotModified || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
			return resp, nil
		}

		apiErr := newAPIError(resp)
		pexelsErrorsTotal.WithLabelValues(string(apiErr.ErrorClass)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", apiErr.StatusCode).
			Str("error_class", string(apiErr.ErrorClass)).
			Msg("Pexels request error")
		return nil, apiErr
	})
	if err != nil {
		return nil, err
	}

	// Step 7: 304 Not Modified
	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		cache.NotModifiedResponses.Inc()

		if cachedEntry == nil {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: ErrorClassServer,
				Message:    "304 Not Modified without a cached entry",
				URL:        req.URL.String(),
			}
		}

		entry := cachedEntry
		if refreshed, err := c.cache.Refresh(ctx, cacheKey, cache.ParseExpires(resp.Header)); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		} else {
			entry = refreshed
		}

		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		return cache.EntryToResponse(entry, req, "REVALIDATED"), nil
	}

	// Step 8: Update Cache
	if resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
			}
			return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
		}
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return resp, nil
}

// Get performs a GET request to a Pexels endpoint.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpointURL(endpoint, query), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

func (c *Client) endpointURL(endpoint string, query url.Values) string {
	u := c.config.BaseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Cache returns the response cache.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}

// RateLimiter returns the quota tracker.
func (c *Client) RateLimiter() *ratelimit.Tracker {
	return c.rateLimiter
}
