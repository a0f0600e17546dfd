package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	pexelsQuotaRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pexels_quota_remaining",
		Help: "Number of requests remaining in the current Pexels quota period",
	})

	pexelsRateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pexels_rate_limit_blocks_total",
		Help: "Total number of requests blocked due to an exhausted quota",
	})

	pexelsRateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pexels_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to a low quota",
	})
)

// DefaultThrottleDelay is the pause applied to requests in the warning band.
const DefaultThrottleDelay = 1 * time.Second

// Tracker monitors the Pexels quota and gates requests.
//
// The state lives in Redis when a client is given, otherwise in memory.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger

	// ThrottleDelay is how long ShouldAllowRequest waits in the warning band.
	ThrottleDelay time.Duration

	mu    sync.Mutex
	local *RateLimitState
}

// NewTracker creates a new rate limit tracker. redisClient may be nil.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:         redisClient,
		logger:        logger,
		ThrottleDelay: DefaultThrottleDelay,
	}
}

// GetState retrieves the current rate limit state.
// Returns a default healthy state if nothing has been recorded yet.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.local == nil {
			return DefaultState(), nil
		}
		state := *t.local
		return &state, nil
	}

	remaining, err := t.redis.Get(ctx, RedisKeyRemaining).Int()
	if errors.Is(err, redis.Nil) {
		t.logger.Debug().Msg("No rate limit state in Redis, returning default healthy state")
		return DefaultState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get remaining: %w", err)
	}

	limit, err := t.redis.Get(ctx, RedisKeyLimit).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get limit: %w", err)
	}

	resetEpoch, err := t.redis.Get(ctx, RedisKeyResetEpoch).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get reset epoch: %w", err)
	}

	lastUpdateStr, err := t.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	var lastUpdate time.Time
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	state := &RateLimitState{
		Limit:      limit,
		Remaining:  remaining,
		LastUpdate: lastUpdate,
	}
	if resetEpoch > 0 {
		state.ResetAt = time.Unix(resetEpoch, 0)
	}
	state.UpdateHealth()

	return state, nil
}

// UpdateFromHeaders parses the Pexels rate limit headers and stores the new state.
// Responses without the headers (Pexels omits them on errors) are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainingStr := headers.Get(HeaderRemaining)
	if remainingStr == "" {
		return nil
	}

	remaining, err := strconv.Atoi(remainingStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	var limit int
	if limitStr := headers.Get(HeaderLimit); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderLimit, err)
		}
	}

	resetStr := headers.Get(HeaderReset)
	if resetStr == "" {
		return fmt.Errorf("%s header missing", HeaderReset)
	}
	resetEpoch, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderReset, err)
	}

	state := &RateLimitState{
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    time.Unix(resetEpoch, 0),
		LastUpdate: time.Now(),
	}
	state.UpdateHealth()

	if err := t.store(ctx, state); err != nil {
		return err
	}

	pexelsQuotaRemaining.Set(float64(remaining))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("remaining", remaining).
			Time("reset_at", state.ResetAt).
			Msg("Pexels quota CRITICAL - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("remaining", remaining).
			Time("reset_at", state.ResetAt).
			Msg("Pexels quota WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", remaining).
			Int("limit", limit).
			Bool("is_healthy", state.IsHealthy).
			Msg("Pexels quota state updated")
	}

	return nil
}

func (t *Tracker) store(ctx context.Context, state *RateLimitState) error {
	if t.redis == nil {
		t.mu.Lock()
		t.local = state
		t.mu.Unlock()
		return nil
	}

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyLimit, state.Limit, 0)
	pipe.Set(ctx, RedisKeyRemaining, state.Remaining, 0)
	pipe.Set(ctx, RedisKeyResetEpoch, state.ResetAt.Unix(), 0)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}

// ShouldAllowRequest checks if a request should be allowed based on the
// current quota. Returns false when the quota is critically low. In the
// warning band it waits ThrottleDelay (or until ctx is done) and allows.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Pexels quota critical - blocking request")

		pexelsRateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Dur("delay", t.ThrottleDelay).
			Msg("Pexels quota warning - throttling request")

		pexelsRateLimitThrottlesTotal.Inc()

		timer := time.NewTimer(t.ThrottleDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	return true, nil
}
