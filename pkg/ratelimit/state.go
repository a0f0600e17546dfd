// Package ratelimit implements Pexels request quota tracking and request gating.
// It monitors the X-Ratelimit-Limit, X-Ratelimit-Remaining and
// X-Ratelimit-Reset headers so the client stops issuing requests before the
// quota runs dry instead of collecting 429 responses.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyLimit      = "pexels:rate_limit:limit"
	RedisKeyRemaining  = "pexels:rate_limit:remaining"
	RedisKeyResetEpoch = "pexels:rate_limit:reset_epoch"
	RedisKeyLastUpdate = "pexels:rate_limit:last_update"
)

// Response headers carrying the Pexels quota.
const (
	HeaderLimit     = "X-Ratelimit-Limit"
	HeaderRemaining = "X-Ratelimit-Remaining"
	HeaderReset     = "X-Ratelimit-Reset"
)

// Thresholds for rate limit decisions.
const (
	// ThresholdCritical blocks all requests when the remaining quota falls below this value.
	ThresholdCritical = 5

	// ThresholdWarning applies throttling when the remaining quota falls below this value.
	ThresholdWarning = 20

	// ThresholdHealthy indicates normal operation.
	ThresholdHealthy = 50
)

// RateLimitState represents the current Pexels quota state.
// With a Redis backend this state is shared across all client instances.
type RateLimitState struct {
	// Limit is the total quota of the current period (X-Ratelimit-Limit).
	Limit int `json:"limit"`

	// Remaining is the number of requests left in the current period
	// (X-Ratelimit-Remaining).
	Remaining int `json:"remaining"`

	// ResetAt is when the quota period resets (X-Ratelimit-Reset, unix seconds).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last refreshed from response headers.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= ThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// DefaultState is assumed until the first response headers arrive.
func DefaultState() *RateLimitState {
	return &RateLimitState{
		Limit:      20000,
		Remaining:  20000,
		ResetAt:    time.Now().Add(time.Hour),
		LastUpdate: time.Now(),
		IsHealthy:  true,
	}
}

// IsStale returns true if the state data is older than the given duration.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// HasReset reports whether the quota period has rolled over since the state
// was recorded, which makes Remaining meaningless.
func (s *RateLimitState) HasReset() bool {
	return !s.ResetAt.IsZero() && time.Now().After(s.ResetAt)
}

// NeedsCriticalBlock returns true if requests should be blocked.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	return !s.HasReset() && s.Remaining < ThresholdCritical
}

// NeedsThrottling returns true if requests should be throttled.
func (s *RateLimitState) NeedsThrottling() bool {
	return !s.HasReset() && s.Remaining < ThresholdWarning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the quota resets, or 0 if the
// reset time has already passed.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on Remaining.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdHealthy
}
