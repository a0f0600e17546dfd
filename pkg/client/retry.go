package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	pexelsRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pexels_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	pexelsRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pexels_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"error_class"})

	pexelsRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pexels_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryConfigForErrorClass derives the schedule for an error class from base.
func RetryConfigForErrorClass(errorClass ErrorClass, base RetryConfig) RetryConfig {
	cfg := base
	switch errorClass {
	case ErrorClassRateLimit:
		// 429 - back off hardest
		cfg.InitialBackoff = 4 * base.InitialBackoff
		cfg.MaxBackoff = 2 * base.MaxBackoff
	case ErrorClassNetwork:
		cfg.InitialBackoff = 2 * base.InitialBackoff
	}
	if cfg.InitialBackoff > cfg.MaxBackoff {
		cfg.InitialBackoff = cfg.MaxBackoff
	}
	return cfg
}

// classBackOff follows the exponential schedule of the most recent error class.
type classBackOff struct {
	base      RetryConfig
	class     *ErrorClass
	schedules map[ErrorClass]*backoff.ExponentialBackOff
}

func newClassBackOff(base RetryConfig, class *ErrorClass) *classBackOff {
	return &classBackOff{
		base:      base,
		class:     class,
		schedules: make(map[ErrorClass]*backoff.ExponentialBackOff),
	}
}

func (b *classBackOff) NextBackOff() time.Duration {
	schedule, ok := b.schedules[*b.class]
	if !ok {
		cfg := RetryConfigForErrorClass(*b.class, b.base)
		schedule = &backoff.ExponentialBackOff{
			InitialInterval:     cfg.InitialBackoff,
			RandomizationFactor: 0.2,
			Multiplier:          cfg.BackoffMultiplier,
			MaxInterval:         cfg.MaxBackoff,
		}
		schedule.Reset()
		b.schedules[*b.class] = schedule
	}
	return schedule.NextBackOff()
}

func (b *classBackOff) Reset() {
	for _, schedule := range b.schedules {
		schedule.Reset()
	}
}

// retryWithBackoff runs op until it succeeds, fails permanently, runs out of
// attempts or ctx is done. Errors whose class is not retryable are returned
// unchanged after the first attempt.
func retryWithBackoff[T any](ctx context.Context, cfg RetryConfig, logger zerolog.Logger, op func() (T, error)) (T, error) {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastClass ErrorClass
	attempts := 0

	operation := func() (T, error) {
		attempts++
		res, err := op()
		if err == nil {
			return res, nil
		}
		lastClass = classOf(err)
		if !shouldRetry(lastClass) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	notify := func(err error, wait time.Duration) {
		pexelsRetriesTotal.WithLabelValues(string(lastClass)).Inc()
		pexelsRetryBackoffSeconds.WithLabelValues(string(lastClass)).Observe(wait.Seconds())

		logger.Warn().
			Err(err).
			Str("error_class", string(lastClass)).
			Int("attempt", attempts).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")
	}

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(newClassBackOff(cfg, &lastClass)),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithNotify(notify),
	)
	if err == nil {
		if attempts > 1 {
			logger.Info().
				Str("error_class", string(lastClass)).
				Int("attempt", attempts).
				Msg("Request succeeded after retry")
		}
		return res, nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	if ctx.Err() != nil {
		return res, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
	if !shouldRetry(lastClass) {
		return res, err
	}

	pexelsRetryExhaustedTotal.WithLabelValues(string(lastClass)).Inc()
	logger.Warn().
		Str("error_class", string(lastClass)).
		Int("max_attempts", maxAttempts).
		Msg("Retry attempts exhausted")

	return res, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, err)
}
