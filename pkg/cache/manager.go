package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

const (
	// DefaultMemorySize is the number of entries kept in the memory layer.
	DefaultMemorySize = 256

	// DefaultMemoryTTL bounds how long an entry stays in the memory layer.
	DefaultMemoryTTL = 10 * time.Minute

	// DefaultStaleGrace is how long an expired entry is kept for revalidation.
	DefaultStaleGrace = 10 * time.Minute
)

// Options configures a Manager.
type Options struct {
	// MemorySize is the capacity of the memory layer (0 uses DefaultMemorySize)
	MemorySize int

	// MemoryTTL bounds the lifetime of memory entries (0 uses DefaultMemoryTTL)
	MemoryTTL time.Duration

	// StaleGrace keeps expired entries around so they can be revalidated
	// with a conditional request (0 uses DefaultStaleGrace)
	StaleGrace time.Duration
}

// Manager caches responses in an in-memory LRU backed by an optional Redis.
//
// Get may return an expired entry; callers check IsExpired and revalidate.
type Manager struct {
	redis      *redis.Client
	memory     *expirable.LRU[string, *Entry]
	staleGrace time.Duration
}

// NewManager creates a new cache manager. redisClient may be nil, in which
// case only the memory layer is used.
func NewManager(redisClient *redis.Client, opts Options) *Manager {
	if opts.MemorySize <= 0 {
		opts.MemorySize = DefaultMemorySize
	}
	if opts.MemoryTTL <= 0 {
		opts.MemoryTTL = DefaultMemoryTTL
	}
	if opts.StaleGrace <= 0 {
		opts.StaleGrace = DefaultStaleGrace
	}

	return &Manager{
		redis:      redisClient,
		memory:     expirable.NewLRU[string, *Entry](opts.MemorySize, nil, opts.MemoryTTL),
		staleGrace: opts.StaleGrace,
	}
}

// HasRedis reports whether a Redis layer is configured.
func (m *Manager) HasRedis() bool {
	return m.redis != nil
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist or is past its stale grace.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	cacheKey := key.String()

	if entry, ok := m.memory.Get(cacheKey); ok {
		if m.discardable(entry) {
			m.memory.Remove(cacheKey)
		} else {
			CacheHits.WithLabelValues("memory").Inc()
			return entry, nil
		}
	}

	if m.redis == nil {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	data, err := m.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if m.discardable(&entry) {
		_ = m.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	m.memory.Add(cacheKey, &entry)
	CacheMemoryEntries.Set(float64(m.memory.Len()))
	CacheHits.WithLabelValues("redis").Inc()

	return &entry, nil
}

// Set stores a cache entry. Redis keeps it for its remaining TTL plus the
// stale grace period.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	if m.discardable(entry) {
		return nil
	}

	cacheKey := key.String()
	m.memory.Add(cacheKey, entry)
	CacheMemoryEntries.Set(float64(m.memory.Len()))

	if m.redis == nil {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, cacheKey, data, entry.TTL()+m.staleGrace).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a cache entry from all layers.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	cacheKey := key.String()
	m.memory.Remove(cacheKey)
	CacheMemoryEntries.Set(float64(m.memory.Len()))

	if m.redis == nil {
		return nil
	}
	if err := m.redis.Del(ctx, cacheKey).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Refresh extends the expiry of an existing entry.
// This is used after a 304 Not Modified response confirmed the cached body.
func (m *Manager) Refresh(ctx context.Context, key Key, newExpires time.Time) (*Entry, error) {
	entry, err := m.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	refreshed := entry.WithExpires(newExpires)
	if err := m.Set(ctx, key, refreshed); err != nil {
		return nil, err
	}
	return refreshed, nil
}

// Purge drops every entry of the memory layer.
func (m *Manager) Purge() {
	m.memory.Purge()
	CacheMemoryEntries.Set(0)
}

func (m *Manager) discardable(entry *Entry) bool {
	return time.Now().After(entry.Expires.Add(m.staleGrace))
}
