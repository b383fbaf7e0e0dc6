// Package cache provides the caching infrastructure backing the entity
// translation map: a byte-oriented Cache interface with in-memory and
// Redis implementations.
package cache

import (
	"context"
	"time"
)

// Cache defines the interface for cache implementations.
// All implementations must be thread-safe.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil and ErrCacheMiss if not found or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with the specified TTL.
	// If TTL is 0, uses the default TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key from the cache.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries from the cache.
	Clear(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error
}

// Error represents an error type for cache operations.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrCacheMiss indicates the key was not found in cache or has expired.
	ErrCacheMiss Error = "cache miss"

	// ErrCacheClosed indicates the cache has been closed.
	ErrCacheClosed Error = "cache closed"
)

// Config holds configuration for cache creation.
type Config struct {
	// RedisURL selects the Redis backend when non-empty.
	RedisURL string
	// Prefix is prepended to all keys on the Redis backend.
	Prefix string
	// DefaultTTL is the default expiration for cache entries.
	DefaultTTL time.Duration
	// CleanupInterval is the expired-entry sweep interval for the
	// memory backend (0 = no sweep).
	CleanupInterval time.Duration
}

// New creates a cache from the configuration: Redis when a URL is set,
// in-memory otherwise.
func New(cfg Config) (Cache, error) {
	if cfg.RedisURL != "" {
		return NewRedisCache(cfg.RedisURL, cfg.Prefix, cfg.DefaultTTL)
	}
	return NewMemoryCache(cfg.DefaultTTL, cfg.CleanupInterval), nil
}
