package cache

import (
	"context"
	"time"
)

// Cache defines the key-value operations the services rely on.
// The abstraction keeps business logic independent of the concrete client.
type Cache interface {
	// Get retrieves the value for the given key; missing keys return "".
	Get(ctx context.Context, key string) (string, error)

	// Set stores a key-value pair with optional TTL (0 means no expiry).
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// SetNX sets the value only if the key does not exist.
	// Returns true if the key was set, false if it already existed.
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)

	// Del deletes one or more keys.
	Del(ctx context.Context, keys ...string) error

	// Expire sets a timeout on a key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Incr increments the integer value of a key by 1.
	Incr(ctx context.Context, key string) (int64, error)

	// HIncrBy increments field of the hash stored at key by value.
	HIncrBy(ctx context.Context, key, field string, value int64) (int64, error)

	// HGetAll returns all fields and values of the hash stored at key.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// Ping verifies the cache connection is alive.
	Ping(ctx context.Context) error

	// Close closes the cache connection.
	Close() error
}
