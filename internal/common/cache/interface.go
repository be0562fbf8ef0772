package cache

import (
	"context"
	"time"
)

// Cache is the key-value surface shared by the repositories, the judge guards and auth.
// RedisCache is the production implementation.
type Cache interface {
	// Get returns "" and a nil error when the key does not exist.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value. A zero ttl keeps the key forever.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// SetNX reports whether the key was created.
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)

	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (int64, error)

	// IncrWindow increments a fixed-window counter. The window starts with the first increment.
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}
