// Package cache is the key/value abstraction shared by the session store and
// the catalog read-through cache.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/villacheck/server/cache/local"
	cacheredis "github.com/villacheck/server/cache/redis"
)

// Cache is a string key/value store with optional per-key TTL. A TTL of 0
// keeps the key until it is deleted.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
}

// Config holds configuration for both Redis and the local cache.
type Config struct {
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	LocalGCInterval time.Duration
}

// New returns a Cache backed by Redis if RedisAddr is set, otherwise an
// in-process cache.
func New(cfg Config) (Cache, error) {
	if cfg.RedisAddr != "" {
		return cacheredis.NewCache(cacheredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return NewLocal(cfg.LocalGCInterval), nil
}

// NewLocal returns an in-process cache. Its contents die with the process.
func NewLocal(gcInterval time.Duration) *local.LocalCache {
	c, _ := local.NewCache(local.Config{GCInterval: gcInterval})
	return c
}

// IsNotFound reports whether err is a cache miss from any implementation.
func IsNotFound(err error) bool {
	return errors.Is(err, local.ErrNotFound) || errors.Is(err, cacheredis.ErrNotFound)
}
