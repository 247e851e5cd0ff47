package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"
)

// ErrNotObtained is returned when the Redis lock could not be taken before
// the context deadline (or the lock TTL, when ctx has no deadline).
var ErrNotObtained = errors.New("lock: not obtained")

// Redis coordinates several instances that share one Redis server.
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
	retry  time.Duration
}

// DialRedis connects to Redis and pings it before returning.
func DialRedis(cfg Config) (*Redis, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("lock: redis ping %s: %w", cfg.RedisAddr, err)
	}
	return NewRedis(rdb, cfg.TTL, cfg.RetryInterval), nil
}

// NewRedis wraps an existing client. ttl bounds how long a crashed holder
// can block others; retry is the polling interval while waiting.
func NewRedis(rdb redislock.RedisClient, ttl, retry time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if retry <= 0 {
		retry = 100 * time.Millisecond
	}
	return &Redis{client: redislock.New(rdb), ttl: ttl, retry: retry}
}

func (r *Redis) Acquire(ctx context.Context, key string) (Release, error) {
	lk, err := r.client.Obtain(ctx, "lock:"+key, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(r.retry),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
	}
	if err != nil {
		return nil, fmt.Errorf("lock: obtain %s: %w", key, err)
	}
	var once sync.Once
	return func() {
		once.Do(func() { _ = lk.Release(context.Background()) })
	}, nil
}
