// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/pdiddy/refverify/internal/delay"
	"github.com/pdiddy/refverify/pkg/types"
)

// HostLimiter enforces a minimum spacing between requests to one host,
// shared by every worker that holds it.
type HostLimiter interface {
	Wait(ctx context.Context, host string) error
}

// NoLimit never waits.
type NoLimit struct{}

// Wait returns ctx.Err().
func (NoLimit) Wait(ctx context.Context, _ string) error { return ctx.Err() }

// MemoryLimiter keeps one token bucket per host in process memory.
type MemoryLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	hosts    map[string]*rate.Limiter
}

// NewMemoryLimiter returns a limiter allowing one request per interval per
// host. A non-positive interval disables spacing.
func NewMemoryLimiter(interval time.Duration) *MemoryLimiter {
	return &MemoryLimiter{interval: interval, hosts: make(map[string]*rate.Limiter)}
}

// Wait blocks until host may be contacted again.
func (l *MemoryLimiter) Wait(ctx context.Context, host string) error {
	if l.interval <= 0 {
		return ctx.Err()
	}
	return l.limiter(host).Wait(ctx)
}

func (l *MemoryLimiter) limiter(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.hosts[host]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.interval), 1)
		l.hosts[host] = lim
	}
	return lim
}

// RedisLimiter spaces requests across processes by holding a per-host key
// with a TTL equal to the interval. While Redis is unreachable it falls
// back to an in-process limiter.
type RedisLimiter struct {
	client   *redis.Client
	interval time.Duration
	prefix   string
	fallback *MemoryLimiter
	logger   *slog.Logger
}

// minPoll bounds how often a waiting worker re-checks a held key.
const minPoll = 10 * time.Millisecond

// NewRedisLimiter connects to the configured Redis server.
func NewRedisLimiter(cfg types.LimiterConfig, interval time.Duration, logger *slog.Logger) *RedisLimiter {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "refverify:host:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: 2 * time.Second,
		MaxRetries:  1,
	})
	return &RedisLimiter{
		client:   client,
		interval: interval,
		prefix:   prefix,
		fallback: NewMemoryLimiter(interval),
		logger:   orDiscard(logger),
	}
}

// Wait acquires the host slot, polling until the holder's TTL expires.
func (l *RedisLimiter) Wait(ctx context.Context, host string) error {
	if l.interval <= 0 {
		return ctx.Err()
	}
	key := l.prefix + host
	for {
		ok, err := l.client.SetNX(ctx, key, 1, l.interval).Result()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Warn("redis limiter unavailable, using local spacing", "host", host, "error", err)
			return l.fallback.Wait(ctx, host)
		}
		if ok {
			return nil
		}

		ttl, err := l.client.PTTL(ctx, key).Result()
		if err != nil || ttl < minPoll {
			ttl = minPoll
		}
		if err := delay.Sleep(ctx, ttl); err != nil {
			return err
		}
	}
}

// Close releases the Redis connection pool.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

// NewHostLimiter selects the Redis limiter when an address is configured
// and the in-memory limiter otherwise.
func NewHostLimiter(cfg types.VerifyConfig, logger *slog.Logger) (HostLimiter, func() error, error) {
	if cfg.HostInterval < 0 {
		return nil, nil, fmt.Errorf("host interval: %w", types.ErrConfig)
	}
	if cfg.Limiter.RedisAddr != "" {
		rl := NewRedisLimiter(cfg.Limiter, cfg.HostInterval, logger)
		return rl, rl.Close, nil
	}
	return NewMemoryLimiter(cfg.HostInterval), func() error { return nil }, nil
}
