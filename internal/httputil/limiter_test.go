// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/refverify/pkg/types"
)

func TestMemoryLimiterSpacesSameHost(t *testing.T) {
	l := NewMemoryLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx, "doi.org"))
	}
	// First call is immediate, the next two wait one interval each.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestMemoryLimiterIndependentHosts(t *testing.T) {
	l := NewMemoryLimiter(time.Hour)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "doi.org"))
	require.NoError(t, l.Wait(ctx, "arxiv.org"))
	require.NoError(t, l.Wait(ctx, "api.crossref.org"))
	assert.Less(t, time.Since(start), time.Second)
}

func TestMemoryLimiterSharedAcrossWorkers(t *testing.T) {
	l := NewMemoryLimiter(30 * time.Millisecond)
	ctx := context.Background()

	var mu sync.Mutex
	var stamps []time.Time
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, l.Wait(ctx, "doi.org"))
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, stamps, 4)
	first, last := stamps[0], stamps[0]
	for _, s := range stamps {
		if s.Before(first) {
			first = s
		}
		if s.After(last) {
			last = s
		}
	}
	assert.GreaterOrEqual(t, last.Sub(first), 80*time.Millisecond)
}

func TestMemoryLimiterCancelled(t *testing.T) {
	l := NewMemoryLimiter(time.Hour)
	require.NoError(t, l.Wait(context.Background(), "doi.org"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "doi.org"))
}

func TestMemoryLimiterDisabled(t *testing.T) {
	l := NewMemoryLimiter(0)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background(), "doi.org"))
	}
}

func TestRedisLimiterFallsBackWhenUnreachable(t *testing.T) {
	l := NewRedisLimiter(types.LimiterConfig{RedisAddr: "127.0.0.1:1"}, 10*time.Millisecond, nil)
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	assert.NoError(t, l.Wait(ctx, "doi.org"))
}

func TestRedisLimiterLive(t *testing.T) {
	addr := os.Getenv("REFVERIFY_TEST_REDIS")
	if addr == "" {
		t.Skip("REFVERIFY_TEST_REDIS not set")
	}
	l := NewRedisLimiter(types.LimiterConfig{RedisAddr: addr, KeyPrefix: "refverify-test:"}, 50*time.Millisecond, nil)
	defer l.Close()

	ctx := context.Background()
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "doi.org"))
	require.NoError(t, l.Wait(ctx, "doi.org"))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestNewHostLimiterSelectsBackend(t *testing.T) {
	cfg := types.DefaultVerifyConfig()
	l, closeFn, err := NewHostLimiter(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryLimiter{}, l)
	assert.NoError(t, closeFn())

	cfg.Limiter.RedisAddr = "127.0.0.1:1"
	l, closeFn, err = NewHostLimiter(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &RedisLimiter{}, l)
	assert.NoError(t, closeFn())
}
