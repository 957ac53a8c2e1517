// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package delay computes randomized pauses between records so request
// timing does not form a detectable pattern.
package delay

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/pdiddy/refverify/pkg/types"
)

// Governor draws pause durations from an injectable random source.
type Governor struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGovernor returns a governor using rng, or a freshly seeded source
// when rng is nil.
func NewGovernor(rng *rand.Rand) *Governor {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Governor{rng: rng}
}

// Next returns a uniformly distributed duration in [min, max]. It fails
// with a *types.ConfigError when min > max or either bound is negative.
func (g *Governor) Next(min, max time.Duration) (time.Duration, error) {
	if min < 0 || max < 0 {
		return 0, &types.ConfigError{Field: "delay", Reason: "bounds must not be negative"}
	}
	if min > max {
		return 0, &types.ConfigError{Field: "delay", Reason: fmt.Sprintf("min %v exceeds max %v", min, max)}
	}
	if min == max {
		return min, nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return min + time.Duration(g.rng.Int64N(int64(max-min)+1)), nil
}

// Sleep blocks for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
