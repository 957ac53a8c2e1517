// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the probing transport shared by verification
// and search: status classification, HEAD/GET probes, bounded retry with
// exponential backoff, and per-host request spacing.
package httputil

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/pdiddy/refverify/internal/delay"
	"github.com/pdiddy/refverify/internal/metrics"
	"github.com/pdiddy/refverify/pkg/types"
)

const defaultMaxAttempts = 3

// ProbeFunc performs one attempt and returns its classified outcome.
type ProbeFunc func(ctx context.Context) types.ProbeOutcome

// Policy retries retryable outcomes with capped exponential backoff.
type Policy struct {
	// MaxAttempts is the total number of attempts (default 3).
	MaxAttempts int

	// BaseDelay is the wait after the first failed attempt. It doubles on
	// each subsequent attempt: BaseDelay * 2^(i-1) for attempt i.
	BaseDelay time.Duration

	// MaxBackoff caps a single wait. Zero means uncapped.
	MaxBackoff time.Duration

	// Sleep performs the wait. Tests substitute a recorder; nil uses
	// delay.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error

	Logger *slog.Logger
}

// NewPolicy builds a policy from the verification config.
func NewPolicy(cfg types.VerifyConfig, logger *slog.Logger) Policy {
	return Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseBackoff,
		MaxBackoff:  cfg.MaxBackoff,
		Logger:      logger,
	}
}

// WithAttempts returns a copy of the policy with a different budget.
func (p Policy) WithAttempts(n int) Policy {
	p.MaxAttempts = n
	return p
}

// Backoff returns the wait after attempt i (1-indexed). It is monotonically
// non-decreasing in i and never exceeds MaxBackoff when one is set.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			break
		}
		// Stop doubling before overflow.
		if d > math.MaxInt64/2 {
			break
		}
		d *= 2
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return d
}

// Execute calls fn until it returns a terminal class or the attempt budget
// is spent. It returns the final outcome and every outcome in order. A
// cancelled context ends the sequence at the next wait; the last outcome
// is then final.
func (p Policy) Execute(ctx context.Context, fn ProbeFunc) (types.ProbeOutcome, []types.ProbeOutcome) {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = delay.Sleep
	}
	logger := orDiscard(p.Logger)

	var evidence []types.ProbeOutcome
	for attempt := 1; ; attempt++ {
		out := fn(ctx)
		evidence = append(evidence, out)

		if !out.Class.Retryable() || attempt >= maxAttempts {
			return out, evidence
		}

		backoff := p.Backoff(attempt)
		logger.Debug("retrying probe",
			"url", out.URL, "class", out.Class, "attempt", attempt, "max_attempts", maxAttempts, "backoff", backoff)
		metrics.RetriesTotal.WithLabelValues(string(out.Class)).Inc()

		if err := sleep(ctx, backoff); err != nil {
			return out, evidence
		}
	}
}
