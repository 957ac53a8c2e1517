// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/refverify/pkg/types"
)

// sleepRecorder captures requested waits without sleeping.
type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

// scripted returns a ProbeFunc yielding classes in order and counting calls.
func scripted(calls *int, classes ...types.StatusClass) ProbeFunc {
	return func(ctx context.Context) types.ProbeOutcome {
		c := classes[*calls]
		*calls++
		return types.ProbeOutcome{Class: c, URL: "https://example.org"}
	}
}

func TestExecuteTerminalClassesNotRetried(t *testing.T) {
	for _, class := range []types.StatusClass{types.StatusOK, types.StatusNotFound, types.StatusForbidden} {
		t.Run(string(class), func(t *testing.T) {
			var rec sleepRecorder
			calls := 0
			p := Policy{MaxAttempts: 3, BaseDelay: time.Second, Sleep: rec.sleep}

			final, evidence := p.Execute(context.Background(), scripted(&calls, class, types.StatusOK, types.StatusOK))

			assert.Equal(t, class, final.Class)
			assert.Len(t, evidence, 1)
			assert.Equal(t, 1, calls)
			assert.Empty(t, rec.waits)
		})
	}
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	var rec sleepRecorder
	calls := 0
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second, Sleep: rec.sleep}

	final, evidence := p.Execute(context.Background(),
		scripted(&calls, types.StatusRateLimited, types.StatusServerError, types.StatusOK))

	assert.Equal(t, types.StatusOK, final.Class)
	require.Len(t, evidence, 3)
	assert.Equal(t, types.StatusRateLimited, evidence[0].Class)
	assert.Equal(t, types.StatusServerError, evidence[1].Class)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.waits)
}

func TestExecuteStopsAtBudget(t *testing.T) {
	var rec sleepRecorder
	calls := 0
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Sleep: rec.sleep}

	// A fourth attempt would succeed; it must never be made.
	final, evidence := p.Execute(context.Background(), scripted(&calls,
		types.StatusTransportError, types.StatusTransportError, types.StatusTransportError, types.StatusOK))

	assert.Equal(t, types.StatusTransportError, final.Class)
	assert.Len(t, evidence, 3)
	assert.Equal(t, 3, calls)
	assert.Len(t, rec.waits, 2, "no wait after the last attempt")
}

func TestExecuteDefaultBudget(t *testing.T) {
	var rec sleepRecorder
	calls := 0
	p := Policy{Sleep: rec.sleep}

	_, evidence := p.Execute(context.Background(), scripted(&calls,
		types.StatusServerError, types.StatusServerError, types.StatusServerError, types.StatusServerError))
	assert.Len(t, evidence, defaultMaxAttempts)
}

func TestExecuteCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}

	final, evidence := p.Execute(ctx, scripted(&calls,
		types.StatusServerError, types.StatusOK))

	assert.Equal(t, types.StatusServerError, final.Class)
	assert.Len(t, evidence, 1)
}

func TestBackoffMonotonicAndCapped(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxBackoff: 10 * time.Second}

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}
	prev := time.Duration(0)
	for i, w := range want {
		got := p.Backoff(i + 1)
		assert.Equal(t, w, got, "attempt %d", i+1)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}

	for i := 1; i < 200; i++ {
		assert.LessOrEqual(t, p.Backoff(i), p.MaxBackoff)
	}
}

func TestBackoffUncappedDoesNotOverflow(t *testing.T) {
	for _, base := range []time.Duration{time.Nanosecond, 3 * time.Nanosecond, time.Second} {
		p := Policy{BaseDelay: base}
		prev := time.Duration(0)
		for i := 1; i < 100; i++ {
			got := p.Backoff(i)
			require.Positive(t, got, "base %v attempt %d", base, i)
			assert.GreaterOrEqual(t, got, prev, "base %v attempt %d", base, i)
			prev = got
		}
	}
	assert.Equal(t, time.Duration(1<<62), Policy{BaseDelay: time.Nanosecond}.Backoff(64))
}

func TestBackoffZeroBase(t *testing.T) {
	assert.Equal(t, time.Duration(0), Policy{}.Backoff(3))
}
