// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch verifies a list of records and aggregates the verdicts.
// Records are visited in input order, either one at a time or through a
// bounded worker pool; either way the result keeps input order and every
// record gets exactly one verdict, even when the run is cancelled.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/refverify/internal/delay"
	"github.com/pdiddy/refverify/internal/metrics"
	"github.com/pdiddy/refverify/pkg/types"
)

// CancelledReason is the evidence error of records never started because
// the run was stopped.
const CancelledReason = "cancelled before verification"

// RecordVerifier produces the verdict for one record.
type RecordVerifier interface {
	Verify(ctx context.Context, rec types.Record) types.Verdict
}

// Coordinator drives a batch run.
type Coordinator struct {
	Verifier RecordVerifier
	Governor *delay.Governor

	// DelayMin and DelayMax bound the pause before each network-touching
	// record after the first.
	DelayMin, DelayMax time.Duration

	// Workers is the number of records in flight (1 = sequential). Values
	// above types.MaxWorkers are clamped.
	Workers int

	// RecordTimeout bounds one record's verification (0 = none).
	RecordTimeout time.Duration

	// OnVerdict, when set, is called once per finalized verdict with the
	// record's input index. Calls are serialized.
	OnVerdict func(index int, v types.Verdict)

	// Sleep performs pauses; nil uses delay.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error

	Logger *slog.Logger

	mu sync.Mutex
}

// New returns a coordinator configured from cfg. A nil governor gets a
// randomly seeded one.
func New(v RecordVerifier, cfg types.VerifyConfig, gov *delay.Governor, logger *slog.Logger) *Coordinator {
	if gov == nil {
		gov = delay.NewGovernor(nil)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{
		Verifier:      v,
		Governor:      gov,
		DelayMin:      cfg.DelayMin,
		DelayMax:      cfg.DelayMax,
		Workers:       cfg.Workers,
		RecordTimeout: cfg.RecordTimeout,
		Logger:        logger,
	}
}

// Run verifies records and returns their verdicts in input order with the
// summary computed after all work has finished. Cancelling ctx stops the
// run between records; records not yet started are finalized as INVALID
// with a synthetic transport_error entry and Cancelled is set.
func (c *Coordinator) Run(ctx context.Context, records []types.Record) types.BatchResult {
	res := types.BatchResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Verdicts:  make([]types.Verdict, len(records)),
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	c.Logger.Info("batch started", "run", res.RunID, "records", len(records), "workers", c.workers())

	done := make([]bool, len(records))
	if c.workers() <= 1 {
		c.runSequential(ctx, records, res.Verdicts, done)
	} else {
		c.runPool(ctx, records, res.Verdicts, done)
	}

	for i, ok := range done {
		if !ok {
			res.Cancelled = true
			c.finalize(i, res.Verdicts, cancelledVerdict(records[i]))
		}
	}
	for _, v := range res.Verdicts {
		res.Summary.Add(v)
	}
	res.FinishedAt = time.Now().UTC()

	s := res.Summary
	c.Logger.Info("batch finished", "run", res.RunID, "total", s.Total, "valid", s.Valid,
		"invalid", s.Invalid, "no_identifier", s.NoIdentifier, "needs_review", s.NeedsReview,
		"cancelled", res.Cancelled, "elapsed", res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
	return res
}

func (c *Coordinator) workers() int {
	switch {
	case c.Workers < 1:
		return 1
	case c.Workers > types.MaxWorkers:
		return types.MaxWorkers
	default:
		return c.Workers
	}
}

func (c *Coordinator) runSequential(ctx context.Context, records []types.Record, out []types.Verdict, done []bool) {
	networked := false
	for i, rec := range records {
		if ctx.Err() != nil {
			return
		}
		if rec.HasIdentifier() {
			if networked && !c.pause(ctx, rec.Key) {
				return
			}
			networked = true
		}
		c.finalize(i, out, c.verifyOne(ctx, rec))
		done[i] = true
	}
}

func (c *Coordinator) runPool(ctx context.Context, records []types.Record, out []types.Verdict, done []bool) {
	first := -1
	for i, rec := range records {
		if rec.HasIdentifier() {
			first = i
			break
		}
	}

	var g errgroup.Group
	g.SetLimit(c.workers())
	for i, rec := range records {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if rec.HasIdentifier() && i != first && !c.pause(ctx, rec.Key) {
				return nil
			}
			c.finalize(i, out, c.verifyOne(ctx, rec))
			done[i] = true
			return nil
		})
	}
	g.Wait()
}

// pause waits a randomized delay and reports whether the run may continue.
func (c *Coordinator) pause(ctx context.Context, key string) bool {
	d, err := c.Governor.Next(c.DelayMin, c.DelayMax)
	if err != nil {
		c.Logger.Warn("invalid delay bounds, not pausing", "error", err)
		return ctx.Err() == nil
	}
	sleep := c.Sleep
	if sleep == nil {
		sleep = delay.Sleep
	}
	c.Logger.Debug("pausing before record", "key", key, "delay", d)
	return sleep(ctx, d) == nil
}

// verifyOne runs the verifier under the per-record deadline and turns a
// panic into an INVALID verdict.
func (c *Coordinator) verifyOne(ctx context.Context, rec types.Record) (v types.Verdict) {
	if c.RecordTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.RecordTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			c.Logger.Error("verification panicked", "key", rec.Key, "panic", r)
			v = failedVerdict(rec, fmt.Sprintf("verification panicked: %v", r))
		}
	}()
	return c.Verifier.Verify(ctx, rec)
}

// finalize stores v at index i and reports it. Indices are disjoint across
// workers; the lock serializes the callback.
func (c *Coordinator) finalize(i int, out []types.Verdict, v types.Verdict) {
	out[i] = v
	metrics.VerdictsTotal.WithLabelValues(string(v.Kind)).Inc()
	c.Logger.Debug("verdict", "key", v.Key, "status", v.Kind, "attempts", len(v.Evidence))
	if c.OnVerdict == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.OnVerdict(i, v)
}

func failedVerdict(rec types.Record, reason string) types.Verdict {
	return types.Verdict{
		Key:      rec.Key,
		Kind:     types.VerdictInvalid,
		Evidence: []types.ProbeOutcome{types.TransportFailure("", "", reason, 0)},
		Record:   rec,
	}
}

func cancelledVerdict(rec types.Record) types.Verdict {
	return failedVerdict(rec, CancelledReason)
}
