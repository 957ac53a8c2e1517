// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/refverify/internal/archive"
	"github.com/pdiddy/refverify/internal/batch"
	"github.com/pdiddy/refverify/internal/httputil"
	"github.com/pdiddy/refverify/internal/identity"
	"github.com/pdiddy/refverify/internal/metrics"
	"github.com/pdiddy/refverify/internal/search"
	"github.com/pdiddy/refverify/internal/verify"
	"github.com/pdiddy/refverify/pkg/types"
)

// engine wires the verification components for one command run.
type engine struct {
	settings    settings
	coordinator *batch.Coordinator
	closers     []func() error
	logger      *slog.Logger
}

// newEngine resolves configuration and builds the prober, verifier,
// optional alternative search and batch coordinator.
func newEngine(logger *slog.Logger) (*engine, error) {
	st, err := loadSettings(viper.GetViper(), loadedSecrets.Apply)
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}

	limiter, closeLimiter, err := httputil.NewHostLimiter(st.Verify, logger)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = types.MaxWorkers
	client := &http.Client{Transport: transport}

	prober := httputil.NewProber(client, identity.NewRotator(nil, nil), limiter, logger)
	policy := httputil.NewPolicy(st.Verify, logger)

	var finder verify.AlternativeFinder
	if st.Search.Enabled {
		f, err := search.NewFinder(st.Search, prober, policy, logger)
		if err != nil {
			closeLimiter()
			return nil, err
		}
		finder = f
	}

	verifier := verify.New(prober, policy, st.Verify.Timeout, finder, logger)
	if st.Search.Metadata {
		verifier.WithMetadata(search.NewDOILookup(st.Search, prober, policy, logger))
	}
	coord := batch.New(verifier, st.Verify, nil, logger)

	logger.Debug("engine configured", "workers", st.Verify.Workers, "timeout", st.Verify.Timeout,
		"max_attempts", st.Verify.MaxAttempts, "search", st.Search.Enabled, "backend", st.Search.Backend, "metadata", st.Search.Metadata,
		"redis", st.Verify.Limiter.RedisAddr != "")

	return &engine{
		settings:    st,
		coordinator: coord,
		closers:     []func() error{closeLimiter},
		logger:      logger,
	}, nil
}

// run verifies records, printing one progress line per verdict to w. The
// run stops early on SIGINT or SIGTERM; finished verdicts are kept.
func (e *engine) run(records []types.Record, source string, w io.Writer) (types.BatchResult, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr := e.settings.MetricsAddr; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr); err != nil {
				e.logger.Error("metrics server failed", "addr", addr, "error", err)
			}
		}()
		e.logger.Info("serving metrics", "addr", addr)
	}

	total := len(records)
	e.coordinator.OnVerdict = func(i int, v types.Verdict) {
		line := fmt.Sprintf("[%d/%d] %-13s %s", i+1, total, v.Kind, v.Key)
		if v.NeedsReview {
			line += " (access denied, needs review)"
		}
		if v.Alternative != nil {
			line += fmt.Sprintf(" -> suggested %s", v.Alternative.Identifier())
		}
		fmt.Fprintln(w, line)
	}

	res := e.coordinator.Run(ctx, records)
	s := res.Summary
	fmt.Fprintf(w, "\nVerification summary: %d valid, %d invalid, %d without identifier (total: %d)\n",
		s.Valid, s.Invalid, s.NoIdentifier, s.Total)
	if res.Cancelled {
		fmt.Fprintln(w, "Run interrupted; unverified references are marked INVALID.")
	}

	if e.settings.Archive != "" {
		if err := e.archive(res, source); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (e *engine) archive(res types.BatchResult, source string) error {
	store, err := archive.Open(e.settings.Archive)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.SaveRun(ctx, res, source); err != nil {
		return fmt.Errorf("archiving run: %w", err)
	}
	e.logger.Info("run archived", "run", res.RunID, "path", e.settings.Archive)
	return nil
}

// Close releases the limiter and any other held resources.
func (e *engine) Close() error {
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// invalidError reports failed references as the command's error so the
// process exits non-zero.
func invalidError(res types.BatchResult) error {
	if !res.HasInvalid() {
		return nil
	}
	return fmt.Errorf("%d reference(s) failed verification", res.Summary.Invalid)
}
