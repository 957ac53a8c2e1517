// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes Prometheus instrumentation for probes, retries,
// searches and verdicts.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ProbesTotal counts physical probe requests by host, method and class.
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refverify_probes_total",
			Help: "Total number of probe requests",
		},
		[]string{"host", "method", "class"},
	)

	// ProbeLatency tracks probe request latency per host.
	ProbeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "refverify_probe_latency_seconds",
			Help:    "Probe request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"host"},
	)

	// RetriesTotal counts retries by the class that triggered them.
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refverify_retries_total",
			Help: "Total number of retried probe attempts",
		},
		[]string{"class"},
	)

	// SearchesTotal counts alternative searches by backend and result
	// (found, empty, error, skipped).
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refverify_searches_total",
			Help: "Total number of alternative searches",
		},
		[]string{"backend", "result"},
	)

	// VerdictsTotal counts finalized verdicts by kind.
	VerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refverify_verdicts_total",
			Help: "Total number of finalized verdicts",
		},
		[]string{"status"},
	)
)

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
