// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/pdiddy/refverify/internal/identity"
	"github.com/pdiddy/refverify/internal/metrics"
	"github.com/pdiddy/refverify/pkg/types"
)

// maxDrain bounds how much of a GET body is read before closing, so the
// connection can be reused without downloading whole landing pages.
const maxDrain = 64 << 10

// Prober issues single probes against candidate URLs and classifies the
// transport outcome.
type Prober struct {
	Client   *http.Client
	Identity *identity.Rotator
	Limiter  HostLimiter
	Logger   *slog.Logger
}

// NewProber returns a prober with a redirect-following client. A nil
// limiter means no host spacing.
func NewProber(client *http.Client, rot *identity.Rotator, limiter HostLimiter, logger *slog.Logger) *Prober {
	if client == nil {
		client = &http.Client{}
	}
	if rot == nil {
		rot = identity.NewRotator(nil, nil)
	}
	if limiter == nil {
		limiter = NoLimit{}
	}
	return &Prober{Client: client, Identity: rot, Limiter: limiter, Logger: orDiscard(logger)}
}

// Probe sends HEAD to rawURL and falls back to a single GET when the HEAD
// result is unusable. The timeout applies to each request separately.
// The returned outcome describes the last request made; its latency covers
// both requests when a fallback happened.
func (p *Prober) Probe(ctx context.Context, rawURL string, timeout time.Duration) types.ProbeOutcome {
	start := time.Now()
	out, fallback := p.do(ctx, http.MethodHead, rawURL, timeout)
	if fallback {
		p.Logger.Debug("HEAD unusable, retrying with GET", "url", rawURL, "code", out.Code(), "error", out.Error)
		out, _ = p.do(ctx, http.MethodGet, rawURL, timeout)
	}
	out.Latency = time.Since(start)
	return out
}

// do performs one request and reports whether a HEAD result warrants a
// GET fallback.
func (p *Prober) do(ctx context.Context, method, rawURL string, timeout time.Duration) (types.ProbeOutcome, bool) {
	var drain func(*http.Response) error
	if method == http.MethodGet {
		drain = func(resp *http.Response) error {
			_, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
			return err
		}
	}
	out, err := p.send(ctx, method, rawURL, timeout, nil, drain)
	return out, method == http.MethodHead && headUnusable(out.Code(), err)
}

// send performs one request under the host limiter and classifies the
// response. consume, when set, reads the body of any response; its error is
// ignored for non-ok classes. The returned error is the transport error, if
// any.
func (p *Prober) send(ctx context.Context, method, rawURL string, timeout time.Duration, header http.Header, consume func(*http.Response) error) (types.ProbeOutcome, error) {
	start := time.Now()
	host := hostOf(rawURL)

	if err := p.Limiter.Wait(ctx, host); err != nil {
		return types.TransportFailure(rawURL, method, fmt.Sprintf("waiting for host slot: %v", err), time.Since(start)), err
	}

	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, method, rawURL, nil)
	if err != nil {
		return types.TransportFailure(rawURL, method, fmt.Sprintf("creating request: %v", err), 0), err
	}
	p.Identity.Next().Apply(req)
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := p.Client.Do(req)
	latency := time.Since(start)
	metrics.ProbeLatency.WithLabelValues(host).Observe(latency.Seconds())
	if err != nil {
		out := types.TransportFailure(rawURL, method, err.Error(), latency)
		metrics.ProbesTotal.WithLabelValues(host, method, string(out.Class)).Inc()
		return out, err
	}
	defer resp.Body.Close()

	code := resp.StatusCode
	out := types.ProbeOutcome{
		Class:    ClassifyStatus(code),
		HTTPCode: &code,
		Latency:  latency,
		URL:      rawURL,
		Method:   method,
	}
	if resp.Request != nil && resp.Request.URL != nil {
		if final := resp.Request.URL.String(); final != rawURL {
			out.FinalURL = final
		}
	}
	if consume != nil {
		if cerr := consume(resp); cerr != nil && out.Class == types.StatusOK {
			out.Class = types.StatusTransportError
			out.Error = cerr.Error()
		}
	}
	metrics.ProbesTotal.WithLabelValues(host, method, string(out.Class)).Inc()
	return out, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

func orDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
