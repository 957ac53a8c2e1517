// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/refverify/internal/httputil"
	"github.com/pdiddy/refverify/internal/metrics"
	"github.com/pdiddy/refverify/pkg/types"
)

// metadataBackend labels Crossref works lookups in metrics and on the
// returned record's Source.
const metadataBackend = "crossref_works"

// DOILookup fetches the Crossref works record registered for a DOI. The
// result enriches reports only; a failed lookup is not evidence against
// the DOI.
type DOILookup struct {
	Fetcher Fetcher
	Policy  httputil.Policy
	Timeout time.Duration
	Mailto  string
	Logger  *slog.Logger
}

// NewDOILookup builds a lookup sharing the search timeout, mailto and the
// smaller search retry budget.
func NewDOILookup(cfg types.SearchConfig, fetcher Fetcher, policy httputil.Policy, logger *slog.Logger) *DOILookup {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DOILookup{
		Fetcher: fetcher,
		Policy:  policy.WithAttempts(cfg.MaxAttempts),
		Timeout: cfg.Timeout,
		Mailto:  cfg.Mailto,
		Logger:  logger,
	}
}

// Request builds the works URL for doi.
func (l *DOILookup) Request(doi string) (string, http.Header) {
	parts := strings.Split(doi, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	rawURL := crossrefWorksBase + "/" + strings.Join(parts, "/")
	if l.Mailto != "" {
		rawURL += "?" + url.Values{"mailto": {l.Mailto}}.Encode()
	}
	return rawURL, http.Header{"Accept": {"application/json"}}
}

// LookupDOI returns the Crossref metadata for doi, or nil when the DOI is
// not registered with Crossref or the lookup fails. It never panics.
func (l *DOILookup) LookupDOI(ctx context.Context, doi string) (found *types.SuggestedRecord) {
	defer func() {
		if r := recover(); r != nil {
			l.Logger.Debug("metadata lookup panicked", "doi", doi, "panic", r)
			metrics.SearchesTotal.WithLabelValues(metadataBackend, "error").Inc()
			found = nil
		}
	}()

	doi = types.NormalizeDOI(doi)
	if doi == "" {
		metrics.SearchesTotal.WithLabelValues(metadataBackend, "skipped").Inc()
		return nil
	}

	rawURL, header := l.Request(doi)
	var resp crossrefWorkResponse
	final, evidence := l.Policy.Execute(ctx, func(ctx context.Context) types.ProbeOutcome {
		resp = crossrefWorkResponse{}
		return l.Fetcher.FetchJSON(ctx, rawURL, l.Timeout, header, &resp)
	})
	switch final.Class {
	case types.StatusOK:
	case types.StatusNotFound:
		l.Logger.Debug("DOI not registered with Crossref", "doi", doi, "code", final.Code())
		metrics.SearchesTotal.WithLabelValues(metadataBackend, "empty").Inc()
		return nil
	default:
		l.Logger.Debug("metadata lookup failed", "doi", doi, "class", final.Class,
			"code", final.Code(), "attempts", len(evidence), "error", final.Error)
		metrics.SearchesTotal.WithLabelValues(metadataBackend, "error").Inc()
		return nil
	}

	found = resp.Message.suggestion()
	if found == nil {
		metrics.SearchesTotal.WithLabelValues(metadataBackend, "empty").Inc()
		return nil
	}
	found.Source = metadataBackend
	metrics.SearchesTotal.WithLabelValues(metadataBackend, "found").Inc()
	return found
}

// crossrefWorkResponse is the single-work envelope of /works/<doi>.
type crossrefWorkResponse struct {
	Status  string       `json:"status"`
	Message crossrefWork `json:"message"`
}
