// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search looks up a plausible replacement for a reference that
// failed verification. A Finder builds a bibliographic query from the
// record, asks one configured backend (Crossref, OpenAlex or Semantic
// Scholar) for its top hit, and degrades to no suggestion on any failure.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pdiddy/refverify/internal/httputil"
	"github.com/pdiddy/refverify/internal/metrics"
	"github.com/pdiddy/refverify/pkg/types"
)

// Query field limits, in runes.
const (
	maxTitleQuery   = 100
	maxJournalQuery = 50
)

// Response is a decoded backend payload that can yield its top hit.
type Response interface {
	Top() *types.SuggestedRecord
}

// Backend describes one search API. Each backend builds its request and
// knows how to decode its own response shape.
type Backend interface {
	Name() string
	Request(query string) (rawURL string, header http.Header)
	NewResponse() Response
}

// Fetcher performs one JSON GET and classifies the outcome.
// *httputil.Prober satisfies it.
type Fetcher interface {
	FetchJSON(ctx context.Context, rawURL string, timeout time.Duration, header http.Header, dst any) types.ProbeOutcome
}

// Finder runs alternative searches through the retry policy.
type Finder struct {
	Backend Backend
	Fetcher Fetcher
	Policy  httputil.Policy
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewFinder builds a finder for cfg. The policy budget is replaced by
// cfg.MaxAttempts.
func NewFinder(cfg types.SearchConfig, fetcher Fetcher, policy httputil.Policy, logger *slog.Logger) (*Finder, error) {
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Finder{
		Backend: backend,
		Fetcher: fetcher,
		Policy:  policy.WithAttempts(cfg.MaxAttempts),
		Timeout: cfg.Timeout,
		Logger:  logger,
	}, nil
}

// NewBackend returns the backend named by cfg.Backend.
func NewBackend(cfg types.SearchConfig) (Backend, error) {
	switch cfg.Backend {
	case types.BackendCrossref, "":
		return &CrossrefBackend{Mailto: cfg.Mailto}, nil
	case types.BackendOpenAlex:
		return &OpenAlexBackend{Mailto: cfg.Mailto}, nil
	case types.BackendSemanticScholar:
		return &SemanticScholarBackend{APIKey: cfg.SemanticScholarAPIKey}, nil
	default:
		return nil, &types.ConfigError{Field: "search_backend", Reason: fmt.Sprintf("unknown backend %q", cfg.Backend)}
	}
}

// FindAlternative returns the backend's top hit for rec, or nil when the
// record has no searchable metadata, the search fails, or nothing matches.
// It never panics.
func (f *Finder) FindAlternative(ctx context.Context, rec types.Record) (found *types.SuggestedRecord) {
	name := f.Backend.Name()
	defer func() {
		if r := recover(); r != nil {
			f.Logger.Debug("alternative search panicked", "key", rec.Key, "backend", name, "panic", r)
			metrics.SearchesTotal.WithLabelValues(name, "error").Inc()
			found = nil
		}
	}()

	query := BuildQuery(rec)
	if query == "" {
		f.Logger.Debug("no searchable metadata", "key", rec.Key)
		metrics.SearchesTotal.WithLabelValues(name, "skipped").Inc()
		return nil
	}

	rawURL, header := f.Backend.Request(query)
	var resp Response
	final, evidence := f.Policy.Execute(ctx, func(ctx context.Context) types.ProbeOutcome {
		resp = f.Backend.NewResponse()
		return f.Fetcher.FetchJSON(ctx, rawURL, f.Timeout, header, resp)
	})
	if final.Class != types.StatusOK {
		f.Logger.Debug("alternative search failed", "key", rec.Key, "backend", name,
			"class", final.Class, "code", final.Code(), "attempts", len(evidence), "error", final.Error)
		metrics.SearchesTotal.WithLabelValues(name, "error").Inc()
		return nil
	}

	found = resp.Top()
	if found == nil {
		f.Logger.Debug("no alternatives found", "key", rec.Key, "backend", name)
		metrics.SearchesTotal.WithLabelValues(name, "empty").Inc()
		return nil
	}
	found.Source = name
	f.Logger.Debug("alternative found", "key", rec.Key, "backend", name, "title", found.Title, "id", found.Identifier())
	metrics.SearchesTotal.WithLabelValues(name, "found").Inc()
	return found
}

// BuildQuery joins the record's title (first 100 runes), journal (first 50
// runes), first author and year into one free-text query.
func BuildQuery(rec types.Record) string {
	var parts []string
	if t := truncate(strings.TrimSpace(rec.Title), maxTitleQuery); t != "" {
		parts = append(parts, t)
	}
	if j := truncate(strings.TrimSpace(rec.Journal), maxJournalQuery); j != "" {
		parts = append(parts, j)
	}
	if a := firstAuthor(rec.Author); a != "" {
		parts = append(parts, a)
	}
	if y := strings.TrimSpace(rec.Year); y != "" {
		parts = append(parts, y)
	}
	return strings.Join(parts, " ")
}

// firstAuthor returns the first name of a BibTeX "A and B" author list.
func firstAuthor(authors string) string {
	authors = strings.TrimSpace(authors)
	if i := strings.Index(authors, " and "); i >= 0 {
		authors = authors[:i]
	}
	return strings.TrimSpace(authors)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}
