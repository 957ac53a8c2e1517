// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package verify decides whether a record's DOI or arXiv ID resolves to a
// reachable resource, probing canonical resolver URLs through the retry
// policy and falling back to an alternative search on failure.
package verify

import (
	"context"
	"log/slog"
	"time"

	"github.com/pdiddy/refverify/internal/httputil"
	"github.com/pdiddy/refverify/pkg/types"
)

// Prober issues a single probe against a URL.
type Prober interface {
	Probe(ctx context.Context, rawURL string, timeout time.Duration) types.ProbeOutcome
}

// AlternativeFinder looks up a plausible replacement for a record that
// failed verification. It must not panic or block past ctx.
type AlternativeFinder interface {
	FindAlternative(ctx context.Context, rec types.Record) *types.SuggestedRecord
}

// MetadataLookup fetches registry metadata for a DOI. It must not panic or
// block past ctx.
type MetadataLookup interface {
	LookupDOI(ctx context.Context, doi string) *types.SuggestedRecord
}

// Verifier orchestrates candidate probes for one record at a time.
type Verifier struct {
	prober  Prober
	policy  httputil.Policy
	timeout time.Duration
	finder  AlternativeFinder
	meta    MetadataLookup
	logger  *slog.Logger
}

// New returns a verifier. finder may be nil to disable alternative search.
func New(prober Prober, policy httputil.Policy, timeout time.Duration, finder AlternativeFinder, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Verifier{prober: prober, policy: policy, timeout: timeout, finder: finder, logger: logger}
}

// WithMetadata attaches registry metadata to every DOI verdict. It returns
// v for chaining.
func (v *Verifier) WithMetadata(m MetadataLookup) *Verifier {
	v.meta = m
	return v
}

// Verify produces the verdict for rec. Records without a DOI or arXiv ID
// return NO_IDENTIFIER without touching the network. A DOI is tried on the
// primary resolver, then the secondary; an arXiv ID (used only when there
// is no DOI) on the abstract page. Forbidden outcomes never make a record
// VALID; they mark an INVALID verdict for human review. DOI verdicts also
// carry registry metadata when a lookup is configured; it never affects
// the kind.
func (v *Verifier) Verify(ctx context.Context, rec types.Record) types.Verdict {
	verdict := types.Verdict{Key: rec.Key, Record: rec, Evidence: []types.ProbeOutcome{}}

	if !rec.HasIdentifier() {
		verdict.Kind = types.VerdictNoIdentifier
		return verdict
	}

	doi := NormalizeDOI(rec.DOI)
	if doi != "" {
		v.resolve(ctx, &verdict, DOICandidates(doi))
		if v.meta != nil {
			verdict.Metadata = v.meta.LookupDOI(ctx, doi)
		}
	} else {
		v.resolve(ctx, &verdict, []Candidate{ArxivCandidate(rec.ArxivID)})
	}
	return verdict
}

// resolve probes candidates in order until one is ok. When none is, the
// verdict is INVALID and carries the alternative search result.
func (v *Verifier) resolve(ctx context.Context, verdict *types.Verdict, candidates []Candidate) {
	rec := verdict.Record
	for _, c := range candidates {
		final, evidence := v.policy.Execute(ctx, func(ctx context.Context) types.ProbeOutcome {
			return v.prober.Probe(ctx, c.URL, v.timeout)
		})
		verdict.Evidence = append(verdict.Evidence, evidence...)
		v.logger.Debug("candidate probed", "key", rec.Key, "candidate", c.String(),
			"class", final.Class, "code", final.Code(), "attempts", len(evidence))

		if final.Class == types.StatusOK {
			verdict.Kind = types.VerdictValid
			return
		}
		if ctx.Err() != nil {
			break
		}
	}

	verdict.Kind = types.VerdictInvalid
	verdict.NeedsReview = verdict.HasForbidden()
	if v.finder != nil {
		verdict.Alternative = v.finder.FindAlternative(ctx, rec)
	}
}
