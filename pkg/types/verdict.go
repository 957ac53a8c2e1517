// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// VerdictKind is the final classification of a record.
type VerdictKind string

const (
	VerdictValid        VerdictKind = "VALID"
	VerdictInvalid      VerdictKind = "INVALID"
	VerdictNoIdentifier VerdictKind = "NO_IDENTIFIER"
)

// SuggestedRecord is bibliographic metadata from a search backend: a
// candidate replacement for a failed reference, or the registry record of
// a DOI.
type SuggestedRecord struct {
	Title     string   `json:"title" yaml:"title"`
	DOI       string   `json:"doi,omitempty" yaml:"doi,omitempty"`
	ArxivID   string   `json:"arxiv,omitempty" yaml:"arxiv,omitempty"`
	URL       string   `json:"url,omitempty" yaml:"url,omitempty"`
	Journal   string   `json:"journal,omitempty" yaml:"journal,omitempty"`
	Year      string   `json:"year,omitempty" yaml:"year,omitempty"`
	Authors   []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	EntryType string   `json:"type,omitempty" yaml:"type,omitempty"`
	Volume    string   `json:"volume,omitempty" yaml:"volume,omitempty"`
	Issue     string   `json:"issue,omitempty" yaml:"issue,omitempty"`
	Pages     string   `json:"pages,omitempty" yaml:"pages,omitempty"`
	Abstract  string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Source names the search backend that produced the suggestion.
	Source string `json:"source" yaml:"source"`
}

// Identifier returns the DOI if present, then the arXiv ID, then the URL.
func (s SuggestedRecord) Identifier() string {
	switch {
	case s.DOI != "":
		return s.DOI
	case s.ArxivID != "":
		return s.ArxivID
	default:
		return s.URL
	}
}

// Verdict is the outcome of verifying one record.
type Verdict struct {
	Key  string      `json:"key" yaml:"key"`
	Kind VerdictKind `json:"status" yaml:"status"`

	// Evidence lists every probe attempt in the order it was made.
	Evidence []ProbeOutcome `json:"evidence" yaml:"evidence"`

	Alternative *SuggestedRecord `json:"alternative,omitempty" yaml:"alternative,omitempty"`

	// Metadata is the Crossref record registered for the DOI, when looked
	// up. It is informational and never changes Kind.
	Metadata *SuggestedRecord `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// NeedsReview is set on INVALID verdicts whose evidence contains a
	// forbidden outcome: the resource may exist behind an access wall.
	NeedsReview bool `json:"needs_review,omitempty" yaml:"needs_review,omitempty"`

	Record Record `json:"record" yaml:"record"`
}

// HasForbidden reports whether any evidence entry is a 403.
func (v Verdict) HasForbidden() bool {
	for _, o := range v.Evidence {
		if o.Class == StatusForbidden {
			return true
		}
	}
	return false
}

// Summary holds verdict counts. Total == Valid + Invalid + NoIdentifier.
type Summary struct {
	Total        int `json:"total" yaml:"total"`
	Valid        int `json:"valid" yaml:"valid"`
	Invalid      int `json:"invalid" yaml:"invalid"`
	NoIdentifier int `json:"no_identifier" yaml:"no_identifier"`
	NeedsReview  int `json:"needs_review" yaml:"needs_review"`
}

// Add counts one verdict.
func (s *Summary) Add(v Verdict) {
	s.Total++
	switch v.Kind {
	case VerdictValid:
		s.Valid++
	case VerdictNoIdentifier:
		s.NoIdentifier++
	default:
		s.Invalid++
	}
	if v.NeedsReview {
		s.NeedsReview++
	}
}

// BatchResult is the ordered set of verdicts produced by one run.
type BatchResult struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Verdicts   []Verdict `json:"verdicts" yaml:"verdicts"`
	Summary    Summary   `json:"summary" yaml:"summary"`

	// Cancelled is set when the run was stopped before every record was
	// verified. Unvisited records carry a synthetic INVALID verdict.
	Cancelled bool `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`
}

// Invalid returns the INVALID verdicts in input order.
func (r BatchResult) Invalid() []Verdict {
	var out []Verdict
	for _, v := range r.Verdicts {
		if v.Kind == VerdictInvalid {
			out = append(out, v)
		}
	}
	return out
}

// HasInvalid reports whether any record failed verification.
func (r BatchResult) HasInvalid() bool {
	return r.Summary.Invalid > 0
}
