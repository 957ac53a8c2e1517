// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data structures shared by the verification
// pipeline: input records, probe outcomes, verdicts, batch results, and
// configuration.
package types

import "strings"

// Record is one bibliographic entry handed to the verifier. Empty string
// fields mean the value is absent. Records are passed by value and never
// mutated after parsing.
type Record struct {
	// Key is the citation key (e.g. "vaswani2017attention"). Unique per input.
	Key string `json:"key" yaml:"key"`

	// EntryType is the BibTeX entry type (e.g. "article", "inproceedings").
	EntryType string `json:"type,omitempty" yaml:"type,omitempty"`

	// DOI is the bare DOI without resolver prefix (e.g. "10.1145/1234567.1234568").
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// ArxivID is the arXiv identifier (e.g. "2301.07041").
	ArxivID string `json:"arxiv,omitempty" yaml:"arxiv,omitempty"`

	// URL is the entry's url field, kept for reporting only.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	Title   string `json:"title,omitempty" yaml:"title,omitempty"`
	Author  string `json:"author,omitempty" yaml:"author,omitempty"`
	Year    string `json:"year,omitempty" yaml:"year,omitempty"`
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`
}

// HasIdentifier reports whether the record carries a DOI or an arXiv ID
// once resolver and scheme prefixes are removed. A DOI field holding only
// "doi:" counts as absent.
func (r Record) HasIdentifier() bool {
	return NormalizeDOI(r.DOI) != "" || NormalizeArxiv(r.ArxivID) != ""
}

// doiPrefixes are resolver and scheme prefixes stripped from DOIs.
var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi:",
}

// NormalizeDOI strips one resolver or scheme prefix and surrounding
// whitespace.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, p := range doiPrefixes {
		if len(doi) >= len(p) && strings.EqualFold(doi[:len(p)], p) {
			doi = doi[len(p):]
			break
		}
	}
	return strings.TrimSpace(doi)
}

// NormalizeArxiv strips an optional "arXiv:" prefix and surrounding
// whitespace.
func NormalizeArxiv(id string) string {
	id = strings.TrimSpace(id)
	const prefix = "arxiv:"
	if len(id) >= len(prefix) && strings.EqualFold(id[:len(prefix)], prefix) {
		id = id[len(prefix):]
	}
	return strings.TrimSpace(id)
}
