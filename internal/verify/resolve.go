// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/pdiddy/refverify/pkg/types"
)

// IdentifierType classifies a raw identifier string.
type IdentifierType int

const (
	TypeUnknown IdentifierType = iota
	TypeArxiv
	TypeDOI
	TypeURL
)

func (t IdentifierType) String() string {
	switch t {
	case TypeArxiv:
		return "arxiv"
	case TypeDOI:
		return "doi"
	case TypeURL:
		return "url"
	default:
		return "unknown"
	}
}

// Resolver base URLs. Declared as vars so tests can substitute httptest
// servers.
var (
	doiPrimaryBase   = "https://doi.org/"
	doiSecondaryBase = "https://dx.doi.org/"
	arxivAbsBase     = "https://arxiv.org/abs/"
)

// arxivPattern matches new-style arXiv IDs: "2301.07041", "arXiv:2301.07041",
// "2301.07041v2".
var arxivPattern = regexp.MustCompile(`^(?i:arxiv:)?(\d{4}\.\d{4,5}(?:v\d+)?)$`)

// doiPattern matches DOIs: "10.1145/1234567.1234568".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

// NormalizeDOI strips resolver prefixes and surrounding whitespace.
func NormalizeDOI(doi string) string {
	return types.NormalizeDOI(doi)
}

// NormalizeArxiv strips an optional "arXiv:" prefix.
func NormalizeArxiv(id string) string {
	id = types.NormalizeArxiv(id)
	if m := arxivPattern.FindStringSubmatch(id); m != nil {
		return m[1]
	}
	return id
}

// Classify determines the identifier type and returns the normalized form.
func Classify(identifier string) (IdentifierType, string) {
	identifier = strings.TrimSpace(identifier)

	if m := arxivPattern.FindStringSubmatch(identifier); m != nil {
		return TypeArxiv, m[1]
	}

	if doi := NormalizeDOI(identifier); doiPattern.MatchString(doi) {
		return TypeDOI, doi
	}

	if u, err := url.Parse(identifier); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return TypeURL, identifier
	}

	return TypeUnknown, identifier
}

// RecordFor builds a Record from a raw identifier so it can be verified
// without a bibliography file. URLs and unknown strings yield a record
// with no identifier.
func RecordFor(identifier string) types.Record {
	idType, norm := Classify(identifier)
	r := types.Record{Key: strings.TrimSpace(identifier)}
	switch idType {
	case TypeArxiv:
		r.ArxivID = norm
	case TypeDOI:
		r.DOI = norm
	case TypeURL:
		r.URL = norm
	}
	return r
}

// Candidate is one resolution URL tried for a record.
type Candidate struct {
	Label string
	URL   string
}

// DOICandidates returns the primary and secondary resolver URLs for doi.
func DOICandidates(doi string) []Candidate {
	doi = NormalizeDOI(doi)
	return []Candidate{
		{Label: "doi primary", URL: doiPrimaryBase + escapeDOI(doi)},
		{Label: "doi secondary", URL: doiSecondaryBase + escapeDOI(doi)},
	}
}

// ArxivCandidate returns the abstract page URL for an arXiv ID.
func ArxivCandidate(id string) Candidate {
	return Candidate{Label: "arxiv", URL: arxivAbsBase + NormalizeArxiv(id)}
}

// escapeDOI percent-encodes characters that would break the resolver path
// while keeping the "/" separators DOIs rely on.
func escapeDOI(doi string) string {
	parts := strings.Split(doi, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// String renders a candidate for log lines.
func (c Candidate) String() string {
	return fmt.Sprintf("%s <%s>", c.Label, c.URL)
}
