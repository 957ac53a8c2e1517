// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/refverify/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,authors,externalIds,year,venue,journal,publicationTypes,url"

// SemanticScholarBackend queries the Semantic Scholar Graph API.
type SemanticScholarBackend struct {
	APIKey string
}

// Name returns the backend identifier.
func (b *SemanticScholarBackend) Name() string { return string(types.BackendSemanticScholar) }

// Request builds a single-result search. The API key, when set, travels
// in the x-api-key header.
func (b *SemanticScholarBackend) Request(query string) (string, http.Header) {
	params := url.Values{
		"query":  {query},
		"limit":  {"1"},
		"fields": {semanticFields},
	}
	header := http.Header{"Accept": {"application/json"}}
	if b.APIKey != "" {
		header.Set("x-api-key", b.APIKey)
	}
	return semanticAPIBase + "?" + params.Encode(), header
}

// NewResponse returns an empty Semantic Scholar payload.
func (b *SemanticScholarBackend) NewResponse() Response { return &semanticResponse{} }

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total int             `json:"total"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID          string   `json:"paperId"`
	Title            string   `json:"title"`
	URL              string   `json:"url"`
	Year             int      `json:"year"`
	Venue            string   `json:"venue"`
	PublicationTypes []string `json:"publicationTypes"`
	Authors          []struct {
		Name string `json:"name"`
	} `json:"authors"`
	ExternalIDs struct {
		DOI   string `json:"DOI"`
		ArXiv string `json:"ArXiv"`
	} `json:"externalIds"`
	Journal *struct {
		Name   string `json:"name"`
		Volume string `json:"volume"`
		Pages  string `json:"pages"`
	} `json:"journal"`
}

// Top converts the first paper.
func (r *semanticResponse) Top() *types.SuggestedRecord {
	if len(r.Data) == 0 {
		return nil
	}
	p := r.Data[0]
	s := &types.SuggestedRecord{
		Title:     strings.TrimSpace(p.Title),
		DOI:       p.ExternalIDs.DOI,
		ArxivID:   p.ExternalIDs.ArXiv,
		URL:       p.URL,
		Journal:   p.Venue,
		EntryType: semanticEntryType(p.PublicationTypes),
	}
	if p.Journal != nil {
		if p.Journal.Name != "" {
			s.Journal = p.Journal.Name
		}
		s.Volume = strings.TrimSpace(p.Journal.Volume)
		s.Pages = strings.TrimSpace(p.Journal.Pages)
	}
	if p.Year > 0 {
		s.Year = strconv.Itoa(p.Year)
	}
	for _, a := range p.Authors {
		if a.Name != "" {
			s.Authors = append(s.Authors, a.Name)
		}
	}
	if s.Title == "" {
		return nil
	}
	return s
}

// semanticEntryType maps Semantic Scholar publication types onto
// Crossref-style names.
func semanticEntryType(pubTypes []string) string {
	for _, t := range pubTypes {
		switch t {
		case "JournalArticle", "Review":
			return "journal-article"
		case "Conference":
			return "proceedings-article"
		case "Book":
			return "book"
		case "BookSection":
			return "book-chapter"
		}
	}
	return ""
}
