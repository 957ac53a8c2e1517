// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/refverify/pkg/types"
)

// crossrefWorksBase is the Crossref works endpoint. Declared as a var so
// tests can substitute an httptest server.
var crossrefWorksBase = "https://api.crossref.org/works"

// CrossrefBackend runs bibliographic queries against Crossref.
type CrossrefBackend struct {
	// Mailto is sent as the mailto parameter for polite pool access.
	Mailto string
}

// Name returns the backend identifier.
func (b *CrossrefBackend) Name() string { return string(types.BackendCrossref) }

// Request builds a single-row query.bibliographic search.
func (b *CrossrefBackend) Request(query string) (string, http.Header) {
	params := url.Values{
		"query.bibliographic": {query},
		"rows":                {"1"},
	}
	if b.Mailto != "" {
		params.Set("mailto", b.Mailto)
	}
	return crossrefWorksBase + "?" + params.Encode(), http.Header{"Accept": {"application/json"}}
}

// NewResponse returns an empty Crossref payload.
func (b *CrossrefBackend) NewResponse() Response { return &crossrefResponse{} }

// Crossref API JSON structures.
type crossrefResponse struct {
	Status  string `json:"status"`
	Message struct {
		TotalResults int            `json:"total-results"`
		Items        []crossrefWork `json:"items"`
	} `json:"message"`
}

type crossrefWork struct {
	DOI             string           `json:"DOI"`
	URL             string           `json:"URL"`
	Type            string           `json:"type"`
	Title           []string         `json:"title"`
	ContainerTitle  []string         `json:"container-title"`
	Author          []crossrefAuthor `json:"author"`
	Volume          string           `json:"volume"`
	Issue           string           `json:"issue"`
	Page            string           `json:"page"`
	PublishedPrint  crossrefDate     `json:"published-print"`
	PublishedOnline crossrefDate     `json:"published-online"`
	Issued          crossrefDate     `json:"issued"`

	// Abstract is JATS XML when present.
	Abstract string `json:"abstract"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
}

type crossrefDate struct {
	DateParts [][]*int `json:"date-parts"`
}

// year returns the first date part, or "" when absent. Crossref sends
// [[null]] for unknown dates.
func (d crossrefDate) year() string {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 || d.DateParts[0][0] == nil {
		return ""
	}
	return strconv.Itoa(*d.DateParts[0][0])
}

// Top converts the first item.
func (r *crossrefResponse) Top() *types.SuggestedRecord {
	if len(r.Message.Items) == 0 {
		return nil
	}
	return r.Message.Items[0].suggestion()
}

// suggestion converts a work, or returns nil when it has neither title nor
// DOI. Print date wins over online date, which wins over the issued date.
func (w crossrefWork) suggestion() *types.SuggestedRecord {
	s := &types.SuggestedRecord{
		Title:     first(w.Title),
		DOI:       w.DOI,
		URL:       w.URL,
		Journal:   first(w.ContainerTitle),
		EntryType: w.Type,
		Volume:    w.Volume,
		Issue:     w.Issue,
		Pages:     w.Page,
		Abstract:  stripMarkup(w.Abstract),
	}
	for _, d := range []crossrefDate{w.PublishedPrint, w.PublishedOnline, w.Issued} {
		if y := d.year(); y != "" {
			s.Year = y
			break
		}
	}
	for _, a := range w.Author {
		if name := a.display(); name != "" {
			s.Authors = append(s.Authors, name)
		}
	}
	if s.Title == "" && s.DOI == "" {
		return nil
	}
	return s
}

// display joins given and family names. Organisational authors carry
// only a name. Authors without a family name are skipped.
func (a crossrefAuthor) display() string {
	if a.Family == "" {
		return strings.TrimSpace(a.Name)
	}
	return strings.TrimSpace(a.Given + " " + a.Family)
}

// markupPattern matches JATS and HTML tags in Crossref abstracts.
var markupPattern = regexp.MustCompile(`<[^>]+>`)

// stripMarkup removes tags, unescapes entities and collapses whitespace.
func stripMarkup(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(markupPattern.ReplaceAllString(s, " "))
	return strings.Join(strings.Fields(s), " ")
}

func first(ss []string) string {
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
