// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/refverify/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// OpenAlexBackend queries the OpenAlex API.
type OpenAlexBackend struct {
	// Mailto is sent as the mailto parameter for polite pool access.
	Mailto string
}

// Name returns the backend identifier.
func (b *OpenAlexBackend) Name() string { return string(types.BackendOpenAlex) }

// Request builds a single-result search.
func (b *OpenAlexBackend) Request(query string) (string, http.Header) {
	params := url.Values{
		"search":   {query},
		"per_page": {"1"},
		"page":     {"1"},
	}
	if b.Mailto != "" {
		params.Set("mailto", b.Mailto)
	}
	return openAlexSearchBase + "?" + params.Encode(), http.Header{"Accept": {"application/json"}}
}

// NewResponse returns an empty OpenAlex payload.
func (b *OpenAlexBackend) NewResponse() Response { return &openAlexResponse{} }

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	DOI             string               `json:"doi"`
	Type            string               `json:"type"`
	PublicationYear int                  `json:"publication_year"`
	Authorships     []openAlexAuthorship `json:"authorships"`
	PrimaryLocation struct {
		LandingPageURL string `json:"landing_page_url"`
		Source         *struct {
			DisplayName string `json:"display_name"`
		} `json:"source"`
	} `json:"primary_location"`
	Biblio struct {
		Volume    string `json:"volume"`
		Issue     string `json:"issue"`
		FirstPage string `json:"first_page"`
		LastPage  string `json:"last_page"`
	} `json:"biblio"`
	IDs struct {
		DOI string `json:"doi"`
	} `json:"ids"`
}

type openAlexAuthorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

// Top converts the first result. OpenAlex reports DOIs as resolver URLs;
// the prefix is stripped to the bare DOI.
func (r *openAlexResponse) Top() *types.SuggestedRecord {
	if len(r.Results) == 0 {
		return nil
	}
	w := r.Results[0]
	s := &types.SuggestedRecord{
		Title:     strings.TrimSpace(w.Title),
		DOI:       strings.TrimPrefix(w.DOI, "https://doi.org/"),
		URL:       w.PrimaryLocation.LandingPageURL,
		EntryType: openAlexEntryType(w.Type),
		Volume:    w.Biblio.Volume,
		Issue:     w.Biblio.Issue,
		Pages:     pageRange(w.Biblio.FirstPage, w.Biblio.LastPage),
	}
	if s.URL == "" {
		s.URL = w.ID
	}
	if w.PrimaryLocation.Source != nil {
		s.Journal = w.PrimaryLocation.Source.DisplayName
	}
	if w.PublicationYear > 0 {
		s.Year = strconv.Itoa(w.PublicationYear)
	}
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			s.Authors = append(s.Authors, a.Author.DisplayName)
		}
	}
	if s.Title == "" && s.DOI == "" {
		return nil
	}
	return s
}

// openAlexEntryType maps OpenAlex work types onto Crossref-style names so
// reports render every backend the same way.
func openAlexEntryType(t string) string {
	switch t {
	case "article", "review", "letter", "editorial":
		return "journal-article"
	case "book":
		return "book"
	case "book-chapter":
		return "book-chapter"
	case "":
		return ""
	default:
		return t
	}
}

func pageRange(firstPage, lastPage string) string {
	switch {
	case firstPage != "" && lastPage != "" && firstPage != lastPage:
		return firstPage + "-" + lastPage
	default:
		return firstPage
	}
}
