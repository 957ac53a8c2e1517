// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/refverify/internal/httputil"
	"github.com/pdiddy/refverify/pkg/types"
)

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func testCfg(backend types.SearchBackend) types.SearchConfig {
	cfg := types.DefaultSearchConfig()
	cfg.Backend = backend
	cfg.Timeout = 2 * time.Second
	return cfg
}

func newTestFinder(t *testing.T, ts *httptest.Server, cfg types.SearchConfig) *Finder {
	t.Helper()
	prober := httputil.NewProber(ts.Client(), nil, nil, nil)
	policy := httputil.Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, Sleep: noSleep}
	f, err := NewFinder(cfg, prober, policy, nil)
	require.NoError(t, err)
	return f
}

// --- BuildQuery ---

func TestBuildQuery(t *testing.T) {
	long := strings.Repeat("a", 150)
	tests := []struct {
		name string
		rec  types.Record
		want string
	}{
		{"empty", types.Record{Key: "x"}, ""},
		{"title only", types.Record{Title: "Deep Learning"}, "Deep Learning"},
		{"all fields", types.Record{Title: "Deep Learning", Journal: "Nature", Author: "LeCun, Yann and Bengio, Yoshua", Year: "2015"},
			"Deep Learning Nature LeCun, Yann 2015"},
		{"title truncated", types.Record{Title: long}, strings.Repeat("a", 100)},
		{"journal truncated", types.Record{Journal: long}, strings.Repeat("a", 50)},
		{"year only", types.Record{Year: "2020"}, "2020"},
		{"whitespace ignored", types.Record{Title: "  ", Year: " 2020 "}, "2020"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildQuery(tt.rec))
		})
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	assert.Equal(t, "ééé", truncate("éééé", 3))
	assert.Equal(t, "abc", truncate("abc", 10))
}

// --- NewBackend ---

func TestNewBackend(t *testing.T) {
	for _, name := range []types.SearchBackend{types.BackendCrossref, types.BackendOpenAlex, types.BackendSemanticScholar} {
		b, err := NewBackend(types.SearchConfig{Backend: name})
		require.NoError(t, err)
		assert.Equal(t, string(name), b.Name())
	}
	_, err := NewBackend(types.SearchConfig{Backend: "google"})
	assert.ErrorIs(t, err, types.ErrConfig)
}

// --- Finder ---

const crossrefHit = `{"status":"ok","message":{"total-results":1,"items":[{
	"DOI":"10.1038/nature14539","URL":"https://doi.org/10.1038/nature14539",
	"type":"journal-article","title":["Deep learning"],"container-title":["Nature"],
	"author":[{"given":"Yann","family":"LeCun"},{"given":"Yoshua","family":"Bengio"},{"name":"Google Brain"}],
	"volume":"521","issue":"7553","page":"436-444",
	"published-print":{"date-parts":[[2015,5,28]]},"issued":{"date-parts":[[2015]]}}]}}`

func TestFindAlternativeCrossref(t *testing.T) {
	var captured *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, crossrefHit)
	}))
	defer ts.Close()

	old := crossrefWorksBase
	crossrefWorksBase = ts.URL + "/works"
	defer func() { crossrefWorksBase = old }()

	cfg := testCfg(types.BackendCrossref)
	cfg.Mailto = "dev@example.org"
	f := newTestFinder(t, ts, cfg)

	got := f.FindAlternative(context.Background(), types.Record{Key: "fake", Title: "Deep learning", Year: "2015"})
	require.NotNil(t, got)

	q := captured.URL.Query()
	assert.Equal(t, "/works", captured.URL.Path)
	assert.Equal(t, "Deep learning 2015", q.Get("query.bibliographic"))
	assert.Equal(t, "1", q.Get("rows"))
	assert.Equal(t, "dev@example.org", q.Get("mailto"))
	assert.Equal(t, "application/json", captured.Header.Get("Accept"))
	assert.NotEmpty(t, captured.Header.Get("User-Agent"))

	assert.Equal(t, &types.SuggestedRecord{
		Title:     "Deep learning",
		DOI:       "10.1038/nature14539",
		URL:       "https://doi.org/10.1038/nature14539",
		Journal:   "Nature",
		Year:      "2015",
		Authors:   []string{"Yann LeCun", "Yoshua Bengio", "Google Brain"},
		EntryType: "journal-article",
		Volume:    "521",
		Issue:     "7553",
		Pages:     "436-444",
		Source:    "crossref",
	}, got)
}

func TestFindAlternativeNoMetadataSkipsNetwork(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer ts.Close()

	f := newTestFinder(t, ts, testCfg(types.BackendCrossref))
	assert.Nil(t, f.FindAlternative(context.Background(), types.Record{Key: "bare", DOI: "10.1/x"}))
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestFindAlternativeRetriesWithinSmallBudget(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	old := crossrefWorksBase
	crossrefWorksBase = ts.URL
	defer func() { crossrefWorksBase = old }()

	f := newTestFinder(t, ts, testCfg(types.BackendCrossref))
	assert.Nil(t, f.FindAlternative(context.Background(), types.Record{Key: "k", Title: "Anything"}))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "search_max_attempts defaults to 2")
}

func TestFindAlternativeEmptyResult(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ok","message":{"total-results":0,"items":[]}}`)
	}))
	defer ts.Close()

	old := crossrefWorksBase
	crossrefWorksBase = ts.URL
	defer func() { crossrefWorksBase = old }()

	f := newTestFinder(t, ts, testCfg(types.BackendCrossref))
	assert.Nil(t, f.FindAlternative(context.Background(), types.Record{Key: "k", Title: "Nothing"}))
}

func TestFindAlternativeMalformedJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":`)
	}))
	defer ts.Close()

	old := crossrefWorksBase
	crossrefWorksBase = ts.URL
	defer func() { crossrefWorksBase = old }()

	f := newTestFinder(t, ts, testCfg(types.BackendCrossref))
	assert.Nil(t, f.FindAlternative(context.Background(), types.Record{Key: "k", Title: "Broken"}))
}

// panicBackend exercises panic recovery.
type panicBackend struct{}

func (panicBackend) Name() string                         { return "panic" }
func (panicBackend) Request(string) (string, http.Header) { panic("boom") }
func (panicBackend) NewResponse() Response                { return nil }

func TestFindAlternativeRecoversPanic(t *testing.T) {
	f := &Finder{Backend: panicBackend{}, Logger: slog.New(slog.DiscardHandler)}
	assert.NotPanics(t, func() {
		assert.Nil(t, f.FindAlternative(context.Background(), types.Record{Key: "k", Title: "x"}))
	})
}

func TestFindAlternativeOpenAlex(t *testing.T) {
	var captured *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		fmt.Fprint(w, `{"results":[{"id":"https://openalex.org/W1","title":"Attention Is All You Need",
			"doi":"https://doi.org/10.48550/arxiv.1706.03762","type":"article","publication_year":2017,
			"authorships":[{"author":{"display_name":"Ashish Vaswani"}}],
			"primary_location":{"landing_page_url":"https://arxiv.org/abs/1706.03762","source":{"display_name":"NeurIPS"}},
			"biblio":{"volume":"30","issue":null,"first_page":"5998","last_page":"6008"}}]}`)
	}))
	defer ts.Close()

	old := openAlexSearchBase
	openAlexSearchBase = ts.URL
	defer func() { openAlexSearchBase = old }()

	cfg := testCfg(types.BackendOpenAlex)
	cfg.Mailto = "dev@example.org"
	f := newTestFinder(t, ts, cfg)

	got := f.FindAlternative(context.Background(), types.Record{Key: "k", Title: "Attention"})
	require.NotNil(t, got)
	assert.Equal(t, "Attention", captured.URL.Query().Get("search"))
	assert.Equal(t, "1", captured.URL.Query().Get("per_page"))
	assert.Equal(t, "dev@example.org", captured.URL.Query().Get("mailto"))

	assert.Equal(t, "10.48550/arxiv.1706.03762", got.DOI)
	assert.Equal(t, "NeurIPS", got.Journal)
	assert.Equal(t, "2017", got.Year)
	assert.Equal(t, "5998-6008", got.Pages)
	assert.Equal(t, "journal-article", got.EntryType)
	assert.Equal(t, []string{"Ashish Vaswani"}, got.Authors)
	assert.Equal(t, "openalex", got.Source)
}

func TestFindAlternativeSemanticScholar(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
	}{
		{"with API key", "test-key-123"},
		{"without API key", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured *http.Request
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = r
				fmt.Fprint(w, `{"total":1,"data":[{"paperId":"abc","title":"BERT","year":2019,
					"venue":"NAACL","publicationTypes":["Conference"],
					"authors":[{"name":"Jacob Devlin"}],
					"externalIds":{"DOI":"10.18653/v1/N19-1423","ArXiv":"1810.04805"},
					"url":"https://www.semanticscholar.org/paper/abc"}]}`)
			}))
			defer ts.Close()

			old := semanticAPIBase
			semanticAPIBase = ts.URL
			defer func() { semanticAPIBase = old }()

			cfg := testCfg(types.BackendSemanticScholar)
			cfg.SemanticScholarAPIKey = tt.apiKey
			f := newTestFinder(t, ts, cfg)

			got := f.FindAlternative(context.Background(), types.Record{Key: "k", Title: "BERT"})
			require.NotNil(t, got)
			assert.Equal(t, tt.apiKey, captured.Header.Get("x-api-key"))
			assert.Equal(t, "1", captured.URL.Query().Get("limit"))
			assert.Equal(t, "1810.04805", got.ArxivID)
			assert.Equal(t, "10.18653/v1/N19-1423", got.DOI)
			assert.Equal(t, "proceedings-article", got.EntryType)
			assert.Equal(t, "semantic_scholar", got.Source)
		})
	}
}

// --- response conversion ---

func TestCrossrefYearPrecedence(t *testing.T) {
	y := func(v int) *int { return &v }
	w := crossrefWork{
		Title:           []string{"T"},
		PublishedOnline: crossrefDate{DateParts: [][]*int{{y(2019)}}},
		Issued:          crossrefDate{DateParts: [][]*int{{y(2018)}}},
	}
	r := &crossrefResponse{}
	r.Message.Items = []crossrefWork{w}
	assert.Equal(t, "2019", r.Top().Year)

	w.PublishedOnline = crossrefDate{DateParts: [][]*int{{nil}}}
	r.Message.Items = []crossrefWork{w}
	assert.Equal(t, "2018", r.Top().Year)
}

func TestCrossrefTopRequiresTitleOrDOI(t *testing.T) {
	r := &crossrefResponse{}
	r.Message.Items = []crossrefWork{{URL: "https://example.com"}}
	assert.Nil(t, r.Top())
}

func TestSemanticEntryType(t *testing.T) {
	assert.Equal(t, "journal-article", semanticEntryType([]string{"JournalArticle"}))
	assert.Equal(t, "book-chapter", semanticEntryType([]string{"Dataset", "BookSection"}))
	assert.Equal(t, "", semanticEntryType(nil))
}
