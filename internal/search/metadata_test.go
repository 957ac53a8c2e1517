// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/refverify/internal/httputil"
	"github.com/pdiddy/refverify/pkg/types"
)

const crossrefWorkJSON = `{"status":"ok","message":{
	"DOI":"10.1038/nature14539","URL":"https://doi.org/10.1038/nature14539","type":"journal-article",
	"title":["Deep learning"],"container-title":["Nature"],
	"author":[{"given":"Yann","family":"LeCun"}],
	"issued":{"date-parts":[[2015,5,27]]},
	"abstract":"<jats:p>Deep learning allows &amp; enables\n  <jats:italic>models</jats:italic>.</jats:p>"}}`

func newTestLookup(t *testing.T, ts *httptest.Server, mailto string) *DOILookup {
	t.Helper()
	old := crossrefWorksBase
	crossrefWorksBase = ts.URL + "/works"
	t.Cleanup(func() { crossrefWorksBase = old })

	cfg := testCfg(types.BackendCrossref)
	cfg.Mailto = mailto
	prober := httputil.NewProber(ts.Client(), nil, nil, nil)
	policy := httputil.Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, Sleep: noSleep}
	return NewDOILookup(cfg, prober, policy, nil)
}

func TestLookupDOI(t *testing.T) {
	var captured *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		fmt.Fprint(w, crossrefWorkJSON)
	}))
	defer ts.Close()

	l := newTestLookup(t, ts, "dev@example.org")
	got := l.LookupDOI(context.Background(), "doi:10.1038/nature14539")
	require.NotNil(t, got)

	assert.Equal(t, "/works/10.1038/nature14539", captured.URL.Path)
	assert.Equal(t, "dev@example.org", captured.URL.Query().Get("mailto"))
	assert.Equal(t, "application/json", captured.Header.Get("Accept"))

	assert.Equal(t, "Deep learning", got.Title)
	assert.Equal(t, "Nature", got.Journal)
	assert.Equal(t, "2015", got.Year)
	assert.Equal(t, []string{"Yann LeCun"}, got.Authors)
	assert.Equal(t, "Deep learning allows & enables models .", got.Abstract)
	assert.Equal(t, metadataBackend, got.Source)
}

func TestLookupDOIEscapesPath(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	l := newTestLookup(t, ts, "")
	rawURL, _ := l.Request("10.1002/(SICI)1097-4571 x")
	assert.Equal(t, ts.URL+"/works/10.1002/%28SICI%291097-4571%20x", rawURL)
}

func TestLookupDOINotRegistered(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	l := newTestLookup(t, ts, "")
	assert.Nil(t, l.LookupDOI(context.Background(), "10.1000/none"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "not_found is terminal")
}

func TestLookupDOIRetriesWithinSearchBudget(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	l := newTestLookup(t, ts, "")
	assert.Nil(t, l.LookupDOI(context.Background(), "10.1000/busy"))
	assert.Equal(t, int32(types.DefaultSearchConfig().MaxAttempts), atomic.LoadInt32(&hits))
}

func TestLookupDOIEmptySkipsNetwork(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer ts.Close()

	l := newTestLookup(t, ts, "")
	assert.Nil(t, l.LookupDOI(context.Background(), "https://doi.org/"))
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestStripMarkup(t *testing.T) {
	assert.Equal(t, "", stripMarkup(""))
	assert.Equal(t, "a b", stripMarkup("<p>a</p>\n<p>b</p>"))
	assert.Equal(t, "x < y", stripMarkup("x &lt; y"))
}
