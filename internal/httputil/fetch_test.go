// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/refverify/pkg/types"
)

func TestFetchJSONDecodesOK(t *testing.T) {
	var gotAccept, gotKey string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotKey = r.Header.Get("x-api-key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"crossref"}`))
	}))
	defer ts.Close()

	p := NewProber(ts.Client(), nil, nil, nil)
	var dst struct {
		Name string `json:"name"`
	}
	hdr := http.Header{"Accept": {"application/json"}, "X-Api-Key": {"secret"}}
	out := p.FetchJSON(context.Background(), ts.URL, time.Second, hdr, &dst)

	assert.Equal(t, types.StatusOK, out.Class)
	assert.Equal(t, http.MethodGet, out.Method)
	assert.Equal(t, "crossref", dst.Name)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "secret", gotKey)
}

func TestFetchJSONMalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer ts.Close()

	p := NewProber(ts.Client(), nil, nil, nil)
	var dst map[string]any
	out := p.FetchJSON(context.Background(), ts.URL, time.Second, nil, &dst)

	assert.Equal(t, types.StatusTransportError, out.Class)
	assert.Contains(t, out.Error, "decoding response")
	require.NotNil(t, out.HTTPCode)
	assert.Equal(t, 200, *out.HTTPCode)
}

func TestFetchJSONClassifiesErrors(t *testing.T) {
	tests := []struct {
		code int
		want types.StatusClass
	}{
		{http.StatusNotFound, types.StatusNotFound},
		{http.StatusTooManyRequests, types.StatusRateLimited},
		{http.StatusBadGateway, types.StatusServerError},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			}))
			defer ts.Close()

			p := NewProber(ts.Client(), nil, nil, nil)
			var dst map[string]any
			out := p.FetchJSON(context.Background(), ts.URL, time.Second, nil, &dst)
			assert.Equal(t, tt.want, out.Class)
			assert.Empty(t, out.Error)
		})
	}
}
