// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/refverify/pkg/types"
)

// methodLog records the methods a test server saw.
type methodLog struct {
	mu      sync.Mutex
	methods []string
}

func (m *methodLog) add(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.methods = append(m.methods, method)
}

func (m *methodLog) get() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.methods...)
}

func TestProbeHeadOK(t *testing.T) {
	var log methodLog
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.add(r.Method)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	p := NewProber(ts.Client(), nil, nil, nil)
	out := p.Probe(context.Background(), ts.URL, time.Second)

	assert.Equal(t, types.StatusOK, out.Class)
	assert.Equal(t, 200, out.Code())
	assert.Equal(t, http.MethodHead, out.Method)
	assert.Equal(t, []string{http.MethodHead}, log.get())
}

func TestProbeFallsBackToGet(t *testing.T) {
	tests := []struct {
		name      string
		headCode  int
		getCode   int
		wantClass types.StatusClass
	}{
		{"405 then ok", http.StatusMethodNotAllowed, http.StatusOK, types.StatusOK},
		{"403 then ok", http.StatusForbidden, http.StatusOK, types.StatusOK},
		{"403 then 403", http.StatusForbidden, http.StatusForbidden, types.StatusForbidden},
		{"501 then 404", http.StatusNotImplemented, http.StatusNotFound, types.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var log methodLog
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				log.add(r.Method)
				if r.Method == http.MethodHead {
					w.WriteHeader(tt.headCode)
					return
				}
				w.WriteHeader(tt.getCode)
			}))
			defer ts.Close()

			p := NewProber(ts.Client(), nil, nil, nil)
			out := p.Probe(context.Background(), ts.URL, time.Second)

			assert.Equal(t, tt.wantClass, out.Class)
			assert.Equal(t, tt.getCode, out.Code())
			assert.Equal(t, http.MethodGet, out.Method)
			assert.Equal(t, []string{http.MethodHead, http.MethodGet}, log.get())
		})
	}
}

func TestProbeNoFallbackOnTerminalHead(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusGone, http.StatusTooManyRequests, http.StatusBadGateway} {
		var log methodLog
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.add(r.Method)
			w.WriteHeader(code)
		}))

		p := NewProber(ts.Client(), nil, nil, nil)
		out := p.Probe(context.Background(), ts.URL, time.Second)
		ts.Close()

		assert.Equal(t, ClassifyStatus(code), out.Class, "code %d", code)
		assert.Len(t, log.get(), 1, "code %d", code)
	}
}

func TestProbeRecordsRedirect(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	resolver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL+"/article/42", http.StatusFound)
	}))
	defer resolver.Close()

	p := NewProber(&http.Client{}, nil, nil, nil)
	out := p.Probe(context.Background(), resolver.URL+"/10.1000/xyz", time.Second)

	assert.Equal(t, types.StatusOK, out.Class)
	assert.Equal(t, target.URL+"/article/42", out.FinalURL)
	assert.Equal(t, resolver.URL+"/10.1000/xyz", out.URL)
}

func TestProbeTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	p := NewProber(ts.Client(), nil, nil, nil)
	out := p.Probe(context.Background(), ts.URL, 50*time.Millisecond)

	assert.Equal(t, types.StatusTransportError, out.Class)
	assert.Nil(t, out.HTTPCode)
	assert.NotEmpty(t, out.Error)
	assert.Equal(t, http.MethodHead, out.Method, "timeouts do not trigger a GET fallback")
}

func TestProbeConnectionRefused(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	addr := ts.URL
	ts.Close()

	p := NewProber(&http.Client{}, nil, nil, nil)
	out := p.Probe(context.Background(), addr, time.Second)

	assert.Equal(t, types.StatusTransportError, out.Class)
	assert.Nil(t, out.HTTPCode)
}

func TestProbeCancelledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProber(ts.Client(), nil, NewMemoryLimiter(time.Second), nil)
	out := p.Probe(ctx, ts.URL, time.Second)
	require.Equal(t, types.StatusTransportError, out.Class)
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "doi.org", hostOf("https://doi.org/10.1000/xyz"))
	assert.Equal(t, "unknown", hostOf("::not a url"))
}
