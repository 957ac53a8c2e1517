// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package identity supplies randomized but plausible browser identity
// headers for outbound probes.
package identity

import (
	"math/rand/v2"
	"net/http"
	"sync"
)

// Headers is one browser identity.
type Headers struct {
	UserAgent      string
	Accept         string
	AcceptLanguage string
}

// Apply sets the identity headers on req.
func (h Headers) Apply(req *http.Request) {
	req.Header.Set("User-Agent", h.UserAgent)
	if h.Accept != "" {
		req.Header.Set("Accept", h.Accept)
	}
	if h.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", h.AcceptLanguage)
	}
}

const htmlAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// DefaultPool is the built-in set of desktop browser identities.
var DefaultPool = []Headers{
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Accept:         htmlAccept,
		AcceptLanguage: "en-US,en;q=0.9",
	},
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		Accept:         htmlAccept,
		AcceptLanguage: "en-US,en;q=0.5",
	},
	{
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Accept:         htmlAccept,
		AcceptLanguage: "en-GB,en;q=0.9",
	},
	{
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Accept:         htmlAccept,
		AcceptLanguage: "en-US,en;q=0.8",
	},
}

// Rotator picks an identity per request. It is safe for concurrent use.
type Rotator struct {
	mu   sync.Mutex
	rng  *rand.Rand
	pool []Headers
}

// NewRotator returns a rotator over pool using rng. A nil rng seeds a new
// source; an empty pool falls back to DefaultPool.
func NewRotator(pool []Headers, rng *rand.Rand) *Rotator {
	if len(pool) == 0 {
		pool = DefaultPool
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Rotator{rng: rng, pool: pool}
}

// Next returns one identity chosen uniformly at random, independently of
// previous calls.
func (r *Rotator) Next() Headers {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pool[r.rng.IntN(len(r.pool))]
}
