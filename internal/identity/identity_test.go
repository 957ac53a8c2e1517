// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package identity

import (
	"math/rand/v2"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatorDeterministicWithSeed(t *testing.T) {
	a := NewRotator(nil, rand.New(rand.NewPCG(1, 2)))
	b := NewRotator(nil, rand.New(rand.NewPCG(1, 2)))

	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Next(), b.Next(), "call %d", i)
	}
}

func TestRotatorMatchesSourceSequence(t *testing.T) {
	pool := []Headers{{UserAgent: "a"}, {UserAgent: "b"}, {UserAgent: "c"}}
	r := NewRotator(pool, rand.New(rand.NewPCG(7, 7)))

	ref := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 10; i++ {
		want := pool[ref.IntN(len(pool))]
		assert.Equal(t, want, r.Next())
	}
}

func TestRotatorCoversPool(t *testing.T) {
	r := NewRotator(nil, rand.New(rand.NewPCG(42, 0)))
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		seen[r.Next().UserAgent] = true
	}
	assert.Len(t, seen, len(DefaultPool))
}

func TestHeadersApply(t *testing.T) {
	req, err := http.NewRequest(http.MethodHead, "https://doi.org/10.1000/xyz", nil)
	require.NoError(t, err)

	DefaultPool[0].Apply(req)
	assert.Equal(t, DefaultPool[0].UserAgent, req.Header.Get("User-Agent"))
	assert.Equal(t, htmlAccept, req.Header.Get("Accept"))
	assert.NotEmpty(t, req.Header.Get("Accept-Language"))
}
