package a2a

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cardServer(t *testing.T, hits *atomic.Int32, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != WellKnownPath {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const itServiceCard = `{
	"name": "IT Service Agent",
	"description": "VM provisioning, SAP access, RBAC and general IT support",
	"version": "1.0.0",
	"capabilities": {"streaming": true, "polling": true, "push": false},
	"skills": [{"id": "vm_provisioning", "name": "vm_provisioning", "description": "Provision virtual machines"}]
}`

func TestResolveFetchesAndCachesCard(t *testing.T) {
	var hits atomic.Int32
	srv := cardServer(t, &hits, itServiceCard, http.StatusOK)
	r := NewCardResolver()

	card, err := r.Resolve(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "IT Service Agent", card.Name)
	assert.True(t, card.Capabilities.Streaming)
	assert.False(t, card.Capabilities.Push)
	assert.Equal(t, srv.URL, card.URL, "missing url falls back to the base address")

	again, err := r.Resolve(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Same(t, card, again, "trailing slash hits the same cache entry")
	assert.Equal(t, int32(1), hits.Load(), "cache hit must be a pure lookup")
}

func TestResolveUnreachableAgent(t *testing.T) {
	r := NewCardResolver()

	_, err := r.Resolve(context.Background(), "http://127.0.0.1:1")
	assert.ErrorIs(t, err, ErrUnreachableAgent)
}

func TestResolveNon200IsUnreachable(t *testing.T) {
	var hits atomic.Int32
	srv := cardServer(t, &hits, "gone", http.StatusNotFound)
	r := NewCardResolver()

	_, err := r.Resolve(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrUnreachableAgent)
}

func TestResolveMalformedDescriptor(t *testing.T) {
	var hits atomic.Int32
	srv := cardServer(t, &hits, `{"name": `, http.StatusOK)
	r := NewCardResolver()

	_, err := r.Resolve(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrMalformedDescriptor)
}

func TestResolveRejectsNamelessCard(t *testing.T) {
	var hits atomic.Int32
	srv := cardServer(t, &hits, `{"version": "1.0.0"}`, http.StatusOK)
	r := NewCardResolver()

	_, err := r.Resolve(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrMalformedDescriptor)
}

func TestClearCacheForcesRefetch(t *testing.T) {
	var hits atomic.Int32
	srv := cardServer(t, &hits, itServiceCard, http.StatusOK)
	r := NewCardResolver()

	_, err := r.Resolve(context.Background(), srv.URL)
	require.NoError(t, err)
	r.ClearCache()
	_, err = r.Resolve(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, int32(2), hits.Load())
}
