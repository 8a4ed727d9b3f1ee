package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfworks/model-dispatch/internal/contracts"
	"github.com/pfworks/model-dispatch/internal/registry"
)

// fakeSelector stands in for internal/selector.Selector but performs a
// real reservation against reg, so tests can observe whether Proxy.Call
// actually releases it afterward. Select fails if url is "" or the
// reservation is already held, just like the real Selector would.
type fakeSelector struct {
	reg *registry.Registry
	url string
}

func (f fakeSelector) Select(ctx context.Context, requestedModel string) (string, bool) {
	if f.url == "" {
		return "", false
	}
	if !f.reg.TryReserve(f.url) {
		return "", false
	}
	return f.url, true
}

func TestCallForwardsToSelectedBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate", r.URL.Path)
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "echo", body["commands"])

		json.NewEncoder(w).Encode(map[string]interface{}{"playbook": "---\n"})
	}))
	defer srv.Close()

	reg := registry.New([]contracts.BackendDescriptor{{URL: srv.URL, Weight: 1, MaxModel: "70b"}})
	p := New(reg, fakeSelector{reg: reg, url: srv.URL})

	result := p.Call(context.Background(), "/generate", "13b", map[string]interface{}{"commands": "echo"})
	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, "---\n", result.Playbook())
}

func TestCallReturns503WhenNoBackendSelected(t *testing.T) {
	reg := registry.New(nil)
	p := New(reg, fakeSelector{reg: reg})

	result := p.Call(context.Background(), "/generate", "13b", map[string]interface{}{})
	assert.Equal(t, http.StatusServiceUnavailable, result.Status)
}

func TestCallReleasesReservationEvenOnBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	reg := registry.New([]contracts.BackendDescriptor{{URL: srv.URL, Weight: 1, MaxModel: "70b"}})
	p := New(reg, fakeSelector{reg: reg, url: srv.URL})

	result := p.Call(context.Background(), "/generate", "13b", map[string]interface{}{})
	assert.Equal(t, http.StatusInternalServerError, result.Status)
	assert.True(t, reg.TryReserve(srv.URL), "the reservation fakeSelector.Select took must be released even though the backend returned an error")
}

func TestCallReturns503WhenBackendAlreadyReserved(t *testing.T) {
	// Regression guard for the invariant above: reserve the backend out
	// from under the Proxy first, so Select (and therefore Call) must
	// fail to acquire it at all — proving TryReserve really gates on
	// the registry's live Available state rather than always succeeding.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := registry.New([]contracts.BackendDescriptor{{URL: srv.URL, Weight: 1, MaxModel: "70b"}})
	require.True(t, reg.TryReserve(srv.URL))

	p := New(reg, fakeSelector{reg: reg, url: srv.URL})
	result := p.Call(context.Background(), "/generate", "13b", map[string]interface{}{})
	assert.Equal(t, http.StatusServiceUnavailable, result.Status, "an already-reserved backend must not be selected again")
}

func TestCallReturns500OnTransportFailure(t *testing.T) {
	reg := registry.New([]contracts.BackendDescriptor{{URL: "http://127.0.0.1:1", Weight: 1, MaxModel: "70b"}})
	p := New(reg, fakeSelector{reg: reg, url: "http://127.0.0.1:1"})

	result := p.Call(context.Background(), "/generate", "13b", map[string]interface{}{})
	assert.Equal(t, http.StatusInternalServerError, result.Status)
	assert.True(t, reg.TryReserve("http://127.0.0.1:1"), "the reservation must be released even after a transport failure")
}
