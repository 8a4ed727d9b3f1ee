package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pfworks/model-dispatch/internal/contracts"
)

func TestRouterServesTaskEndpoints(t *testing.T) {
	caller := &fakeCaller{result: contracts.BackendResult{Status: http.StatusOK, Body: map[string]interface{}{}}}
	e := newTestEngine(caller, &fakeSplitter{}, &fakeAggregator{})
	r := NewRouter(e, "")

	for _, td := range taskTable {
		req := httptest.NewRequest(http.MethodPost, td.northboundPath, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.NotEqual(t, http.StatusNotFound, w.Code, td.northboundPath)
	}
}

func TestRouterServesQueueStatusAndMetrics(t *testing.T) {
	e := newTestEngine(&fakeCaller{}, &fakeSplitter{}, &fakeAggregator{})
	r := NewRouter(e, "")

	for _, path := range []string{"/queue-status", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRouterWithoutStaticDirReturns404ForRoot(t *testing.T) {
	e := newTestEngine(&fakeCaller{}, &fakeSplitter{}, &fakeAggregator{})
	r := NewRouter(e, "")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
