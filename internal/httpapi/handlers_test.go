package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfworks/model-dispatch/internal/capability"
	"github.com/pfworks/model-dispatch/internal/contracts"
	"github.com/pfworks/model-dispatch/internal/statusagg"
)

type fakeCaller struct {
	gotEndpoint string
	gotModel    string
	gotBody     map[string]interface{}
	result      contracts.BackendResult
}

func (f *fakeCaller) Call(ctx context.Context, endpoint, model string, body map[string]interface{}) contracts.BackendResult {
	f.gotEndpoint = endpoint
	f.gotModel = model
	f.gotBody = body
	return f.result
}

type fakeSplitter struct {
	gotModel string
	gotText  string
	result   contracts.BackendResult
}

func (f *fakeSplitter) SplitAndProcess(ctx context.Context, model, text string) contracts.BackendResult {
	f.gotModel = model
	f.gotText = text
	return f.result
}

type fakeAggregator struct {
	report statusagg.Report
}

func (f *fakeAggregator) Report(ctx context.Context) statusagg.Report {
	return f.report
}

func newTestEngine(caller Caller, split Splitter, status Aggregator) *Engine {
	return &Engine{Proxy: caller, Splitter: split, Status: status, Caps: capability.Default()}
}

func TestTaskHandlerProxiesByDefault(t *testing.T) {
	caller := &fakeCaller{result: contracts.BackendResult{Status: http.StatusOK, Body: map[string]interface{}{"playbook": "ok"}}}
	split := &fakeSplitter{}
	e := newTestEngine(caller, split, &fakeAggregator{})

	td := taskTable[0] // generate-playbook
	req := httptest.NewRequest(http.MethodPost, td.northboundPath, strings.NewReader(`{"commands": "do a thing"}`))
	w := httptest.NewRecorder()

	e.taskHandler(td)(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, td.backendEndpoint, caller.gotEndpoint)
	assert.Equal(t, "do a thing", caller.gotBody["commands"])
	assert.Equal(t, capability.Default().ByRank(2), caller.gotModel, "model should default to the 13b-rank identifier")
}

func TestTaskHandlerUsesRequestedModel(t *testing.T) {
	caller := &fakeCaller{result: contracts.BackendResult{Status: http.StatusOK, Body: map[string]interface{}{}}}
	e := newTestEngine(caller, &fakeSplitter{}, &fakeAggregator{})

	td := taskTable[0]
	req := httptest.NewRequest(http.MethodPost, td.northboundPath, strings.NewReader(`{"commands": "x", "model": "70b"}`))
	w := httptest.NewRecorder()

	e.taskHandler(td)(w, req)
	assert.Equal(t, "70b", caller.gotModel)
}

func TestTaskHandlerSplitsWhenRequested(t *testing.T) {
	split := &fakeSplitter{result: contracts.BackendResult{Status: http.StatusOK, Body: map[string]interface{}{"playbook": "merged"}}}
	caller := &fakeCaller{}
	e := newTestEngine(caller, split, &fakeAggregator{})

	td := taskTable[0]
	require.True(t, td.splittable)
	req := httptest.NewRequest(http.MethodPost, td.northboundPath, strings.NewReader(`{"commands": "a\nb\nc", "split": true}`))
	w := httptest.NewRecorder()

	e.taskHandler(td)(w, req)
	assert.Equal(t, "a\nb\nc", split.gotText)
	assert.Equal(t, "", caller.gotEndpoint, "split=true must route through the Splitter, not the Proxy directly")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	assert.Equal(t, "merged", decoded["playbook"])
}

func TestTaskHandlerNonSplittableTaskIgnoresSplitFlag(t *testing.T) {
	caller := &fakeCaller{result: contracts.BackendResult{Status: http.StatusOK, Body: map[string]interface{}{}}}
	split := &fakeSplitter{}
	e := newTestEngine(caller, split, &fakeAggregator{})

	var explainTD taskDescriptor
	for _, td := range taskTable {
		if td.kind == contracts.TaskExplainPlaybook {
			explainTD = td
		}
	}
	require.False(t, explainTD.splittable)

	req := httptest.NewRequest(http.MethodPost, explainTD.northboundPath, strings.NewReader(`{"playbook": "x", "split": true}`))
	w := httptest.NewRecorder()

	e.taskHandler(explainTD)(w, req)
	assert.Equal(t, "", split.gotText, "a non-splittable task must never reach the Splitter")
	assert.Equal(t, explainTD.backendEndpoint, caller.gotEndpoint)
}

func TestQueueStatusHandlerReturnsAggregateReport(t *testing.T) {
	status := &fakeAggregator{report: statusagg.Report{TotalBackends: 2, ActiveBackends: 1}}
	e := newTestEngine(&fakeCaller{}, &fakeSplitter{}, status)

	req := httptest.NewRequest(http.MethodGet, "/queue-status", nil)
	w := httptest.NewRecorder()
	e.queueStatusHandler()(w, req)

	var decoded statusagg.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	assert.Equal(t, 2, decoded.TotalBackends)
	assert.Equal(t, 1, decoded.ActiveBackends)
}

func TestUploadHandlerRequiresFile(t *testing.T) {
	e := newTestEngine(&fakeCaller{}, &fakeSplitter{}, &fakeAggregator{})

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(""))
	w := httptest.NewRecorder()
	e.uploadHandler()(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
