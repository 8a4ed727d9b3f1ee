// Package httpapi implements the HTTP Surface (C8): the route table,
// request decoding, and the single handler parameterized by a Task
// descriptor that the specification's Design Notes call for (collapsing
// the five task endpoints' near-identical glue into one code path).
package httpapi

import (
	"context"

	"github.com/pfworks/model-dispatch/internal/capability"
	"github.com/pfworks/model-dispatch/internal/contracts"
	"github.com/pfworks/model-dispatch/internal/statusagg"
)

// Caller is the subset of internal/proxy.Proxy the HTTP surface needs.
type Caller interface {
	Call(ctx context.Context, endpoint, model string, body map[string]interface{}) contracts.BackendResult
}

// Splitter is the subset of internal/splitter.Splitter the HTTP surface
// needs for the /generate endpoint's split=true path.
type Splitter interface {
	SplitAndProcess(ctx context.Context, model, text string) contracts.BackendResult
}

// Aggregator is the subset of internal/statusagg.Aggregator the
// /queue-status endpoint needs.
type Aggregator interface {
	Report(ctx context.Context) statusagg.Report
}

// Engine bundles the components a request handler dispatches through.
// It is deliberately a thin struct of interfaces rather than concrete
// types so handlers can be tested against fakes.
type Engine struct {
	Proxy    Caller
	Splitter Splitter
	Status   Aggregator
	Caps     *capability.Table
}

// defaultModel is the specification's default requested model: the
// 13b-rank identifier, i.e. rank 2 in the reference table.
func (e *Engine) defaultModel() string {
	if name := e.Caps.ByRank(2); name != "" {
		return name
	}
	return e.Caps.Smallest()
}
