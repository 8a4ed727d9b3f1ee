// Package proxy implements the Proxy (C5): forwarding a single task to
// a reserved backend, with the reservation released on every exit path.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/pfworks/model-dispatch/internal/contracts"
	"github.com/pfworks/model-dispatch/internal/metrics"
	"github.com/pfworks/model-dispatch/internal/registry"
)

// callTimeout is the hard per-call deadline from §5.
const callTimeout = 600 * time.Second

var tracer = otel.Tracer("github.com/pfworks/model-dispatch/proxy")

// Selector is the subset of internal/selector.Selector the Proxy needs,
// kept as an interface so the Splitter and tests can stand in a fake.
type Selector interface {
	Select(ctx context.Context, requestedModel string) (string, bool)
}

// Proxy forwards one task at a time to a reserved backend.
type Proxy struct {
	reg  *registry.Registry
	sel  Selector
	http *http.Client
}

// New builds a Proxy that reserves backends via sel and releases them
// through reg.
func New(reg *registry.Registry, sel Selector) *Proxy {
	return &Proxy{
		reg:  reg,
		sel:  sel,
		http: &http.Client{Timeout: callTimeout},
	}
}

// guard releases a reservation exactly once, on whichever exit path
// fires first — the scoped-release pattern the specification requires
// (§4.5 step 5, §9 "Scoped release").
type guard struct {
	reg      *registry.Registry
	url      string
	released bool
}

func newGuard(reg *registry.Registry, url string) *guard {
	return &guard{reg: reg, url: url}
}

func (g *guard) release() {
	if g.released {
		return
	}
	g.released = true
	g.reg.Release(g.url)
}

// Call sends body to endpoint on a backend selected for model, and
// returns the backend's result verbatim along with its HTTP status. If
// no capable/available backend exists it returns a 503 result with the
// specification's "no backends available" message. On transport or
// decode failure it returns a 500 result. The reservation is always
// released before Call returns.
func (p *Proxy) Call(ctx context.Context, endpoint, model string, body map[string]interface{}) contracts.BackendResult {
	ctx, span := tracer.Start(ctx, "proxy.Call")
	defer span.End()
	span.SetAttributes(
		attribute.String("dispatch.endpoint", endpoint),
		attribute.String("dispatch.requested_model", model),
	)

	start := time.Now()
	url, ok := p.sel.Select(ctx, model)
	if !ok {
		span.SetStatus(codes.Error, "no capable backend")
		metrics.ObserveProxy(endpoint, http.StatusServiceUnavailable, time.Since(start))
		return contracts.BackendResult{
			Status: http.StatusServiceUnavailable,
			Body: map[string]interface{}{
				"error": fmt.Sprintf("no backends available that support %s", model),
			},
		}
	}

	g := newGuard(p.reg, url)
	defer g.release()
	span.SetAttributes(attribute.String("dispatch.backend", url))

	result := p.forward(ctx, url, endpoint, body)
	metrics.ObserveProxy(endpoint, result.Status, time.Since(start))
	if result.Status >= 500 {
		span.SetStatus(codes.Error, "backend error")
	}
	return result
}

func (p *Proxy) forward(ctx context.Context, backendURL, endpoint string, body map[string]interface{}) contracts.BackendResult {
	payload, err := json.Marshal(body)
	if err != nil {
		return backendError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, backendURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return backendError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return backendError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return backendError(err)
	}

	var decoded map[string]interface{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &decoded); err != nil {
			return backendError(err)
		}
	} else {
		decoded = map[string]interface{}{}
	}

	return contracts.BackendResult{Body: decoded, Status: resp.StatusCode}
}

func backendError(err error) contracts.BackendResult {
	return contracts.BackendResult{
		Status: http.StatusInternalServerError,
		Body: map[string]interface{}{
			"error": fmt.Sprintf("backend error: %s", err.Error()),
		},
	}
}
