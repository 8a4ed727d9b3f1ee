// Package probeclient implements the Probe Client (C3): a time-bounded
// GET against a backend's /queue-status endpoint, plus a small rolling
// per-backend history of observed queue sizes.
package probeclient

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/pfworks/model-dispatch/internal/contracts"
)

// timeout is the hard per-probe wall-clock deadline from §5.
const timeout = 2 * time.Second

// Result is the outcome of a single probe.
type Result struct {
	QueueSize   int
	Active      bool
	ActiveModel string
	Online      bool
}

// response is the southbound /queue-status wire shape.
type response struct {
	QueueSize   int    `json:"queue_size"`
	Active      bool   `json:"active"`
	ActiveModel string `json:"active_model"`
}

// Client probes backends over HTTP and keeps a bounded per-backend
// history of observed queue sizes for reporting.
type Client struct {
	http *http.Client

	mu      sync.Mutex
	history map[string][]float64
	maxHist int
}

// New returns a Client with the specification's 2-second probe SLA.
func New() *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		history: make(map[string][]float64),
		maxHist: 32,
	}
}

// Probe performs a single GET to <url>/queue-status. On any transport
// or decode failure it returns the offline sentinel result
// (queue-size 999, online false) rather than an error: probe failure is
// a normal, expected outcome in this domain, not an exceptional one.
func (c *Client) Probe(ctx context.Context, url string) Result {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/queue-status", nil)
	if err != nil {
		return c.offline(url)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.offline(url)
	}
	defer resp.Body.Close()

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return c.offline(url)
	}

	activeModel := body.ActiveModel
	if activeModel == "" {
		activeModel = "none"
	}
	c.record(url, float64(body.QueueSize))
	return Result{QueueSize: body.QueueSize, Active: body.Active, ActiveModel: activeModel, Online: true}
}

func (c *Client) offline(url string) Result {
	c.record(url, float64(contracts.ProbeOfflineQueueSize))
	return Result{QueueSize: contracts.ProbeOfflineQueueSize, Active: false, ActiveModel: "none", Online: false}
}

func (c *Client) record(url string, queueSize float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := append(c.history[url], queueSize)
	if len(h) > c.maxHist {
		h = h[len(h)-c.maxHist:]
	}
	c.history[url] = h
}

// MedianQueueSize returns the median of the recent queue-size samples
// recorded for url, or 0 if no samples have been recorded yet. Neither
// the Selector nor the Status Aggregator reads it: the Selector uses the
// single freshest sample, and the aggregator's queue_size_p50 is computed
// from the current probe round only.
func (c *Client) MedianQueueSize(url string) float64 {
	c.mu.Lock()
	samples := append([]float64(nil), c.history[url]...)
	c.mu.Unlock()

	if len(samples) == 0 {
		return 0
	}
	sort.Float64s(samples)
	return stat.Quantile(0.5, stat.Empirical, samples, nil)
}
