// Package statusagg implements the Status Aggregator (C7): a bounded-
// concurrency fan-in of /queue-status across the backend pool, used
// only for reporting — it never touches the Registry's available flag.
package statusagg

import (
	"context"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/pfworks/model-dispatch/internal/metrics"
	"github.com/pfworks/model-dispatch/internal/probeclient"
	"github.com/pfworks/model-dispatch/internal/registry"
)

// maxConcurrentProbes bounds the fan-in, grounded on the teacher's own
// default probe pool size.
const maxConcurrentProbes = 16

// BackendReport is one backend's entry in an aggregate Report.
type BackendReport struct {
	URL         string  `json:"url"`
	Weight      float64 `json:"weight"`
	MaxModel    string  `json:"max_model"`
	QueueSize   int     `json:"queue_size"`
	Active      bool    `json:"active"`
	Status      string  `json:"status"`
	ActiveModel string  `json:"active_model"`
}

// Report is the aggregate status returned by the /queue-status endpoint.
type Report struct {
	QueueSize      int             `json:"queue_size"`
	QueueSizeP50   float64         `json:"queue_size_p50"`
	Active         bool            `json:"active"`
	ActiveBackends int             `json:"active_backends"`
	TotalBackends  int             `json:"total_backends"`
	Backends       []BackendReport `json:"backends"`
	Timestamp      time.Time       `json:"timestamp"`
}

// Aggregator fans a probe round out over every registered backend.
type Aggregator struct {
	reg   *registry.Registry
	probe *probeclient.Client
	now   func() time.Time
}

// New builds an Aggregator over reg, probing through probe.
func New(reg *registry.Registry, probe *probeclient.Client) *Aggregator {
	return &Aggregator{reg: reg, probe: probe, now: time.Now}
}

// Report probes every registered backend (bounded concurrency) and
// returns the aggregate view described in §4.7. A backend that fails to
// probe is reported offline with queue_size=0, active=false,
// active_model="none" — the offline sentinel used internally by the
// Probe Client (999) is a selection-time signal, not a reporting value.
func (a *Aggregator) Report(ctx context.Context) Report {
	descs := a.reg.Snapshot()

	entries := make([]BackendReport, len(descs))
	sem := make(chan struct{}, maxConcurrentProbes)
	var wg sync.WaitGroup

	for i, d := range descs {
		metrics.SetAvailableGauge(d.URL, d.State.Available)
		wg.Add(1)
		go func(i int, url, maxModel string, weight float64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result := a.probe.Probe(ctx, url)
			status := "offline"
			queueSize := 0
			active := false
			activeModel := "none"
			if result.Online {
				status = "online"
				queueSize = result.QueueSize
				active = result.Active
				activeModel = result.ActiveModel
			}
			a.reg.UpdateProbe(url, result.QueueSize, result.ActiveModel, result.Online)

			entries[i] = BackendReport{
				URL:         url,
				Weight:      weight,
				MaxModel:    maxModel,
				QueueSize:   queueSize,
				Active:      active,
				Status:      status,
				ActiveModel: activeModel,
			}
		}(i, d.URL, d.MaxModel, d.Weight)
	}
	wg.Wait()

	return summarize(entries, a.now())
}

func summarize(entries []BackendReport, ts time.Time) Report {
	var totalQueue, activeCount int
	var onlineQueueSizes []float64
	for _, e := range entries {
		totalQueue += e.QueueSize
		if e.Active {
			activeCount++
		}
		if e.Status == "online" {
			onlineQueueSizes = append(onlineQueueSizes, float64(e.QueueSize))
		}
	}

	return Report{
		QueueSize:      totalQueue,
		QueueSizeP50:   medianOf(onlineQueueSizes),
		Active:         activeCount > 0,
		ActiveBackends: activeCount,
		TotalBackends:  len(entries),
		Backends:       entries,
		Timestamp:      ts,
	}
}

func medianOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
