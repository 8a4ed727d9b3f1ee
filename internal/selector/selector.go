// Package selector implements the Selector (C4): capability-filtered,
// load-aware backend selection with exclusive reservation.
package selector

import (
	"context"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/pfworks/model-dispatch/internal/capability"
	"github.com/pfworks/model-dispatch/internal/metrics"
	"github.com/pfworks/model-dispatch/internal/probeclient"
	"github.com/pfworks/model-dispatch/internal/registry"
)

// weightBias is the per-unit-weight nudge subtracted from a candidate's
// queue size when scoring, per the specification's §4.4 formula.
const weightBias = 0.1

var tracer = otel.Tracer("github.com/pfworks/model-dispatch/selector")

// Selector chooses a backend for a requested model.
type Selector struct {
	reg   *registry.Registry
	probe *probeclient.Client
	caps  *capability.Table
}

// New builds a Selector over reg, probing backends with probe and
// ranking models per caps.
func New(reg *registry.Registry, probe *probeclient.Client, caps *capability.Table) *Selector {
	return &Selector{reg: reg, probe: probe, caps: caps}
}

// Select runs the specification's §4.4 algorithm: probe every currently
// available backend concurrently outside the registry's lock, then
// re-enter the lock to filter by capability and score, reserving the
// best candidate. It returns the chosen backend's URL and true, or ""
// and false if no capable, available backend exists.
func (s *Selector) Select(ctx context.Context, requestedModel string) (string, bool) {
	ctx, span := tracer.Start(ctx, "selector.Select")
	defer span.End()
	span.SetAttributes(attribute.String("dispatch.requested_model", requestedModel))

	s.probeAvailable(ctx)

	requestedRank := s.caps.Rank(requestedModel)

	for {
		candidates := s.reg.AvailableCandidates()
		eligible := make([]registry.Candidate, 0, len(candidates))
		for _, c := range candidates {
			if s.caps.Rank(c.MaxModel) >= requestedRank {
				eligible = append(eligible, c)
			}
		}
		if len(eligible) == 0 {
			span.SetAttributes(attribute.Bool("dispatch.selected", false))
			metrics.IncReservation("exhausted")
			return "", false
		}

		sort.SliceStable(eligible, func(i, j int) bool {
			si := score(eligible[i])
			sj := score(eligible[j])
			if si != sj {
				return si < sj
			}
			return eligible[i].Order() < eligible[j].Order()
		})

		for _, c := range eligible {
			if s.reg.TryReserve(c.URL) {
				span.SetAttributes(
					attribute.Bool("dispatch.selected", true),
					attribute.String("dispatch.backend", c.URL),
				)
				metrics.IncReservation("reserved")
				return c.URL, true
			}
		}
		// Every eligible candidate lost its reservation race; loop and
		// re-filter over whatever is still available.
	}
}

func score(c registry.Candidate) float64 {
	return float64(c.Queue) - weightBias*c.Weight
}

// probeAvailable probes every currently available backend concurrently,
// writing fresh queue sizes back into the registry. It must run outside
// the registry's lock; Select re-enters the lock afterward to filter
// and reserve, so the queue size it reads was produced by this round.
func (s *Selector) probeAvailable(ctx context.Context) {
	urls := s.availableURLs()
	if len(urls) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, url := range urls {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			result := s.probe.Probe(ctx, url)
			s.reg.UpdateQueue(url, result.QueueSize)
			metrics.SetQueueGauge(url, result.QueueSize)
		}(url)
	}
	wg.Wait()
}

func (s *Selector) availableURLs() []string {
	candidates := s.reg.AvailableCandidates()
	urls := make([]string, 0, len(candidates))
	for _, c := range candidates {
		urls = append(urls, c.URL)
	}
	return urls
}
