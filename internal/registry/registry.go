// Package registry implements the Backend Registry (C2): the single
// owned object holding backend descriptors and their mutable state,
// guarded by one mutex as required by the specification's concurrency
// model.
package registry

import (
	"sync"

	"github.com/pfworks/model-dispatch/internal/contracts"
)

// entry pairs an immutable descriptor with its mutable state and
// preserves registration order for score tie-breaking.
type entry struct {
	desc  contracts.BackendDescriptor
	state *contracts.BackendState
}

// Registry owns the descriptors and their states for the process
// lifetime (or until a config reload republishes a new descriptor
// list). It never calls the network itself.
type Registry struct {
	mu      sync.Mutex
	entries []*entry
	byURL   map[string]*entry
}

// New builds a Registry from an ordered descriptor list. Registration
// order is preserved for the Selector's tie-breaking rule.
func New(descs []contracts.BackendDescriptor) *Registry {
	r := &Registry{byURL: make(map[string]*entry, len(descs))}
	for _, d := range descs {
		e := &entry{desc: d, state: contracts.NewBackendState()}
		r.entries = append(r.entries, e)
		r.byURL[d.URL] = e
	}
	return r
}

// Reconcile republishes a new descriptor list in registration order,
// used by config hot-reload (A5). Backends whose URL persists keep
// their existing BackendState (and thus their current reservation, if
// any); new URLs get fresh state; URLs no longer present are dropped
// together with their state, so a later Release from an in-flight call
// against such a URL is a no-op, and a URL that is added back starts
// with fresh, available state.
func (r *Registry) Reconcile(descs []contracts.BackendDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]*entry, 0, len(descs))
	nextByURL := make(map[string]*entry, len(descs))
	for _, d := range descs {
		if e, ok := r.byURL[d.URL]; ok {
			e.desc = d
			next = append(next, e)
			nextByURL[d.URL] = e
			continue
		}
		e := &entry{desc: d, state: contracts.NewBackendState()}
		next = append(next, e)
		nextByURL[d.URL] = e
	}
	r.entries = next
	r.byURL = nextByURL
}

// Descriptor is a read-only view of one backend's immutable metadata
// paired with a snapshot of its current state, returned by Snapshot.
type Descriptor struct {
	contracts.BackendDescriptor
	State contracts.BackendState
}

// Snapshot returns a copy of every descriptor and its current state, in
// registration order, for read-only consumers (Status Aggregator,
// Selector's post-probe read).
func (r *Registry) Snapshot() []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Descriptor, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, Descriptor{BackendDescriptor: e.desc, State: *e.state})
	}
	return out
}

// URLs returns every registered backend's URL, in registration order,
// for callers (the Selector) that need to probe outside the lock before
// re-entering it to filter and reserve.
func (r *Registry) URLs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.desc.URL)
	}
	return out
}

// TryReserve atomically requires available=true for url, sets it false,
// and returns whether the reservation succeeded. It never blocks.
func (r *Registry) TryReserve(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byURL[url]
	if !ok || !e.state.Available {
		return false
	}
	e.state.Available = false
	return true
}

// Release marks url available again. It is idempotent: releasing an
// already-available (or unknown) URL is a no-op, never an error, since
// the scoped release guard in internal/proxy must be safe to invoke on
// every exit path regardless of how far reservation got.
func (r *Registry) Release(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.byURL[url]; ok {
		e.state.Available = true
	}
}

// UpdateQueue writes the last observed queue-size for url.
func (r *Registry) UpdateQueue(url string, size int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.byURL[url]; ok {
		e.state.QueueSize = size
	}
}

// UpdateProbe writes the full result of a probe round for url: queue
// size, reported active model, and the online/offline verdict. Online
// is a purely reporting field set only by the Status Aggregator's probe
// pass; it never gates selection.
func (r *Registry) UpdateProbe(url string, queueSize int, activeModel string, online bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.byURL[url]; ok {
		e.state.QueueSize = queueSize
		e.state.ActiveModel = activeModel
		e.state.Online = online
	}
}

// Candidate is a registry entry considered eligible during one
// selection pass: its descriptor and freshly-observed queue size.
type Candidate struct {
	URL      string
	Weight   float64
	MaxModel string
	Queue    int
	order    int
}

// AvailableCandidates returns, in registration order, every backend
// currently available with its last recorded queue size. Callers must
// have just probed (outside the lock) and written those results via
// UpdateQueue/UpdateProbe before calling this, per the specification's
// "probe outside lock, filter-and-reserve inside lock" pattern.
func (r *Registry) AvailableCandidates() []Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Candidate, 0, len(r.entries))
	for i, e := range r.entries {
		if !e.state.Available {
			continue
		}
		out = append(out, Candidate{
			URL:      e.desc.URL,
			Weight:   e.desc.Weight,
			MaxModel: e.desc.MaxModel,
			Queue:    e.state.QueueSize,
			order:    i,
		})
	}
	return out
}

// Order returns the registration index recorded on a Candidate, for
// the Selector's tie-break rule.
func (c Candidate) Order() int { return c.order }
