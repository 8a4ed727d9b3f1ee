// Package contracts holds the dispatcher's data model: backend
// descriptors and their mutable state, tasks, and results.
package contracts

// BackendDescriptor is immutable after the Config Loader builds it.
type BackendDescriptor struct {
	URL      string  `json:"url"`
	Weight   float64 `json:"weight"`
	MaxModel string  `json:"max_model"`
}

// BackendState is the mutable, per-descriptor runtime state held by the
// Backend Registry. One BackendState exists per BackendDescriptor for
// the lifetime of the process (or until a config reload drops its URL).
type BackendState struct {
	Available   bool
	QueueSize   int
	ActiveModel string
	Online      bool
}

// NewBackendState returns the initial state for a freshly registered
// descriptor: available, no observed queue yet, reporting no model.
func NewBackendState() *BackendState {
	return &BackendState{Available: true, QueueSize: 0, ActiveModel: "none", Online: false}
}

// ProbeOfflineQueueSize is the sentinel queue-size recorded when a probe
// fails, per the specification's Probe Client contract.
const ProbeOfflineQueueSize = 999
