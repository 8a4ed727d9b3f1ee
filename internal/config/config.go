// Package config implements the Config Loader (C1) and its optional
// hot-reload watcher (A5).
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/pfworks/model-dispatch/internal/capability"
	"github.com/pfworks/model-dispatch/internal/contracts"
)

// defaultBackendURL is used when the config file cannot be read or
// parsed at all, per the specification's fail-soft loader contract.
const defaultBackendURL = "http://localhost:5001"

// weightSanityLimit is not enforced — the selector's scoring formula
// has no clamp, per spec.md's explicit "preserve the formula" decision
// — but a weight past this point can mask a genuinely overloaded
// backend, so the loader logs instead of refusing to start.
const weightSanityLimit = 50.0

// backendSpec is the object form of a backend entry in backends.json.
type backendSpec struct {
	URL      string   `json:"url"`
	Weight   *float64 `json:"weight"`
	MaxModel string   `json:"max_model"`
}

// fileDoc is the top-level shape of backends.json.
type fileDoc struct {
	Backends json.RawMessage `json:"backends"`
}

// Load reads path and returns the normalized, immutable descriptor
// list. Legacy entries (bare URL strings) are normalized to the object
// form with weight=1 and max_model set to the table's largest
// identifier. Any read or parse failure yields the single-entry
// default list; Load never returns an error because the loader's
// contract is to always produce something usable.
func Load(path string, caps *capability.Table) []contracts.BackendDescriptor {
	descs, err := load(path, caps)
	if err != nil {
		log.Printf("config: failed to load %s: %v; falling back to default backend", path, err)
		return defaultDescriptors(caps)
	}
	return descs
}

func load(path string, caps *capability.Table) ([]contracts.BackendDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Backends) == 0 {
		return nil, fmt.Errorf("config: missing \"backends\" key")
	}

	largest := largestModel(caps)

	// Legacy form: a list of bare URL strings.
	var urls []string
	if err := json.Unmarshal(doc.Backends, &urls); err == nil {
		out := make([]contracts.BackendDescriptor, 0, len(urls))
		for _, u := range urls {
			out = append(out, contracts.BackendDescriptor{URL: u, Weight: 1, MaxModel: largest})
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("config: empty backend list")
		}
		return out, nil
	}

	// Object form: a list of {url, weight, max_model}.
	var specs []backendSpec
	if err := json.Unmarshal(doc.Backends, &specs); err != nil {
		return nil, err
	}
	out := make([]contracts.BackendDescriptor, 0, len(specs))
	for _, s := range specs {
		weight := 1.0
		if s.Weight != nil {
			weight = *s.Weight
		}
		if weight > weightSanityLimit {
			log.Printf("config: backend %s has weight %.1f, above the sanity limit of %.1f", s.URL, weight, weightSanityLimit)
		}
		maxModel := s.MaxModel
		if maxModel == "" {
			maxModel = largest
		}
		out = append(out, contracts.BackendDescriptor{URL: s.URL, Weight: weight, MaxModel: maxModel})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("config: empty backend list")
	}
	return out, nil
}

func defaultDescriptors(caps *capability.Table) []contracts.BackendDescriptor {
	return []contracts.BackendDescriptor{
		{URL: defaultBackendURL, Weight: 1, MaxModel: largestModel(caps)},
	}
}

func largestModel(caps *capability.Table) string {
	best := caps.Smallest()
	bestRank := caps.Rank(best)
	for rank := bestRank; ; rank++ {
		if name := caps.ByRank(rank); name != "" {
			best = name
			bestRank = rank
		} else if rank > bestRank {
			break
		}
	}
	return best
}

// Store holds the currently active descriptor list behind an atomic
// pointer so that concurrent readers never observe a torn update, and
// optionally keeps it fresh via a filesystem watch on the config file's
// directory (A5).
type Store struct {
	path    string
	caps    *capability.Table
	current atomic.Pointer[[]contracts.BackendDescriptor]
}

// NewStore loads path once and returns a Store ready to be read via
// Snapshot and, optionally, kept fresh via Watch.
func NewStore(path string, caps *capability.Table) *Store {
	s := &Store{path: path, caps: caps}
	descs := Load(path, caps)
	s.current.Store(&descs)
	return s
}

// Snapshot returns the currently active descriptor list. The returned
// slice must not be mutated by the caller.
func (s *Store) Snapshot() []contracts.BackendDescriptor {
	return *s.current.Load()
}

// Watch starts a background fsnotify watch on the config file's
// directory and reloads on any event naming the file. It runs until
// stop is closed. Reload failures are logged and leave the previous
// snapshot in place — a hot-reload failure is never fatal.
func (s *Store) Watch(stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		target := filepath.Clean(s.path)
		for {
			select {
			case <-stop:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				descs, err := load(s.path, s.caps)
				if err != nil {
					log.Printf("config: reload of %s failed, keeping previous backend list: %v", s.path, err)
					continue
				}
				s.current.Store(&descs)
				log.Printf("config: reloaded %d backend(s) from %s", len(descs), s.path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("config: watch error on %s: %v", dir, err)
			}
		}
	}()
	return nil
}
