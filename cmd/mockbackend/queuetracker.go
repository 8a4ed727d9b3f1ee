package main

import "sync"

// queueTracker counts requests currently in flight against this mock
// backend, standing in for a real inference engine's request queue so
// /queue-status has something genuine to report. Adapted from the
// teacher's own in-flight counter.
type queueTracker struct {
	mu       sync.Mutex
	inFlight int
}

func (q *queueTracker) inc() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inFlight++
	return q.inFlight
}

func (q *queueTracker) dec() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inFlight > 0 {
		q.inFlight--
	}
}

func (q *queueTracker) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inFlight
}
