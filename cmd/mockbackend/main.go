// Command mockbackend is a reference inference backend: it implements
// the southbound contract the dispatcher expects (GET /queue-status
// plus the five task endpoints) with simulated latency, so the
// dispatcher can be exercised end to end without a real model server.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"os"
	"time"
)

// simulation parameters, in the teacher's spirit of a Gaussian base
// latency plus a small per-in-flight-request penalty.
const (
	baseLatencyMs   = 80.0
	latencyStddevMs = 15.0
	latencyPerQueue = 4.0
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "5001"
	}
	model := os.Getenv("MODEL")
	if model == "" {
		model = "13b"
	}

	tracker := &queueTracker{}
	mux := http.NewServeMux()

	mux.HandleFunc("/queue-status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"queue_size":   tracker.size(),
			"active":       tracker.size() > 0,
			"active_model": model,
		})
	})

	for _, ep := range []struct {
		path       string
		payloadKey string
		replyKey   string
	}{
		{"/generate", "commands", "playbook"},
		{"/explain", "playbook", "explanation"},
		{"/generate-code", "description", "code"},
		{"/explain-code", "code", "explanation"},
		{"/chat", "message", "reply"},
	} {
		mux.HandleFunc(ep.path, taskHandler(tracker, model, ep.payloadKey, ep.replyKey))
	}

	log.Printf("mockbackend: listening on :%s (model=%s)", port, model)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatalf("mockbackend: server failed: %v", err)
	}
}

// taskHandler simulates processing req[payloadKey] and echoes a
// response carrying replyKey, elapsed, and total_tokens — the fields
// the dispatcher's splitter recognizes for its merge step.
func taskHandler(tracker *queueTracker, model, payloadKey, replyKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			req = map[string]interface{}{}
		}
		payload, _ := req[payloadKey].(string)

		queued := tracker.inc()
		defer tracker.dec()

		start := time.Now()
		latency := simulatedLatency(queued)
		time.Sleep(latency)
		elapsed := time.Since(start).Seconds()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			replyKey:       fmt.Sprintf("[%s] processed %d bytes of input", model, len(payload)),
			"elapsed":      round2(elapsed),
			"total_tokens": len(payload) / 4,
		})
	}
}

func simulatedLatency(queued int) time.Duration {
	base := math.Max(0, rand.NormFloat64()*latencyStddevMs+baseLatencyMs)
	ms := base + float64(queued)*latencyPerQueue
	return time.Duration(ms * float64(time.Millisecond))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
