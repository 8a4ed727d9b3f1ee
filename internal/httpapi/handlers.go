package httpapi

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pfworks/model-dispatch/internal/config"
)

// requestSeq hands out the short per-request ids RequestLogger tags its
// lines with, so concurrent requests' log lines stay attributable.
var requestSeq atomic.Uint64

func nextRequestID() string {
	return "req-" + strconv.FormatUint(requestSeq.Add(1), 10)
}

// taskHandler returns the one HTTP handler shared by every task
// endpoint, parameterized by its taskDescriptor. It decodes the
// request's JSON body, reads the task's payload field and an optional
// model (defaulting per §6), and either splits (when splittable and the
// caller asked for it) or proxies directly.
func (e *Engine) taskHandler(td taskDescriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rl := config.RequestLogger(r.Method, r.URL.Path, nextRequestID())
		start := time.Now()

		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			req = map[string]interface{}{}
		}

		payload, _ := req[td.payloadKey].(string)
		model := e.readModel(req)
		rl.Printf("dispatching %s to %s (model=%s)", td.kind, td.backendEndpoint, model)

		if td.splittable {
			if split, _ := req["split"].(bool); split {
				result := e.Splitter.SplitAndProcess(r.Context(), model, payload)
				rl.Printf("split complete status=%d elapsed=%s", result.Status, time.Since(start))
				writeResult(w, result.Status, result.Body)
				return
			}
		}

		body := map[string]interface{}{td.payloadKey: payload, "model": model}
		result := e.Proxy.Call(r.Context(), td.backendEndpoint, model, body)
		rl.Printf("proxy complete status=%d elapsed=%s", result.Status, time.Since(start))
		writeResult(w, result.Status, result.Body)
	}
}

// uploadHandler implements POST /upload: the multipart "file" field's
// contents become the commands payload of a /generate task, with the
// model read from the form field.
func (e *Engine) uploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rl := config.RequestLogger(r.Method, r.URL.Path, nextRequestID())

		file, _, err := r.FormFile("file")
		if err != nil {
			rl.Printf("rejected: %v", err)
			writeResult(w, http.StatusBadRequest, map[string]interface{}{"error": "No file provided"})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			rl.Printf("rejected: %v", err)
			writeResult(w, http.StatusBadRequest, map[string]interface{}{"error": "No file provided"})
			return
		}

		model := r.FormValue("model")
		if model == "" {
			model = e.defaultModel()
		}

		body := map[string]interface{}{"commands": string(data), "model": model}
		result := e.Proxy.Call(r.Context(), "/generate", model, body)
		rl.Printf("upload complete status=%d", result.Status)
		writeResult(w, result.Status, result.Body)
	}
}

// queueStatusHandler implements GET /queue-status.
func (e *Engine) queueStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := e.Status.Report(r.Context())
		writeResult(w, http.StatusOK, report)
	}
}

func (e *Engine) readModel(req map[string]interface{}) string {
	if m, ok := req["model"].(string); ok && m != "" {
		return m
	}
	return e.defaultModel()
}

func writeResult(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("httpapi: failed to encode response: %v", err)
	}
}
