package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pfworks/model-dispatch/internal/metrics"
)

// NewRouter builds the dispatcher's HTTP route table on gorilla/mux,
// per the teacher's own routing choice. staticDir, when non-empty, is
// served for "/" and "/status" — the static HTML surface is an external
// collaborator per spec.md §1 and is not otherwise implemented here.
func NewRouter(e *Engine, staticDir string) *mux.Router {
	r := mux.NewRouter()

	if staticDir != "" {
		fs := http.FileServer(http.Dir(staticDir))
		r.Handle("/", fs).Methods(http.MethodGet)
		r.Handle("/status", fs).Methods(http.MethodGet)
	}

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/queue-status", e.queueStatusHandler()).Methods(http.MethodGet)
	r.HandleFunc("/upload", e.uploadHandler()).Methods(http.MethodPost)

	for _, td := range taskTable {
		r.HandleFunc(td.northboundPath, e.taskHandler(td)).Methods(http.MethodPost)
	}

	return r
}
