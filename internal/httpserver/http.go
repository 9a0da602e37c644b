package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tg-forum-migrator/internal/stats"
)

// NewServer creates the status server: health, progress snapshot and the MCP endpoint.
func NewServer(addr string, tracker *stats.Tracker, mcpHandler http.Handler) *http.Server {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(tracker.Snapshot())
	})

	if mcpHandler != nil {
		r.Handle("/mcp", mcpHandler)
	}

	return &http.Server{
		Addr:    addr,
		Handler: r,
	}
}
