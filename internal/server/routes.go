package server

import (
	"net/http"
	"strings"
)

func NewMux(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.HandleFunc("GET /api/state", h.HandleState)
	mux.HandleFunc("GET /api/projects/{project}/revisions", h.withArchive(h.HandleRevisions))
	mux.HandleFunc("GET /api/projects/{project}/revisions/{revision}", h.withArchive(h.HandleManifest))
	mux.HandleFunc("GET /api/projects/{project}/revisions/{revision}/content", h.withArchive(h.HandleContent))
	mux.HandleFunc("GET /api/projects/{project}/diff", h.withArchive(h.HandleDiff))
	mux.HandleFunc("GET /ws/events", h.HandleEventsWS)

	return cors(mux)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
