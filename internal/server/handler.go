package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"docscribe/internal/archive"
	"docscribe/internal/preference"
)

// Handler serves the browser routes. Store may be nil when no project is
// active; /api/state then reports an empty state.
type Handler struct {
	archiver *archive.Archiver
	store    *preference.Store
	hub      *Hub
	log      *zap.Logger
}

func NewHandler(archiver *archive.Archiver, store *preference.Store, hub *Hub, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if hub == nil {
		hub = NewHub(0)
	}
	return &Handler{archiver: archiver, store: store, hub: hub, log: log}
}

// HandleHealth reports liveness, the websocket subscriber count and, when the
// archive is cached, its hit and miss counters.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	out := map[string]any{"ok": true, "subscribers": h.hub.Subscribers()}
	if h.archiver != nil {
		if cs, ok := h.archiver.Store().(*archive.CachedStore); ok {
			out["archive_cache"] = cs.Metrics()
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type stepView struct {
	Step   int                   `json:"step"`
	Name   string                `json:"name"`
	Status preference.StepStatus `json:"status"`
}

type stateView struct {
	ProjectID   string                  `json:"project_id"`
	Preferences *preference.Preferences `json:"preferences,omitempty"`
	Counts      *preference.Counts      `json:"counts,omitempty"`
	Format      preference.Format       `json:"format,omitempty"`
	Steps       []stepView              `json:"steps"`
}

// withArchive answers 503 when the handler was built without an archive.
func (h *Handler) withArchive(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.archiver == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "revision archive is not configured"})
			return
		}
		next(w, r)
	}
}

func (h *Handler) HandleState(w http.ResponseWriter, _ *http.Request) {
	out := stateView{Steps: []stepView{}}
	if h.store != nil && h.store.ProjectID() != "" {
		prefs := h.store.Preferences()
		counts := h.store.Counts()
		out.ProjectID = h.store.ProjectID()
		out.Preferences = &prefs
		out.Counts = &counts
		out.Format = h.store.DocFormat()
		steps := h.store.Steps()
		for _, n := range []int{preference.StepDirectories, preference.StepPerFile, preference.StepSettings} {
			out.Steps = append(out.Steps, stepView{Step: n, Name: preference.StepName(n), Status: steps.Status(n)})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleRevisions(w http.ResponseWriter, r *http.Request) {
	project := strings.TrimSpace(r.PathValue("project"))
	list, err := h.archiver.Revisions(r.Context(), project)
	if err != nil {
		h.fail(w, "list revisions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"project_id": project, "revisions": list})
}

func (h *Handler) HandleManifest(w http.ResponseWriter, r *http.Request) {
	m, err := h.archiver.Manifest(r.Context(), r.PathValue("project"), r.PathValue("revision"))
	if err != nil {
		h.fail(w, "read manifest", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleContent redirects to the backend's URL when it is served over HTTP
// (presigned S3 links) and streams the stored bytes otherwise.
func (h *Handler) HandleContent(w http.ResponseWriter, r *http.Request) {
	project, revision := r.PathValue("project"), r.PathValue("revision")
	if u, err := h.archiver.URL(r.Context(), project, revision); err == nil && isHTTPURL(u) {
		http.Redirect(w, r, u, http.StatusFound)
		return
	}
	body, m, err := h.archiver.Content(r.Context(), project, revision)
	if err != nil {
		h.fail(w, "read content", err)
		return
	}
	if m.ContentType != "" {
		w.Header().Set("Content-Type", m.ContentType)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Content-Disposition", `inline; filename="`+m.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func isHTTPURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

type diffView struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Added   int    `json:"added"`
	Removed int    `json:"removed"`
	Text    string `json:"text"`
}

// HandleDiff compares ?from= and ?to=; ?context= bounds unchanged lines
// (default 3).
func (h *Handler) HandleDiff(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	if from == "" || to == "" {
		http.Error(w, "from and to are required", http.StatusBadRequest)
		return
	}
	lines := 3
	if raw := q.Get("context"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "context must be an integer", http.StatusBadRequest)
			return
		}
		lines = n
	}
	d, err := h.archiver.Compare(r.Context(), r.PathValue("project"), from, to)
	if err != nil {
		h.fail(w, "diff revisions", err)
		return
	}
	writeJSON(w, http.StatusOK, diffView{From: from, To: to, Added: d.Added, Removed: d.Removed, Text: d.Render(lines)})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, archive.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	h.log.Warn(op+" failed", zap.Error(err))
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
