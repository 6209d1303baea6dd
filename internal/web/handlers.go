package web

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tbertin/photobooth/internal/debug"
	"github.com/tbertin/photobooth/internal/export"
	"github.com/tbertin/photobooth/internal/session"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Session     *session.Session
	Exporter    *export.Exporter
	Broadcaster *EventBroadcaster
	Preview     *Preview
	staticFS    fs.FS
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(s *session.Session, e *export.Exporter, b *EventBroadcaster, p *Preview, staticFS fs.FS) *Handlers {
	return &Handlers{
		Session:     s,
		Exporter:    e,
		Broadcaster: b,
		Preview:     p,
		staticFS:    staticFS,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// stateResponse is the session record plus the rolling diagnostics log.
type stateResponse struct {
	Session session.Status `json:"session"`
	Log     []debug.Entry  `json:"log"`
}

// HandleState returns the current session snapshot and diagnostics.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stateResponse{
		Session: h.Session.Snapshot(),
		Log:     debug.Recent(),
	})
}

// HandleConfigure sets the target photo count before a session starts.
func (h *Handlers) HandleConfigure(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.Session.Configure(req.Count); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, h.Session.Snapshot())
}

// HandleStart begins the session: acquires the camera and starts streaming.
// An optional count in the body configures the target first.
func (h *Handlers) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int `json:"count"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
	}
	if req.Count > 0 {
		if err := h.Session.Configure(req.Count); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}
	if err := h.Session.Start(r.Context()); err != nil {
		// The classified message sits in the snapshot's error slot.
		writeJSON(w, http.StatusServiceUnavailable, h.Session.Snapshot())
		return
	}
	writeJSON(w, http.StatusOK, h.Session.Snapshot())
}

// HandleCapture requests one countdown-then-capture cycle. Requests during a
// running countdown or past the target count are no-ops.
func (h *Handlers) HandleCapture(w http.ResponseWriter, r *http.Request) {
	h.Session.RequestCapture()
	writeJSON(w, http.StatusAccepted, h.Session.Snapshot())
}

// HandleFilter selects the active filter.
func (h *Handlers) HandleFilter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.Session.SetFilter(req.Name); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, h.Session.Snapshot())
}

// HandleStop ends the live feed but keeps the gallery for export.
func (h *Handlers) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.Session.Stop()
	writeJSON(w, http.StatusOK, h.Session.Snapshot())
}

// HandleReset returns the session to idle and releases the camera.
func (h *Handlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.Session.Reset()
	writeJSON(w, http.StatusOK, h.Session.Snapshot())
}

// HandleFilters lists the selectable filters.
func (h *Handlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, session.Filters())
}

// photoMeta is the gallery listing entry; pixels are fetched per photo.
type photoMeta struct {
	ID      int       `json:"id"`
	TakenAt time.Time `json:"taken_at"`
	Bytes   int       `json:"bytes"`
}

// HandlePhotos lists captured photos in capture order.
func (h *Handlers) HandlePhotos(w http.ResponseWriter, r *http.Request) {
	photos := h.Session.Photos()
	metas := make([]photoMeta, 0, len(photos))
	for _, p := range photos {
		metas = append(metas, photoMeta{ID: p.ID, TakenAt: p.TakenAt, Bytes: len(p.PNG)})
	}
	writeJSON(w, http.StatusOK, metas)
}

// HandlePhoto serves one captured photo as PNG.
func (h *Handlers) HandlePhoto(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid photo id", http.StatusBadRequest)
		return
	}
	p, ok := h.Session.PhotoByID(id)
	if !ok {
		http.Error(w, "photo not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(p.PNG)
}

// artifact is one produced export with its download location.
type artifact struct {
	Filename string `json:"filename"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// HandleExport runs an export and returns the produced artifacts. Formats:
// "png" and "jpeg" produce one file per photo, "collage" a single grid
// image. Per-item failures are reported inline and never abort siblings.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Format string `json:"format"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	photos := h.Session.Photos()
	if len(photos) == 0 {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "no photos captured yet"})
		return
	}

	var artifacts []artifact
	switch req.Format {
	case "png", "jpeg":
		for _, res := range h.Exporter.Individual(photos, export.Format(req.Format)) {
			a := artifact{Filename: res.Filename, Error: res.Error}
			if res.Error == "" {
				a.URL = "/download/" + res.Filename
			}
			artifacts = append(artifacts, a)
		}
	case "collage":
		name, err := h.Exporter.Collage(photos)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		artifacts = append(artifacts, artifact{Filename: name, URL: "/download/" + name})
	default:
		http.Error(w, fmt.Sprintf("unknown format %q", req.Format), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]artifact{"artifacts": artifacts})
}

// HandleDownload serves a produced artifact as a file download.
func (h *Handlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	// Artifact names are flat; anything path-like is rejected.
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		http.Error(w, "invalid artifact name", http.StatusBadRequest)
		return
	}
	path := filepath.Join(h.Exporter.OutDir, name)
	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "artifact not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, time.Time{}, f)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
