package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"viewport-preview/capture"
	"viewport-preview/events"
	"viewport-preview/export"
	"viewport-preview/preset"
)

const selectionListenerKey = "events-hub"

// RegisterRoutes builds the router and connects selection changes and
// capture results to the event hub.
func RegisterRoutes(pm *preset.Manager, exp *export.Exporter, captures *capture.Manager, hub *events.Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	pm.OnSelectionChanged(selectionListenerKey, func(ctx context.Context, ch preset.SelectionChange) {
		hub.Broadcast(events.Event{Type: events.TypeSelection, Data: ch})
	})
	captures.OnFinish(func(info capture.Info) {
		hub.Broadcast(events.Event{Type: events.TypeCapture, Data: info})
	})

	h := &handler{presets: pm, exporter: exp, captures: captures}

	// Presets API
	r.Get("/api/presets", h.listPresets)
	r.Post("/api/presets", h.addPreset)
	r.Get("/api/presets/{id}", h.getPreset)
	r.Delete("/api/presets/{id}", h.removePreset)
	r.Get("/api/selection", h.getSelection)
	r.Put("/api/selection", h.putSelection)
	r.Get("/api/views", h.listViews)

	// Assets API
	r.Post("/api/assets/export", h.exportAsset)
	r.Post("/api/assets/export-all", h.exportAll)
	r.Post("/api/assets/open", h.openAsset)

	// Captures API
	r.Get("/api/captures", h.listCaptures)
	r.Post("/api/captures", h.startCapture)
	r.Get("/api/captures/{id}", h.getCapture)
	r.Delete("/api/captures/{id}", h.killCapture)

	// WebSocket
	r.Get("/api/events", hub.ServeHTTP)

	return r
}

type handler struct {
	presets  *preset.Manager
	exporter *export.Exporter
	captures *capture.Manager
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
