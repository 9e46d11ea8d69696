package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"viewport-preview/capture"
)

func (h *handler) listCaptures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.captures.List())
}

// startCapture captures the currently selected viewport.
func (h *handler) startCapture(w http.ResponseWriter, r *http.Request) {
	info, err := h.captures.Start(h.presets.Current())
	if err != nil {
		if errors.Is(err, capture.ErrNotConfigured) {
			http.Error(w, "capture command not configured", http.StatusServiceUnavailable)
			return
		}
		slog.Error("Failed to start capture", "error", err)
		http.Error(w, "failed to start capture", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, info)
}

func (h *handler) getCapture(w http.ResponseWriter, r *http.Request) {
	info, ok := h.captures.Get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "capture not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *handler) killCapture(w http.ResponseWriter, r *http.Request) {
	if err := h.captures.Kill(chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, capture.ErrNotFound) {
			http.Error(w, "capture not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to kill capture", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
