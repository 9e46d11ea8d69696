package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"viewport-preview/preset"
)

func (h *handler) listPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.presets.List())
}

func (h *handler) listViews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.presets.Views())
}

func (h *handler) getPreset(w http.ResponseWriter, r *http.Request) {
	p, ok := h.presets.Get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "preset not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) addPreset(w http.ResponseWriter, r *http.Request) {
	var req preset.Preset
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p, err := h.presets.Add(req)
	if err != nil {
		switch {
		case errors.Is(err, preset.ErrDuplicateID):
			http.Error(w, "preset id already in use", http.StatusConflict)
		case errors.Is(err, preset.ErrInvalidPreset):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			slog.Error("Failed to add preset", "error", err)
			http.Error(w, "failed to add preset", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *handler) removePreset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.presets.Remove(id); err != nil {
		switch {
		case errors.Is(err, preset.ErrNotDeletable):
			http.Error(w, "built-in presets cannot be deleted", http.StatusForbidden)
		case errors.Is(err, preset.ErrNotFound):
			http.Error(w, "preset not found", http.StatusNotFound)
		default:
			slog.Error("Failed to remove preset", "id", id, "error", err)
			http.Error(w, "failed to remove preset", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) getSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.presets.Current())
}

func (h *handler) putSelection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p, err := h.presets.Select(req.ID)
	if err != nil {
		if errors.Is(err, preset.ErrUnknownPreset) {
			http.Error(w, "unknown preset", http.StatusNotFound)
			return
		}
		slog.Error("Failed to select preset", "id", req.ID, "error", err)
		http.Error(w, "failed to select preset", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
