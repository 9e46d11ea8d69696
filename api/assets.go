package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"viewport-preview/export"
)

type exportRequest struct {
	Src   string `json:"src"`
	Index int    `json:"index"`
}

type exportResult struct {
	Src      string `json:"src"`
	Index    int    `json:"index"`
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (h *handler) exportAsset(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Src == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	name, err := h.exporter.ExportAsset(r.Context(), req.Src, req.Index)
	if err != nil {
		switch {
		case errors.Is(err, export.ErrInvalidIndex):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, export.ErrFetchFailed):
			http.Error(w, err.Error(), http.StatusBadGateway)
		default:
			slog.Error("Failed to export asset", "src", req.Src, "error", err)
			http.Error(w, "failed to export asset", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, exportResult{Src: req.Src, Index: req.Index, Filename: name})
}

func (h *handler) exportAll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Images []export.ImageAsset `json:"images"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Images) == 0 {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	results, err := h.exporter.ExportAll(r.Context(), req.Images)
	out := make([]exportResult, len(results))
	for i, res := range results {
		out[i] = exportResult{Src: res.Src, Index: res.Index, Filename: res.Filename}
		if res.Err != nil {
			out[i].Error = res.Err.Error()
		}
	}
	status := http.StatusOK
	if err != nil {
		slog.Warn("Some assets failed to export", "error", err)
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string][]exportResult{"results": out})
}

func (h *handler) openAsset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Src string `json:"src"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Src == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	// Fire and forget: the request context ends with the response.
	h.exporter.OpenInNewContext(context.WithoutCancel(r.Context()), req.Src)
	w.WriteHeader(http.StatusAccepted)
}
