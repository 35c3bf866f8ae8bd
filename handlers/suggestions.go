// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/danielhkuo/campus-mess/auth"
	"github.com/danielhkuo/campus-mess/middleware"
	"github.com/danielhkuo/campus-mess/models"
	"github.com/danielhkuo/campus-mess/remote"
	"github.com/danielhkuo/campus-mess/seed"
)

// SuggestionHandler manages the food names offered while owners type
// menu items.
type SuggestionHandler struct {
	store remote.Store
}

func NewSuggestionHandler(store remote.Store) *SuggestionHandler {
	return &SuggestionHandler{store: store}
}

func (h *SuggestionHandler) load(r *http.Request) ([]models.Suggestion, error) {
	snap, err := h.store.Read(r.Context(), seed.SuggestionsPath)
	if err != nil {
		return nil, err
	}
	out := []models.Suggestion{}
	for _, id := range snap.Keys() {
		name, _ := snap.Child(id).Value.(string)
		out = append(out, models.Suggestion{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// List handles GET /v1/suggestions and GET /v1/admin/suggestions
func (h *SuggestionHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.load(r)
	if err != nil {
		slog.Error("failed to read suggestions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, list)
}

// Add handles POST /v1/admin/suggestions
func (h *SuggestionHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req models.SuggestionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if !validRequest(w, req) {
		return
	}
	name := req.Name

	list, err := h.load(r)
	if err != nil {
		slog.Error("failed to read suggestions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	for _, s := range list {
		if strings.EqualFold(s.Name, name) {
			middleware.ErrorResponse(w, http.StatusConflict, "suggestion already exists")
			return
		}
	}

	id, err := auth.GenerateID(8)
	if err != nil {
		slog.Error("failed to generate suggestion ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add suggestion")
		return
	}
	if err := h.store.Write(r.Context(), remote.Join(seed.SuggestionsPath, id), name); err != nil {
		slog.Error("failed to add suggestion", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add suggestion")
		return
	}

	slog.Info("suggestion added", "id", id, "name", name)
	middleware.JSONResponse(w, http.StatusCreated, models.Suggestion{ID: id, Name: name})
}

// Delete handles DELETE /v1/admin/suggestions/{id}
func (h *SuggestionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := remote.CleanPath(remote.Join(seed.SuggestionsPath, id))
	if err != nil || strings.Contains(id, "/") {
		middleware.ErrorResponse(w, http.StatusNotFound, "Suggestion not found")
		return
	}

	snap, err := h.store.Read(r.Context(), p)
	if err != nil {
		slog.Error("failed to read suggestion", "id", id, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !snap.Exists() {
		middleware.ErrorResponse(w, http.StatusNotFound, "Suggestion not found")
		return
	}

	if err := h.store.Write(r.Context(), p, nil); err != nil {
		slog.Error("failed to delete suggestion", "id", id, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete suggestion")
		return
	}

	slog.Info("suggestion deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}
