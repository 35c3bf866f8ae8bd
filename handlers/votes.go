// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/danielhkuo/campus-mess/middleware"
	"github.com/danielhkuo/campus-mess/models"
	"github.com/danielhkuo/campus-mess/remote"
	"github.com/danielhkuo/campus-mess/voting"
)

type VoteHandler struct {
	store remote.Store
}

func NewVoteHandler(store remote.Store) *VoteHandler {
	return &VoteHandler{store: store}
}

func voteResponse(st voting.ItemState) models.VoteResponse {
	return models.VoteResponse{
		ServiceID:   st.Key.ServiceID,
		Day:         st.Key.Day,
		Meal:        st.Key.Meal,
		ItemID:      st.Key.ItemID,
		Vote:        string(st.Vote),
		Likes:       st.Likes,
		Active:      st.Active,
		Reconciling: st.Phase == voting.Reconciling,
	}
}

// itemKey reads the route and checks the item is on the owner's menu.
func (h *VoteHandler) itemKey(w http.ResponseWriter, r *http.Request) (voting.ItemKey, bool) {
	key := voting.ItemKey{
		ServiceID: chi.URLParam(r, "serviceId"),
		Day:       chi.URLParam(r, "day"),
		Meal:      chi.URLParam(r, "meal"),
		ItemID:    chi.URLParam(r, "item"),
	}
	if err := key.Validate(); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return key, false
	}

	serviceType, _, err := findOwner(r.Context(), h.store, key.ServiceID)
	if errors.Is(err, errOwnerNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Owner not found")
		return key, false
	}
	if err != nil {
		slog.Error("failed to read owner", "uid", key.ServiceID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return key, false
	}

	item, err := h.store.Read(r.Context(), remote.Join(ownerPath(serviceType, key.ServiceID),
		"weekdays", key.Day, "meals", key.Meal, "items", key.ItemID))
	if err != nil {
		slog.Error("failed to read menu item", "path", key.Path(), "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return key, false
	}
	if !item.Exists() {
		middleware.ErrorResponse(w, http.StatusNotFound, "Menu item not found")
		return key, false
	}
	return key, true
}

// Get handles GET /v1/votes/{serviceId}/{day}/{meal}/{item}
func (h *VoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	st, ok := middleware.Session(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "session required")
		return
	}
	key, ok := h.itemKey(w, r)
	if !ok {
		return
	}

	state, err := st.Votes.Watch(r.Context(), key)
	if err != nil {
		slog.Error("failed to watch item", "path", key.Path(), "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load votes")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, voteResponse(state))
}

// Like handles POST /v1/votes/{serviceId}/{day}/{meal}/{item}
// Each call toggles this device's like. A committed change answers 200,
// an exhausted retry 202 with the item still reconciling, and a store
// failure 502 with the optimistic state.
func (h *VoteHandler) Like(w http.ResponseWriter, r *http.Request) {
	st, ok := middleware.Session(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "session required")
		return
	}
	key, ok := h.itemKey(w, r)
	if !ok {
		return
	}

	res, err := st.Votes.CastVote(r.Context(), key, voting.Like)
	if err != nil {
		slog.Error("failed to cast vote", "path", key.Path(), "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to cast vote")
		return
	}

	resp := voteResponse(res.State)
	committed := res.Outcome == voting.Committed
	resp.Committed = &committed

	status := http.StatusOK
	switch res.Outcome {
	case voting.NotCommitted:
		status = http.StatusAccepted
	case voting.Failed:
		status = http.StatusBadGateway
	}
	middleware.JSONResponse(w, status, resp)
}
