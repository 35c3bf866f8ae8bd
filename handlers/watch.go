// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/campus-mess/middleware"
	"github.com/danielhkuo/campus-mess/models"
	"github.com/danielhkuo/campus-mess/remote"
	"github.com/danielhkuo/campus-mess/schedule"
	"github.com/danielhkuo/campus-mess/seed"
)

// keepAlive is how often an idle stream sends a comment line.
const keepAlive = 25 * time.Second

// watchable roots; admin settings stay behind the admin API.
var watchRoots = []string{
	schedule.OwnersPath(models.ServiceMess),
	schedule.OwnersPath(models.ServiceCanteen),
	"votes",
	seed.SuggestionsPath,
}

type WatchHandler struct {
	store remote.Store
}

func NewWatchHandler(store remote.Store) *WatchHandler {
	return &WatchHandler{store: store}
}

func watchable(p string) bool {
	root, _, _ := strings.Cut(p, "/")
	for _, r := range watchRoots {
		if root == r {
			return true
		}
	}
	return false
}

// Watch handles GET /v1/watch?path=...
// Streams the value at path as server-sent events, first the current
// value and then one event per change. Slow readers only see the latest
// value.
func (h *WatchHandler) Watch(w http.ResponseWriter, r *http.Request) {
	p, err := remote.CleanPath(r.URL.Query().Get("path"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "a valid path is required")
		return
	}
	if !watchable(p) {
		middleware.ErrorResponse(w, http.StatusForbidden, "path cannot be watched")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		middleware.ErrorResponse(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	updates := make(chan remote.Snapshot, 1)
	cancel, err := h.store.Subscribe(p, func(snap remote.Snapshot) {
		// Replace a value the reader has not taken yet.
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- snap:
		default:
		}
	})
	if err != nil {
		slog.Error("failed to subscribe", "path", p, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to watch path")
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	slog.Debug("watch started", "path", p)
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			slog.Debug("watch ended", "path", p)
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case snap := <-updates:
			data, err := json.Marshal(snap.Value)
			if err != nil {
				slog.Error("failed to encode watch event", "path", p, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: value\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
