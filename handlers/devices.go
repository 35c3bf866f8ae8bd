// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/campus-mess/middleware"
	"github.com/danielhkuo/campus-mess/models"
	"github.com/danielhkuo/campus-mess/prefs"
)

type DeviceHandler struct {
	db *sql.DB
}

func NewDeviceHandler(db *sql.DB) *DeviceHandler {
	return &DeviceHandler{db: db}
}

// GetMe handles GET /v1/devices/me
// Returns when this device was first seen and the items it likes.
func (h *DeviceHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	st, ok := middleware.Session(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "session required")
		return
	}

	created, lastSeen, err := prefs.DeviceSeen(r.Context(), h.db, st.DeviceID)
	if err != nil {
		slog.Error("failed to query device", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	votes, err := st.Durable.Items(r.Context(), "vote_")
	if err != nil {
		slog.Error("failed to list votes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	liked := []string{}
	for key, v := range votes {
		if v == "like" {
			liked = append(liked, strings.TrimPrefix(key, "vote_"))
		}
	}
	sort.Strings(liked)

	middleware.JSONResponse(w, http.StatusOK, models.DeviceInfo{
		DeviceUUID:   st.DeviceID,
		SessionID:    st.ID,
		CreatedAt:    created,
		LastSeenAt:   lastSeen,
		FirstSeenAgo: humanize.Time(created),
		LikedItems:   liked,
	})
}
