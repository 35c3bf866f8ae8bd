// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/danielhkuo/campus-mess/auth"
	"github.com/danielhkuo/campus-mess/cliparse"
	"github.com/danielhkuo/campus-mess/middleware"
	"github.com/danielhkuo/campus-mess/models"
	"github.com/danielhkuo/campus-mess/remote"
	"github.com/danielhkuo/campus-mess/schedule"
)

type AdminHandler struct {
	store remote.Store
	sched *schedule.Scheduler
	cfg   cliparse.Config
}

func NewAdminHandler(store remote.Store, sched *schedule.Scheduler, cfg cliparse.Config) *AdminHandler {
	return &AdminHandler{store: store, sched: sched, cfg: cfg}
}

// Login handles POST /v1/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.AdminLoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := auth.CheckAdminPassword(req.Password, h.cfg.AdminPassword); err != nil {
		slog.Warn("admin login rejected", "remote", middleware.GetClientIP(r))
		middleware.ErrorResponse(w, http.StatusUnauthorized, "wrong password")
		return
	}

	token, expires, err := auth.IssueAdminToken(h.cfg.SessionSecret, time.Now())
	if err != nil {
		slog.Error("failed to issue admin token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	slog.Info("admin logged in", "remote", middleware.GetClientIP(r))
	middleware.JSONResponse(w, http.StatusOK, models.AdminLoginResponse{Token: token, ExpiresAt: expires})
}

// ListOwners handles GET /v1/admin/owners
func (h *AdminHandler) ListOwners(w http.ResponseWriter, r *http.Request) {
	owners := []models.AdminOwner{}
	for _, t := range models.ServiceTypes {
		snap, err := h.store.Read(r.Context(), schedule.OwnersPath(t))
		if err != nil {
			slog.Error("failed to read owners", "type", t, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		var byUID map[string]models.Owner
		if err := snap.Decode(&byUID); err != nil {
			slog.Error("failed to decode owners", "type", t, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		for uid, o := range byUID {
			owners = append(owners, models.AdminOwner{
				UID:    uid,
				Type:   t,
				Name:   o.Profile.MessName,
				Email:  o.Profile.Email,
				Phone:  o.Profile.Phone,
				IsOpen: o.Profile.MessStatus,
			})
		}
	}

	sort.Slice(owners, func(i, j int) bool {
		if owners[i].Type != owners[j].Type {
			return owners[i].Type > owners[j].Type // mess before canteen
		}
		return owners[i].Name < owners[j].Name
	})
	middleware.JSONResponse(w, http.StatusOK, owners)
}

// DeleteOwner handles DELETE /v1/admin/owners/{uid}
// Removes the owner record and the vote counters of its menu.
func (h *AdminHandler) DeleteOwner(w http.ResponseWriter, r *http.Request) {
	uid, serviceType, owner, ok := lookupOwner(w, r, h.store)
	if !ok {
		return
	}

	writes := map[string]any{
		ownerPath(serviceType, uid): nil,
		remote.Join("votes", uid):   nil,
	}
	if owner.Profile.Email != "" {
		writes[emailClaimPath(owner.Profile.Email)] = nil
	}
	err := h.store.Update(r.Context(), writes)
	if err != nil {
		slog.Error("failed to delete owner", "uid", uid, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete owner")
		return
	}

	slog.Info("owner deleted", "uid", uid, "type", serviceType)
	w.WriteHeader(http.StatusNoContent)
}

// MasterToggle handles PUT /v1/admin/status/{type}
// Sets every owner of the type at once and pauses automation for it.
func (h *AdminHandler) MasterToggle(w http.ResponseWriter, r *http.Request) {
	serviceType := chi.URLParam(r, "type")
	if !models.IsServiceType(serviceType) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "type must be one of: mess, canteen")
		return
	}

	var req models.SetStatusRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	n, err := h.sched.Evaluator().SetManually(r.Context(), serviceType, req.Open)
	if err != nil {
		slog.Error("master toggle failed", "type", serviceType, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update status")
		return
	}

	slog.Info("master toggle", "type", serviceType, "open", req.Open, "owners", n)
	middleware.JSONResponse(w, http.StatusOK, models.MasterToggleResponse{
		Type:     serviceType,
		Open:     req.Open,
		Owners:   n,
		Override: true,
	})
}

// SchedulerStatus handles GET /v1/admin/scheduler
func (h *AdminHandler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, h.sched.Status(r.Context()))
}

// SaveSchedulerSettings handles PUT /v1/admin/scheduler/settings
func (h *AdminHandler) SaveSchedulerSettings(w http.ResponseWriter, r *http.Request) {
	var req models.SchedulerSettings
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	err := h.sched.SaveSettings(r.Context(), req)
	if errors.Is(err, schedule.ErrInvalidWindow) {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Error("failed to save scheduler settings", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}

	slog.Info("scheduler settings saved")
	middleware.JSONResponse(w, http.StatusOK, h.sched.Status(r.Context()))
}

// SetSchedulerEnabled handles PUT /v1/admin/scheduler/enabled
func (h *AdminHandler) SetSchedulerEnabled(w http.ResponseWriter, r *http.Request) {
	var req models.SchedulerEnabledRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.sched.SetEnabled(r.Context(), req.Enabled); err != nil {
		slog.Error("failed to switch scheduler", "enabled", req.Enabled, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update scheduler")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, h.sched.Status(r.Context()))
}

// ResumeScheduler handles POST /v1/admin/scheduler/resume
// Clears manual overrides so the windows apply again.
func (h *AdminHandler) ResumeScheduler(w http.ResponseWriter, r *http.Request) {
	if err := h.sched.Resume(r.Context()); err != nil {
		slog.Error("failed to resume scheduler", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to resume scheduler")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, h.sched.Status(r.Context()))
}
