// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/danielhkuo/campus-mess/auth"
	"github.com/danielhkuo/campus-mess/cliparse"
	"github.com/danielhkuo/campus-mess/middleware"
	"github.com/danielhkuo/campus-mess/models"
	"github.com/danielhkuo/campus-mess/remote"
	"github.com/danielhkuo/campus-mess/schedule"
)

var errOwnerNotFound = errors.New("owner not found")

type OwnerHandler struct {
	store remote.Store
	cfg   cliparse.Config
}

func NewOwnerHandler(store remote.Store, cfg cliparse.Config) *OwnerHandler {
	return &OwnerHandler{store: store, cfg: cfg}
}

// ownerPath is the record of one owner.
func ownerPath(serviceType, uid string) string {
	return remote.Join(schedule.OwnersPath(serviceType), uid)
}

// emailClaimPath holds the uid registered with an email. Emails are
// hashed since they contain characters paths reject.
func emailClaimPath(email string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("campus-mess:email:"+strings.ToLower(strings.TrimSpace(email))))
	return remote.Join("ownerEmails", id.String())
}

// findOwner looks the uid up under every service type.
func findOwner(ctx context.Context, store remote.Store, uid string) (string, models.Owner, error) {
	var owner models.Owner
	if uid == "" || strings.Contains(uid, "/") {
		return "", owner, errOwnerNotFound
	}
	if _, err := remote.CleanPath(uid); err != nil {
		return "", owner, errOwnerNotFound
	}
	for _, t := range models.ServiceTypes {
		snap, err := store.Read(ctx, ownerPath(t, uid))
		if err != nil {
			return "", owner, err
		}
		if !snap.Exists() {
			continue
		}
		if err := snap.Decode(&owner); err != nil {
			return "", owner, err
		}
		return t, owner, nil
	}
	return "", owner, errOwnerNotFound
}

// lookupOwner writes the error response itself when ok is false.
func lookupOwner(w http.ResponseWriter, r *http.Request, store remote.Store) (uid, serviceType string, owner models.Owner, ok bool) {
	uid = chi.URLParam(r, "uid")
	serviceType, owner, err := findOwner(r.Context(), store, uid)
	if errors.Is(err, errOwnerNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Owner not found")
		return uid, "", owner, false
	}
	if err != nil {
		slog.Error("failed to read owner", "uid", uid, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return uid, "", owner, false
	}
	return uid, serviceType, owner, true
}

// Register handles POST /v1/owners
func (h *OwnerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterOwnerRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.MessName = strings.TrimSpace(req.MessName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if !validRequest(w, req) {
		return
	}

	uid := auth.NewOwnerUID()
	claimed, err := h.claimEmail(r.Context(), req.Email, uid)
	if err != nil {
		slog.Error("failed to claim owner email", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !claimed {
		middleware.ErrorResponse(w, http.StatusConflict, "an owner with this email already exists")
		return
	}

	// Seeded owners hold no claim.
	taken, err := h.emailTaken(r.Context(), req.Email)
	if err != nil {
		slog.Error("failed to check owner email", "error", err)
		h.releaseEmail(r.Context(), req.Email)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if taken {
		h.releaseEmail(r.Context(), req.Email)
		middleware.ErrorResponse(w, http.StatusConflict, "an owner with this email already exists")
		return
	}

	owner := models.Owner{
		Profile: models.Profile{
			MessName:   req.MessName,
			Email:      req.Email,
			Phone:      req.Phone,
			UserType:   req.Type,
			MessStatus: true,
		},
	}
	if err := h.store.Write(r.Context(), ownerPath(req.Type, uid), owner); err != nil {
		slog.Error("failed to create owner", "error", err)
		h.releaseEmail(r.Context(), req.Email)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create owner")
		return
	}

	slog.Info("owner registered", "uid", uid, "type", req.Type)

	middleware.JSONResponse(w, http.StatusCreated, models.RegisterOwnerResponse{
		UID:      uid,
		Type:     req.Type,
		OwnerKey: auth.GenerateOwnerKey(uid, h.cfg.OwnerKeySalt),
	})
}

// claimEmail records uid as the holder of email. It reports false when
// another owner holds it already.
func (h *OwnerHandler) claimEmail(ctx context.Context, email, uid string) (bool, error) {
	res, err := h.store.Transaction(ctx, emailClaimPath(email), func(current remote.Snapshot) (any, error) {
		if holder, _ := current.Value.(string); holder != "" && holder != uid {
			return nil, remote.ErrAbort
		}
		return uid, nil
	})
	if err != nil {
		return false, err
	}
	return res.Committed, nil
}

func (h *OwnerHandler) releaseEmail(ctx context.Context, email string) {
	if err := h.store.Write(ctx, emailClaimPath(email), nil); err != nil {
		slog.Error("failed to release owner email", "error", err)
	}
}

func (h *OwnerHandler) emailTaken(ctx context.Context, email string) (bool, error) {
	for _, t := range models.ServiceTypes {
		snap, err := h.store.Read(ctx, schedule.OwnersPath(t))
		if err != nil {
			return false, err
		}
		for _, uid := range snap.Keys() {
			existing, _ := snap.Child(uid).Child("profile").Child("email").Value.(string)
			if strings.EqualFold(existing, email) {
				return true, nil
			}
		}
	}
	return false, nil
}

// Get handles GET /v1/owners/{uid}
func (h *OwnerHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, serviceType, owner, ok := lookupOwner(w, r, h.store)
	if !ok {
		return
	}

	resp := models.OwnerResponse{
		UID:      uid,
		Type:     serviceType,
		Profile:  owner.Profile,
		Weekdays: owner.Weekdays,
	}
	if st, ok := middleware.Session(r.Context()); ok {
		resp.EditMode = st.EditMode(r.Context())
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// UpdateProfile handles PATCH /v1/owners/{uid}/profile
func (h *OwnerHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	uid, serviceType, owner, ok := lookupOwner(w, r, h.store)
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !validRequest(w, req) {
		return
	}

	profile := remote.Join(ownerPath(serviceType, uid), "profile")
	updates := make(map[string]any)
	if req.MessName != nil {
		name := strings.TrimSpace(*req.MessName)
		if name == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "messName cannot be empty")
			return
		}
		updates[remote.Join(profile, "messName")] = name
		owner.Profile.MessName = name
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		updates[remote.Join(profile, "phone")] = phone
		owner.Profile.Phone = phone
	}
	if len(updates) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "nothing to update")
		return
	}

	if err := h.store.Update(r.Context(), updates); err != nil {
		slog.Error("failed to update profile", "uid", uid, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	slog.Info("profile updated", "uid", uid)
	middleware.JSONResponse(w, http.StatusOK, owner.Profile)
}

// SetStatus handles PUT /v1/owners/{uid}/status
func (h *OwnerHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	uid, serviceType, _, ok := lookupOwner(w, r, h.store)
	if !ok {
		return
	}

	var req models.SetStatusRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.store.Write(r.Context(), schedule.StatusPath(serviceType, uid), req.Open); err != nil {
		slog.Error("failed to set status", "uid", uid, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update status")
		return
	}

	slog.Info("owner status changed", "uid", uid, "open", req.Open)
	middleware.JSONResponse(w, http.StatusOK, req)
}

// GetMenu handles GET /v1/owners/{uid}/menu
func (h *OwnerHandler) GetMenu(w http.ResponseWriter, r *http.Request) {
	_, _, owner, ok := lookupOwner(w, r, h.store)
	if !ok {
		return
	}
	menu := owner.Weekdays
	if menu == nil {
		menu = models.WeeklyMenu{}
	}
	middleware.JSONResponse(w, http.StatusOK, menu)
}

// PutMenu handles PUT /v1/owners/{uid}/menu
// Replaces the whole week. Requires edit mode in the caller's session.
func (h *OwnerHandler) PutMenu(w http.ResponseWriter, r *http.Request) {
	uid, serviceType, _, ok := lookupOwner(w, r, h.store)
	if !ok {
		return
	}

	st, ok := middleware.Session(r.Context())
	if !ok || st.OwnerUID() != uid || !st.EditMode(r.Context()) {
		middleware.ErrorResponse(w, http.StatusConflict, "enable edit mode before changing the menu")
		return
	}

	var req models.PutMenuRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	menu, err := buildMenu(req)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Write(r.Context(), remote.Join(ownerPath(serviceType, uid), "weekdays"), menu); err != nil {
		slog.Error("failed to save menu", "uid", uid, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save menu")
		return
	}

	slog.Info("menu saved", "uid", uid, "days", len(menu))
	middleware.JSONResponse(w, http.StatusOK, menu)
}

// buildMenu validates keys, drops unnamed items and assigns missing ids.
func buildMenu(req models.PutMenuRequest) (models.WeeklyMenu, error) {
	menu := make(models.WeeklyMenu, len(req.Days))
	for day, meals := range req.Days {
		if !models.IsDayKey(day) {
			return nil, errors.New("unknown day " + day + " (use Su, Mo, Tu, We, Th, Fr, Sa)")
		}
		d := models.Day{Meals: make(map[string]models.Meal)}
		for key, in := range meals {
			if !models.IsMealKey(key) {
				return nil, errors.New("unknown meal " + key + " (use breakfast, lunch, dinner)")
			}
			meal := models.Meal{Price: strings.TrimSpace(in.Price), Items: make(map[string]models.MenuItem)}
			for _, it := range in.Items {
				name := strings.TrimSpace(it.Name)
				if name == "" {
					continue
				}
				id := it.ID
				if id == "" {
					var err error
					if id, err = auth.GenerateID(8); err != nil {
						return nil, err
					}
				}
				if strings.Contains(id, "/") {
					return nil, errors.New("invalid item id " + id)
				}
				if _, err := remote.CleanPath(id); err != nil {
					return nil, errors.New("invalid item id " + id)
				}
				meal.Items[id] = models.MenuItem{Name: name, Price: strings.TrimSpace(it.Price)}
			}
			if meal.Price == "" && len(meal.Items) == 0 {
				continue
			}
			d.Meals[key] = meal
		}
		if len(d.Meals) > 0 {
			menu[day] = d
		}
	}
	return menu, nil
}

// SetEditMode handles PUT /v1/owners/{uid}/edit-mode
func (h *OwnerHandler) SetEditMode(w http.ResponseWriter, r *http.Request) {
	uid, _, _, ok := lookupOwner(w, r, h.store)
	if !ok {
		return
	}
	st, ok := middleware.Session(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "session required")
		return
	}

	var req models.EditModeRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	st.SetOwner(uid)
	if err := st.SetEditMode(r.Context(), req.Enabled); err != nil {
		slog.Error("failed to set edit mode", "uid", uid, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to set edit mode")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.EditModeResponse{EditMode: req.Enabled})
}
